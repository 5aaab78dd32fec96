package brackets

import (
	"context"
	"fmt"

	"github.com/mrvlstats/tournament-core/models"
)

type DoubleEliminationGenerator struct{}

func (g *DoubleEliminationGenerator) Name() string { return "DoubleElimination" }

// Generate builds the upper bracket, the lower bracket and a single grand
// final node. The grand-final reset match is not part of the generated DAG:
// it is created lazily when the lower-bracket finalist wins the first grand
// final (see BracketService).
//
// Lower bracket layout for bracketSize 2^k: rounds 1..2(k-1), where odd
// rounds pair lower-bracket survivors against each other's half and even
// rounds receive the upper-bracket droppers in slot 1.
func (g *DoubleEliminationGenerator) Generate(ctx context.Context, params GenerateParams) ([]*models.BracketMatch, error) {
	n := len(params.Teams)
	if n < 3 {
		return nil, fmt.Errorf("%w: double elimination needs at least 3 teams, got %d", ErrNotEnoughTeams, n)
	}
	if n > maxEliminationTeams {
		return nil, fmt.Errorf("%w: double elimination caps at %d teams, got %d", ErrTooManyTeams, maxEliminationTeams, n)
	}

	size := nextPowerOfTwo(n)
	k := 0
	for s := size; s > 1; s >>= 1 {
		k++
	}

	byUID := make(map[string]*models.BracketMatch)
	all := make([]*models.BracketMatch, 0, 2*size)
	add := func(bm *models.BracketMatch) {
		byUID[bm.UID] = bm
		all = append(all, bm)
	}

	// Upper bracket.
	for r := 1; r <= k; r++ {
		count := size >> uint(r)
		for i := 1; i <= count; i++ {
			bm := &models.BracketMatch{
				UID:         fmt.Sprintf("UB_R%dM%d", r, i),
				Section:     models.SectionUpper,
				Round:       r,
				MatchNumber: i,
				State:       models.SlotPending,
			}
			if r < k {
				winTo, winSlot := fmt.Sprintf("UB_R%dM%d", r+1, (i+1)/2), 2-i%2
				bm.WinnerToUID, bm.WinnerToSlot = &winTo, &winSlot
			} else {
				winTo, winSlot := "GF1", 1
				bm.WinnerToUID, bm.WinnerToSlot = &winTo, &winSlot
			}
			if r == 1 {
				loseTo, loseSlot := fmt.Sprintf("LB_R1M%d", (i+1)/2), 2-i%2
				bm.LoserToUID, bm.LoserToSlot = &loseTo, &loseSlot
			} else {
				loseTo, loseSlot := fmt.Sprintf("LB_R%dM%d", 2*(r-1), i), 1
				bm.LoserToUID, bm.LoserToSlot = &loseTo, &loseSlot
			}
			add(bm)
		}
	}

	// Lower bracket.
	lowerRounds := 2 * (k - 1)
	for d := 1; d <= lowerRounds; d++ {
		j := (d + 1) / 2
		count := size >> uint(j+1)
		for i := 1; i <= count; i++ {
			bm := &models.BracketMatch{
				UID:         fmt.Sprintf("LB_R%dM%d", d, i),
				Section:     models.SectionLower,
				Round:       d,
				MatchNumber: i,
				State:       models.SlotPending,
			}
			switch {
			case d == lowerRounds:
				winTo, winSlot := "GF1", 2
				bm.WinnerToUID, bm.WinnerToSlot = &winTo, &winSlot
			case d%2 == 1:
				winTo, winSlot := fmt.Sprintf("LB_R%dM%d", d+1, i), 2
				bm.WinnerToUID, bm.WinnerToSlot = &winTo, &winSlot
			default:
				winTo, winSlot := fmt.Sprintf("LB_R%dM%d", d+1, (i+1)/2), 2-i%2
				bm.WinnerToUID, bm.WinnerToSlot = &winTo, &winSlot
			}
			add(bm)
		}
	}

	add(&models.BracketMatch{
		UID:         "GF1",
		Section:     models.SectionGrandFinal,
		Round:       1,
		MatchNumber: 1,
		State:       models.SlotPending,
	})

	// Seed the upper bracket first round.
	teamBySeed := func(seed int) *int {
		if seed >= 1 && seed <= n {
			id := params.Teams[seed-1].ID
			return &id
		}
		return nil
	}
	for i, pair := range seedPairs(size) {
		bm := byUID[fmt.Sprintf("UB_R1M%d", i+1)]
		bm.Team1ID = teamBySeed(pair[0])
		bm.Team2ID = teamBySeed(pair[1])
		switch {
		case bm.Team1ID != nil && bm.Team2ID != nil:
			bm.State = models.SlotReady
		case bm.Team1ID != nil:
			bm.IsBye = true
			bm.State = models.SlotDone
		default:
			return nil, fmt.Errorf("first round match %s has no top-seed team", bm.UID)
		}
	}

	// Advance bye winners into upper round 2.
	for _, bm := range all {
		if !bm.IsBye || bm.WinnerToUID == nil {
			continue
		}
		target := byUID[*bm.WinnerToUID]
		setSlot(target, *bm.WinnerToSlot, *bm.Team1ID)
		if target.Team1ID != nil && target.Team2ID != nil {
			target.State = models.SlotReady
		}
	}

	g.propagateGhostSlots(all, byUID)

	if err := ValidateAdvancement(all); err != nil {
		return nil, err
	}
	return all, nil
}

// propagateGhostSlots resolves the lower-bracket consequences of first-round
// byes. A bye produces no loser, so the lower-bracket slot it feeds can never
// fill. A node with one permanently empty slot becomes a walkover (IsBye):
// whichever team arrives in its live slot advances without a match. A node
// with both slots permanently empty is dead, and its own winner slot becomes
// permanently empty in turn.
func (g *DoubleEliminationGenerator) propagateGhostSlots(all []*models.BracketMatch, byUID map[string]*models.BracketMatch) {
	ghost := make(map[string][2]bool)
	markGhost := func(uid string, slot int) {
		gs := ghost[uid]
		gs[slot-1] = true
		ghost[uid] = gs
	}

	for _, bm := range all {
		if bm.IsBye && bm.LoserToUID != nil {
			markGhost(*bm.LoserToUID, *bm.LoserToSlot)
		}
	}

	for changed := true; changed; {
		changed = false
		for _, bm := range all {
			gs := ghost[bm.UID]
			switch {
			case gs[0] && gs[1]:
				if bm.State != models.SlotDone {
					bm.IsBye = true
					bm.State = models.SlotDone
					if bm.WinnerToUID != nil {
						markGhost(*bm.WinnerToUID, *bm.WinnerToSlot)
					}
					changed = true
				}
			case gs[0] || gs[1]:
				if !bm.IsBye && bm.State == models.SlotPending {
					bm.IsBye = true
					changed = true
				}
			}
		}
	}
}
