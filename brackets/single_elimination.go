package brackets

import (
	"context"
	"fmt"

	"github.com/mrvlstats/tournament-core/models"
)

type SingleEliminationGenerator struct{}

func (g *SingleEliminationGenerator) Name() string { return "SingleElimination" }

// Generate builds the complete single elimination DAG up front. Teams are
// placed by classic seeding (1 vs N, 2 vs N-1, ...); non-power-of-two team
// counts receive first-round byes, whose winners are propagated into their
// second-round slots at generation time.
func (g *SingleEliminationGenerator) Generate(ctx context.Context, params GenerateParams) ([]*models.BracketMatch, error) {
	n := len(params.Teams)
	if n < 2 {
		return nil, ErrNotEnoughTeams
	}
	if n > maxEliminationTeams {
		return nil, fmt.Errorf("%w: single elimination caps at %d teams, got %d", ErrTooManyTeams, maxEliminationTeams, n)
	}

	size := nextPowerOfTwo(n)
	rounds := 0
	for s := size; s > 1; s >>= 1 {
		rounds++
	}

	teamBySeed := func(seed int) *int {
		if seed >= 1 && seed <= n {
			id := params.Teams[seed-1].ID
			return &id
		}
		return nil
	}

	byUID := make(map[string]*models.BracketMatch, size-1)
	all := make([]*models.BracketMatch, 0, size-1)

	for r := 1; r <= rounds; r++ {
		count := size >> uint(r)
		for i := 1; i <= count; i++ {
			bm := &models.BracketMatch{
				UID:         fmt.Sprintf("R%dM%d", r, i),
				Section:     models.SectionUpper,
				Round:       r,
				MatchNumber: i,
				State:       models.SlotPending,
			}
			if r < rounds {
				target := fmt.Sprintf("R%dM%d", r+1, (i+1)/2)
				slot := 2 - i%2
				bm.WinnerToUID = &target
				bm.WinnerToSlot = &slot
			}
			byUID[bm.UID] = bm
			all = append(all, bm)
		}
	}

	for i, pair := range seedPairs(size) {
		bm := byUID[fmt.Sprintf("R1M%d", i+1)]
		bm.Team1ID = teamBySeed(pair[0])
		bm.Team2ID = teamBySeed(pair[1])

		switch {
		case bm.Team1ID != nil && bm.Team2ID != nil:
			bm.State = models.SlotReady
		case bm.Team1ID != nil:
			bm.IsBye = true
			bm.State = models.SlotDone
		default:
			// Seed pairing guarantees the higher seed is always present:
			// byes only ever remove the low-seed side of a pair.
			return nil, fmt.Errorf("first round match %s has no top-seed team", bm.UID)
		}
	}

	// Advance bye winners into round 2.
	for _, bm := range all {
		if !bm.IsBye || bm.WinnerToUID == nil {
			continue
		}
		target, ok := byUID[*bm.WinnerToUID]
		if !ok {
			return nil, fmt.Errorf("%w: %s -> %s", ErrDanglingAdvancement, bm.UID, *bm.WinnerToUID)
		}
		setSlot(target, *bm.WinnerToSlot, *bm.Team1ID)
		if target.Team1ID != nil && target.Team2ID != nil {
			target.State = models.SlotReady
		}
	}

	if err := ValidateAdvancement(all); err != nil {
		return nil, err
	}
	return all, nil
}

func setSlot(bm *models.BracketMatch, slot int, teamID int) {
	if slot == 1 {
		bm.Team1ID = &teamID
	} else {
		bm.Team2ID = &teamID
	}
}
