package brackets

import (
	"context"
	"fmt"
	"sort"

	"github.com/mrvlstats/tournament-core/models"
)

// SwissGenerator only produces the first round: 1 vs n/2+1, 2 vs n/2+2, ...
// in seed order, the standard Swiss opener. Later rounds are paired from
// live standings via PairSwissRound once the previous round completes.
type SwissGenerator struct{}

func (g *SwissGenerator) Name() string { return "Swiss" }

func (g *SwissGenerator) Generate(ctx context.Context, params GenerateParams) ([]*models.BracketMatch, error) {
	teams := params.Teams
	if len(teams) < 4 {
		return nil, fmt.Errorf("%w: swiss needs at least 4 teams, got %d", ErrNotEnoughTeams, len(teams))
	}
	if len(teams) > maxSwissTeams {
		return nil, fmt.Errorf("%w: swiss caps at %d teams, got %d", ErrTooManyTeams, maxSwissTeams, len(teams))
	}

	matches := make([]*models.BracketMatch, 0, len(teams)/2+1)
	half := len(teams) / 2
	num := 0
	for i := 0; i < half; i++ {
		t1, t2 := teams[i].ID, teams[i+half].ID
		num++
		matches = append(matches, &models.BracketMatch{
			UID:         fmt.Sprintf("SW_R1M%d", num),
			Section:     models.SectionUpper,
			Round:       1,
			MatchNumber: num,
			Team1ID:     &t1,
			Team2ID:     &t2,
			State:       models.SlotReady,
		})
	}
	if len(teams)%2 == 1 {
		// Odd field: the lowest seed opens with a bye.
		id := teams[len(teams)-1].ID
		num++
		matches = append(matches, &models.BracketMatch{
			UID:         fmt.Sprintf("SW_R1M%d", num),
			Section:     models.SectionUpper,
			Round:       1,
			MatchNumber: num,
			Team1ID:     &id,
			IsBye:       true,
			State:       models.SlotDone,
		})
	}
	return matches, nil
}

// RecommendedSwissRounds is the usual log2(n)+1, capped at n-1.
func RecommendedSwissRounds(teamCount int) int {
	r := 0
	for p := 1; p < teamCount; p <<= 1 {
		r++
	}
	r++
	if r > teamCount-1 {
		r = teamCount - 1
	}
	return r
}

// PairSwissRound pairs the given standings for the next round. Teams still
// in contention are sorted by (wins desc, Buchholz desc, seed asc) and paired
// top-down against the nearest unplayed opponent, with full backtracking: a
// rematch-free perfect pairing is found whenever one exists, and
// ErrPairingInfeasible is returned otherwise, never a silent rematch.
// Odd fields give a bye (scored as a win) to the lowest-ranked team that has
// not yet had one and whose removal still leaves the rest pairable; only when
// no bye choice admits a complete pairing is the round infeasible.
func PairSwissRound(standings []*models.SwissStanding, round int) ([]models.SwissPairing, error) {
	active := make([]*models.SwissStanding, 0, len(standings))
	for _, s := range standings {
		if !s.Qualified && !s.Eliminated {
			active = append(active, s)
		}
	}
	if len(active) < 2 {
		return nil, fmt.Errorf("%w: %d teams still in contention", ErrNotEnoughTeams, len(active))
	}

	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Wins != active[j].Wins {
			return active[i].Wins > active[j].Wins
		}
		if active[i].Buchholz != active[j].Buchholz {
			return active[i].Buchholz > active[j].Buchholz
		}
		return active[i].Seed < active[j].Seed
	})

	if len(active)%2 == 0 {
		paired := pairBacktrack(active, nil)
		if paired == nil {
			return nil, ErrPairingInfeasible
		}
		return toPairings(nil, paired, round), nil
	}

	// Bye candidates bottom-up, teams without a previous bye first; a team
	// only gets a second bye when nobody else can take one.
	candidates := make([]int, 0, len(active))
	for i := len(active) - 1; i >= 0; i-- {
		if !active[i].HadBye {
			candidates = append(candidates, i)
		}
	}
	for i := len(active) - 1; i >= 0; i-- {
		if active[i].HadBye {
			candidates = append(candidates, i)
		}
	}

	for _, byeIdx := range candidates {
		rest := make([]*models.SwissStanding, 0, len(active)-1)
		rest = append(rest, active[:byeIdx]...)
		rest = append(rest, active[byeIdx+1:]...)
		paired := pairBacktrack(rest, nil)
		if paired == nil {
			continue
		}
		bye := []models.SwissPairing{{Round: round, Team1ID: active[byeIdx].TeamID}}
		return toPairings(bye, paired, round), nil
	}
	return nil, ErrPairingInfeasible
}

func toPairings(acc []models.SwissPairing, paired [][2]int, round int) []models.SwissPairing {
	for _, p := range paired {
		t2 := p[1]
		acc = append(acc, models.SwissPairing{Round: round, Team1ID: p[0], Team2ID: &t2})
	}
	return acc
}

// pairBacktrack pairs the ordered remainder. The first unpaired team tries
// opponents nearest to it in the table first; on a dead end the search
// unwinds instead of accepting a rematch.
func pairBacktrack(remaining []*models.SwissStanding, acc [][2]int) [][2]int {
	if len(remaining) == 0 {
		return acc
	}
	first := remaining[0]
	rest := remaining[1:]

	for i := 0; i < len(rest); i++ {
		opp := rest[i]
		if first.HasPlayed(opp.TeamID) {
			continue
		}
		next := make([]*models.SwissStanding, 0, len(rest)-1)
		next = append(next, rest[:i]...)
		next = append(next, rest[i+1:]...)
		if result := pairBacktrack(next, append(acc, [2]int{first.TeamID, opp.TeamID})); result != nil {
			return result
		}
	}
	return nil
}
