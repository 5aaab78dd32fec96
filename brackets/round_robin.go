package brackets

import (
	"context"
	"fmt"

	"github.com/mrvlstats/tournament-core/models"
)

type RoundRobinGenerator struct{}

func (g *RoundRobinGenerator) Name() string { return "RoundRobin" }

// Generate schedules every team against every other team once, using the
// circle method so each team plays at most once per round. Odd team counts
// get a rotating bye (the match against the phantom slot is skipped).
func (g *RoundRobinGenerator) Generate(ctx context.Context, params GenerateParams) ([]*models.BracketMatch, error) {
	teams := params.Teams
	if len(teams) < 2 {
		return nil, ErrNotEnoughTeams
	}
	if len(teams) > maxRoundRobinTeams {
		return nil, fmt.Errorf("%w: round robin caps at %d teams, got %d", ErrTooManyTeams, maxRoundRobinTeams, len(teams))
	}

	ids := make([]*int, 0, len(teams)+1)
	for _, t := range teams {
		id := t.ID
		ids = append(ids, &id)
	}
	if len(ids)%2 == 1 {
		ids = append(ids, nil) // phantom opponent = bye
	}

	rounds := len(ids) - 1
	half := len(ids) / 2
	matches := make([]*models.BracketMatch, 0, rounds*half)

	for r := 1; r <= rounds; r++ {
		num := 0
		for i := 0; i < half; i++ {
			t1, t2 := ids[i], ids[len(ids)-1-i]
			if t1 == nil || t2 == nil {
				continue
			}
			num++
			matches = append(matches, &models.BracketMatch{
				UID:         fmt.Sprintf("RR_R%dM%d", r, num),
				Section:     models.SectionUpper,
				Round:       r,
				MatchNumber: num,
				Team1ID:     t1,
				Team2ID:     t2,
				State:       models.SlotReady,
			})
		}
		// Rotate all but the first position.
		last := ids[len(ids)-1]
		copy(ids[2:], ids[1:len(ids)-1])
		ids[1] = last
	}

	return matches, nil
}
