package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrvlstats/tournament-core/models"
)

func TestSwissGenerator_FirstRound(t *testing.T) {
	g := &SwissGenerator{}
	nodes, err := g.Generate(context.Background(), genParams(models.StageSwiss, seededTeams(8)))
	require.NoError(t, err)
	require.Len(t, nodes, 4)

	// Standard opener: top half against bottom half in seed order.
	assert.Equal(t, 100, *nodes[0].Team1ID)
	assert.Equal(t, 500, *nodes[0].Team2ID)
	assert.Equal(t, 400, *nodes[3].Team1ID)
	assert.Equal(t, 800, *nodes[3].Team2ID)
}

func TestSwissGenerator_OddCountBye(t *testing.T) {
	g := &SwissGenerator{}
	nodes, err := g.Generate(context.Background(), genParams(models.StageSwiss, seededTeams(7)))
	require.NoError(t, err)
	require.Len(t, nodes, 4)

	bye := nodes[3]
	assert.True(t, bye.IsBye)
	assert.Equal(t, models.SlotDone, bye.State)
	assert.Equal(t, 700, *bye.Team1ID)
	assert.Nil(t, bye.Team2ID)
}

func TestRecommendedSwissRounds(t *testing.T) {
	assert.Equal(t, 4, RecommendedSwissRounds(8))
	assert.Equal(t, 5, RecommendedSwissRounds(16))
	assert.Equal(t, 6, RecommendedSwissRounds(17))
	assert.Equal(t, 3, RecommendedSwissRounds(4))
}

func standing(teamID, seed, wins, losses int, opponents ...int) *models.SwissStanding {
	return &models.SwissStanding{
		TeamID:      teamID,
		Seed:        seed,
		Wins:        wins,
		Losses:      losses,
		OpponentIDs: opponents,
	}
}

func TestPairSwissRound_NoRematches(t *testing.T) {
	// Round 2 of a 4-team stage: 1 beat 3, 2 beat 4. Naive top-down pairing
	// by score puts 1v2 and 3v4, which is rematch-free here.
	standings := []*models.SwissStanding{
		standing(1, 1, 1, 0, 3),
		standing(2, 2, 1, 0, 4),
		standing(3, 3, 0, 1, 1),
		standing(4, 4, 0, 1, 2),
	}
	pairings, err := PairSwissRound(standings, 2)
	require.NoError(t, err)
	require.Len(t, pairings, 2)

	for _, p := range pairings {
		require.NotNil(t, p.Team2ID)
		assert.Equal(t, 2, p.Round)
		for _, s := range standings {
			if s.TeamID == p.Team1ID {
				assert.False(t, s.HasPlayed(*p.Team2ID),
					"rematch paired: %d vs %d", p.Team1ID, *p.Team2ID)
			}
		}
	}
}

func TestPairSwissRound_BacktracksPastRematch(t *testing.T) {
	// 1 already played 2, so the top pairing must cross score lines:
	// the only rematch-free perfect matching is 1v3, 2v4.
	standings := []*models.SwissStanding{
		standing(1, 1, 1, 0, 2),
		standing(2, 2, 1, 0, 1),
		standing(3, 3, 0, 1, 4),
		standing(4, 4, 0, 1, 3),
	}
	pairings, err := PairSwissRound(standings, 2)
	require.NoError(t, err)
	require.Len(t, pairings, 2)

	got := map[int]int{}
	for _, p := range pairings {
		require.NotNil(t, p.Team2ID)
		got[p.Team1ID] = *p.Team2ID
	}
	assert.Equal(t, map[int]int{1: 3, 2: 4}, got)
}

func TestPairSwissRound_Infeasible(t *testing.T) {
	// Everyone has already played everyone.
	standings := []*models.SwissStanding{
		standing(1, 1, 2, 1, 2, 3, 4),
		standing(2, 2, 2, 1, 1, 3, 4),
		standing(3, 3, 1, 2, 1, 2, 4),
		standing(4, 4, 1, 2, 1, 2, 3),
	}
	_, err := PairSwissRound(standings, 4)
	assert.ErrorIs(t, err, ErrPairingInfeasible)
}

func TestPairSwissRound_ByeGoesToLowestWithoutOne(t *testing.T) {
	standings := []*models.SwissStanding{
		standing(1, 1, 1, 0, 4),
		standing(2, 2, 1, 0, 5),
		standing(3, 3, 0, 1, 1),
		standing(4, 4, 0, 1, 2),
		standing(5, 5, 0, 1, 3),
	}
	// The bottom team already had its bye; the next one up takes it.
	standings[4].HadBye = true
	standings[4].Wins = 1

	pairings, err := PairSwissRound(standings, 2)
	require.NoError(t, err)

	var bye *models.SwissPairing
	for i := range pairings {
		if pairings[i].Team2ID == nil {
			require.Nil(t, bye, "more than one bye")
			bye = &pairings[i]
		}
	}
	require.NotNil(t, bye)
	assert.NotEqual(t, 5, bye.Team1ID)
}

func TestPairSwissRound_ByeChoiceKeepsRoundPairable(t *testing.T) {
	// Three teams, 1 and 2 already met. A bye for bottom-ranked 3 would force
	// the 1v2 rematch, so the bye has to move up to 2, leaving 1v3.
	standings := []*models.SwissStanding{
		standing(1, 1, 1, 0, 2),
		standing(2, 2, 0, 1, 1),
		standing(3, 3, 0, 1),
	}

	pairings, err := PairSwissRound(standings, 2)
	require.NoError(t, err)
	require.Len(t, pairings, 2)

	var bye *models.SwissPairing
	var played *models.SwissPairing
	for i := range pairings {
		if pairings[i].Team2ID == nil {
			bye = &pairings[i]
		} else {
			played = &pairings[i]
		}
	}
	require.NotNil(t, bye)
	require.NotNil(t, played)
	assert.Equal(t, 2, bye.Team1ID)
	assert.Equal(t, 1, played.Team1ID)
	assert.Equal(t, 3, *played.Team2ID)
}

func TestPairSwissRound_ExcludesDecidedTeams(t *testing.T) {
	standings := []*models.SwissStanding{
		standing(1, 1, 3, 0, 2, 3, 4),
		standing(2, 2, 2, 1, 1, 4, 5),
		standing(3, 3, 2, 1, 1, 5, 6),
		standing(4, 4, 1, 2, 1, 2, 6),
		standing(5, 5, 0, 3, 2, 3, 6),
		standing(6, 6, 1, 2, 3, 4, 5),
	}
	standings[0].Qualified = true
	standings[4].Eliminated = true

	pairings, err := PairSwissRound(standings, 4)
	require.NoError(t, err)

	for _, p := range pairings {
		assert.NotEqual(t, 1, p.Team1ID)
		assert.NotEqual(t, 5, p.Team1ID)
		if p.Team2ID != nil {
			assert.NotEqual(t, 1, *p.Team2ID)
			assert.NotEqual(t, 5, *p.Team2ID)
		}
	}
}
