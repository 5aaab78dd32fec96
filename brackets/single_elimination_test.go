package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrvlstats/tournament-core/models"
)

func seededTeams(n int) []*models.Team {
	teams := make([]*models.Team, 0, n)
	for i := 1; i <= n; i++ {
		teams = append(teams, &models.Team{ID: i * 100, Rating: 1500 - i*10})
	}
	return teams
}

func genParams(t models.StageType, teams []*models.Team) GenerateParams {
	return GenerateParams{
		Stage: &models.BracketStage{ID: 1, Type: t, Config: models.StageConfig{Format: models.BestOf3}},
		Teams: teams,
	}
}

func nodesByUID(t *testing.T, nodes []*models.BracketMatch) map[string]*models.BracketMatch {
	t.Helper()
	byUID := make(map[string]*models.BracketMatch, len(nodes))
	for _, n := range nodes {
		require.NotContains(t, byUID, n.UID, "duplicate UID %s", n.UID)
		byUID[n.UID] = n
	}
	return byUID
}

func TestSingleElimination_EightTeams(t *testing.T) {
	g := &SingleEliminationGenerator{}
	nodes, err := g.Generate(context.Background(), genParams(models.StageSingleElimination, seededTeams(8)))
	require.NoError(t, err)

	// 8 teams: exactly 7 matches across 3 rounds.
	require.Len(t, nodes, 7)
	byUID := nodesByUID(t, nodes)

	perRound := map[int]int{}
	for _, n := range nodes {
		perRound[n.Round]++
	}
	assert.Equal(t, map[int]int{1: 4, 2: 2, 3: 1}, perRound)

	// Classic seeding: 1v8, 2v7, 3v6, 4v5 (IDs are seed*100).
	r1 := byUID["R1M1"]
	assert.Equal(t, 100, *r1.Team1ID)
	assert.Equal(t, 800, *r1.Team2ID)
	assert.Equal(t, models.SlotReady, r1.State)

	r1m4 := byUID["R1M4"]
	assert.Equal(t, 400, *r1m4.Team1ID)
	assert.Equal(t, 500, *r1m4.Team2ID)

	// The final has no outgoing edge; everything else points forward.
	final := byUID["R3M1"]
	assert.Nil(t, final.WinnerToUID)
	for _, n := range nodes {
		if n.UID == "R3M1" {
			continue
		}
		require.NotNil(t, n.WinnerToUID, "node %s must advance its winner", n.UID)
		target := byUID[*n.WinnerToUID]
		require.NotNil(t, target)
		assert.Greater(t, target.Round, n.Round)
	}
}

func TestSingleElimination_SixTeamsByes(t *testing.T) {
	g := &SingleEliminationGenerator{}
	nodes, err := g.Generate(context.Background(), genParams(models.StageSingleElimination, seededTeams(6)))
	require.NoError(t, err)
	byUID := nodesByUID(t, nodes)

	// Bracket size 8: seeds 1 and 2 draw byes (pairs 1v8 and 2v7 have no
	// low seed).
	bye1, bye2 := byUID["R1M1"], byUID["R1M2"]
	assert.True(t, bye1.IsBye)
	assert.Equal(t, models.SlotDone, bye1.State)
	assert.Nil(t, bye1.Team2ID)
	assert.True(t, bye2.IsBye)

	// Bye winners are already placed in round 2.
	r2m1 := byUID["R2M1"]
	require.NotNil(t, r2m1.Team1ID)
	assert.Equal(t, 100, *r2m1.Team1ID)
	assert.Equal(t, models.SlotPending, r2m1.State)
}

func TestSingleElimination_TooFewTeams(t *testing.T) {
	g := &SingleEliminationGenerator{}
	_, err := g.Generate(context.Background(), genParams(models.StageSingleElimination, seededTeams(1)))
	assert.ErrorIs(t, err, ErrNotEnoughTeams)
}

func TestSingleElimination_TwoTeams(t *testing.T) {
	g := &SingleEliminationGenerator{}
	nodes, err := g.Generate(context.Background(), genParams(models.StageSingleElimination, seededTeams(2)))
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, models.SlotReady, nodes[0].State)
	assert.Nil(t, nodes[0].WinnerToUID)
}

func TestSingleElimination_TooManyTeams(t *testing.T) {
	g := &SingleEliminationGenerator{}
	_, err := g.Generate(context.Background(), genParams(models.StageSingleElimination, seededTeams(257)))
	assert.ErrorIs(t, err, ErrTooManyTeams)
}
