package brackets

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrvlstats/tournament-core/models"
)

func TestRoundRobin_EveryPairingOnce(t *testing.T) {
	g := &RoundRobinGenerator{}
	nodes, err := g.Generate(context.Background(), genParams(models.StageRoundRobin, seededTeams(6)))
	require.NoError(t, err)

	// C(6,2) pairings over 5 rounds.
	require.Len(t, nodes, 15)

	seen := map[string]bool{}
	perRound := map[int]int{}
	for _, n := range nodes {
		require.NotNil(t, n.Team1ID)
		require.NotNil(t, n.Team2ID)
		require.NotEqual(t, *n.Team1ID, *n.Team2ID)
		assert.Equal(t, models.SlotReady, n.State)

		a, b := *n.Team1ID, *n.Team2ID
		if a > b {
			a, b = b, a
		}
		key := fmt.Sprintf("%d-%d", a, b)
		require.False(t, seen[key], "pairing %s scheduled twice", key)
		seen[key] = true
		perRound[n.Round]++
	}
	for r := 1; r <= 5; r++ {
		assert.Equal(t, 3, perRound[r], "round %d", r)
	}
}

func TestRoundRobin_OddCountRotatingBye(t *testing.T) {
	g := &RoundRobinGenerator{}
	nodes, err := g.Generate(context.Background(), genParams(models.StageRoundRobin, seededTeams(5)))
	require.NoError(t, err)

	// C(5,2) pairings; every round sits one team out.
	require.Len(t, nodes, 10)

	appearances := map[int]int{}
	for _, n := range nodes {
		appearances[*n.Team1ID]++
		appearances[*n.Team2ID]++
	}
	for id, count := range appearances {
		assert.Equal(t, 4, count, "team %d", id)
	}
}

func TestRoundRobin_TooManyTeams(t *testing.T) {
	g := &RoundRobinGenerator{}
	_, err := g.Generate(context.Background(), genParams(models.StageRoundRobin, seededTeams(33)))
	assert.ErrorIs(t, err, ErrTooManyTeams)
}
