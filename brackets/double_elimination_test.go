package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrvlstats/tournament-core/models"
)

func TestDoubleElimination_EightTeams(t *testing.T) {
	g := &DoubleEliminationGenerator{}
	nodes, err := g.Generate(context.Background(), genParams(models.StageDoubleElimination, seededTeams(8)))
	require.NoError(t, err)

	// 7 upper + 6 lower + 1 grand final. The reset match is not pre-built.
	require.Len(t, nodes, 14)
	byUID := nodesByUID(t, nodes)
	require.NotContains(t, byUID, "GF2")

	sections := map[models.BracketSection]int{}
	for _, n := range nodes {
		sections[n.Section]++
	}
	assert.Equal(t, 7, sections[models.SectionUpper])
	assert.Equal(t, 6, sections[models.SectionLower])
	assert.Equal(t, 1, sections[models.SectionGrandFinal])

	// Both finals feed the grand final: upper champion into slot 1, lower
	// champion into slot 2.
	ubFinal := byUID["UB_R3M1"]
	require.NotNil(t, ubFinal.WinnerToUID)
	assert.Equal(t, "GF1", *ubFinal.WinnerToUID)
	assert.Equal(t, 1, *ubFinal.WinnerToSlot)

	lbFinal := byUID["LB_R4M1"]
	require.NotNil(t, lbFinal.WinnerToUID)
	assert.Equal(t, "GF1", *lbFinal.WinnerToUID)
	assert.Equal(t, 2, *lbFinal.WinnerToSlot)

	// Every upper node drops its loser into the lower bracket; lower nodes
	// never have loser edges.
	for _, n := range nodes {
		switch n.Section {
		case models.SectionUpper:
			require.NotNil(t, n.LoserToUID, "upper node %s must drop its loser", n.UID)
			assert.Equal(t, models.SectionLower, byUID[*n.LoserToUID].Section)
		case models.SectionLower:
			assert.Nil(t, n.LoserToUID, "lower node %s is elimination", n.UID)
		}
	}

	gf := byUID["GF1"]
	assert.Nil(t, gf.WinnerToUID)
}

func TestDoubleElimination_FiveTeamsGhostPropagation(t *testing.T) {
	g := &DoubleEliminationGenerator{}
	nodes, err := g.Generate(context.Background(), genParams(models.StageDoubleElimination, seededTeams(5)))
	require.NoError(t, err)
	byUID := nodesByUID(t, nodes)

	// Seeds 1-3 open with byes, only 4v5 plays.
	assert.True(t, byUID["UB_R1M1"].IsBye)
	assert.True(t, byUID["UB_R1M2"].IsBye)
	assert.True(t, byUID["UB_R1M3"].IsBye)
	assert.Equal(t, models.SlotReady, byUID["UB_R1M4"].State)

	// Byes produce no losers: the lower node fed by two byes is dead, and
	// the ones fed by a single bye become walkovers.
	dead := byUID["LB_R1M1"]
	assert.True(t, dead.IsBye)
	assert.Equal(t, models.SlotDone, dead.State)

	walkover := byUID["LB_R1M2"]
	assert.True(t, walkover.IsBye)
	assert.Equal(t, models.SlotPending, walkover.State)

	// The dead node's emptiness propagates one round further.
	assert.True(t, byUID["LB_R2M1"].IsBye)
}

func TestDoubleElimination_TooFewTeams(t *testing.T) {
	g := &DoubleEliminationGenerator{}
	_, err := g.Generate(context.Background(), genParams(models.StageDoubleElimination, seededTeams(2)))
	assert.ErrorIs(t, err, ErrNotEnoughTeams)
}
