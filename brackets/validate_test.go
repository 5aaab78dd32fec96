package brackets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrvlstats/tournament-core/models"
)

func edge(uid string, slot int) (*string, *int) {
	return &uid, &slot
}

func TestValidateAdvancement_DanglingEdge(t *testing.T) {
	a := &models.BracketMatch{UID: "A", Section: models.SectionUpper, Round: 1}
	a.WinnerToUID, a.WinnerToSlot = edge("MISSING", 1)

	err := ValidateAdvancement([]*models.BracketMatch{a})
	assert.ErrorIs(t, err, ErrDanglingAdvancement)
}

func TestValidateAdvancement_BackwardEdge(t *testing.T) {
	a := &models.BracketMatch{UID: "A", Section: models.SectionUpper, Round: 2}
	b := &models.BracketMatch{UID: "B", Section: models.SectionUpper, Round: 1}
	a.WinnerToUID, a.WinnerToSlot = edge("B", 1)

	err := ValidateAdvancement([]*models.BracketMatch{a, b})
	assert.Error(t, err)
}

func TestValidateAdvancement_CycleAcrossSections(t *testing.T) {
	// Round ordering only applies within a section, so a cycle through the
	// lower bracket must be caught by the DFS.
	a := &models.BracketMatch{UID: "A", Section: models.SectionUpper, Round: 1}
	b := &models.BracketMatch{UID: "B", Section: models.SectionLower, Round: 5}
	c := &models.BracketMatch{UID: "C", Section: models.SectionUpper, Round: 2}
	a.WinnerToUID, a.WinnerToSlot = edge("C", 1)
	c.LoserToUID, c.LoserToSlot = edge("B", 1)
	b.WinnerToUID, b.WinnerToSlot = edge("A", 2)

	err := ValidateAdvancement([]*models.BracketMatch{a, b, c})
	assert.ErrorIs(t, err, ErrCyclicAdvancement)
}

func TestValidateAdvancement_AcceptsGeneratedBrackets(t *testing.T) {
	g := &DoubleEliminationGenerator{}
	nodes, err := g.Generate(context.Background(), genParams(models.StageDoubleElimination, seededTeams(16)))
	assert.NoError(t, err)
	assert.NoError(t, ValidateAdvancement(nodes))
}
