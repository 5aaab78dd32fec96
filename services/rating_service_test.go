package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrvlstats/tournament-core/models"
)

func TestExpectedScore(t *testing.T) {
	assert.InDelta(t, 0.5, ExpectedScore(1000, 1000), 1e-9)
	// 400 points of rating difference is ~10:1 odds.
	assert.InDelta(t, 10.0/11.0, ExpectedScore(1400, 1000), 1e-9)
	assert.InDelta(t, 1.0/11.0, ExpectedScore(1000, 1400), 1e-9)
	// Symmetry.
	assert.InDelta(t, 1.0, ExpectedScore(1234, 1456)+ExpectedScore(1456, 1234), 1e-9)
}

// The canonical equal-rating case: two 1000-rated teams at K=32, minimum
// winning margin. The winner lands on 1016, the loser on 984.
func TestEloDeltaEqualRatings(t *testing.T) {
	k := 32
	expected := ExpectedScore(1000, 1000)
	score := models.MapScore{Team1: 2, Team2: 1}
	delta := int(math.Round(float64(k) * marginModifier(score) * (1.0 - expected)))

	assert.Equal(t, 16, delta)
	assert.Equal(t, 1016, 1000+delta)
	assert.Equal(t, 984, 1000-delta)
}

func TestMarginModifier(t *testing.T) {
	assert.InDelta(t, 1.0, marginModifier(models.MapScore{Team1: 1, Team2: 0}), 1e-9)
	assert.InDelta(t, 1.0, marginModifier(models.MapScore{Team1: 2, Team2: 1}), 1e-9)
	assert.InDelta(t, 1.1, marginModifier(models.MapScore{Team1: 2, Team2: 0}), 1e-9)
	assert.InDelta(t, 1.2, marginModifier(models.MapScore{Team1: 0, Team2: 3}), 1e-9)
	assert.InDelta(t, 1.3, marginModifier(models.MapScore{Team1: 4, Team2: 0}), 1e-9)
}

func TestKFactorTiers(t *testing.T) {
	a := &models.Team{Rating: 1000}
	b := &models.Team{Rating: 1000}

	assert.Equal(t, 40, kFactor(models.TierS, a, b))
	assert.Equal(t, 32, kFactor(models.TierA, a, b))
	assert.Equal(t, 24, kFactor(models.TierB, a, b))
	assert.Equal(t, 16, kFactor(models.TierC, a, b))
	assert.Equal(t, 32, kFactor("", a, b))
}

func TestKFactorDampsEstablishedTeams(t *testing.T) {
	rookie := &models.Team{Rating: 1000}
	elite := &models.Team{Rating: 2450, Wins: 10, Losses: 5}
	veteran := &models.Team{Rating: 2500, Wins: 40, Losses: 20}

	// Untiered matches take the calmer side's K.
	assert.Equal(t, 24, kFactor("", rookie, elite))
	assert.Equal(t, 16, kFactor("", rookie, veteran))
	assert.Equal(t, 16, kFactor("", elite, veteran))

	// A tier overrides the damping.
	assert.Equal(t, 40, kFactor(models.TierS, elite, veteran))
}

func TestRankTierLadder(t *testing.T) {
	cases := map[int]string{
		850:  "bronze",
		1099: "bronze",
		1100: "silver",
		1250: "gold",
		1350: "platinum",
		1450: "diamond",
		1550: "grandmaster",
		1650: "celestial",
		1750: "eternity",
		1800: "one_above_all",
		2400: "one_above_all",
	}
	for rating, tier := range cases {
		assert.Equal(t, tier, RankTier(rating), "rating %d", rating)
	}
}
