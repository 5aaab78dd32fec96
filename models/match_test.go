package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to MatchStatus
		allowed  bool
	}{
		{MatchStatusUpcoming, MatchStatusLive, true},
		{MatchStatusUpcoming, MatchStatusCancelled, true},
		{MatchStatusUpcoming, MatchStatusCompleted, false},
		{MatchStatusLive, MatchStatusCompleted, true},
		{MatchStatusLive, MatchStatusCancelled, true},
		{MatchStatusLive, MatchStatusUpcoming, false},
		{MatchStatusCompleted, MatchStatusLive, false},
		{MatchStatusCompleted, MatchStatusCancelled, false},
		{MatchStatusCancelled, MatchStatusLive, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestBestOfWinsNeeded(t *testing.T) {
	assert.Equal(t, 1, BestOf1.WinsNeeded())
	assert.Equal(t, 2, BestOf3.WinsNeeded())
	assert.Equal(t, 3, BestOf5.WinsNeeded())
	assert.Equal(t, 4, BestOf7.WinsNeeded())

	assert.True(t, BestOf3.Valid())
	assert.False(t, BestOf(4).Valid())
	assert.False(t, BestOf(0).Valid())
}

func TestMapScoreWinner(t *testing.T) {
	cases := []struct {
		score  MapScore
		format BestOf
		want   int
	}{
		{MapScore{2, 0}, BestOf3, 1},
		{MapScore{2, 1}, BestOf3, 1},
		{MapScore{1, 2}, BestOf3, 2},
		{MapScore{1, 1}, BestOf3, 0},  // unfinished
		{MapScore{3, 0}, BestOf3, 0},  // overshoot
		{MapScore{2, 2}, BestOf3, 0},  // impossible
		{MapScore{-1, 2}, BestOf3, 0}, // negative
		{MapScore{1, 0}, BestOf1, 1},
		{MapScore{4, 3}, BestOf7, 1},
		{MapScore{3, 4}, BestOf7, 2},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.score.Winner(tc.format),
			"%s in best-of-%d", tc.score, tc.format)
	}
}

func TestMatchLoserID(t *testing.T) {
	m := &Match{Team1ID: 10, Team2ID: 20}
	assert.Nil(t, m.LoserID())

	winner := 10
	m.WinnerID = &winner
	assert.Equal(t, 20, *m.LoserID())

	winner = 20
	assert.Equal(t, 10, *m.LoserID())
}

func TestParsePlayerRole(t *testing.T) {
	role, ok := ParsePlayerRole("duelist")
	assert.True(t, ok)
	assert.Equal(t, RoleDuelist, role)

	// Legacy names from older rosters.
	role, ok = ParsePlayerRole("dps")
	assert.True(t, ok)
	assert.Equal(t, RoleDuelist, role)

	role, ok = ParsePlayerRole("tank")
	assert.True(t, ok)
	assert.Equal(t, RoleVanguard, role)

	_, ok = ParsePlayerRole("jungler")
	assert.False(t, ok)
}
