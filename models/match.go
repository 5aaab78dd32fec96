package models

import (
	"fmt"
	"time"
)

type MatchStatus string

const (
	MatchStatusUpcoming  MatchStatus = "upcoming"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// CanTransitionTo enforces the monotonic match lifecycle:
// upcoming → live → completed, with cancellation allowed from the two
// earlier states only.
func (s MatchStatus) CanTransitionTo(next MatchStatus) bool {
	switch s {
	case MatchStatusUpcoming:
		return next == MatchStatusLive || next == MatchStatusCancelled
	case MatchStatusLive:
		return next == MatchStatusCompleted || next == MatchStatusCancelled
	default:
		return false
	}
}

type BestOf int

const (
	BestOf1 BestOf = 1
	BestOf3 BestOf = 3
	BestOf5 BestOf = 5
	BestOf7 BestOf = 7
)

func (b BestOf) Valid() bool {
	switch b {
	case BestOf1, BestOf3, BestOf5, BestOf7:
		return true
	}
	return false
}

// WinsNeeded is ceil(N/2) map wins.
func (b BestOf) WinsNeeded() int {
	return (int(b) + 1) / 2
}

// MapScore is the final per-team map win count of a series.
type MapScore struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

func (m MapScore) String() string {
	return fmt.Sprintf("%d-%d", m.Team1, m.Team2)
}

// Winner reports which side (1 or 2) resolved the series under the given
// format, or 0 if the score does not resolve a winner.
func (m MapScore) Winner(format BestOf) int {
	need := format.WinsNeeded()
	switch {
	case m.Team1 < 0 || m.Team2 < 0:
		return 0
	case m.Team1 == need && m.Team2 < need:
		return 1
	case m.Team2 == need && m.Team1 < need:
		return 2
	}
	return 0
}

type Match struct {
	ID          int         `json:"id"`
	EventID     *int        `json:"event_id,omitempty"`
	StageID     *int        `json:"stage_id,omitempty"`
	Team1ID     int         `json:"team1_id"`
	Team2ID     int         `json:"team2_id"`
	Format      BestOf      `json:"best_of"`
	Status      MatchStatus `json:"status"`
	Team1Score  int         `json:"team1_score"`
	Team2Score  int         `json:"team2_score"`
	WinnerID    *int        `json:"winner_id,omitempty"`
	ScheduledAt time.Time   `json:"scheduled_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`

	Team1 *Team `json:"team1,omitempty"`
	Team2 *Team `json:"team2,omitempty"`
}

func (m *Match) LoserID() *int {
	if m.WinnerID == nil {
		return nil
	}
	loser := m.Team1ID
	if *m.WinnerID == m.Team1ID {
		loser = m.Team2ID
	}
	return &loser
}

// MatchSummary is what CompleteMatch returns to callers.
type MatchSummary struct {
	MatchID     int       `json:"match_id"`
	WinnerID    int       `json:"winner_id"`
	LoserID     int       `json:"loser_id"`
	Score       MapScore  `json:"score"`
	StageID     *int      `json:"stage_id,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
	// AlreadyCompleted marks the idempotent no-op path: the match had been
	// finalized before this call and nothing was written.
	AlreadyCompleted bool `json:"already_completed,omitempty"`
}
