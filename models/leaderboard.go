package models

import "time"

type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	TeamID     int    `json:"team_id"`
	Name       string `json:"name"`
	Region     Region `json:"region"`
	Rating     int    `json:"rating"`
	PeakRating int    `json:"peak_rating"`
	RankTier   string `json:"rank_tier"`
	Wins       int    `json:"wins"`
	Losses     int    `json:"losses"`
}

// LeaderboardSnapshot is the persisted output of the nightly projection job.
// The archive copy (JSON in object storage) carries the same payload.
type LeaderboardSnapshot struct {
	ID         string             `json:"id"`
	Scope      string             `json:"scope"`
	Region     *Region            `json:"region,omitempty"`
	Entries    []LeaderboardEntry `json:"entries"`
	CapturedAt time.Time          `json:"captured_at"`
}
