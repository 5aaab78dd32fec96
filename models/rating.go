package models

import "time"

type RatingEntity string

const (
	EntityTeam   RatingEntity = "team"
	EntityPlayer RatingEntity = "player"
)

// RatingHistory is an append-only ledger row. Rows are only ever inserted,
// in the same transaction that rewrites the cached current rating; replaying
// the ledger from the initial rating must reproduce the cache exactly.
type RatingHistory struct {
	ID         int          `json:"id"`
	EntityType RatingEntity `json:"entity_type"`
	EntityID   int          `json:"entity_id"`
	MatchID    int          `json:"match_id"`
	OldRating  int          `json:"old_rating"`
	NewRating  int          `json:"new_rating"`
	Delta      int          `json:"delta"`
	KFactor    int          `json:"k_factor"`
	CreatedAt  time.Time    `json:"created_at"`
}

type RatingSnapshot struct {
	EntityType RatingEntity `json:"entity_type"`
	EntityID   int          `json:"entity_id"`
	Rating     int          `json:"rating"`
	PeakRating int          `json:"peak_rating"`
	RankTier   string       `json:"rank_tier"`
	AsOf       time.Time    `json:"as_of"`
	// Derived reports whether the rating was replayed from the ledger for a
	// point-in-time query rather than read from the cached column.
	Derived bool `json:"derived,omitempty"`
}

// MatchPrediction is the pre-match win probability pair derived from the
// two teams' current ratings.
type MatchPrediction struct {
	Team1ID     int     `json:"team1_id"`
	Team2ID     int     `json:"team2_id"`
	Team1Rating int     `json:"team1_rating"`
	Team2Rating int     `json:"team2_rating"`
	Team1WinPct float64 `json:"team1_win_pct"`
	Team2WinPct float64 `json:"team2_win_pct"`
	FavoriteID  int     `json:"favorite_id"`
}
