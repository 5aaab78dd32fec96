package models

import "time"

type Region string

const (
	RegionAmericas Region = "americas"
	RegionEMEA     Region = "emea"
	RegionAPAC     Region = "apac"
	RegionChina    Region = "china"
)

type Team struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Tag        *string   `json:"tag,omitempty"`
	Region     Region    `json:"region"`
	LogoKey    *string   `json:"-"`
	LogoURL    *string   `json:"logo_url,omitempty"`
	Rating     int       `json:"rating"`
	PeakRating int       `json:"peak_rating"`
	Wins       int       `json:"wins"`
	Losses     int       `json:"losses"`
	CreatedAt  time.Time `json:"created_at"`

	Players []Player `json:"players,omitempty"`
}

// MatchesPlayed must always equal Wins+Losses; both counters are written
// only by the match completion transaction.
func (t *Team) MatchesPlayed() int {
	return t.Wins + t.Losses
}
