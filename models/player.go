package models

import "time"

type PlayerRole string

const (
	RoleVanguard   PlayerRole = "vanguard"
	RoleDuelist    PlayerRole = "duelist"
	RoleStrategist PlayerRole = "strategist"
	RoleFlex       PlayerRole = "flex"
)

// ParsePlayerRole maps a stored role value to the closed role set.
// Legacy values from earlier imports ("tank", "dps", "support") are
// translated here instead of leaking into the domain.
func ParsePlayerRole(raw string) (PlayerRole, bool) {
	switch raw {
	case string(RoleVanguard), "tank":
		return RoleVanguard, true
	case string(RoleDuelist), "dps":
		return RoleDuelist, true
	case string(RoleStrategist), "support":
		return RoleStrategist, true
	case string(RoleFlex):
		return RoleFlex, true
	}
	return "", false
}

type Player struct {
	ID         int        `json:"id"`
	Nickname   string     `json:"nickname"`
	TeamID     *int       `json:"team_id,omitempty"`
	Role       PlayerRole `json:"role"`
	Rating     int        `json:"rating"`
	PeakRating int        `json:"peak_rating"`
	Wins       int        `json:"wins"`
	Losses     int        `json:"losses"`
	CreatedAt  time.Time  `json:"created_at"`
}
