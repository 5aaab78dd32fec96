package models

import "time"

// SwissStanding is the per (stage, team) record. OpponentIDs doubles as the
// rematch guard for pairing and as the input to the Buchholz recompute.
type SwissStanding struct {
	ID          int       `json:"id"`
	StageID     int       `json:"stage_id"`
	TeamID      int       `json:"team_id"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	Draws       int       `json:"draws"`
	Buchholz    float64   `json:"buchholz"`
	MapWins     int       `json:"map_wins"`
	MapLosses   int       `json:"map_losses"`
	OpponentIDs []int     `json:"opponent_ids"`
	HadBye      bool      `json:"had_bye"`
	Qualified   bool      `json:"qualified"`
	Eliminated  bool      `json:"eliminated"`
	Seed        int       `json:"seed"`
	Rank        *int      `json:"rank,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`

	Team *Team `json:"team,omitempty"`
}

func (s *SwissStanding) MatchesPlayed() int {
	return s.Wins + s.Losses + s.Draws
}

// MatchWinPct is the opponent-strength input used for Buchholz.
func (s *SwissStanding) MatchWinPct() float64 {
	played := s.MatchesPlayed()
	if played == 0 {
		return 0
	}
	return float64(s.Wins) / float64(played)
}

func (s *SwissStanding) HasPlayed(teamID int) bool {
	for _, id := range s.OpponentIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

// SwissPairing is one match-up produced for the next round. A bye pairing
// has Team2ID == nil.
type SwissPairing struct {
	Round   int  `json:"round"`
	Team1ID int  `json:"team1_id"`
	Team2ID *int `json:"team2_id,omitempty"`
}
