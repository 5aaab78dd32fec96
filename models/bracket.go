package models

import "time"

type StageType string

const (
	StageSingleElimination StageType = "single_elimination"
	StageDoubleElimination StageType = "double_elimination"
	StageSwiss             StageType = "swiss"
	StageRoundRobin        StageType = "round_robin"
	StageGroupStage        StageType = "group_stage"
)

func (t StageType) Valid() bool {
	switch t {
	case StageSingleElimination, StageDoubleElimination, StageSwiss, StageRoundRobin, StageGroupStage:
		return true
	}
	return false
}

type EventTier string

const (
	TierS EventTier = "S"
	TierA EventTier = "A"
	TierB EventTier = "B"
	TierC EventTier = "C"
)

// StageConfig is fixed at stage creation and never mutated afterwards.
type StageConfig struct {
	Format BestOf    `json:"best_of"`
	Tier   EventTier `json:"tier"`
	// Swiss only.
	TotalRounds       int `json:"total_rounds,omitempty"`
	WinsToQualify     int `json:"wins_to_qualify,omitempty"`
	LossesToEliminate int `json:"losses_to_eliminate,omitempty"`
}

type BracketStage struct {
	ID        int         `json:"id"`
	EventID   int         `json:"event_id"`
	Name      string      `json:"name"`
	Type      StageType   `json:"type"`
	Config    StageConfig `json:"config"`
	CreatedAt time.Time   `json:"created_at"`
}

// BracketSection distinguishes the three arms of a double elimination DAG.
// Single elimination uses only SectionUpper.
type BracketSection string

const (
	SectionUpper      BracketSection = "upper"
	SectionLower      BracketSection = "lower"
	SectionGrandFinal BracketSection = "grand_final"
)

type SlotState string

const (
	// SlotPending: at least one slot still waits on a feeder match.
	SlotPending SlotState = "pending"
	// SlotReady: both participants known, match is schedulable.
	SlotReady SlotState = "ready"
	SlotDone  SlotState = "done"
)

// BracketMatch is one node of the advancement DAG. Advancement targets are
// typed edges: the winner (and for upper-bracket double elimination, the
// loser) of this node feeds the named slot of a later-round node.
type BracketMatch struct {
	ID           int            `json:"id"`
	StageID      int            `json:"stage_id"`
	UID          string         `json:"uid"`
	Section      BracketSection `json:"section"`
	Round        int            `json:"round"`
	MatchNumber  int            `json:"match_number"`
	Team1ID      *int           `json:"team1_id,omitempty"`
	Team2ID      *int           `json:"team2_id,omitempty"`
	MatchID      *int           `json:"match_id,omitempty"`
	State        SlotState      `json:"state"`
	WinnerToUID  *string        `json:"winner_to_uid,omitempty"`
	WinnerToSlot *int           `json:"winner_to_slot,omitempty"`
	LoserToUID   *string        `json:"loser_to_uid,omitempty"`
	LoserToSlot  *int           `json:"loser_to_slot,omitempty"`
	IsBye        bool           `json:"is_bye,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// BracketView is the full DAG with current slot occupancy, as served to
// clients and broadcast over the stage's websocket room.
type BracketView struct {
	Stage   BracketStage    `json:"stage"`
	Matches []*BracketMatch `json:"matches"`
	Teams   []*Team         `json:"teams"`
}
