package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mrvlstats/tournament-core/models"
)

const TypeMatchCompleted = "match.completed"

// MatchCompleted is emitted once per finalized match, after the completion
// transaction commits. The event ID doubles as the JetStream message ID so
// consumers can deduplicate retries.
type MatchCompleted struct {
	EventID     uuid.UUID       `json:"event_id"`
	MatchID     int             `json:"match_id"`
	WinnerID    int             `json:"winner_id"`
	LoserID     int             `json:"loser_id"`
	StageID     *int            `json:"stage_id,omitempty"`
	Score       models.MapScore `json:"score"`
	CompletedAt time.Time       `json:"completed_at"`
}

func NewMatchCompleted(summary models.MatchSummary) MatchCompleted {
	return MatchCompleted{
		EventID:     uuid.New(),
		MatchID:     summary.MatchID,
		WinnerID:    summary.WinnerID,
		LoserID:     summary.LoserID,
		StageID:     summary.StageID,
		Score:       summary.Score,
		CompletedAt: summary.CompletedAt,
	}
}

type Publisher interface {
	PublishMatchCompleted(ctx context.Context, event MatchCompleted) error
	Close() error
}

// NopPublisher is used when no event stream is configured.
type NopPublisher struct{}

func (NopPublisher) PublishMatchCompleted(ctx context.Context, event MatchCompleted) error { return nil }
func (NopPublisher) Close() error                                                          { return nil }
