package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jonboulle/clockwork"

	"github.com/mrvlstats/tournament-core/brackets"
	"github.com/mrvlstats/tournament-core/events"
	"github.com/mrvlstats/tournament-core/models"
	"github.com/mrvlstats/tournament-core/repositories"
)

type MatchService interface {
	CreateMatch(ctx context.Context, match *models.Match) error
	GetMatch(ctx context.Context, id int) (*models.Match, error)
	ListByStage(ctx context.Context, stageID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	SetStatus(ctx context.Context, id int, status models.MatchStatus) error
	// CompleteMatch finalizes a live series: it validates the score against
	// the format, writes the result, applies rating updates and routes the
	// outcome through the stage (bracket advancement or swiss standings),
	// all in one transaction. Submitting the identical result again is a
	// no-op; submitting a different result is a conflict.
	CompleteMatch(ctx context.Context, matchID int, score models.MapScore) (*models.MatchSummary, error)
	// CorrectResult amends the map score of a completed series. Only
	// corrections that keep the winner and the rating delta unchanged are
	// applied; anything else would require unwinding downstream effects and
	// is refused in favor of a full recalculation.
	CorrectResult(ctx context.Context, matchID int, score models.MapScore) (*models.MatchSummary, error)
}

type matchService struct {
	db          *sql.DB
	matchRepo   repositories.MatchRepository
	bracketRepo repositories.BracketRepository
	ratings     RatingService
	bracketSvc  BracketService
	swissSvc    SwissService
	publisher   events.Publisher
	hub         *brackets.Hub
	clock       clockwork.Clock
	logger      *slog.Logger
}

func NewMatchService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	bracketRepo repositories.BracketRepository,
	ratings RatingService,
	bracketSvc BracketService,
	swissSvc SwissService,
	publisher events.Publisher,
	hub *brackets.Hub,
	clock clockwork.Clock,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		db:          db,
		matchRepo:   matchRepo,
		bracketRepo: bracketRepo,
		ratings:     ratings,
		bracketSvc:  bracketSvc,
		swissSvc:    swissSvc,
		publisher:   publisher,
		hub:         hub,
		clock:       clock,
		logger:      logger,
	}
}

func (s *matchService) CreateMatch(ctx context.Context, match *models.Match) error {
	if match.Team1ID == match.Team2ID {
		return ErrSelfMatch
	}
	if !match.Format.Valid() {
		return fmt.Errorf("%w: best-of must be 1, 3, 5 or 7", ErrInvalidInput)
	}
	match.Status = models.MatchStatusUpcoming
	if match.ScheduledAt.IsZero() {
		match.ScheduledAt = s.clock.Now().UTC()
	}
	if err := s.matchRepo.Create(ctx, nil, match); err != nil {
		if errors.Is(err, repositories.ErrMatchTeamInvalid) {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return err
	}
	return nil
}

func (s *matchService) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, fmt.Errorf("%w: match %d", ErrNotFound, id)
		}
		return nil, err
	}
	return match, nil
}

func (s *matchService) ListByStage(ctx context.Context, stageID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	return s.matchRepo.ListByStage(ctx, nil, stageID, round, status)
}

func (s *matchService) SetStatus(ctx context.Context, id int, status models.MatchStatus) error {
	match, err := s.GetMatch(ctx, id)
	if err != nil {
		return err
	}
	if status == models.MatchStatusCompleted {
		return fmt.Errorf("%w: results go through match completion", ErrInvalidStatusChange)
	}
	if !match.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidStatusChange, match.Status, status)
	}
	if err := s.matchRepo.SetStatus(ctx, nil, id, status); err != nil {
		return err
	}
	s.broadcast(match.StageID, "match_status", map[string]interface{}{
		"match_id": id,
		"status":   status,
	})
	return nil
}

func (s *matchService) CompleteMatch(ctx context.Context, matchID int, score models.MapScore) (*models.MatchSummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin completion transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	match, err := s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, fmt.Errorf("%w: match %d", ErrNotFound, matchID)
		}
		return nil, err
	}

	if match.Status == models.MatchStatusCompleted {
		stored := models.MapScore{Team1: match.Team1Score, Team2: match.Team2Score}
		if stored != score {
			return nil, fmt.Errorf("%w: match %d already finalized %s", ErrMatchCompleted, matchID, stored)
		}
		return &models.MatchSummary{
			MatchID:          matchID,
			WinnerID:         *match.WinnerID,
			LoserID:          *match.LoserID(),
			Score:            stored,
			StageID:          match.StageID,
			CompletedAt:      *match.CompletedAt,
			AlreadyCompleted: true,
		}, nil
	}
	if match.Status != models.MatchStatusLive {
		return nil, fmt.Errorf("%w: match %d is %s", ErrMatchNotLive, matchID, match.Status)
	}

	side := score.Winner(match.Format)
	if side == 0 {
		return nil, fmt.Errorf("%w: %s in a best-of-%d", ErrInvalidScore, score, match.Format)
	}
	winnerID := match.Team1ID
	if side == 2 {
		winnerID = match.Team2ID
	}

	completedAt := s.clock.Now().UTC()
	if err := s.matchRepo.CompleteResult(ctx, tx, matchID, score, winnerID, completedAt); err != nil {
		return nil, fmt.Errorf("write result: %w", err)
	}
	match.Status = models.MatchStatusCompleted
	match.Team1Score, match.Team2Score = score.Team1, score.Team2
	match.WinnerID = &winnerID
	match.CompletedAt = &completedAt

	summary := models.MatchSummary{
		MatchID:     matchID,
		WinnerID:    winnerID,
		LoserID:     *match.LoserID(),
		Score:       score,
		StageID:     match.StageID,
		CompletedAt: completedAt,
	}

	var stage *models.BracketStage
	tier := models.EventTier("")
	if match.StageID != nil {
		stage, err = s.bracketRepo.GetStage(ctx, tx, *match.StageID)
		if err != nil {
			return nil, fmt.Errorf("load stage %d: %w", *match.StageID, err)
		}
		tier = stage.Config.Tier
	}

	if err := s.ratings.ApplyMatchResult(ctx, tx, match, tier); err != nil {
		return nil, err
	}

	if stage != nil {
		if stage.Type == models.StageSwiss {
			err = s.swissSvc.OnMatchCompleted(ctx, tx, stage, summary)
		} else {
			err = s.bracketSvc.AdvanceFromMatch(ctx, tx, stage, summary)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit completion: %w", err)
	}
	committed = true

	s.logger.Info("match completed",
		slog.Int("match_id", matchID),
		slog.Int("winner_id", winnerID),
		slog.String("score", score.String()))

	if err := s.publisher.PublishMatchCompleted(ctx, events.NewMatchCompleted(summary)); err != nil {
		// The result is committed; delivery failures must not surface as
		// completion failures.
		s.logger.Error("failed to publish match completed event",
			slog.Int("match_id", matchID),
			slog.Any("error", err))
	}
	s.broadcast(match.StageID, "match_completed", summary)

	return &summary, nil
}

func (s *matchService) CorrectResult(ctx context.Context, matchID int, score models.MapScore) (*models.MatchSummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin correction transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	match, err := s.matchRepo.GetByIDForUpdate(ctx, tx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, fmt.Errorf("%w: match %d", ErrNotFound, matchID)
		}
		return nil, err
	}
	if match.Status != models.MatchStatusCompleted {
		return nil, fmt.Errorf("%w: match %d is %s", ErrInvalidStatusChange, matchID, match.Status)
	}

	side := score.Winner(match.Format)
	if side == 0 {
		return nil, fmt.Errorf("%w: %s in a best-of-%d", ErrInvalidScore, score, match.Format)
	}
	newWinnerID := match.Team1ID
	if side == 2 {
		newWinnerID = match.Team2ID
	}
	stored := models.MapScore{Team1: match.Team1Score, Team2: match.Team2Score}
	if newWinnerID != *match.WinnerID || marginModifier(score) != marginModifier(stored) {
		return nil, fmt.Errorf("%w: match %d has rating and advancement effects, recalculate instead",
			ErrCorrectionForbidden, matchID)
	}

	if err := s.matchRepo.CompleteResult(ctx, tx, matchID, score, newWinnerID, *match.CompletedAt); err != nil {
		return nil, fmt.Errorf("amend result: %w", err)
	}

	summary := models.MatchSummary{
		MatchID:     matchID,
		WinnerID:    newWinnerID,
		LoserID:     *match.LoserID(),
		Score:       score,
		StageID:     match.StageID,
		CompletedAt: *match.CompletedAt,
	}

	// Map totals feed swiss tiebreaks, so standings are rebuilt.
	if match.StageID != nil {
		stage, err := s.bracketRepo.GetStage(ctx, tx, *match.StageID)
		if err != nil {
			return nil, fmt.Errorf("load stage %d: %w", *match.StageID, err)
		}
		if stage.Type == models.StageSwiss {
			if err := s.swissSvc.OnMatchCompleted(ctx, tx, stage, summary); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit correction: %w", err)
	}
	committed = true

	s.logger.Info("match result corrected",
		slog.Int("match_id", matchID),
		slog.String("score", score.String()))
	s.broadcast(match.StageID, "match_corrected", summary)
	return &summary, nil
}

func (s *matchService) broadcast(stageID *int, event string, payload interface{}) {
	if s.hub == nil || stageID == nil {
		return
	}
	s.hub.BroadcastToRoom(strconv.Itoa(*stageID), map[string]interface{}{
		"event":   event,
		"payload": payload,
	})
}
