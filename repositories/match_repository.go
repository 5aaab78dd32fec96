package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/mrvlstats/tournament-core/models"
)

var (
	ErrMatchNotFound    = errors.New("match not found")
	ErrMatchTeamInvalid = errors.New("match references an unknown team")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	// GetByIDForUpdate locks the match row for the lifetime of the caller's
	// transaction, serializing concurrent completions of the same match.
	GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int) (*models.Match, error)
	SetStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error
	CompleteResult(ctx context.Context, exec SQLExecutor, id int, score models.MapScore, winnerID int, completedAt time.Time) error
	ListByStage(ctx context.Context, exec SQLExecutor, stageID int, round *int, status *models.MatchStatus) ([]*models.Match, error)
	ListCompletedOrdered(ctx context.Context, exec SQLExecutor) ([]*models.Match, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

var matchConstraints = map[string]error{
	"matches_team1_id_fkey":  ErrMatchTeamInvalid,
	"matches_team2_id_fkey":  ErrMatchTeamInvalid,
	"matches_winner_id_fkey": ErrMatchTeamInvalid,
}

const matchColumns = `id, event_id, stage_id, team1_id, team2_id, best_of, status,
	team1_score, team2_score, winner_id, scheduled_at, completed_at, created_at`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(event_id, stage_id, team1_id, team2_id, best_of, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		match.EventID, match.StageID, match.Team1ID, match.Team2ID,
		match.Format, match.Status, match.ScheduledAt,
	).Scan(&match.ID, &match.CreatedAt)
	return mapConstraintError(err, matchConstraints)
}

func (r *postgresMatchRepository) scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	err := row.Scan(&m.ID, &m.EventID, &m.StageID, &m.Team1ID, &m.Team2ID,
		&m.Format, &m.Status, &m.Team1Score, &m.Team2Score, &m.WinnerID,
		&m.ScheduledAt, &m.CompletedAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return r.scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1 FOR UPDATE`
	return r.scanMatch(tx.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) SetStatus(ctx context.Context, exec SQLExecutor, id int, status models.MatchStatus) error {
	query := `UPDATE matches SET status = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CompleteResult(ctx context.Context, exec SQLExecutor, id int, score models.MapScore, winnerID int, completedAt time.Time) error {
	query := `
		UPDATE matches
		SET status = $1, team1_score = $2, team2_score = $3, winner_id = $4, completed_at = $5
		WHERE id = $6`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		models.MatchStatusCompleted, score.Team1, score.Team2, winnerID, completedAt, id)
	if err != nil {
		return mapConstraintError(err, matchConstraints)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) ListByStage(ctx context.Context, exec SQLExecutor, stageID int, round *int, status *models.MatchStatus) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT ` + matchColumns + `
		FROM matches m
		WHERE m.stage_id = $1`)

	args := []interface{}{stageID}
	placeholder := 2

	if round != nil {
		queryBuilder.WriteString(` AND EXISTS (
			SELECT 1 FROM bracket_matches bm
			WHERE bm.match_id = m.id AND bm.round = $` + strconv.Itoa(placeholder) + `)`)
		args = append(args, *round)
		placeholder++
	}
	if status != nil {
		queryBuilder.WriteString(" AND m.status = $" + strconv.Itoa(placeholder))
		args = append(args, *status)
		placeholder++
	}
	queryBuilder.WriteString(" ORDER BY m.scheduled_at ASC, m.id ASC")

	rows, err := r.getExecutor(exec).QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := r.scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// ListCompletedOrdered returns every completed match in completion order,
// the input for a full ledger rebuild.
func (r *postgresMatchRepository) ListCompletedOrdered(ctx context.Context, exec SQLExecutor) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE status = $1 AND winner_id IS NOT NULL
		ORDER BY completed_at ASC, id ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, models.MatchStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := r.scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
