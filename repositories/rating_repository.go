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
	ErrRatingHistoryNotFound = errors.New("rating history entry not found")
	// ErrDuplicateRatingEntry guards the one-row-per-(entity, match)
	// invariant behind the idempotent completion path.
	ErrDuplicateRatingEntry = errors.New("rating history entry already exists for this match")
)

type RatingHistoryRepository interface {
	Insert(ctx context.Context, exec SQLExecutor, entry *models.RatingHistory) error
	ExistsForMatch(ctx context.Context, exec SQLExecutor, entityType models.RatingEntity, entityID, matchID int) (bool, error)
	// ListForEntity returns ledger rows in append order, optionally bounded
	// by an as-of timestamp for point-in-time replay.
	ListForEntity(ctx context.Context, exec SQLExecutor, entityType models.RatingEntity, entityID int, until *time.Time) ([]*models.RatingHistory, error)
	TruncateAll(ctx context.Context, exec SQLExecutor) error
}

type postgresRatingHistoryRepository struct {
	db *sql.DB
}

func NewPostgresRatingHistoryRepository(db *sql.DB) RatingHistoryRepository {
	return &postgresRatingHistoryRepository{db: db}
}

func (r *postgresRatingHistoryRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

var ratingConstraints = map[string]error{
	"elo_history_entity_match_key": ErrDuplicateRatingEntry,
}

func (r *postgresRatingHistoryRepository) Insert(ctx context.Context, exec SQLExecutor, entry *models.RatingHistory) error {
	query := `
		INSERT INTO elo_history
			(entity_type, entity_id, match_id, old_rating, new_rating, delta, k_factor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.Delta = entry.NewRating - entry.OldRating
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		entry.EntityType, entry.EntityID, entry.MatchID,
		entry.OldRating, entry.NewRating, entry.Delta, entry.KFactor, entry.CreatedAt,
	).Scan(&entry.ID)
	return mapConstraintError(err, ratingConstraints)
}

func (r *postgresRatingHistoryRepository) ExistsForMatch(ctx context.Context, exec SQLExecutor, entityType models.RatingEntity, entityID, matchID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM elo_history WHERE entity_type = $1 AND entity_id = $2 AND match_id = $3)`
	var exists bool
	err := r.getExecutor(exec).QueryRowContext(ctx, query, entityType, entityID, matchID).Scan(&exists)
	return exists, err
}

func (r *postgresRatingHistoryRepository) ListForEntity(ctx context.Context, exec SQLExecutor, entityType models.RatingEntity, entityID int, until *time.Time) ([]*models.RatingHistory, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT id, entity_type, entity_id, match_id, old_rating, new_rating, delta, k_factor, created_at
		FROM elo_history
		WHERE entity_type = $1 AND entity_id = $2`)
	args := []interface{}{entityType, entityID}
	if until != nil {
		queryBuilder.WriteString(" AND created_at <= $" + strconv.Itoa(len(args)+1))
		args = append(args, *until)
	}
	queryBuilder.WriteString(" ORDER BY created_at ASC, id ASC")

	rows, err := r.getExecutor(exec).QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.RatingHistory, 0)
	for rows.Next() {
		var e models.RatingHistory
		if scanErr := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.MatchID,
			&e.OldRating, &e.NewRating, &e.Delta, &e.KFactor, &e.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *postgresRatingHistoryRepository) TruncateAll(ctx context.Context, exec SQLExecutor) error {
	_, err := r.getExecutor(exec).ExecContext(ctx, `TRUNCATE elo_history RESTART IDENTITY`)
	return err
}
