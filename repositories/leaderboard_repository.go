package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mrvlstats/tournament-core/models"
)

var ErrSnapshotNotFound = errors.New("leaderboard snapshot not found")

type LeaderboardRepository interface {
	SaveSnapshot(ctx context.Context, exec SQLExecutor, snapshot *models.LeaderboardSnapshot) error
	GetLatestSnapshot(ctx context.Context, exec SQLExecutor, scope string) (*models.LeaderboardSnapshot, error)
}

type postgresLeaderboardRepository struct {
	db *sql.DB
}

func NewPostgresLeaderboardRepository(db *sql.DB) LeaderboardRepository {
	return &postgresLeaderboardRepository{db: db}
}

func (r *postgresLeaderboardRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresLeaderboardRepository) SaveSnapshot(ctx context.Context, exec SQLExecutor, snapshot *models.LeaderboardSnapshot) error {
	entriesJSON, err := json.Marshal(snapshot.Entries)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot entries: %w", err)
	}
	query := `
		INSERT INTO leaderboard_snapshots (id, scope, region, entries, captured_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err = r.getExecutor(exec).ExecContext(ctx, query,
		snapshot.ID, snapshot.Scope, snapshot.Region, entriesJSON, snapshot.CapturedAt)
	return err
}

func (r *postgresLeaderboardRepository) GetLatestSnapshot(ctx context.Context, exec SQLExecutor, scope string) (*models.LeaderboardSnapshot, error) {
	query := `
		SELECT id, scope, region, entries, captured_at
		FROM leaderboard_snapshots
		WHERE scope = $1
		ORDER BY captured_at DESC
		LIMIT 1`
	var snapshot models.LeaderboardSnapshot
	var entriesJSON []byte
	err := r.getExecutor(exec).QueryRowContext(ctx, query, scope).Scan(
		&snapshot.ID, &snapshot.Scope, &snapshot.Region, &entriesJSON, &snapshot.CapturedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(entriesJSON, &snapshot.Entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", snapshot.ID, err)
	}
	return &snapshot, nil
}
