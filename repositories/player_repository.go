package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mrvlstats/tournament-core/models"
)

var ErrPlayerNotFound = errors.New("player not found")

type PlayerRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error)
	ListByTeam(ctx context.Context, exec SQLExecutor, teamID int) ([]*models.Player, error)
	UpdateRating(ctx context.Context, exec SQLExecutor, id, rating, peakRating, wins, losses int) error
	ListRankedByRole(ctx context.Context, exec SQLExecutor, role models.PlayerRole, limit int) ([]*models.Player, error)
	// ResetAll rewinds every player to the given rating with zeroed
	// counters, for full rating rebuilds.
	ResetAll(ctx context.Context, exec SQLExecutor, rating int) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const playerColumns = `id, nickname, team_id, role, rating, peak_rating, wins, losses, created_at`

func (r *postgresPlayerRepository) scanPlayer(row interface{ Scan(...interface{}) error }) (*models.Player, error) {
	var p models.Player
	var rawRole string
	err := row.Scan(&p.ID, &p.Nickname, &p.TeamID, &rawRole,
		&p.Rating, &p.PeakRating, &p.Wins, &p.Losses, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	if role, ok := models.ParsePlayerRole(rawRole); ok {
		p.Role = role
	} else {
		p.Role = models.RoleFlex
	}
	return &p, nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`
	return r.scanPlayer(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresPlayerRepository) ListByTeam(ctx context.Context, exec SQLExecutor, teamID int) ([]*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE team_id = $1 ORDER BY id`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make([]*models.Player, 0)
	for rows.Next() {
		p, scanErr := r.scanPlayer(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (r *postgresPlayerRepository) UpdateRating(ctx context.Context, exec SQLExecutor, id, rating, peakRating, wins, losses int) error {
	query := `
		UPDATE players
		SET rating = $1, peak_rating = $2, wins = $3, losses = $4
		WHERE id = $5`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, rating, peakRating, wins, losses, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) ResetAll(ctx context.Context, exec SQLExecutor, rating int) error {
	query := `UPDATE players SET rating = $1, peak_rating = $1, wins = 0, losses = 0`
	_, err := r.getExecutor(exec).ExecContext(ctx, query, rating)
	return err
}

func (r *postgresPlayerRepository) ListRankedByRole(ctx context.Context, exec SQLExecutor, role models.PlayerRole, limit int) ([]*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE role = $1 ORDER BY rating DESC, id ASC LIMIT $2`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, role, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make([]*models.Player, 0)
	for rows.Next() {
		p, scanErr := r.scanPlayer(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		players = append(players, p)
	}
	return players, rows.Err()
}
