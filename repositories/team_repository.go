package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/mrvlstats/tournament-core/models"
)

var (
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamNameConflict = errors.New("team name is already in use")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
	GetByIDs(ctx context.Context, exec SQLExecutor, ids []int) ([]*models.Team, error)
	// UpdateRating rewrites the cached rating columns and the win/loss
	// counters. Callers must pass the transaction that also appends the
	// matching rating history row.
	UpdateRating(ctx context.Context, exec SQLExecutor, id, rating, peakRating, wins, losses int) error
	SetLogoKey(ctx context.Context, exec SQLExecutor, id int, logoKey string) error
	ListRanked(ctx context.Context, exec SQLExecutor, region *models.Region, limit int) ([]*models.Team, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

var teamConstraints = map[string]error{
	"teams_name_key": ErrTeamNameConflict,
}

const teamColumns = `id, name, tag, region, logo_key, rating, peak_rating, wins, losses, created_at`

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	query := `
		INSERT INTO teams (name, tag, region, logo_key, rating, peak_rating)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		team.Name, team.Tag, team.Region, team.LogoKey, team.Rating, team.PeakRating,
	).Scan(&team.ID, &team.CreatedAt)
	return mapConstraintError(err, teamConstraints)
}

func (r *postgresTeamRepository) scanTeam(row interface{ Scan(...interface{}) error }) (*models.Team, error) {
	var t models.Team
	err := row.Scan(&t.ID, &t.Name, &t.Tag, &t.Region, &t.LogoKey,
		&t.Rating, &t.PeakRating, &t.Wins, &t.Losses, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	return r.scanTeam(r.getExecutor(exec).QueryRowContext(ctx, query, id))
}

func (r *postgresTeamRepository) GetByIDs(ctx context.Context, exec SQLExecutor, ids []int) ([]*models.Team, error) {
	if len(ids) == 0 {
		return []*models.Team{}, nil
	}
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = ANY($1) ORDER BY id`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0, len(ids))
	for rows.Next() {
		t, scanErr := r.scanTeam(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (r *postgresTeamRepository) UpdateRating(ctx context.Context, exec SQLExecutor, id, rating, peakRating, wins, losses int) error {
	query := `
		UPDATE teams
		SET rating = $1, peak_rating = $2, wins = $3, losses = $4
		WHERE id = $5`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, rating, peakRating, wins, losses, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) SetLogoKey(ctx context.Context, exec SQLExecutor, id int, logoKey string) error {
	query := `UPDATE teams SET logo_key = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, logoKey, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) ListRanked(ctx context.Context, exec SQLExecutor, region *models.Region, limit int) ([]*models.Team, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + teamColumns + ` FROM teams`)

	args := []interface{}{}
	if region != nil {
		queryBuilder.WriteString(" WHERE region = $1")
		args = append(args, *region)
	}
	queryBuilder.WriteString(" ORDER BY rating DESC, wins DESC, id ASC")
	if limit > 0 {
		queryBuilder.WriteString(" LIMIT $")
		queryBuilder.WriteString(strconv.Itoa(len(args) + 1))
		args = append(args, limit)
	}

	rows, err := r.getExecutor(exec).QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		t, scanErr := r.scanTeam(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}
