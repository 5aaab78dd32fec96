package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/mrvlstats/tournament-core/models"
)

var ErrSwissStandingNotFound = errors.New("swiss standing not found")

type SwissStandingRepository interface {
	BatchCreate(ctx context.Context, exec SQLExecutor, standings []*models.SwissStanding) error
	ListByStage(ctx context.Context, exec SQLExecutor, stageID int) ([]*models.SwissStanding, error)
	GetByStageAndTeam(ctx context.Context, exec SQLExecutor, stageID, teamID int) (*models.SwissStanding, error)
	Update(ctx context.Context, exec SQLExecutor, standing *models.SwissStanding) error
}

type postgresSwissStandingRepository struct {
	db *sql.DB
}

func NewPostgresSwissStandingRepository(db *sql.DB) SwissStandingRepository {
	return &postgresSwissStandingRepository{db: db}
}

func (r *postgresSwissStandingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const swissColumns = `id, stage_id, team_id, wins, losses, draws, buchholz,
	map_wins, map_losses, opponent_ids, had_bye, qualified, eliminated, seed, rank, updated_at`

func (r *postgresSwissStandingRepository) BatchCreate(ctx context.Context, exec SQLExecutor, standings []*models.SwissStanding) error {
	query := `
		INSERT INTO bracket_swiss_standings
			(stage_id, team_id, wins, losses, draws, buchholz, map_wins, map_losses,
			 opponent_ids, had_bye, qualified, eliminated, seed, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`
	executor := r.getExecutor(exec)
	for _, s := range standings {
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = time.Now()
		}
		err := executor.QueryRowContext(ctx, query,
			s.StageID, s.TeamID, s.Wins, s.Losses, s.Draws, s.Buchholz,
			s.MapWins, s.MapLosses, pq.Array(s.OpponentIDs), s.HadBye,
			s.Qualified, s.Eliminated, s.Seed, s.UpdatedAt,
		).Scan(&s.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *postgresSwissStandingRepository) scanStanding(row interface{ Scan(...interface{}) error }) (*models.SwissStanding, error) {
	var s models.SwissStanding
	var opponents pq.Int64Array
	err := row.Scan(&s.ID, &s.StageID, &s.TeamID, &s.Wins, &s.Losses, &s.Draws,
		&s.Buchholz, &s.MapWins, &s.MapLosses, &opponents, &s.HadBye,
		&s.Qualified, &s.Eliminated, &s.Seed, &s.Rank, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSwissStandingNotFound
		}
		return nil, err
	}
	s.OpponentIDs = make([]int, len(opponents))
	for i, id := range opponents {
		s.OpponentIDs[i] = int(id)
	}
	return &s, nil
}

func (r *postgresSwissStandingRepository) ListByStage(ctx context.Context, exec SQLExecutor, stageID int) ([]*models.SwissStanding, error) {
	query := `
		SELECT ` + swissColumns + `
		FROM bracket_swiss_standings
		WHERE stage_id = $1
		ORDER BY wins DESC, buchholz DESC, seed ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, stageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	standings := make([]*models.SwissStanding, 0)
	for rows.Next() {
		s, scanErr := r.scanStanding(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		standings = append(standings, s)
	}
	return standings, rows.Err()
}

func (r *postgresSwissStandingRepository) GetByStageAndTeam(ctx context.Context, exec SQLExecutor, stageID, teamID int) (*models.SwissStanding, error) {
	query := `SELECT ` + swissColumns + ` FROM bracket_swiss_standings WHERE stage_id = $1 AND team_id = $2`
	return r.scanStanding(r.getExecutor(exec).QueryRowContext(ctx, query, stageID, teamID))
}

func (r *postgresSwissStandingRepository) Update(ctx context.Context, exec SQLExecutor, s *models.SwissStanding) error {
	query := `
		UPDATE bracket_swiss_standings
		SET wins = $1, losses = $2, draws = $3, buchholz = $4, map_wins = $5,
		    map_losses = $6, opponent_ids = $7, had_bye = $8, qualified = $9,
		    eliminated = $10, rank = $11, updated_at = $12
		WHERE id = $13`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		s.Wins, s.Losses, s.Draws, s.Buchholz, s.MapWins, s.MapLosses,
		pq.Array(s.OpponentIDs), s.HadBye, s.Qualified, s.Eliminated,
		s.Rank, time.Now(), s.ID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSwissStandingNotFound)
}
