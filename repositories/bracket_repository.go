package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mrvlstats/tournament-core/models"
)

var (
	ErrStageNotFound        = errors.New("bracket stage not found")
	ErrBracketMatchNotFound = errors.New("bracket match not found")
)

type BracketRepository interface {
	CreateStage(ctx context.Context, exec SQLExecutor, stage *models.BracketStage) error
	GetStage(ctx context.Context, exec SQLExecutor, id int) (*models.BracketStage, error)
	BatchCreateMatches(ctx context.Context, exec SQLExecutor, stageID int, matches []*models.BracketMatch) error
	GetByUID(ctx context.Context, exec SQLExecutor, stageID int, uid string) (*models.BracketMatch, error)
	// GetByMatchID resolves the bracket node a completed series belongs to.
	GetByMatchID(ctx context.Context, exec SQLExecutor, matchID int) (*models.BracketMatch, error)
	ListByStage(ctx context.Context, exec SQLExecutor, stageID int) ([]*models.BracketMatch, error)
	UpdateSlots(ctx context.Context, exec SQLExecutor, bm *models.BracketMatch) error
	LinkMatch(ctx context.Context, exec SQLExecutor, bracketMatchID, matchID int) error
}

type postgresBracketRepository struct {
	db *sql.DB
}

func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db}
}

func (r *postgresBracketRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresBracketRepository) CreateStage(ctx context.Context, exec SQLExecutor, stage *models.BracketStage) error {
	configJSON, err := json.Marshal(stage.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal stage config: %w", err)
	}
	query := `
		INSERT INTO bracket_stages (event_id, name, type, config)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	return r.getExecutor(exec).QueryRowContext(ctx, query,
		stage.EventID, stage.Name, stage.Type, configJSON,
	).Scan(&stage.ID, &stage.CreatedAt)
}

func (r *postgresBracketRepository) GetStage(ctx context.Context, exec SQLExecutor, id int) (*models.BracketStage, error) {
	query := `SELECT id, event_id, name, type, config, created_at FROM bracket_stages WHERE id = $1`
	var stage models.BracketStage
	var configJSON []byte
	err := r.getExecutor(exec).QueryRowContext(ctx, query, id).Scan(
		&stage.ID, &stage.EventID, &stage.Name, &stage.Type, &configJSON, &stage.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStageNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(configJSON, &stage.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config for stage %d: %w", id, err)
	}
	return &stage, nil
}

const bracketMatchColumns = `id, stage_id, uid, section, round, match_number,
	team1_id, team2_id, match_id, state, winner_to_uid, winner_to_slot,
	loser_to_uid, loser_to_slot, is_bye, created_at`

func (r *postgresBracketRepository) BatchCreateMatches(ctx context.Context, exec SQLExecutor, stageID int, matches []*models.BracketMatch) error {
	if len(matches) == 0 {
		return nil
	}
	query := `
		INSERT INTO bracket_matches
			(stage_id, uid, section, round, match_number, team1_id, team2_id,
			 state, winner_to_uid, winner_to_slot, loser_to_uid, loser_to_slot, is_bye)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at`
	executor := r.getExecutor(exec)
	for _, bm := range matches {
		bm.StageID = stageID
		err := executor.QueryRowContext(ctx, query,
			stageID, bm.UID, bm.Section, bm.Round, bm.MatchNumber,
			bm.Team1ID, bm.Team2ID, bm.State,
			bm.WinnerToUID, bm.WinnerToSlot, bm.LoserToUID, bm.LoserToSlot, bm.IsBye,
		).Scan(&bm.ID, &bm.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert bracket match %s: %w", bm.UID, err)
		}
	}
	return nil
}

func (r *postgresBracketRepository) scanBracketMatch(row interface{ Scan(...interface{}) error }) (*models.BracketMatch, error) {
	var bm models.BracketMatch
	err := row.Scan(&bm.ID, &bm.StageID, &bm.UID, &bm.Section, &bm.Round, &bm.MatchNumber,
		&bm.Team1ID, &bm.Team2ID, &bm.MatchID, &bm.State,
		&bm.WinnerToUID, &bm.WinnerToSlot, &bm.LoserToUID, &bm.LoserToSlot,
		&bm.IsBye, &bm.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBracketMatchNotFound
		}
		return nil, err
	}
	return &bm, nil
}

func (r *postgresBracketRepository) GetByUID(ctx context.Context, exec SQLExecutor, stageID int, uid string) (*models.BracketMatch, error) {
	query := `SELECT ` + bracketMatchColumns + ` FROM bracket_matches WHERE stage_id = $1 AND uid = $2`
	return r.scanBracketMatch(r.getExecutor(exec).QueryRowContext(ctx, query, stageID, uid))
}

func (r *postgresBracketRepository) GetByMatchID(ctx context.Context, exec SQLExecutor, matchID int) (*models.BracketMatch, error) {
	query := `SELECT ` + bracketMatchColumns + ` FROM bracket_matches WHERE match_id = $1`
	return r.scanBracketMatch(r.getExecutor(exec).QueryRowContext(ctx, query, matchID))
}

func (r *postgresBracketRepository) ListByStage(ctx context.Context, exec SQLExecutor, stageID int) ([]*models.BracketMatch, error) {
	query := `
		SELECT ` + bracketMatchColumns + `
		FROM bracket_matches
		WHERE stage_id = $1
		ORDER BY section, round, match_number`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, stageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.BracketMatch, 0)
	for rows.Next() {
		bm, scanErr := r.scanBracketMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, bm)
	}
	return matches, rows.Err()
}

func (r *postgresBracketRepository) UpdateSlots(ctx context.Context, exec SQLExecutor, bm *models.BracketMatch) error {
	query := `
		UPDATE bracket_matches
		SET team1_id = $1, team2_id = $2, state = $3
		WHERE id = $4`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, bm.Team1ID, bm.Team2ID, bm.State, bm.ID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrBracketMatchNotFound)
}

func (r *postgresBracketRepository) LinkMatch(ctx context.Context, exec SQLExecutor, bracketMatchID, matchID int) error {
	query := `UPDATE bracket_matches SET match_id = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, matchID, bracketMatchID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrBracketMatchNotFound)
}
