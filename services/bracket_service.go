package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mrvlstats/tournament-core/brackets"
	"github.com/mrvlstats/tournament-core/models"
	"github.com/mrvlstats/tournament-core/repositories"
)

const grandFinalResetUID = "GF2"

type BracketService interface {
	// CreateStage persists the stage, generates its full advancement DAG and
	// creates match rows for every immediately playable node, all in one
	// transaction. Team IDs are taken in seed order, best first.
	CreateStage(ctx context.Context, stage *models.BracketStage, teamIDs []int) (*models.BracketView, error)
	GetBracketView(ctx context.Context, stageID int) (*models.BracketView, error)
	// AdvanceFromMatch routes a completed series through the stage's
	// advancement DAG inside the caller's transaction: the winner (and for
	// upper-bracket double elimination, the loser) is placed into the slot
	// its edge names, walkover nodes are skipped, and a grand-final reset is
	// created when the lower-bracket finalist takes the first grand final.
	AdvanceFromMatch(ctx context.Context, tx *sql.Tx, stage *models.BracketStage, summary models.MatchSummary) error
}

type bracketService struct {
	db          *sql.DB
	bracketRepo repositories.BracketRepository
	matchRepo   repositories.MatchRepository
	teamRepo    repositories.TeamRepository
	swissRepo   repositories.SwissStandingRepository
	logger      *slog.Logger
}

func NewBracketService(
	db *sql.DB,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	swissRepo repositories.SwissStandingRepository,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		db:          db,
		bracketRepo: bracketRepo,
		matchRepo:   matchRepo,
		teamRepo:    teamRepo,
		swissRepo:   swissRepo,
		logger:      logger,
	}
}

func (s *bracketService) CreateStage(ctx context.Context, stage *models.BracketStage, teamIDs []int) (*models.BracketView, error) {
	if !stage.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown stage type %q", ErrInvalidInput, stage.Type)
	}
	if !stage.Config.Format.Valid() {
		return nil, fmt.Errorf("%w: best-of must be 1, 3, 5 or 7", ErrInvalidInput)
	}

	teams, err := s.loadSeededTeams(ctx, teamIDs)
	if err != nil {
		return nil, err
	}

	generator, err := brackets.NewGenerator(stage.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if stage.Type == models.StageSwiss && stage.Config.TotalRounds == 0 {
		stage.Config.TotalRounds = brackets.RecommendedSwissRounds(len(teams))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin stage transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if err := s.bracketRepo.CreateStage(ctx, tx, stage); err != nil {
		return nil, fmt.Errorf("create stage: %w", err)
	}

	nodes, err := generator.Generate(ctx, brackets.GenerateParams{Stage: stage, Teams: teams})
	if err != nil {
		if errors.Is(err, brackets.ErrNotEnoughTeams) {
			return nil, fmt.Errorf("%w: %v", ErrNotEnoughTeams, err)
		}
		return nil, fmt.Errorf("generate %s bracket: %w", generator.Name(), err)
	}

	if err := s.bracketRepo.BatchCreateMatches(ctx, tx, stage.ID, nodes); err != nil {
		return nil, fmt.Errorf("persist bracket: %w", err)
	}

	for _, node := range nodes {
		if node.State == models.SlotReady && node.Team1ID != nil && node.Team2ID != nil {
			if err := s.createSeriesForNode(ctx, tx, stage, node); err != nil {
				return nil, err
			}
		}
	}

	if stage.Type == models.StageSwiss {
		if err := s.seedSwissStandings(ctx, tx, stage, teams, nodes); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit stage: %w", err)
	}
	committed = true

	s.logger.Info("bracket generated",
		slog.Int("stage_id", stage.ID),
		slog.String("type", string(stage.Type)),
		slog.Int("teams", len(teams)),
		slog.Int("nodes", len(nodes)))

	return &models.BracketView{Stage: *stage, Matches: nodes, Teams: teams}, nil
}

// loadSeededTeams fetches the teams and returns them in the caller's seed
// order, which GetByIDs does not preserve.
func (s *bracketService) loadSeededTeams(ctx context.Context, teamIDs []int) ([]*models.Team, error) {
	if len(teamIDs) < 2 {
		return nil, fmt.Errorf("%w: got %d teams", ErrNotEnoughTeams, len(teamIDs))
	}
	seen := make(map[int]bool, len(teamIDs))
	for _, id := range teamIDs {
		if seen[id] {
			return nil, fmt.Errorf("%w: team %d listed twice", ErrInvalidInput, id)
		}
		seen[id] = true
	}

	fetched, err := s.teamRepo.GetByIDs(ctx, nil, teamIDs)
	if err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}
	byID := make(map[int]*models.Team, len(fetched))
	for _, t := range fetched {
		byID[t.ID] = t
	}

	teams := make([]*models.Team, 0, len(teamIDs))
	for _, id := range teamIDs {
		t, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: team %d", ErrNotFound, id)
		}
		teams = append(teams, t)
	}
	return teams, nil
}

func (s *bracketService) seedSwissStandings(ctx context.Context, tx *sql.Tx, stage *models.BracketStage, teams []*models.Team, nodes []*models.BracketMatch) error {
	byeTeams := make(map[int]bool)
	for _, node := range nodes {
		if node.IsBye && node.Team1ID != nil {
			byeTeams[*node.Team1ID] = true
		}
	}

	standings := make([]*models.SwissStanding, 0, len(teams))
	for i, t := range teams {
		st := &models.SwissStanding{
			StageID: stage.ID,
			TeamID:  t.ID,
			Seed:    i + 1,
		}
		if byeTeams[t.ID] {
			st.HadBye = true
			st.Wins = 1
		}
		standings = append(standings, st)
	}
	if err := s.swissRepo.BatchCreate(ctx, tx, standings); err != nil {
		return fmt.Errorf("seed swiss standings: %w", err)
	}
	return nil
}

// createSeriesForNode creates the playable match row for a ready node and
// links it back to the DAG.
func (s *bracketService) createSeriesForNode(ctx context.Context, tx *sql.Tx, stage *models.BracketStage, node *models.BracketMatch) error {
	stageID := stage.ID
	match := &models.Match{
		EventID:     &stage.EventID,
		StageID:     &stageID,
		Team1ID:     *node.Team1ID,
		Team2ID:     *node.Team2ID,
		Format:      stage.Config.Format,
		Status:      models.MatchStatusUpcoming,
		ScheduledAt: time.Now().UTC(),
	}
	if err := s.matchRepo.Create(ctx, tx, match); err != nil {
		return fmt.Errorf("create series for node %s: %w", node.UID, err)
	}
	if err := s.bracketRepo.LinkMatch(ctx, tx, node.ID, match.ID); err != nil {
		return fmt.Errorf("link series to node %s: %w", node.UID, err)
	}
	node.MatchID = &match.ID
	return nil
}

func (s *bracketService) AdvanceFromMatch(ctx context.Context, tx *sql.Tx, stage *models.BracketStage, summary models.MatchSummary) error {
	node, err := s.bracketRepo.GetByMatchID(ctx, tx, summary.MatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketMatchNotFound) {
			// Standalone series outside any bracket.
			return nil
		}
		return fmt.Errorf("resolve bracket node for match %d: %w", summary.MatchID, err)
	}

	node.State = models.SlotDone
	if err := s.bracketRepo.UpdateSlots(ctx, tx, node); err != nil {
		return fmt.Errorf("close node %s: %w", node.UID, err)
	}

	if node.Section == models.SectionGrandFinal {
		return s.handleGrandFinal(ctx, tx, stage, node, summary.WinnerID)
	}

	if node.WinnerToUID != nil {
		if err := s.placeTeam(ctx, tx, stage, *node.WinnerToUID, *node.WinnerToSlot, summary.WinnerID); err != nil {
			return err
		}
	}
	if node.LoserToUID != nil {
		if err := s.placeTeam(ctx, tx, stage, *node.LoserToUID, *node.LoserToSlot, summary.LoserID); err != nil {
			return err
		}
	}
	return nil
}

// handleGrandFinal implements the bracket reset: the lower-bracket finalist
// arrives in slot 2, and beating the upper-bracket finalist once only levels
// the loss count, so a deciding rematch is created. If the upper-bracket
// finalist wins, or this already is the reset match, the stage is decided.
func (s *bracketService) handleGrandFinal(ctx context.Context, tx *sql.Tx, stage *models.BracketStage, node *models.BracketMatch, winnerID int) error {
	if node.Round != 1 || node.Team2ID == nil || winnerID != *node.Team2ID {
		s.logger.Info("stage champion decided",
			slog.Int("stage_id", stage.ID),
			slog.Int("team_id", winnerID),
			slog.String("node", node.UID))
		return nil
	}

	reset := &models.BracketMatch{
		UID:         grandFinalResetUID,
		Section:     models.SectionGrandFinal,
		Round:       2,
		MatchNumber: 1,
		Team1ID:     node.Team1ID,
		Team2ID:     node.Team2ID,
		State:       models.SlotReady,
	}
	if err := s.bracketRepo.BatchCreateMatches(ctx, tx, stage.ID, []*models.BracketMatch{reset}); err != nil {
		return fmt.Errorf("create grand final reset: %w", err)
	}
	if err := s.createSeriesForNode(ctx, tx, stage, reset); err != nil {
		return err
	}
	s.logger.Info("grand final reset created", slog.Int("stage_id", stage.ID))
	return nil
}

// placeTeam puts a team into the named slot of a target node. A slot already
// holding a different team, or an edge naming a node that does not exist,
// means the stored DAG is corrupt and the whole transaction must abort.
// Walkover nodes pass the team straight through.
func (s *bracketService) placeTeam(ctx context.Context, tx *sql.Tx, stage *models.BracketStage, uid string, slot int, teamID int) error {
	target, err := s.bracketRepo.GetByUID(ctx, tx, stage.ID, uid)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketMatchNotFound) {
			return fmt.Errorf("%w: edge to %s in stage %d", ErrAdvancementTargetMissing, uid, stage.ID)
		}
		return fmt.Errorf("load node %s: %w", uid, err)
	}

	current := target.Team1ID
	if slot == 2 {
		current = target.Team2ID
	}
	if current != nil {
		if *current == teamID {
			return nil
		}
		return fmt.Errorf("%w: node %s slot %d holds team %d, got team %d",
			ErrDuplicateSlotAssignment, uid, slot, *current, teamID)
	}
	if slot == 1 {
		target.Team1ID = &teamID
	} else {
		target.Team2ID = &teamID
	}

	if target.IsBye {
		// Walkover: the other slot can never fill, the arriving team
		// advances without playing.
		target.State = models.SlotDone
		if err := s.bracketRepo.UpdateSlots(ctx, tx, target); err != nil {
			return fmt.Errorf("record walkover at %s: %w", uid, err)
		}
		if target.WinnerToUID != nil {
			return s.placeTeam(ctx, tx, stage, *target.WinnerToUID, *target.WinnerToSlot, teamID)
		}
		return nil
	}

	if target.Team1ID != nil && target.Team2ID != nil {
		target.State = models.SlotReady
		if err := s.bracketRepo.UpdateSlots(ctx, tx, target); err != nil {
			return fmt.Errorf("fill node %s: %w", uid, err)
		}
		return s.createSeriesForNode(ctx, tx, stage, target)
	}

	if err := s.bracketRepo.UpdateSlots(ctx, tx, target); err != nil {
		return fmt.Errorf("fill node %s: %w", uid, err)
	}
	return nil
}

func (s *bracketService) GetBracketView(ctx context.Context, stageID int) (*models.BracketView, error) {
	var (
		stage *models.BracketStage
		nodes []*models.BracketMatch
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stage, err = s.bracketRepo.GetStage(gctx, nil, stageID)
		if errors.Is(err, repositories.ErrStageNotFound) {
			return fmt.Errorf("%w: stage %d", ErrNotFound, stageID)
		}
		return err
	})
	g.Go(func() error {
		var err error
		nodes, err = s.bracketRepo.ListByStage(gctx, nil, stageID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	teamIDs := make([]int, 0, len(nodes))
	seen := make(map[int]bool)
	for _, node := range nodes {
		for _, id := range []*int{node.Team1ID, node.Team2ID} {
			if id != nil && !seen[*id] {
				seen[*id] = true
				teamIDs = append(teamIDs, *id)
			}
		}
	}
	teams, err := s.teamRepo.GetByIDs(ctx, nil, teamIDs)
	if err != nil {
		return nil, fmt.Errorf("load bracket teams: %w", err)
	}

	return &models.BracketView{Stage: *stage, Matches: nodes, Teams: teams}, nil
}
