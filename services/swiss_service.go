package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mrvlstats/tournament-core/brackets"
	"github.com/mrvlstats/tournament-core/models"
	"github.com/mrvlstats/tournament-core/repositories"
)

type SwissService interface {
	// OnMatchCompleted recomputes standings inside the caller's transaction
	// and, if the completed series closed the current round, pairs and
	// persists the next one.
	OnMatchCompleted(ctx context.Context, tx *sql.Tx, stage *models.BracketStage, summary models.MatchSummary) error
	GetStandings(ctx context.Context, stageID int) ([]*models.SwissStanding, error)
}

type swissService struct {
	bracketRepo repositories.BracketRepository
	matchRepo   repositories.MatchRepository
	swissRepo   repositories.SwissStandingRepository
	logger      *slog.Logger
}

func NewSwissService(
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	swissRepo repositories.SwissStandingRepository,
	logger *slog.Logger,
) SwissService {
	return &swissService{
		bracketRepo: bracketRepo,
		matchRepo:   matchRepo,
		swissRepo:   swissRepo,
		logger:      logger,
	}
}

func (s *swissService) OnMatchCompleted(ctx context.Context, tx *sql.Tx, stage *models.BracketStage, summary models.MatchSummary) error {
	node, err := s.bracketRepo.GetByMatchID(ctx, tx, summary.MatchID)
	if err != nil {
		return fmt.Errorf("resolve swiss node for match %d: %w", summary.MatchID, err)
	}
	node.State = models.SlotDone
	if err := s.bracketRepo.UpdateSlots(ctx, tx, node); err != nil {
		return fmt.Errorf("close node %s: %w", node.UID, err)
	}

	standings, nodes, err := s.recompute(ctx, tx, stage)
	if err != nil {
		return err
	}

	currentRound := 0
	roundDone := true
	for _, node := range nodes {
		if node.Round > currentRound {
			currentRound = node.Round
		}
	}
	for _, node := range nodes {
		if node.Round == currentRound && node.State != models.SlotDone {
			roundDone = false
			break
		}
	}
	if !roundDone || currentRound >= stage.Config.TotalRounds {
		return nil
	}

	remaining := 0
	for _, st := range standings {
		if !st.Qualified && !st.Eliminated {
			remaining++
		}
	}
	if remaining < 2 {
		s.logger.Info("swiss stage decided",
			slog.Int("stage_id", stage.ID),
			slog.Int("rounds_played", currentRound))
		return nil
	}

	return s.pairNextRound(ctx, tx, stage, standings, currentRound+1)
}

// recompute rebuilds every standing row from the stage's completed series
// and bye nodes, then reapplies the qualification and elimination cuts.
func (s *swissService) recompute(ctx context.Context, tx *sql.Tx, stage *models.BracketStage) ([]*models.SwissStanding, []*models.BracketMatch, error) {
	standings, err := s.swissRepo.ListByStage(ctx, tx, stage.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load standings: %w", err)
	}
	nodes, err := s.bracketRepo.ListByStage(ctx, tx, stage.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load bracket nodes: %w", err)
	}
	completed := models.MatchStatusCompleted
	matches, err := s.matchRepo.ListByStage(ctx, tx, stage.ID, nil, &completed)
	if err != nil {
		return nil, nil, fmt.Errorf("load completed matches: %w", err)
	}

	byTeam := make(map[int]*models.SwissStanding, len(standings))
	for _, st := range standings {
		st.Wins, st.Losses, st.Draws = 0, 0, 0
		st.MapWins, st.MapLosses = 0, 0
		st.OpponentIDs = st.OpponentIDs[:0]
		st.HadBye = false
		byTeam[st.TeamID] = st
	}

	for _, node := range nodes {
		if node.IsBye && node.Team1ID != nil {
			if st := byTeam[*node.Team1ID]; st != nil {
				st.HadBye = true
				st.Wins++
			}
		}
	}

	for _, m := range matches {
		if m.WinnerID == nil {
			continue
		}
		t1, t2 := byTeam[m.Team1ID], byTeam[m.Team2ID]
		if t1 == nil || t2 == nil {
			return nil, nil, fmt.Errorf("match %d references a team outside stage %d standings", m.ID, stage.ID)
		}
		t1.OpponentIDs = append(t1.OpponentIDs, m.Team2ID)
		t2.OpponentIDs = append(t2.OpponentIDs, m.Team1ID)
		t1.MapWins += m.Team1Score
		t1.MapLosses += m.Team2Score
		t2.MapWins += m.Team2Score
		t2.MapLosses += m.Team1Score
		if *m.WinnerID == m.Team1ID {
			t1.Wins++
			t2.Losses++
		} else {
			t2.Wins++
			t1.Losses++
		}
	}

	// Buchholz: sum of opponents' match win percentage. Second pass so every
	// opponent's own record is final first.
	for _, st := range standings {
		st.Buchholz = 0
		for _, oppID := range st.OpponentIDs {
			if opp := byTeam[oppID]; opp != nil {
				st.Buchholz += opp.MatchWinPct()
			}
		}
	}

	for _, st := range standings {
		st.Qualified = stage.Config.WinsToQualify > 0 && st.Wins >= stage.Config.WinsToQualify
		st.Eliminated = stage.Config.LossesToEliminate > 0 && st.Losses >= stage.Config.LossesToEliminate
	}

	rankStandings(standings)

	for _, st := range standings {
		st.UpdatedAt = time.Now().UTC()
		if err := s.swissRepo.Update(ctx, tx, st); err != nil {
			return nil, nil, fmt.Errorf("update standing for team %d: %w", st.TeamID, err)
		}
	}
	return standings, nodes, nil
}

// rankStandings orders by wins, then Buchholz, then map difference, then
// seed, and writes dense ranks.
func rankStandings(standings []*models.SwissStanding) {
	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.Buchholz != b.Buchholz {
			return a.Buchholz > b.Buchholz
		}
		aDiff, bDiff := a.MapWins-a.MapLosses, b.MapWins-b.MapLosses
		if aDiff != bDiff {
			return aDiff > bDiff
		}
		return a.Seed < b.Seed
	})
	for i, st := range standings {
		rank := i + 1
		st.Rank = &rank
	}
}

func (s *swissService) pairNextRound(ctx context.Context, tx *sql.Tx, stage *models.BracketStage, standings []*models.SwissStanding, round int) error {
	pairings, err := brackets.PairSwissRound(standings, round)
	if err != nil {
		if errors.Is(err, brackets.ErrPairingInfeasible) {
			return fmt.Errorf("%w: round %d of stage %d", err, round, stage.ID)
		}
		return fmt.Errorf("pair round %d: %w", round, err)
	}

	byTeam := make(map[int]*models.SwissStanding, len(standings))
	for _, st := range standings {
		byTeam[st.TeamID] = st
	}

	nodes := make([]*models.BracketMatch, 0, len(pairings))
	for i, p := range pairings {
		t1 := p.Team1ID
		node := &models.BracketMatch{
			UID:         fmt.Sprintf("SW_R%dM%d", round, i+1),
			Section:     models.SectionUpper,
			Round:       round,
			MatchNumber: i + 1,
			Team1ID:     &t1,
			Team2ID:     p.Team2ID,
			State:       models.SlotReady,
		}
		if p.Team2ID == nil {
			node.IsBye = true
			node.State = models.SlotDone
		}
		nodes = append(nodes, node)
	}
	if err := s.bracketRepo.BatchCreateMatches(ctx, tx, stage.ID, nodes); err != nil {
		return fmt.Errorf("persist round %d nodes: %w", round, err)
	}

	for _, node := range nodes {
		if node.IsBye {
			// The bye is scored as a win on the next recompute.
			if st := byTeam[*node.Team1ID]; st != nil {
				st.HadBye = true
				st.Wins++
				if err := s.swissRepo.Update(ctx, tx, st); err != nil {
					return fmt.Errorf("record bye for team %d: %w", st.TeamID, err)
				}
			}
			continue
		}
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
			return fmt.Errorf("create round %d series: %w", round, err)
		}
		if err := s.bracketRepo.LinkMatch(ctx, tx, node.ID, match.ID); err != nil {
			return fmt.Errorf("link round %d series: %w", round, err)
		}
		node.MatchID = &match.ID
	}

	s.logger.Info("swiss round paired",
		slog.Int("stage_id", stage.ID),
		slog.Int("round", round),
		slog.Int("pairings", len(pairings)))
	return nil
}

func (s *swissService) GetStandings(ctx context.Context, stageID int) ([]*models.SwissStanding, error) {
	standings, err := s.swissRepo.ListByStage(ctx, nil, stageID)
	if err != nil {
		return nil, err
	}
	if len(standings) == 0 {
		return nil, fmt.Errorf("%w: no swiss standings for stage %d", ErrNotFound, stageID)
	}
	rankStandings(standings)
	return standings, nil
}
