package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mrvlstats/tournament-core/models"
	"github.com/mrvlstats/tournament-core/repositories"
)

const (
	// InitialRating seeds every team and player; ledger replay starts here.
	InitialRating   = 1000
	minTeamRating   = 100
	minPlayerRating = 1000

	// playerNudge is the flat per-match adjustment applied to roster members
	// of the winning and losing teams.
	playerNudge = 10

	defaultKFactor = 32
)

// kFactorForTier scales rating volatility by event prestige.
func kFactorForTier(tier models.EventTier) (int, bool) {
	switch tier {
	case models.TierS:
		return 40, true
	case models.TierA:
		return 32, true
	case models.TierB:
		return 24, true
	case models.TierC:
		return 16, true
	}
	return 0, false
}

// kFactor resolves the K used for one match. A tiered event fixes K
// outright; otherwise established high-rated teams move slower, and a match
// between teams of different volatility uses the calmer one's K.
func kFactor(tier models.EventTier, a, b *models.Team) int {
	if k, ok := kFactorForTier(tier); ok {
		return k
	}
	kFor := func(t *models.Team) int {
		if t.Rating >= 2400 {
			if t.MatchesPlayed() >= 30 {
				return 16
			}
			return 24
		}
		return defaultKFactor
	}
	ka, kb := kFor(a), kFor(b)
	if kb < ka {
		return kb
	}
	return ka
}

// ExpectedScore is the standard logistic expectation for the first rating
// against the second.
func ExpectedScore(ratingA, ratingB int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(ratingB-ratingA)/400.0))
}

// marginModifier rewards decisive series. The minimum winning margin is
// neutral; each extra map of margin adds 10%.
func marginModifier(score models.MapScore) float64 {
	diff := score.Team1 - score.Team2
	if diff < 0 {
		diff = -diff
	}
	if diff <= 1 {
		return 1.0
	}
	return 1.0 + 0.1*float64(diff-1)
}

// RankTier maps a rating to its display tier.
func RankTier(rating int) string {
	switch {
	case rating < 1100:
		return "bronze"
	case rating < 1200:
		return "silver"
	case rating < 1300:
		return "gold"
	case rating < 1400:
		return "platinum"
	case rating < 1500:
		return "diamond"
	case rating < 1600:
		return "grandmaster"
	case rating < 1700:
		return "celestial"
	case rating < 1800:
		return "eternity"
	default:
		return "one_above_all"
	}
}

type RatingService interface {
	// ApplyMatchResult writes both teams' rating updates, the roster nudges
	// and the ledger rows inside the caller's transaction. It is a no-op if
	// a ledger row for the match already exists.
	ApplyMatchResult(ctx context.Context, tx *sql.Tx, match *models.Match, tier models.EventTier) error
	GetTeamRating(ctx context.Context, teamID int, asOf *time.Time) (*models.RatingSnapshot, error)
	PredictMatch(ctx context.Context, team1ID, team2ID int) (*models.MatchPrediction, error)
	// RecalculateAll wipes the ledger, resets every team to the initial
	// rating and replays all completed matches in completion order.
	RecalculateAll(ctx context.Context) error
	// VerifyLedger replays a team's ledger and compares against the cached
	// rating, returning ErrRatingLedgerCorrupt on mismatch.
	VerifyLedger(ctx context.Context, teamID int) error
}

type ratingService struct {
	db          *sql.DB
	teamRepo    repositories.TeamRepository
	playerRepo  repositories.PlayerRepository
	matchRepo   repositories.MatchRepository
	historyRepo repositories.RatingHistoryRepository
	logger      *slog.Logger
}

func NewRatingService(
	db *sql.DB,
	teamRepo repositories.TeamRepository,
	playerRepo repositories.PlayerRepository,
	matchRepo repositories.MatchRepository,
	historyRepo repositories.RatingHistoryRepository,
	logger *slog.Logger,
) RatingService {
	return &ratingService{
		db:          db,
		teamRepo:    teamRepo,
		playerRepo:  playerRepo,
		matchRepo:   matchRepo,
		historyRepo: historyRepo,
		logger:      logger,
	}
}

func (s *ratingService) ApplyMatchResult(ctx context.Context, tx *sql.Tx, match *models.Match, tier models.EventTier) error {
	if match.WinnerID == nil {
		return fmt.Errorf("%w: match %d has no winner", ErrInvalidInput, match.ID)
	}
	winnerID := *match.WinnerID
	loserID := *match.LoserID()

	applied, err := s.historyRepo.ExistsForMatch(ctx, tx, models.EntityTeam, winnerID, match.ID)
	if err != nil {
		return fmt.Errorf("check rating history: %w", err)
	}
	if applied {
		return nil
	}

	winner, err := s.teamRepo.GetByID(ctx, tx, winnerID)
	if err != nil {
		return fmt.Errorf("load winner %d: %w", winnerID, err)
	}
	loser, err := s.teamRepo.GetByID(ctx, tx, loserID)
	if err != nil {
		return fmt.Errorf("load loser %d: %w", loserID, err)
	}

	k := kFactor(tier, winner, loser)
	expected := ExpectedScore(winner.Rating, loser.Rating)
	score := models.MapScore{Team1: match.Team1Score, Team2: match.Team2Score}
	delta := int(math.Round(float64(k) * marginModifier(score) * (1.0 - expected)))

	newWinner := winner.Rating + delta
	newLoser := loser.Rating - delta
	if newLoser < minTeamRating {
		newLoser = minTeamRating
	}

	if err := s.writeTeamUpdate(ctx, tx, winner, newWinner, match.ID, k, true); err != nil {
		return err
	}
	if err := s.writeTeamUpdate(ctx, tx, loser, newLoser, match.ID, k, false); err != nil {
		return err
	}
	if err := s.nudgeRoster(ctx, tx, winnerID, playerNudge, match.ID); err != nil {
		return err
	}
	if err := s.nudgeRoster(ctx, tx, loserID, -playerNudge, match.ID); err != nil {
		return err
	}

	s.logger.Info("ratings updated",
		slog.Int("match_id", match.ID),
		slog.Int("winner_id", winnerID),
		slog.Int("winner_rating", newWinner),
		slog.Int("loser_id", loserID),
		slog.Int("loser_rating", newLoser),
		slog.Int("k_factor", k))
	return nil
}

func (s *ratingService) writeTeamUpdate(ctx context.Context, tx *sql.Tx, team *models.Team, newRating, matchID, k int, won bool) error {
	peak := team.PeakRating
	if newRating > peak {
		peak = newRating
	}
	wins, losses := team.Wins, team.Losses
	if won {
		wins++
	} else {
		losses++
	}

	if err := s.teamRepo.UpdateRating(ctx, tx, team.ID, newRating, peak, wins, losses); err != nil {
		return fmt.Errorf("update team %d rating: %w", team.ID, err)
	}
	entry := &models.RatingHistory{
		EntityType: models.EntityTeam,
		EntityID:   team.ID,
		MatchID:    matchID,
		OldRating:  team.Rating,
		NewRating:  newRating,
		KFactor:    k,
	}
	if err := s.historyRepo.Insert(ctx, tx, entry); err != nil {
		if errors.Is(err, repositories.ErrDuplicateRatingEntry) {
			return fmt.Errorf("%w: team %d match %d", ErrMatchCompleted, team.ID, matchID)
		}
		return fmt.Errorf("append rating history: %w", err)
	}
	return nil
}

func (s *ratingService) nudgeRoster(ctx context.Context, tx *sql.Tx, teamID, delta, matchID int) error {
	players, err := s.playerRepo.ListByTeam(ctx, tx, teamID)
	if err != nil {
		return fmt.Errorf("load roster for team %d: %w", teamID, err)
	}
	for _, p := range players {
		newRating := p.Rating + delta
		if newRating < minPlayerRating {
			newRating = minPlayerRating
		}
		peak := p.PeakRating
		if newRating > peak {
			peak = newRating
		}
		wins, losses := p.Wins, p.Losses
		if delta > 0 {
			wins++
		} else {
			losses++
		}
		if err := s.playerRepo.UpdateRating(ctx, tx, p.ID, newRating, peak, wins, losses); err != nil {
			return fmt.Errorf("update player %d rating: %w", p.ID, err)
		}
		entry := &models.RatingHistory{
			EntityType: models.EntityPlayer,
			EntityID:   p.ID,
			MatchID:    matchID,
			OldRating:  p.Rating,
			NewRating:  newRating,
		}
		if err := s.historyRepo.Insert(ctx, tx, entry); err != nil {
			return fmt.Errorf("append player rating history: %w", err)
		}
	}
	return nil
}

func (s *ratingService) GetTeamRating(ctx context.Context, teamID int, asOf *time.Time) (*models.RatingSnapshot, error) {
	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, fmt.Errorf("%w: team %d", ErrNotFound, teamID)
		}
		return nil, err
	}

	if asOf == nil {
		return &models.RatingSnapshot{
			EntityType: models.EntityTeam,
			EntityID:   teamID,
			Rating:     team.Rating,
			PeakRating: team.PeakRating,
			RankTier:   RankTier(team.Rating),
			AsOf:       time.Now().UTC(),
		}, nil
	}

	rating, peak, err := s.replayLedger(ctx, models.EntityTeam, teamID, asOf)
	if err != nil {
		return nil, err
	}
	return &models.RatingSnapshot{
		EntityType: models.EntityTeam,
		EntityID:   teamID,
		Rating:     rating,
		PeakRating: peak,
		RankTier:   RankTier(rating),
		AsOf:       *asOf,
		Derived:    true,
	}, nil
}

// replayLedger folds the ledger up to the bound; the cached rating is the
// unbounded fold by construction.
func (s *ratingService) replayLedger(ctx context.Context, entityType models.RatingEntity, entityID int, until *time.Time) (rating, peak int, err error) {
	entries, err := s.historyRepo.ListForEntity(ctx, nil, entityType, entityID, until)
	if err != nil {
		return 0, 0, fmt.Errorf("load rating history: %w", err)
	}
	rating, peak = InitialRating, InitialRating
	for _, e := range entries {
		rating = e.NewRating
		if rating > peak {
			peak = rating
		}
	}
	return rating, peak, nil
}

func (s *ratingService) VerifyLedger(ctx context.Context, teamID int) error {
	team, err := s.teamRepo.GetByID(ctx, nil, teamID)
	if err != nil {
		return err
	}
	replayed, _, err := s.replayLedger(ctx, models.EntityTeam, teamID, nil)
	if err != nil {
		return err
	}
	if replayed != team.Rating {
		return fmt.Errorf("%w: team %d cached %d replayed %d",
			ErrRatingLedgerCorrupt, teamID, team.Rating, replayed)
	}
	return nil
}

func (s *ratingService) PredictMatch(ctx context.Context, team1ID, team2ID int) (*models.MatchPrediction, error) {
	if team1ID == team2ID {
		return nil, ErrSelfMatch
	}
	teams, err := s.teamRepo.GetByIDs(ctx, nil, []int{team1ID, team2ID})
	if err != nil {
		return nil, err
	}
	if len(teams) != 2 {
		return nil, fmt.Errorf("%w: one of teams %d, %d", ErrNotFound, team1ID, team2ID)
	}
	byID := map[int]*models.Team{teams[0].ID: teams[0], teams[1].ID: teams[1]}
	t1, t2 := byID[team1ID], byID[team2ID]
	if t1 == nil || t2 == nil {
		return nil, fmt.Errorf("%w: one of teams %d, %d", ErrNotFound, team1ID, team2ID)
	}

	p1 := ExpectedScore(t1.Rating, t2.Rating)
	pred := &models.MatchPrediction{
		Team1ID:     team1ID,
		Team2ID:     team2ID,
		Team1Rating: t1.Rating,
		Team2Rating: t2.Rating,
		Team1WinPct: p1,
		Team2WinPct: 1.0 - p1,
		FavoriteID:  team1ID,
	}
	if t2.Rating > t1.Rating {
		pred.FavoriteID = team2ID
	}
	return pred, nil
}

func (s *ratingService) RecalculateAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recalculation transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = s.historyRepo.TruncateAll(ctx, tx); err != nil {
		return fmt.Errorf("truncate rating history: %w", err)
	}

	teams, err := s.teamRepo.ListRanked(ctx, tx, nil, 0)
	if err != nil {
		return fmt.Errorf("list teams: %w", err)
	}
	for _, t := range teams {
		if err = s.teamRepo.UpdateRating(ctx, tx, t.ID, InitialRating, InitialRating, 0, 0); err != nil {
			return fmt.Errorf("reset team %d: %w", t.ID, err)
		}
	}
	if err = s.playerRepo.ResetAll(ctx, tx, InitialRating); err != nil {
		return fmt.Errorf("reset players: %w", err)
	}

	matches, err := s.matchRepo.ListCompletedOrdered(ctx, tx)
	if err != nil {
		return fmt.Errorf("list completed matches: %w", err)
	}
	for _, m := range matches {
		// Replay at the default tier; stage tiers are a presentation
		// concern once history is being rebuilt wholesale.
		if err = s.ApplyMatchResult(ctx, tx, m, ""); err != nil {
			return fmt.Errorf("replay match %d: %w", m.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit recalculation: %w", err)
	}
	s.logger.Info("rating recalculation complete",
		slog.Int("teams", len(teams)),
		slog.Int("matches", len(matches)))
	return nil
}
