package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/mrvlstats/tournament-core/models"
	"github.com/mrvlstats/tournament-core/repositories"
	"github.com/mrvlstats/tournament-core/storage"
)

const (
	ScopeGlobal = "global"
	ScopeRegion = "region"

	defaultLeaderboardLimit = 100
)

type StandingsService interface {
	// GetTeamLeaderboard projects the current team rankings, globally or
	// for one region.
	GetTeamLeaderboard(ctx context.Context, region *models.Region, limit int) ([]models.LeaderboardEntry, error)
	GetPlayerLeaderboard(ctx context.Context, role models.PlayerRole, limit int) ([]*models.Player, error)
	// SnapshotLeaderboards captures the global and per-region leaderboards,
	// persists them and archives the global one to object storage.
	SnapshotLeaderboards(ctx context.Context) (*models.LeaderboardSnapshot, error)
	GetLatestSnapshot(ctx context.Context, scope string) (*models.LeaderboardSnapshot, error)
}

type standingsService struct {
	teamRepo        repositories.TeamRepository
	playerRepo      repositories.PlayerRepository
	leaderboardRepo repositories.LeaderboardRepository
	uploader        storage.FileUploader
	clock           clockwork.Clock
	logger          *slog.Logger
}

func NewStandingsService(
	teamRepo repositories.TeamRepository,
	playerRepo repositories.PlayerRepository,
	leaderboardRepo repositories.LeaderboardRepository,
	uploader storage.FileUploader,
	clock clockwork.Clock,
	logger *slog.Logger,
) StandingsService {
	return &standingsService{
		teamRepo:        teamRepo,
		playerRepo:      playerRepo,
		leaderboardRepo: leaderboardRepo,
		uploader:        uploader,
		clock:           clock,
		logger:          logger,
	}
}

func (s *standingsService) GetTeamLeaderboard(ctx context.Context, region *models.Region, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	teams, err := s.teamRepo.ListRanked(ctx, nil, region, limit)
	if err != nil {
		return nil, fmt.Errorf("list ranked teams: %w", err)
	}
	return projectEntries(teams), nil
}

func projectEntries(teams []*models.Team) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, 0, len(teams))
	for i, t := range teams {
		entries = append(entries, models.LeaderboardEntry{
			Rank:       i + 1,
			TeamID:     t.ID,
			Name:       t.Name,
			Region:     t.Region,
			Rating:     t.Rating,
			PeakRating: t.PeakRating,
			RankTier:   RankTier(t.Rating),
			Wins:       t.Wins,
			Losses:     t.Losses,
		})
	}
	return entries
}

func (s *standingsService) GetPlayerLeaderboard(ctx context.Context, role models.PlayerRole, limit int) ([]*models.Player, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	return s.playerRepo.ListRankedByRole(ctx, nil, role, limit)
}

func (s *standingsService) SnapshotLeaderboards(ctx context.Context) (*models.LeaderboardSnapshot, error) {
	capturedAt := s.clock.Now().UTC()

	global := &models.LeaderboardSnapshot{
		ID:         uuid.NewString(),
		Scope:      ScopeGlobal,
		CapturedAt: capturedAt,
	}
	teams, err := s.teamRepo.ListRanked(ctx, nil, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("list teams for snapshot: %w", err)
	}
	global.Entries = projectEntries(teams)
	if err := s.leaderboardRepo.SaveSnapshot(ctx, nil, global); err != nil {
		return nil, fmt.Errorf("save global snapshot: %w", err)
	}

	regions := []models.Region{models.RegionAmericas, models.RegionEMEA, models.RegionAPAC, models.RegionChina}
	g, gctx := errgroup.WithContext(ctx)
	for _, region := range regions {
		region := region
		g.Go(func() error {
			regional := make([]models.LeaderboardEntry, 0)
			for _, e := range global.Entries {
				if e.Region == region {
					regional = append(regional, e)
				}
			}
			for i := range regional {
				regional[i].Rank = i + 1
			}
			snap := &models.LeaderboardSnapshot{
				ID:         uuid.NewString(),
				Scope:      fmt.Sprintf("%s:%s", ScopeRegion, region),
				Region:     &region,
				Entries:    regional,
				CapturedAt: capturedAt,
			}
			return s.leaderboardRepo.SaveSnapshot(gctx, nil, snap)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("save regional snapshots: %w", err)
	}

	if err := s.archive(ctx, global); err != nil {
		// The snapshot is persisted; a failed archive upload is logged and
		// retried on the next run.
		s.logger.Error("failed to archive leaderboard snapshot",
			slog.String("snapshot_id", global.ID),
			slog.Any("error", err))
	}

	s.logger.Info("leaderboard snapshot captured",
		slog.String("snapshot_id", global.ID),
		slog.Int("teams", len(global.Entries)))
	return global, nil
}

func (s *standingsService) archive(ctx context.Context, snapshot *models.LeaderboardSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	key := fmt.Sprintf("leaderboards/%s/%s.json",
		snapshot.CapturedAt.Format("2006-01-02"), snapshot.ID)
	if _, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("upload snapshot archive: %w", err)
	}
	return nil
}

func (s *standingsService) GetLatestSnapshot(ctx context.Context, scope string) (*models.LeaderboardSnapshot, error) {
	snap, err := s.leaderboardRepo.GetLatestSnapshot(ctx, nil, scope)
	if err != nil {
		if errors.Is(err, repositories.ErrSnapshotNotFound) {
			return nil, fmt.Errorf("%w: no snapshot for scope %q", ErrNotFound, scope)
		}
		return nil, err
	}
	return snap, nil
}
