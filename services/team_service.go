package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mrvlstats/tournament-core/models"
	"github.com/mrvlstats/tournament-core/repositories"
	"github.com/mrvlstats/tournament-core/storage"
)

type TeamService interface {
	CreateTeam(ctx context.Context, team *models.Team) error
	// GetTeam returns the team with its roster and a resolved logo URL.
	GetTeam(ctx context.Context, id int) (*models.Team, error)
	UploadLogo(ctx context.Context, teamID int, contentType string, reader io.Reader) (string, error)
}

type teamService struct {
	teamRepo   repositories.TeamRepository
	playerRepo repositories.PlayerRepository
	uploader   storage.FileUploader
	logger     *slog.Logger
}

func NewTeamService(
	teamRepo repositories.TeamRepository,
	playerRepo repositories.PlayerRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TeamService {
	return &teamService{
		teamRepo:   teamRepo,
		playerRepo: playerRepo,
		uploader:   uploader,
		logger:     logger,
	}
}

func (s *teamService) CreateTeam(ctx context.Context, team *models.Team) error {
	if team.Name == "" {
		return fmt.Errorf("%w: team name is required", ErrInvalidInput)
	}
	if team.Rating == 0 {
		team.Rating = InitialRating
		team.PeakRating = InitialRating
	}
	if err := s.teamRepo.Create(ctx, nil, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return err
		}
		return fmt.Errorf("create team: %w", err)
	}
	return nil
}

func (s *teamService) GetTeam(ctx context.Context, id int) (*models.Team, error) {
	var (
		team    *models.Team
		players []*models.Player
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		team, err = s.teamRepo.GetByID(gctx, nil, id)
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return fmt.Errorf("%w: team %d", ErrNotFound, id)
		}
		return err
	})
	g.Go(func() error {
		var err error
		players, err = s.playerRepo.ListByTeam(gctx, nil, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	team.Players = make([]models.Player, 0, len(players))
	for _, p := range players {
		team.Players = append(team.Players, *p)
	}
	if team.LogoKey != nil {
		if url := s.uploader.GetPublicURL(*team.LogoKey); url != "" {
			team.LogoURL = &url
		}
	}
	return team, nil
}

func (s *teamService) UploadLogo(ctx context.Context, teamID int, contentType string, reader io.Reader) (string, error) {
	if _, err := s.teamRepo.GetByID(ctx, nil, teamID); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return "", fmt.Errorf("%w: team %d", ErrNotFound, teamID)
		}
		return "", err
	}

	key := fmt.Sprintf("logos/team-%d", teamID)
	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := s.teamRepo.SetLogoKey(ctx, nil, teamID, result.Key); err != nil {
		return "", fmt.Errorf("persist logo key: %w", err)
	}
	s.logger.Info("team logo uploaded", slog.Int("team_id", teamID), slog.String("key", result.Key))
	return result.Location, nil
}
