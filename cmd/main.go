package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mrvlstats/tournament-core/brackets"
	"github.com/mrvlstats/tournament-core/config"
	"github.com/mrvlstats/tournament-core/db"
	"github.com/mrvlstats/tournament-core/events"
	"github.com/mrvlstats/tournament-core/handlers"
	"github.com/mrvlstats/tournament-core/middleware"
	"github.com/mrvlstats/tournament-core/repositories"
	"github.com/mrvlstats/tournament-core/routes"
	"github.com/mrvlstats/tournament-core/services"
	"github.com/mrvlstats/tournament-core/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	var uploader storage.FileUploader = storage.NopUploader{}
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("object storage not configured, snapshot archiving disabled")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATSURL != "" {
		jsPublisher, err := events.NewJetStreamPublisher(events.DefaultJetStreamConfig(cfg.NATSURL), logger)
		if err != nil {
			logger.Error("failed to connect to NATS", slog.Any("error", err))
			os.Exit(1)
		}
		defer jsPublisher.Close()
		publisher = jsPublisher
		logger.Info("JetStream publisher initialized", slog.String("url", cfg.NATSURL))
	} else {
		logger.Warn("NATS_URL not set, event publishing disabled")
	}

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()

	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	bracketRepo := repositories.NewPostgresBracketRepository(dbConn)
	swissRepo := repositories.NewPostgresSwissStandingRepository(dbConn)
	ratingHistoryRepo := repositories.NewPostgresRatingHistoryRepository(dbConn)
	leaderboardRepo := repositories.NewPostgresLeaderboardRepository(dbConn)

	clock := clockwork.NewRealClock()

	ratingService := services.NewRatingService(dbConn, teamRepo, playerRepo, matchRepo, ratingHistoryRepo, logger)
	bracketService := services.NewBracketService(dbConn, bracketRepo, matchRepo, teamRepo, swissRepo, logger)
	swissService := services.NewSwissService(bracketRepo, matchRepo, swissRepo, logger)
	matchService := services.NewMatchService(
		dbConn, matchRepo, bracketRepo,
		ratingService, bracketService, swissService,
		publisher, wsHub, clock, logger,
	)
	standingsService := services.NewStandingsService(teamRepo, playerRepo, leaderboardRepo, uploader, clock, logger)
	teamService := services.NewTeamService(teamRepo, playerRepo, uploader, logger)
	logger.Info("services initialized")

	// Periodic leaderboard projection.
	snapshotCtx, stopSnapshots := context.WithCancel(context.Background())
	defer stopSnapshots()
	go func() {
		ticker := clock.NewTicker(cfg.SnapshotInterval)
		defer ticker.Stop()
		logger.Info("leaderboard snapshot scheduler started",
			slog.Duration("interval", cfg.SnapshotInterval))
		for {
			select {
			case <-ticker.Chan():
				if _, err := standingsService.SnapshotLeaderboards(snapshotCtx); err != nil {
					logger.Error("scheduled leaderboard snapshot failed", slog.Any("error", err))
				}
			case <-snapshotCtx.Done():
				return
			}
		}
	}()

	auth := middleware.NewAuthenticator(cfg.JWTSecretKey)
	router := routes.NewRouter(routes.Handlers{
		Teams:        handlers.NewTeamHandler(teamService),
		Matches:      handlers.NewMatchHandler(matchService),
		Brackets:     handlers.NewBracketHandler(bracketService, swissService, matchService),
		Ratings:      handlers.NewRatingHandler(ratingService),
		Leaderboards: handlers.NewLeaderboardHandler(standingsService),
		WebSocket:    handlers.NewWebSocketHandler(wsHub, logger),
	}, auth)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			server.Close()
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
}
