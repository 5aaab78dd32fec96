package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mrvlstats/tournament-core/handlers"
	"github.com/mrvlstats/tournament-core/middleware"
)

type Handlers struct {
	Teams        *handlers.TeamHandler
	Matches      *handlers.MatchHandler
	Brackets     *handlers.BracketHandler
	Ratings      *handlers.RatingHandler
	Leaderboards *handlers.LeaderboardHandler
	WebSocket    *handlers.WebSocketHandler
}

// NewRouter mounts the public read API, the websocket endpoint and the
// JWT-guarded admin API.
func NewRouter(h Handlers, auth *middleware.Authenticator) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Public read API.
	r.Group(func(r chi.Router) {
		r.Get("/teams/{teamID}", h.Teams.Get)
		r.Get("/teams/{teamID}/rating", h.Ratings.GetTeamRating)
		r.Get("/matches/{matchID}", h.Matches.Get)
		r.Get("/predictions", h.Ratings.PredictMatch)
		r.Get("/stages/{stageID}/bracket", h.Brackets.GetBracket)
		r.Get("/stages/{stageID}/standings", h.Brackets.GetStandings)
		r.Get("/stages/{stageID}/matches", h.Brackets.ListMatches)
		r.Get("/leaderboards/teams", h.Leaderboards.Teams)
		r.Get("/leaderboards/players", h.Leaderboards.Players)
		r.Get("/leaderboards/snapshots/latest", h.Leaderboards.LatestSnapshot)
	})

	r.Get("/ws/stages/{stageID}", h.WebSocket.ServeStage)

	// Admin API: tournament operations.
	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(middleware.Authorize(middleware.RoleAdmin, middleware.RoleOperator))

		r.Post("/teams", h.Teams.Create)
		r.Post("/teams/{teamID}/logo", h.Teams.UploadLogo)
		r.Post("/matches", h.Matches.Create)
		r.Post("/matches/{matchID}/status", h.Matches.SetStatus)
		r.Post("/matches/{matchID}/result", h.Matches.SubmitResult)
		r.Patch("/matches/{matchID}/result", h.Matches.CorrectResult)
		r.Post("/stages", h.Brackets.CreateStage)
	})

	// Admin API: destructive maintenance, admin role only.
	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Use(middleware.Authorize(middleware.RoleAdmin))

		r.Post("/admin/ratings/recalculate", h.Ratings.Recalculate)
		r.Post("/admin/leaderboards/snapshot", h.Leaderboards.Snapshot)
	})

	return r
}
