package handlers

import (
	"net/http"
	"strconv"

	"github.com/mrvlstats/tournament-core/models"
	"github.com/mrvlstats/tournament-core/services"
)

type LeaderboardHandler struct {
	standingsService services.StandingsService
}

func NewLeaderboardHandler(standingsService services.StandingsService) *LeaderboardHandler {
	return &LeaderboardHandler{standingsService: standingsService}
}

func limitQuery(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 500 {
		return 0, false
	}
	return n, true
}

func (h *LeaderboardHandler) Teams(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitQuery(r)
	if !ok {
		badRequestResponse(w, r, errInvalidQuery("limit"))
		return
	}
	var region *models.Region
	if raw := r.URL.Query().Get("region"); raw != "" {
		reg := models.Region(raw)
		region = &reg
	}

	entries, err := h.standingsService.GetTeamLeaderboard(r.Context(), region, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": entries}, nil)
}

func (h *LeaderboardHandler) Players(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitQuery(r)
	if !ok {
		badRequestResponse(w, r, errInvalidQuery("limit"))
		return
	}
	role, ok := models.ParsePlayerRole(r.URL.Query().Get("role"))
	if !ok {
		badRequestResponse(w, r, errInvalidQuery("role"))
		return
	}

	players, err := h.standingsService.GetPlayerLeaderboard(r.Context(), role, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"leaderboard": players}, nil)
}

func (h *LeaderboardHandler) LatestSnapshot(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = services.ScopeGlobal
	}
	snapshot, err := h.standingsService.GetLatestSnapshot(r.Context(), scope)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"snapshot": snapshot}, nil)
}

func (h *LeaderboardHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.standingsService.SnapshotLeaderboards(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"snapshot": snapshot}, nil)
}
