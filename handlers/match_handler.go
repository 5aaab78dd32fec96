package handlers

import (
	"net/http"
	"time"

	"github.com/mrvlstats/tournament-core/models"
	"github.com/mrvlstats/tournament-core/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

type createMatchRequest struct {
	EventID     *int          `json:"event_id"`
	Team1ID     int           `json:"team1_id"`
	Team2ID     int           `json:"team2_id"`
	BestOf      models.BestOf `json:"best_of"`
	ScheduledAt *time.Time    `json:"scheduled_at"`
}

func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match := &models.Match{
		EventID: req.EventID,
		Team1ID: req.Team1ID,
		Team2ID: req.Team2ID,
		Format:  req.BestOf,
	}
	if req.ScheduledAt != nil {
		match.ScheduledAt = *req.ScheduledAt
	}
	if err := h.matchService.CreateMatch(r.Context(), match); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil)
}

func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	match, err := h.matchService.GetMatch(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
}

type setStatusRequest struct {
	Status models.MatchStatus `json:"status"`
}

func (h *MatchHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var req setStatusRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.matchService.SetStatus(r.Context(), id, req.Status); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"match_id": id, "status": req.Status}, nil)
}

type resultRequest struct {
	Team1Score int `json:"team1_score"`
	Team2Score int `json:"team2_score"`
}

func (h *MatchHandler) SubmitResult(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var req resultRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.matchService.CompleteMatch(r.Context(),
		id, models.MapScore{Team1: req.Team1Score, Team2: req.Team2Score})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"result": summary}, nil)
}

func (h *MatchHandler) CorrectResult(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var req resultRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	summary, err := h.matchService.CorrectResult(r.Context(),
		id, models.MapScore{Team1: req.Team1Score, Team2: req.Team2Score})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"result": summary}, nil)
}
