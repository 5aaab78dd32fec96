package handlers

import (
	"net/http"
	"strconv"

	"github.com/mrvlstats/tournament-core/models"
	"github.com/mrvlstats/tournament-core/services"
)

type BracketHandler struct {
	bracketService services.BracketService
	swissService   services.SwissService
	matchService   services.MatchService
}

func NewBracketHandler(
	bracketService services.BracketService,
	swissService services.SwissService,
	matchService services.MatchService,
) *BracketHandler {
	return &BracketHandler{
		bracketService: bracketService,
		swissService:   swissService,
		matchService:   matchService,
	}
}

type createStageRequest struct {
	EventID int                `json:"event_id"`
	Name    string             `json:"name"`
	Type    models.StageType   `json:"type"`
	Config  models.StageConfig `json:"config"`
	TeamIDs []int              `json:"team_ids"`
}

func (h *BracketHandler) CreateStage(w http.ResponseWriter, r *http.Request) {
	var req createStageRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	stage := &models.BracketStage{
		EventID: req.EventID,
		Name:    req.Name,
		Type:    req.Type,
		Config:  req.Config,
	}
	view, err := h.bracketService.CreateStage(r.Context(), stage, req.TeamIDs)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, jsonResponse{"bracket": view}, nil)
}

func (h *BracketHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	stageID, err := idParam(r, "stageID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	view, err := h.bracketService.GetBracketView(r.Context(), stageID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"bracket": view}, nil)
}

func (h *BracketHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	stageID, err := idParam(r, "stageID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	standings, err := h.swissService.GetStandings(r.Context(), stageID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil)
}

func (h *BracketHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	stageID, err := idParam(r, "stageID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var round *int
	if raw := r.URL.Query().Get("round"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequestResponse(w, r, errInvalidQuery("round"))
			return
		}
		round = &n
	}
	var status *models.MatchStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := models.MatchStatus(raw)
		status = &st
	}

	matches, err := h.matchService.ListByStage(r.Context(), stageID, round, status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil)
}
