package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mrvlstats/tournament-core/services"
)

type RatingHandler struct {
	ratingService services.RatingService
}

func NewRatingHandler(ratingService services.RatingService) *RatingHandler {
	return &RatingHandler{ratingService: ratingService}
}

// GetTeamRating serves the current rating, or a point-in-time rating when
// the as_of query parameter (RFC 3339) is present.
func (h *RatingHandler) GetTeamRating(w http.ResponseWriter, r *http.Request) {
	teamID, err := idParam(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var asOf *time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequestResponse(w, r, errInvalidQuery("as_of"))
			return
		}
		asOf = &t
	}

	snapshot, err := h.ratingService.GetTeamRating(r.Context(), teamID, asOf)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"rating": snapshot}, nil)
}

func (h *RatingHandler) PredictMatch(w http.ResponseWriter, r *http.Request) {
	team1, err1 := strconv.Atoi(r.URL.Query().Get("team1"))
	team2, err2 := strconv.Atoi(r.URL.Query().Get("team2"))
	if err1 != nil || err2 != nil || team1 < 1 || team2 < 1 {
		badRequestResponse(w, r, errInvalidQuery("team1/team2"))
		return
	}

	prediction, err := h.ratingService.PredictMatch(r.Context(), team1, team2)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"prediction": prediction}, nil)
}

// Recalculate wipes the rating ledger and replays every completed match.
// Heavyweight, admin only.
func (h *RatingHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	if err := h.ratingService.RecalculateAll(r.Context()); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{"status": "recalculated"}, nil)
}
