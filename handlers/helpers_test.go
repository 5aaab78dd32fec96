package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrvlstats/tournament-core/brackets"
	"github.com/mrvlstats/tournament-core/repositories"
	"github.com/mrvlstats/tournament-core/services"
)

func TestMapServiceErrorToHTTP(t *testing.T) {
	cases := []struct {
		err      error
		wantCode int
	}{
		{services.ErrNotFound, http.StatusNotFound},
		{repositories.ErrTeamNotFound, http.StatusNotFound},
		{repositories.ErrMatchNotFound, http.StatusNotFound},
		{services.ErrInvalidInput, http.StatusBadRequest},
		{services.ErrInvalidScore, http.StatusBadRequest},
		{services.ErrSelfMatch, http.StatusBadRequest},
		{brackets.ErrNotEnoughTeams, http.StatusBadRequest},
		{services.ErrMatchNotLive, http.StatusConflict},
		{services.ErrMatchCompleted, http.StatusConflict},
		{services.ErrCorrectionForbidden, http.StatusConflict},
		{repositories.ErrTeamNameConflict, http.StatusConflict},
		{services.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{services.ErrPublishFailed, http.StatusServiceUnavailable},
		{services.ErrRatingLedgerCorrupt, http.StatusInternalServerError},
		{brackets.ErrPairingInfeasible, http.StatusInternalServerError},
		// Wrapped errors keep their mapping.
		{fmt.Errorf("complete match 7: %w", services.ErrMatchNotLive), http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)

			mapServiceErrorToHTTP(rec, req, tc.err)

			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}

func TestUnavailableResponseSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	unavailableResponse(rec, req, "upstream down")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("Retry-After"))
}
