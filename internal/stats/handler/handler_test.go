package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimcheck/internal/stats"
)

func TestHandleStats(t *testing.T) {
	agg := stats.NewAggregator()
	router := chi.NewRouter()
	New(agg).Register(router)

	t.Run("empty aggregator", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/eligibility_stats", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp StatsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Zero(t, resp.TotalSearches)
		assert.Equal(t, 0.0, resp.ApprovalRate)
		assert.Nil(t, resp.LastUpdated)
	})

	t.Run("after recording verdicts", func(t *testing.T) {
		agg.Record(true, "flight_cancelled")
		agg.Record(false, "no_disruption")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/eligibility_stats", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp StatsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, uint64(2), resp.TotalSearches)
		assert.Equal(t, uint64(1), resp.EligibleClaims)
		assert.InDelta(t, 0.5, resp.ApprovalRate, 1e-9)
		assert.Equal(t, uint64(1), resp.CommonReasons["flight_cancelled"])
		assert.NotNil(t, resp.LastUpdated)
	})
}
