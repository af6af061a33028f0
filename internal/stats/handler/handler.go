package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"claimcheck/internal/stats"
	"claimcheck/pkg/platform/httputil"
)

// Handler serves the statistics snapshot.
type Handler struct {
	aggregator *stats.Aggregator
}

func New(aggregator *stats.Aggregator) *Handler {
	return &Handler{aggregator: aggregator}
}

// Register mounts statistics endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/eligibility_stats", h.HandleStats)
}

// StatsResponse is the HTTP projection of a statistics snapshot.
type StatsResponse struct {
	TotalSearches    uint64            `json:"totalSearches"`
	EligibleClaims   uint64            `json:"eligibleClaims"`
	IneligibleClaims uint64            `json:"ineligibleClaims"`
	ApprovalRate     float64           `json:"approvalRate"`
	CommonReasons    map[string]uint64 `json:"commonReasons"`
	LastUpdated      *time.Time        `json:"lastUpdated"`
}

// HandleStats handles GET /eligibility_stats requests.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	snap := h.aggregator.Snapshot()

	resp := StatsResponse{
		TotalSearches:    snap.TotalSearches,
		EligibleClaims:   snap.EligibleClaims,
		IneligibleClaims: snap.IneligibleClaims,
		ApprovalRate:     snap.ApprovalRate,
		CommonReasons:    snap.ByReason,
	}
	if !snap.LastUpdated.IsZero() {
		t := snap.LastUpdated
		resp.LastUpdated = &t
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
