package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"claimcheck/internal/eligibility"
	"claimcheck/internal/warehouse"
	"claimcheck/pkg/platform/httputil"
	"claimcheck/pkg/requestcontext"
)

// Service defines the interface for eligibility resolution.
type Service interface {
	Resolve(ctx context.Context, criteria warehouse.Criteria) (*eligibility.Outcome, error)
}

// Handler wires the search endpoint to the eligibility resolver.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an eligibility handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts eligibility endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/search", h.HandleSearch)
}

// HandleSearch handles POST /search requests.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeJSON[SearchRequest](w, r, h.logger)
	if !ok {
		return
	}

	outcome, err := h.service.Resolve(ctx, req.Criteria())
	if err != nil {
		h.logger.ErrorContext(ctx, "eligibility search failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "eligibility search resolved",
		"request_id", requestID,
		"client_ip", requestcontext.ClientIP(ctx),
		"user_agent", requestcontext.UserAgent(ctx),
		"eligible", outcome.IsEligible,
		"reason", outcome.Reason,
		"matches", len(outcome.Matches),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromOutcome(req, outcome))
}
