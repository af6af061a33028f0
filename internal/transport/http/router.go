// Package httptransport assembles the public HTTP API from the per-feature
// handlers. It owns routing and middleware only; behavior lives in the
// feature packages.
package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"claimcheck/pkg/platform/httputil"
	"claimcheck/pkg/platform/middleware/metadata"
	"claimcheck/pkg/platform/middleware/requestid"
	"claimcheck/pkg/platform/middleware/requesttime"
)

// Version is the reported service version, overridable at build time with
// -ldflags "-X claimcheck/internal/transport/http.Version=...".
var Version = "dev"

// Registrar is implemented by feature handlers that mount routes.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter builds the service router with the standard middleware chain and
// every feature handler mounted at the root.
func NewRouter(handlers ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(r)
	}

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"service": "claimcheck",
		"status":  "healthy",
		"version": Version,
	})
}
