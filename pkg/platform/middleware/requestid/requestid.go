// Package requestid assigns a correlation ID to every inbound request.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"claimcheck/pkg/requestcontext"
)

// Header carries the request ID in requests and responses. Inbound values are
// trusted so upstream gateways can correlate across hops.
const Header = "X-Request-Id"

// Middleware attaches a request ID to the context and echoes it in the
// response headers.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(Header)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		w.Header().Set(Header, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
