// Package requesttime pins one "now" per request, so session expiry,
// lockout windows and audit timestamps agree with each other.
package requesttime

import (
	"net/http"
	"time"

	"leaddesk/pkg/requestcontext"
)

// New returns middleware stamping each request with now(). A nil clock
// means time.Now.
func New(now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
