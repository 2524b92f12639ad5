// Package metadata records who is calling: the client IP used for login
// lockout and the User-Agent used to label admin sessions.
package metadata

import (
	"net"
	"net/http"
	"strings"

	"leaddesk/pkg/requestcontext"
)

const unknownIP = "unknown"

// ClientMetadata stores the client IP and User-Agent in the request context.
// Forwarding headers are honoured only when trustProxy is set; otherwise any
// client could pick its own lockout bucket.
func ClientMetadata(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithClientMetadata(r.Context(), ClientIP(r, trustProxy), r.Header.Get("User-Agent"))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP resolves the caller address. With trustProxy the left-most
// X-Forwarded-For entry wins, then X-Real-IP.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	if r.RemoteAddr == "" {
		return unknownIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
