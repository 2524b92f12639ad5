package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "leaddesk/pkg/domain"
	dErrors "leaddesk/pkg/domain-errors"
	"leaddesk/pkg/platform/httputil"
	request "leaddesk/pkg/platform/middleware/request"
	"leaddesk/pkg/requestcontext"
)

// HeaderAdminToken carries the raw admin credential. Authorization: Bearer is
// accepted as well; this header wins when both are present.
const HeaderAdminToken = "X-Admin-Token"

const unauthorizedMessage = "Unauthorized"

// CredentialValidator defines the interface for validating admin credentials.
type CredentialValidator interface {
	ValidateCredential(ctx context.Context, credential string) (*AdminClaims, error)
}

// AdminClaims is what a valid credential proves.
type AdminClaims struct {
	Username  string
	SessionID id.SessionID
}

// GetAdminUsername retrieves the authenticated admin from the context.
func GetAdminUsername(ctx context.Context) string {
	return requestcontext.AdminUsername(ctx)
}

// CredentialFromRequest returns the presented credential, or "" if none.
func CredentialFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(HeaderAdminToken)); token != "" {
		return token
	}
	const bearerPrefix = "Bearer "
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// RequireAdmin rejects requests without a valid admin credential before the
// wrapped handler runs.
func RequireAdmin(validator CredentialValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := request.GetRequestID(ctx)

			credential := CredentialFromRequest(r)
			if credential == "" {
				logger.WarnContext(ctx, "unauthorized access - missing credential",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, unauthorizedMessage))
				return
			}

			claims, err := validator.ValidateCredential(ctx, credential)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
					logger.WarnContext(ctx, "unauthorized access - invalid credential",
						"error", err,
						"request_id", requestID,
					)
					err = dErrors.Wrap(err, dErrors.CodeUnauthorized, unauthorizedMessage)
				} else {
					logger.ErrorContext(ctx, "failed to validate credential",
						"error", err,
						"request_id", requestID,
					)
				}
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithAdmin(ctx, claims.Username, claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
