// Package requestcontext carries request-scoped values from middleware to
// services without services importing net/http.
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithAdmin(ctx, "admin", sessionID)
package requestcontext

import (
	"context"
	"time"

	id "leaddesk/pkg/domain"
)

type (
	adminUsernameKey struct{}
	sessionIDKey     struct{}
	clientIPKey      struct{}
	userAgentKey     struct{}
	requestIDKey     struct{}
	requestTimeKey   struct{}
)

func stringValue(ctx context.Context, key any) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// AdminUsername is "" unless the request passed credential validation.
func AdminUsername(ctx context.Context) string {
	return stringValue(ctx, adminUsernameKey{})
}

// SessionID is the zero id outside an authenticated admin request.
func SessionID(ctx context.Context) id.SessionID {
	sid, _ := ctx.Value(sessionIDKey{}).(id.SessionID)
	return sid
}

// WithAdmin records the validated admin identity.
func WithAdmin(ctx context.Context, username string, sessionID id.SessionID) context.Context {
	ctx = context.WithValue(ctx, adminUsernameKey{}, username)
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

func ClientIP(ctx context.Context) string {
	return stringValue(ctx, clientIPKey{})
}

func UserAgent(ctx context.Context) string {
	return stringValue(ctx, userAgentKey{})
}

func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

func RequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey{})
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now is the request-scoped clock, falling back to time.Now outside HTTP
// requests.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
