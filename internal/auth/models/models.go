package models

import (
	"fmt"
	"strings"
	"time"

	id "leaddesk/pkg/domain"
	dErrors "leaddesk/pkg/domain-errors"
)

// Messages shown to clients. Login failures share one message so callers
// cannot tell which field was wrong.
const (
	MessageInvalidCredentials = "invalid credentials"
	MessageTooManyAttempts    = "too many failed login attempts, try again later"
	MessageLoggedOut          = "Logged out"
)

// Session is the server-side record an admin credential is bound to. A
// credential is only honoured while its session is stored.
type Session struct {
	ID                id.SessionID `json:"id"`
	Username          string       `json:"username"`
	ClientIP          string       `json:"client_ip,omitempty"`
	UserAgent         string       `json:"user_agent,omitempty"`
	DeviceDisplayName string       `json:"device_display_name,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	ExpiresAt         time.Time    `json:"expires_at"`
}

func (s *Session) IsExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TTL is the lifetime the session was issued with.
func (s *Session) TTL() time.Duration {
	return s.ExpiresAt.Sub(s.CreatedAt)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate only checks presence. The password is never trimmed.
func (r *LoginRequest) Validate() error {
	if r == nil || strings.TrimSpace(r.Username) == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, MessageInvalidCredentials)
	}
	return nil
}

// LoginResult is what a successful Authenticate returns.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Session   *Session
}

type LoginResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RetryAfterError carries how long a locked-out client has to wait. It is
// wrapped in a rate_limited domain error.
type RetryAfterError struct {
	RetryAfter time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("locked out, retry after %s", e.RetryAfter)
}

// RetryAfterSeconds rounds up so clients never retry early.
func (e *RetryAfterError) RetryAfterSeconds() int {
	secs := int(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		secs++
	}
	return max(secs, 1)
}
