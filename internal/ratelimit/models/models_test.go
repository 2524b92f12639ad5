package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuthLockout(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(time.Minute)
	l := &AuthLockout{FailureCount: 3, FirstFailureAt: now.Add(-10 * time.Minute), LockedUntil: &until}

	assert.True(t, l.IsLockedAt(now))
	assert.False(t, l.IsLockedAt(until))
	assert.False(t, l.WindowElapsedAt(now, 15*time.Minute))
	assert.True(t, l.WindowElapsedAt(now, 10*time.Minute))
	assert.False(t, l.IsAttemptLimitReached(5))
	assert.True(t, l.IsAttemptLimitReached(3))
	assert.Equal(t, 2, l.RemainingAttempts(5))
	assert.Equal(t, 0, l.RemainingAttempts(1))
}

func TestNewAuthLockoutKey(t *testing.T) {
	assert.Equal(t, "auth_lockout:admin:203.0.113.9", NewAuthLockoutKey("203.0.113.9"))
	assert.Equal(t, "auth_lockout:admin:2001_db8__1", NewAuthLockoutKey("2001:db8::1"))
	assert.Equal(t, "auth_lockout:admin:unknown", NewAuthLockoutKey(""))
}
