package models

import "time"

// AuthLockout tracks failed admin logins from one client within a window.
type AuthLockout struct {
	Identifier     string     `json:"identifier"`
	FailureCount   int        `json:"failure_count"`
	FirstFailureAt time.Time  `json:"first_failure_at"`
	LastFailureAt  time.Time  `json:"last_failure_at"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
}

// IsLockedAt reports whether the lock is in force at now.
func (l *AuthLockout) IsLockedAt(now time.Time) bool {
	return l.LockedUntil != nil && now.Before(*l.LockedUntil)
}

// WindowElapsedAt reports whether the counting window that started with the
// first failure is over.
func (l *AuthLockout) WindowElapsedAt(now time.Time, window time.Duration) bool {
	return !now.Before(l.FirstFailureAt.Add(window))
}

// IsAttemptLimitReached reports whether another failure is not allowed.
func (l *AuthLockout) IsAttemptLimitReached(limit int) bool {
	return l.FailureCount >= limit
}

// RemainingAttempts is never negative.
func (l *AuthLockout) RemainingAttempts(limit int) int {
	return max(limit-l.FailureCount, 0)
}

// LockoutStatus is the outcome of a lockout check or a recorded failure.
type LockoutStatus struct {
	Allowed      bool
	Remaining    int
	FailureCount int
	RetryAfter   time.Duration
	// JustLocked is set by RecordFailure when this failure triggered the lock.
	JustLocked bool
}
