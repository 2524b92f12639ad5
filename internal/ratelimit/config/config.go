package config

import "time"

// AuthLockoutConfig controls how many failed admin logins a client may make
// before being locked out, and for how long.
type AuthLockoutConfig struct {
	AttemptsPerWindow int
	WindowDuration    time.Duration
}

func DefaultAuthLockoutConfig() AuthLockoutConfig {
	return AuthLockoutConfig{
		AttemptsPerWindow: 5,
		WindowDuration:    15 * time.Minute,
	}
}
