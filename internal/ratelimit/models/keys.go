package models

import "strings"

const authLockoutKeyPrefix = "auth_lockout:admin:"

// SanitizeKeySegment escapes delimiter characters in lockout key segments
// so a crafted identifier containing ':' cannot address another key.
//
// Example: "10.0.0.1:evil" becomes "10.0.0.1_evil".
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// NewAuthLockoutKey returns the store key counting admin login failures for ip.
func NewAuthLockoutKey(ip string) string {
	if ip == "" {
		ip = "unknown"
	}
	return authLockoutKeyPrefix + SanitizeKeySegment(ip)
}
