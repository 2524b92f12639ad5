package jwttoken

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "leaddesk/pkg/domain"
	dErrors "leaddesk/pkg/domain-errors"
)

var jwtService = NewJWTService(
	"test-signing-key",
	"leaddesk",
	"leaddesk-admin",
)

func Test_GenerateAdminToken(t *testing.T) {
	sessionID := id.NewSessionID()
	expiresAt := time.Now().Add(time.Hour)

	token, err := jwtService.GenerateAdminToken("admin", sessionID, expiresAt)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username())
	got, err := claims.SessionID()
	require.NoError(t, err)
	assert.Equal(t, sessionID, got)
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt.Time, time.Second)
}

func Test_TokensAreUniquePerSession(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour)
	a, err := jwtService.GenerateAdminToken("admin", id.NewSessionID(), expiresAt)
	require.NoError(t, err)
	b, err := jwtService.GenerateAdminToken("admin", id.NewSessionID(), expiresAt)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "invalid token")
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := issued
	svc := NewJWTService("test-signing-key", "leaddesk", "leaddesk-admin", WithClock(func() time.Time { return now }))

	token, err := svc.GenerateAdminToken("admin", id.NewSessionID(), issued.Add(time.Hour))
	require.NoError(t, err)

	now = issued.Add(2 * time.Hour)
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "token has expired")
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	token, err := NewJWTService("other-key", "leaddesk", "leaddesk-admin").
		GenerateAdminToken("admin", id.NewSessionID(), time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_TamperedPayload(t *testing.T) {
	token, err := jwtService.GenerateAdminToken("admin", id.NewSessionID(), time.Now().Add(time.Hour))
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	forged := parts[0] + "." + parts[1] + "x." + parts[2]

	_, err = jwtService.ValidateToken(forged)
	require.Error(t, err)
}

func Test_ValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "admin",
		ID:        id.NewSessionID().String(),
		Issuer:    "leaddesk",
		Audience:  []string{"leaddesk-admin"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(signed)
	require.Error(t, err)
}

func Test_ValidateToken_WrongAudience(t *testing.T) {
	token, err := NewJWTService("test-signing-key", "leaddesk", "someone-else").
		GenerateAdminToken("admin", id.NewSessionID(), time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = jwtService.ValidateToken(token)
	require.Error(t, err)
}
