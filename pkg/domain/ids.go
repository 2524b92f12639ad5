package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "leaddesk/pkg/domain-errors"
)

// SessionID identifies an admin session. It is also the "jti" of the
// credential issued for that session.
type SessionID uuid.UUID

// NewSessionID returns a fresh random session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

func (s SessionID) String() string {
	return uuid.UUID(s).String()
}

func (s SessionID) IsNil() bool {
	return uuid.UUID(s) == uuid.Nil
}

func (s SessionID) MarshalText() ([]byte, error) {
	return uuid.UUID(s).MarshalText()
}

func (s *SessionID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(s).UnmarshalText(data)
}

// ParseSessionID parses a non-nil UUID session identifier.
func ParseSessionID(s string) (SessionID, error) {
	if s == "" {
		return SessionID{}, dErrors.New(dErrors.CodeValidation, "session ID required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, dErrors.New(dErrors.CodeValidation, "invalid session ID")
	}
	if parsed == uuid.Nil {
		return SessionID{}, dErrors.New(dErrors.CodeValidation, "invalid session ID")
	}
	return SessionID(parsed), nil
}

// RecordID identifies a stored lead. Its concrete shape depends on the
// backing store (UUID or Mongo ObjectID hex), so it is kept opaque here and
// each store decides whether a given value can exist.
type RecordID string

const maxRecordIDLength = 64

func (r RecordID) String() string {
	return string(r)
}

// ParseRecordID accepts identifiers made of ASCII letters, digits and hyphens.
func ParseRecordID(s string) (RecordID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "record ID required")
	}
	if len(s) > maxRecordIDLength {
		return "", dErrors.New(dErrors.CodeValidation, "invalid record ID")
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
		default:
			return "", dErrors.New(dErrors.CodeValidation, "invalid record ID")
		}
	}
	return RecordID(s), nil
}
