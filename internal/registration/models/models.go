package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "leaddesk/pkg/domain"
	dErrors "leaddesk/pkg/domain-errors"
)

// Field limits applied at the registration boundary.
const (
	MaxFullNameLength     = 200
	MaxReferralNameLength = 200
	MinPhoneDigits        = 5
	MaxPhoneDigits        = 20
)

// Record is a stored lead. Records are never mutated after insert.
type Record struct {
	ID           id.RecordID
	FullName     string
	PhoneNumber  string
	ReferralName *string
	CreatedAt    time.Time
}

// NewRecord is the validated input to a store insert; the store assigns ID
// and CreatedAt.
type NewRecord struct {
	FullName     string
	PhoneNumber  string
	ReferralName *string
}

// RegisterRequest is the public registration payload.
type RegisterRequest struct {
	FullName     string  `json:"fullName"`
	PhoneNumber  string  `json:"phoneNumber"`
	ReferralName *string `json:"referralName"`
}

// Normalize trims fields, strips phone separators and collapses a blank
// referral name to nil.
func (r *RegisterRequest) Normalize() {
	if r == nil {
		return
	}
	r.FullName = strings.TrimSpace(r.FullName)
	r.PhoneNumber = StripPhoneSeparators(r.PhoneNumber)
	if r.ReferralName != nil {
		trimmed := strings.TrimSpace(*r.ReferralName)
		if trimmed == "" {
			r.ReferralName = nil
		} else {
			r.ReferralName = &trimmed
		}
	}
}

// Validate expects a normalized request.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeValidation, "request is required")
	}
	if r.FullName == "" || r.PhoneNumber == "" {
		return dErrors.New(dErrors.CodeValidation, "fullName and phoneNumber are required")
	}
	if utf8.RuneCountInString(r.FullName) > MaxFullNameLength {
		return dErrors.New(dErrors.CodeValidation, "fullName must be at most 200 characters")
	}
	if !isDigits(r.PhoneNumber) {
		return dErrors.New(dErrors.CodeValidation, "phoneNumber must contain only digits")
	}
	if n := len(r.PhoneNumber); n < MinPhoneDigits || n > MaxPhoneDigits {
		return dErrors.New(dErrors.CodeValidation, "phoneNumber must have between 5 and 20 digits")
	}
	if r.ReferralName != nil && utf8.RuneCountInString(*r.ReferralName) > MaxReferralNameLength {
		return dErrors.New(dErrors.CodeValidation, "referralName must be at most 200 characters")
	}
	return nil
}

// ToNewRecord converts a validated request into a store insert.
func (r *RegisterRequest) ToNewRecord() NewRecord {
	return NewRecord{
		FullName:     r.FullName,
		PhoneNumber:  r.PhoneNumber,
		ReferralName: r.ReferralName,
	}
}

// StripPhoneSeparators removes surrounding whitespace and the separators
// people type into phone numbers: spaces, hyphens and parentheses.
func StripPhoneSeparators(phone string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(phone))
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// RecordResponse is the wire form of a Record. ReferralName is always
// present, as null when absent; RegistrationDate mirrors CreatedAt.
type RecordResponse struct {
	ID               string    `json:"id"`
	FullName         string    `json:"fullName"`
	PhoneNumber      string    `json:"phoneNumber"`
	ReferralName     *string   `json:"referralName"`
	CreatedAt        time.Time `json:"createdAt"`
	RegistrationDate time.Time `json:"registrationDate"`
}

func ToResponse(r *Record) RecordResponse {
	return RecordResponse{
		ID:               r.ID.String(),
		FullName:         r.FullName,
		PhoneNumber:      r.PhoneNumber,
		ReferralName:     r.ReferralName,
		CreatedAt:        r.CreatedAt,
		RegistrationDate: r.CreatedAt,
	}
}

func ToResponses(records []*Record) []RecordResponse {
	out := make([]RecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, ToResponse(r))
	}
	return out
}

// RegisterResponse is the success envelope for a registration.
type RegisterResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    RecordResponse `json:"data"`
}
