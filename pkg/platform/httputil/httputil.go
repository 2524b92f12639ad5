// Package httputil writes the JSON envelopes shared by every endpoint:
// {"success":true,...} on success and {"success":false,"message","error"} on failure.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	dErrors "leaddesk/pkg/domain-errors"
)

// MaxBodyBytes caps request bodies decoded by DecodeJSON.
const MaxBodyBytes = 1 << 20

const internalMessage = "Internal server error"

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into its status and envelope.
// Internal errors never expose their message or cause.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	message := internalMessage

	var de *dErrors.Error
	if errors.As(err, &de) && de.Code != dErrors.CodeInternal {
		code = de.Code
		message = de.Message
	}

	WriteJSON(w, dErrors.ToHTTPStatus(code), ErrorResponse{
		Success: false,
		Message: message,
		Error:   string(code),
	})
}

// DecodeJSON decodes a bounded JSON body into dst. Malformed bodies become
// validation errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return dErrors.New(dErrors.CodeValidation, "request body is required")
		}
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid request body")
	}
	return nil
}
