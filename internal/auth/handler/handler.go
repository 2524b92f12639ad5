package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"leaddesk/internal/auth/models"
	dErrors "leaddesk/pkg/domain-errors"
	"leaddesk/pkg/platform/httputil"
	authmw "leaddesk/pkg/platform/middleware/auth"
	request "leaddesk/pkg/platform/middleware/request"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

// Service is the admin session authority.
type Service interface {
	Authenticate(ctx context.Context, req *models.LoginRequest) (*models.LoginResult, error)
	Logout(ctx context.Context, credential string) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register wires the admin session routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/login", h.HandleLogin)
	r.Post("/admin/logout", h.HandleLogout)
}

// HandleLogin exchanges {username, password} for a credential.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	var req models.LoginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, models.MessageInvalidCredentials))
		return
	}

	result, err := h.service.Authenticate(ctx, &req)
	if err != nil {
		var retry *models.RetryAfterError
		if errors.As(err, &retry) {
			w.Header().Set("Retry-After", strconv.Itoa(retry.RetryAfterSeconds()))
		}
		if !dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.WarnContext(ctx, "admin login rejected",
				"error", err,
				"request_id", requestID,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.LoginResponse{
		Success:   true,
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

// HandleLogout ends the session behind the presented credential.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	credential := authmw.CredentialFromRequest(r)
	if credential == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Unauthorized"))
		return
	}

	if err := h.service.Logout(ctx, credential); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			h.logger.WarnContext(ctx, "logout rejected",
				"error", err,
				"request_id", request.GetRequestID(ctx),
			)
			err = dErrors.Wrap(err, dErrors.CodeUnauthorized, "Unauthorized")
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.LogoutResponse{
		Success: true,
		Message: models.MessageLoggedOut,
	})
}
