package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leaddesk/internal/registration/models"
	dErrors "leaddesk/pkg/domain-errors"
	"leaddesk/pkg/platform/httputil"
	request "leaddesk/pkg/platform/middleware/request"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

// Service is the registration workflow behind the public endpoint.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.Record, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register wires the public registration route.
func (h *Handler) Register(r chi.Router) {
	r.Post("/register", h.HandleRegister)
}

// HandleRegister accepts {fullName, phoneNumber, referralName?}.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	var req models.RegisterRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode registration request",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.service.Register(ctx, &req)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			h.logger.WarnContext(ctx, "registration rejected",
				"error", err,
				"request_id", requestID,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "lead registered",
		"lead_id", rec.ID.String(),
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusOK, models.RegisterResponse{
		Success: true,
		Message: "Registration successful",
		Data:    models.ToResponse(rec),
	})
}
