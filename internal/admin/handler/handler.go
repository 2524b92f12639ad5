package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leaddesk/internal/admin"
	adminsvc "leaddesk/internal/admin/service"
	regmodels "leaddesk/internal/registration/models"
	dErrors "leaddesk/pkg/domain-errors"
	"leaddesk/pkg/platform/httputil"
	request "leaddesk/pkg/platform/middleware/request"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks

// Service is the admin back office. Callers mount these routes behind the
// credential middleware.
type Service interface {
	ListAll(ctx context.Context, filter adminsvc.ListFilter) (*adminsvc.ListResult, error)
	DeleteByID(ctx context.Context, rawID string) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/users", h.HandleListUsers)
	r.Delete("/admin/users/{id}", h.HandleDeleteUser)
}

// HandleListUsers returns every lead newest first, optionally filtered by ?q=.
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.service.ListAll(ctx, adminsvc.ListFilter{Query: r.URL.Query().Get("q")})
	if err != nil {
		h.logError(ctx, "failed to list users", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, admin.UsersListResponse{
		Success: true,
		Data:    regmodels.ToResponses(result.Records),
		Total:   result.Total,
	})
}

func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.DeleteByID(ctx, chi.URLParam(r, "id")); err != nil {
		h.logError(ctx, "failed to delete user", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, admin.DeleteUserResponse{
		Success: true,
		Message: "User deleted",
	})
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", request.GetRequestID(ctx))
		return
	}
	h.logger.WarnContext(ctx, msg, "error", err, "request_id", request.GetRequestID(ctx))
}
