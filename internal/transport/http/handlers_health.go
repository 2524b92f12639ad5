package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	dErrors "leaddesk/pkg/domain-errors"
	"leaddesk/pkg/platform/httputil"
	request "leaddesk/pkg/platform/middleware/request"
)

const readinessTimeout = 2 * time.Second

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Success bool `json:"success"`
}

type healthHandler struct {
	readiness Pinger
	logger    *slog.Logger
}

func newHealthHandler(readiness Pinger, logger *slog.Logger) *healthHandler {
	return &healthHandler{readiness: readiness, logger: logger}
}

func (h *healthHandler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, healthResponse{Success: true})
}

// HandleReadiness answers 503 while the record store is unreachable.
func (h *healthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	if h.readiness != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()
		if err := h.readiness.Ping(ctx); err != nil {
			h.logger.ErrorContext(ctx, "readiness check failed",
				"error", err,
				"request_id", request.GetRequestID(ctx),
			)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, httputil.ErrorResponse{
				Success: false,
				Message: "Service unavailable",
				Error:   string(dErrors.CodeInternal),
			})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, healthResponse{Success: true})
}
