package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	dErrors "leaddesk/pkg/domain-errors"
	"leaddesk/pkg/platform/httputil"
	authmw "leaddesk/pkg/platform/middleware/auth"
	"leaddesk/pkg/platform/middleware/metadata"
	request "leaddesk/pkg/platform/middleware/request"
	"leaddesk/pkg/platform/middleware/requesttime"
)

// RouteRegistrar is implemented by every feature handler.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// MetricsRecorder serves /metrics and observes request latency.
type MetricsRecorder interface {
	Handler() http.Handler
	Middleware(next http.Handler) http.Handler
}

// Deps is everything the router mounts. A nil Clock stamps requests with
// time.Now.
type Deps struct {
	Logger              *slog.Logger
	Metrics             MetricsRecorder
	RequestTimeout      time.Duration
	AllowedOrigins      []string
	TrustProxyHeaders   bool
	Clock               func() time.Time
	CredentialValidator authmw.CredentialValidator
	Readiness           Pinger

	Registration RouteRegistrar
	Auth         RouteRegistrar
	Admin        RouteRegistrar
}

// NewRouter builds the HTTP surface: public routes under /api, admin
// routes behind the credential middleware, and /metrics.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata(d.TrustProxyHeaders))
	r.Use(requesttime.New(d.Clock))
	r.Use(request.Recovery(d.Logger))
	r.Use(request.Logger(d.Logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", authmw.HeaderAdminToken, request.HeaderRequestID},
		ExposedHeaders: []string{request.HeaderRequestID, "Retry-After"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeMethodNotAllowed, "Method not allowed"))
	})

	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(request.Timeout(d.RequestTimeout))
		r.Use(request.ContentTypeJSON)

		health := newHealthHandler(d.Readiness, d.Logger)
		r.Get("/health", health.HandleLiveness)
		r.Get("/health/ready", health.HandleReadiness)

		d.Registration.Register(r)
		d.Auth.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAdmin(d.CredentialValidator, d.Logger))
			d.Admin.Register(r)
		})
	})

	return r
}
