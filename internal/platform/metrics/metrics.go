package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login outcomes recorded on LoginsTotal.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeLocked  = "locked"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	RegistrationsTotal prometheus.Counter
	LoginsTotal        *prometheus.CounterVec
	LeadsDeletedTotal  prometheus.Counter
	LockoutsTotal      prometheus.Counter
	HTTPDuration       *prometheus.HistogramVec
}

// New creates and registers all metrics on a dedicated registry, so tests can
// build as many instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RegistrationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "leaddesk_registrations_total",
			Help: "Total number of leads registered",
		}),
		LoginsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leaddesk_admin_logins_total",
			Help: "Admin login attempts by outcome",
		}, []string{"outcome"}),
		LeadsDeletedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "leaddesk_leads_deleted_total",
			Help: "Total number of leads deleted by an admin",
		}),
		LockoutsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "leaddesk_admin_lockouts_total",
			Help: "Number of times a client was locked out of admin login",
		}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leaddesk_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) IncrementRegistrations() {
	m.RegistrationsTotal.Inc()
}

func (m *Metrics) IncrementLogins(outcome string) {
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementLeadsDeleted() {
	m.LeadsDeletedTotal.Inc()
}

func (m *Metrics) IncrementLockouts() {
	m.LockoutsTotal.Inc()
}

// Handler serves the Prometheus exposition format for this instance.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request latency labelled with the chi route pattern,
// which keeps label cardinality bounded for paths like /api/admin/users/{id}.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
