package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"leaddesk/internal/platform/tracing"
	"leaddesk/internal/registration/models"
	id "leaddesk/pkg/domain"
	dErrors "leaddesk/pkg/domain-errors"
	audit "leaddesk/pkg/platform/audit"
	"leaddesk/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Store persists lead records. Implementations live in registration/store.
type Store interface {
	Insert(ctx context.Context, rec models.NewRecord) (*models.Record, error)
	FindAll(ctx context.Context) ([]*models.Record, error)
	DeleteByID(ctx context.Context, recordID id.RecordID) (bool, error)
	Ping(ctx context.Context) error
}

// Metrics is the subset of platform metrics this service records.
type Metrics interface {
	IncrementRegistrations()
}

// Service accepts new leads from the public landing page.
type Service struct {
	store          Store
	logger         *slog.Logger
	metrics        Metrics
	auditPublisher audit.Publisher
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("record store is required")
	}
	svc := &Service{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: tracing.NoopTracer(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register validates req and stores exactly one record for it. Duplicate
// phone numbers are accepted.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "registration.Register")
	defer span.End()

	if req == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "fullName and phoneNumber are required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}

	rec, err := s.store.Insert(ctx, req.ToNewRecord())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		s.logger.ErrorContext(ctx, "failed to store lead",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store lead")
	}
	span.SetAttributes(attribute.String("lead.id", rec.ID.String()))

	if s.metrics != nil {
		s.metrics.IncrementRegistrations()
	}
	s.emitAudit(ctx, rec)

	return rec, nil
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) emitAudit(ctx context.Context, rec *models.Record) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.NewEvent(audit.EventLeadRegistered, rec.CreatedAt)
	event.Subject = rec.ID.String()
	event.IP = requestcontext.ClientIP(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
			"request_id", event.RequestID,
		)
	}
}
