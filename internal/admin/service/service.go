package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"leaddesk/internal/platform/tracing"
	"leaddesk/internal/registration/models"
	id "leaddesk/pkg/domain"
	dErrors "leaddesk/pkg/domain-errors"
	audit "leaddesk/pkg/platform/audit"
	"leaddesk/pkg/platform/sentinel"
	"leaddesk/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

const messageNotFound = "User not found"

// RecordStore is the admin view of the lead store. Delete returns an error
// wrapping sentinel.ErrNotFound when nothing was removed.
type RecordStore interface {
	ListAll(ctx context.Context) ([]*models.Record, error)
	Delete(ctx context.Context, recordID id.RecordID) error
}

type Metrics interface {
	IncrementLeadsDeleted()
}

// ListFilter narrows ListAll. The zero value returns everything.
type ListFilter struct {
	// Query matches fullName case-insensitively or phoneNumber digits.
	Query string
}

type ListResult struct {
	Records []*models.Record
	// Total is the number of stored leads before filtering.
	Total int
}

// Service backs the admin dashboard. Every operation requires an
// authenticated admin in the context.
type Service struct {
	store          RecordStore
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

func New(store RecordStore, opts ...Option) (*Service, error) {
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

// ListAll returns leads newest first.
func (s *Service) ListAll(ctx context.Context, filter ListFilter) (*ListResult, error) {
	ctx, span := s.tracer.Start(ctx, "admin.ListAll")
	defer span.End()

	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}

	records, err := s.store.ListAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		s.logger.ErrorContext(ctx, "failed to list leads",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list leads")
	}

	result := &ListResult{Records: records, Total: len(records)}
	if q := strings.TrimSpace(filter.Query); q != "" {
		result.Records = filterRecords(records, q)
	}
	span.SetAttributes(attribute.Int("leads.total", result.Total), attribute.Int("leads.returned", len(result.Records)))
	return result, nil
}

// DeleteByID removes one lead. Unknown or malformed ids are NotFound.
func (s *Service) DeleteByID(ctx context.Context, rawID string) error {
	ctx, span := s.tracer.Start(ctx, "admin.DeleteByID")
	defer span.End()

	if err := requireAdmin(ctx); err != nil {
		return err
	}

	recordID, err := id.ParseRecordID(rawID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeNotFound, messageNotFound)
	}
	span.SetAttributes(attribute.String("lead.id", recordID.String()))

	if err := s.store.Delete(ctx, recordID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeNotFound, messageNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		s.logger.ErrorContext(ctx, "failed to delete lead",
			"lead_id", recordID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete lead")
	}

	if s.metrics != nil {
		s.metrics.IncrementLeadsDeleted()
	}
	s.logger.InfoContext(ctx, "lead deleted",
		"lead_id", recordID.String(),
		"admin", requestcontext.AdminUsername(ctx),
		"session_id", requestcontext.SessionID(ctx).String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emitDeleted(ctx, recordID)
	return nil
}

func requireAdmin(ctx context.Context) error {
	if requestcontext.AdminUsername(ctx) == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "Unauthorized")
	}
	return nil
}

func filterRecords(records []*models.Record, query string) []*models.Record {
	nameQuery := strings.ToLower(query)
	phoneQuery := models.StripPhoneSeparators(query)

	out := make([]*models.Record, 0, len(records))
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.FullName), nameQuery) ||
			(phoneQuery != "" && strings.Contains(rec.PhoneNumber, phoneQuery)) {
			out = append(out, rec)
		}
	}
	return out
}

func (s *Service) emitDeleted(ctx context.Context, recordID id.RecordID) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.NewEvent(audit.EventLeadDeleted, requestcontext.Now(ctx))
	event.Subject = recordID.String()
	event.ActorID = requestcontext.AdminUsername(ctx)
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
