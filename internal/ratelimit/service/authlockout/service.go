package authlockout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"leaddesk/internal/ratelimit/config"
	"leaddesk/internal/ratelimit/models"
	dErrors "leaddesk/pkg/domain-errors"
	audit "leaddesk/pkg/platform/audit"
	"leaddesk/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Store holds per-client failure counters. It is pure I/O; lock decisions
// are made here.
type Store interface {
	Get(ctx context.Context, identifier string) (*models.AuthLockout, error)
	RecordFailure(ctx context.Context, identifier string, ttl time.Duration) (*models.AuthLockout, error)
	Lock(ctx context.Context, identifier string, until time.Time) error
	Clear(ctx context.Context, identifier string) error
}

type Metrics interface {
	IncrementLockouts()
}

// Service enforces the admin login lockout: too many failures from one IP
// inside the window lock that IP out for a full window.
type Service struct {
	store          Store
	logger         *slog.Logger
	metrics        Metrics
	auditPublisher audit.Publisher
	config         config.AuthLockoutConfig
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

// WithConfig overrides the defaults. Non-positive values are ignored.
func WithConfig(cfg config.AuthLockoutConfig) Option {
	return func(s *Service) {
		if cfg.AttemptsPerWindow > 0 {
			s.config.AttemptsPerWindow = cfg.AttemptsPerWindow
		}
		if cfg.WindowDuration > 0 {
			s.config.WindowDuration = cfg.WindowDuration
		}
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth lockout store is required")
	}
	svc := &Service{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		config: config.DefaultAuthLockoutConfig(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Check reports whether ip may attempt a login now.
func (s *Service) Check(ctx context.Context, ip string) (*models.LockoutStatus, error) {
	record, err := s.store.Get(ctx, models.NewAuthLockoutKey(ip))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to get auth lockout record")
	}
	now := requestcontext.Now(ctx)
	limit := s.config.AttemptsPerWindow

	if record == nil {
		return &models.LockoutStatus{Allowed: true, Remaining: limit}, nil
	}
	if record.IsLockedAt(now) {
		return &models.LockoutStatus{
			Allowed:      false,
			FailureCount: record.FailureCount,
			RetryAfter:   record.LockedUntil.Sub(now),
		}, nil
	}
	if record.WindowElapsedAt(now, s.config.WindowDuration) {
		return &models.LockoutStatus{Allowed: true, Remaining: limit}, nil
	}
	if record.IsAttemptLimitReached(limit) {
		return &models.LockoutStatus{
			Allowed:      false,
			FailureCount: record.FailureCount,
			RetryAfter:   record.FirstFailureAt.Add(s.config.WindowDuration).Sub(now),
		}, nil
	}
	return &models.LockoutStatus{
		Allowed:      true,
		FailureCount: record.FailureCount,
		Remaining:    record.RemainingAttempts(limit),
	}, nil
}

// RecordFailure counts a failed login for ip and locks it once the limit is
// reached. The returned status describes the state after this failure.
func (s *Service) RecordFailure(ctx context.Context, ip string) (*models.LockoutStatus, error) {
	key := models.NewAuthLockoutKey(ip)
	now := requestcontext.Now(ctx)

	previous, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to get auth lockout record")
	}
	if previous != nil && !previous.IsLockedAt(now) && previous.WindowElapsedAt(now, s.config.WindowDuration) {
		if err := s.store.Clear(ctx, key); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset auth lockout record")
		}
	}

	current, err := s.store.RecordFailure(ctx, key, s.config.WindowDuration)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record auth failure")
	}

	limit := s.config.AttemptsPerWindow
	status := &models.LockoutStatus{
		Allowed:      true,
		FailureCount: current.FailureCount,
		Remaining:    current.RemainingAttempts(limit),
	}
	if current.IsLockedAt(now) {
		status.Allowed = false
		status.RetryAfter = current.LockedUntil.Sub(now)
		return status, nil
	}
	if !current.IsAttemptLimitReached(limit) {
		return status, nil
	}

	until := now.Add(s.config.WindowDuration)
	if err := s.store.Lock(ctx, key, until); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock client")
	}
	status.Allowed = false
	status.JustLocked = true
	status.RetryAfter = s.config.WindowDuration

	s.logger.WarnContext(ctx, "admin login locked out",
		"ip", ip,
		"failure_count", current.FailureCount,
		"locked_until", until,
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.metrics != nil {
		s.metrics.IncrementLockouts()
	}
	s.emitLockout(ctx, ip, now)
	return status, nil
}

// Clear forgets the failures recorded for ip, typically after a successful login.
func (s *Service) Clear(ctx context.Context, ip string) error {
	if err := s.store.Clear(ctx, models.NewAuthLockoutKey(ip)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear auth lockout record")
	}
	return nil
}

func (s *Service) emitLockout(ctx context.Context, ip string, now time.Time) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.NewEvent(audit.EventAuthLockoutTriggered, now)
	event.Subject = ip
	event.IP = ip
	event.Reason = "too many failed login attempts"
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
			"request_id", event.RequestID,
		)
	}
}
