package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"leaddesk/internal/auth/device"
	"leaddesk/internal/auth/models"
	jwttoken "leaddesk/internal/jwt_token"
	"leaddesk/internal/platform/metrics"
	"leaddesk/internal/platform/tracing"
	rlmodels "leaddesk/internal/ratelimit/models"
	id "leaddesk/pkg/domain"
	dErrors "leaddesk/pkg/domain-errors"
	audit "leaddesk/pkg/platform/audit"
	"leaddesk/pkg/platform/sentinel"
	"leaddesk/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

const DefaultSessionTTL = 12 * time.Hour

// SessionStore holds the active admin sessions. Get returns an error
// wrapping sentinel.ErrNotFound for unknown or expired sessions.
type SessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Delete(ctx context.Context, sessionID id.SessionID) error
}

type TokenService interface {
	GenerateAdminToken(username string, sessionID id.SessionID, expiresAt time.Time) (string, error)
	ValidateToken(token string) (*jwttoken.Claims, error)
}

// Lockout counts failed logins per client IP.
type Lockout interface {
	Check(ctx context.Context, ip string) (*rlmodels.LockoutStatus, error)
	RecordFailure(ctx context.Context, ip string) (*rlmodels.LockoutStatus, error)
	Clear(ctx context.Context, ip string) error
}

type Metrics interface {
	IncrementLogins(outcome string)
}

// Config is the single configured admin account.
type Config struct {
	Username string
	// Password is compared in constant time when PasswordHash is empty.
	Password string
	// PasswordHash is a bcrypt hash and takes precedence over Password.
	PasswordHash string
	SessionTTL   time.Duration
}

// Service is the admin session authority: it issues credentials for the
// configured admin and decides whether a presented credential is still valid.
type Service struct {
	sessions       SessionStore
	tokens         TokenService
	cfg            Config
	lockout        Lockout
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

// WithLockout enables the failed-login lockout.
func WithLockout(lockout Lockout) Option {
	return func(s *Service) {
		s.lockout = lockout
	}
}

func New(sessions SessionStore, tokens TokenService, cfg Config, opts ...Option) (*Service, error) {
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if tokens == nil {
		return nil, errors.New("token service is required")
	}
	if cfg.Username == "" {
		return nil, errors.New("admin username is required")
	}
	if cfg.Password == "" && cfg.PasswordHash == "" {
		return nil, errors.New("admin password or password hash is required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}

	svc := &Service{
		sessions: sessions,
		tokens:   tokens,
		cfg:      cfg,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:   tracing.NoopTracer(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Authenticate checks the admin pair and, on a match, opens a new session
// and returns its credential. Earlier sessions stay valid.
func (s *Service) Authenticate(ctx context.Context, req *models.LoginRequest) (*models.LoginResult, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Authenticate")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	ip := requestcontext.ClientIP(ctx)
	if s.lockout != nil {
		status, err := s.lockout.Check(ctx, ip)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if !status.Allowed {
			s.incrementLogins(metrics.OutcomeLocked)
			span.SetStatus(codes.Error, "locked out")
			return nil, dErrors.Wrap(&models.RetryAfterError{RetryAfter: status.RetryAfter},
				dErrors.CodeRateLimited, models.MessageTooManyAttempts)
		}
	}

	if !s.credentialsMatch(req.Username, req.Password) {
		return nil, s.loginFailed(ctx, ip)
	}

	if s.lockout != nil {
		if err := s.lockout.Clear(ctx, ip); err != nil {
			s.logger.WarnContext(ctx, "failed to clear login lockout",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}

	now := requestcontext.Now(ctx)
	userAgent := requestcontext.UserAgent(ctx)
	session := &models.Session{
		ID:                id.NewSessionID(),
		Username:          s.cfg.Username,
		ClientIP:          ip,
		UserAgent:         userAgent,
		DeviceDisplayName: device.ParseUserAgent(userAgent),
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session save failed")
		s.logger.ErrorContext(ctx, "failed to save admin session",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	token, err := s.tokens.GenerateAdminToken(session.Username, session.ID, session.ExpiresAt)
	if err != nil {
		span.RecordError(err)
		if delErr := s.sessions.Delete(ctx, session.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to drop orphaned session", "error", delErr)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue credential")
	}

	s.incrementLogins(metrics.OutcomeSuccess)
	s.logger.InfoContext(ctx, "admin logged in",
		"username", session.Username,
		"session_id", session.ID.String(),
		"device", session.DeviceDisplayName,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.EventAdminLoginSucceeded, session.Username, func(e *audit.Event) {
		e.Subject = session.ID.String()
	})

	return &models.LoginResult{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		Session:   session,
	}, nil
}

// Validate accepts a credential only while its session is stored, unexpired
// and still belongs to the configured admin.
func (s *Service) Validate(ctx context.Context, credential string) (*models.Session, error) {
	if credential == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing credential")
	}
	claims, err := s.tokens.ValidateToken(credential)
	if err != nil {
		return nil, err
	}
	sessionID, err := claims.SessionID()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "session not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}

	if session.IsExpiredAt(requestcontext.Now(ctx)) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "session expired")
	}
	if session.Username != claims.Username() || session.Username != s.cfg.Username {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "session does not match admin")
	}
	return session, nil
}

// Logout ends the session behind credential. The credential is rejected by
// Validate afterwards.
func (s *Service) Logout(ctx context.Context, credential string) error {
	session, err := s.Validate(ctx, credential)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to end session")
	}
	s.emit(ctx, audit.EventAdminLogout, session.Username, func(e *audit.Event) {
		e.Subject = session.ID.String()
	})
	return nil
}

// credentialsMatch evaluates both fields regardless of the first result.
func (s *Service) credentialsMatch(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Username)) == 1

	var passOK bool
	if s.cfg.PasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Password)) == 1
	}
	return userOK && passOK
}

func (s *Service) loginFailed(ctx context.Context, ip string) error {
	s.incrementLogins(metrics.OutcomeFailure)
	s.logger.WarnContext(ctx, "admin login failed",
		"ip", ip,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.EventAuthFailed, "", func(e *audit.Event) {
		e.Subject = ip
		e.Reason = models.MessageInvalidCredentials
	})

	if s.lockout != nil {
		if _, err := s.lockout.RecordFailure(ctx, ip); err != nil {
			s.logger.ErrorContext(ctx, "failed to record login failure",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}
	return dErrors.New(dErrors.CodeUnauthorized, models.MessageInvalidCredentials)
}

func (s *Service) incrementLogins(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementLogins(outcome)
	}
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, actor string, fill func(*audit.Event)) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.NewEvent(action, requestcontext.Now(ctx))
	event.ActorID = actor
	event.IP = requestcontext.ClientIP(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	fill(&event)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
			"request_id", event.RequestID,
		)
	}
}
