package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	adminadapters "leaddesk/internal/admin/adapters"
	adminhandler "leaddesk/internal/admin/handler"
	adminsvc "leaddesk/internal/admin/service"
	authadapters "leaddesk/internal/auth/adapters"
	authhandler "leaddesk/internal/auth/handler"
	authsvc "leaddesk/internal/auth/service"
	"leaddesk/internal/auth/store/session"
	jwttoken "leaddesk/internal/jwt_token"
	"leaddesk/internal/platform/config"
	"leaddesk/internal/platform/httpserver"
	"leaddesk/internal/platform/kafka"
	"leaddesk/internal/platform/logger"
	"leaddesk/internal/platform/metrics"
	platformmongo "leaddesk/internal/platform/mongo"
	"leaddesk/internal/platform/postgres"
	platformredis "leaddesk/internal/platform/redis"
	"leaddesk/internal/platform/sqlite"
	"leaddesk/internal/platform/tracing"
	rlconfig "leaddesk/internal/ratelimit/config"
	lockoutsvc "leaddesk/internal/ratelimit/service/authlockout"
	lockoutstore "leaddesk/internal/ratelimit/store/authlockout"
	reghandler "leaddesk/internal/registration/handler"
	regsvc "leaddesk/internal/registration/service"
	"leaddesk/internal/registration/store"
	httptransport "leaddesk/internal/transport/http"
	audit "leaddesk/pkg/platform/audit"
	kafkapublisher "leaddesk/pkg/platform/audit/publishers/kafka"
	logpublisher "leaddesk/pkg/platform/audit/publishers/log"
)

const (
	tokenIssuer   = "leaddesk"
	tokenAudience = "leaddesk-admin"
)

// app owns every resource that must be released on shutdown.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	closers  []func(context.Context) error
	records  regsvc.Store
	sessions authsvc.SessionStore
	lockouts lockoutsvc.Store
	audit    audit.Publisher
	tracer   *tracing.Provider
	ready    readiness
}

// readiness fails on the first backing service that does not answer.
type readiness []func(context.Context) error

func (r readiness) Ping(ctx context.Context) error {
	for _, check := range r {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) onShutdown(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse acquisition order.
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Error("shutdown step failed", "error", err)
		}
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(viper.New(), cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, logger: log}
	shutdownCtx := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	}
	defer func() {
		sctx, cancel := shutdownCtx()
		defer cancel()
		a.close(sctx)
	}()

	if err := a.init(ctx); err != nil {
		return err
	}

	handler, err := a.router()
	if err != nil {
		return err
	}
	srv := httpserver.New(cfg.Server.Addr(), handler, cfg.Server.ReadHeaderTimeout, cfg.Server.RequestTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting leaddesk",
			"addr", cfg.Server.Addr(),
			"environment", cfg.Environment,
			"store", cfg.Store.Driver,
			"redis", cfg.Redis.URL != "",
			"kafka", len(cfg.Kafka.Brokers) > 0,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := shutdownCtx()
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func (a *app) init(ctx context.Context) error {
	provider, err := tracing.NewProvider(ctx, tracing.Config{
		Exporter:     a.cfg.Tracing.Exporter,
		OTLPEndpoint: a.cfg.Tracing.OTLPEndpoint,
		SampleRate:   a.cfg.Tracing.SampleRate,
		ServiceName:  a.cfg.Tracing.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	a.tracer = provider
	a.onShutdown(provider.Shutdown)

	if err := a.initRecordStore(ctx); err != nil {
		return err
	}
	if err := a.initSessionState(ctx); err != nil {
		return err
	}
	return a.initAudit(ctx)
}

func (a *app) initRecordStore(ctx context.Context) error {
	switch a.cfg.Store.Driver {
	case config.StoreMongo:
		client, db, err := platformmongo.Connect(ctx, a.cfg.Mongo.URI)
		if err != nil {
			return err
		}
		a.onShutdown(client.Disconnect)
		s, err := store.NewMongoRecordStore(ctx, db.Collection(a.cfg.Mongo.Collection))
		if err != nil {
			return err
		}
		a.records = s
	case config.StorePostgres:
		db, err := postgres.Open(ctx, a.cfg.Postgres)
		if err != nil {
			return err
		}
		a.onShutdown(closeDB(db))
		s, err := store.NewPostgresRecordStore(ctx, db, a.cfg.Postgres.Table)
		if err != nil {
			return err
		}
		a.records = s
	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, a.cfg.SQLite.Path)
		if err != nil {
			return err
		}
		a.onShutdown(closeDB(db))
		s, err := store.NewSQLiteRecordStore(ctx, db)
		if err != nil {
			return err
		}
		a.records = s
	default:
		a.logger.Warn("using in-memory lead store; records are lost on restart")
		a.records = store.NewInMemoryRecordStore()
	}
	return nil
}

// initSessionState selects Redis for sessions and lockout counters when
// configured, so several replicas share them.
func (a *app) initSessionState(ctx context.Context) error {
	client, err := platformredis.New(ctx, a.cfg.Redis)
	if err != nil {
		return err
	}
	if client == nil {
		a.sessions = session.NewInMemorySessionStore()
		a.lockouts = lockoutstore.New()
		return nil
	}
	a.onShutdown(func(context.Context) error { return client.Close() })
	a.ready = append(a.ready, client.Health)
	a.sessions = session.NewRedisSessionStore(client.Client)
	a.lockouts = lockoutstore.NewRedis(client.Client)
	return nil
}

func (a *app) initAudit(ctx context.Context) error {
	if len(a.cfg.Kafka.Brokers) == 0 {
		a.audit = logpublisher.New(a.logger)
		return nil
	}
	client, err := kafka.NewClient(ctx, a.cfg.Kafka)
	if err != nil {
		return err
	}
	a.onShutdown(func(ctx context.Context) error {
		defer client.Close()
		return client.Flush(ctx)
	})
	a.audit = kafkapublisher.New(client, a.cfg.Kafka.AuditTopic, a.logger)
	return nil
}

func (a *app) router() (http.Handler, error) {
	m := metrics.New()
	tracer := a.tracer.Tracer()

	registration, err := regsvc.New(a.records,
		regsvc.WithLogger(a.logger),
		regsvc.WithMetrics(m),
		regsvc.WithAuditPublisher(a.audit),
		regsvc.WithTracer(tracer),
	)
	if err != nil {
		return nil, fmt.Errorf("init registration service: %w", err)
	}

	lockout, err := lockoutsvc.New(a.lockouts,
		lockoutsvc.WithLogger(a.logger),
		lockoutsvc.WithMetrics(m),
		lockoutsvc.WithAuditPublisher(a.audit),
		lockoutsvc.WithConfig(rlconfig.AuthLockoutConfig{
			AttemptsPerWindow: a.cfg.Admin.LockoutAttempts,
			WindowDuration:    a.cfg.Admin.LockoutWindow,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("init lockout service: %w", err)
	}

	tokens := jwttoken.NewJWTService(a.cfg.Admin.SigningKey, tokenIssuer, tokenAudience)
	auth, err := authsvc.New(a.sessions, tokens,
		authsvc.Config{
			Username:     a.cfg.Admin.Username,
			Password:     a.cfg.Admin.Password,
			PasswordHash: a.cfg.Admin.PasswordHash,
			SessionTTL:   a.cfg.Admin.SessionTTL,
		},
		authsvc.WithLogger(a.logger),
		authsvc.WithMetrics(m),
		authsvc.WithAuditPublisher(a.audit),
		authsvc.WithTracer(tracer),
		authsvc.WithLockout(lockout),
	)
	if err != nil {
		return nil, fmt.Errorf("init auth service: %w", err)
	}
	if !a.cfg.IsProduction() && a.cfg.Admin.PasswordHash == "" && a.cfg.Admin.Password == config.DefaultAdminPassword {
		a.logger.Warn("admin password is the development default; set ADMIN_PASSWORD_HASH before exposing this server")
	}

	admin, err := adminsvc.New(adminadapters.NewRecordStoreAdapter(a.records),
		adminsvc.WithLogger(a.logger),
		adminsvc.WithMetrics(m),
		adminsvc.WithAuditPublisher(a.audit),
		adminsvc.WithTracer(tracer),
	)
	if err != nil {
		return nil, fmt.Errorf("init admin service: %w", err)
	}

	return httptransport.NewRouter(httptransport.Deps{
		Logger:              a.logger,
		Metrics:             m,
		RequestTimeout:      a.cfg.Server.RequestTimeout,
		AllowedOrigins:      a.cfg.Server.AllowedOrigins,
		TrustProxyHeaders:   a.cfg.Server.TrustProxyHeaders,
		CredentialValidator: authadapters.NewCredentialValidator(auth),
		Readiness:           append(readiness{registration.Ping}, a.ready...),
		Registration:        reghandler.New(registration, a.logger),
		Auth:                authhandler.New(auth, a.logger),
		Admin:               adminhandler.New(admin, a.logger),
	}), nil
}

func closeDB(db *sql.DB) func(context.Context) error {
	return func(context.Context) error { return db.Close() }
}
