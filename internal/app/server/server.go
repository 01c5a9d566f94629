package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"perfeval/internal/domain/audit"
	"perfeval/internal/domain/authz"
	"perfeval/internal/domain/directory"
	"perfeval/internal/domain/identity"
	"perfeval/internal/domain/performance"
	"perfeval/internal/platform/config"
	"perfeval/internal/platform/db"
	"perfeval/internal/platform/lock"
	"perfeval/internal/platform/logger"
	"perfeval/internal/platform/metrics"
	"perfeval/internal/transport/http/api"
	audithandler "perfeval/internal/transport/http/handlers/audit"
	performancehandler "perfeval/internal/transport/http/handlers/performance"
	"perfeval/internal/transport/http/middleware"
	"perfeval/migrations"
)

type App struct {
	Config  config.Config
	DB      *db.Pool
	Redis   *redis.Client
	Metrics *metrics.Collector
	Log     zerolog.Logger
	Router  http.Handler
}

// New connects the stores, applies migrations and seed data as configured,
// and builds the router. Close releases what New opened.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobal(log)

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	app := &App{Config: cfg, DB: pool, Metrics: metrics.New(), Log: log}

	if cfg.RunMigrations {
		applied, err := db.Migrate(ctx, pool, migrations.FS)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		if len(applied) > 0 {
			log.Info().Strs("versions", applied).Msg("applied migrations")
		}
	}
	if cfg.RunSeed {
		seeded, err := db.Seed(ctx, pool)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
		if seeded > 0 {
			log.Info().Int("kpis", seeded).Msg("seeded default kpi catalog")
		}
	}

	var locker *lock.Locker
	if cfg.RedisAddr != "" {
		rdb, err := lock.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable; review saves run without the distributed lock")
		} else {
			app.Redis = rdb
			locker = lock.New(rdb, cfg.ReviewLockTTL, log)
		}
	}

	dir := directory.NewStore(pool, cfg.DirectoryTimeout)
	resolver := identity.NewResolver(dir, cfg.IdentityAdminFallback, log)
	guard := authz.NewGuard(dir)
	guard.OnDeny = func(p identity.Principal, c authz.Capability) {
		app.Metrics.AuthzDenied()
		log.Info().Str("principal", p.ID).Str("role", p.Role).Str("capability", c.String()).Msg("authorization denied")
	}
	auditSvc := audit.New(pool, log)

	svc := performance.NewService(performance.NewStore(pool, cfg.OperationTimeout), guard, log)
	svc.Departments = dir
	svc.Locker = locker
	svc.Metrics = app.Metrics
	svc.Audit = auditSvc

	app.Router = app.routes(resolver, svc, guard, auditSvc)
	return app, nil
}

func (a *App) routes(resolver *identity.Resolver, svc *performance.Service, guard *authz.Guard, auditSvc *audit.Service) http.Handler {
	cfg := a.Config
	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.Log, a.Metrics))
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	if len(cfg.CORSAllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.DB.Ping(ctx); err != nil {
			api.Unavailable(w, 5, "database not ready", middleware.GetRequestID(r.Context()))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, a.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret, cfg.JWTIssuer))
		r.Use(middleware.RequireAuth)
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.ResolvePrincipal(resolver))

		performancehandler.NewHandler(svc, a.Log).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc, guard, a.Log).RegisterRoutes(r)
	})

	return router
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Warn().Err(err).Msg("redis close failed")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests.
func Run() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		startupLog := logger.New(logger.Config{Level: cfg.LogLevel})
		startupLog.Fatal().Err(err).Msg("startup failed")
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Log.Info().Str("addr", cfg.Addr).Msg("performance evaluation server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			app.Log.Error().Err(err).Msg("server failed")
		}
		return
	case <-ctx.Done():
	}

	app.Log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
