// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/imagedit/backend/internal/admin"
	"github.com/carterperez-dev/imagedit/backend/internal/audit"
	"github.com/carterperez-dev/imagedit/backend/internal/auth"
	"github.com/carterperez-dev/imagedit/backend/internal/billing"
	"github.com/carterperez-dev/imagedit/backend/internal/config"
	"github.com/carterperez-dev/imagedit/backend/internal/core"
	"github.com/carterperez-dev/imagedit/backend/internal/dashboard"
	"github.com/carterperez-dev/imagedit/backend/internal/edit"
	"github.com/carterperez-dev/imagedit/backend/internal/editor"
	"github.com/carterperez-dev/imagedit/backend/internal/entitlement"
	"github.com/carterperez-dev/imagedit/backend/internal/health"
	"github.com/carterperez-dev/imagedit/backend/internal/image"
	"github.com/carterperez-dev/imagedit/backend/internal/middleware"
	"github.com/carterperez-dev/imagedit/backend/internal/server"
	"github.com/carterperez-dev/imagedit/backend/internal/storage"
	"github.com/carterperez-dev/imagedit/backend/internal/subscription"
	"github.com/carterperez-dev/imagedit/backend/internal/usage"
	"github.com/carterperez-dev/imagedit/backend/internal/user"
	"github.com/carterperez-dev/imagedit/backend/internal/worker"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	telemetry, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
	if err != nil {
		logger.Warn("failed to initialize telemetry", "error", err)
	} else if cfg.Otel.Enabled {
		logger.Info("OpenTelemetry tracer initialized",
			"endpoint", cfg.Otel.Endpoint,
		)
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.KeyID(),
	)

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	logger.Info("storage ready", "backend", cfg.Storage.Backend)

	queue, err := newQueue(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("edit queue ready", "backend", cfg.Queue.Backend)

	auditSvc := audit.NewService(audit.NewRepository(db.DB), logger)

	usageRepo := usage.NewRepository(db.DB, cfg.Tables.Usage)
	usageSvc := usage.NewService(usageRepo)
	usageHandler := usage.NewHandler(usageSvc)

	subRepo := subscription.NewRepository(db.DB, cfg.Tables.Subscriptions)
	runner := entitlement.NewPostgresRunner(db.DB, cfg.Tables)
	subSvc := subscription.NewService(subRepo, logger).
		WithLocker(entitlement.SubscriptionLock{Runner: runner})

	entSvc := entitlement.NewService(
		runner,
		usageRepo,
		subRepo,
		cfg.Usage.TrialImageCredits,
		logger,
	)

	userSvc := user.NewService(user.NewRepository(db.DB))
	userHandler := user.NewHandler(userSvc, auditSvc)

	authSvc := auth.NewService(auth.NewRepository(db.DB), jwtManager, userSvc, subSvc, logger)
	authHandler := auth.NewHandler(authSvc, auditSvc)

	provider := billing.NewStripeProvider(cfg.Billing, logger)
	billingSvc := billing.NewService(
		provider,
		subSvc,
		userSvc,
		billing.NewRedisDeduper(redis.Client, cfg.Billing.EventDedupeTTL),
		auditSvc,
		cfg.Billing,
		logger,
	)
	billingHandler := billing.NewHandler(billingSvc, provider, logger)
	subHandler := subscription.NewHandler(subSvc, entSvc, billingSvc, auditSvc)

	imageSvc := image.NewService(image.ServiceConfig{
		Repository:   image.NewRepository(db.DB),
		Entitlements: entSvc,
		Storage:      store,
		MaxBatch:     cfg.Usage.MaxBatchUpload,
		Logger:       logger,
	})
	imageHandler := image.NewHandler(imageSvc, auditSvc, cfg.Server.MaxUploadBytes)

	editSvc := edit.NewService(edit.ServiceConfig{
		Repository:   edit.NewRepository(db.DB),
		Images:       imageSvc,
		Entitlements: entSvc,
		Queue:        queue,
		Editor:       editor.NewClient(cfg.Editor),
		Storage:      store,
		Logger:       logger,
	})
	editHandler := edit.NewHandler(editSvc, auditSvc)

	dashboardHandler := dashboard.NewHandler(
		dashboard.NewService(userSvc, entSvc, imageSvc, subSvc),
	)

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Service:    admin.NewService(userSvc, subSvc, imageSvc, usageSvc),
		Audit:      auditSvc,
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			BypassFunc: isProbe,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.JWKSHandler())

	if cfg.Storage.Backend == "local" {
		prefix := strings.TrimSuffix(cfg.Storage.PublicPath, "/")
		router.Handle(prefix+"/*", http.StripPrefix(prefix,
			http.FileServer(http.Dir(cfg.Storage.LocalPath))))
	}

	authenticator := middleware.Authenticator(authSvc)
	adminOnly := middleware.RequireAdmin
	consumeLimit := middleware.PlanRateLimiter(redis.Client, middleware.DefaultPlanLimits)

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator)

		r.Post("/users", authHandler.Register)

		userHandler.RegisterRoutes(r, authenticator)
		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)

		imageHandler.RegisterRoutes(r, authenticator, consumeLimit)
		editHandler.RegisterRoutes(r, authenticator, consumeLimit)
		subHandler.RegisterRoutes(r, authenticator)
		billingHandler.RegisterRoutes(r, authenticator)
		usageHandler.RegisterRoutes(r, authenticator)
		dashboardHandler.RegisterRoutes(r, authenticator)
	})

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	workersDone := make(chan error, 1)
	go func() {
		err := queue.Run(workerCtx, editSvc.Process, editSvc.Complete)
		// A node without edit workers stops taking traffic.
		healthHandler.SetReady(false)
		workersDone <- err
	}()

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case err := <-workersDone:
		return fmt.Errorf("edit workers stopped: %w", err)
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Stop intake, let queued edits finish, and give up at the deadline.
	_ = queue.Close() //nolint:errcheck // Close never fails
	select {
	case err := <-workersDone:
		if err != nil {
			logger.Error("edit worker error", "error", err)
		}
	case <-shutdownCtx.Done():
		logger.Warn("edit workers did not drain before the deadline")
		cancelWorkers()
	}

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown error", "error", err)
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// newQueue picks the edit job transport. The in-process pool is the
// default; sqs lets API nodes and workers share one queue.
func newQueue(ctx context.Context, cfg *config.Config, logger *slog.Logger) (worker.Queue, error) {
	jobTimeout := editJobTimeout(cfg.Editor.Timeout)

	if cfg.Queue.Backend == "sqs" {
		q, err := worker.NewSQSQueue(ctx, cfg.Queue.SQSQueueURL, cfg.Queue.SQSWait, jobTimeout, logger)
		if err != nil {
			return nil, err
		}
		return q, nil
	}

	return worker.NewPool(
		cfg.Editor.Workers,
		cfg.Editor.QueueSize,
		worker.WithJobTimeout(jobTimeout),
		worker.WithLogger(logger),
	), nil
}

// editJobTimeout covers every provider attempt plus the storage round trips.
func editJobTimeout(providerTimeout time.Duration) time.Duration {
	return 3*providerTimeout + 30*time.Second
}

func isProbe(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/livez", "/readyz":
		return true
	}
	return false
}
