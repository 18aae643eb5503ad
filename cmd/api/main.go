package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xavierca1/leadflow/internal/config"
	"github.com/xavierca1/leadflow/internal/infra/audit"
	"github.com/xavierca1/leadflow/internal/infra/cache"
	"github.com/xavierca1/leadflow/internal/infra/database"
	"github.com/xavierca1/leadflow/internal/infra/health"
	"github.com/xavierca1/leadflow/internal/infra/http/handlers"
	"github.com/xavierca1/leadflow/internal/infra/http/middleware"
	"github.com/xavierca1/leadflow/internal/infra/queue"
	"github.com/xavierca1/leadflow/internal/infra/worker"
	"github.com/xavierca1/leadflow/internal/logger"
	"github.com/xavierca1/leadflow/internal/usecase"
)

const maxSubmitBody = 4 << 10

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Storage
	db, err := database.NewDBConnection(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(cfg.Database.URL); err != nil {
			log.Fatal("migrations failed", zap.Error(err))
		}
	}

	leadRepo := database.NewLeadRepository(db)

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		log.Fatal("invalid redis configuration", zap.Error(err))
	}
	defer redisCache.Close()

	mongoClient, err := audit.NewMongoClient(ctx, cfg.Mongo.URI)
	if err != nil {
		log.Warn("audit store unavailable; audit logging disabled", zap.Error(err))
	}
	auditLogger := audit.NewLogger(mongoClient, cfg.Mongo.DBName, log)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		auditLogger.Close(closeCtx)
	}()

	// 2. Queue
	producer := queue.NewProducer(cfg.RabbitMQ.URL, retryPolicy(cfg).Delays())
	if err := producer.Connect(); err != nil {
		// Submissions still answer 202 with a null task_id until the broker is back.
		log.Warn("broker unavailable at startup", zap.Error(err))
	}
	defer producer.Close()
	go producer.Run(ctx)

	// 3. UseCases and handlers
	submitLeadUC := usecase.NewSubmitLeadUseCase(producer, log)

	monitor := health.NewMonitor(leadRepo, redisCache, auditLogger, worker.NewRegistry(redisCache.Client()), log)

	leadHandler := handlers.NewLeadHandler(submitLeadUC, log)
	healthHandler := handlers.NewHealthHandler(monitor)
	landingHandler := handlers.NewLandingHandler(redisCache, cfg.Frontend.DistDir, log)

	limiter := middleware.NewRateLimiter(ctx, cfg.RateLimit)

	// 4. Router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/", landingHandler.Handle)
	r.With(middleware.Pipeline(
		middleware.RateLimitStage(limiter),
		middleware.MaxBodyStage(maxSubmitBody),
	)).Post("/api/leads/", leadHandler.Submit)
	r.Get("/api/health/", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down api")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

func retryPolicy(cfg *config.Config) usecase.RetryPolicy {
	return usecase.RetryPolicy{
		MaxRetries: cfg.Retry.MaxRetries,
		Step:       cfg.Retry.Step,
		MaxDelay:   cfg.Retry.MaxDelay,
	}
}
