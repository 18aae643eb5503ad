package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/leadflow/internal/config"
	"github.com/xavierca1/leadflow/internal/infra/audit"
	"github.com/xavierca1/leadflow/internal/infra/cache"
	"github.com/xavierca1/leadflow/internal/infra/database"
	"github.com/xavierca1/leadflow/internal/infra/mail"
	"github.com/xavierca1/leadflow/internal/infra/queue"
	"github.com/xavierca1/leadflow/internal/infra/worker"
	"github.com/xavierca1/leadflow/internal/logger"
	"github.com/xavierca1/leadflow/internal/usecase"
)

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

	workerID := workerName()
	log = log.With(zap.String("worker_id", workerID))

	db, err := database.NewDBConnection(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

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

	policy := usecase.RetryPolicy{
		MaxRetries: cfg.Retry.MaxRetries,
		Step:       cfg.Retry.Step,
		MaxDelay:   cfg.Retry.MaxDelay,
	}

	processLeadUC := usecase.NewProcessLeadUseCase(database.NewLeadRepository(db), auditLogger, policy, log)
	alerts := mail.NewAlertSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Password,
		cfg.Mail.From, cfg.Mail.To, policy.MaxRetries)

	pool := &queue.Pool{
		URL:       cfg.RabbitMQ.URL,
		Size:      cfg.Worker.Concurrency,
		WorkerID:  workerID,
		Processor: processLeadUC,
		Policy:    policy,
		Notifier:  alerts,
		Logger:    log,
	}
	heartbeat := worker.NewHeartbeatWorker(redisCache.Client(), workerID, pool, cfg.Worker.Concurrency,
		cfg.Worker.HeartbeatTTL, cfg.Worker.HeartbeatInterval, log)

	metricsSrv := &http.Server{
		Addr:              ":" + cfg.Worker.MetricsPort,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		heartbeat.Start(gctx)
		return nil
	})
	g.Go(func() error {
		return pool.Run(gctx)
	})
	g.Go(func() error {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	log.Info("worker started", zap.Int("concurrency", cfg.Worker.Concurrency), zap.Int("max_retries", policy.MaxRetries))

	if err := g.Wait(); err != nil {
		log.Error("worker stopped with error", zap.Error(err))
	}

	alertCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := alerts.Wait(alertCtx); err != nil {
		log.Warn("pending dead-letter alerts dropped", zap.Error(err))
	}
	log.Info("worker stopped")
}

func workerName() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
