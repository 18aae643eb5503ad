// Package health runs the composite readiness check over every backing
// service of the lead pipeline.
package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/leadflow/internal/infra/cache"
)

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"

	ProbeOK   = "ok"
	NoWorkers = "no workers"

	cacheProbeKey   = "health_ping"
	cacheProbeValue = "pong"
	cacheProbeTTL   = 5 * time.Second

	defaultProbeTimeout = 500 * time.Millisecond
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Cache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

type WorkerRegistry interface {
	LiveWorkers(ctx context.Context) ([]string, error)
}

// Report is serialized as-is by the health endpoint. The worker pool
// field keeps the "celery" key existing dashboards read.
type Report struct {
	Status       string `json:"status"`
	Database     string `json:"database"`
	Cache        string `json:"cache"`
	Mongo        string `json:"mongo"`
	QueueWorkers string `json:"celery"`
	Timestamp    string `json:"timestamp"`
}

func (r Report) Healthy() bool {
	return r.Status == StatusHealthy
}

type Monitor struct {
	Database     Pinger
	Cache        Cache
	Mongo        Pinger
	Workers      WorkerRegistry
	ProbeTimeout time.Duration
	Logger       *zap.Logger
	Now          func() time.Time
}

func NewMonitor(db Pinger, cache Cache, mongo Pinger, workers WorkerRegistry, logger *zap.Logger) *Monitor {
	return &Monitor{
		Database:     db,
		Cache:        cache,
		Mongo:        mongo,
		Workers:      workers,
		ProbeTimeout: defaultProbeTimeout,
		Logger:       logger,
		Now:          time.Now,
	}
}

// Check runs all four probes concurrently. Probes never return errors to
// the group, so one failure cannot cancel or hide the others.
func (m *Monitor) Check(ctx context.Context) Report {
	report := Report{}

	g, gctx := errgroup.WithContext(ctx)
	m.run(gctx, g, "database", &report.Database, m.checkDatabase)
	m.run(gctx, g, "cache", &report.Cache, m.checkCache)
	m.run(gctx, g, "mongo", &report.Mongo, m.checkMongo)
	m.run(gctx, g, "workers", &report.QueueWorkers, m.checkWorkers)
	_ = g.Wait()

	report.Status = StatusHealthy
	for _, v := range []string{report.Database, report.Cache, report.Mongo, report.QueueWorkers} {
		if v != ProbeOK {
			report.Status = StatusDegraded
			break
		}
	}
	report.Timestamp = m.Now().UTC().Format(time.RFC3339)

	return report
}

func (m *Monitor) run(ctx context.Context, g *errgroup.Group, name string, dst *string, probe func(context.Context) string) {
	g.Go(func() (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				*dst = fmt.Sprintf("panic: %v", rec)
				m.Logger.Error("health probe panicked", zap.String("probe", name), zap.Any("panic", rec))
			}
		}()

		pctx, cancel := context.WithTimeout(ctx, m.ProbeTimeout)
		defer cancel()

		*dst = probe(pctx)
		if *dst != ProbeOK {
			m.Logger.Warn("health probe failed", zap.String("probe", name), zap.String("result", *dst))
		}
		return nil
	})
}

func (m *Monitor) checkDatabase(ctx context.Context) string {
	if m.Database == nil {
		return "not configured"
	}
	return errString(m.Database.Ping(ctx))
}

func (m *Monitor) checkCache(ctx context.Context) string {
	if m.Cache == nil {
		return "not configured"
	}
	if err := m.Cache.Set(ctx, cacheProbeKey, cacheProbeValue, cacheProbeTTL); err != nil {
		return err.Error()
	}
	got, err := m.Cache.Get(ctx, cacheProbeKey)
	if errors.Is(err, cache.ErrMiss) {
		return StatusDegraded
	}
	if err != nil {
		return err.Error()
	}
	if got != cacheProbeValue {
		return StatusDegraded
	}
	return ProbeOK
}

func (m *Monitor) checkMongo(ctx context.Context) string {
	if m.Mongo == nil {
		return "not configured"
	}
	return errString(m.Mongo.Ping(ctx))
}

func (m *Monitor) checkWorkers(ctx context.Context) string {
	if m.Workers == nil {
		return NoWorkers
	}
	ids, err := m.Workers.LiveWorkers(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return NoWorkers
		}
		return err.Error()
	}
	if len(ids) == 0 {
		return NoWorkers
	}
	return ProbeOK
}

func errString(err error) string {
	if err != nil {
		return err.Error()
	}
	return ProbeOK
}
