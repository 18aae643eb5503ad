// Package worker tracks which lead workers are alive. Each worker process
// refreshes a TTL'd heartbeat key; the health check counts live keys.
package worker

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "leadflow:worker:"

func heartbeatKey(workerID string) string {
	return keyPrefix + workerID + ":heartbeat"
}

// ConsumerState is satisfied by *queue.Pool.
type ConsumerState interface {
	Consuming() bool
}

type HeartbeatWorker struct {
	rdb          *redis.Client
	workerID     string
	state        ConsumerState
	concurrency  int
	ttl          time.Duration
	tickInterval time.Duration
	logger       *zap.Logger
}

// NewHeartbeatWorker beats only while state reports a registered consumer,
// so a worker cut off from the broker drops out of the live set.
func NewHeartbeatWorker(rdb *redis.Client, workerID string, state ConsumerState, concurrency int, ttl, interval time.Duration, logger *zap.Logger) *HeartbeatWorker {
	return &HeartbeatWorker{
		rdb:          rdb,
		workerID:     workerID,
		state:        state,
		concurrency:  concurrency,
		ttl:          ttl,
		tickInterval: interval,
		logger:       logger,
	}
}

// Start beats immediately and then every tick until ctx is done, then
// removes its key so the worker stops counting as alive right away.
func (w *HeartbeatWorker) Start(ctx context.Context) {
	w.logger.Info("heartbeat started", zap.String("worker_id", w.workerID), zap.Duration("ttl", w.ttl))

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.beat(ctx)

	for {
		select {
		case <-ctx.Done():
			w.stop()
			w.logger.Info("heartbeat stopped", zap.String("worker_id", w.workerID))
			return
		case <-ticker.C:
			w.beat(ctx)
		}
	}
}

func (w *HeartbeatWorker) beat(ctx context.Context) {
	if !w.state.Consuming() {
		if err := w.rdb.Del(ctx, heartbeatKey(w.workerID)).Err(); err != nil {
			w.logger.Debug("failed to clear heartbeat", zap.Error(err))
		}
		return
	}

	err := w.rdb.Set(ctx, heartbeatKey(w.workerID), strconv.Itoa(w.concurrency), w.ttl).Err()
	if err != nil {
		w.logger.Warn("heartbeat failed", zap.String("worker_id", w.workerID), zap.Error(err))
	}
}

func (w *HeartbeatWorker) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.rdb.Del(ctx, heartbeatKey(w.workerID)).Err(); err != nil {
		w.logger.Debug("failed to clear heartbeat", zap.Error(err))
	}
}
