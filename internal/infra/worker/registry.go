package worker

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Registry answers which workers have a live heartbeat.
type Registry struct {
	rdb *redis.Client
}

func NewRegistry(rdb *redis.Client) *Registry {
	return &Registry{rdb: rdb}
}

// LiveWorkers returns the ids of workers whose heartbeat has not expired.
func (r *Registry) LiveWorkers(ctx context.Context) ([]string, error) {
	var ids []string
	iter := r.rdb.Scan(ctx, 0, heartbeatKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		id := strings.TrimSuffix(strings.TrimPrefix(iter.Val(), keyPrefix), ":heartbeat")
		ids = append(ids, id)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
