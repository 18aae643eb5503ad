package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/xavierca1/leadflow/internal/config"
)

const TooManyRequestsMessage = "Too many requests. Please try again later."

type RateLimiter interface {
	Allow(key string) bool
}

// NoopRateLimiter admits every request. It is used when rate limiting is
// disabled by configuration.
type NoopRateLimiter struct{}

func (NoopRateLimiter) Allow(string) bool { return true }

type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter allows perMinute requests per key per minute, refilled
// continuously. Idle keys are evicted until ctx is done.
func NewIPRateLimiter(ctx context.Context, perMinute int) *IPRateLimiter {
	rl := &IPRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		idleTTL:  2 * time.Minute,
		now:      time.Now,
	}

	go rl.cleanup(ctx, time.Minute)
	return rl
}

// NewRateLimiter picks the implementation once, at startup.
func NewRateLimiter(ctx context.Context, cfg config.RateLimitConfig) RateLimiter {
	if !cfg.Enabled {
		return NoopRateLimiter{}
	}
	return NewIPRateLimiter(ctx, cfg.PerMinute)
}

func (rl *IPRateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

func (rl *IPRateLimiter) cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *IPRateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idleTTL {
			delete(rl.visitors, key)
		}
	}
}

// RateLimitStage rejects with 429 once the client IP is over its budget.
func RateLimitStage(limiter RateLimiter) Stage {
	return func(r *http.Request) (*http.Request, *Rejection) {
		if !limiter.Allow(ClientIP(r)) {
			return nil, Reject(http.StatusTooManyRequests, TooManyRequestsMessage)
		}
		return r, nil
	}
}
