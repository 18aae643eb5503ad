package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xavierca1/leadflow/internal/config"
)

func newTestLimiter(t *testing.T, perMinute int, now *time.Time) *IPRateLimiter {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	rl := NewIPRateLimiter(ctx, perMinute)
	rl.now = func() time.Time { return *now }
	return rl
}

func TestIPRateLimiterAllowsBurstThenRejects(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(t, 10, &now)

	for i := 0; i < 10; i++ {
		assert.True(t, rl.Allow("203.0.113.7"), "request %d", i+1)
	}
	assert.False(t, rl.Allow("203.0.113.7"))
	assert.True(t, rl.Allow("198.51.100.4"), "keys are independent")

	now = now.Add(7 * time.Second)
	assert.True(t, rl.Allow("203.0.113.7"), "a token refills every six seconds")
	assert.False(t, rl.Allow("203.0.113.7"))
}

func TestIPRateLimiterEvictsIdleVisitors(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(t, 10, &now)

	rl.Allow("a")
	now = now.Add(time.Minute)
	rl.Allow("b")
	now = now.Add(90 * time.Second)
	rl.evictIdle()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, "a")
	assert.Contains(t, rl.visitors, "b")
}

func TestNewRateLimiterSelectsImplementation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.IsType(t, NoopRateLimiter{}, NewRateLimiter(ctx, config.RateLimitConfig{Enabled: false, PerMinute: 10}))
	assert.IsType(t, &IPRateLimiter{}, NewRateLimiter(ctx, config.RateLimitConfig{Enabled: true, PerMinute: 10}))
}

func TestRateLimitStageReturns429(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int
	h := Pipeline(RateLimitStage(NewIPRateLimiter(ctx, 2)))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusAccepted)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/leads/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.JSONEq(t, `{"error": "Too many requests. Please try again later."}`, rec.Body.String())
		}
	}

	assert.Equal(t, []int{http.StatusAccepted, http.StatusAccepted, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 2, calls)
}

func TestNoopRateLimiterNeverRejects(t *testing.T) {
	var l NoopRateLimiter
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("x"))
	}
}
