package usecase

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestDefaultRetryPolicyBackoffSequence(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, 60*time.Second, p.Backoff(0))
	assert.Equal(t, 120*time.Second, p.Backoff(1))
	assert.Equal(t, 180*time.Second, p.Backoff(2))
	assert.Equal(t, 300*time.Second, p.Backoff(10), "linear growth is capped")

	assert.False(t, p.Exhausted(0))
	assert.False(t, p.Exhausted(2))
	assert.True(t, p.Exhausted(3), "a fourth failure is not retried")
}

func TestRetryPolicyDelays(t *testing.T) {
	assert.Equal(t,
		[]time.Duration{60 * time.Second, 120 * time.Second, 180 * time.Second},
		DefaultRetryPolicy().Delays())

	capped := RetryPolicy{MaxRetries: 7, Step: 60 * time.Second, MaxDelay: 300 * time.Second}
	assert.Equal(t,
		[]time.Duration{60 * time.Second, 120 * time.Second, 180 * time.Second, 240 * time.Second, 300 * time.Second},
		capped.Delays())

	assert.Empty(t, RetryPolicy{Step: time.Second, MaxDelay: time.Second}.Delays())
}

func TestRetryPolicyBackoffProperties(t *testing.T) {
	p := DefaultRetryPolicy()
	properties := gopter.NewProperties(nil)

	properties.Property("backoff never exceeds the cap", prop.ForAll(
		func(retries int) bool {
			return p.Backoff(retries) <= p.MaxDelay
		},
		gen.IntRange(-5, 1000),
	))

	properties.Property("backoff is non-decreasing", prop.ForAll(
		func(retries int) bool {
			return p.Backoff(retries) <= p.Backoff(retries+1)
		},
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}
