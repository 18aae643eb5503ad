package usecase

import "time"

// RetryPolicy is a linear backoff: Step*(retries+1), capped at MaxDelay.
type RetryPolicy struct {
	MaxRetries int
	Step       time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		Step:       60 * time.Second,
		MaxDelay:   300 * time.Second,
	}
}

// Backoff returns the delay before the next attempt of a task that has
// already been retried `retries` times.
func (p RetryPolicy) Backoff(retries int) time.Duration {
	if retries < 0 {
		retries = 0
	}
	return min(p.Step*time.Duration(retries+1), p.MaxDelay)
}

// Exhausted reports whether a task that has been retried `retries` times
// may not be retried again.
func (p RetryPolicy) Exhausted(retries int) bool {
	return retries >= p.MaxRetries
}

// Delays lists every distinct delay the policy can produce, in order.
func (p RetryPolicy) Delays() []time.Duration {
	var out []time.Duration
	for i := 0; i < p.MaxRetries; i++ {
		d := p.Backoff(i)
		if len(out) > 0 && out[len(out)-1] == d {
			continue
		}
		out = append(out, d)
	}
	return out
}
