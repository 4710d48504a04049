package providers

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle wraps an adapter with a client-side request budget.
// Calls over budget fail fast as rate_limited without touching the network,
// leaving the backoff to the retry policy.
type Throttle struct {
	next    Adapter
	limiter *rate.Limiter
}

// NewThrottle limits next to requestsPerMinute calls, allowing a burst of the same size
func NewThrottle(next Adapter, requestsPerMinute int) *Throttle {
	return &Throttle{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute),
	}
}

// NewThrottleWithLimiter wraps next with a caller-supplied limiter
func NewThrottleWithLimiter(next Adapter, limiter *rate.Limiter) *Throttle {
	return &Throttle{next: next, limiter: limiter}
}

// Name returns the wrapped provider's name
func (t *Throttle) Name() string {
	return t.next.Name()
}

// Complete forwards to the wrapped adapter when the budget allows
func (t *Throttle) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	if !t.limiter.Allow() {
		return "", NewProviderError(t.Name(), ErrorKindRateLimited, "client-side request budget exhausted", 0, nil)
	}
	return t.next.Complete(ctx, prompt, opts)
}

// Throttled wraps adapter when requestsPerMinute is positive and returns it unchanged otherwise
func Throttled(adapter Adapter, requestsPerMinute int) Adapter {
	if requestsPerMinute <= 0 {
		return adapter
	}
	return NewThrottle(adapter, requestsPerMinute)
}
