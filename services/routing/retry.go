package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/upb/voiceme/services/providers"
)

// Sleeper waits for d or until ctx is done, whichever comes first
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryPolicy decides how many times one adapter is called and how long to wait in between
type RetryPolicy struct {
	// MaxAttempts is the per-provider attempt budget (>= 1)
	MaxAttempts int

	// BaseDelay scales the linear backoff: the wait after attempt i is BaseDelay*i
	BaseDelay time.Duration

	// RequestTimeout bounds every single adapter call
	RequestTimeout time.Duration

	sleep Sleeper
}

// DefaultRetryPolicy returns 3 attempts, 1s base delay and a 30s per-call timeout
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

// Validate checks the policy bounds
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay < 0 {
		return fmt.Errorf("base delay cannot be negative, got %s", p.BaseDelay)
	}
	if p.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", p.RequestTimeout)
	}
	return nil
}

// WithSleep returns a copy of the policy that waits with fn
func (p RetryPolicy) WithSleep(fn Sleeper) RetryPolicy {
	p.sleep = fn
	return p
}

// Delay returns the wait after failed attempt i (1-indexed)
func (p RetryPolicy) Delay(i int) time.Duration {
	if i < 1 {
		return 0
	}
	return p.BaseDelay * time.Duration(i)
}

// WorstCaseLatency bounds a full orchestration over n providers
func (p RetryPolicy) WorstCaseLatency(n int) time.Duration {
	var backoff time.Duration
	for i := 1; i < p.MaxAttempts; i++ {
		backoff += p.Delay(i)
	}
	perProvider := time.Duration(p.MaxAttempts)*p.RequestTimeout + backoff
	return time.Duration(n) * perProvider
}

// AttemptOutcome describes one finished adapter call
type AttemptOutcome struct {
	Provider string
	Attempt  int
	Kind     providers.ErrorKind // empty on success
	Duration time.Duration
	Err      error
}

// AttemptObserver receives every attempt as it finishes
type AttemptObserver func(AttemptOutcome)

// Attempts calls adapter up to MaxAttempts times and returns the trimmed
// answer, the number of calls made and the last error. A non-nil error is
// either a *providers.ProviderError or the caller's context error.
func (p RetryPolicy) Attempts(ctx context.Context, adapter providers.Adapter, prompt string, opts providers.CompletionOptions, observe AttemptObserver) (string, int, error) {
	sleep := p.sleep
	if sleep == nil {
		sleep = SleepContext
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", attempt - 1, err
		}

		start := time.Now()
		text, err := p.call(ctx, adapter, prompt, opts)
		duration := time.Since(start)

		// the caller gave up; whatever the adapter said no longer matters
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", attempt, ctxErr
		}

		if err == nil {
			if answer := strings.TrimSpace(text); answer != "" {
				if observe != nil {
					observe(AttemptOutcome{Provider: adapter.Name(), Attempt: attempt, Duration: duration})
				}
				return answer, attempt, nil
			}
			err = providers.NewProviderError(adapter.Name(), providers.ErrorKindInvalid, "blank answer", 0, nil)
		}

		err = normalize(adapter.Name(), err)
		kind := providers.KindOf(err)
		if observe != nil {
			observe(AttemptOutcome{Provider: adapter.Name(), Attempt: attempt, Kind: kind, Duration: duration, Err: err})
		}
		lastErr = err

		if !kind.Retryable() || attempt == maxAttempts {
			return "", attempt, lastErr
		}
		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return "", attempt, err
		}
	}

	return "", maxAttempts, lastErr
}

// call runs one adapter call under its own timeout
func (p RetryPolicy) call(ctx context.Context, adapter providers.Adapter, prompt string, opts providers.CompletionOptions) (string, error) {
	if p.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.RequestTimeout)
		defer cancel()
		opts.Timeout = p.RequestTimeout
	}
	return adapter.Complete(ctx, prompt, opts)
}

// normalize makes sure every error handed to the orchestrator is a *ProviderError
func normalize(provider string, err error) error {
	var provErr *providers.ProviderError
	if errors.As(err, &provErr) {
		return err
	}
	return providers.NewProviderError(provider, providers.KindOf(err), "unclassified adapter error", 0, err)
}
