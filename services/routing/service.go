package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/upb/voiceme/internal/observability"
	"github.com/upb/voiceme/services/providers"
)

// State is a step of the fallback state machine
type State int

const (
	StateNotStarted State = iota
	StateTryingProvider
	StateSucceeded
	StateExhausted
)

// String implements fmt.Stringer
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateTryingProvider:
		return "trying_provider"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Request statuses reported to metrics and the audit log
const (
	StatusSucceeded = "succeeded"
	StatusExhausted = "exhausted"
	StatusCanceled  = "canceled"
)

// Answer is the result of a successful orchestration
type Answer struct {
	// Text is the trimmed, non-empty answer
	Text string

	// Provider is the adapter that produced the answer
	Provider string

	// Attempts counts every adapter call across all providers tried
	Attempts int

	// Elapsed is the wall-clock duration of the whole orchestration
	Elapsed time.Duration

	ProducedAt time.Time
}

// ProviderFailure is the last error of one exhausted provider
type ProviderFailure struct {
	Provider string
	Kind     providers.ErrorKind
	Attempts int
	Err      error
}

// OrchestrationFailure is returned when every provider in the registry is exhausted.
// Its message lists provider names and error kinds only; upstream text stays in Failures.
type OrchestrationFailure struct {
	Failures []ProviderFailure
	Attempts int
	Elapsed  time.Duration
}

// Error implements the error interface
func (f *OrchestrationFailure) Error() string {
	if len(f.Failures) == 0 {
		return "all providers exhausted: no providers configured"
	}
	parts := make([]string, len(f.Failures))
	for i, failure := range f.Failures {
		parts[i] = fmt.Sprintf("%s=%s", failure.Provider, failure.Kind)
	}
	return "all providers exhausted: " + strings.Join(parts, ", ")
}

// IsOrchestrationFailure reports whether err is an *OrchestrationFailure
func IsOrchestrationFailure(err error) bool {
	var failure *OrchestrationFailure
	return errors.As(err, &failure)
}

// MetricsRecorder receives attempt and request outcomes
type MetricsRecorder interface {
	RecordAttempt(provider, outcome string, d time.Duration)
	RecordRequest(provider, status string, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) RecordAttempt(string, string, time.Duration) {}
func (nopMetrics) RecordRequest(string, string, time.Duration) {}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithMetrics sets the metrics recorder
func WithMetrics(m MetricsRecorder) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithClock overrides the clock used for Answer.ProducedAt
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLatencyCeiling bounds a whole orchestration. Zero means the policy's
// worst case for the registry size.
func WithLatencyCeiling(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.ceiling = d
	}
}

// Orchestrator drives a prompt through the registry in priority order until one
// provider answers or all are exhausted. It holds no per-request state and is
// safe for concurrent use.
type Orchestrator struct {
	registry *providers.Registry
	policy   RetryPolicy
	opts     providers.CompletionOptions
	logger   *zap.Logger
	metrics  MetricsRecorder
	now      func() time.Time
	ceiling  time.Duration
}

// NewOrchestrator creates an orchestrator. A nil registry behaves as an empty one.
func NewOrchestrator(registry *providers.Registry, policy RetryPolicy, opts providers.CompletionOptions, logger *zap.Logger, options ...Option) (*Orchestrator, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}
	if registry == nil {
		registry, _ = providers.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &Orchestrator{
		registry: registry,
		policy:   policy,
		opts:     opts,
		logger:   logger,
		metrics:  nopMetrics{},
		now:      time.Now,
	}
	for _, opt := range options {
		opt(o)
	}
	return o, nil
}

// Registry returns the registry the orchestrator draws from
func (o *Orchestrator) Registry() *providers.Registry {
	return o.registry
}

// LatencyCeiling returns the effective bound on one orchestration
func (o *Orchestrator) LatencyCeiling() time.Duration {
	if o.ceiling > 0 {
		return o.ceiling
	}
	return o.policy.WorstCaseLatency(o.registry.Len())
}

// Run executes the fallback state machine for one prompt.
// It returns an *Answer, an *OrchestrationFailure, or the caller's context error.
func (o *Orchestrator) Run(ctx context.Context, prompt string) (*Answer, error) {
	start := time.Now()
	logger := observability.LoggerFromContext(ctx, o.logger)
	adapters := o.registry.Adapters()

	state := StateNotStarted
	transition := func(next State, fields ...zap.Field) {
		logger.Debug("orchestration state change",
			append(fields, zap.Stringer("from", state), zap.Stringer("to", next))...)
		state = next
	}

	if len(adapters) == 0 {
		transition(StateExhausted)
		logger.Error("no providers configured")
		o.metrics.RecordRequest("", StatusExhausted, time.Since(start))
		return nil, &OrchestrationFailure{}
	}

	runCtx := ctx
	if ceiling := o.LatencyCeiling(); ceiling > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, ceiling)
		defer cancel()
	}

	observe := func(outcome AttemptOutcome) {
		label := "success"
		if outcome.Err != nil {
			label = outcome.Kind.String()
			logger.Warn("provider attempt failed",
				zap.String("provider", outcome.Provider),
				zap.Int("attempt", outcome.Attempt),
				zap.String("kind", label),
				zap.Duration("duration", outcome.Duration),
				zap.Error(outcome.Err),
			)
		}
		o.metrics.RecordAttempt(outcome.Provider, label, outcome.Duration)
	}

	failures := make([]ProviderFailure, 0, len(adapters))
	total := 0

	for i, adapter := range adapters {
		transition(StateTryingProvider, zap.Int("index", i), zap.String("provider", adapter.Name()))

		text, attempts, err := o.policy.Attempts(runCtx, adapter, prompt, o.opts, observe)
		total += attempts

		if err == nil {
			transition(StateSucceeded, zap.String("provider", adapter.Name()))
			elapsed := time.Since(start)
			o.metrics.RecordRequest(adapter.Name(), StatusSucceeded, elapsed)
			logger.Info("answer produced",
				zap.String("provider", adapter.Name()),
				zap.Int("attempts", total),
				zap.Duration("elapsed", elapsed),
			)
			return &Answer{
				Text:       text,
				Provider:   adapter.Name(),
				Attempts:   total,
				Elapsed:    elapsed,
				ProducedAt: o.now(),
			}, nil
		}

		if ctx.Err() != nil {
			logger.Info("orchestration canceled by caller",
				zap.String("provider", adapter.Name()),
				zap.Int("attempts", total),
			)
			o.metrics.RecordRequest("", StatusCanceled, time.Since(start))
			return nil, ctx.Err()
		}

		if runCtx.Err() != nil {
			failures = append(failures, ProviderFailure{
				Provider: adapter.Name(),
				Kind:     providers.ErrorKindTransient,
				Attempts: attempts,
				Err:      err,
			})
			logger.Warn("latency ceiling reached",
				zap.Duration("ceiling", o.LatencyCeiling()),
				zap.String("provider", adapter.Name()),
			)
			break
		}

		failures = append(failures, ProviderFailure{
			Provider: adapter.Name(),
			Kind:     providers.KindOf(err),
			Attempts: attempts,
			Err:      err,
		})
		logger.Warn("provider exhausted",
			zap.String("provider", adapter.Name()),
			zap.Int("attempts", attempts),
			zap.String("kind", providers.KindOf(err).String()),
		)
	}

	transition(StateExhausted)
	elapsed := time.Since(start)
	o.metrics.RecordRequest("", StatusExhausted, elapsed)
	logger.Error("all providers failed", zap.Int("providers_tried", len(failures)), zap.Int("attempts", total))

	return nil, &OrchestrationFailure{Failures: failures, Attempts: total, Elapsed: elapsed}
}
