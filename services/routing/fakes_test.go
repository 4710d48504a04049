package routing

import (
	"context"
	"sync"
	"time"

	"github.com/upb/voiceme/services/providers"
)

// step is one scripted adapter reply
type step struct {
	text string
	err  error
}

// scriptedAdapter replays steps in order and repeats the last one forever
type scriptedAdapter struct {
	name  string
	steps []step
	block bool // wait for ctx instead of replying

	mu      sync.Mutex
	calls   int
	prompts []string
	started chan struct{}
}

func newScripted(name string, steps ...step) *scriptedAdapter {
	return &scriptedAdapter{name: name, steps: steps}
}

func alwaysOK(name, text string) *scriptedAdapter {
	return newScripted(name, step{text: text})
}

func alwaysFail(name string, kind providers.ErrorKind) *scriptedAdapter {
	return newScripted(name, step{err: providers.NewProviderError(name, kind, "scripted failure", 0, nil)})
}

func blocking(name string) *scriptedAdapter {
	return &scriptedAdapter{name: name, block: true, started: make(chan struct{}, 16)}
}

func (a *scriptedAdapter) Name() string { return a.name }

func (a *scriptedAdapter) Complete(ctx context.Context, prompt string, opts providers.CompletionOptions) (string, error) {
	a.mu.Lock()
	a.calls++
	a.prompts = append(a.prompts, prompt)
	idx := a.calls - 1
	a.mu.Unlock()

	if a.block {
		a.started <- struct{}{}
		<-ctx.Done()
		return "", providers.NewProviderError(a.name, providers.ErrorKindTransient, "HTTP request failed", 0, ctx.Err())
	}

	if idx >= len(a.steps) {
		idx = len(a.steps) - 1
	}
	s := a.steps[idx]
	return s.text, s.err
}

func (a *scriptedAdapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// recordingSleeper captures requested backoff delays without waiting
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// recordingMetrics captures everything the orchestrator reports
type recordingMetrics struct {
	mu       sync.Mutex
	attempts []string
	requests []string
}

func (m *recordingMetrics) RecordAttempt(provider, outcome string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, provider+":"+outcome)
}

func (m *recordingMetrics) RecordRequest(provider, status string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, status+":"+provider)
}

func testPolicy(sleeper *recordingSleeper) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      100 * time.Millisecond,
		RequestTimeout: time.Second,
	}.WithSleep(sleeper.Sleep)
}
