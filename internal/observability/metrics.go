package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "voiceme"

// Metrics is the Prometheus collector for orchestration outcomes.
//
// Metrics:
//   - voiceme_provider_attempts_total: adapter calls by provider and outcome
//   - voiceme_provider_attempt_duration_seconds: adapter call latency
//   - voiceme_provider_configured: 1 for every provider in the registry
//   - voiceme_requests_total: orchestrations by final status and provider
//   - voiceme_request_duration_seconds: orchestration latency by status
type Metrics struct {
	registry *prometheus.Registry

	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	configured      *prometheus.GaugeVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors. A nil registry gets a fresh one
// with the Go and process collectors attached.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		registry: registry,
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_attempts_total",
				Help:      "Total number of provider calls by outcome",
			},
			[]string{"provider", "outcome"},
		),
		attemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_attempt_duration_seconds",
				Help:      "Provider call latency in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"provider"},
		),
		configured: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "provider_configured",
				Help:      "Providers present in the registry (1=configured)",
			},
			[]string{"provider"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of answered questions by final status",
			},
			[]string{"status", "provider"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "End-to-end orchestration latency in seconds",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(m.attempts, m.attemptDuration, m.configured, m.requests, m.requestDuration)
	return m
}

// RecordAttempt records one adapter call. outcome is "success" or an error kind.
func (m *Metrics) RecordAttempt(provider, outcome string, d time.Duration) {
	m.attempts.WithLabelValues(provider, outcome).Inc()
	m.attemptDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordRequest records one finished orchestration.
func (m *Metrics) RecordRequest(provider, status string, d time.Duration) {
	if provider == "" {
		provider = "none"
	}
	m.requests.WithLabelValues(status, provider).Inc()
	m.requestDuration.WithLabelValues(status).Observe(d.Seconds())
}

// SetConfiguredProviders marks the given providers as configured.
func (m *Metrics) SetConfiguredProviders(names []string) {
	m.configured.Reset()
	for _, name := range names {
		m.configured.WithLabelValues(name).Set(1)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
