package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordAttempt(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordAttempt("gemini", "transient", 200*time.Millisecond)
	m.RecordAttempt("gemini", "transient", 300*time.Millisecond)
	m.RecordAttempt("gemini", "success", time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.attempts.WithLabelValues("gemini", "transient")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.attempts.WithLabelValues("gemini", "success")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.attemptDuration))
}

func TestMetrics_RecordRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRequest("openai", "succeeded", time.Second)
	m.RecordRequest("", "exhausted", 3*time.Second)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("succeeded", "openai")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("exhausted", "none")))
}

func TestMetrics_SetConfiguredProviders(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetConfiguredProviders([]string{"gemini", "groq"})
	assert.Equal(t, 2, testutil.CollectAndCount(m.configured))

	m.SetConfiguredProviders([]string{"openai"})
	assert.Equal(t, 1, testutil.CollectAndCount(m.configured))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.configured.WithLabelValues("openai")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics(nil)
	m.RecordAttempt("groq", "rate_limited", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `voiceme_provider_attempts_total{outcome="rate_limited",provider="groq"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
