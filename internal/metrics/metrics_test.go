// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRunStarted(t *testing.T) {
	m := New()
	done := m.RunStarted("stream")
	assert.Contains(t, scrape(t, m), "research_service_runs_in_flight 1")

	done(OutcomeCompleted)
	body := scrape(t, m)
	assert.Contains(t, body, "research_service_runs_in_flight 0")
	assert.Contains(t, body, `research_service_runs_total{mode="stream",outcome="completed"} 1`)
	assert.Contains(t, body, `research_service_run_duration_seconds_count{mode="stream"} 1`)
}

func TestCallbackAndCache(t *testing.T) {
	m := New()
	m.Callback("delivered")
	m.Callback("delivered")
	m.CacheOp("get", "miss")

	body := scrape(t, m)
	assert.Contains(t, body, `research_service_callbacks_total{outcome="delivered"} 2`)
	assert.Contains(t, body, `research_service_cache_operations_total{op="get",outcome="miss"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RunStarted("background")(OutcomeFailed)
		m.Callback("failed")
		m.CacheOp("set", "error")
	})
	assert.Nil(t, m.Registry())
	assert.NotNil(t, m.Handler())
}
