package api

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountRuns(t *testing.T) {
	env := newTestEnv(t, 0.99)

	for i := 0; i < 3; i++ {
		_, ok := env.ctrl.Run()
		require.True(t, ok)
	}

	m := env.metrics
	assert.Equal(t, 3.0, testutil.ToFloat64(m.runs.WithLabelValues("needs_review")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.runs.WithLabelValues("verified")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.stages.WithLabelValues("integrity", "warn")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.stages.WithLabelValues("network", "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.running))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestMetricsCountTriggers(t *testing.T) {
	env := newTestEnv(t, 0.5)
	env.srv.checker = &blockingChecker{}

	env.do(t, "POST", "/api/check", "")
	env.do(t, "POST", "/api/check", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.triggers.WithLabelValues("http", "ignored")))
	assert.Equal(t, 0.0, testutil.ToFloat64(env.metrics.triggers.WithLabelValues("http", "started")))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, 0.5)
	_, ok := env.ctrl.Run()
	require.True(t, ok)

	w := env.do(t, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	text := string(body)

	for _, name := range []string{
		"verifypanel_runs_total",
		"verifypanel_stage_results_total",
		"verifypanel_run_duration_seconds",
		"verifypanel_uptime_seconds",
		"verifypanel_events_total",
		"verifypanel_ws_clients",
	} {
		assert.True(t, strings.Contains(text, "# TYPE "+name), "missing %s", name)
	}
	assert.Contains(t, text, `outcome="verified"`)
	assert.Contains(t, text, `panel="test-panel"`)
}
