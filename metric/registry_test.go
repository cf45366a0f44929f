package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CountersAndGauges(t *testing.T) {
	registry := NewRegistry()
	m := registry.CoreMetrics()

	m.RecordReload("runtime")
	m.RecordReload("runtime")
	m.RecordReload("reload")
	m.RecordUpdate()
	m.RecordUpdateRejection()
	m.RecordRollback()
	m.RecordWatchEvent()
	m.RecordReloadFailure()
	m.RecordValidation(3, 7)
	m.RecordHealthScore(82.5)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ReloadsTotal.WithLabelValues("runtime")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReloadsTotal.WithLabelValues("reload")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.UpdatesTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.UpdateRejections))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RollbacksTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WatchEventsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReloadFailures))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.ValidationErrors))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.ValidationWarnings))
	assert.Equal(t, 82.5, testutil.ToFloat64(m.HealthScore))
}

func TestRegistry_Handler(t *testing.T) {
	registry := NewRegistry()
	registry.CoreMetrics().RecordHealthScore(100)
	registry.CoreMetrics().RecordReload("runtime")

	ts := httptest.NewServer(registry.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(data)

	assert.Contains(t, body, "confkit_health_score 100")
	assert.Contains(t, body, `confkit_config_reloads_total{origin="runtime"} 1`)
	assert.Contains(t, body, "go_goroutines")
}