//nolint:testpackage // requires internal access to unexported types and functions
package monitoring

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *MetricsCollector) {
	t.Helper()
	collector := NewMetricsCollector(true)
	server, err := NewMonitoringServer(collector, "127.0.0.1:0")
	require.NoError(t, err)
	return server, collector
}

func TestMetricsEndpoint(t *testing.T) {
	server, collector := newTestServer(t)
	collector.RecordRecompute("points", "x_squared", 3, time.Millisecond, nil)
	collector.RecordInvalidation("points", "x_squared", 2)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `lazystore_store_operations_total{frame="points",operation="recompute"} 1`)
	assert.Contains(t, body, `lazystore_store_rows_total{frame="points",operation="invalidate"} 2`)
	assert.Contains(t, body, "go_goroutines")
}

func TestCollector(t *testing.T) {
	c := NewCollector("test")
	c.observe(OperationMetrics{Operation: OpUndo, Frame: "points", RowsProcessed: 4, Failed: true})
	c.observe(OperationMetrics{Operation: OpUndo, Frame: "points", RowsProcessed: 1})

	assert.InDelta(t, 2.0, testutil.ToFloat64(c.operations.WithLabelValues(OpUndo, "points")), 1e-9)
	assert.InDelta(t, 5.0, testutil.ToFloat64(c.rows.WithLabelValues(OpUndo, "points")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.failures.WithLabelValues(OpUndo, "points")), 1e-9)
}

func TestSummaryEndpoint(t *testing.T) {
	t.Run("summary with data", func(t *testing.T) {
		server, collector := newTestServer(t)
		collector.RecordRecompute("points", "x_squared", 3, time.Millisecond, nil)

		req := httptest.NewRequest(http.MethodGet, "/summary", nil)
		w := httptest.NewRecorder()
		server.handleSummary(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var summary MetricsSummary
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
		assert.Equal(t, 1, summary.TotalOperations)
		assert.Equal(t, 1, summary.OperationCounts[OpRecompute])
	})

	t.Run("invalid method", func(t *testing.T) {
		server, _ := newTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/summary", nil)
		w := httptest.NewRecorder()
		server.handleSummary(w, req)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, true, health["enabled"])
}

func TestServerLifecycle(t *testing.T) {
	server, _ := newTestServer(t)
	require.NoError(t, server.Start())

	resp, err := http.Get("http://" + server.Addr() + "/health")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `"status":"ok"`))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))
}
