//nolint:testpackage // requires internal access to unexported types and functions
package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollector(t *testing.T) {
	t.Run("create disabled collector", func(t *testing.T) {
		collector := NewMetricsCollector(false)
		assert.NotNil(t, collector)
		assert.False(t, collector.IsEnabled())
		assert.Empty(t, collector.GetMetrics())
	})

	t.Run("nil collector is disabled", func(t *testing.T) {
		var collector *MetricsCollector
		assert.False(t, collector.IsEnabled())
		collector.RecordInvalidation("points", "x_squared", 3)
		err := collector.RecordOperation(OpUpdate, "points", 1, func() error { return nil })
		require.NoError(t, err)
	})

	t.Run("record operation with disabled collector", func(t *testing.T) {
		collector := NewMetricsCollector(false)

		callCount := 0
		err := collector.RecordOperation(OpUpdate, "points", 1, func() error {
			callCount++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, callCount)
		assert.Empty(t, collector.GetMetrics())
	})

	t.Run("record operation with enabled collector", func(t *testing.T) {
		collector := NewMetricsCollector(true)

		err := collector.RecordOperation(OpDrop, "points", 2, func() error {
			time.Sleep(time.Millisecond)
			return nil
		})
		require.NoError(t, err)

		metrics := collector.GetMetrics()
		require.Len(t, metrics, 1)
		assert.Equal(t, OpDrop, metrics[0].Operation)
		assert.Equal(t, "points", metrics[0].Frame)
		assert.Equal(t, int64(2), metrics[0].RowsProcessed)
		assert.GreaterOrEqual(t, metrics[0].Duration, time.Millisecond)
		assert.False(t, metrics[0].Failed)
	})

	t.Run("record failing operation", func(t *testing.T) {
		collector := NewMetricsCollector(true)
		boom := errors.New("boom")

		err := collector.RecordOperation(OpUpdate, "points", 1, func() error { return boom })
		require.ErrorIs(t, err, boom)

		metrics := collector.GetMetrics()
		require.Len(t, metrics, 1)
		assert.True(t, metrics[0].Failed)
	})

	t.Run("clear and toggle", func(t *testing.T) {
		collector := NewMetricsCollector(true)
		collector.RecordRecompute("points", "x_squared", 4, time.Millisecond, nil)
		require.Len(t, collector.GetMetrics(), 1)

		collector.Clear()
		assert.Empty(t, collector.GetMetrics())

		collector.SetEnabled(false)
		collector.RecordRecompute("points", "x_squared", 4, time.Millisecond, nil)
		assert.Empty(t, collector.GetMetrics())
	})
}

func TestMetricsCollector_Count(t *testing.T) {
	collector := NewMetricsCollector(true)
	collector.RecordRecompute("points", "x_squared", 4, 0, nil)
	collector.RecordRecompute("points", "x_cubed", 4, 0, nil)
	collector.RecordRecompute("lines", "length", 1, 0, nil)
	collector.RecordInvalidation("points", "x_squared", 2)
	collector.RecordInvalidation("points", "x_squared", 0)

	assert.Equal(t, 3, collector.Count(OpRecompute, "", ""))
	assert.Equal(t, 2, collector.Count(OpRecompute, "points", ""))
	assert.Equal(t, 1, collector.Count(OpRecompute, "points", "x_squared"))
	assert.Equal(t, 1, collector.Count(OpInvalidate, "", ""), "empty invalidations are not recorded")
	assert.Equal(t, 4, collector.Count("", "", ""))
}

func TestMetricsCollector_Capacity(t *testing.T) {
	collector := NewMetricsCollector(true)
	collector.capacity = 3

	for i := 0; i < 5; i++ {
		collector.Record(OperationMetrics{Operation: OpUpdate, RowsProcessed: int64(i)})
	}

	metrics := collector.GetMetrics()
	require.Len(t, metrics, 3)
	assert.Equal(t, int64(2), metrics[0].RowsProcessed)
	assert.Equal(t, int64(4), metrics[2].RowsProcessed)
}

func TestMetricsSummary(t *testing.T) {
	t.Run("empty collector", func(t *testing.T) {
		collector := NewMetricsCollector(true)
		assert.Equal(t, MetricsSummary{}, collector.GetSummary())
	})

	t.Run("aggregates", func(t *testing.T) {
		collector := NewMetricsCollector(true)
		collector.RecordRecompute("points", "x_squared", 10, 10*time.Millisecond, nil)
		collector.RecordRecompute("points", "x_squared", 5, 30*time.Millisecond, errors.New("bad"))
		collector.RecordInvalidation("points", "x_squared", 7)

		summary := collector.GetSummary()
		assert.Equal(t, 3, summary.TotalOperations)
		assert.Equal(t, 40*time.Millisecond, summary.TotalDuration)
		assert.Equal(t, int64(22), summary.TotalRows)
		assert.Equal(t, 1, summary.Failures)
		assert.Equal(t, map[string]int{OpRecompute: 2, OpInvalidate: 1}, summary.OperationCounts)
		assert.Equal(t, int64(15), summary.OperationRows[OpRecompute])
		assert.Equal(t, 40*time.Millisecond/3, summary.AverageDuration)
	})
}
