// Package monitoring collects recomputation, invalidation and mutation
// metrics of a store and exposes them over HTTP.
package monitoring

import (
	"sync"
	"time"
)

// Well-known operation names
const (
	OpRecompute  = "recompute"
	OpInvalidate = "invalidate"
	OpUpdate     = "update"
	OpDrop       = "drop"
	OpUndo       = "undo"
	OpRedo       = "redo"
)

// OperationMetrics represents one recorded store operation.
type OperationMetrics struct {
	Duration      time.Duration `json:"duration"`
	RowsProcessed int64         `json:"rows_processed"`
	Operation     string        `json:"operation"`
	Frame         string        `json:"frame"`
	Column        string        `json:"column,omitempty"`
	Failed        bool          `json:"failed,omitempty"`
}

// MetricsCollector collects and stores metrics of store operations.
type MetricsCollector struct {
	mu        sync.RWMutex
	metrics   []OperationMetrics
	enabled   bool
	capacity  int
	exporters []*Collector
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector(enabled bool) *MetricsCollector {
	return &MetricsCollector{
		metrics:  make([]OperationMetrics, 0),
		enabled:  enabled,
		capacity: defaultCapacity,
	}
}

// defaultCapacity bounds the retained history; totals are kept in the
// prometheus collector
const defaultCapacity = 10000

// IsEnabled returns whether metrics collection is enabled.
func (mc *MetricsCollector) IsEnabled() bool {
	if mc == nil {
		return false
	}
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.enabled
}

// RecordOperation executes fn and records its duration and outcome.
func (mc *MetricsCollector) RecordOperation(operation, frame string, rows int, fn func() error) error {
	if !mc.IsEnabled() {
		return fn()
	}

	start := time.Now()
	err := fn()
	mc.Record(OperationMetrics{
		Duration:      time.Since(start),
		RowsProcessed: int64(rows),
		Operation:     operation,
		Frame:         frame,
		Failed:        err != nil,
	})
	return err
}

// RecordRecompute records one invocation of a compute function.
func (mc *MetricsCollector) RecordRecompute(frame, column string, rows int, d time.Duration, err error) {
	mc.Record(OperationMetrics{
		Duration:      d,
		RowsProcessed: int64(rows),
		Operation:     OpRecompute,
		Frame:         frame,
		Column:        column,
		Failed:        err != nil,
	})
}

// RecordInvalidation records rows whose cached column was invalidated.
func (mc *MetricsCollector) RecordInvalidation(frame, column string, rows int) {
	if rows == 0 {
		return
	}
	mc.Record(OperationMetrics{
		RowsProcessed: int64(rows),
		Operation:     OpInvalidate,
		Frame:         frame,
		Column:        column,
	})
}

// Record appends a metric if collection is enabled.
func (mc *MetricsCollector) Record(m OperationMetrics) {
	if !mc.IsEnabled() {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.metrics = append(mc.metrics, m)
	for _, c := range mc.exporters {
		c.observe(m)
	}
	if over := len(mc.metrics) - mc.capacity; over > 0 {
		mc.metrics = append(mc.metrics[:0], mc.metrics[over:]...)
	}
}

// GetMetrics returns a copy of all collected metrics.
func (mc *MetricsCollector) GetMetrics() []OperationMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make([]OperationMetrics, len(mc.metrics))
	copy(result, mc.metrics)
	return result
}

// Clear removes all collected metrics.
func (mc *MetricsCollector) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.metrics = mc.metrics[:0]
}

// SetEnabled enables or disables metrics collection.
func (mc *MetricsCollector) SetEnabled(enabled bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.enabled = enabled
}

// Count returns how many metrics match operation, frame and column; empty
// arguments match anything.
func (mc *MetricsCollector) Count(operation, frame, column string) int {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	n := 0
	for _, m := range mc.metrics {
		if (operation == "" || m.Operation == operation) &&
			(frame == "" || m.Frame == frame) &&
			(column == "" || m.Column == column) {
			n++
		}
	}
	return n
}

// GetSummary returns a summary of collected metrics.
func (mc *MetricsCollector) GetSummary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if len(mc.metrics) == 0 {
		return MetricsSummary{}
	}

	var totalDuration time.Duration
	var totalRows int64
	var failures int
	operationCounts := make(map[string]int)
	operationRows := make(map[string]int64)

	for _, metric := range mc.metrics {
		totalDuration += metric.Duration
		totalRows += metric.RowsProcessed
		operationCounts[metric.Operation]++
		operationRows[metric.Operation] += metric.RowsProcessed
		if metric.Failed {
			failures++
		}
	}

	return MetricsSummary{
		TotalOperations: len(mc.metrics),
		TotalDuration:   totalDuration,
		TotalRows:       totalRows,
		Failures:        failures,
		OperationCounts: operationCounts,
		OperationRows:   operationRows,
		AverageDuration: totalDuration / time.Duration(len(mc.metrics)),
	}
}

// MetricsSummary provides aggregate statistics for collected metrics.
type MetricsSummary struct {
	TotalOperations int              `json:"total_operations"`
	TotalDuration   time.Duration    `json:"total_duration"`
	TotalRows       int64            `json:"total_rows"`
	Failures        int              `json:"failures"`
	OperationCounts map[string]int   `json:"operation_counts"`
	OperationRows   map[string]int64 `json:"operation_rows"`
	AverageDuration time.Duration    `json:"average_duration"`
}
