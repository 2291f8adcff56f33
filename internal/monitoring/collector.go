package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports store operations as prometheus metrics. It keeps running
// totals, unlike the bounded history of a MetricsCollector.
type Collector struct {
	operations *prometheus.CounterVec
	rows       *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewCollector creates a collector with metric names under namespace
func NewCollector(namespace string) *Collector {
	return &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations by operation and frame",
		}, []string{"operation", "frame"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "rows_total",
			Help:      "Rows processed by operation and frame",
		}, []string{"operation", "frame"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "failures_total",
			Help:      "Failed store operations by operation and frame",
		}, []string{"operation", "frame"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"operation"}),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.operations.Describe(ch)
	c.rows.Describe(ch)
	c.failures.Describe(ch)
	c.duration.Describe(ch)
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.operations.Collect(ch)
	c.rows.Collect(ch)
	c.failures.Collect(ch)
	c.duration.Collect(ch)
}

func (c *Collector) observe(m OperationMetrics) {
	c.operations.WithLabelValues(m.Operation, m.Frame).Inc()
	c.rows.WithLabelValues(m.Operation, m.Frame).Add(float64(m.RowsProcessed))
	if m.Failed {
		c.failures.WithLabelValues(m.Operation, m.Frame).Inc()
	}
	if m.Duration > 0 {
		c.duration.WithLabelValues(m.Operation).Observe(m.Duration.Seconds())
	}
}

// Attach forwards every recorded metric to c
func (mc *MetricsCollector) Attach(c *Collector) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.exporters = append(mc.exporters, c)
}
