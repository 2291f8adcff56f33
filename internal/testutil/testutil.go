// Package testutil provides shared fixtures for store tests: a store wired
// to an observed logger, a deterministic clock, a small points frame and
// call counting for compute functions.
package testutil

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paveg/lazystore/internal/config"
	"github.com/paveg/lazystore/internal/monitoring"
	"github.com/paveg/lazystore/internal/schema"
	"github.com/paveg/lazystore/internal/store"
	"github.com/paveg/lazystore/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	// defaultRowCount is the default number of rows in the points frame
	defaultRowCount = 4

	// PointsKey is the key of the points frame
	PointsKey = "points"
)

// Epoch is the first time returned by a StepClock
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// StepClock returns Epoch, then advances one second per call
type StepClock struct {
	mu   sync.Mutex
	next time.Time
}

// NewStepClock creates a clock starting at Epoch
func NewStepClock() *StepClock {
	return &StepClock{next: Epoch}
}

// Now returns the current step and advances the clock
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.next
	c.next = c.next.Add(time.Second)
	return now
}

// TestStore bundles a store with the observers it reports to
type TestStore struct {
	*store.Store
	Logs    *observer.ObservedLogs
	Metrics *monitoring.MetricsCollector
	Clock   *StepClock
}

// NewTestStore creates a store logging at debug level into memory, with
// metrics enabled and a StepClock
func NewTestStore(tb testing.TB, opts ...store.Option) *TestStore {
	tb.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	ts := &TestStore{
		Logs:    logs,
		Metrics: monitoring.NewMetricsCollector(true),
		Clock:   NewStepClock(),
	}
	base := []store.Option{
		store.WithConfig(config.NewConfig()),
		store.WithLogger(zap.New(core)),
		store.WithMetrics(ts.Metrics),
		store.WithClock(ts.Clock.Now),
	}
	ts.Store = store.NewStore(append(base, opts...)...)
	return ts
}

// Counter counts the invocations of a compute function
type Counter struct {
	calls atomic.Int64
	rows  atomic.Int64
}

// Wrap returns fn counting its calls and the rows it computed
func (c *Counter) Wrap(fn store.ComputeFunc) store.ComputeFunc {
	return func(view *store.Frame) (store.Result, error) {
		c.calls.Add(1)
		c.rows.Add(int64(view.Len()))
		return fn(view)
	}
}

// Calls returns the number of invocations
func (c *Counter) Calls() int64 {
	return c.calls.Load()
}

// Rows returns the total number of rows computed
func (c *Counter) Rows() int64 {
	return c.rows.Load()
}

// Reset zeroes the counts
func (c *Counter) Reset() {
	c.calls.Store(0)
	c.rows.Store(0)
}

// PointsOption configures the points frame
type PointsOption func(*pointsConfig)

type pointsConfig struct {
	rowCount int
	timed    bool
}

// WithRowCount sets the number of rows
func WithRowCount(count int) PointsOption {
	return func(cfg *pointsConfig) {
		cfg.rowCount = count
	}
}

// WithTimed gives the points frame a timed index with two time points
func WithTimed() PointsOption {
	return func(cfg *pointsConfig) {
		cfg.timed = true
	}
}

// PointsSchema declares x, y and a label with a computed x_squared
func PointsSchema(timed bool) *schema.Schema {
	opts := []schema.Option{
		schema.WithAttributes(
			schema.Attribute{Key: "x", Title: "X", DType: table.Float64Type, Default: 0.0},
			schema.Attribute{Key: "y", Title: "Y", DType: table.Float64Type, Default: 0.0},
			schema.Attribute{Key: "label", Title: "Label", DType: table.StringType, Default: "", Rule: "max=16"},
		),
	}
	if timed {
		opts = append(opts, schema.Timed())
	}
	return schema.MustNew(PointsKey, opts...)
}

// SquareX computes x*x
func SquareX(view *store.Frame) (store.Result, error) {
	xs, err := store.ColumnAs[float64](view, "x")
	if err != nil {
		return store.Result{}, err
	}
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = x * x
	}
	return store.ValuesOf(out), nil
}

// PointsData returns rows with ids 1..n where x = id and y = 2*id. Timed
// data holds each id at t=0 and t=1.
func PointsData(tb testing.TB, n int, timed bool) *table.Table {
	tb.Helper()

	data := table.New(
		table.Field{Name: "x", DType: table.Float64Type},
		table.Field{Name: "y", DType: table.Float64Type},
		table.Field{Name: "label", DType: table.StringType},
	)
	times := []int64{0}
	if timed {
		times = []int64{0, 1}
	}
	for id := int64(1); id <= int64(n); id++ {
		for _, t := range times {
			require.NoError(tb, data.Append(table.KT(id, t), table.Row{
				"x":     float64(id),
				"y":     float64(2 * id),
				"label": "p",
			}))
		}
	}
	return data
}

// CreatePointsFrame registers the points frame with a counted x_squared
func CreatePointsFrame(tb testing.TB, s *store.Store, opts ...PointsOption) (*store.Frame, *Counter) {
	tb.Helper()

	cfg := &pointsConfig{rowCount: defaultRowCount}
	for _, opt := range opts {
		opt(cfg)
	}

	frame, err := s.AddFrame(PointsSchema(cfg.timed), PointsData(tb, cfg.rowCount, cfg.timed))
	require.NoError(tb, err)

	counter := &Counter{}
	err = frame.AddComputed("x_squared",
		schema.Attribute{Title: "X squared", DType: table.Float64Type},
		counter.Wrap(SquareX),
		schema.Dependencies{"": {"x"}},
		false,
	)
	require.NoError(tb, err)
	return frame, counter
}

// Snapshot returns every row and column of frame, computing what is needed
func Snapshot(tb testing.TB, frame *store.Frame) *table.Table {
	tb.Helper()
	t, err := frame.Table()
	require.NoError(tb, err)
	return t
}

// AssertTablesEqual compares two tables cell by cell, ignoring the excluded
// columns
func AssertTablesEqual(tb testing.TB, expected, actual *table.Table, exclude ...string) {
	tb.Helper()

	require.NotNil(tb, expected, "expected table should not be nil")
	require.NotNil(tb, actual, "actual table should not be nil")

	assert.Equal(tb, expected.Keys(), actual.Keys(), "row keys differ")
	if !assert.Equal(tb, expected.Fingerprint(exclude...), actual.Fingerprint(exclude...), "table contents differ") {
		tb.Logf("expected: %s", expected)
		tb.Logf("actual:   %s", actual)
	}
}
