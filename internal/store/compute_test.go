package store_test

import (
	"errors"
	"testing"

	lserrors "github.com/paveg/lazystore/internal/errors"
	"github.com/paveg/lazystore/internal/monitoring"
	"github.com/paveg/lazystore/internal/schema"
	"github.com/paveg/lazystore/internal/store"
	"github.com/paveg/lazystore/internal/table"
	"github.com/paveg/lazystore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestCompute_Lazy(t *testing.T) {
	ts := testutil.NewTestStore(t)
	frame, counter := testutil.CreatePointsFrame(t, ts.Store)

	assert.Zero(t, counter.Calls(), "nothing runs before a read")

	v, err := frame.Cell(table.K(3), "x_squared")
	require.NoError(t, err)
	assert.Equal(t, 9.0, v)
	assert.Equal(t, int64(1), counter.Calls())
	assert.Equal(t, int64(1), counter.Rows())

	// cached
	v, err = frame.Cell(table.K(3), "x_squared")
	require.NoError(t, err)
	assert.Equal(t, 9.0, v)
	assert.Equal(t, int64(1), counter.Calls())

	// the remaining rows are computed in one call
	_, err = frame.Column("x_squared")
	require.NoError(t, err)
	assert.Equal(t, int64(2), counter.Calls())
	assert.Equal(t, int64(4), counter.Rows())

	assert.Equal(t, 2, ts.Metrics.Count(monitoring.OpRecompute, testutil.PointsKey, "x_squared"))
	entries := ts.Logs.FilterMessage("recomputed column").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "x_squared", entries[0].ContextMap()["column"])
}

func TestCompute_Errors(t *testing.T) {
	errBoom := errors.New("boom")
	failing := func(*store.Frame) (store.Result, error) {
		return store.Result{}, errBoom
	}
	short := func(*store.Frame) (store.Result, error) {
		return store.ValuesOf([]float64{1}), nil
	}

	tests := []struct {
		name  string
		fn    store.ComputeFunc
		check func(t *testing.T, err error)
	}{
		{
			name: "function error is wrapped",
			fn:   failing,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, errBoom))
				se, ok := lserrors.AsStoreError(err)
				require.True(t, ok)
				assert.Equal(t, testutil.PointsKey, se.Frame)
				assert.Equal(t, "bad", se.Column)
			},
		},
		{
			name: "misaligned values",
			fn:   short,
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "got 1 values for 4 rows")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := testutil.NewTestStore(t)
			frame, _ := testutil.CreatePointsFrame(t, ts.Store)
			require.NoError(t, frame.AddComputed("bad", schema.Attribute{DType: table.Float64Type}, tt.fn,
				schema.Dependencies{"": {"x"}}, false))

			_, err := frame.Column("bad")
			require.Error(t, err)
			tt.check(t, err)

			valid, err := frame.IsValid(table.K(1), "bad")
			require.NoError(t, err)
			assert.False(t, valid, "failed rows stay invalid")

			summary := ts.Metrics.GetSummary()
			assert.Equal(t, 1, summary.Failures)
			assert.Equal(t, 1, ts.Logs.FilterMessage("compute failed").FilterField(zap.String("column", "bad")).Len())
		})
	}
}

func TestCompute_TableResult(t *testing.T) {
	ts := testutil.NewTestStore(t)
	frame, _ := testutil.CreatePointsFrame(t, ts.Store)

	counter := &testutil.Counter{}
	sumDiff := counter.Wrap(func(view *store.Frame) (store.Result, error) {
		keys, err := view.Keys()
		if err != nil {
			return store.Result{}, err
		}
		xs, err := store.ColumnAs[float64](view, "x")
		if err != nil {
			return store.Result{}, err
		}
		ys, err := store.ColumnAs[float64](view, "y")
		if err != nil {
			return store.Result{}, err
		}

		out := table.New(
			table.Field{Name: "sum", DType: table.Float64Type},
			table.Field{Name: "diff", DType: table.Float64Type},
		)
		for i, k := range keys {
			if k.ID == 4 {
				continue
			}
			if err := out.Append(k, table.Row{"sum": xs[i] + ys[i], "diff": ys[i] - xs[i]}); err != nil {
				return store.Result{}, err
			}
		}
		return store.TableOf(out), nil
	})

	deps := schema.Dependencies{"": {"x", "y"}}
	require.NoError(t, frame.AddComputed("sum", schema.Attribute{DType: table.Float64Type}, sumDiff, deps, false))
	require.NoError(t, frame.AddComputed("diff", schema.Attribute{DType: table.Float64Type}, sumDiff, deps, false))

	sums, err := frame.Column("sum")
	require.NoError(t, err)
	assert.Equal(t, []any{3.0, 6.0, 9.0, nil}, sums)

	diffs, err := frame.Column("diff")
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0, 3.0, nil}, diffs)
	assert.Equal(t, int64(1), counter.Calls(), "one call fills both columns")

	// omitted rows are cached as null
	_, err = frame.Cell(table.K(4), "sum")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counter.Calls())

	t.Run("non computed result column", func(t *testing.T) {
		bad := func(view *store.Frame) (store.Result, error) {
			out := table.New(table.Field{Name: "x", DType: table.Float64Type})
			return store.TableOf(out), nil
		}
		require.NoError(t, frame.AddComputed("broken", schema.Attribute{DType: table.Float64Type}, bad, deps, false))
		_, err := frame.Column("broken")
		assert.ErrorContains(t, err, `result column "x" is not a computed column`)
	})
}

func TestCompute_DependencyChain(t *testing.T) {
	ts := testutil.NewTestStore(t)
	frame, squares := testutil.CreatePointsFrame(t, ts.Store)

	quartic := &testutil.Counter{}
	require.NoError(t, frame.AddComputed("x_quartic", schema.Attribute{DType: table.Float64Type},
		quartic.Wrap(func(view *store.Frame) (store.Result, error) {
			sq, err := store.ColumnAs[float64](view, "x_squared")
			if err != nil {
				return store.Result{}, err
			}
			out := make([]float64, len(sq))
			for i, v := range sq {
				out[i] = v * v
			}
			return store.ValuesOf(out), nil
		}),
		schema.Dependencies{"": {"x_squared"}}, false))

	v, err := frame.Cell(table.K(2), "x_quartic")
	require.NoError(t, err)
	assert.Equal(t, 16.0, v)
	assert.Equal(t, int64(1), squares.Calls(), "dependencies are computed first")

	require.NoError(t, frame.Update([]table.Key{table.K(2)}, table.Row{"x": 3.0}, store.UpdateOptions{}))
	valid, err := frame.IsValid(table.K(2), "x_quartic")
	require.NoError(t, err)
	assert.False(t, valid)

	v, err = frame.Cell(table.K(2), "x_quartic")
	require.NoError(t, err)
	assert.Equal(t, 81.0, v)
	assert.Equal(t, int64(2), quartic.Calls())

	assert.Equal(t, map[string][]string{
		testutil.PointsKey: {"x_quartic.valid", "x_squared.valid"},
	}, ts.Dependents(testutil.PointsKey, "x"))
}

func TestBind(t *testing.T) {
	ts := testutil.NewTestStore(t)
	frame, _ := testutil.CreatePointsFrame(t, ts.Store)

	t.Run("undeclared column", func(t *testing.T) {
		err := frame.Bind("missing", testutil.SquareX)
		assert.True(t, errors.Is(err, lserrors.ErrColumnNotFound))
	})

	t.Run("stored column", func(t *testing.T) {
		err := frame.Bind("x", testutil.SquareX)
		assert.True(t, errors.Is(err, lserrors.ErrSchemaValidation))
	})

	t.Run("nil function", func(t *testing.T) {
		assert.Error(t, frame.Bind("x_squared", nil))
	})

	t.Run("rebinding invalidates the cache", func(t *testing.T) {
		_, err := frame.Column("x_squared")
		require.NoError(t, err)

		cube := func(view *store.Frame) (store.Result, error) {
			xs, err := store.ColumnAs[float64](view, "x")
			if err != nil {
				return store.Result{}, err
			}
			out := make([]float64, len(xs))
			for i, x := range xs {
				out[i] = x * x * x
			}
			return store.ValuesOf(out), nil
		}
		require.NoError(t, frame.Bind("x_squared", cube))

		v, err := frame.Cell(table.K(2), "x_squared")
		require.NoError(t, err)
		assert.Equal(t, 8.0, v)
	})
}

func TestCompute_UnboundColumn(t *testing.T) {
	ts := testutil.NewTestStore(t)
	sc := schema.MustNew("unbound", schema.WithAttributes(
		schema.Attribute{Key: "x", DType: table.Float64Type},
		schema.Attribute{Key: "twice", DType: table.Float64Type, Kind: schema.Computed,
			Dependencies: schema.Dependencies{"": {"x"}}},
	))
	frame, err := ts.AddFrame(sc, nil)
	require.NoError(t, err)
	require.NoError(t, frame.Update([]table.Key{table.K(1)}, table.Row{"x": 2.0}, store.UpdateOptions{}))

	_, err = frame.Column("twice")
	assert.ErrorContains(t, err, "no compute function bound")
}
