package store_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	lserrors "github.com/paveg/lazystore/internal/errors"
	"github.com/paveg/lazystore/internal/schema"
	"github.com/paveg/lazystore/internal/store"
	"github.com/paveg/lazystore/internal/table"
	"github.com/paveg/lazystore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_Reads(t *testing.T) {
	ts := testutil.NewTestStore(t)
	frame, _ := testutil.CreatePointsFrame(t, ts.Store)

	t.Run("cell", func(t *testing.T) {
		v, err := frame.Cell(table.K(3), "x")
		require.NoError(t, err)
		assert.Equal(t, 3.0, v)
	})

	t.Run("row excludes hidden columns", func(t *testing.T) {
		row, err := frame.Row(table.K(2))
		require.NoError(t, err)
		assert.Equal(t, table.Row{"x": 2.0, "y": 4.0, "label": "p", "x_squared": 4.0}, row)
	})

	t.Run("column as", func(t *testing.T) {
		ys, err := store.ColumnAs[float64](frame, "y")
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 4, 6, 8}, ys)
	})

	t.Run("select", func(t *testing.T) {
		sel, err := frame.Select("x", "x_squared")
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "x_squared"}, sel.Columns())
		assert.Equal(t, 4, sel.Len())

		all, err := frame.Select()
		require.NoError(t, err)
		assert.Equal(t, frame.Columns(), all.Columns())
	})

	t.Run("series", func(t *testing.T) {
		s, err := frame.Series("x_squared")
		require.NoError(t, err)
		defer s.Release()
		assert.Equal(t, 4, s.Len())
		assert.Equal(t, table.Float64Type, s.DType())
	})

	t.Run("hidden modified column is readable", func(t *testing.T) {
		_, err := frame.Cell(table.K(1), "modified")
		assert.NoError(t, err)
	})

	t.Run("missing row", func(t *testing.T) {
		_, err := frame.Cell(table.K(99), "x")
		assert.True(t, errors.Is(err, lserrors.ErrNotFound))
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := frame.Column("z")
		assert.True(t, errors.Is(err, lserrors.ErrColumnNotFound))

		_, err = frame.Cell(table.K(1), "x_squared.valid")
		assert.True(t, errors.Is(err, lserrors.ErrColumnNotFound))
	})

	t.Run("attributes", func(t *testing.T) {
		attrs := frame.ColumnsAttributes()
		require.Len(t, attrs, 4)
		assert.Equal(t, "X squared", attrs[3].Title)
		assert.Equal(t, testutil.PointsKey, frame.Key())
		assert.False(t, frame.IsView())
		assert.Same(t, ts.Store, frame.Store())
	})
}

func TestFrame_Views(t *testing.T) {
	ts := testutil.NewTestStore(t)
	frame, counter := testutil.CreatePointsFrame(t, ts.Store, testutil.WithRowCount(6))

	t.Run("rows", func(t *testing.T) {
		view, err := frame.Rows(table.K(5), table.K(2))
		require.NoError(t, err)
		assert.True(t, view.IsView())

		keys, err := view.Keys()
		require.NoError(t, err)
		assert.Equal(t, table.Keys(2, 5), keys)

		_, err = frame.Rows(table.K(42))
		assert.True(t, errors.Is(err, lserrors.ErrNotFound))
	})

	t.Run("views compute only their rows", func(t *testing.T) {
		counter.Reset()
		view, err := frame.Rows(table.K(1), table.K(2))
		require.NoError(t, err)

		values, err := view.Column("x_squared")
		require.NoError(t, err)
		assert.Equal(t, []any{1.0, 4.0}, values)
		assert.Equal(t, int64(2), counter.Rows())

		pending, err := frame.PendingColumns()
		require.NoError(t, err)
		assert.Equal(t, []string{"x_squared"}, pending)

		pending, err = view.PendingColumns()
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("row range is inclusive", func(t *testing.T) {
		view, err := frame.RowRange(table.K(2), table.K(4))
		require.NoError(t, err)
		assert.Equal(t, 3, view.Len())
	})

	t.Run("where", func(t *testing.T) {
		view, err := frame.Where([]bool{true, false, true, false, false, false})
		require.NoError(t, err)
		keys, err := view.Keys()
		require.NoError(t, err)
		assert.Equal(t, table.Keys(1, 3), keys)

		nested, err := view.Where([]bool{false, true})
		require.NoError(t, err)
		keys, err = nested.Keys()
		require.NoError(t, err)
		assert.Equal(t, table.Keys(3), keys)

		_, err = frame.Where([]bool{true})
		assert.Error(t, err)
	})

	t.Run("rows by id", func(t *testing.T) {
		view, err := frame.RowsByID(6, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, view.Len())

		_, err = frame.RowsByID(1, 77)
		assert.True(t, errors.Is(err, lserrors.ErrNotFound))
	})

	t.Run("view of a view stays within it", func(t *testing.T) {
		view, err := frame.Rows(table.K(1), table.K(2))
		require.NoError(t, err)
		_, err = view.Rows(table.K(3))
		assert.True(t, errors.Is(err, lserrors.ErrNotFound))

		_, err = view.IsValid(table.K(3), "x_squared")
		assert.True(t, errors.Is(err, lserrors.ErrNotFound))
	})

	view, err := frame.Rows(table.K(1))
	require.NoError(t, err)

	tests := []struct {
		name   string
		source *store.Frame
		sel    func(f *store.Frame) (*store.Frame, error)
	}{
		{"frame rows by no id", frame, func(f *store.Frame) (*store.Frame, error) { return f.RowsByID() }},
		{"view rows by no id", view, func(f *store.Frame) (*store.Frame, error) { return f.RowsByID() }},
		{"frame rows of no key", frame, func(f *store.Frame) (*store.Frame, error) { return f.Rows() }},
		{"view rows of no key", view, func(f *store.Frame) (*store.Frame, error) { return f.Rows() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := tt.sel(tt.source)
			require.NoError(t, err)
			assert.True(t, sub.IsView())
			assert.Zero(t, sub.Len())

			values, err := sub.Column("x")
			require.NoError(t, err)
			assert.Empty(t, values)
		})
	}
}

func TestFrame_ViewMaskFollowsMutations(t *testing.T) {
	ts := testutil.NewTestStore(t)
	frame, _ := testutil.CreatePointsFrame(t, ts.Store)

	view, err := frame.Rows(table.K(1), table.K(2), table.K(3))
	require.NoError(t, err)
	assert.Equal(t, 3, view.Len())

	require.NoError(t, frame.Drop(table.K(2)))
	keys, err := view.Keys()
	require.NoError(t, err)
	assert.Equal(t, table.Keys(1, 3), keys)

	_, err = view.Cell(table.K(2), "x")
	assert.True(t, errors.Is(err, lserrors.ErrNotFound))

	undone, err := frame.Undo()
	require.NoError(t, err)
	require.True(t, undone)

	keys, err = view.Keys()
	require.NoError(t, err)
	assert.Equal(t, table.Keys(1, 2, 3), keys)

	// rows inserted outside the view do not join it
	require.NoError(t, frame.Update([]table.Key{table.K(10)}, table.Row{"x": 10.0}, store.UpdateOptions{}))
	assert.Equal(t, 3, view.Len())
}

func TestFrame_StaleViewAfterLoadData(t *testing.T) {
	ts := testutil.NewTestStore(t)
	frame, _ := testutil.CreatePointsFrame(t, ts.Store)

	view, err := frame.Rows(table.K(1))
	require.NoError(t, err)
	require.NoError(t, frame.Update([]table.Key{table.K(1)}, table.Row{"x": 3.0}, store.UpdateOptions{}))
	epoch := frame.State().Epoch()

	require.NoError(t, frame.LoadData(testutil.PointsData(t, 2, false)))
	assert.Greater(t, frame.State().Epoch(), epoch)

	_, err = view.Column("x")
	assert.True(t, errors.Is(err, lserrors.ErrStaleView))
	assert.Zero(t, view.Len())

	assert.Equal(t, 2, frame.Len())
	v, err := frame.Cell(table.K(2), "x_squared")
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)

	stats := ts.LogStats()
	assert.Zero(t, stats.Len)
	assert.False(t, stats.CanUndo)
}

func TestFrame_LoadDataRejectsUnknownColumns(t *testing.T) {
	ts := testutil.NewTestStore(t)
	frame, _ := testutil.CreatePointsFrame(t, ts.Store)

	data := table.New(table.Field{Name: "colour", DType: table.StringType})
	require.NoError(t, data.Append(table.K(1), table.Row{"colour": "red"}))

	err := frame.LoadData(data)
	assert.True(t, errors.Is(err, lserrors.ErrSchemaValidation))
	assert.Equal(t, 4, frame.Len())
}

func TestFrame_BytesRoundTrip(t *testing.T) {
	source := testutil.NewTestStore(t)
	frame, _ := testutil.CreatePointsFrame(t, source.Store)
	require.NoError(t, frame.Update([]table.Key{table.K(2)}, table.Row{"label": "moved"}, store.UpdateOptions{}))

	b, err := frame.ToBytes()
	require.NoError(t, err)

	target := testutil.NewTestStore(t)
	restored, counter := testutil.CreatePointsFrame(t, target.Store, testutil.WithRowCount(0))
	require.NoError(t, restored.LoadBytes(b))

	testutil.AssertTablesEqual(t, testutil.Snapshot(t, frame), testutil.Snapshot(t, restored))
	assert.Zero(t, counter.Calls(), "cached values travel with the bytes")

	assert.Error(t, restored.LoadBytes([]byte("garbage")))
}

func TestFrame_ColumnsWhileAddingComputed(t *testing.T) {
	ts := testutil.NewTestStore(t)
	frame, _ := testutil.CreatePointsFrame(t, ts.Store)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 50 {
			_ = frame.Columns()
			_ = frame.ColumnsAttributes()
		}
	}()
	for i := range 10 {
		err := frame.AddComputed(fmt.Sprintf("c%d", i), schema.Attribute{DType: table.Float64Type},
			testutil.SquareX, schema.Dependencies{"": {"x"}}, false)
		require.NoError(t, err)
	}
	wg.Wait()

	assert.Contains(t, frame.Columns(), "c9")
	assert.Len(t, frame.ColumnsAttributes(), len(frame.Columns()))
}
