package series_test

import (
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/lazystore/internal/series"
	"github.com/paveg/lazystore/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeries(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	t.Run("float64 series", func(t *testing.T) {
		s := series.New("x", []float64{1.5, 2.5}, mem)
		defer s.Release()

		assert.Equal(t, "x", s.Name())
		assert.Equal(t, 2, s.Len())
		assert.Equal(t, table.Float64Type, s.DType())
		assert.Equal(t, arrow.PrimitiveTypes.Float64, s.DataType())
		assert.Equal(t, []float64{1.5, 2.5}, s.Values())
		assert.Equal(t, 2.5, s.Value(1))
		assert.Equal(t, 0.0, s.Value(5), "out of range returns the zero value")
	})

	t.Run("string series", func(t *testing.T) {
		s := series.New("label", []string{"a", "b"}, mem)
		defer s.Release()
		assert.Equal(t, []string{"a", "b"}, s.Values())
		assert.Equal(t, "Series[string]: label (len=2, nulls=0)", s.String())
	})

	t.Run("time series", func(t *testing.T) {
		ts := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
		s := series.New("modified", []time.Time{ts}, mem)
		defer s.Release()
		assert.True(t, ts.Equal(s.Value(0)))
		assert.Equal(t, arrow.TIMESTAMP, s.DataType().ID())
	})

	t.Run("point series", func(t *testing.T) {
		p := table.Point{X: 1, Y: 2, Z: 3}
		s := series.New("point", []table.Point{p}, mem)
		defer s.Release()
		assert.Equal(t, p, s.Value(0))
		assert.True(t, arrow.TypeEqual(series.PointType, s.DataType()))
	})
}

func TestNewSafe_UnsupportedType(t *testing.T) {
	_, err := series.NewSafe("bad", []complex128{1}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported type")

	assert.Panics(t, func() {
		series.New("bad", []int32{1}, nil)
	})
}

func TestFromValues(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	tests := []struct {
		name   string
		dtype  table.DType
		values []any
	}{
		{"int64 with null", table.Int64Type, []any{int64(1), nil, int64(3)}},
		{"float64 with null", table.Float64Type, []any{nil, 2.0}},
		{"string", table.StringType, []any{"a", nil}},
		{"bool", table.BoolType, []any{true, false, nil}},
		{"time", table.TimeType, []any{time.Unix(100, 0).UTC(), nil}},
		{"point", table.PointType, []any{table.Point{X: 1}, nil, table.Point{Y: 2}}},
		{"empty", table.Float64Type, []any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := series.FromValues("col", tt.dtype, tt.values, mem)
			require.NoError(t, err)
			defer s.Release()

			assert.Equal(t, tt.dtype, s.DType())
			assert.Equal(t, len(tt.values), s.Len())
			for i, v := range tt.values {
				assert.Equal(t, v == nil, s.IsNull(i))
			}

			got := s.Any()
			require.Len(t, got, len(tt.values))
			for i := range tt.values {
				assert.True(t, table.Equal(tt.values[i], got[i]), "cell %d: %v != %v", i, tt.values[i], got[i])
			}
		})
	}

	_, err := series.FromValues("x", table.Float64Type, []any{"nope"}, mem)
	require.Error(t, err)
}

func TestTypedAccessorsWithNulls(t *testing.T) {
	s, err := series.FromValues("x", table.Float64Type, []any{1.0, nil}, nil)
	require.NoError(t, err)
	defer s.Release()

	typed, ok := s.(*series.Series[float64])
	require.True(t, ok)
	assert.Equal(t, []float64{1, 0}, typed.Values())
	assert.Equal(t, 0.0, typed.Value(1))
}

func TestDTypeOf(t *testing.T) {
	tests := []struct {
		dt       arrow.DataType
		expected table.DType
	}{
		{arrow.PrimitiveTypes.Int32, table.Int64Type},
		{arrow.PrimitiveTypes.Int64, table.Int64Type},
		{arrow.PrimitiveTypes.Float32, table.Float64Type},
		{arrow.BinaryTypes.LargeString, table.StringType},
		{arrow.FixedWidthTypes.Boolean, table.BoolType},
		{arrow.FixedWidthTypes.Timestamp_ms, table.TimeType},
		{series.PointType, table.PointType},
	}
	for _, tt := range tests {
		t.Run(tt.dt.String(), func(t *testing.T) {
			got, err := series.DTypeOf(tt.dt)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := series.DTypeOf(arrow.BinaryTypes.Binary)
	require.Error(t, err)
	_, err = series.DTypeOf(arrow.StructOf(arrow.Field{Name: "a", Type: arrow.PrimitiveTypes.Int8}))
	require.Error(t, err)
}

func TestValues_ForeignWidths(t *testing.T) {
	mem := memory.NewGoAllocator()
	b := array.NewInt32Builder(mem)
	defer b.Release()
	b.AppendValues([]int32{1, 2}, nil)
	b.AppendNull()
	arr := b.NewArray()
	defer arr.Release()

	values, err := series.Values(arr)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), nil}, values)
}
