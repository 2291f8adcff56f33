// Package series provides Arrow-backed typed columns and the conversions
// between table cells and Arrow arrays
package series

import (
	"fmt"
	"reflect"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/lazystore/internal/table"
)

// ISeries is the untyped view of a Series
type ISeries interface {
	Name() string
	Len() int
	DType() table.DType
	DataType() arrow.DataType
	IsNull(index int) bool
	Any() []any
	Array() arrow.Array
	Release()
	String() string
}

// Series represents a typed data column with Apache Arrow backend
type Series[T any] struct {
	name  string
	dtype table.DType
	array arrow.Array
}

// New creates a new Series from a slice of values. It panics on element
// types without a dtype; use NewSafe to get an error instead.
func New[T any](name string, values []T, mem memory.Allocator) *Series[T] {
	s, err := NewSafe(name, values, mem)
	if err != nil {
		panic(err)
	}
	return s
}

// NewSafe creates a new Series from a slice of values
func NewSafe[T any](name string, values []T, mem memory.Allocator) (*Series[T], error) {
	dtype, err := dtypeFor[T]()
	if err != nil {
		return nil, err
	}

	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	arr, err := Build(dtype, cells, mem)
	if err != nil {
		return nil, err
	}
	return &Series[T]{name: name, dtype: dtype, array: arr}, nil
}

// FromValues creates a series of the given dtype from table cells; nil
// cells become nulls
func FromValues(name string, dtype table.DType, values []any, mem memory.Allocator) (ISeries, error) {
	arr, err := Build(dtype, values, mem)
	if err != nil {
		return nil, fmt.Errorf("series %q: %w", name, err)
	}

	switch dtype {
	case table.Int64Type:
		return &Series[int64]{name: name, dtype: dtype, array: arr}, nil
	case table.Float64Type:
		return &Series[float64]{name: name, dtype: dtype, array: arr}, nil
	case table.StringType:
		return &Series[string]{name: name, dtype: dtype, array: arr}, nil
	case table.BoolType:
		return &Series[bool]{name: name, dtype: dtype, array: arr}, nil
	case table.TimeType:
		return &Series[time.Time]{name: name, dtype: dtype, array: arr}, nil
	default:
		return &Series[table.Point]{name: name, dtype: dtype, array: arr}, nil
	}
}

func dtypeFor[T any]() (table.DType, error) {
	var zero T
	switch any(zero).(type) {
	case int64:
		return table.Int64Type, nil
	case float64:
		return table.Float64Type, nil
	case string:
		return table.StringType, nil
	case bool:
		return table.BoolType, nil
	case time.Time:
		return table.TimeType, nil
	case table.Point:
		return table.PointType, nil
	}
	return 0, fmt.Errorf("unsupported type: %T", zero)
}

// Name returns the column name
func (s *Series[T]) Name() string {
	return s.name
}

// Len returns the length of the series
func (s *Series[T]) Len() int {
	return s.array.Len()
}

// DType returns the table dtype of the series
func (s *Series[T]) DType() table.DType {
	return s.dtype
}

// Values returns the data as a Go slice; nulls become the zero value
func (s *Series[T]) Values() []T {
	return table.As[T](s.Any())
}

// Any returns the cells with nulls as nil
func (s *Series[T]) Any() []any {
	values, err := Values(s.array)
	if err != nil {
		// the array was built for the series dtype
		panic(err)
	}
	return values
}

// Value returns the value at the given index
func (s *Series[T]) Value(index int) T {
	var zero T
	if index < 0 || index >= s.array.Len() || s.array.IsNull(index) {
		return zero
	}
	v, _ := cell(s.array, index).(T)
	return v
}

// DataType returns the Arrow data type
func (s *Series[T]) DataType() arrow.DataType {
	return s.array.DataType()
}

// IsNull checks if the value at index is null
func (s *Series[T]) IsNull(index int) bool {
	return s.array.IsNull(index)
}

// String returns a string representation of the series
func (s *Series[T]) String() string {
	return fmt.Sprintf("Series[%s]: %s (len=%d, nulls=%d)",
		reflect.TypeOf(new(T)).Elem().Name(),
		s.name,
		s.Len(),
		s.array.NullN())
}

// Array returns the underlying Arrow array (retains a reference)
func (s *Series[T]) Array() arrow.Array {
	if s.array != nil {
		s.array.Retain()
		return s.array
	}
	return nil
}

// Release releases the underlying Arrow memory
func (s *Series[T]) Release() {
	if s.array != nil {
		s.array.Release()
	}
}
