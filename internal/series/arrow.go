package series

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/lazystore/internal/table"
)

// PointType is the Arrow representation of table.Point
var PointType = arrow.StructOf(
	arrow.Field{Name: "x", Type: arrow.PrimitiveTypes.Float64},
	arrow.Field{Name: "y", Type: arrow.PrimitiveTypes.Float64},
	arrow.Field{Name: "z", Type: arrow.PrimitiveTypes.Float64},
)

// TimeType is the Arrow representation of table.TimeType cells
var TimeType = &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "UTC"}

// ArrowType returns the Arrow type used for a dtype
func ArrowType(dtype table.DType) arrow.DataType {
	switch dtype {
	case table.Int64Type:
		return arrow.PrimitiveTypes.Int64
	case table.Float64Type:
		return arrow.PrimitiveTypes.Float64
	case table.StringType:
		return arrow.BinaryTypes.String
	case table.BoolType:
		return arrow.FixedWidthTypes.Boolean
	case table.TimeType:
		return TimeType
	default:
		return PointType
	}
}

// DTypeOf maps an Arrow type to a dtype. Narrower numeric and string types
// found in foreign files widen to the dtype.
func DTypeOf(dt arrow.DataType) (table.DType, error) {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return table.Int64Type, nil
	case arrow.FLOAT32, arrow.FLOAT64:
		return table.Float64Type, nil
	case arrow.STRING, arrow.LARGE_STRING:
		return table.StringType, nil
	case arrow.BOOL:
		return table.BoolType, nil
	case arrow.TIMESTAMP:
		return table.TimeType, nil
	case arrow.STRUCT:
		if arrow.TypeEqual(dt, PointType) {
			return table.PointType, nil
		}
	}
	return 0, fmt.Errorf("unsupported arrow type: %s", dt)
}

// appendAll appends cells through typed append functions
func appendAll[T any](values []any, appendNull func(), appendValue func(T)) error {
	for i, v := range values {
		if v == nil {
			appendNull()
			continue
		}
		typed, ok := v.(T)
		if !ok {
			var zero T
			return fmt.Errorf("cell %d: expected %T, got %T", i, zero, v)
		}
		appendValue(typed)
	}
	return nil
}

// Build creates an Arrow array of dtype from cells. Cells must already hold
// the dtype's Go representation; nil is a null.
func Build(dtype table.DType, values []any, mem memory.Allocator) (arrow.Array, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	switch dtype {
	case table.Int64Type:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		if err := appendAll(values, b.AppendNull, b.Append); err != nil {
			return nil, err
		}
		return b.NewArray(), nil
	case table.Float64Type:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		if err := appendAll(values, b.AppendNull, b.Append); err != nil {
			return nil, err
		}
		return b.NewArray(), nil
	case table.StringType:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		if err := appendAll(values, b.AppendNull, b.Append); err != nil {
			return nil, err
		}
		return b.NewArray(), nil
	case table.BoolType:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		if err := appendAll(values, b.AppendNull, b.Append); err != nil {
			return nil, err
		}
		return b.NewArray(), nil
	case table.TimeType:
		b := array.NewTimestampBuilder(mem, TimeType)
		defer b.Release()
		err := appendAll(values, b.AppendNull, func(t time.Time) {
			b.Append(arrow.Timestamp(t.UnixNano()))
		})
		if err != nil {
			return nil, err
		}
		return b.NewArray(), nil
	case table.PointType:
		b := array.NewStructBuilder(mem, PointType)
		defer b.Release()
		xs := b.FieldBuilder(0).(*array.Float64Builder)
		ys := b.FieldBuilder(1).(*array.Float64Builder)
		zs := b.FieldBuilder(2).(*array.Float64Builder)
		err := appendAll(values, b.AppendNull, func(p table.Point) {
			b.Append(true)
			xs.Append(p.X)
			ys.Append(p.Y)
			zs.Append(p.Z)
		})
		if err != nil {
			return nil, err
		}
		return b.NewArray(), nil
	}
	return nil, fmt.Errorf("unsupported dtype: %s", dtype)
}

// Values converts an Arrow array back to table cells; nulls become nil
func Values(arr arrow.Array) ([]any, error) {
	if _, err := DTypeOf(arr.DataType()); err != nil {
		return nil, err
	}
	out := make([]any, arr.Len())
	for i := range out {
		if arr.IsNull(i) {
			continue
		}
		out[i] = cell(arr, i)
	}
	return out, nil
}

// cell reads one non-null value as its dtype representation
func cell(arr arrow.Array, i int) any {
	switch a := arr.(type) {
	case *array.Int64:
		return a.Value(i)
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint16:
		return int64(a.Value(i))
	case *array.Uint8:
		return int64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Boolean:
		return a.Value(i)
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit)
	case *array.Struct:
		return table.Point{
			X: a.Field(0).(*array.Float64).Value(i),
			Y: a.Field(1).(*array.Float64).Value(i),
			Z: a.Field(2).(*array.Float64).Value(i),
		}
	}
	return nil
}
