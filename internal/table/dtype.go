package table

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DType is the declared type of a column
type DType int

const (
	Int64Type DType = iota
	Float64Type
	StringType
	BoolType
	TimeType
	PointType
)

// Point is a 3D point, the geometric payload of a frame row
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Distance returns the euclidean distance between two points
func (p Point) Distance(other Point) float64 {
	dx, dy, dz := p.X-other.X, p.Y-other.Y, p.Z-other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// String returns the name of the dtype
func (d DType) String() string {
	switch d {
	case Int64Type:
		return "int64"
	case Float64Type:
		return "float64"
	case StringType:
		return "string"
	case BoolType:
		return "bool"
	case TimeType:
		return "time"
	case PointType:
		return "point"
	default:
		return fmt.Sprintf("dtype(%d)", int(d))
	}
}

// ParseDType parses a dtype name as produced by String
func ParseDType(name string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "int64", "int":
		return Int64Type, nil
	case "float64", "float":
		return Float64Type, nil
	case "string", "str":
		return StringType, nil
	case "bool", "boolean":
		return BoolType, nil
	case "time", "datetime", "timestamp":
		return TimeType, nil
	case "point", "geometry":
		return PointType, nil
	default:
		return 0, fmt.Errorf("unknown dtype: %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler
func (d DType) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *DType) UnmarshalText(text []byte) error {
	parsed, err := ParseDType(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Coerce converts v to the Go representation of the dtype.
// nil passes through as a null cell.
func (d DType) Coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch d {
	case Int64Type:
		return coerceInt64(v)
	case Float64Type:
		return coerceFloat64(v)
	case StringType:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case BoolType:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TimeType:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
	case PointType:
		return coercePoint(v)
	}
	return nil, mismatch(d, v)
}

func mismatch(d DType, v any) error {
	return fmt.Errorf("expected %s, got %T", d, v)
}

func coerceInt64(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return nil, fmt.Errorf("uint value %d overflows int64", n)
		}
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return nil, fmt.Errorf("uint64 value %d overflows int64", n)
		}
		return int64(n), nil
	}
	return nil, mismatch(Int64Type, v)
}

func coerceFloat64(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		i, err := coerceInt64(v)
		if err != nil {
			return nil, err
		}
		return float64(i.(int64)), nil
	}
	return nil, mismatch(Float64Type, v)
}

func coercePoint(v any) (any, error) {
	switch p := v.(type) {
	case Point:
		return p, nil
	case *Point:
		if p == nil {
			return nil, nil
		}
		return *p, nil
	case [2]float64:
		return Point{X: p[0], Y: p[1]}, nil
	case [3]float64:
		return Point{X: p[0], Y: p[1], Z: p[2]}, nil
	}
	return nil, mismatch(PointType, v)
}

// Equal compares two cell values. NaN equals NaN so that unchanged float
// cells do not show up as differences.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return false
		}
		return av == bv || (math.IsNaN(av) && math.IsNaN(bv))
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case Point:
		bv, ok := b.(Point)
		return ok && av == bv
	}
	return a == b
}

// As converts cell values to a typed slice; null cells become the zero value
func As[T any](values []any) []T {
	out := make([]T, len(values))
	for i, v := range values {
		if typed, ok := v.(T); ok {
			out[i] = typed
		}
	}
	return out
}
