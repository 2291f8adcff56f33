package store

import (
	"github.com/paveg/lazystore/internal/table"
)

// ComputeFunc computes a column for the rows of view. view only holds the
// rows whose cached value is invalid; its dependencies are computed before
// the call. The function must read through view, which already holds the
// store lock.
type ComputeFunc func(view *Frame) (Result, error)

// Result is the output of a ComputeFunc: either Values aligned to the
// view's Keys, or a Table keyed by row holding one or more computed columns
type Result struct {
	Values []any
	Table  *table.Table
}

// ValuesOf wraps typed values as a Result
func ValuesOf[T any](values []T) Result {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return Result{Values: out}
}

// TableOf wraps a keyed table as a Result
func TableOf(t *table.Table) Result {
	return Result{Table: t}
}
