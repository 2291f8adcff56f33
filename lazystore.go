// Package lazystore is an in-memory store of related, keyed tables whose
// computed columns are evaluated lazily and cached per row.
//
// Each frame is declared by a schema of stored and computed attributes.
// Computed attributes name the columns they read, in their own frame or in
// linked frames, and a compute function fills them for the rows that are
// read while their cache is invalid. Mutations go through Update and Drop,
// which invalidate exactly the dependent cells and record an undoable
// operation.
//
//	s := lazystore.New(lazystore.WithConfig(cfg))
//	points, err := s.AddFrame(sc, nil)
//	if err != nil {
//		return err
//	}
//	err = points.AddComputed("x_squared", lazystore.Attribute{DType: lazystore.Float64Type},
//		squareX, lazystore.Dependencies{"": {"x"}}, false)
//
// This package is the public API; the implementation lives under internal/.
package lazystore

import (
	"github.com/paveg/lazystore/internal/config"
	"github.com/paveg/lazystore/internal/errors"
	"github.com/paveg/lazystore/internal/schema"
	"github.com/paveg/lazystore/internal/series"
	"github.com/paveg/lazystore/internal/store"
	"github.com/paveg/lazystore/internal/table"
)

// Store, frames and compute functions
type (
	Store         = store.Store
	Frame         = store.Frame
	Record        = store.Record
	Option        = store.Option
	UpdateOptions = store.UpdateOptions
	ComputeFunc   = store.ComputeFunc
	Result        = store.Result
	SharedState   = store.SharedState
)

// Schemas
type (
	Schema       = schema.Schema
	SchemaOption = schema.Option
	Attribute    = schema.Attribute
	Dependencies = schema.Dependencies
	Link         = schema.Link
	Kind         = schema.Kind
)

// Tables
type (
	Key    = table.Key
	Row    = table.Row
	Table  = table.Table
	Field  = table.Field
	DType  = table.DType
	Point  = table.Point
	Series = series.ISeries
)

// Config holds store settings
type Config = config.Config

// Error is returned by every store operation
type Error = errors.StoreError

// Attribute kinds
const (
	Stored   = schema.Stored
	Computed = schema.Computed
)

// Column types
const (
	Int64Type   = table.Int64Type
	Float64Type = table.Float64Type
	StringType  = table.StringType
	BoolType    = table.BoolType
	TimeType    = table.TimeType
	PointType   = table.PointType
)

// Sentinels for errors.Is
var (
	ErrSchemaValidation = errors.ErrSchemaValidation
	ErrNotFound         = errors.ErrNotFound
	ErrColumnNotFound   = errors.ErrColumnNotFound
	ErrStaleView        = errors.ErrStaleView
	ErrDependencyCycle  = errors.ErrDependencyCycle
	ErrDuplicateFrame   = errors.ErrDuplicateFrame
)

// Store options
var (
	WithConfig  = store.WithConfig
	WithLogger  = store.WithLogger
	WithMetrics = store.WithMetrics
	WithClock   = store.WithClock
)

// Schema options
var (
	Timed          = schema.Timed
	WithAttributes = schema.WithAttributes
	WithLink       = schema.WithLink
)

// New creates an empty store
func New(opts ...Option) *Store {
	return store.NewStore(opts...)
}

// NewSchema declares the schema of the frame key
func NewSchema(key string, opts ...SchemaOption) (*Schema, error) {
	return schema.New(key, opts...)
}

// NewConfig returns the default configuration
func NewConfig() Config {
	return config.NewConfig()
}

// LoadConfig reads a JSON or YAML configuration file and applies
// LAZYSTORE_ environment overrides
func LoadConfig(path string) (Config, error) {
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return Config{}, err
	}
	return config.LoadFromEnv(cfg), nil
}

// NewTable creates an empty table with the given columns
func NewTable(fields ...Field) *Table {
	return table.New(fields...)
}

// K returns the key of an untimed row
func K(id int64) Key {
	return table.K(id)
}

// KT returns the key of row id at time point t
func KT(id, t int64) Key {
	return table.KT(id, t)
}

// ValuesOf wraps one value per view row as a compute result
func ValuesOf[T any](values []T) Result {
	return store.ValuesOf(values)
}

// TableOf wraps a table filling several computed columns as a compute result
func TableOf(t *Table) Result {
	return store.TableOf(t)
}

// ColumnAs reads a column of frame as a typed slice
func ColumnAs[T any](f *Frame, column string) ([]T, error) {
	return store.ColumnAs[T](f, column)
}

// WithSeries reads a column as an Arrow-backed series, runs fn with it and
// releases it
func WithSeries(f *Frame, column string, fn func(Series) error) error {
	s, err := f.Series(column)
	if err != nil {
		return err
	}
	defer s.Release()
	return fn(s)
}
