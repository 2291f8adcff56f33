// Package io reads and writes frame tables.
//
// Arrow is the interchange layer: a table becomes an Arrow record with two
// leading key columns, __id and __t, followed by its own columns in order.
// The record is then written as an Arrow IPC stream (ToBytes) or a Parquet
// snapshot. CSV and JSON readers load initial rows given the fields of a
// schema.
package io

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/lazystore/internal/table"
)

const (
	// IDColumn holds the row id in serialised tables
	IDColumn = "__id"
	// TimeColumn holds the row time point in serialised tables
	TimeColumn = "__t"

	// DefaultBatchSize is the default row group batch size for Parquet
	DefaultBatchSize = 4096

	// CSV and JSON input name their key columns plainly
	idField   = "id"
	timeField = "t"
)

// TableReader reads a table from a source
type TableReader interface {
	Read() (*table.Table, error)
}

// TableWriter writes a table to a destination
type TableWriter interface {
	Write(t *table.Table) error
}

// CSVOptions contains configuration options for CSV operations
type CSVOptions struct {
	// Delimiter is the field delimiter (default: comma)
	Delimiter rune
	// Comment is the comment character (default: 0 = disabled)
	Comment rune
	// SkipInitialSpace indicates whether to skip initial whitespace
	SkipInitialSpace bool
}

// DefaultCSVOptions returns default CSV options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter: ',',
	}
}

// CSVReader reads rows with a header line into a table of the given fields.
// The id column is required; t is optional and defaults to 0.
type CSVReader struct {
	reader  io.Reader
	options CSVOptions
	fields  []table.Field
}

// NewCSVReader creates a new CSV reader with the specified options
func NewCSVReader(reader io.Reader, options CSVOptions, fields []table.Field) *CSVReader {
	return &CSVReader{
		reader:  reader,
		options: options,
		fields:  fields,
	}
}

// CSVWriter writes tables as CSV with id and t leading columns
type CSVWriter struct {
	writer  io.Writer
	options CSVOptions
}

// NewCSVWriter creates a new CSV writer with the specified options
func NewCSVWriter(writer io.Writer, options CSVOptions) *CSVWriter {
	return &CSVWriter{
		writer:  writer,
		options: options,
	}
}

// JSONFormat selects between a JSON array and JSON lines
type JSONFormat int

const (
	// JSONArray is a single array of row objects
	JSONArray JSONFormat = iota
	// JSONLines is one row object per line
	JSONLines
)

// JSONOptions contains configuration options for JSON operations
type JSONOptions struct {
	Format JSONFormat
	// MaxRecords limits the rows read, 0 reads everything
	MaxRecords int
}

// DefaultJSONOptions returns default JSON options
func DefaultJSONOptions() JSONOptions {
	return JSONOptions{Format: JSONArray}
}

// JSONReader reads row objects into a table of the given fields
type JSONReader struct {
	reader  io.Reader
	options JSONOptions
	fields  []table.Field
}

// NewJSONReader creates a new JSON reader with the specified options
func NewJSONReader(reader io.Reader, options JSONOptions, fields []table.Field) *JSONReader {
	return &JSONReader{
		reader:  reader,
		options: options,
		fields:  fields,
	}
}

// ParquetOptions contains configuration options for Parquet operations
type ParquetOptions struct {
	// Compression is one of none, snappy, gzip or zstd
	Compression string
	// BatchSize for reading/writing operations
	BatchSize int
}

// DefaultParquetOptions returns default Parquet options
func DefaultParquetOptions() ParquetOptions {
	return ParquetOptions{
		Compression: "snappy",
		BatchSize:   DefaultBatchSize,
	}
}

// ParquetReader reads a Parquet snapshot written by ParquetWriter
type ParquetReader struct {
	reader  io.Reader
	options ParquetOptions
	mem     memory.Allocator
}

// NewParquetReader creates a new Parquet reader with the specified options
func NewParquetReader(reader io.Reader, options ParquetOptions, mem memory.Allocator) *ParquetReader {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &ParquetReader{
		reader:  reader,
		options: options,
		mem:     mem,
	}
}

// ParquetWriter writes tables as Parquet snapshots
type ParquetWriter struct {
	writer  io.Writer
	options ParquetOptions
}

// NewParquetWriter creates a new Parquet writer with the specified options
func NewParquetWriter(writer io.Writer, options ParquetOptions) *ParquetWriter {
	return &ParquetWriter{
		writer:  writer,
		options: options,
	}
}
