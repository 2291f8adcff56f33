package io

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/paveg/lazystore/internal/table"
)

// Read reads a Parquet snapshot and returns its table
func (r *ParquetReader) Read() (*table.Table, error) {
	// Parquet needs random access
	data, err := io.ReadAll(r.reader)
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}

	pqReader, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating parquet file reader: %w", err)
	}
	defer pqReader.Close()

	props := pqarrow.ArrowReadProperties{BatchSize: int64(r.batchSize())}
	arrowReader, err := pqarrow.NewFileReader(pqReader, props, r.mem)
	if err != nil {
		return nil, fmt.Errorf("creating arrow file reader: %w", err)
	}

	tbl, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	defer tbl.Release()

	b, err := newTableBuilder(tbl.Schema())
	if err != nil {
		return nil, err
	}

	tr := array.NewTableReader(tbl, int64(r.batchSize()))
	defer tr.Release()
	for tr.Next() {
		if err := b.add(tr.Record()); err != nil {
			return nil, err
		}
	}
	if err := tr.Err(); err != nil {
		return nil, fmt.Errorf("reading batches: %w", err)
	}
	return b.out, nil
}

func (r *ParquetReader) batchSize() int {
	if r.options.BatchSize > 0 {
		return r.options.BatchSize
	}
	return DefaultBatchSize
}

// Codec returns the Parquet compression codec named by name
func Codec(name string) (compress.Compression, error) {
	switch name {
	case "snappy", "":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	}
	return compress.Codecs.Uncompressed, fmt.Errorf("unknown compression %q", name)
}

// Write writes t as a Parquet snapshot. The Arrow schema is stored in the
// file metadata so that time and point columns read back with their types.
func (w *ParquetWriter) Write(t *table.Table) error {
	codec, err := Codec(w.options.Compression)
	if err != nil {
		return err
	}

	mem := memory.NewGoAllocator()
	rec, err := ToRecord(t, mem)
	if err != nil {
		return fmt.Errorf("converting table: %w", err)
	}
	defer rec.Release()

	batch := w.options.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	props := parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithBatchSize(int64(batch)),
		parquet.WithMaxRowGroupLength(int64(batch)),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(mem),
		pqarrow.WithStoreSchema(),
	)

	writer, err := pqarrow.NewFileWriter(rec.Schema(), w.writer, props, arrowProps)
	if err != nil {
		return fmt.Errorf("creating file writer: %w", err)
	}

	tbl := array.NewTableFromRecords(rec.Schema(), []arrow.Record{rec})
	defer tbl.Release()
	if err := writer.WriteTable(tbl, int64(batch)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing table: %w", err)
	}
	return writer.Close()
}
