package store

import (
	"io"

	"github.com/paveg/lazystore/internal/errors"
	lio "github.com/paveg/lazystore/internal/io"
	"github.com/paveg/lazystore/internal/schema"
	"github.com/paveg/lazystore/internal/table"
)

func (s *Store) parquetOptions() lio.ParquetOptions {
	return lio.ParquetOptions{
		Compression: s.cfg.SnapshotCompression,
		BatchSize:   s.cfg.SnapshotBatchSize,
	}
}

// WriteParquet writes the visible rows, computed columns and their valid
// flags included, as a Parquet snapshot compressed per the store config
func (f *Frame) WriteParquet(w io.Writer) error {
	t, err := f.Table()
	if err != nil {
		return err
	}
	if err := lio.NewParquetWriter(w, f.store.parquetOptions()).Write(t); err != nil {
		return errors.NewInternalError("WriteParquet", err)
	}
	return nil
}

// ReadParquet replaces the frame data with a snapshot written by WriteParquet
func (f *Frame) ReadParquet(r io.Reader) error {
	t, err := lio.NewParquetReader(r, f.store.parquetOptions(), nil).Read()
	if err != nil {
		return errors.NewInvalidInputError("ReadParquet", err.Error())
	}
	return f.LoadData(t)
}

// ImportCSV replaces the frame data with CSV rows. The header names id, an
// optional t and any stored attributes; omitted cells take their default.
func (f *Frame) ImportCSV(r io.Reader, opts lio.CSVOptions) error {
	t, err := lio.NewCSVReader(r, opts, storedFields(f.data.schema)).Read()
	if err != nil {
		return errors.NewInvalidInputError("ImportCSV", err.Error())
	}
	if t, err = prepareImport("ImportCSV", f.data.schema, t); err != nil {
		return err
	}
	return f.LoadData(t)
}

// ImportJSON replaces the frame data with JSON row objects
func (f *Frame) ImportJSON(r io.Reader, opts lio.JSONOptions) error {
	t, err := lio.NewJSONReader(r, opts, storedFields(f.data.schema)).Read()
	if err != nil {
		return errors.NewInvalidInputError("ImportJSON", err.Error())
	}
	if t, err = prepareImport("ImportJSON", f.data.schema, t); err != nil {
		return err
	}
	return f.LoadData(t)
}

// ExportCSV writes the visible columns of the visible rows as CSV
func (f *Frame) ExportCSV(w io.Writer, opts lio.CSVOptions) error {
	t, err := f.Select()
	if err != nil {
		return err
	}
	if err := lio.NewCSVWriter(w, opts).Write(t); err != nil {
		return errors.NewInternalError("ExportCSV", err)
	}
	return nil
}

func storedFields(sc *schema.Schema) []table.Field {
	var out []table.Field
	for _, a := range sc.Attributes() {
		if a.Kind == schema.Stored {
			out = append(out, table.Field{Name: a.Key, DType: a.DType})
		}
	}
	return out
}

// prepareImport fills null cells with defaults and checks every row
// against the schema rules
func prepareImport(op string, sc *schema.Schema, t *table.Table) (*table.Table, error) {
	defaults := sc.Defaults()
	for i, k := range t.Keys() {
		row := t.RowAt(i)
		for key, v := range row {
			if v == nil {
				if def, ok := defaults[key]; ok {
					row[key] = def
					_ = t.Set(k, key, def)
					continue
				}
				delete(row, key)
			}
		}
		delete(row, schema.ModifiedColumn)
		if _, err := sc.Validate(row); err != nil {
			se, ok := errors.AsStoreError(err)
			if !ok {
				return nil, err
			}
			return nil, errors.NewValidationError(op, sc.Key(), se.Column, "row "+k.String()+": "+se.Message)
		}
	}
	return t, nil
}
