package io

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/lazystore/internal/series"
	"github.com/paveg/lazystore/internal/table"
	"github.com/paveg/lazystore/internal/version"
)

// Schema returns the Arrow schema of t with the key columns first, tagged
// with the snapshot format version
func Schema(t *table.Table) *arrow.Schema {
	fields := []arrow.Field{
		{Name: IDColumn, Type: arrow.PrimitiveTypes.Int64},
		{Name: TimeColumn, Type: arrow.PrimitiveTypes.Int64},
	}
	for _, f := range t.Fields() {
		fields = append(fields, arrow.Field{Name: f.Name, Type: series.ArrowType(f.DType), Nullable: true})
	}
	md := arrow.NewMetadata([]string{version.FormatMetadataKey}, []string{version.FormatVersion})
	return arrow.NewSchema(fields, &md)
}

// ToRecord converts t to an Arrow record. The caller releases it.
func ToRecord(t *table.Table, mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	ids := make([]any, t.Len())
	times := make([]any, t.Len())
	for i, k := range t.Keys() {
		ids[i] = k.ID
		times[i] = k.T
	}

	columns := make([]arrow.Array, 0, len(t.Fields())+2)
	defer func() {
		for _, c := range columns {
			c.Release()
		}
	}()

	for _, keyCol := range [][]any{ids, times} {
		arr, err := series.Build(table.Int64Type, keyCol, mem)
		if err != nil {
			return nil, err
		}
		columns = append(columns, arr)
	}
	for _, f := range t.Fields() {
		c, _ := t.Column(f.Name)
		arr, err := series.Build(f.DType, c.Values(), mem)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", f.Name, err)
		}
		columns = append(columns, arr)
	}

	return array.NewRecord(Schema(t), columns, int64(t.Len())), nil
}

// tableBuilder accumulates Arrow records into a table
type tableBuilder struct {
	out     *table.Table
	columns []string
}

func newTableBuilder(schema *arrow.Schema) (*tableBuilder, error) {
	if schema.NumFields() < 2 ||
		schema.Field(0).Name != IDColumn ||
		schema.Field(1).Name != TimeColumn {
		return nil, fmt.Errorf("missing %s and %s key columns", IDColumn, TimeColumn)
	}
	// files written elsewhere carry no format tag
	if v, ok := schema.Metadata().GetValue(version.FormatMetadataKey); ok {
		if err := version.CheckFormat(v); err != nil {
			return nil, err
		}
	}

	var fields []table.Field
	var names []string
	for _, f := range schema.Fields()[2:] {
		dtype, err := series.DTypeOf(f.Type)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", f.Name, err)
		}
		fields = append(fields, table.Field{Name: f.Name, DType: dtype})
		names = append(names, f.Name)
	}
	return &tableBuilder{out: table.New(fields...), columns: names}, nil
}

// add appends the rows of a record
func (b *tableBuilder) add(rec arrow.Record) error {
	cells := make([][]any, rec.NumCols())
	for i := range cells {
		values, err := series.Values(rec.Column(i))
		if err != nil {
			return fmt.Errorf("column %s: %w", rec.ColumnName(i), err)
		}
		cells[i] = values
	}

	for r := range int(rec.NumRows()) {
		id, ok := cells[0][r].(int64)
		if !ok {
			return fmt.Errorf("row %d has no %s", r, IDColumn)
		}
		t, _ := cells[1][r].(int64)

		row := make(table.Row, len(b.columns))
		for j, name := range b.columns {
			row[name] = cells[j+2][r]
		}
		if err := b.out.Append(table.KT(id, t), row); err != nil {
			return err
		}
	}
	return nil
}

// FromRecord converts an Arrow record written by ToRecord back to a table
func FromRecord(rec arrow.Record) (*table.Table, error) {
	b, err := newTableBuilder(rec.Schema())
	if err != nil {
		return nil, err
	}
	if err := b.add(rec); err != nil {
		return nil, err
	}
	return b.out, nil
}
