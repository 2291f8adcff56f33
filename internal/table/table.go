// Package table provides the mutable keyed column table that backs a frame.
//
// A Table keeps an ordered row index of Keys, a key to position map and a set
// of named, typed columns. Writes are coerced to the column's DType so that a
// table never holds a value of the wrong type. Tables are not safe for
// concurrent use; the owning store serialises access.
package table

import (
	"fmt"
	"slices"
	"strings"
)

// Field describes a column
type Field struct {
	Name  string
	DType DType
}

// Row maps column names to cell values
type Row map[string]any

// Column is a named, typed column of cells
type Column struct {
	field  Field
	values []any
}

// Name returns the column name
func (c *Column) Name() string {
	return c.field.Name
}

// DType returns the declared type of the column
func (c *Column) DType() DType {
	return c.field.DType
}

// Len returns the number of cells
func (c *Column) Len() int {
	return len(c.values)
}

// Value returns the cell at position i
func (c *Column) Value(i int) any {
	return c.values[i]
}

// Values returns a copy of the cells
func (c *Column) Values() []any {
	return slices.Clone(c.values)
}

// Table is a keyed, column-oriented row set
type Table struct {
	keys    []Key
	pos     map[Key]int
	columns map[string]*Column
	order   []string
}

// New creates an empty table with the given columns
func New(fields ...Field) *Table {
	t := &Table{
		pos:     make(map[Key]int),
		columns: make(map[string]*Column),
	}
	for _, f := range fields {
		_ = t.AddColumn(f)
	}
	return t
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.keys)
}

// Empty reports whether the table has no rows
func (t *Table) Empty() bool {
	return len(t.keys) == 0
}

// Keys returns a copy of the row index in order
func (t *Table) Keys() []Key {
	return slices.Clone(t.keys)
}

// Key returns the key at position i
func (t *Table) Key(i int) Key {
	return t.keys[i]
}

// Has reports whether a row with key k exists
func (t *Table) Has(k Key) bool {
	_, ok := t.pos[k]
	return ok
}

// Position returns the position of key k
func (t *Table) Position(k Key) (int, bool) {
	i, ok := t.pos[k]
	return i, ok
}

// Columns returns the column names in order
func (t *Table) Columns() []string {
	return slices.Clone(t.order)
}

// Fields returns the column descriptions in order
func (t *Table) Fields() []Field {
	fields := make([]Field, len(t.order))
	for i, name := range t.order {
		fields[i] = t.columns[name].field
	}
	return fields
}

// Column returns the column with the given name
func (t *Table) Column(name string) (*Column, bool) {
	c, ok := t.columns[name]
	return c, ok
}

// HasColumn reports whether the column exists
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// AddColumn adds an all-null column. Adding an existing column with the same
// dtype is a no-op.
func (t *Table) AddColumn(f Field) error {
	if existing, ok := t.columns[f.Name]; ok {
		if existing.field.DType != f.DType {
			return fmt.Errorf("column %q already exists as %s", f.Name, existing.field.DType)
		}
		return nil
	}
	t.columns[f.Name] = &Column{field: f, values: make([]any, len(t.keys))}
	t.order = append(t.order, f.Name)
	return nil
}

// DropColumn removes a column if present
func (t *Table) DropColumn(name string) {
	if _, ok := t.columns[name]; !ok {
		return
	}
	delete(t.columns, name)
	t.order = slices.DeleteFunc(t.order, func(n string) bool { return n == name })
}

// Get returns the cell at (k, column). ok is false if either is missing.
func (t *Table) Get(k Key, column string) (any, bool) {
	i, ok := t.pos[k]
	if !ok {
		return nil, false
	}
	c, ok := t.columns[column]
	if !ok {
		return nil, false
	}
	return c.values[i], true
}

// Set writes a cell, coercing the value to the column dtype
func (t *Table) Set(k Key, column string, v any) error {
	i, ok := t.pos[k]
	if !ok {
		return fmt.Errorf("row %s does not exist", k)
	}
	return t.SetAt(i, column, v)
}

// SetAt writes the cell at row position i
func (t *Table) SetAt(i int, column string, v any) error {
	c, ok := t.columns[column]
	if !ok {
		return fmt.Errorf("column %q does not exist", column)
	}
	coerced, err := c.field.DType.Coerce(v)
	if err != nil {
		return fmt.Errorf("column %q: %w", column, err)
	}
	c.values[i] = coerced
	return nil
}

// Row returns the cells of row k
func (t *Table) Row(k Key) (Row, bool) {
	i, ok := t.pos[k]
	if !ok {
		return nil, false
	}
	return t.RowAt(i), true
}

// RowAt returns the cells of the row at position i
func (t *Table) RowAt(i int) Row {
	row := make(Row, len(t.order))
	for _, name := range t.order {
		row[name] = t.columns[name].values[i]
	}
	return row
}

// coerceRow validates every value against the table columns before any write
func (t *Table) coerceRow(values Row) (Row, error) {
	coerced := make(Row, len(values))
	for name, v := range values {
		c, ok := t.columns[name]
		if !ok {
			return nil, fmt.Errorf("column %q does not exist", name)
		}
		cv, err := c.field.DType.Coerce(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		coerced[name] = cv
	}
	return coerced, nil
}

// Append adds a new row at the end of the index
func (t *Table) Append(k Key, values Row) error {
	if t.Has(k) {
		return fmt.Errorf("row %s already exists", k)
	}
	coerced, err := t.coerceRow(values)
	if err != nil {
		return err
	}
	t.appendCoerced(k, coerced)
	return nil
}

func (t *Table) appendCoerced(k Key, values Row) {
	t.pos[k] = len(t.keys)
	t.keys = append(t.keys, k)
	for _, name := range t.order {
		c := t.columns[name]
		c.values = append(c.values, values[name])
	}
}

// Upsert writes values to every key, inserting rows that do not exist yet
// (insert-if-absent, overwrite-if-present). inserts supplies the values used
// only for newly created rows, e.g. schema defaults. Nothing is written if
// any value fails to coerce.
func (t *Table) Upsert(keys []Key, values Row, inserts Row) error {
	coerced, err := t.coerceRow(values)
	if err != nil {
		return err
	}
	coercedInserts, err := t.coerceRow(inserts)
	if err != nil {
		return err
	}

	for _, k := range keys {
		i, ok := t.pos[k]
		if !ok {
			row := make(Row, len(coercedInserts)+len(coerced))
			for name, v := range coercedInserts {
				row[name] = v
			}
			for name, v := range coerced {
				row[name] = v
			}
			t.appendCoerced(k, row)
			continue
		}
		for name, v := range coerced {
			t.columns[name].values[i] = v
		}
	}
	return nil
}

// Delete removes rows and returns how many were removed
func (t *Table) Delete(keys ...Key) int {
	drop := make(map[int]struct{}, len(keys))
	for _, k := range keys {
		if i, ok := t.pos[k]; ok {
			drop[i] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return 0
	}

	keep := make([]int, 0, len(t.keys)-len(drop))
	for i := range t.keys {
		if _, ok := drop[i]; !ok {
			keep = append(keep, i)
		}
	}
	t.reorder(keep)
	return len(drop)
}

// Insert appends the rows of other. Columns missing from t are added; rows
// whose key already exists are rejected before anything is written.
func (t *Table) Insert(other *Table) error {
	for _, k := range other.keys {
		if t.Has(k) {
			return fmt.Errorf("row %s already exists", k)
		}
	}
	for _, f := range other.Fields() {
		if err := t.AddColumn(f); err != nil {
			return err
		}
	}
	for i, k := range other.keys {
		t.appendCoerced(k, other.RowAt(i))
	}
	return nil
}

// reorder keeps the rows at positions in the given order
func (t *Table) reorder(positions []int) {
	keys := make([]Key, len(positions))
	for j, i := range positions {
		keys[j] = t.keys[i]
	}
	for _, c := range t.columns {
		values := make([]any, len(positions))
		for j, i := range positions {
			values[j] = c.values[i]
		}
		c.values = values
	}
	t.keys = keys
	t.rebuildIndex()
}

func (t *Table) rebuildIndex() {
	t.pos = make(map[Key]int, len(t.keys))
	for i, k := range t.keys {
		t.pos[k] = i
	}
}

// SortIndex sorts rows by key
func (t *Table) SortIndex() {
	if slices.IsSortedFunc(t.keys, Key.Compare) {
		return
	}
	positions := make([]int, len(t.keys))
	for i := range positions {
		positions[i] = i
	}
	slices.SortFunc(positions, func(a, b int) int {
		return t.keys[a].Compare(t.keys[b])
	})
	t.reorder(positions)
}

// Take returns a copy of the rows with the given keys in the given order.
// Absent keys are skipped.
func (t *Table) Take(keys []Key) *Table {
	positions := make([]int, 0, len(keys))
	for _, k := range keys {
		if i, ok := t.pos[k]; ok {
			positions = append(positions, i)
		}
	}
	return t.TakePositions(positions)
}

// TakePositions returns a copy of the rows at the given positions
func (t *Table) TakePositions(positions []int) *Table {
	out := New(t.Fields()...)
	for _, i := range positions {
		out.appendCoerced(t.keys[i], t.RowAt(i))
	}
	return out
}

// Select returns a copy restricted to the given columns
func (t *Table) Select(columns ...string) (*Table, error) {
	fields := make([]Field, 0, len(columns))
	for _, name := range columns {
		c, ok := t.columns[name]
		if !ok {
			return nil, fmt.Errorf("column %q does not exist", name)
		}
		fields = append(fields, c.field)
	}

	out := New(fields...)
	out.keys = slices.Clone(t.keys)
	out.rebuildIndex()
	for _, f := range fields {
		out.columns[f.Name].values = slices.Clone(t.columns[f.Name].values)
	}
	return out, nil
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	out, _ := t.Select(t.order...)
	return out
}

// EmptyLike returns an empty table with the same columns
func (t *Table) EmptyLike() *Table {
	return New(t.Fields()...)
}

// MatchIDs returns the keys whose ID is in ids, in index order
func (t *Table) MatchIDs(ids ...int64) []Key {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var keys []Key
	for _, k := range t.keys {
		if _, ok := want[k.ID]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// Intersect returns the given keys that exist, in index order
func (t *Table) Intersect(keys []Key) []Key {
	set := NewKeySet(keys...)
	out := make([]Key, 0, len(keys))
	for _, k := range t.keys {
		if set.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// Mask returns a positional mask of the rows whose key is in keys
func (t *Table) Mask(keys []Key) []bool {
	mask := make([]bool, len(t.keys))
	for _, k := range keys {
		if i, ok := t.pos[k]; ok {
			mask[i] = true
		}
	}
	return mask
}

// String returns a short description of the table
func (t *Table) String() string {
	if len(t.order) == 0 {
		return "Table[empty]"
	}

	parts := []string{fmt.Sprintf("Table[%dx%d]", t.Len(), len(t.order))}
	for _, name := range t.order {
		parts = append(parts, fmt.Sprintf("  %s: %s", name, t.columns[name].field.DType))
	}
	return strings.Join(parts, "\n")
}
