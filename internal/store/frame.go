package store

import (
	"bytes"
	"slices"

	"github.com/paveg/lazystore/internal/errors"
	lio "github.com/paveg/lazystore/internal/io"
	"github.com/paveg/lazystore/internal/schema"
	"github.com/paveg/lazystore/internal/series"
	"github.com/paveg/lazystore/internal/table"
)

// Frame is a handle on a registered frame or on a filtered view of one.
//
// A view keeps the keys it was built from and a positional mask over the
// root table, recomputed when the shared version moves. Rows dropped after
// the view was built disappear from it; rows restored by undo reappear.
// Replacing the root table with LoadData makes existing views stale.
type Frame struct {
	store *Store
	data  *frameData
	held  bool

	filter      []table.Key
	mask        []bool
	maskVersion uint64
	epoch       uint64
}

func (s *Store) newFrame(fd *frameData, held bool) *Frame {
	return &Frame{store: s, data: fd, held: held, epoch: fd.state.epoch}
}

// view returns a view of keys sharing f's data. An empty key list is an
// empty view, never the whole frame.
func (f *Frame) view(keys []table.Key) *Frame {
	if keys == nil {
		keys = []table.Key{}
	}
	return &Frame{
		store:  f.store,
		data:   f.data,
		held:   f.held,
		filter: keys,
		epoch:  f.data.state.epoch,
	}
}

// lock takes the store mutex unless f runs inside a compute function
func (f *Frame) lock() func() {
	if f.held {
		return func() {}
	}
	f.store.mu.Lock()
	return f.store.mu.Unlock
}

// index returns the keys visible through f in index order
func (f *Frame) index(op string) ([]table.Key, error) {
	if f.filter == nil {
		return f.data.table.Keys(), nil
	}
	if f.epoch != f.data.state.epoch {
		return nil, errors.NewStaleViewError(op, f.data.schema.Key())
	}

	t := f.data.table
	if f.mask == nil || f.maskVersion != f.data.state.version || len(f.mask) != t.Len() {
		f.mask = t.Mask(f.filter)
		f.maskVersion = f.data.state.version
	}
	keys := make([]table.Key, 0, len(f.filter))
	for i, on := range f.mask {
		if on {
			keys = append(keys, t.Key(i))
		}
	}
	return keys, nil
}

// visible fails unless key is one of f's rows
func (f *Frame) visible(op string, key table.Key) error {
	if f.filter == nil {
		if !f.data.table.Has(key) {
			return errors.NewRowNotFoundError(op, f.Key(), key)
		}
		return nil
	}
	keys, err := f.index(op)
	if err != nil {
		return err
	}
	if !slices.Contains(keys, key) {
		return errors.NewRowNotFoundError(op, f.Key(), key)
	}
	return nil
}

func (f *Frame) checkColumns(op string, columns []string) error {
	for _, c := range columns {
		if !f.data.schema.Has(c) {
			return errors.NewColumnNotFoundError(op, f.data.schema.Key(), c)
		}
	}
	return nil
}

// prepare resolves the visible keys and computes the invalid rows of the
// requested columns
func (f *Frame) prepare(op string, columns []string) ([]table.Key, error) {
	if err := f.checkColumns(op, columns); err != nil {
		return nil, err
	}
	keys, err := f.index(op)
	if err != nil {
		return nil, err
	}
	if err := f.store.ensureComputed(f.data, columns, keys); err != nil {
		return nil, err
	}
	return keys, nil
}

// Key returns the frame key
func (f *Frame) Key() string {
	return f.data.schema.Key()
}

// Schema returns the frame schema
func (f *Frame) Schema() *schema.Schema {
	return f.data.schema
}

// Store returns the owning store
func (f *Frame) Store() *Store {
	return f.store
}

// State returns the version state shared with every view of the frame
func (f *Frame) State() *SharedState {
	return f.data.state
}

// IsView reports whether f is restricted to a subset of rows
func (f *Frame) IsView() bool {
	return f.filter != nil
}

// Frame returns another frame of the same store. Inside a compute function
// the returned frame shares the caller's lock.
func (f *Frame) Frame(key string) (*Frame, error) {
	defer f.lock()()
	return f.store.frame("Frame", key, f.held)
}

// Len returns the number of visible rows, zero for a stale view
func (f *Frame) Len() int {
	defer f.lock()()
	keys, err := f.index("Len")
	if err != nil {
		return 0
	}
	return len(keys)
}

// Keys returns the visible row keys in index order
func (f *Frame) Keys() ([]table.Key, error) {
	defer f.lock()()
	return f.index("Keys")
}

// Columns returns the declared attributes that are not hidden
func (f *Frame) Columns() []string {
	defer f.lock()()
	return f.columns()
}

func (f *Frame) columns() []string {
	var cols []string
	for _, attr := range f.data.schema.Attributes() {
		if !attr.Hidden {
			cols = append(cols, attr.Key)
		}
	}
	return cols
}

// ColumnsAttributes returns the attributes of Columns
func (f *Frame) ColumnsAttributes() []schema.Attribute {
	defer f.lock()()

	var attrs []schema.Attribute
	for _, attr := range f.data.schema.Attributes() {
		if !attr.Hidden {
			attrs = append(attrs, attr)
		}
	}
	return attrs
}

// Cell returns the value of column at key, computing it if needed
func (f *Frame) Cell(key table.Key, column string) (any, error) {
	defer f.lock()()

	const op = "Cell"
	if err := f.checkColumns(op, []string{column}); err != nil {
		return nil, err
	}
	if err := f.visible(op, key); err != nil {
		return nil, err
	}
	if err := f.store.ensureComputed(f.data, []string{column}, []table.Key{key}); err != nil {
		return nil, err
	}
	v, _ := f.data.table.Get(key, column)
	return v, nil
}

// Row returns the visible columns of the row at key
func (f *Frame) Row(key table.Key) (table.Row, error) {
	defer f.lock()()

	const op = "Row"
	if err := f.visible(op, key); err != nil {
		return nil, err
	}
	columns := f.columns()
	if err := f.store.ensureComputed(f.data, columns, []table.Key{key}); err != nil {
		return nil, err
	}

	row := make(table.Row, len(columns))
	for _, c := range columns {
		row[c], _ = f.data.table.Get(key, c)
	}
	return row, nil
}

// Column returns the values of column for the visible rows
func (f *Frame) Column(column string) ([]any, error) {
	defer f.lock()()

	keys, err := f.prepare("Column", []string{column})
	if err != nil {
		return nil, err
	}
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i], _ = f.data.table.Get(k, column)
	}
	return out, nil
}

// ColumnAs returns the values of column converted to T; nulls become the
// zero value
func ColumnAs[T any](f *Frame, column string) ([]T, error) {
	values, err := f.Column(column)
	if err != nil {
		return nil, err
	}
	return table.As[T](values), nil
}

// Select returns a copy of the visible rows restricted to columns, every
// visible column when none are given
func (f *Frame) Select(columns ...string) (*table.Table, error) {
	defer f.lock()()

	if len(columns) == 0 {
		columns = f.columns()
	}
	keys, err := f.prepare("Select", columns)
	if err != nil {
		return nil, err
	}
	return f.data.table.Take(keys).Select(columns...)
}

// Table returns a copy of the visible rows with every column computed,
// including the hidden ones and the valid flags
func (f *Frame) Table() (*table.Table, error) {
	defer f.lock()()

	keys, err := f.prepare("Table", f.data.schema.Computed())
	if err != nil {
		return nil, err
	}
	return f.data.table.Take(keys), nil
}

// Series returns column as an Arrow backed series
func (f *Frame) Series(column string) (series.ISeries, error) {
	values, err := f.Column(column)
	if err != nil {
		return nil, err
	}
	attr, _ := f.data.schema.Attribute(column)
	return series.FromValues(column, attr.DType, values, nil)
}

// PendingColumns returns the computed columns with at least one visible
// row awaiting computation
func (f *Frame) PendingColumns() ([]string, error) {
	defer f.lock()()

	keys, err := f.index("PendingColumns")
	if err != nil {
		return nil, err
	}
	var pending []string
	for _, c := range f.data.schema.Computed() {
		if len(f.data.invalidKeys(c, keys)) > 0 {
			pending = append(pending, c)
		}
	}
	return pending, nil
}

// IsValid reports whether the cached value of a computed column at key is
// valid, without computing it
func (f *Frame) IsValid(key table.Key, column string) (bool, error) {
	defer f.lock()()

	const op = "IsValid"
	if !f.data.schema.IsComputed(column) {
		return false, errors.NewColumnNotFoundError(op, f.Key(), column)
	}
	if err := f.visible(op, key); err != nil {
		return false, err
	}
	v, ok := f.data.table.Get(key, schema.ValidKey(column))
	if !ok {
		return false, errors.NewRowNotFoundError(op, f.Key(), key)
	}
	return v == true, nil
}

// Rows returns a view of the given keys. Every key must be visible.
func (f *Frame) Rows(keys ...table.Key) (*Frame, error) {
	defer f.lock()()

	const op = "Rows"
	visible, err := f.index(op)
	if err != nil {
		return nil, err
	}
	set := table.NewKeySet(visible...)
	for _, k := range keys {
		if !set.Has(k) {
			return nil, errors.NewRowNotFoundError(op, f.Key(), k)
		}
	}
	return f.view(uniqueKeys(keys)), nil
}

// RowsByID returns a view of the visible rows whose id is in ids, at every
// time point. Every id must match a row.
func (f *Frame) RowsByID(ids ...int64) (*Frame, error) {
	defer f.lock()()

	const op = "RowsByID"
	visible, err := f.index(op)
	if err != nil {
		return nil, err
	}
	matched, err := matchIDs(op, f.Key(), visible, ids)
	if err != nil {
		return nil, err
	}
	return f.view(matched), nil
}

func matchIDs(op, frame string, keys []table.Key, ids []int64) ([]table.Key, error) {
	found := make(map[int64]bool, len(ids))
	for _, id := range ids {
		found[id] = false
	}
	matched := make([]table.Key, 0, len(ids))
	for _, k := range keys {
		if _, ok := found[k.ID]; ok {
			found[k.ID] = true
			matched = append(matched, k)
		}
	}
	for _, id := range ids {
		if !found[id] {
			return nil, errors.NewRowNotFoundError(op, frame, table.K(id))
		}
	}
	return matched, nil
}

// RowRange returns a view of the visible rows between from and to,
// inclusive
func (f *Frame) RowRange(from, to table.Key) (*Frame, error) {
	defer f.lock()()

	visible, err := f.index("RowRange")
	if err != nil {
		return nil, err
	}
	keys := make([]table.Key, 0)
	for _, k := range visible {
		if k.Compare(from) >= 0 && k.Compare(to) <= 0 {
			keys = append(keys, k)
		}
	}
	return f.view(keys), nil
}

// Where returns a view of the visible rows selected by mask
func (f *Frame) Where(mask []bool) (*Frame, error) {
	defer f.lock()()

	const op = "Where"
	visible, err := f.index(op)
	if err != nil {
		return nil, err
	}
	if len(mask) != len(visible) {
		return nil, errors.NewInvalidInputError(op, "mask length does not match the number of rows")
	}
	keys := make([]table.Key, 0)
	for i, on := range mask {
		if on {
			keys = append(keys, visible[i])
		}
	}
	return f.view(keys), nil
}

// ToBytes serialises the visible rows, computed columns included, to the
// Arrow IPC stream format
func (f *Frame) ToBytes() ([]byte, error) {
	t, err := f.Table()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := lio.WriteIPC(&buf, t); err != nil {
		return nil, errors.NewInternalError("ToBytes", err)
	}
	return buf.Bytes(), nil
}

// LoadBytes replaces the frame data with an Arrow IPC stream written by
// ToBytes
func (f *Frame) LoadBytes(b []byte) error {
	t, err := lio.ReadIPC(bytes.NewReader(b))
	if err != nil {
		return errors.NewInvalidInputError("LoadBytes", err.Error())
	}
	return f.LoadData(t)
}

// LoadData replaces the frame data. Views built before the call become
// stale and the undo/redo log is cleared.
func (f *Frame) LoadData(data *table.Table) error {
	if err := f.writable("LoadData"); err != nil {
		return err
	}
	defer f.lock()()
	return f.store.loadData(f.data, data)
}

func (f *Frame) writable(op string) error {
	if f.held {
		return errors.NewInvalidInputError(op, "frames cannot be modified from a compute function")
	}
	return nil
}
