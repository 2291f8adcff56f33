// Package oplog records mutations of a frame as diffs and keeps them in an
// undo/redo log.
package oplog

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/paveg/lazystore/internal/schema"
	"github.com/paveg/lazystore/internal/table"
)

// Change is one cell that differs between the before and after images
type Change struct {
	Key    table.Key
	Column string
	Before any
	After  any
}

// Op is the diff of one mutation of the frame named by Type
type Op struct {
	ID      uuid.UUID
	Type    string
	Deleted *table.Table
	Added   *table.Table
	Changed []Change
}

// NewOp diffs the before and after images of the affected rows. Rows only
// in before are deleted, rows only in after are added and the given columns
// are compared cell by cell over the common keys. With no columns every
// column present in both images is compared.
func NewOp(typ string, before, after *table.Table, columns ...string) *Op {
	op := &Op{
		ID:      uuid.New(),
		Type:    typ,
		Deleted: before.EmptyLike(),
		Added:   after.EmptyLike(),
	}

	var deleted, added []table.Key
	for _, k := range before.Keys() {
		if !after.Has(k) {
			deleted = append(deleted, k)
		}
	}
	for _, k := range after.Keys() {
		if !before.Has(k) {
			added = append(added, k)
		}
	}
	if len(deleted) > 0 {
		op.Deleted = before.Take(deleted)
	}
	if len(added) > 0 {
		op.Added = after.Take(added)
	}

	if len(columns) == 0 {
		for _, name := range before.Columns() {
			if after.HasColumn(name) {
				columns = append(columns, name)
			}
		}
	}

	for _, k := range before.Keys() {
		if !after.Has(k) {
			continue
		}
		for _, name := range columns {
			b, okb := before.Get(k, name)
			a, oka := after.Get(k, name)
			if !okb || !oka || table.Equal(b, a) {
				continue
			}
			op.Changed = append(op.Changed, Change{Key: k, Column: name, Before: b, After: a})
		}
	}
	return op
}

// IsEmpty reports whether the op records no difference
func (op *Op) IsEmpty() bool {
	return op.Deleted.Empty() && op.Added.Empty() && len(op.Changed) == 0
}

// ChangedColumns returns the columns with changed cells, sorted
func (op *Op) ChangedColumns() []string {
	set := make(map[string]struct{})
	for _, c := range op.Changed {
		set[c.Column] = struct{}{}
	}
	return table.SortedNames(set)
}

// ChangedKeys returns the keys with changed cells, sorted
func (op *Op) ChangedKeys() []table.Key {
	set := table.NewKeySet()
	for _, c := range op.Changed {
		set.Add(c.Key)
	}
	return set.Sorted()
}

// RowKeys returns every key the op touches, sorted
func (op *Op) RowKeys() []table.Key {
	set := table.NewKeySet(op.Deleted.Keys()...)
	for _, k := range op.Added.Keys() {
		set.Add(k)
	}
	for _, c := range op.Changed {
		set.Add(c.Key)
	}
	return set.Sorted()
}

// Reverse undoes the op on t: added rows are removed, deleted rows are
// reinserted and changed cells get their before values back
func (op *Op) Reverse(t *table.Table, now time.Time) error {
	t.Delete(op.Added.Keys()...)
	if err := t.Insert(op.Deleted); err != nil {
		return fmt.Errorf("reverse %s: %w", op.Type, err)
	}
	for _, c := range op.Changed {
		if err := t.Set(c.Key, c.Column, c.Before); err != nil {
			return fmt.Errorf("reverse %s: %w", op.Type, err)
		}
	}
	op.stamp(t, now, op.Deleted.Keys())
	t.SortIndex()
	return nil
}

// Apply redoes the op on t: deleted rows are removed, added rows are
// reinserted and changed cells get their after values
func (op *Op) Apply(t *table.Table, now time.Time) error {
	t.Delete(op.Deleted.Keys()...)
	if err := t.Insert(op.Added); err != nil {
		return fmt.Errorf("apply %s: %w", op.Type, err)
	}
	for _, c := range op.Changed {
		if err := t.Set(c.Key, c.Column, c.After); err != nil {
			return fmt.Errorf("apply %s: %w", op.Type, err)
		}
	}
	op.stamp(t, now, op.Added.Keys())
	t.SortIndex()
	return nil
}

func (op *Op) stamp(t *table.Table, now time.Time, inserted []table.Key) {
	if !t.HasColumn(schema.ModifiedColumn) {
		return
	}
	for _, k := range append(inserted, op.ChangedKeys()...) {
		_ = t.Set(k, schema.ModifiedColumn, now)
	}
}

// Update merges a newer op on the same frame into op and reports whether it
// did. Two shapes merge: the newer op only changes cells of rows op added,
// or both ops touch exactly the same changed, deleted and added rows.
// Anything else is left to the caller to record as a separate op.
func (op *Op) Update(other *Op) bool {
	if other.Type != op.Type {
		return false
	}

	if other.Deleted.Empty() && other.Added.Empty() && !op.Added.Empty() && op.foldsIntoAdded(other) {
		for _, c := range other.Changed {
			_ = op.Added.Set(c.Key, c.Column, c.After)
		}
		return true
	}

	if !table.NewKeySet(op.ChangedKeys()...).Equal(table.NewKeySet(other.ChangedKeys()...)) ||
		!table.NewKeySet(op.Deleted.Keys()...).Equal(table.NewKeySet(other.Deleted.Keys()...)) ||
		!table.NewKeySet(op.Added.Keys()...).Equal(table.NewKeySet(other.Added.Keys()...)) {
		return false
	}

	for _, c := range other.Changed {
		i := slices.IndexFunc(op.Changed, func(e Change) bool {
			return e.Key == c.Key && e.Column == c.Column
		})
		if i < 0 {
			op.Changed = append(op.Changed, c)
			continue
		}
		op.Changed[i].After = c.After
	}
	op.Changed = slices.DeleteFunc(op.Changed, func(c Change) bool {
		return table.Equal(c.Before, c.After)
	})
	if !other.Added.Empty() {
		op.Added = other.Added.Clone()
	}
	return true
}

func (op *Op) foldsIntoAdded(other *Op) bool {
	if len(other.Changed) == 0 {
		return false
	}
	for _, c := range other.Changed {
		if !op.Added.Has(c.Key) || !op.Added.HasColumn(c.Column) {
			return false
		}
	}
	return true
}
