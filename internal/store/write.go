package store

import (
	"github.com/paveg/lazystore/internal/table"
)

// Update writes values to every key, creating missing rows with the schema
// defaults. Values are validated against the schema first; nothing is
// written when validation fails.
func (f *Frame) Update(keys []table.Key, values table.Row, opts UpdateOptions) error {
	if err := f.writable("Update"); err != nil {
		return err
	}
	defer f.lock()()
	return f.store.recordUpdate(f.data, keys, values, opts)
}

// UpdateIDs is Update addressed by id. An id matches every time point of
// a timed frame; ids without a row create one at t=0.
func (f *Frame) UpdateIDs(ids []int64, values table.Row, opts UpdateOptions) error {
	if err := f.writable("UpdateIDs"); err != nil {
		return err
	}
	defer f.lock()()

	var keys []table.Key
	for _, id := range ids {
		matched := f.data.table.MatchIDs(id)
		if len(matched) == 0 {
			matched = []table.Key{table.K(id)}
		}
		keys = append(keys, matched...)
	}
	return f.store.recordUpdate(f.data, keys, values, opts)
}

// Drop removes rows. Every key must exist; nothing is removed otherwise.
func (f *Frame) Drop(keys ...table.Key) error {
	if err := f.writable("Drop"); err != nil {
		return err
	}
	defer f.lock()()
	return f.store.recordDrop(f.data, keys, false)
}

// DropSkipLog removes rows without recording an undo step
func (f *Frame) DropSkipLog(keys ...table.Key) error {
	if err := f.writable("Drop"); err != nil {
		return err
	}
	defer f.lock()()
	return f.store.recordDrop(f.data, keys, true)
}

// DropIDs removes every row of the given ids
func (f *Frame) DropIDs(ids ...int64) error {
	const op = "DropIDs"
	if err := f.writable(op); err != nil {
		return err
	}
	defer f.lock()()

	keys, err := matchIDs(op, f.Key(), f.data.table.Keys(), ids)
	if err != nil {
		return err
	}
	return f.store.recordDrop(f.data, keys, false)
}

// Undo reverses the most recent op of the store
func (f *Frame) Undo() (bool, error) {
	if err := f.writable("Undo"); err != nil {
		return false, err
	}
	defer f.lock()()
	return f.store.undo()
}

// Redo reapplies the most recently undone op of the store
func (f *Frame) Redo() (bool, error) {
	if err := f.writable("Redo"); err != nil {
		return false, err
	}
	defer f.lock()()
	return f.store.redo()
}
