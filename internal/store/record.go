package store

import (
	"maps"

	"github.com/paveg/lazystore/internal/schema"
	"github.com/paveg/lazystore/internal/table"
)

// RecordKey is the key of the single row of a record
var RecordKey = table.K(0)

// Record is a frame holding exactly one row, e.g. settings shared by every
// row of other frames through a broadcast link
type Record struct {
	frame *Frame
}

// AddRecord registers a record frame for sc with its defaults. Its row
// cannot be dropped and no other row can be added.
func (s *Store) AddRecord(sc *schema.Schema) (*Record, error) {
	data := table.New(sc.Fields()...)
	if err := data.Append(RecordKey, sc.Defaults()); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	frame, err := s.addFrame("AddRecord", sc, data, true)
	if err != nil {
		return nil, err
	}
	return &Record{frame: frame}, nil
}

// Frame returns the underlying frame
func (r *Record) Frame() *Frame {
	return r.frame
}

// Get returns one attribute
func (r *Record) Get(column string) (any, error) {
	return r.frame.Cell(RecordKey, column)
}

// Values returns every visible attribute
func (r *Record) Values() (table.Row, error) {
	return r.frame.Row(RecordKey)
}

// Set updates attributes of the record
func (r *Record) Set(values table.Row, opts UpdateOptions) error {
	return r.frame.Update([]table.Key{RecordKey}, values, opts)
}

// Reset sets every stored attribute back to its default. Attributes without
// a default become null.
func (r *Record) Reset(opts UpdateOptions) error {
	f := r.frame
	if err := f.writable("Reset"); err != nil {
		return err
	}
	defer f.lock()()

	sc := f.data.schema
	values := make(table.Row)
	for _, key := range storedColumns(sc) {
		values[key] = nil
	}
	maps.Copy(values, sc.Defaults())
	return f.store.recordUpdate(f.data, []table.Key{RecordKey}, values, opts)
}
