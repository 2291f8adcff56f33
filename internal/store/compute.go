package store

import (
	"fmt"
	"time"

	"github.com/paveg/lazystore/internal/errors"
	"github.com/paveg/lazystore/internal/schema"
	"github.com/paveg/lazystore/internal/table"
	"go.uber.org/zap"
)

// AddComputed declares a computed column on the frame and binds fn to it.
// deps overrides attr.Dependencies when non-nil. With skipUpdate the
// dependency graph is left as is until UpdateComputedDependencies runs.
func (f *Frame) AddComputed(name string, attr schema.Attribute, fn ComputeFunc, deps schema.Dependencies, skipUpdate bool) error {
	defer f.lock()()

	const op = "AddComputed"
	if fn == nil {
		return errors.NewInvalidInputError(op, "compute function is nil")
	}

	fd := f.data
	attr.Key = name
	attr.Kind = schema.Computed
	if deps != nil {
		attr.Dependencies = deps
	}
	if err := fd.schema.AddAttribute(attr); err != nil {
		return err
	}

	declared, _ := fd.schema.Attribute(name)
	if err := fd.table.AddColumn(table.Field{Name: name, DType: declared.DType}); err != nil {
		fd.schema.RemoveAttribute(name)
		return errors.NewValidationError(op, fd.schema.Key(), name, err.Error())
	}
	_ = fd.table.AddColumn(table.Field{Name: schema.ValidKey(name), DType: table.BoolType})
	fd.funcs[name] = fn

	if skipUpdate {
		return nil
	}
	if err := f.store.updateDependents(); err != nil {
		delete(fd.funcs, name)
		fd.table.DropColumn(schema.ValidKey(name))
		fd.table.DropColumn(name)
		fd.schema.RemoveAttribute(name)
		return err
	}
	return nil
}

// Bind attaches fn to a computed column declared in the schema and
// invalidates its cached values
func (f *Frame) Bind(name string, fn ComputeFunc) error {
	defer f.lock()()

	const op = "Bind"
	fd := f.data
	if !fd.schema.Has(name) {
		return errors.NewColumnNotFoundError(op, fd.schema.Key(), name)
	}
	if !fd.schema.IsComputed(name) {
		return errors.NewValidationError(op, fd.schema.Key(), name, "not a computed column")
	}
	if fn == nil {
		return errors.NewInvalidInputError(op, "compute function is nil")
	}

	fd.funcs[name] = fn
	cleared := fd.clearValid(name, fd.table.Keys())
	f.store.invalidate(fd.schema.Key(), cleared, []string{name}, false)
	return nil
}

// ensureComputed computes the invalid rows among keys of every computed
// column in columns
func (s *Store) ensureComputed(fd *frameData, columns []string, keys []table.Key) error {
	for _, column := range columns {
		if !fd.schema.IsComputed(column) {
			continue
		}
		if err := s.computeColumn(fd, column, keys); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) computeColumn(fd *frameData, column string, keys []table.Key) error {
	frame := fd.schema.Key()
	invalid := fd.invalidKeys(column, keys)
	if len(invalid) == 0 {
		return nil
	}

	target := node{frame: frame, column: column}.String()
	if fd.computing[column] {
		return errors.NewDependencyCycleError("Compute", []string{target, target})
	}
	fn, ok := fd.funcs[column]
	if !ok {
		return errors.NewComputeError(frame, column, fmt.Errorf("no compute function bound"))
	}

	fd.computing[column] = true
	defer delete(fd.computing, column)

	attr, _ := fd.schema.Attribute(column)
	rows := fd.table.Take(invalid)
	for _, depFrame := range table.SortedNames(attr.Dependencies) {
		cols := attr.Dependencies[depFrame]
		if depFrame == frame {
			if err := s.ensureComputed(fd, cols, invalid); err != nil {
				return err
			}
			continue
		}

		dep, ok := s.frames[depFrame]
		if !ok {
			return errors.NewFrameNotFoundError("Compute", depFrame)
		}
		mapped := fd.schema.MapIDs(depFrame, rows, schema.Side{Table: dep.table, Timed: dep.schema.IsTimed()})
		if err := s.ensureComputed(dep, cols, mapped); err != nil {
			return err
		}
	}

	view := s.newFrame(fd, true).view(invalid)
	start := time.Now()
	res, err := fn(view)
	elapsed := time.Since(start)
	if err == nil {
		err = fd.storeResult(column, invalid, res)
	}
	s.metrics.RecordRecompute(frame, column, len(invalid), elapsed, err)
	if err != nil {
		s.logger.Error("compute failed",
			zap.String("frame", frame),
			zap.String("column", column),
			zap.Int("rows", len(invalid)),
			zap.Error(err))
		if _, ok := errors.AsStoreError(err); ok {
			return err
		}
		return errors.NewComputeError(frame, column, err)
	}

	s.logger.Debug("recomputed column",
		zap.String("frame", frame),
		zap.String("column", column),
		zap.Int("rows", len(invalid)),
		zap.Duration("elapsed", elapsed))
	return nil
}

// storeResult writes res for keys and marks the written cells valid
func (fd *frameData) storeResult(column string, keys []table.Key, res Result) error {
	if res.Table == nil {
		if len(res.Values) != len(keys) {
			return fmt.Errorf("got %d values for %d rows", len(res.Values), len(keys))
		}
		for i, k := range keys {
			if err := fd.table.Set(k, column, res.Values[i]); err != nil {
				return err
			}
			_ = fd.table.Set(k, schema.ValidKey(column), true)
		}
		return nil
	}

	names := res.Table.Columns()
	for _, name := range names {
		if !fd.schema.IsComputed(name) {
			return fmt.Errorf("result column %q is not a computed column", name)
		}
	}
	if !res.Table.HasColumn(column) {
		return fmt.Errorf("result has no column %q", column)
	}

	// rows the function skipped are stored as null so they are not
	// recomputed on every read
	rows := table.NewKeySet(keys...)
	rows.Add(res.Table.Keys()...)
	for _, k := range rows.Sorted() {
		if !fd.table.Has(k) {
			continue
		}
		for _, name := range names {
			v, _ := res.Table.Get(k, name)
			if err := fd.table.Set(k, name, v); err != nil {
				return err
			}
			_ = fd.table.Set(k, schema.ValidKey(name), true)
		}
	}
	return nil
}
