package store

import (
	"github.com/paveg/lazystore/internal/errors"
	"github.com/paveg/lazystore/internal/monitoring"
	"github.com/paveg/lazystore/internal/oplog"
	"github.com/paveg/lazystore/internal/schema"
	"github.com/paveg/lazystore/internal/table"
	"go.uber.org/zap"
)

// UpdateOptions controls how a mutation is logged
type UpdateOptions struct {
	// ReplaceLog merges the mutation into the previous op when their
	// shapes allow it
	ReplaceLog bool
	// SkipLog applies the mutation without recording it
	SkipLog bool
}

func uniqueKeys(keys []table.Key) []table.Key {
	seen := table.NewKeySet()
	out := make([]table.Key, 0, len(keys))
	for _, k := range keys {
		if seen.Has(k) {
			continue
		}
		seen.Add(k)
		out = append(out, k)
	}
	return out
}

// storedColumns returns the stored columns compared when diffing a mutation
func storedColumns(sc *schema.Schema) []string {
	var cols []string
	for _, attr := range sc.Attributes() {
		if attr.Kind == schema.Stored && attr.Key != schema.ModifiedColumn {
			cols = append(cols, attr.Key)
		}
	}
	return cols
}

// update upserts values into keys of fd. Missing rows are created with the
// schema defaults.
func (s *Store) update(fd *frameData, keys []table.Key, values table.Row, opts UpdateOptions) error {
	const op = "Update"
	sc := fd.schema
	frame := sc.Key()

	keys = uniqueKeys(keys)
	if len(keys) == 0 {
		return nil
	}
	if !sc.IsTimed() {
		for _, k := range keys {
			if k.T != 0 {
				return errors.NewValidationError(op, frame, "", "untimed frame cannot hold key "+k.String())
			}
		}
	}
	if fd.record {
		for _, k := range keys {
			if k != RecordKey {
				return errors.NewValidationError(op, frame, "", "record holds only the row "+RecordKey.String())
			}
		}
	}

	validated, err := sc.Validate(values)
	if err != nil {
		return err
	}

	stored := storedColumns(sc)
	existing := fd.table.Intersect(keys)
	before := fd.table.Take(existing)

	// Readers reached through the current links must see the change before
	// a link column moves.
	if len(existing) > 0 {
		preview := before.Clone()
		if err := preview.Upsert(existing, validated, nil); err != nil {
			return errors.NewValidationError(op, frame, "", err.Error())
		}
		pending := oplog.NewOp(frame, before, preview, stored...)
		s.invalidate(frame, pending.ChangedKeys(), pending.ChangedColumns(), true)
	}

	count := fd.table.Len()
	if err := fd.table.Upsert(keys, validated, sc.WithDefaults(validated)); err != nil {
		return errors.NewValidationError(op, frame, "", err.Error())
	}

	after := fd.table.Take(keys)
	diff := oplog.NewOp(frame, before, after, stored...)
	now := s.clock()
	for _, k := range diff.RowKeys() {
		_ = fd.table.Set(k, schema.ModifiedColumn, now)
	}
	fd.table.SortIndex()

	s.invalidate(frame, diff.ChangedKeys(), diff.ChangedColumns(), false)
	s.invalidate(frame, diff.Added.Keys(), s.sourceColumns(frame), true)
	if fd.table.Len() != count {
		fd.state.increment()
	}

	switch {
	case opts.SkipLog:
	case !diff.IsEmpty():
		s.log.Push(diff, opts.ReplaceLog)
	case !opts.ReplaceLog:
		s.log.CreateState()
	}

	s.logger.Debug("frame updated",
		zap.String("frame", frame),
		zap.Int("rows", len(keys)),
		zap.Int("added", diff.Added.Len()),
		zap.Int("changed", len(diff.Changed)))
	return nil
}

// drop removes keys from fd. Every key must exist.
func (s *Store) drop(fd *frameData, keys []table.Key, skipLog bool) error {
	const op = "Drop"
	frame := fd.schema.Key()

	keys = uniqueKeys(keys)
	if len(keys) == 0 {
		return nil
	}
	if fd.record {
		return errors.NewInvalidInputError(op, "the row of record "+frame+" cannot be dropped, reset it instead")
	}
	for _, k := range keys {
		if !fd.table.Has(k) {
			return errors.NewRowNotFoundError(op, frame, k)
		}
	}

	deleted := fd.table.Take(keys)
	s.invalidate(frame, keys, s.sourceColumns(frame), true)
	fd.table.Delete(keys...)
	fd.state.increment()

	if !skipLog {
		s.log.Push(oplog.NewOp(frame, deleted, deleted.EmptyLike()), false)
	}

	s.logger.Debug("rows dropped", zap.String("frame", frame), zap.Int("rows", len(keys)))
	return nil
}

// replay reverses or reapplies op on its frame
func (s *Store) replay(name string, op *oplog.Op, reverse bool) error {
	fd, ok := s.frames[op.Type]
	if !ok {
		return errors.NewFrameNotFoundError(name, op.Type)
	}
	frame := op.Type

	removed, inserted := op.Deleted, op.Added
	if reverse {
		removed, inserted = op.Added, op.Deleted
	}
	sources := s.sourceColumns(frame)
	changedKeys, changedCols := op.ChangedKeys(), op.ChangedColumns()

	s.invalidate(frame, removed.Keys(), sources, true)
	s.invalidate(frame, changedKeys, changedCols, true)

	count := fd.table.Len()
	var err error
	if reverse {
		err = op.Reverse(fd.table, s.clock())
	} else {
		err = op.Apply(fd.table, s.clock())
	}
	if err != nil {
		return errors.NewInternalError(name, err)
	}

	s.invalidate(frame, changedKeys, changedCols, false)
	s.invalidate(frame, inserted.Keys(), sources, true)
	s.invalidateLinked(fd, inserted.Keys())
	if fd.table.Len() != count {
		fd.state.increment()
	}

	s.logger.Debug("op replayed",
		zap.String("action", name),
		zap.String("frame", frame),
		zap.Stringer("op", op.ID),
		zap.Int("removed", removed.Len()),
		zap.Int("inserted", inserted.Len()),
		zap.Int("changed", len(op.Changed)))
	return nil
}

// loadData replaces the root table of fd. The undo/redo log is reset since
// its ops refer to rows that no longer exist.
func (s *Store) loadData(fd *frameData, data *table.Table) error {
	const op = "LoadData"
	frame := fd.schema.Key()

	root, err := buildRoot(op, fd.schema, data)
	if err != nil {
		return err
	}
	if fd.record && (root.Len() != 1 || !root.Has(RecordKey)) {
		return errors.NewValidationError(op, frame, "", "record data must hold exactly the row "+RecordKey.String())
	}

	sources := s.sourceColumns(frame)
	s.invalidate(frame, fd.table.Keys(), sources, true)
	fd.table = root
	fd.state.replace()
	s.invalidate(frame, root.Keys(), sources, true)
	s.log = oplog.NewRecordLog(s.cfg.MaxHistory)

	s.logger.Info("frame data replaced", zap.String("frame", frame), zap.Int("rows", root.Len()))
	return nil
}

func (s *Store) recordUpdate(fd *frameData, keys []table.Key, values table.Row, opts UpdateOptions) error {
	return s.metrics.RecordOperation(monitoring.OpUpdate, fd.schema.Key(), len(keys), func() error {
		return s.update(fd, keys, values, opts)
	})
}

func (s *Store) recordDrop(fd *frameData, keys []table.Key, skipLog bool) error {
	return s.metrics.RecordOperation(monitoring.OpDrop, fd.schema.Key(), len(keys), func() error {
		return s.drop(fd, keys, skipLog)
	})
}
