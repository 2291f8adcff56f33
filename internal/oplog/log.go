package oplog

// RecordLog is the undo/redo history. ops[:index+1] can be undone and
// ops[index+1:] can be redone. Pushing after an undo discards the redo
// history.
type RecordLog struct {
	ops         []*Op
	index       int
	replaceable bool
	capacity    int
}

// NewRecordLog creates an empty log. A positive capacity bounds the number
// of undoable ops; the oldest are discarded first.
func NewRecordLog(capacity int) *RecordLog {
	return &RecordLog{index: -1, capacity: capacity}
}

// Push records op. With replace set and the last push still replaceable,
// op is merged into the last entry when the shapes allow it. A merge that
// cancels out removes the entry.
func (l *RecordLog) Push(op *Op, replace bool) {
	if replace && l.replaceable && l.index >= 0 && l.ops[l.index].Update(op) {
		if l.ops[l.index].IsEmpty() {
			l.ops[l.index] = nil
			l.ops = l.ops[:l.index]
			l.index--
			l.replaceable = false
		}
		return
	}

	l.ops = append(l.ops[:l.index+1], op)
	l.index++
	l.replaceable = true

	if l.capacity > 0 && len(l.ops) > l.capacity {
		drop := len(l.ops) - l.capacity
		clear(l.ops[:drop])
		l.ops = l.ops[drop:]
		l.index -= drop
	}
}

// CreateState ends the coalescing window so the next push starts a new entry
func (l *RecordLog) CreateState() {
	l.replaceable = false
}

// Undo moves the cursor back and returns the op to reverse, or nil
func (l *RecordLog) Undo() *Op {
	if !l.CanUndo() {
		return nil
	}
	op := l.ops[l.index]
	l.index--
	l.replaceable = false
	return op
}

// Redo moves the cursor forward and returns the op to apply, or nil
func (l *RecordLog) Redo() *Op {
	if !l.CanRedo() {
		return nil
	}
	l.index++
	l.replaceable = false
	return l.ops[l.index]
}

// CanUndo reports whether an op can be undone
func (l *RecordLog) CanUndo() bool {
	return l.index >= 0
}

// CanRedo reports whether an op can be redone
func (l *RecordLog) CanRedo() bool {
	return l.index+1 < len(l.ops)
}

// Len returns the number of recorded ops including redoable ones
func (l *RecordLog) Len() int {
	return len(l.ops)
}

// Index returns the cursor; -1 when nothing can be undone
func (l *RecordLog) Index() int {
	return l.index
}

// Replaceable reports whether the next replacing push may amend the last op
func (l *RecordLog) Replaceable() bool {
	return l.replaceable
}

// Stats is a read-only summary of the log
type Stats struct {
	Len         int  `json:"len"`
	Index       int  `json:"index"`
	CanUndo     bool `json:"can_undo"`
	CanRedo     bool `json:"can_redo"`
	Replaceable bool `json:"replaceable"`
}

// Stats returns a summary of the log
func (l *RecordLog) Stats() Stats {
	return Stats{
		Len:         l.Len(),
		Index:       l.index,
		CanUndo:     l.CanUndo(),
		CanRedo:     l.CanRedo(),
		Replaceable: l.replaceable,
	}
}
