package oplog_test

import (
	"testing"

	"github.com/paveg/lazystore/internal/oplog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func changeOp(t *testing.T, id int64, from, to float64) *oplog.Op {
	t.Helper()
	return oplog.NewOp("points",
		newPoints(t, map[int64]float64{id: from}),
		newPoints(t, map[int64]float64{id: to}),
		"x",
	)
}

func TestRecordLog_UndoRedo(t *testing.T) {
	log := oplog.NewRecordLog(0)
	assert.False(t, log.CanUndo())
	assert.Nil(t, log.Undo())
	assert.Nil(t, log.Redo())

	first, second := changeOp(t, 1, 0, 1), changeOp(t, 2, 0, 1)
	log.Push(first, false)
	log.Push(second, false)
	assert.Equal(t, 2, log.Len())
	assert.Equal(t, 1, log.Index())

	assert.Same(t, second, log.Undo())
	assert.Same(t, first, log.Undo())
	assert.Nil(t, log.Undo())
	assert.Equal(t, -1, log.Index())

	assert.Same(t, first, log.Redo())
	assert.True(t, log.CanRedo())
	assert.False(t, log.Replaceable())
}

func TestRecordLog_PushTruncatesRedo(t *testing.T) {
	log := oplog.NewRecordLog(0)
	log.Push(changeOp(t, 1, 0, 1), false)
	log.Push(changeOp(t, 2, 0, 1), false)
	log.Undo()

	third := changeOp(t, 3, 0, 1)
	log.Push(third, false)
	assert.Equal(t, 2, log.Len())
	assert.False(t, log.CanRedo())
	assert.Same(t, third, log.Undo())
}

func TestRecordLog_Coalescing(t *testing.T) {
	log := oplog.NewRecordLog(0)

	for i := 0; i < 10; i++ {
		log.Push(changeOp(t, 1, float64(i), float64(i+1)), true)
	}
	assert.Equal(t, 1, log.Len(), "replacing pushes on the same row coalesce")

	log.CreateState()
	log.Push(changeOp(t, 1, 10, 11), true)
	assert.Equal(t, 2, log.Len(), "a new state starts a new entry")

	log.Undo()
	log.Redo()
	log.Push(changeOp(t, 1, 11, 12), true)
	assert.Equal(t, 3, log.Len(), "undo and redo end the coalescing window")

	log.Push(changeOp(t, 2, 0, 1), true)
	assert.Equal(t, 4, log.Len(), "unmergeable shapes are pushed")
}

func TestRecordLog_CoalescingBackToStart(t *testing.T) {
	log := oplog.NewRecordLog(0)
	kept := changeOp(t, 2, 0, 1)
	log.Push(kept, false)

	log.Push(changeOp(t, 1, 1, 42), false)
	log.Push(changeOp(t, 1, 42, 1), true)
	assert.Equal(t, 1, log.Len(), "an edit undone by the next one leaves no entry")
	assert.Equal(t, 0, log.Index())
	assert.False(t, log.Replaceable())

	log.Push(changeOp(t, 1, 1, 5), true)
	assert.Equal(t, 2, log.Len(), "the next replacing push starts a new entry")

	log.Undo()
	assert.Same(t, kept, log.Undo())
	assert.Nil(t, log.Undo())
}

func TestRecordLog_Capacity(t *testing.T) {
	log := oplog.NewRecordLog(3)
	ops := make([]*oplog.Op, 5)
	for i := range ops {
		ops[i] = changeOp(t, int64(i), 0, 1)
		log.Push(ops[i], false)
	}

	assert.Equal(t, 3, log.Len())
	assert.Equal(t, 2, log.Index())

	stats := log.Stats()
	assert.Equal(t, oplog.Stats{Len: 3, Index: 2, CanUndo: true, Replaceable: true}, stats)

	assert.Same(t, ops[4], log.Undo())
	assert.Same(t, ops[3], log.Undo())
	assert.Same(t, ops[2], log.Undo())
	assert.Nil(t, log.Undo())
	require.True(t, log.CanRedo())
}
