package buffer

import (
	"testing"

	"github.com/hupe1980/meshadapt/mesh"
	"github.com/stretchr/testify/assert"
)

func TestBuffer_AddRemoveFlush(t *testing.T) {
	tb := mesh.NewTable[uint64](2)
	tb.Append(1, 1)
	tb.Append(2, 2)
	tb.Append(3, 3)

	b := New(tb)
	assert.False(t, b.Pending())
	assert.Equal(t, 3, b.TotalAllocated())

	assert.Equal(t, 3, b.AddRow(4, 4))
	assert.Equal(t, 4, b.AddRow(5, 5))
	assert.Equal(t, 5, b.TotalAllocated())
	assert.Equal(t, []uint64{4, 4}, b.Row(3))

	b.RemoveRow(1)
	b.RemoveRow(3)
	b.RemoveRow(3)
	assert.True(t, b.IsRemoved(3))
	assert.Equal(t, 2, b.Removed())

	// Not yet committed.
	assert.Equal(t, 3, tb.Len())

	b.Flush()
	assert.False(t, b.Pending())
	assert.Equal(t, []uint64{1, 1, 3, 3, 5, 5}, tb.Data())
	assert.Equal(t, 3, b.TotalAllocated())
	assert.False(t, b.IsRemoved(1))
}

func TestBuffer_RestoreAndSet(t *testing.T) {
	tb := mesh.NewTable[uint32](1)
	tb.Append(7)
	b := New(tb)

	b.RemoveRow(0)
	b.Restore(0)
	i := b.AddRow(8)
	b.Set(i, []uint32{9})
	b.Set(0, []uint32{6})
	b.Flush()
	assert.Equal(t, []uint32{6, 9}, tb.Data())
}

func TestBuffer_RemoveOutOfRangePanics(t *testing.T) {
	b := New(mesh.NewTable[uint64](1))
	assert.Panics(t, func() { b.RemoveRow(0) })
	b.AddRow(1)
	assert.NotPanics(t, func() { b.RemoveRow(0) })
	assert.Panics(t, func() { b.RemoveRow(-1) })
	assert.Panics(t, func() { b.AddRow(1, 2) })
}

func TestBuffer_FlushWithoutChangesKeepsTable(t *testing.T) {
	tb := mesh.NewTable[uint64](1)
	tb.Append(1)
	data := tb.Data()
	New(tb).Flush()
	assert.Equal(t, &data[0], &tb.Data()[0])
}
