package buffer

import (
	"fmt"

	"github.com/hupe1980/meshadapt/internal/idset"
	"github.com/hupe1980/meshadapt/mesh"
)

// Buffer stages changes to one column.
type Buffer[T any] struct {
	table   *mesh.Table[T]
	width   int
	pending []T
	removed *idset.Indices
}

// New returns a buffer over table.
func New[T any](table *mesh.Table[T]) *Buffer[T] {
	return &Buffer[T]{
		table:   table,
		width:   table.Width(),
		removed: idset.New(),
	}
}

// Width returns the number of values per row.
func (b *Buffer[T]) Width() int { return b.width }

// TotalAllocated returns the number of authoritative plus pending rows,
// removed rows included.
func (b *Buffer[T]) TotalAllocated() int {
	return b.table.Len() + len(b.pending)/b.width
}

// AddRow appends row and returns its logical index.
func (b *Buffer[T]) AddRow(row ...T) int {
	if len(row) != b.width {
		panic(fmt.Sprintf("buffer: row of %d values for width %d", len(row), b.width))
	}
	i := b.TotalAllocated()
	b.pending = append(b.pending, row...)
	return i
}

// RemoveRow marks row i removed. Removing twice is a no-op.
// It panics if i is not an allocated row.
func (b *Buffer[T]) RemoveRow(i int) {
	b.check(i)
	b.removed.Add(i)
}

// Restore undoes RemoveRow.
func (b *Buffer[T]) Restore(i int) {
	b.check(i)
	b.removed.Remove(i)
}

// IsRemoved reports whether row i is marked removed.
func (b *Buffer[T]) IsRemoved(i int) bool { return b.removed.Contains(i) }

// Removed returns the number of rows marked removed.
func (b *Buffer[T]) Removed() int { return b.removed.Len() }

// Row returns row i. The slice aliases the buffer.
func (b *Buffer[T]) Row(i int) []T {
	b.check(i)
	n := b.table.Len()
	if i < n {
		return b.table.Row(i)
	}
	j := (i - n) * b.width
	return b.pending[j : j+b.width : j+b.width]
}

// Set overwrites row i.
func (b *Buffer[T]) Set(i int, row []T) {
	if len(row) != b.width {
		panic(fmt.Sprintf("buffer: row of %d values for width %d", len(row), b.width))
	}
	copy(b.Row(i), row)
}

// Pending reports whether Flush has work to do.
func (b *Buffer[T]) Pending() bool {
	return len(b.pending) > 0 || !b.removed.IsEmpty()
}

// Flush commits pending rows and drops removed ones.
func (b *Buffer[T]) Flush() {
	if !b.Pending() {
		return
	}
	total := b.TotalAllocated()
	out := make([]T, 0, (total-b.removed.Len())*b.width)
	for i := 0; i < total; i++ {
		if b.removed.Contains(i) {
			continue
		}
		out = append(out, b.Row(i)...)
	}
	b.table.Replace(out)
	b.pending = nil
	b.removed.Clear()
}

func (b *Buffer[T]) check(i int) {
	if i < 0 || i >= b.TotalAllocated() {
		panic(fmt.Sprintf("buffer: row %d out of range, %d allocated", i, b.TotalAllocated()))
	}
}
