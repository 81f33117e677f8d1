package mesh

import "fmt"

// Table is a fixed-width row store: row i occupies data[i*width : (i+1)*width].
type Table[T any] struct {
	width int
	data  []T
}

// NewTable returns an empty table. It panics if width < 1.
func NewTable[T any](width int) *Table[T] {
	if width < 1 {
		panic(fmt.Sprintf("mesh: table width %d", width))
	}
	return &Table[T]{width: width}
}

// Width returns the number of values per row.
func (t *Table[T]) Width() int { return t.width }

// Len returns the number of rows.
func (t *Table[T]) Len() int { return len(t.data) / t.width }

// Row returns row i. The slice aliases the table.
func (t *Table[T]) Row(i int) []T {
	return t.data[i*t.width : (i+1)*t.width : (i+1)*t.width]
}

// At returns the first value of row i, for width-1 columns.
func (t *Table[T]) At(i int) T {
	return t.data[i*t.width]
}

// Set copies row into row i.
func (t *Table[T]) Set(i int, row []T) {
	t.checkRow(row)
	copy(t.Row(i), row)
}

// SetAt sets the first value of row i.
func (t *Table[T]) SetAt(i int, v T) {
	t.data[i*t.width] = v
}

// Append adds a row and returns its index.
func (t *Table[T]) Append(row ...T) int {
	t.checkRow(row)
	t.data = append(t.data, row...)
	return t.Len() - 1
}

// Grow appends n zero rows.
func (t *Table[T]) Grow(n int) {
	t.data = append(t.data, make([]T, n*t.width)...)
}

// Replace swaps in data as the table contents.
func (t *Table[T]) Replace(data []T) {
	if len(data)%t.width != 0 {
		panic(fmt.Sprintf("mesh: %d values do not fill rows of width %d", len(data), t.width))
	}
	t.data = data
}

// Data returns the flat backing slice.
func (t *Table[T]) Data() []T { return t.data }

// Clone returns a deep copy.
func (t *Table[T]) Clone() *Table[T] {
	return &Table[T]{width: t.width, data: append([]T(nil), t.data...)}
}

func (t *Table[T]) checkRow(row []T) {
	if len(row) != t.width {
		panic(fmt.Sprintf("mesh: row of %d values for table of width %d", len(row), t.width))
	}
}
