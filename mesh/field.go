package mesh

import "fmt"

// Kind tags the value type of a field.
type Kind uint8

const (
	KindFloat64 Kind = iota + 1
	KindInt64
)

func (k Kind) String() string {
	switch k {
	case KindFloat64:
		return "float64"
	case KindInt64:
		return "int64"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// Field is one value column defined on a dictionary. Exactly one of F and I
// is set, according to Kind.
type Field struct {
	Name string
	Dict DictIdx
	Kind Kind
	F    *Table[float64]
	I    *Table[int64]
}

func newField(name string, dict DictIdx, kind Kind, width int) (*Field, error) {
	f := &Field{Name: name, Dict: dict, Kind: kind}
	switch kind {
	case KindFloat64:
		f.F = NewTable[float64](width)
	case KindInt64:
		f.I = NewTable[int64](width)
	default:
		return nil, fmt.Errorf("%w: field %q of kind %v", ErrInvalidStructure, name, kind)
	}
	return f, nil
}

// Width returns the number of values per node.
func (f *Field) Width() int {
	if f.Kind == KindInt64 {
		return f.I.Width()
	}
	return f.F.Width()
}

// Len returns the number of rows.
func (f *Field) Len() int {
	if f.Kind == KindInt64 {
		return f.I.Len()
	}
	return f.F.Len()
}

// Grow appends n zero rows.
func (f *Field) Grow(n int) {
	if f.Kind == KindInt64 {
		f.I.Grow(n)
		return
	}
	f.F.Grow(n)
}

func (f *Field) clone() *Field {
	c := *f
	if f.F != nil {
		c.F = f.F.Clone()
	}
	if f.I != nil {
		c.I = f.I.Clone()
	}
	return &c
}

// Row is one node's values of one field, tagged with the field kind.
type Row struct {
	Kind Kind
	F    []float64
	I    []int64
}

// FloatRow returns a KindFloat64 row.
func FloatRow(v ...float64) Row { return Row{Kind: KindFloat64, F: v} }

// IntRow returns a KindInt64 row.
func IntRow(v ...int64) Row { return Row{Kind: KindInt64, I: v} }

// Len returns the number of values.
func (r Row) Len() int {
	if r.Kind == KindInt64 {
		return len(r.I)
	}
	return len(r.F)
}

// Clone returns a deep copy.
func (r Row) Clone() Row {
	c := Row{Kind: r.Kind}
	if r.F != nil {
		c.F = append([]float64(nil), r.F...)
	}
	if r.I != nil {
		c.I = append([]int64(nil), r.I...)
	}
	return c
}

// ZeroRow returns a zero row matching the field.
func (f *Field) ZeroRow() Row {
	if f.Kind == KindInt64 {
		return IntRow(make([]int64, f.Width())...)
	}
	return FloatRow(make([]float64, f.Width())...)
}

// RowAt returns a copy of row i.
func (f *Field) RowAt(i int) Row {
	if f.Kind == KindInt64 {
		return IntRow(append([]int64(nil), f.I.Row(i)...)...)
	}
	return FloatRow(append([]float64(nil), f.F.Row(i)...)...)
}

// CheckRow verifies that r matches the kind and width of the field.
func (f *Field) CheckRow(r Row) error {
	if r.Kind != f.Kind {
		return fmt.Errorf("%w: %v row for %v field %q", ErrInvalidStructure, r.Kind, f.Kind, f.Name)
	}
	if r.Len() != f.Width() {
		return fmt.Errorf("%w: row of %d values for field %q of width %d", ErrInvalidStructure, r.Len(), f.Name, f.Width())
	}
	return nil
}

// SetRow stores r as row i.
func (f *Field) SetRow(i int, r Row) error {
	if err := f.CheckRow(r); err != nil {
		return err
	}
	if f.Kind == KindInt64 {
		f.I.Set(i, r.I)
	} else {
		f.F.Set(i, r.F)
	}
	return nil
}
