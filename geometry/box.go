package geometry

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/meshadapt/transport"
)

// ErrDimensionMismatch is returned when a point does not match the box dimension.
var ErrDimensionMismatch = errors.New("geometry: dimension mismatch")

// Box is an axis-aligned bounding box. An empty box has Min = +Inf and Max = -Inf.
type Box struct {
	Min []float64
	Max []float64
}

// NewBox returns an empty box of dimension dim.
func NewBox(dim int) Box {
	b := Box{Min: make([]float64, dim), Max: make([]float64, dim)}
	for i := 0; i < dim; i++ {
		b.Min[i] = math.Inf(1)
		b.Max[i] = math.Inf(-1)
	}
	return b
}

// BoxOf returns the bounding box of points of dimension dim.
func BoxOf(dim int, points [][]float64) (Box, error) {
	b := NewBox(dim)
	for _, p := range points {
		if err := b.Extend(p); err != nil {
			return Box{}, err
		}
	}
	return b, nil
}

// Dim returns the dimension of the box.
func (b Box) Dim() int { return len(b.Min) }

// IsEmpty reports whether the box contains no point.
func (b Box) IsEmpty() bool {
	for i := range b.Min {
		if b.Min[i] > b.Max[i] {
			return true
		}
	}
	return len(b.Min) == 0
}

// Extend grows the box to contain p.
func (b Box) Extend(p []float64) error {
	if len(p) != len(b.Min) {
		return fmt.Errorf("%w: point of dimension %d, box of dimension %d", ErrDimensionMismatch, len(p), len(b.Min))
	}
	for i, v := range p {
		b.Min[i] = math.Min(b.Min[i], v)
		b.Max[i] = math.Max(b.Max[i], v)
	}
	return nil
}

// Contains reports whether p lies inside the closed box.
func (b Box) Contains(p []float64) bool {
	if len(p) != len(b.Min) {
		return false
	}
	for i, v := range p {
		if v < b.Min[i] || v > b.Max[i] {
			return false
		}
	}
	return true
}

// Diagonal returns the length of the box diagonal, or 0 for an empty box.
func (b Box) Diagonal() float64 {
	if b.IsEmpty() {
		return 0
	}
	return L2(b.Min, b.Max)
}

// Clone returns a deep copy of b.
func (b Box) Clone() Box {
	return Box{
		Min: append([]float64(nil), b.Min...),
		Max: append([]float64(nil), b.Max...),
	}
}

// MakeGlobal returns the union of b over all ranks.
func (b Box) MakeGlobal(ctx context.Context, t transport.Transport) (Box, error) {
	lo, err := transport.AllReduceFloat64s(ctx, t, transport.OpMin, b.Min)
	if err != nil {
		return Box{}, fmt.Errorf("bounding box min: %w", err)
	}
	hi, err := transport.AllReduceFloat64s(ctx, t, transport.OpMax, b.Max)
	if err != nil {
		return Box{}, fmt.Errorf("bounding box max: %w", err)
	}
	return Box{Min: lo, Max: hi}, nil
}
