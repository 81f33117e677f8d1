package hilbert

import (
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/meshadapt/geometry"
)

// DefaultDepth resolves distinct mesh entities in practice without excessive collisions.
const DefaultDepth = 20

var (
	// ErrEmptyBox is returned when the bounding box contains no point.
	ErrEmptyBox = errors.New("hilbert: empty bounding box")

	// ErrInvalidDimension is returned for dimensions outside 1..3.
	ErrInvalidDimension = errors.New("hilbert: invalid dimension")

	// ErrInvalidDepth is returned when depth < 1 or the key would not fit 64 bits.
	ErrInvalidDepth = errors.New("hilbert: invalid depth")

	// ErrUnresolved is returned by CheckResolution when a point does not lie
	// within its leaf cell.
	ErrUnresolved = errors.New("hilbert: point not resolved at depth")
)

const maxCorners = 8

type corners [maxCorners][3]float64

// Hasher maps points inside a bounding box to keys on a Hilbert curve.
// It is immutable and safe for concurrent use.
type Hasher struct {
	box      geometry.Box
	dim      int
	depth    int
	n        int // 2^dim
	subcells [][]int
	root     corners
}

// New creates a Hasher over box at the given recursion depth.
func New(box geometry.Box, depth int) (*Hasher, error) {
	dim := box.Dim()
	if dim < 1 || dim > 3 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}
	if box.IsEmpty() {
		return nil, ErrEmptyBox
	}
	if depth < 1 || dim*depth > 64 {
		return nil, fmt.Errorf("%w: %d in %d dimensions", ErrInvalidDepth, depth, dim)
	}

	vertices, subcells := tables(dim)
	h := &Hasher{
		box:      box.Clone(),
		dim:      dim,
		depth:    depth,
		n:        1 << dim,
		subcells: subcells,
	}
	for q, v := range vertices {
		for k := 0; k < dim; k++ {
			if v[k] == 0 {
				h.root[q][k] = box.Min[k]
			} else {
				h.root[q][k] = box.Max[k]
			}
		}
	}
	return h, nil
}

// Dim returns the dimension of the hashed space.
func (h *Hasher) Dim() int { return h.dim }

// Depth returns the recursion depth.
func (h *Hasher) Depth() int { return h.depth }

// Box returns a copy of the bounding box.
func (h *Hasher) Box() geometry.Box { return h.box.Clone() }

// MaxKey returns the largest key the hasher can produce, 2^(dim*depth) - 1.
func (h *Hasher) MaxKey() uint64 {
	return ^uint64(0) >> (64 - h.dim*h.depth)
}

// RelativeTolerance returns the ratio of the leaf cell diagonal to the box diagonal.
func (h *Hasher) RelativeTolerance() float64 {
	return math.Ldexp(1, -h.depth)
}

// Key returns the Hilbert key of p. p must have Dim() coordinates.
func (h *Hasher) Key(p []float64) uint64 {
	key, _ := h.descend(p)
	return key
}

// KeyWithTolerance returns the key of p and the relative tolerance of its leaf cell.
func (h *Hasher) KeyWithTolerance(p []float64) (uint64, float64) {
	return h.Key(p), h.RelativeTolerance()
}

// Cell returns the leaf cell p falls in.
func (h *Hasher) Cell(p []float64) geometry.Box {
	_, c := h.descend(p)
	return h.cellBox(&c)
}

// CheckResolution verifies that the nearest corner of p's leaf cell lies within
// half a cell diagonal of p, which fails for points outside the box.
func (h *Hasher) CheckResolution(p []float64) error {
	_, c := h.descend(p)
	cell := h.cellBox(&c)
	half := 0.5 * math.Sqrt(geometry.SquaredL2(cell.Min, cell.Max))

	best := math.Inf(1)
	for i := 0; i < h.n; i++ {
		best = math.Min(best, geometry.SquaredL2(p[:h.dim], c[i][:h.dim]))
	}
	if math.Sqrt(best) > half*(1+1e-9) {
		return fmt.Errorf("%w: %v at depth %d (distance %g, half cell diagonal %g)",
			ErrUnresolved, p, h.depth, math.Sqrt(best), half)
	}
	return nil
}

func (h *Hasher) descend(p []float64) (uint64, corners) {
	c := h.root
	var key uint64
	for level := 0; level < h.depth; level++ {
		q := h.nearest(p, &c)
		key = key<<h.dim | uint64(q)

		var next corners
		for i, j := range h.subcells[q] {
			for k := 0; k < h.dim; k++ {
				next[i][k] = 0.5 * (c[q][k] + c[j][k])
			}
		}
		c = next
	}
	return key, c
}

// nearest returns the label of the corner closest to p; ties go to the lowest label.
func (h *Hasher) nearest(p []float64, c *corners) int {
	best := 0
	bestDist := math.Inf(1)
	for q := 0; q < h.n; q++ {
		var d float64
		for k := 0; k < h.dim; k++ {
			diff := p[k] - c[q][k]
			d += diff * diff
		}
		if d < bestDist {
			best, bestDist = q, d
		}
	}
	return best
}

func (h *Hasher) cellBox(c *corners) geometry.Box {
	b := geometry.NewBox(h.dim)
	for i := 0; i < h.n; i++ {
		_ = b.Extend(c[i][:h.dim])
	}
	return b
}
