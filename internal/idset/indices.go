package idset

import (
	"fmt"
	"iter"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/meshadapt/internal/conv"
)

// Indices is a set of local indices backed by a 32-bit roaring bitmap.
// Iteration is in ascending order.
type Indices struct {
	rb *roaring.Bitmap
}

var indicesPool = sync.Pool{
	New: func() any {
		return &Indices{rb: roaring.New()}
	},
}

// New creates an empty set, optionally seeded with indices.
func New(indices ...int) *Indices {
	s := &Indices{rb: roaring.New()}
	for _, i := range indices {
		s.Add(i)
	}
	return s
}

// Get takes an empty set from the pool. Call Put when done.
func Get() *Indices {
	s := indicesPool.Get().(*Indices)
	s.rb.Clear()
	return s
}

// Put returns s to the pool.
func Put(s *Indices) {
	if s == nil {
		return
	}
	s.rb.Clear()
	indicesPool.Put(s)
}

func key(i int) uint32 {
	k, err := conv.IntToUint32(i)
	if err != nil {
		panic(fmt.Sprintf("idset: index %d out of range", i))
	}
	return k
}

// Add inserts i.
func (s *Indices) Add(i int) { s.rb.Add(key(i)) }

// Remove deletes i.
func (s *Indices) Remove(i int) { s.rb.Remove(key(i)) }

// Contains reports whether i is in the set.
func (s *Indices) Contains(i int) bool {
	k, err := conv.IntToUint32(i)
	if err != nil {
		return false
	}
	return s.rb.Contains(k)
}

// Len returns the number of indices.
func (s *Indices) Len() int { return int(s.rb.GetCardinality()) }

// IsEmpty reports whether the set is empty.
func (s *Indices) IsEmpty() bool { return s.rb.IsEmpty() }

// Clear removes all indices.
func (s *Indices) Clear() { s.rb.Clear() }

// Clone returns a deep copy.
func (s *Indices) Clone() *Indices { return &Indices{rb: s.rb.Clone()} }

// Or adds every index of other.
func (s *Indices) Or(other *Indices) { s.rb.Or(other.rb) }

// AndNot removes every index of other.
func (s *Indices) AndNot(other *Indices) { s.rb.AndNot(other.rb) }

// All iterates the indices in ascending order.
func (s *Indices) All() iter.Seq[int] {
	return func(yield func(int) bool) {
		it := s.rb.Iterator()
		for it.HasNext() {
			if !yield(int(it.Next())) {
				return
			}
		}
	}
}

// Slice returns the indices in ascending order.
func (s *Indices) Slice() []int {
	out := make([]int, 0, s.Len())
	for i := range s.All() {
		out = append(out, i)
	}
	return out
}
