package idset

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// IDs is a set of global ids backed by a 64-bit roaring bitmap.
type IDs struct {
	rb *roaring64.Bitmap
}

// NewIDs creates an empty set, optionally seeded with ids.
func NewIDs(ids ...uint64) *IDs {
	s := &IDs{rb: roaring64.New()}
	s.rb.AddMany(ids)
	return s
}

// Add inserts id and reports whether it was absent.
func (s *IDs) Add(id uint64) bool { return s.rb.CheckedAdd(id) }

// Remove deletes id.
func (s *IDs) Remove(id uint64) { s.rb.Remove(id) }

// Contains reports whether id is in the set.
func (s *IDs) Contains(id uint64) bool { return s.rb.Contains(id) }

// Len returns the number of ids.
func (s *IDs) Len() int { return int(s.rb.GetCardinality()) }

// Clear removes all ids.
func (s *IDs) Clear() { s.rb.Clear() }

// All iterates the ids in ascending order.
func (s *IDs) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		it := s.rb.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// Slice returns the ids in ascending order.
func (s *IDs) Slice() []uint64 { return s.rb.ToArray() }
