package buffer

import (
	"fmt"

	"github.com/hupe1980/meshadapt/internal/idset"
	"github.com/hupe1980/meshadapt/mesh"
)

// ElementBuffers stages changes to every column of one element group.
type ElementBuffers struct {
	GlobalIDs    *Buffer[uint64]
	Ranks        *Buffer[uint32]
	Connectivity []*Buffer[uint64] // one per space

	index
}

// FieldBuffer stages changes to one field; exactly one of F and I is set.
type FieldBuffer struct {
	Kind mesh.Kind
	F    *Buffer[float64]
	I    *Buffer[int64]
}

func newFieldBuffer(f *mesh.Field) FieldBuffer {
	fb := FieldBuffer{Kind: f.Kind}
	if f.Kind == mesh.KindInt64 {
		fb.I = New(f.I)
	} else {
		fb.F = New(f.F)
	}
	return fb
}

func (fb FieldBuffer) add(r mesh.Row) {
	if fb.Kind == mesh.KindInt64 {
		fb.I.AddRow(r.I...)
		return
	}
	fb.F.AddRow(r.F...)
}

func (fb FieldBuffer) remove(i int) {
	if fb.Kind == mesh.KindInt64 {
		fb.I.RemoveRow(i)
		return
	}
	fb.F.RemoveRow(i)
}

func (fb FieldBuffer) restore(i int) {
	if fb.Kind == mesh.KindInt64 {
		fb.I.Restore(i)
		return
	}
	fb.F.Restore(i)
}

func (fb FieldBuffer) set(i int, r mesh.Row) {
	if fb.Kind == mesh.KindInt64 {
		fb.I.Set(i, r.I)
		return
	}
	fb.F.Set(i, r.F)
}

// Row returns a copy of row i.
func (fb FieldBuffer) Row(i int) mesh.Row {
	if fb.Kind == mesh.KindInt64 {
		return mesh.IntRow(append([]int64(nil), fb.I.Row(i)...)...)
	}
	return mesh.FloatRow(append([]float64(nil), fb.F.Row(i)...)...)
}

func (fb FieldBuffer) flush() {
	if fb.Kind == mesh.KindInt64 {
		fb.I.Flush()
		return
	}
	fb.F.Flush()
}

// NodeBuffers stages changes to every column of one dictionary.
type NodeBuffers struct {
	GlobalIDs *Buffer[uint64]
	Ranks     *Buffer[uint32]
	Fields    []FieldBuffer // parallel to Dictionary.Fields

	index
}

// Set holds the buffers of every collection of a mesh for one generation.
type Set struct {
	m        *mesh.Mesh
	Elements []*ElementBuffers
	Nodes    []*NodeBuffers
}

// NewSet opens buffers over every collection of m.
func NewSet(m *mesh.Mesh) *Set {
	s := &Set{m: m}
	for e := 0; e < m.NumEntities(); e++ {
		ent := m.Entities(mesh.EntitiesIdx(e))
		eb := &ElementBuffers{
			GlobalIDs: New(ent.GlobalIDs),
			Ranks:     New(ent.Ranks),
		}
		for _, sp := range ent.Spaces {
			eb.Connectivity = append(eb.Connectivity, New(sp.Connectivity))
		}
		eb.index = newIndex(ent.GlobalIDs)
		s.Elements = append(s.Elements, eb)
	}
	for d := 0; d < m.NumDicts(); d++ {
		dict := m.Dict(mesh.DictIdx(d))
		nb := &NodeBuffers{
			GlobalIDs: New(dict.GlobalIDs),
			Ranks:     New(dict.Ranks),
		}
		for _, f := range dict.Fields {
			nb.Fields = append(nb.Fields, newFieldBuffer(m.Field(f)))
		}
		nb.index = newIndex(dict.GlobalIDs)
		s.Nodes = append(s.Nodes, nb)
	}
	return s
}

// Mesh returns the mesh the buffers stage changes for.
func (s *Set) Mesh() *mesh.Mesh { return s.m }

// index tracks the global ids of one collection for the current generation.
// loc maps a global id to the first row that carried it; live holds the ids
// whose indexed row is not removed.
type index struct {
	loc  map[uint64]int
	live *idset.IDs
}

func newIndex(gids *mesh.Table[uint64]) index {
	x := index{loc: make(map[uint64]int, gids.Len()), live: idset.NewIDs()}
	for i, gid := range gids.Data() {
		if _, ok := x.loc[gid]; !ok {
			x.loc[gid] = i
			x.live.Add(gid)
		}
	}
	return x
}

func (x index) lookup(gid uint64) (int, bool) {
	if !x.live.Contains(gid) {
		return 0, false
	}
	return x.loc[gid], true
}

func (x index) add(gid uint64, i int) {
	x.loc[gid] = i
	x.live.Add(gid)
}

func (x index) remove(gid uint64, i int) {
	if j, ok := x.loc[gid]; ok && j == i {
		x.live.Remove(gid)
	}
}

// TotalElements returns the allocated rows of group e.
func (s *Set) TotalElements(e mesh.EntitiesIdx) int { return s.Elements[e].GlobalIDs.TotalAllocated() }

// TotalNodes returns the allocated rows of dictionary d.
func (s *Set) TotalNodes(d mesh.DictIdx) int { return s.Nodes[d].GlobalIDs.TotalAllocated() }

// HasElement returns the logical index of a live element with global id gid.
func (s *Set) HasElement(e mesh.EntitiesIdx, gid uint64) (int, bool) {
	return s.Elements[e].lookup(gid)
}

// HasNode returns the logical index of a live node with global id gid.
func (s *Set) HasNode(d mesh.DictIdx, gid uint64) (int, bool) {
	return s.Nodes[d].lookup(gid)
}

// AddElement adds an element unless gid is already live, and reports whether
// a row was added. An element removed earlier in this generation is restored
// in place.
func (s *Set) AddElement(e mesh.EntitiesIdx, gid uint64, rank uint32, conn [][]uint64) (int, bool) {
	eb := s.Elements[e]
	if len(conn) != len(eb.Connectivity) {
		panic(fmt.Sprintf("buffer: %d connectivity rows for %d spaces", len(conn), len(eb.Connectivity)))
	}
	if i, ok := eb.lookup(gid); ok {
		return i, false
	}
	if i, ok := eb.loc[gid]; ok {
		eb.live.Add(gid)
		eb.GlobalIDs.Restore(i)
		eb.Ranks.Restore(i)
		eb.Ranks.Set(i, []uint32{rank})
		for sp, c := range eb.Connectivity {
			c.Restore(i)
			c.Set(i, conn[sp])
		}
		return i, true
	}
	i := eb.GlobalIDs.AddRow(gid)
	eb.Ranks.AddRow(rank)
	for sp, c := range eb.Connectivity {
		c.AddRow(conn[sp]...)
	}
	eb.add(gid, i)
	return i, true
}

// RemoveElement marks element i removed.
func (s *Set) RemoveElement(e mesh.EntitiesIdx, i int) {
	eb := s.Elements[e]
	eb.remove(eb.GlobalIDs.Row(i)[0], i)
	eb.GlobalIDs.RemoveRow(i)
	eb.Ranks.RemoveRow(i)
	for _, c := range eb.Connectivity {
		c.RemoveRow(i)
	}
}

// IsElementRemoved reports whether element i is marked removed.
func (s *Set) IsElementRemoved(e mesh.EntitiesIdx, i int) bool {
	return s.Elements[e].GlobalIDs.IsRemoved(i)
}

// ElementGlobalID returns the global id of element i.
func (s *Set) ElementGlobalID(e mesh.EntitiesIdx, i int) uint64 {
	return s.Elements[e].GlobalIDs.Row(i)[0]
}

// ElementRank returns the owner rank of element i.
func (s *Set) ElementRank(e mesh.EntitiesIdx, i int) uint32 {
	return s.Elements[e].Ranks.Row(i)[0]
}

// SetElementRank changes the owner rank of element i.
func (s *Set) SetElementRank(e mesh.EntitiesIdx, i int, rank uint32) {
	s.Elements[e].Ranks.Set(i, []uint32{rank})
}

// ElementConnectivity returns the row of element i in space sp.
func (s *Set) ElementConnectivity(e mesh.EntitiesIdx, sp, i int) []uint64 {
	return s.Elements[e].Connectivity[sp].Row(i)
}

// AddNode adds a node unless gid is already live, and reports whether a row
// was added. values holds one row per field of the dictionary.
func (s *Set) AddNode(d mesh.DictIdx, gid uint64, rank uint32, values []mesh.Row) (int, bool) {
	nb := s.Nodes[d]
	if len(values) != len(nb.Fields) {
		panic(fmt.Sprintf("buffer: %d value rows for %d fields", len(values), len(nb.Fields)))
	}
	if i, ok := nb.lookup(gid); ok {
		return i, false
	}
	if i, ok := nb.loc[gid]; ok {
		nb.live.Add(gid)
		nb.GlobalIDs.Restore(i)
		nb.Ranks.Restore(i)
		nb.Ranks.Set(i, []uint32{rank})
		for f, fb := range nb.Fields {
			fb.restore(i)
			fb.set(i, values[f])
		}
		return i, true
	}
	i := nb.GlobalIDs.AddRow(gid)
	nb.Ranks.AddRow(rank)
	for f, fb := range nb.Fields {
		fb.add(values[f])
	}
	nb.add(gid, i)
	return i, true
}

// RemoveNode marks node i removed.
func (s *Set) RemoveNode(d mesh.DictIdx, i int) {
	nb := s.Nodes[d]
	nb.remove(nb.GlobalIDs.Row(i)[0], i)
	nb.GlobalIDs.RemoveRow(i)
	nb.Ranks.RemoveRow(i)
	for _, fb := range nb.Fields {
		fb.remove(i)
	}
}

// IsNodeRemoved reports whether node i is marked removed.
func (s *Set) IsNodeRemoved(d mesh.DictIdx, i int) bool {
	return s.Nodes[d].GlobalIDs.IsRemoved(i)
}

// NodeGlobalID returns the global id of node i.
func (s *Set) NodeGlobalID(d mesh.DictIdx, i int) uint64 {
	return s.Nodes[d].GlobalIDs.Row(i)[0]
}

// NodeRank returns the owner rank of node i.
func (s *Set) NodeRank(d mesh.DictIdx, i int) uint32 {
	return s.Nodes[d].Ranks.Row(i)[0]
}

// SetNodeRank changes the owner rank of node i.
func (s *Set) SetNodeRank(d mesh.DictIdx, i int, rank uint32) {
	s.Nodes[d].Ranks.Set(i, []uint32{rank})
}

// NodeValue returns a copy of node i's row of the f-th field of d.
func (s *Set) NodeValue(d mesh.DictIdx, f, i int) mesh.Row {
	return s.Nodes[d].Fields[f].Row(i)
}

// ElementsPending reports whether any element buffer has uncommitted changes.
func (s *Set) ElementsPending() bool {
	for _, eb := range s.Elements {
		if eb.GlobalIDs.Pending() {
			return true
		}
	}
	return false
}

// NodesPending reports whether any node buffer has uncommitted changes.
func (s *Set) NodesPending() bool {
	for _, nb := range s.Nodes {
		if nb.GlobalIDs.Pending() {
			return true
		}
	}
	return false
}

// FlushElements commits every element buffer and starts a new generation.
func (s *Set) FlushElements() {
	for e, eb := range s.Elements {
		eb.GlobalIDs.Flush()
		eb.Ranks.Flush()
		for _, c := range eb.Connectivity {
			c.Flush()
		}
		eb.index = newIndex(s.m.Entities(mesh.EntitiesIdx(e)).GlobalIDs)
	}
}

// FlushNodes commits every node buffer and starts a new generation.
func (s *Set) FlushNodes() {
	for d, nb := range s.Nodes {
		nb.GlobalIDs.Flush()
		nb.Ranks.Flush()
		for _, fb := range nb.Fields {
			fb.flush()
		}
		nb.index = newIndex(s.m.Dict(mesh.DictIdx(d)).GlobalIDs)
	}
}
