package exchange

import (
	"fmt"

	"github.com/hupe1980/meshadapt/internal/idset"
	"github.com/hupe1980/meshadapt/mesh"
)

// Exports holds, per destination rank and collection, the local indices to send.
type Exports [][]*idset.Indices

// NewExports returns empty export sets for size ranks and n collections.
func NewExports(size, n int) Exports {
	x := make(Exports, size)
	for r := range x {
		x[r] = make([]*idset.Indices, n)
		for c := range x[r] {
			x[r][c] = idset.New()
		}
	}
	return x
}

// Add schedules local index i of collection c for rank r.
func (x Exports) Add(r, c, i int) { x[r][c].Add(i) }

// Len returns the number of scheduled records.
func (x Exports) Len() int {
	n := 0
	for _, colls := range x {
		for _, s := range colls {
			n += s.Len()
		}
	}
	return n
}

// Imported lists, per source rank and collection, the global ids received,
// including those that were already present.
type Imported [][][]uint64

func newImported(size, n int) Imported {
	im := make(Imported, size)
	for r := range im {
		im[r] = make([][]uint64, n)
	}
	return im
}

// Len returns the number of received records.
func (im Imported) Len() int {
	n := 0
	for _, colls := range im {
		for _, ids := range colls {
			n += len(ids)
		}
	}
	return n
}

// NodeClosure returns, per rank and dictionary, the nodes referenced by the
// exported elements. Connectivity must be global and node indexes current.
func NodeClosure(m *mesh.Mesh, elements Exports) (Exports, error) {
	if !m.GlobalConnectivity() {
		return nil, ErrConnectivityNotGlobal
	}
	nodes := NewExports(len(elements), m.NumDicts())
	for r, colls := range elements {
		for c, set := range colls {
			ent := m.Entities(mesh.EntitiesIdx(c))
			for i := range set.All() {
				for _, sp := range ent.Spaces {
					for _, gid := range sp.Connectivity.Row(i) {
						n, ok := m.LookupNode(sp.Dict, gid)
						if !ok {
							return nil, fmt.Errorf("%w: element %d of %q references node %d",
								mesh.ErrNotFound, ent.GlobalIDs.At(i), ent.Name, gid)
						}
						nodes.Add(r, int(sp.Dict), n)
					}
				}
			}
		}
	}
	return nodes, nil
}
