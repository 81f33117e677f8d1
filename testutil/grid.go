package testutil

import (
	"fmt"

	"github.com/hupe1980/meshadapt/mesh"
)

// Stripe returns the rank owning column i of n columns split over size ranks.
func Stripe(i, n, size int) int {
	return i * size / n
}

// QuadGrid returns the partition held by rank of an nx by ny grid of unit
// quads over [0,nx]x[0,ny]. Element columns are striped over size ranks; each
// rank holds its elements and the nodes they reference. Node owners are the
// lowest rank of an adjacent element.
//
// Node (i, j) has global id j*(nx+1)+i; element (i, j) has global id j*nx+i.
func QuadGrid(nx, ny, size, rank int) *mesh.Mesh {
	m := mustMesh("quads", 2)
	e, err := m.AddEntities("cells", mesh.Quad2D)
	must(err)

	local := map[uint64]uint64{}
	node := func(i, j int) uint64 {
		gid := uint64(j*(nx+1) + i)
		if loc, ok := local[gid]; ok {
			return loc
		}
		owner := Stripe(max(i-1, 0), nx, size)
		loc := uint64(m.AppendGeometryNode(gid, uint32(owner), float64(i), float64(j)))
		local[gid] = loc
		return loc
	}

	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			if Stripe(i, nx, size) != rank {
				continue
			}
			conn := []uint64{node(i, j), node(i+1, j), node(i+1, j+1), node(i, j+1)}
			m.AppendElement(e, uint64(j*nx+i), uint32(rank), conn)
		}
	}
	return m
}

// LineGrid returns the partition held by rank of n unit segments over [0,n],
// striped over size ranks like QuadGrid.
func LineGrid(n, size, rank int) *mesh.Mesh {
	m := mustMesh("line", 1)
	e, err := m.AddEntities("edges", mesh.Line2)
	must(err)

	local := map[uint64]uint64{}
	node := func(i int) uint64 {
		if loc, ok := local[uint64(i)]; ok {
			return loc
		}
		owner := Stripe(max(i-1, 0), n, size)
		loc := uint64(m.AppendGeometryNode(uint64(i), uint32(owner), float64(i)))
		local[uint64(i)] = loc
		return loc
	}
	for i := 0; i < n; i++ {
		if Stripe(i, n, size) != rank {
			continue
		}
		m.AppendElement(e, uint64(i), uint32(rank), []uint64{node(i), node(i + 1)})
	}
	return m
}

func mustMesh(name string, dim int) *mesh.Mesh {
	m, err := mesh.New(name, dim)
	must(err)
	return m
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("testutil: %v", err))
	}
}
