package meshadapt_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/meshadapt"
	"github.com/hupe1980/meshadapt/mesh"
	"github.com/hupe1980/meshadapt/testutil"
	"github.com/hupe1980/meshadapt/transport"
	"github.com/hupe1980/meshadapt/transport/local"
)

// Example_moveElements moves the only element of rank 0 to rank 1.
func Example_moveElements() {
	counts := make([][2]int, 2)
	err := local.Run(context.Background(), 2, func(ctx context.Context, t transport.Transport) error {
		a, err := meshadapt.New(testutil.QuadGrid(2, 1, t.Size(), t.Rank()), t)
		if err != nil {
			return err
		}
		if err := a.Prepare(); err != nil {
			return err
		}
		x := meshadapt.NewExports(t.Size(), 1)
		if t.Rank() == 0 {
			x.Add(1, 0, 0)
		}
		if err := a.MoveElements(ctx, x); err != nil {
			return err
		}
		if err := a.Finish(); err != nil {
			return err
		}
		m := a.Mesh()
		counts[t.Rank()] = [2]int{m.NumElements(), m.Dict(mesh.GeometryDict).Size()}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	for r, c := range counts {
		fmt.Printf("rank %d: %d elements, %d nodes\n", r, c[0], c[1])
	}
	// Output:
	// rank 0: 0 elements, 0 nodes
	// rank 1: 2 elements, 6 nodes
}

// Example_combineAndDeduplicate merges a mesh with a copy of itself and
// removes the co-located duplicates again.
func Example_combineAndDeduplicate() {
	ctx := context.Background()
	m := testutil.QuadGrid(2, 2, 1, 0)

	a, err := meshadapt.New(m, testutil.Self())
	if err != nil {
		log.Fatal(err)
	}
	if err := a.Prepare(); err != nil {
		log.Fatal(err)
	}
	if err := a.CombineMesh(ctx, m.Clone()); err != nil {
		log.Fatal(err)
	}
	fmt.Println("combined:", m.NumElements(), m.Dict(mesh.GeometryDict).Size())

	if err := a.RemoveDuplicateElementsAndNodes(ctx); err != nil {
		log.Fatal(err)
	}
	if err := a.Finish(); err != nil {
		log.Fatal(err)
	}
	fmt.Println("deduplicated:", m.NumElements(), m.Dict(mesh.GeometryDict).Size())
	// Output:
	// combined: 8 18
	// deduplicated: 4 9
}
