package meshadapt

import (
	"context"
	"log/slog"
	"math"
	"slices"

	"github.com/hupe1980/meshadapt/internal/exchange"
	"github.com/hupe1980/meshadapt/internal/idset"
	"github.com/hupe1980/meshadapt/internal/ownership"
	"github.com/hupe1980/meshadapt/mesh"
	"github.com/hupe1980/meshadapt/transport"
)

// maxFaceNodes bounds the vertex count of a face of the built-in shapes.
const maxFaceNodes = 4

type faceKey [maxFaceNodes]uint64

// GrowOverlap adds one layer of ghost elements along partition boundaries.
//
// Each rank gathers the boundary nodes of every other rank and sends the
// local elements touching any of them, together with their nodes. Nothing is
// removed. Node owners are resolved afterwards.
func (a *Adaptor) GrowOverlap(ctx context.Context) error {
	return a.run(ctx, "grow_overlap", func(logger *slog.Logger) error {
		if err := a.requireOpen("GrowOverlap"); err != nil {
			return err
		}
		if err := a.commit(); err != nil {
			return err
		}

		boundary, err := a.boundaryNodes()
		if err != nil {
			return err
		}
		all, err := transport.AllGatherUint64s(ctx, a.t, boundary)
		if err != nil {
			return err
		}

		elems := exchange.NewExports(a.t.Size(), a.m.NumEntities())
		for r, gids := range all {
			if r == a.t.Rank() {
				continue
			}
			for _, gid := range gids {
				n, ok := a.m.LookupNode(mesh.GeometryDict, gid)
				if !ok {
					continue
				}
				for _, ref := range a.m.NodeElements(mesh.GeometryDict, n) {
					elems.Add(r, int(ref.Entities), ref.Index)
				}
			}
		}
		logger.Debug("overlap exports", "boundary", len(boundary), "elements", elems.Len())

		if err := a.globalize(); err != nil {
			return err
		}
		if err := a.exchange(ctx, elems, logger); err != nil {
			return err
		}
		if err := a.commit(); err != nil {
			return err
		}
		if err := ownership.ResolveAll(ctx, a.t, a.m); err != nil {
			return err
		}
		return a.checkConflicts(ctx, logger)
	})
}

// boundaryNodes returns the sorted global ids of the geometry nodes lying on
// a face that only one local element has. Groups whose shape dimension is
// below the mesh dimension are skipped. Connectivity must be local.
func (a *Adaptor) boundaryNodes() ([]uint64, error) {
	geo := a.m.Dict(mesh.GeometryDict)
	counts := map[faceKey]int{}
	faces := map[faceKey][]int{}

	for e := 0; e < a.m.NumEntities(); e++ {
		ent := a.m.Entities(mesh.EntitiesIdx(e))
		if ent.Shape.Dim != a.m.Dim() {
			continue
		}
		conn := ent.Spaces[0].Connectivity
		for i := 0; i < ent.Size(); i++ {
			row := conn.Row(i)
			for _, face := range ent.Shape.Faces {
				if len(face) > maxFaceNodes {
					return nil, &InvariantError{Entity: ent.Name, Index: i, Reason: "face vertex count", Expected: maxFaceNodes, Actual: len(face)}
				}
				key := faceKey{math.MaxUint64, math.MaxUint64, math.MaxUint64, math.MaxUint64}
				local := make([]int, len(face))
				for k, v := range face {
					n := int(row[v])
					local[k] = n
					key[k] = geo.GlobalIDs.At(n)
				}
				slices.Sort(key[:len(face)])
				counts[key]++
				faces[key] = local
			}
		}
	}

	nodes := idset.Get()
	defer idset.Put(nodes)
	for key, c := range counts {
		if c == 1 {
			for _, n := range faces[key] {
				nodes.Add(n)
			}
		}
	}
	out := make([]uint64, 0, nodes.Len())
	for n := range nodes.All() {
		out = append(out, geo.GlobalIDs.At(n))
	}
	slices.Sort(out)
	return out, nil
}
