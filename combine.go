package meshadapt

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hupe1980/meshadapt/internal/ownership"
	"github.com/hupe1980/meshadapt/mesh"
	"github.com/hupe1980/meshadapt/transport"
)

// CombineMesh merges other into the adapted mesh.
//
// Dictionaries, fields, element groups and spaces are matched by name and
// created when missing. Imported nodes and elements keep their owner rank
// and get their global id shifted past the largest id of the matching
// collection on any rank. Fields other lacks are zero-filled. Co-located
// duplicates are kept; run RemoveDuplicateElementsAndNodes afterwards.
func (a *Adaptor) CombineMesh(ctx context.Context, other *mesh.Mesh) error {
	return a.run(ctx, "combine_mesh", func(logger *slog.Logger) error {
		if err := a.requireOpen("CombineMesh"); err != nil {
			return err
		}
		if other == nil || other.Dim() != a.m.Dim() {
			dim := 0
			if other != nil {
				dim = other.Dim()
			}
			return &InvariantError{Entity: "mesh", Reason: "dimension of combined mesh", Expected: a.m.Dim(), Actual: dim}
		}
		if err := a.commit(); err != nil {
			return err
		}
		dicts, groups, err := a.unionStructure(other)
		if err != nil {
			return err
		}
		if err := a.refresh(); err != nil {
			return err
		}

		nodeOff, elemOff, err := a.idOffsets(ctx)
		if err != nil {
			return err
		}
		if err := a.globalize(); err != nil {
			return err
		}

		added := 0
		for od := 0; od < other.NumDicts(); od++ {
			src := other.Dict(mesh.DictIdx(od))
			d := dicts[od]
			fields := a.m.Dict(d).Fields
			for i := 0; i < src.Size(); i++ {
				values := make([]mesh.Row, len(fields))
				for k, f := range fields {
					if of, ok := other.FieldByName(mesh.DictIdx(od), a.m.Field(f).Name); ok {
						values[k] = other.Field(of).RowAt(i)
					} else {
						values[k] = a.m.Field(f).ZeroRow()
					}
				}
				if _, ok := a.bufs.AddNode(d, src.GlobalIDs.At(i)+nodeOff[d], src.Ranks.At(i), values); ok {
					added++
				}
			}
		}
		if added > 0 {
			a.stale |= PendingNodeFlush
		}
		logger.Debug("nodes combined", "count", added)

		added = 0
		for oe := 0; oe < other.NumEntities(); oe++ {
			src := other.Entities(mesh.EntitiesIdx(oe))
			e := groups[oe]
			ent := a.m.Entities(e)
			// Space of other feeding each space of the target group.
			feed := make([]int, len(ent.Spaces))
			for sp, s := range ent.Spaces {
				feed[sp] = -1
				for osp, from := range src.Spaces {
					if dicts[from.Dict] == s.Dict {
						feed[sp] = osp
					}
				}
				if feed[sp] < 0 && src.Size() > 0 {
					return &InvariantError{Entity: src.Name, Reason: fmt.Sprintf("no connectivity for dictionary %q", a.m.Dict(s.Dict).Name)}
				}
			}
			for i := 0; i < src.Size(); i++ {
				conn := make([][]uint64, len(ent.Spaces))
				for sp, s := range ent.Spaces {
					from := src.Spaces[feed[sp]]
					row := from.Connectivity.Row(i)
					out := make([]uint64, len(row))
					for k, v := range row {
						gid := v
						if !other.GlobalConnectivity() {
							gid = other.Dict(from.Dict).GlobalIDs.At(int(v))
						}
						out[k] = gid + nodeOff[s.Dict]
					}
					conn[sp] = out
				}
				if _, ok := a.bufs.AddElement(e, src.GlobalIDs.At(i)+elemOff[e], src.Ranks.At(i), conn); ok {
					added++
				}
			}
		}
		if added > 0 {
			a.stale |= PendingElementFlush
		}
		logger.Debug("elements combined", "count", added)

		if err := a.commit(); err != nil {
			return err
		}
		return ownership.ResolveAll(ctx, a.t, a.m)
	})
}

// unionStructure creates the collections of other missing from the mesh and
// maps each collection of other to its counterpart.
func (a *Adaptor) unionStructure(other *mesh.Mesh) ([]mesh.DictIdx, []mesh.EntitiesIdx, error) {
	dicts := make([]mesh.DictIdx, other.NumDicts())
	for od := range dicts {
		src := other.Dict(mesh.DictIdx(od))
		d, ok := a.m.DictByName(src.Name)
		if !ok {
			var err error
			if d, err = a.m.AddDictionary(src.Name, src.Continuous); err != nil {
				return nil, nil, err
			}
		} else if a.m.Dict(d).Continuous != src.Continuous {
			return nil, nil, &InvariantError{Entity: src.Name, Reason: "continuity differs between combined dictionaries"}
		}
		dicts[od] = d
		for _, of := range src.Fields {
			f := other.Field(of)
			mf, ok := a.m.FieldByName(d, f.Name)
			if !ok {
				if _, err := a.m.AddField(f.Name, d, f.Kind, f.Width()); err != nil {
					return nil, nil, err
				}
				continue
			}
			have := a.m.Field(mf)
			if have.Kind != f.Kind || have.Width() != f.Width() {
				return nil, nil, &InvariantError{Entity: f.Name, Reason: fmt.Sprintf("field layout %s differs from %s", f.Kind, have.Kind),
					Expected: have.Width(), Actual: f.Width()}
			}
		}
	}

	groups := make([]mesh.EntitiesIdx, other.NumEntities())
	for oe := range groups {
		src := other.Entities(mesh.EntitiesIdx(oe))
		e, ok := a.m.EntitiesByName(src.Name)
		if !ok {
			var err error
			if e, err = a.m.AddEntities(src.Name, src.Shape); err != nil {
				return nil, nil, err
			}
		} else if a.m.Entities(e).Shape.Name != src.Shape.Name {
			return nil, nil, &InvariantError{Entity: src.Name, Reason: fmt.Sprintf("shape %s differs from %s", src.Shape.Name, a.m.Entities(e).Shape.Name)}
		}
		groups[oe] = e
		for _, s := range src.Spaces {
			d := dicts[s.Dict]
			if a.m.SpaceFor(e, d) >= 0 {
				continue
			}
			if a.m.Entities(e).Size() > 0 {
				return nil, nil, fmt.Errorf("%w: binding populated entities %q to dictionary %q", ErrNotImplemented, src.Name, a.m.Dict(d).Name)
			}
			if _, err := a.m.AddSpace(e, d, s.Connectivity.Width()); err != nil {
				return nil, nil, err
			}
		}
	}
	return dicts, groups, nil
}

// idOffsets returns, per dictionary and element group, one past the largest
// global id held by any rank.
func (a *Adaptor) idOffsets(ctx context.Context) ([]uint64, []uint64, error) {
	nd, ne := a.m.NumDicts(), a.m.NumEntities()
	next := make([]uint64, nd+ne)
	for d := 0; d < nd; d++ {
		if v, ok := a.m.MaxNodeGlobalID(mesh.DictIdx(d)); ok {
			next[d] = v + 1
		}
	}
	for e := 0; e < ne; e++ {
		if v, ok := a.m.MaxElementGlobalID(mesh.EntitiesIdx(e)); ok {
			next[nd+e] = v + 1
		}
	}
	next, err := transport.AllReduceUint64s(ctx, a.t, transport.OpMax, next)
	if err != nil {
		return nil, nil, err
	}
	return next[:nd], next[nd:], nil
}
