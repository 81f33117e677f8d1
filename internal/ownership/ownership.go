// Package ownership assigns each shared node the lowest rank that holds it and
// keeps ghost element copies pointing at their owner.
package ownership

import (
	"context"
	"fmt"

	"github.com/hupe1980/meshadapt/internal/conv"
	"github.com/hupe1980/meshadapt/mesh"
	"github.com/hupe1980/meshadapt/transport"
)

// Resolve rewrites the ranks of dictionary d so that every node is owned by
// the lowest rank holding its global id.
//
// Ranks broadcast their global ids in increasing rank order; a rank adopts the
// first broadcaster below itself that holds the id. The result depends only on
// which ranks hold which ids.
func Resolve(ctx context.Context, t transport.Transport, m *mesh.Mesh, d mesh.DictIdx) error {
	dict := m.Dict(d)
	self, err := conv.IntToUint32(t.Rank())
	if err != nil {
		return err
	}

	gids := dict.GlobalIDs.Data()
	loc := make(map[uint64]int, len(gids))
	for i, gid := range gids {
		loc[gid] = i
	}
	owner := make([]uint32, len(gids))
	for i := range owner {
		owner[i] = self
	}

	// The last rank has nobody above it to inform.
	for root := 0; root < t.Size()-1; root++ {
		ids, err := transport.BroadcastUint64s(ctx, t, gids, root)
		if err != nil {
			return fmt.Errorf("resolve %q: %w", dict.Name, err)
		}
		if t.Rank() <= root {
			continue
		}
		r := uint32(root)
		for _, gid := range ids {
			if i, ok := loc[gid]; ok && owner[i] == self {
				owner[i] = min(r, owner[i])
			}
		}
	}

	for i, r := range owner {
		dict.Ranks.SetAt(i, r)
	}
	return nil
}

// ResolveElements updates the recorded owner of element copies. Every rank
// publishes the global ids of the elements it owns; a copy owned elsewhere
// takes the lowest rank that claims it. Copies nobody claims are left as is.
func ResolveElements(ctx context.Context, t transport.Transport, m *mesh.Mesh) error {
	self, err := conv.IntToUint32(t.Rank())
	if err != nil {
		return err
	}
	for e := 0; e < m.NumEntities(); e++ {
		ent := m.Entities(mesh.EntitiesIdx(e))
		var owned []uint64
		for i := 0; i < ent.Size(); i++ {
			if ent.Ranks.At(i) == self {
				owned = append(owned, ent.GlobalIDs.At(i))
			}
		}
		all, err := transport.AllGatherUint64s(ctx, t, owned)
		if err != nil {
			return fmt.Errorf("resolve %q: %w", ent.Name, err)
		}
		claims := make(map[uint64]uint32)
		// Descending so the lowest claimant is written last.
		for r := len(all) - 1; r >= 0; r-- {
			for _, gid := range all[r] {
				claims[gid] = uint32(r)
			}
		}
		for i := 0; i < ent.Size(); i++ {
			if ent.Ranks.At(i) == self {
				continue
			}
			if r, ok := claims[ent.GlobalIDs.At(i)]; ok {
				ent.Ranks.SetAt(i, r)
			}
		}
	}
	return nil
}

// ResolveAll resolves every continuous dictionary. Nodes of a discontinuous
// dictionary belong to a single element and take that element's rank.
func ResolveAll(ctx context.Context, t transport.Transport, m *mesh.Mesh) error {
	for d := 0; d < m.NumDicts(); d++ {
		di := mesh.DictIdx(d)
		if m.Dict(di).Continuous {
			if err := Resolve(ctx, t, m, di); err != nil {
				return err
			}
			continue
		}
		if err := fromElements(m, di); err != nil {
			return err
		}
	}
	return nil
}

func fromElements(m *mesh.Mesh, d mesh.DictIdx) error {
	dict := m.Dict(d)
	var loc map[uint64]int
	if m.GlobalConnectivity() {
		loc = make(map[uint64]int, dict.Size())
		for i, gid := range dict.GlobalIDs.Data() {
			loc[gid] = i
		}
	}
	for e := 0; e < m.NumEntities(); e++ {
		ei := mesh.EntitiesIdx(e)
		sp := m.SpaceFor(ei, d)
		if sp < 0 {
			continue
		}
		ent := m.Entities(ei)
		conn := ent.Spaces[sp].Connectivity
		for i := 0; i < conn.Len(); i++ {
			for _, v := range conn.Row(i) {
				var n int
				var ok bool
				if loc != nil {
					n, ok = loc[v]
				} else {
					var err error
					n, err = conv.Uint64ToInt(v)
					ok = err == nil && n < dict.Size()
				}
				if !ok {
					return fmt.Errorf("%w: element %d of %q references node %d of %q",
						mesh.ErrNotFound, ent.GlobalIDs.At(i), ent.Name, v, dict.Name)
				}
				dict.Ranks.SetAt(n, ent.Ranks.At(i))
			}
		}
	}
	return nil
}
