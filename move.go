package meshadapt

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hupe1980/meshadapt/internal/dedup"
	"github.com/hupe1980/meshadapt/internal/exchange"
	"github.com/hupe1980/meshadapt/internal/idset"
	"github.com/hupe1980/meshadapt/internal/ownership"
	"github.com/hupe1980/meshadapt/mesh"
	"github.com/hupe1980/meshadapt/transport"
)

// Exports lists, per destination rank and element group, the local indices
// of the elements to send.
type Exports [][][]int

// NewExports returns empty export sets for size ranks and groups element groups.
func NewExports(size, groups int) Exports {
	x := make(Exports, size)
	for r := range x {
		x[r] = make([][]int, groups)
	}
	return x
}

// Add schedules element i of group e for rank.
func (x Exports) Add(rank int, e mesh.EntitiesIdx, i int) {
	x[rank][e] = append(x[rank][e], i)
}

// MoveElements relocates the exported elements to their destination ranks.
//
// Exported elements take the destination as owner rank and are removed
// locally; the nodes they reference travel with them. A destination already
// holding a ghost copy takes over ownership of it, and ghost copies elsewhere
// are pointed at the new owner. Afterwards nodes no
// local element references are removed, node owners are resolved and, unless
// disabled, the ranks check collectively for co-located elements with
// different global ids.
//
// Indices refer to the flushed mesh; staged changes must be committed with
// Finish before. Entries for the calling rank itself are ignored.
func (a *Adaptor) MoveElements(ctx context.Context, exports Exports) error {
	return a.run(ctx, "move_elements", func(logger *slog.Logger) error {
		if err := a.requireOpen("MoveElements"); err != nil {
			return err
		}
		if a.stale.Any(PendingElementFlush | PendingNodeFlush) {
			return fmt.Errorf("%w: MoveElements with staged changes, call Finish first", ErrInvalidState)
		}
		elems, err := a.exportSets(exports)
		if err != nil {
			return err
		}

		for r, groups := range elems {
			rank := uint32(r)
			for e, set := range groups {
				ent := a.m.Entities(mesh.EntitiesIdx(e))
				for i := range set.All() {
					ent.Ranks.SetAt(i, rank)
					a.bufs.RemoveElement(mesh.EntitiesIdx(e), i)
				}
			}
		}
		a.stale |= PendingElementFlush

		if err := a.globalize(); err != nil {
			return err
		}
		if err := a.exchange(ctx, elems, logger); err != nil {
			return err
		}

		a.bufs.FlushElements()
		a.stale = (a.stale &^ PendingElementFlush) | StaleGlbToLoc | StaleNodeElements
		removed := a.removeUnreferencedNodes()
		logger.Debug("unreferenced nodes removed", "count", removed)
		if err := a.commit(); err != nil {
			return err
		}

		if err := ownership.ResolveElements(ctx, a.t, a.m); err != nil {
			return err
		}
		if err := ownership.ResolveAll(ctx, a.t, a.m); err != nil {
			return err
		}
		return a.checkConflicts(ctx, logger)
	})
}

// exportSets validates x and converts it to bitmaps, dropping the calling rank.
func (a *Adaptor) exportSets(x Exports) (exchange.Exports, error) {
	if len(x) != a.t.Size() {
		return nil, &InvariantError{Entity: "exports", Reason: "destination ranks", Expected: a.t.Size(), Actual: len(x)}
	}
	out := exchange.NewExports(a.t.Size(), a.m.NumEntities())
	for r, groups := range x {
		if len(groups) != a.m.NumEntities() {
			return nil, &InvariantError{Entity: "exports", Index: r, Reason: "element groups", Expected: a.m.NumEntities(), Actual: len(groups)}
		}
		if r == a.t.Rank() {
			continue
		}
		for e, idx := range groups {
			ent := a.m.Entities(mesh.EntitiesIdx(e))
			for _, i := range idx {
				if i < 0 || i >= ent.Size() {
					return nil, outOfRange(ent.Name, i, ent.Size())
				}
				out.Add(r, e, i)
			}
		}
	}
	return out, nil
}

// exchange sends the exported elements, then the nodes they reference.
// Connectivity must be global and node indexes current.
func (a *Adaptor) exchange(ctx context.Context, elems exchange.Exports, logger *slog.Logger) error {
	imported, st, err := exchange.SendElements(ctx, a.t, a.bufs, elems, logger)
	if err != nil {
		return err
	}
	a.recordExchange(ctx, "elements", st)
	if st.Added > 0 {
		a.stale |= PendingElementFlush
	}

	nodes, err := exchange.NodeClosure(a.m, elems)
	if err != nil {
		return err
	}
	_, st, err = exchange.SendNodes(ctx, a.t, a.bufs, nodes, logger)
	if err != nil {
		return err
	}
	a.recordExchange(ctx, "nodes", st)
	if st.Added > 0 {
		a.stale |= PendingNodeFlush
	}
	logger.Debug("elements imported", "count", imported.Len())
	return nil
}

func (a *Adaptor) recordExchange(ctx context.Context, kind string, st exchange.Stats) {
	a.opts.metricsCollector.RecordExchange(kind, st.Sent, st.Received, st.Bytes)
	a.logger.LogExchange(ctx, kind, st.Sent, st.Received, st.Added, st.Bytes)
}

// removeUnreferencedNodes stages the removal of every node of a dictionary
// bound to some element space that no element references. Elements must be
// flushed and connectivity global.
func (a *Adaptor) removeUnreferencedNodes() int {
	removed := 0
	for d := 0; d < a.m.NumDicts(); d++ {
		di := mesh.DictIdx(d)
		bound := false
		referenced := idset.Get()
		for e := 0; e < a.m.NumEntities(); e++ {
			ent := a.m.Entities(mesh.EntitiesIdx(e))
			sp := a.m.SpaceFor(mesh.EntitiesIdx(e), di)
			if sp < 0 {
				continue
			}
			bound = true
			for _, gid := range ent.Spaces[sp].Connectivity.Data() {
				if i, ok := a.bufs.HasNode(di, gid); ok {
					referenced.Add(i)
				}
			}
		}
		if bound {
			orphans := idset.Get()
			for i := 0; i < a.bufs.TotalNodes(di); i++ {
				if !a.bufs.IsNodeRemoved(di, i) {
					orphans.Add(i)
				}
			}
			orphans.AndNot(referenced)
			for i := range orphans.All() {
				a.bufs.RemoveNode(di, i)
				removed++
			}
			idset.Put(orphans)
		}
		idset.Put(referenced)
	}
	if removed > 0 {
		a.stale |= PendingNodeFlush
	}
	return removed
}

// checkConflicts reports whether any rank holds two elements with the same
// centroid key but different global ids, and resolves or rejects that state.
func (a *Adaptor) checkConflicts(ctx context.Context, logger *slog.Logger) error {
	if !a.opts.conflictCheck {
		return nil
	}
	h, err := dedup.NewHasher(ctx, a.t, a.m, a.opts.hilbertDepth)
	if err != nil {
		return err
	}
	conflict := false
	if h != nil {
	groups:
		for e := 0; e < a.m.NumEntities(); e++ {
			ei := mesh.EntitiesIdx(e)
			ent := a.m.Entities(ei)
			seen := make(map[uint64]uint64, ent.Size())
			for i := 0; i < ent.Size(); i++ {
				c, err := a.m.ElementCentroid(ei, i)
				if err != nil {
					return err
				}
				key, gid := h.Key(c), ent.GlobalIDs.At(i)
				if other, ok := seen[key]; ok && other != gid {
					logger.Warn("co-located elements with different global ids", "entities", ent.Name, "gid", gid, "other", other)
					conflict = true
					break groups
				}
				seen[key] = gid
			}
		}
	}
	conflict, err = transport.AllReduceBool(ctx, a.t, conflict)
	if err != nil || !conflict {
		return err
	}
	if !a.opts.autoRenumber {
		return ErrRenumberingRequired
	}
	return a.deduplicate(ctx, logger)
}
