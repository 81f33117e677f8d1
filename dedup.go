package meshadapt

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hupe1980/meshadapt/hilbert"
	"github.com/hupe1980/meshadapt/internal/dedup"
	"github.com/hupe1980/meshadapt/mesh"
)

// RemoveDuplicateElementsAndNodes removes co-located elements and nodes,
// keeping the first one per Hilbert key on each rank. Connectivity of
// surviving elements is redirected to the kept nodes.
//
// When a removed duplicate carried another global id than the kept entity
// and some rank still holds that id, global ids disagree across ranks: the
// adaptor then renumbers every continuous dictionary and element group with
// WithAutoRenumber, and returns ErrRenumberingRequired otherwise.
func (a *Adaptor) RemoveDuplicateElementsAndNodes(ctx context.Context) error {
	return a.run(ctx, "remove_duplicates", func(logger *slog.Logger) error {
		if err := a.requireOpen("RemoveDuplicateElementsAndNodes"); err != nil {
			return err
		}
		return a.deduplicate(ctx, logger)
	})
}

// AssignPartitionAgnosticGlobalIndices replaces the global ids of dictionary
// d by ids derived from node locations, so that every rank holding a node
// agrees on its id and owner regardless of how the mesh is partitioned.
// Discontinuous dictionaries are not supported.
func (a *Adaptor) AssignPartitionAgnosticGlobalIndices(ctx context.Context, d mesh.DictIdx) error {
	return a.run(ctx, "renumber_nodes", func(logger *slog.Logger) error {
		if err := a.requireOpen("AssignPartitionAgnosticGlobalIndices"); err != nil {
			return err
		}
		if int(d) < 0 || int(d) >= a.m.NumDicts() {
			return outOfRange("dictionaries", int(d), a.m.NumDicts())
		}
		if !a.m.Dict(d).Continuous {
			return fmt.Errorf("%w: renumbering discontinuous dictionary %q", ErrNotImplemented, a.m.Dict(d).Name)
		}
		if err := a.commit(); err != nil {
			return err
		}
		h, err := a.hasher(ctx)
		if err != nil {
			return err
		}
		if err := a.globalize(); err != nil {
			return err
		}
		if err := dedup.RenumberNodes(ctx, a.t, a.m, d, h, logger); err != nil {
			return err
		}
		a.opts.metricsCollector.RecordRenumber("nodes", a.m.Dict(d).Size())
		a.stale |= StaleGlbToLoc | StaleNodeElements
		return a.commit()
	})
}

// AssignPartitionAgnosticElementIndices replaces element global ids by ids
// derived from element centroids, per element group. Owner ranks are kept.
func (a *Adaptor) AssignPartitionAgnosticElementIndices(ctx context.Context) error {
	return a.run(ctx, "renumber_elements", func(logger *slog.Logger) error {
		if err := a.requireOpen("AssignPartitionAgnosticElementIndices"); err != nil {
			return err
		}
		if err := a.commit(); err != nil {
			return err
		}
		h, err := a.hasher(ctx)
		if err != nil {
			return err
		}
		if err := dedup.RenumberElements(ctx, a.t, a.m, h, logger); err != nil {
			return err
		}
		a.opts.metricsCollector.RecordRenumber("elements", a.m.NumElements())
		a.stale |= StaleGlbToLoc
		return a.refresh()
	})
}

func (a *Adaptor) hasher(ctx context.Context) (*hilbert.Hasher, error) {
	h, err := dedup.NewHasher(ctx, a.t, a.m, a.opts.hilbertDepth)
	if err != nil {
		return nil, err
	}
	if h != nil {
		a.logger.DebugContext(ctx, "hasher ready", "depth", h.Depth(), "relative_tolerance", h.RelativeTolerance())
	}
	return h, nil
}

// deduplicate runs one duplicate removal pass and handles a renumbering
// conflict according to the options.
func (a *Adaptor) deduplicate(ctx context.Context, logger *slog.Logger) error {
	if err := a.commit(); err != nil {
		return err
	}
	h, err := a.hasher(ctx)
	if err != nil {
		return err
	}
	if err := a.globalize(); err != nil {
		return err
	}

	res, err := dedup.RemoveDuplicateElements(ctx, a.t, a.bufs, h, logger)
	if err != nil {
		return err
	}
	renumber := res.Renumber
	elements, nodes := res.Removed, 0
	for d := 0; d < a.m.NumDicts(); d++ {
		res, err := dedup.RemoveDuplicateNodes(ctx, a.t, a.bufs, mesh.DictIdx(d), h, logger)
		if err != nil {
			return err
		}
		nodes += res.Removed
		renumber = renumber || res.Renumber
	}
	if elements > 0 {
		a.stale |= PendingElementFlush
	}
	if nodes > 0 {
		a.stale |= PendingNodeFlush
	}
	a.opts.metricsCollector.RecordDuplicates(elements, nodes)
	logger.Info("duplicates removed", "elements", elements, "nodes", nodes, "renumber", renumber)

	if err := a.commit(); err != nil {
		return err
	}
	if !renumber {
		return nil
	}
	if !a.opts.autoRenumber {
		return ErrRenumberingRequired
	}
	return a.renumberAll(ctx, h, logger)
}

// renumberAll assigns location-derived ids to every continuous dictionary
// carrying coordinates and to every element group. Nothing may be staged.
func (a *Adaptor) renumberAll(ctx context.Context, h *hilbert.Hasher, logger *slog.Logger) error {
	if err := a.globalize(); err != nil {
		return err
	}
	for d := 0; d < a.m.NumDicts(); d++ {
		dict := a.m.Dict(mesh.DictIdx(d))
		if _, ok := a.m.FieldByName(mesh.DictIdx(d), dedup.CoordinatesField); !ok || !dict.Continuous {
			logger.Debug("dictionary keeps its ids", "dictionary", dict.Name)
			continue
		}
		if err := dedup.RenumberNodes(ctx, a.t, a.m, mesh.DictIdx(d), h, logger); err != nil {
			return err
		}
		a.opts.metricsCollector.RecordRenumber("nodes", dict.Size())
	}
	a.stale |= StaleGlbToLoc | StaleNodeElements
	if err := a.commit(); err != nil {
		return err
	}
	if err := dedup.RenumberElements(ctx, a.t, a.m, h, logger); err != nil {
		return err
	}
	a.opts.metricsCollector.RecordRenumber("elements", a.m.NumElements())
	return a.refresh()
}
