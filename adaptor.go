package meshadapt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hupe1980/meshadapt/internal/buffer"
	"github.com/hupe1980/meshadapt/mesh"
	"github.com/hupe1980/meshadapt/transport"
	"github.com/hupe1980/meshadapt/wire"
)

// Adaptor adapts the mesh partition held by one rank. Every rank of a
// transport builds its own Adaptor over its own partition and then issues the
// same sequence of operations.
//
// An Adaptor is not safe for concurrent use.
type Adaptor struct {
	m      *mesh.Mesh
	t      transport.Transport
	opts   options
	logger *Logger

	state State
	stale Stale
	bufs  *buffer.Set
}

// New returns an Adaptor in state Idle. A mesh in global connectivity mode is
// converted to local mode and all indexes are rebuilt.
func New(m *mesh.Mesh, t transport.Transport, optFns ...Option) (*Adaptor, error) {
	if m == nil || t == nil {
		return nil, fmt.Errorf("%w: nil mesh or transport", ErrInvalidState)
	}
	o := applyOptions(optFns)
	if o.hilbertDepth < 1 || o.hilbertDepth*m.Dim() > 64 {
		return nil, fmt.Errorf("%w: hilbert depth %d for dimension %d", ErrInvalidState, o.hilbertDepth, m.Dim())
	}
	a := &Adaptor{
		m:      m,
		t:      t,
		opts:   o,
		logger: o.logger.WithRank(t.Rank()),
	}
	if m.GlobalConnectivity() {
		a.state = StateConnectivityGlobal
		if err := a.localize(); err != nil {
			return nil, err
		}
		a.state = StateIdle
	}
	if err := a.refresh(); err != nil {
		return nil, err
	}
	return a, nil
}

// Mesh returns the adapted mesh.
func (a *Adaptor) Mesh() *mesh.Mesh { return a.m }

// State returns the lifecycle state.
func (a *Adaptor) State() State { return a.state }

// Stale returns the structures awaiting a rebuild or flush.
func (a *Adaptor) Stale() Stale { return a.stale }

// Prepare opens a buffer generation.
func (a *Adaptor) Prepare() error {
	if a.state != StateIdle {
		return fmt.Errorf("%w: Prepare in state %s", ErrInvalidState, a.state)
	}
	a.bufs = buffer.NewSet(a.m)
	a.state = StateBuffersOpen
	return nil
}

// Finish flushes staged changes, restores local connectivity, rebuilds every
// index and closes the buffer generation.
func (a *Adaptor) Finish() error {
	if a.state == StateIdle {
		return fmt.Errorf("%w: Finish without Prepare", ErrInvalidState)
	}
	if err := a.commit(); err != nil {
		a.logger.Error("finish failed", "error", err)
		return err
	}
	a.bufs = nil
	a.state = StateIdle
	a.stale = 0
	return nil
}

// AddElement stages the element described by rec, whose connectivity holds
// node global ids. It reports whether a row was added; a record whose global
// id is already live in the group is ignored.
func (a *Adaptor) AddElement(rec wire.PackedElement) (bool, error) {
	if err := a.requireOpen("AddElement"); err != nil {
		return false, err
	}
	if int(rec.Entities) < 0 || int(rec.Entities) >= a.m.NumEntities() {
		return false, outOfRange("entities", int(rec.Entities), a.m.NumEntities())
	}
	ent := a.m.Entities(rec.Entities)
	if len(rec.Connectivity) != len(ent.Spaces) {
		return false, &InvariantError{Entity: ent.Name, Index: rec.Index, Reason: "connectivity rows per space",
			Expected: len(ent.Spaces), Actual: len(rec.Connectivity)}
	}
	for sp, row := range rec.Connectivity {
		if w := ent.Spaces[sp].Connectivity.Width(); len(row) != w {
			return false, &InvariantError{Entity: ent.Name, Index: rec.Index, Reason: fmt.Sprintf("connectivity width of space %d", sp),
				Expected: w, Actual: len(row)}
		}
	}
	if err := a.checkRank(ent.Name, rec.Index, rec.Rank); err != nil {
		return false, err
	}
	if err := a.globalize(); err != nil {
		return false, err
	}
	_, added := a.bufs.AddElement(rec.Entities, rec.GlobalID, rec.Rank, rec.Connectivity)
	if added {
		a.stale |= PendingElementFlush
	}
	return added, nil
}

// RemoveElement stages the removal of element i of group e.
func (a *Adaptor) RemoveElement(e mesh.EntitiesIdx, i int) error {
	if err := a.requireOpen("RemoveElement"); err != nil {
		return err
	}
	if int(e) < 0 || int(e) >= a.m.NumEntities() {
		return outOfRange("entities", int(e), a.m.NumEntities())
	}
	if n := a.bufs.TotalElements(e); i < 0 || i >= n {
		return outOfRange(a.m.Entities(e).Name, i, n)
	}
	a.bufs.RemoveElement(e, i)
	a.stale |= PendingElementFlush
	return nil
}

// AddNode stages the node described by rec. It reports whether a row was
// added; a record whose global id is already live in the dictionary is ignored.
func (a *Adaptor) AddNode(rec wire.PackedNode) (bool, error) {
	if err := a.requireOpen("AddNode"); err != nil {
		return false, err
	}
	if int(rec.Dict) < 0 || int(rec.Dict) >= a.m.NumDicts() {
		return false, outOfRange("dictionaries", int(rec.Dict), a.m.NumDicts())
	}
	dict := a.m.Dict(rec.Dict)
	if len(rec.Values) != len(dict.Fields) {
		return false, &InvariantError{Entity: dict.Name, Index: rec.Index, Reason: "value rows per field",
			Expected: len(dict.Fields), Actual: len(rec.Values)}
	}
	for k, f := range dict.Fields {
		if err := a.m.Field(f).CheckRow(rec.Values[k]); err != nil {
			return false, &InvariantError{Entity: dict.Name, Index: rec.Index, Reason: "value row of field " + a.m.Field(f).Name, cause: err}
		}
	}
	if err := a.checkRank(dict.Name, rec.Index, rec.Rank); err != nil {
		return false, err
	}
	_, added := a.bufs.AddNode(rec.Dict, rec.GlobalID, rec.Rank, rec.Values)
	if added {
		a.stale |= PendingNodeFlush
	}
	return added, nil
}

// RemoveNode stages the removal of node i of dictionary d. Removing a node
// that a live element still references is an invariant violation.
func (a *Adaptor) RemoveNode(d mesh.DictIdx, i int) error {
	if err := a.requireOpen("RemoveNode"); err != nil {
		return err
	}
	if int(d) < 0 || int(d) >= a.m.NumDicts() {
		return outOfRange("dictionaries", int(d), a.m.NumDicts())
	}
	if n := a.bufs.TotalNodes(d); i < 0 || i >= n {
		return outOfRange(a.m.Dict(d).Name, i, n)
	}
	if ref, ok := a.nodeReferenced(d, i); ok {
		return &InvariantError{Entity: a.m.Dict(d).Name, Index: i, Reason: "node still referenced by " + ref.String()}
	}
	a.bufs.RemoveNode(d, i)
	a.stale |= PendingNodeFlush
	return nil
}

// nodeReferenced finds a live element referencing node i of d.
func (a *Adaptor) nodeReferenced(d mesh.DictIdx, i int) (mesh.ElemRef, bool) {
	if a.state == StateBuffersOpen && !a.stale.Any(StaleNodeElements) && i < a.m.Dict(d).Size() {
		for _, ref := range a.m.NodeElements(d, i) {
			if !a.bufs.IsElementRemoved(ref.Entities, ref.Index) {
				return ref, true
			}
		}
		return mesh.ElemRef{}, false
	}

	target := uint64(i)
	if a.state == StateConnectivityGlobal {
		target = a.bufs.NodeGlobalID(d, i)
	}
	for e := 0; e < a.m.NumEntities(); e++ {
		ei := mesh.EntitiesIdx(e)
		sp := a.m.SpaceFor(ei, d)
		if sp < 0 {
			continue
		}
		for k := 0; k < a.bufs.TotalElements(ei); k++ {
			if a.bufs.IsElementRemoved(ei, k) {
				continue
			}
			for _, v := range a.bufs.ElementConnectivity(ei, sp, k) {
				if v == target {
					return mesh.ElemRef{Entities: ei, Index: k}, true
				}
			}
		}
	}
	return mesh.ElemRef{}, false
}

func (a *Adaptor) requireOpen(op string) error {
	if a.state == StateIdle {
		return fmt.Errorf("%w: %s needs open buffers, call Prepare first", ErrInvalidState, op)
	}
	return nil
}

func (a *Adaptor) checkRank(entity string, index int, rank uint32) error {
	if int64(rank) >= int64(a.t.Size()) {
		return &InvariantError{Entity: entity, Index: index, Reason: "owner rank outside the world", Expected: a.t.Size() - 1, Actual: int(rank)}
	}
	return nil
}

// globalize switches element connectivity to node global ids. Authoritative
// node indices must still be those the connectivity was written against.
func (a *Adaptor) globalize() error {
	if a.state == StateConnectivityGlobal {
		return nil
	}
	if err := a.m.ConnectivityToGlobal(); err != nil {
		return &InvariantError{Entity: a.m.Name, Reason: "local connectivity", cause: err}
	}
	a.state = StateConnectivityGlobal
	return nil
}

// localize switches element connectivity back to local indices. Every
// referenced node must be present.
func (a *Adaptor) localize() error {
	if a.state != StateConnectivityGlobal {
		return nil
	}
	if err := a.m.ConnectivityToLocal(); err != nil {
		return &InvariantError{Entity: a.m.Name, Reason: "element references a missing node", cause: err}
	}
	a.state = StateBuffersOpen
	return nil
}

// commit flushes staged changes and leaves the adaptor with local
// connectivity, current indexes and a fresh buffer generation.
func (a *Adaptor) commit() error {
	if a.stale.Has(PendingNodeFlush) {
		// Node indices are about to shift under local connectivity.
		if err := a.globalize(); err != nil {
			return err
		}
	}
	if a.stale.Has(PendingElementFlush) {
		a.bufs.FlushElements()
		a.stale |= StaleGlbToLoc | StaleNodeElements
	}
	if a.stale.Has(PendingNodeFlush) {
		a.bufs.FlushNodes()
		a.stale |= StaleGlbToLoc | StaleNodeElements
	}
	a.stale &^= PendingElementFlush | PendingNodeFlush
	if err := a.localize(); err != nil {
		return err
	}
	return a.refresh()
}

// refresh rebuilds every index and the node to element connectivity.
// Connectivity must be local and nothing may be staged.
func (a *Adaptor) refresh() error {
	if err := a.m.RebuildNodeIndexes(); err != nil {
		return &InvariantError{Entity: a.m.Name, Reason: "node index", cause: err}
	}
	if err := a.m.RebuildElementIndexes(); err != nil {
		return &InvariantError{Entity: a.m.Name, Reason: "element index", cause: err}
	}
	if err := a.m.RebuildNodeElements(); err != nil {
		return &InvariantError{Entity: a.m.Name, Reason: "node-element connectivity", cause: err}
	}
	a.stale &^= StaleGlbToLoc | StaleNodeElements
	if a.state != StateIdle {
		a.bufs = buffer.NewSet(a.m)
	}
	return nil
}

// run executes one composite operation with timing, metrics and logging.
func (a *Adaptor) run(ctx context.Context, op string, fn func(logger *slog.Logger) error) error {
	start := time.Now()
	err := translateError(fn(a.logger.WithOperation(op).Logger))
	elapsed := time.Since(start)
	a.opts.metricsCollector.RecordOperation(op, elapsed, err)
	a.logger.LogOperation(ctx, op, elapsed, err)
	return err
}
