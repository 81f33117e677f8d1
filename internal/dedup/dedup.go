package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hupe1980/meshadapt/hilbert"
	"github.com/hupe1980/meshadapt/internal/buffer"
	"github.com/hupe1980/meshadapt/mesh"
	"github.com/hupe1980/meshadapt/transport"
)

var (
	// ErrPendingRows is returned when the buffers hold unflushed additions.
	ErrPendingRows = errors.New("dedup: buffers hold unflushed additions")

	// ErrDiscontinuous is returned when renumbering a discontinuous dictionary.
	ErrDiscontinuous = errors.New("dedup: discontinuous dictionary")

	// ErrKeyCollision is returned when distinct entities of one rank share a key.
	ErrKeyCollision = errors.New("dedup: distinct entities share a hilbert key")
)

// CoordinatesField is the field name node keys are computed from.
const CoordinatesField = "coordinates"

// Result reports one duplicate removal pass.
type Result struct {
	Removed int
	// Renumber is true on every rank when global ids disagree across ranks.
	Renumber bool
}

// NewHasher builds a hasher over the global bounding box of m. It returns nil
// when no rank holds a node.
func NewHasher(ctx context.Context, t transport.Transport, m *mesh.Mesh, depth int) (*hilbert.Hasher, error) {
	box, err := m.BoundingBox().MakeGlobal(ctx, t)
	if err != nil {
		return nil, err
	}
	if box.IsEmpty() {
		return nil, nil
	}
	return hilbert.New(box, depth)
}

// RemoveDuplicateElements removes, per element group, every element whose
// centroid key was already seen on this rank. Connectivity must be global or
// local with current node indexes for ElementCentroid.
func RemoveDuplicateElements(ctx context.Context, t transport.Transport, bufs *buffer.Set, h *hilbert.Hasher, logger *slog.Logger) (Result, error) {
	m := bufs.Mesh()
	var res Result
	var dropped []uint64 // removed ids whose kept twin has another id
	kh := newKeyer(ctx, h, logger)

	for e := 0; e < m.NumEntities(); e++ {
		ei := mesh.EntitiesIdx(e)
		ent := m.Entities(ei)
		if bufs.TotalElements(ei) != ent.Size() {
			return res, fmt.Errorf("%w: entities %q", ErrPendingRows, ent.Name)
		}
		if h == nil {
			continue
		}
		seen := make(map[uint64]int, ent.Size())
		for i := 0; i < ent.Size(); i++ {
			if bufs.IsElementRemoved(ei, i) {
				continue
			}
			c, err := m.ElementCentroid(ei, i)
			if err != nil {
				return res, err
			}
			key := kh.key(c)
			kept, ok := seen[key]
			if !ok {
				seen[key] = i
				continue
			}
			bufs.RemoveElement(ei, i)
			res.Removed++
			if gid := ent.GlobalIDs.At(i); gid != ent.GlobalIDs.At(kept) {
				dropped = append(dropped, gid)
			}
		}
	}

	conflict, err := heldElsewhere(ctx, t, dropped, kh.err, func(gid uint64) bool {
		for e := 0; e < m.NumEntities(); e++ {
			if _, ok := bufs.HasElement(mesh.EntitiesIdx(e), gid); ok {
				return true
			}
		}
		return false
	})
	if err != nil {
		return res, err
	}
	res.Renumber = conflict
	logger.Debug("duplicate elements removed", "removed", res.Removed, "renumber", res.Renumber)
	return res, nil
}

// RemoveDuplicateNodes removes every node of dictionary d whose coordinates
// key was already seen on this rank, and points element connectivity at the
// kept node. Connectivity must be global. Dictionaries without a coordinates
// field are left alone.
func RemoveDuplicateNodes(ctx context.Context, t transport.Transport, bufs *buffer.Set, d mesh.DictIdx, h *hilbert.Hasher, logger *slog.Logger) (Result, error) {
	m := bufs.Mesh()
	var res Result
	if !m.GlobalConnectivity() {
		return res, fmt.Errorf("%w: node deduplication rewrites global ids", mesh.ErrConnectivityMode)
	}
	dict := m.Dict(d)
	if bufs.TotalNodes(d) != dict.Size() {
		return res, fmt.Errorf("%w: dictionary %q", ErrPendingRows, dict.Name)
	}

	var dropped []uint64
	kh := newKeyer(ctx, h, logger)
	redirect := map[uint64]uint64{}
	if f, ok := m.FieldByName(d, CoordinatesField); ok && h != nil && m.Field(f).Kind == mesh.KindFloat64 {
		coords := m.Field(f).F
		seen := make(map[uint64]int, dict.Size())
		for i := 0; i < dict.Size(); i++ {
			if bufs.IsNodeRemoved(d, i) {
				continue
			}
			key := kh.key(coords.Row(i))
			kept, ok := seen[key]
			if !ok {
				seen[key] = i
				continue
			}
			bufs.RemoveNode(d, i)
			res.Removed++
			gid, keptGID := dict.GlobalIDs.At(i), dict.GlobalIDs.At(kept)
			if gid != keptGID {
				redirect[gid] = keptGID
				dropped = append(dropped, gid)
			}
		}
	}

	if len(redirect) > 0 {
		for e := 0; e < m.NumEntities(); e++ {
			ei := mesh.EntitiesIdx(e)
			sp := m.SpaceFor(ei, d)
			if sp < 0 {
				continue
			}
			for i := 0; i < bufs.TotalElements(ei); i++ {
				row := bufs.ElementConnectivity(ei, sp, i)
				for k, gid := range row {
					if to, ok := redirect[gid]; ok {
						row[k] = to
					}
				}
			}
		}
	}

	conflict, err := heldElsewhere(ctx, t, dropped, kh.err, func(gid uint64) bool {
		_, ok := bufs.HasNode(d, gid)
		return ok
	})
	if err != nil {
		return res, err
	}
	res.Renumber = conflict
	logger.Debug("duplicate nodes removed", "dictionary", dict.Name, "removed", res.Removed, "renumber", res.Renumber)
	return res, nil
}

// heldElsewhere gathers the dropped ids of every rank and reports, on every
// rank, whether any rank still holds an id another rank dropped. A keyErr on
// any rank fails the pass everywhere.
func heldElsewhere(ctx context.Context, t transport.Transport, dropped []uint64, keyErr error, live func(uint64) bool) (bool, error) {
	all, err := transport.AllGatherUint64s(ctx, t, dropped)
	if err != nil {
		return false, err
	}
	var conflict, failed uint64
	if keyErr != nil {
		failed = 1
	}
	for r, ids := range all {
		if r == t.Rank() {
			continue
		}
		for _, gid := range ids {
			if live(gid) {
				conflict = 1
				break
			}
		}
	}
	out, err := transport.AllReduceUint64s(ctx, t, transport.OpMax, []uint64{conflict, failed})
	if err != nil {
		return false, err
	}
	switch {
	case keyErr != nil:
		return false, keyErr
	case out[1] == 1:
		return false, remote(hilbert.ErrUnresolved)
	}
	return out[0] == 1, nil
}
