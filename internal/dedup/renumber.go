package dedup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hupe1980/meshadapt/hilbert"
	"github.com/hupe1980/meshadapt/internal/conv"
	"github.com/hupe1980/meshadapt/mesh"
	"github.com/hupe1980/meshadapt/transport"
)

// RenumberNodes gives every node of dictionary d a new global id. Ranks
// holding the same location agree on the id and owner: the lowest such rank
// wins with its start offset plus local index. Element connectivity is
// rewritten when it holds global ids.
func RenumberNodes(ctx context.Context, t transport.Transport, m *mesh.Mesh, d mesh.DictIdx, h *hilbert.Hasher, logger *slog.Logger) error {
	dict := m.Dict(d)
	if !dict.Continuous {
		return fmt.Errorf("%w: %q", ErrDiscontinuous, dict.Name)
	}
	var keys []uint64
	var keyErr error
	if h != nil && dict.Size() > 0 {
		f, ok := m.FieldByName(d, CoordinatesField)
		if !ok {
			return fmt.Errorf("%w: dictionary %q has no %s field", mesh.ErrNotFound, dict.Name, CoordinatesField)
		}
		coords := m.Field(f).F
		kh := newKeyer(ctx, h, logger)
		keys = make([]uint64, dict.Size())
		for i := range keys {
			keys[i] = kh.key(coords.Row(i))
		}
		keyErr = kh.err
	}

	ids, owners, err := claim(ctx, t, keys, keyErr)
	if err != nil {
		return fmt.Errorf("renumber %q: %w", dict.Name, err)
	}

	remap := make(map[uint64]uint64, len(ids))
	for i, id := range ids {
		remap[dict.GlobalIDs.At(i)] = id
		dict.GlobalIDs.SetAt(i, id)
		dict.Ranks.SetAt(i, owners[i])
	}
	if m.GlobalConnectivity() {
		for e := 0; e < m.NumEntities(); e++ {
			sp := m.SpaceFor(mesh.EntitiesIdx(e), d)
			if sp < 0 {
				continue
			}
			data := m.Entities(mesh.EntitiesIdx(e)).Spaces[sp].Connectivity.Data()
			for k, gid := range data {
				if id, ok := remap[gid]; ok {
					data[k] = id
				}
			}
		}
	}
	logger.Debug("nodes renumbered", "dictionary", dict.Name, "count", len(ids))
	return nil
}

// RenumberElements gives every element a new global id, per group, by the
// same rule as RenumberNodes applied to element centroids. Owner ranks are kept.
func RenumberElements(ctx context.Context, t transport.Transport, m *mesh.Mesh, h *hilbert.Hasher, logger *slog.Logger) error {
	for e := 0; e < m.NumEntities(); e++ {
		ei := mesh.EntitiesIdx(e)
		ent := m.Entities(ei)
		var keys []uint64
		var keyErr error
		if h != nil {
			kh := newKeyer(ctx, h, logger)
			keys = make([]uint64, ent.Size())
			for i := range keys {
				c, err := m.ElementCentroid(ei, i)
				if err != nil {
					return err
				}
				keys[i] = kh.key(c)
			}
			keyErr = kh.err
		}
		ids, _, err := claim(ctx, t, keys, keyErr)
		if err != nil {
			return fmt.Errorf("renumber %q: %w", ent.Name, err)
		}
		for i, id := range ids {
			ent.GlobalIDs.SetAt(i, id)
		}
		logger.Debug("elements renumbered", "entities", ent.Name, "count", len(ids))
	}
	return nil
}

// claim assigns an id and owner to every local key. Each rank proposes its
// start offset plus local index; keys then circulate around the ring and the
// proposal of the lowest rank holding a key wins. A keyErr on any rank fails
// the claim everywhere.
func claim(ctx context.Context, t transport.Transport, keys []uint64, keyErr error) ([]uint64, []uint32, error) {
	localErr := keyErr
	var collided, unresolved uint64
	if keyErr != nil {
		unresolved = 1
	}
	loc := make(map[uint64]int, len(keys))
	for i, k := range keys {
		if prev, ok := loc[k]; ok {
			if localErr == nil {
				localErr = fmt.Errorf("%w: %d and %d map to %d", ErrKeyCollision, prev, i, k)
			}
			collided = 1
			break
		}
		loc[k] = i
	}
	flags, err := transport.AllReduceUint64s(ctx, t, transport.OpMax, []uint64{collided, unresolved})
	if err != nil {
		return nil, nil, err
	}
	switch {
	case localErr != nil:
		return nil, nil, localErr
	case flags[1] == 1:
		return nil, nil, remote(hilbert.ErrUnresolved)
	case flags[0] == 1:
		return nil, nil, remote(ErrKeyCollision)
	}

	offset, _, err := transport.ExclusiveScan(ctx, t, uint64(len(keys)))
	if err != nil {
		return nil, nil, err
	}
	self, err := conv.IntToUint32(t.Rank())
	if err != nil {
		return nil, nil, err
	}

	ids := make([]uint64, len(keys))
	owners := make([]uint32, len(keys))
	for i := range ids {
		ids[i] = offset + uint64(i)
		owners[i] = self
	}

	out := transport.NewBuffer()
	if err := out.PackUint64s(keys); err != nil {
		return nil, nil, err
	}
	if err := out.PackUint64s(ids); err != nil {
		return nil, nil, err
	}
	payload := out.Bytes()

	n := t.Size()
	for k := 1; k < n; k++ {
		dest := (t.Rank() + k) % n
		source := (t.Rank() - k + n) % n
		in, err := t.SendRecv(ctx, payload, dest, source)
		if err != nil {
			return nil, nil, err
		}
		buf := transport.NewBufferFrom(in)
		theirKeys, err := buf.UnpackUint64s()
		if err != nil {
			return nil, nil, err
		}
		theirIDs, err := buf.UnpackUint64s()
		if err != nil {
			return nil, nil, err
		}
		if len(theirIDs) != len(theirKeys) {
			return nil, nil, fmt.Errorf("%w: %d keys with %d ids from rank %d", transport.ErrCorrupt, len(theirKeys), len(theirIDs), source)
		}
		src, err := conv.IntToUint32(source)
		if err != nil {
			return nil, nil, err
		}
		for j, key := range theirKeys {
			if i, ok := loc[key]; ok && src < owners[i] {
				owners[i] = src
				ids[i] = theirIDs[j]
			}
		}
	}
	return ids, owners, nil
}
