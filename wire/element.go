package wire

import (
	"fmt"

	"github.com/hupe1980/meshadapt/internal/conv"
	"github.com/hupe1980/meshadapt/mesh"
	"github.com/hupe1980/meshadapt/transport"
)

// PackedElement is a snapshot of one element.
type PackedElement struct {
	Entities     mesh.EntitiesIdx
	Index        int
	GlobalID     uint64
	Rank         uint32
	Connectivity [][]uint64 // node global ids, one row per space
}

// SnapshotElement captures element i of group e.
func SnapshotElement(m *mesh.Mesh, e mesh.EntitiesIdx, i int) (PackedElement, error) {
	if int(e) < 0 || int(e) >= m.NumEntities() {
		return PackedElement{}, fmt.Errorf("%w: entities %d", mesh.ErrNotFound, e)
	}
	ent := m.Entities(e)
	if i < 0 || i >= ent.Size() {
		return PackedElement{}, fmt.Errorf("%w: element %d of %q with %d elements", mesh.ErrInvalidStructure, i, ent.Name, ent.Size())
	}
	rec := PackedElement{
		Entities:     e,
		Index:        i,
		GlobalID:     ent.GlobalIDs.At(i),
		Rank:         ent.Ranks.At(i),
		Connectivity: make([][]uint64, len(ent.Spaces)),
	}
	for s, sp := range ent.Spaces {
		row := append([]uint64(nil), sp.Connectivity.Row(i)...)
		if !m.GlobalConnectivity() {
			gids := m.Dict(sp.Dict).GlobalIDs
			for k, v := range row {
				if v >= uint64(gids.Len()) {
					return PackedElement{}, fmt.Errorf("%w: element %d of %q references node %d", mesh.ErrInvalidStructure, i, ent.Name, v)
				}
				row[k] = gids.At(int(v))
			}
		}
		rec.Connectivity[s] = row
	}
	return rec, nil
}

// Pack appends the record to buf.
func (r PackedElement) Pack(buf *transport.Buffer) error {
	coll, err := conv.IntToUint32(int(r.Entities))
	if err != nil {
		return err
	}
	idx, err := conv.IntToUint32(r.Index)
	if err != nil {
		return err
	}
	buf.PackUint32(coll)
	buf.PackUint32(idx)
	buf.PackUint64(r.GlobalID)
	buf.PackUint32(r.Rank)
	for _, row := range r.Connectivity {
		if err := buf.PackUint64s(row); err != nil {
			return err
		}
	}
	return nil
}

// UnpackElement reads one element record laid out for m.
func UnpackElement(buf *transport.Buffer, m *mesh.Mesh) (PackedElement, error) {
	var r PackedElement
	coll, err := buf.UnpackUint32()
	if err != nil {
		return r, err
	}
	if uint64(coll) >= uint64(m.NumEntities()) {
		return r, fmt.Errorf("%w: entities %d, mesh has %d", transport.ErrCorrupt, coll, m.NumEntities())
	}
	idx, err := buf.UnpackUint32()
	if err != nil {
		return r, err
	}
	r.Entities = mesh.EntitiesIdx(coll)
	if r.Index, err = conv.Uint32ToInt(idx); err != nil {
		return r, err
	}
	if r.GlobalID, err = buf.UnpackUint64(); err != nil {
		return r, err
	}
	if r.Rank, err = buf.UnpackUint32(); err != nil {
		return r, err
	}

	ent := m.Entities(r.Entities)
	r.Connectivity = make([][]uint64, len(ent.Spaces))
	for s, sp := range ent.Spaces {
		row, err := buf.UnpackUint64s()
		if err != nil {
			return r, err
		}
		if len(row) != sp.Connectivity.Width() {
			return r, fmt.Errorf("%w: element %d space %d has %d nodes, %q expects %d",
				transport.ErrCorrupt, r.GlobalID, s, len(row), ent.Name, sp.Connectivity.Width())
		}
		r.Connectivity[s] = row
	}
	return r, nil
}
