package wire

import (
	"fmt"

	"github.com/hupe1980/meshadapt/internal/conv"
	"github.com/hupe1980/meshadapt/mesh"
	"github.com/hupe1980/meshadapt/transport"
)

// PackedNode is a snapshot of one node.
type PackedNode struct {
	Dict     mesh.DictIdx
	Index    int
	GlobalID uint64
	Rank     uint32
	Values   []mesh.Row // one row per field of the dictionary
}

// SnapshotNode captures node i of dictionary d.
func SnapshotNode(m *mesh.Mesh, d mesh.DictIdx, i int) (PackedNode, error) {
	if int(d) < 0 || int(d) >= m.NumDicts() {
		return PackedNode{}, fmt.Errorf("%w: dictionary %d", mesh.ErrNotFound, d)
	}
	dict := m.Dict(d)
	if i < 0 || i >= dict.Size() {
		return PackedNode{}, fmt.Errorf("%w: node %d of %q with %d nodes", mesh.ErrInvalidStructure, i, dict.Name, dict.Size())
	}
	rec := PackedNode{
		Dict:     d,
		Index:    i,
		GlobalID: dict.GlobalIDs.At(i),
		Rank:     dict.Ranks.At(i),
		Values:   make([]mesh.Row, len(dict.Fields)),
	}
	for k, f := range dict.Fields {
		rec.Values[k] = m.Field(f).RowAt(i)
	}
	return rec, nil
}

// Pack appends the record to buf.
func (r PackedNode) Pack(buf *transport.Buffer) error {
	dict, err := conv.IntToUint32(int(r.Dict))
	if err != nil {
		return err
	}
	idx, err := conv.IntToUint32(r.Index)
	if err != nil {
		return err
	}
	buf.PackUint32(dict)
	buf.PackUint32(idx)
	buf.PackUint64(r.GlobalID)
	buf.PackUint32(r.Rank)
	for _, row := range r.Values {
		if err := packRow(buf, row); err != nil {
			return err
		}
	}
	return nil
}

// UnpackNode reads one node record laid out for m.
func UnpackNode(buf *transport.Buffer, m *mesh.Mesh) (PackedNode, error) {
	var r PackedNode
	dict, err := buf.UnpackUint32()
	if err != nil {
		return r, err
	}
	if uint64(dict) >= uint64(m.NumDicts()) {
		return r, fmt.Errorf("%w: dictionary %d, mesh has %d", transport.ErrCorrupt, dict, m.NumDicts())
	}
	idx, err := buf.UnpackUint32()
	if err != nil {
		return r, err
	}
	r.Dict = mesh.DictIdx(dict)
	if r.Index, err = conv.Uint32ToInt(idx); err != nil {
		return r, err
	}
	if r.GlobalID, err = buf.UnpackUint64(); err != nil {
		return r, err
	}
	if r.Rank, err = buf.UnpackUint32(); err != nil {
		return r, err
	}

	d := m.Dict(r.Dict)
	r.Values = make([]mesh.Row, len(d.Fields))
	for k, f := range d.Fields {
		row, err := unpackRow(buf)
		if err != nil {
			return r, err
		}
		if err := m.Field(f).CheckRow(row); err != nil {
			return r, fmt.Errorf("%w: node %d: %w", transport.ErrCorrupt, r.GlobalID, err)
		}
		r.Values[k] = row
	}
	return r, nil
}
