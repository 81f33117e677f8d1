package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hupe1980/meshadapt/internal/buffer"
	"github.com/hupe1980/meshadapt/internal/conv"
	"github.com/hupe1980/meshadapt/mesh"
	"github.com/hupe1980/meshadapt/transport"
	"github.com/hupe1980/meshadapt/wire"
)

// ErrConnectivityNotGlobal is returned when elements would travel with local node indices.
var ErrConnectivityNotGlobal = errors.New("exchange: connectivity is not global")

// Stats summarizes one exchange round on the calling rank.
type Stats struct {
	Sent     int // records packed
	Received int // records unpacked
	Added    int // records that created or restored a row
	Bytes    int // bytes packed
}

// SendElements sends the exported elements and adds the received ones to bufs.
// A received element that is already live keeps its row; it only takes the
// record's owner when that owner is the receiving rank.
func SendElements(ctx context.Context, t transport.Transport, bufs *buffer.Set, exports Exports, logger *slog.Logger) (Imported, Stats, error) {
	m := bufs.Mesh()
	if !m.GlobalConnectivity() {
		return nil, Stats{}, ErrConnectivityNotGlobal
	}
	if err := checkExports(t, exports, m.NumEntities(), "entities"); err != nil {
		return nil, Stats{}, err
	}

	self, err := conv.IntToUint32(t.Rank())
	if err != nil {
		return nil, Stats{}, err
	}

	var st Stats
	send := transport.NewBuffer()
	for r := 0; r < t.Size(); r++ {
		send.MarkSegmentStart(r)
		for c, set := range exports[r] {
			for i := range set.All() {
				rec, err := wire.SnapshotElement(m, mesh.EntitiesIdx(c), i)
				if err != nil {
					return nil, st, fmt.Errorf("export to rank %d: %w", r, err)
				}
				if err := rec.Pack(send); err != nil {
					return nil, st, err
				}
				st.Sent++
			}
		}
	}
	st.Bytes = send.Len()

	recv, err := transport.AllToAllBuffer(ctx, t, send)
	if err != nil {
		return nil, st, fmt.Errorf("send elements: %w", err)
	}

	imported := newImported(t.Size(), m.NumEntities())
	for recv.Remaining() > 0 {
		src := recv.SourceRank(recv.Offset())
		rec, err := wire.UnpackElement(recv, m)
		if err != nil {
			return nil, st, fmt.Errorf("element from rank %d: %w", src, err)
		}
		st.Received++
		i, added := bufs.AddElement(rec.Entities, rec.GlobalID, rec.Rank, rec.Connectivity)
		switch {
		case added:
			st.Added++
		case rec.Rank == self:
			// A ghost copy handed over to this rank.
			bufs.SetElementRank(rec.Entities, i, self)
		}
		imported[src][rec.Entities] = append(imported[src][rec.Entities], rec.GlobalID)
	}

	logger.Debug("elements exchanged", "sent", st.Sent, "received", st.Received, "added", st.Added, "bytes", st.Bytes)
	return imported, st, nil
}

// SendNodes sends the exported nodes and adds the received ones to bufs.
func SendNodes(ctx context.Context, t transport.Transport, bufs *buffer.Set, exports Exports, logger *slog.Logger) (Imported, Stats, error) {
	m := bufs.Mesh()
	if err := checkExports(t, exports, m.NumDicts(), "dictionaries"); err != nil {
		return nil, Stats{}, err
	}

	var st Stats
	send := transport.NewBuffer()
	for r := 0; r < t.Size(); r++ {
		send.MarkSegmentStart(r)
		for d, set := range exports[r] {
			for i := range set.All() {
				rec, err := wire.SnapshotNode(m, mesh.DictIdx(d), i)
				if err != nil {
					return nil, st, fmt.Errorf("export to rank %d: %w", r, err)
				}
				if err := rec.Pack(send); err != nil {
					return nil, st, err
				}
				st.Sent++
			}
		}
	}
	st.Bytes = send.Len()

	recv, err := transport.AllToAllBuffer(ctx, t, send)
	if err != nil {
		return nil, st, fmt.Errorf("send nodes: %w", err)
	}

	imported := newImported(t.Size(), m.NumDicts())
	for recv.Remaining() > 0 {
		src := recv.SourceRank(recv.Offset())
		rec, err := wire.UnpackNode(recv, m)
		if err != nil {
			return nil, st, fmt.Errorf("node from rank %d: %w", src, err)
		}
		st.Received++
		if _, added := bufs.AddNode(rec.Dict, rec.GlobalID, rec.Rank, rec.Values); added {
			st.Added++
		}
		imported[src][rec.Dict] = append(imported[src][rec.Dict], rec.GlobalID)
	}

	logger.Debug("nodes exchanged", "sent", st.Sent, "received", st.Received, "added", st.Added, "bytes", st.Bytes)
	return imported, st, nil
}

func checkExports(t transport.Transport, x Exports, n int, what string) error {
	if len(x) != t.Size() {
		return fmt.Errorf("%w: exports for %d ranks, world has %d", mesh.ErrInvalidStructure, len(x), t.Size())
	}
	for r, colls := range x {
		if len(colls) != n {
			return fmt.Errorf("%w: exports to rank %d cover %d %s, mesh has %d", mesh.ErrInvalidStructure, r, len(colls), what, n)
		}
	}
	return nil
}
