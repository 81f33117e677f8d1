package transport

import (
	"context"
	"fmt"
	"math"
)

// AllToAllBuffer exchanges the per-rank segments of send and returns a buffer
// holding everything received, with the displacement/stride table set.
func AllToAllBuffer(ctx context.Context, t Transport, send *Buffer) (*Buffer, error) {
	payloads, err := send.Segments(t.Size())
	if err != nil {
		return nil, err
	}
	recv, err := t.AllToAll(ctx, payloads)
	if err != nil {
		return nil, fmt.Errorf("all-to-all: %w", err)
	}
	if len(recv) != t.Size() {
		return nil, fmt.Errorf("%w: all-to-all returned %d payloads for %d ranks", ErrCorrupt, len(recv), t.Size())
	}
	out := &Buffer{}
	out.setTable(recv)
	return out, nil
}

// AllGatherUint64s gathers vals from every rank, indexed by rank.
func AllGatherUint64s(ctx context.Context, t Transport, vals []uint64) ([][]uint64, error) {
	buf := NewBuffer()
	if err := buf.PackUint64s(vals); err != nil {
		return nil, err
	}
	recv, err := t.AllGather(ctx, buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("all-gather: %w", err)
	}
	out := make([][]uint64, len(recv))
	for r, p := range recv {
		v, err := NewBufferFrom(p).UnpackUint64s()
		if err != nil {
			return nil, fmt.Errorf("all-gather from rank %d: %w", r, err)
		}
		out[r] = v
	}
	return out, nil
}

// BroadcastUint64s returns the vals of root on every rank.
func BroadcastUint64s(ctx context.Context, t Transport, vals []uint64, root int) ([]uint64, error) {
	if err := CheckRank(t, root); err != nil {
		return nil, err
	}
	var payload []byte
	if t.Rank() == root {
		buf := NewBuffer()
		if err := buf.PackUint64s(vals); err != nil {
			return nil, err
		}
		payload = buf.Bytes()
	}
	recv, err := t.Broadcast(ctx, payload, root)
	if err != nil {
		return nil, fmt.Errorf("broadcast from rank %d: %w", root, err)
	}
	return NewBufferFrom(recv).UnpackUint64s()
}

// AllReduceUint64s reduces vals element-wise across ranks. Every rank must pass
// the same number of values.
func AllReduceUint64s(ctx context.Context, t Transport, op Op, vals []uint64) ([]uint64, error) {
	all, err := AllGatherUint64s(ctx, t, vals)
	if err != nil {
		return nil, err
	}
	var out []uint64
	for r, vs := range all {
		if len(vs) != len(vals) {
			return nil, fmt.Errorf("%w: all-reduce of %d values, rank %d sent %d", ErrCollectiveMismatch, len(vals), r, len(vs))
		}
		if out == nil {
			out = append([]uint64(nil), vs...)
			continue
		}
		for i, v := range vs {
			switch op {
			case OpSum:
				out[i] += v
			case OpMin:
				out[i] = min(out[i], v)
			case OpMax:
				out[i] = max(out[i], v)
			}
		}
	}
	if out == nil {
		out = []uint64{}
	}
	return out, nil
}

// AllReduceFloat64s reduces vals element-wise across ranks. Sums are accumulated
// in rank order so every rank computes bit-identical results.
func AllReduceFloat64s(ctx context.Context, t Transport, op Op, vals []float64) ([]float64, error) {
	bits := make([]uint64, len(vals))
	for i, v := range vals {
		bits[i] = math.Float64bits(v)
	}
	all, err := AllGatherUint64s(ctx, t, bits)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(vals))
	for i := range out {
		switch op {
		case OpMin:
			out[i] = math.Inf(1)
		case OpMax:
			out[i] = math.Inf(-1)
		}
	}
	for r, vs := range all {
		if len(vs) != len(vals) {
			return nil, fmt.Errorf("%w: all-reduce of %d values, rank %d sent %d", ErrCollectiveMismatch, len(vals), r, len(vs))
		}
		for i, b := range vs {
			v := math.Float64frombits(b)
			switch op {
			case OpSum:
				out[i] += v
			case OpMin:
				out[i] = math.Min(out[i], v)
			case OpMax:
				out[i] = math.Max(out[i], v)
			}
		}
	}
	return out, nil
}

// AllReduceBool returns true on every rank if v is true on any rank.
func AllReduceBool(ctx context.Context, t Transport, v bool) (bool, error) {
	var x uint64
	if v {
		x = 1
	}
	out, err := AllReduceUint64s(ctx, t, OpMax, []uint64{x})
	if err != nil {
		return false, err
	}
	return out[0] == 1, nil
}

// ExclusiveScan returns the sum of n over all ranks below the caller, and the total.
func ExclusiveScan(ctx context.Context, t Transport, n uint64) (offset, total uint64, err error) {
	all, err := AllGatherUint64s(ctx, t, []uint64{n})
	if err != nil {
		return 0, 0, err
	}
	for r, vs := range all {
		if len(vs) != 1 {
			return 0, 0, fmt.Errorf("%w: scan from rank %d sent %d values", ErrCollectiveMismatch, r, len(vs))
		}
		if r < t.Rank() {
			offset += vs[0]
		}
		total += vs[0]
	}
	return offset, total, nil
}
