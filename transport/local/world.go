package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/meshadapt/transport"
)

// ErrInFlightLimit is returned when a contribution does not fit the in-flight byte budget.
// Ranks that already joined the step keep their reservation and wait for the
// failed rank, so the World must be discarded after this error, as after a
// cancelled collective.
var ErrInFlightLimit = errors.New("local: in-flight byte limit exceeded")

// Stats summarizes the traffic a World carried.
type Stats struct {
	Collectives  uint64 // completed collective steps
	PayloadBytes uint64 // bytes handed to the transport
	WireBytes    uint64 // framed bytes after compression
}

// World is an in-process group of ranks.
type World struct {
	size   int
	opts   Options
	lim    *limiter
	logger *slog.Logger

	mu     sync.Mutex
	seq    []uint64
	rounds map[uint64]*round

	collectives  atomic.Uint64
	payloadBytes atomic.Uint64
	wireBytes    atomic.Uint64
}

// round is one collective step. Fields are written under World.mu and read
// after done is closed.
type round struct {
	op       string
	mismatch string
	frames   [][][]byte // [source][slot]
	dests    []int
	arrived  int
	held     int64
	done     chan struct{}
}

// NewWorld creates a world of size ranks.
func NewWorld(size int, optFns ...func(*Options)) (*World, error) {
	if size < 1 {
		return nil, fmt.Errorf("local: world size %d", size)
	}
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &World{
		size:   size,
		opts:   opts,
		lim:    newLimiter(size, opts),
		logger: logger,
		seq:    make([]uint64, size),
		rounds: make(map[uint64]*round),
	}, nil
}

// Size returns the number of ranks.
func (w *World) Size() int { return w.size }

// Comm returns the transport endpoint of rank. It panics if rank is out of range.
func (w *World) Comm(rank int) *Comm {
	if rank < 0 || rank >= w.size {
		panic(fmt.Sprintf("local: rank %d out of range [0, %d)", rank, w.size))
	}
	return &Comm{w: w, rank: rank}
}

// Stats returns a snapshot of the traffic counters.
func (w *World) Stats() Stats {
	return Stats{
		Collectives:  w.collectives.Load(),
		PayloadBytes: w.payloadBytes.Load(),
		WireBytes:    w.wireBytes.Load(),
	}
}

// Comm is the endpoint of one rank. It must only be used by one goroutine.
type Comm struct {
	w    *World
	rank int
}

var _ transport.Transport = (*Comm)(nil)

// Rank implements transport.Transport.
func (c *Comm) Rank() int { return c.rank }

// Size implements transport.Transport.
func (c *Comm) Size() int { return c.w.size }

// AllToAll implements transport.Transport.
func (c *Comm) AllToAll(ctx context.Context, send [][]byte) ([][]byte, error) {
	if len(send) != c.w.size {
		return nil, fmt.Errorf("local: all-to-all with %d payloads for %d ranks", len(send), c.w.size)
	}
	r, err := c.step(ctx, "alltoall", send, -1)
	if err != nil {
		return nil, err
	}
	recv := make([][]byte, c.w.size)
	for s := range recv {
		if recv[s], err = open(r.frames[s][c.rank]); err != nil {
			return nil, fmt.Errorf("all-to-all from rank %d: %w", s, err)
		}
	}
	return recv, nil
}

// AllGather implements transport.Transport.
func (c *Comm) AllGather(ctx context.Context, data []byte) ([][]byte, error) {
	r, err := c.step(ctx, "allgather", [][]byte{data}, -1)
	if err != nil {
		return nil, err
	}
	recv := make([][]byte, c.w.size)
	for s := range recv {
		if recv[s], err = open(r.frames[s][0]); err != nil {
			return nil, fmt.Errorf("all-gather from rank %d: %w", s, err)
		}
	}
	return recv, nil
}

// Broadcast implements transport.Transport.
func (c *Comm) Broadcast(ctx context.Context, data []byte, root int) ([]byte, error) {
	if err := transport.CheckRank(c, root); err != nil {
		return nil, err
	}
	var send [][]byte
	if c.rank == root {
		send = [][]byte{data}
	}
	r, err := c.step(ctx, fmt.Sprintf("broadcast/%d", root), send, -1)
	if err != nil {
		return nil, err
	}
	return open(r.frames[root][0])
}

// SendRecv implements transport.Transport. It is a collective step: every rank
// calls it, each naming its own destination and source.
func (c *Comm) SendRecv(ctx context.Context, data []byte, dest, source int) ([]byte, error) {
	if err := transport.CheckRank(c, dest); err != nil {
		return nil, err
	}
	if err := transport.CheckRank(c, source); err != nil {
		return nil, err
	}
	r, err := c.step(ctx, "sendrecv", [][]byte{data}, dest)
	if err != nil {
		return nil, err
	}
	if r.dests[source] != c.rank {
		return nil, fmt.Errorf("%w: rank %d expects data from rank %d, which sent to rank %d",
			transport.ErrCollectiveMismatch, c.rank, source, r.dests[source])
	}
	return open(r.frames[source][0])
}

// Barrier implements transport.Transport.
func (c *Comm) Barrier(ctx context.Context) error {
	_, err := c.step(ctx, "barrier", nil, -1)
	return err
}

func (c *Comm) step(ctx context.Context, op string, payloads [][]byte, dest int) (*round, error) {
	w := c.w

	frames := make([][]byte, len(payloads))
	var raw, wire int
	for i, p := range payloads {
		f, err := transport.EncodeFrame(p, w.opts.Compression)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		frames[i] = f
		raw += len(p)
		wire += len(f)
	}

	if err := w.lim.send(ctx, c.rank, wire); err != nil {
		return nil, err
	}
	if !w.lim.tryHold(int64(wire)) {
		return nil, fmt.Errorf("%w: rank %d %s of %d bytes", ErrInFlightLimit, c.rank, op, wire)
	}
	w.payloadBytes.Add(uint64(raw))
	w.wireBytes.Add(uint64(wire))

	w.mu.Lock()
	seq := w.seq[c.rank]
	w.seq[c.rank]++
	r, ok := w.rounds[seq]
	if !ok {
		r = &round{
			op:     op,
			frames: make([][][]byte, w.size),
			dests:  make([]int, w.size),
			done:   make(chan struct{}),
		}
		w.rounds[seq] = r
	} else if r.op != op && r.mismatch == "" {
		r.mismatch = fmt.Sprintf("step %d: %s and %s", seq, r.op, op)
	}
	r.frames[c.rank] = frames
	r.dests[c.rank] = dest
	r.held += int64(wire)
	r.arrived++
	if r.arrived == w.size {
		delete(w.rounds, seq)
		w.lim.release(r.held)
		w.collectives.Add(1)
		w.logger.Debug("collective complete", "op", r.op, "step", seq, "bytes", r.held)
		close(r.done)
	}
	w.mu.Unlock()

	select {
	case <-r.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if r.mismatch != "" {
		return nil, fmt.Errorf("%w: %s", transport.ErrCollectiveMismatch, r.mismatch)
	}
	return r, nil
}

// open decodes a frame into a private copy; frames are shared by all receivers.
func open(frame []byte) ([]byte, error) {
	p, err := transport.DecodeFrame(frame)
	if err != nil {
		return nil, err
	}
	if len(p) == 0 {
		return nil, nil
	}
	return append([]byte(nil), p...), nil
}
