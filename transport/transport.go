package transport

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrShortBuffer is returned when an unpack reads past the end of a buffer.
	ErrShortBuffer = errors.New("transport: short buffer")

	// ErrCorrupt is returned when a received frame fails its checksum or header checks.
	ErrCorrupt = errors.New("transport: corrupt frame")

	// ErrInvalidRank is returned when a rank argument is outside [0, Size()).
	ErrInvalidRank = errors.New("transport: invalid rank")

	// ErrCollectiveMismatch is returned when ranks issue different collectives in the same step.
	// Real message passing runtimes deadlock in this situation instead.
	ErrCollectiveMismatch = errors.New("transport: collective mismatch")
)

// Transport is the collective communication contract the adaptation engine is written against.
//
// Every method is collective: all ranks must call the same method, in the same order,
// with compatible arguments. A call blocks until every rank has taken part or ctx is done.
type Transport interface {
	// Rank returns the rank of the caller in [0, Size()).
	Rank() int

	// Size returns the number of ranks.
	Size() int

	// AllToAll sends send[r] to rank r and returns recv where recv[s] came from rank s.
	// len(send) must equal Size(). Nil entries are sent as empty payloads.
	AllToAll(ctx context.Context, send [][]byte) ([][]byte, error)

	// AllGather returns the payload of every rank, indexed by rank.
	AllGather(ctx context.Context, data []byte) ([][]byte, error)

	// Broadcast returns the payload of root on every rank. data is ignored on non-root ranks.
	Broadcast(ctx context.Context, data []byte, root int) ([]byte, error)

	// SendRecv sends data to dest and returns the payload source sent to the caller.
	SendRecv(ctx context.Context, data []byte, dest, source int) ([]byte, error)

	// Barrier blocks until every rank reached it.
	Barrier(ctx context.Context) error
}

// Op is a reduction operator.
type Op int

const (
	OpSum Op = iota
	OpMin
	OpMax
)

func (o Op) String() string {
	switch o {
	case OpSum:
		return "sum"
	case OpMin:
		return "min"
	case OpMax:
		return "max"
	default:
		return fmt.Sprintf("Unknown(%d)", int(o))
	}
}

// CheckRank validates r against the size of t.
func CheckRank(t Transport, r int) error {
	if r < 0 || r >= t.Size() {
		return fmt.Errorf("%w: %d (size %d)", ErrInvalidRank, r, t.Size())
	}
	return nil
}
