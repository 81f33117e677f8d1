package transport

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/hupe1980/meshadapt/internal/conv"
)

// Buffer is a byte buffer with typed little-endian pack/unpack.
//
// On the sending side MarkSegmentStart splits the buffer into one segment per
// destination rank. After AllToAllBuffer the received buffer carries the
// displacement/stride table that attributes each byte offset to its source rank.
type Buffer struct {
	data []byte
	off  int

	segStarts []int
	segRanks  []int

	displs  []int
	strides []int
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{data: make([]byte, 0, 256)}
}

// NewBufferFrom wraps data for unpacking.
func NewBufferFrom(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Bytes returns the packed bytes.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the number of packed bytes.
func (b *Buffer) Len() int { return len(b.data) }

// Offset returns the current unpack offset.
func (b *Buffer) Offset() int { return b.off }

// Remaining returns the number of bytes left to unpack.
func (b *Buffer) Remaining() int { return len(b.data) - b.off }

// Reset clears the buffer for reuse.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.off = 0
	b.segStarts = b.segStarts[:0]
	b.segRanks = b.segRanks[:0]
	b.displs = nil
	b.strides = nil
}

// MarkSegmentStart starts the segment for destination rank. Ranks must be marked
// in strictly increasing order; bytes packed before the first mark are not sent.
func (b *Buffer) MarkSegmentStart(rank int) {
	if n := len(b.segRanks); n > 0 && rank <= b.segRanks[n-1] {
		panic(fmt.Sprintf("transport: segment for rank %d marked after rank %d", rank, b.segRanks[n-1]))
	}
	b.segStarts = append(b.segStarts, len(b.data))
	b.segRanks = append(b.segRanks, rank)
}

// Segments splits the buffer into size per-rank payloads. Unmarked ranks get nil.
func (b *Buffer) Segments(size int) ([][]byte, error) {
	out := make([][]byte, size)
	for i, r := range b.segRanks {
		if r < 0 || r >= size {
			return nil, fmt.Errorf("%w: segment for rank %d (size %d)", ErrInvalidRank, r, size)
		}
		end := len(b.data)
		if i+1 < len(b.segStarts) {
			end = b.segStarts[i+1]
		}
		if end > b.segStarts[i] {
			out[r] = b.data[b.segStarts[i]:end]
		}
	}
	return out, nil
}

// Displacements returns the byte offset of each source rank's data.
func (b *Buffer) Displacements() []int { return b.displs }

// Strides returns the byte count received from each source rank.
func (b *Buffer) Strides() []int { return b.strides }

// SourceRank returns the rank whose segment contains offset, or -1.
func (b *Buffer) SourceRank(offset int) int {
	// Last rank whose displacement is <= offset; zero-stride ranks share displacements.
	i := sort.Search(len(b.displs), func(i int) bool { return b.displs[i] > offset }) - 1
	for ; i >= 0; i-- {
		if b.strides[i] > 0 {
			if offset < b.displs[i]+b.strides[i] {
				return i
			}
			return -1
		}
	}
	return -1
}

func (b *Buffer) setTable(recv [][]byte) {
	total := 0
	for _, p := range recv {
		total += len(p)
	}
	b.data = make([]byte, 0, total)
	b.displs = make([]int, len(recv))
	b.strides = make([]int, len(recv))
	for r, p := range recv {
		b.displs[r] = len(b.data)
		b.strides[r] = len(p)
		b.data = append(b.data, p...)
	}
	b.off = 0
}

// PackUint8 appends v.
func (b *Buffer) PackUint8(v uint8) {
	b.data = append(b.data, v)
}

// PackUint32 appends v.
func (b *Buffer) PackUint32(v uint32) {
	b.data = binary.LittleEndian.AppendUint32(b.data, v)
}

// PackUint64 appends v.
func (b *Buffer) PackUint64(v uint64) {
	b.data = binary.LittleEndian.AppendUint64(b.data, v)
}

// PackInt64 appends v.
func (b *Buffer) PackInt64(v int64) {
	b.PackUint64(uint64(v))
}

// PackFloat64 appends v.
func (b *Buffer) PackFloat64(v float64) {
	b.PackUint64(math.Float64bits(v))
}

// PackLen appends a uint32 length prefix.
func (b *Buffer) PackLen(n int) error {
	u, err := conv.IntToUint32(n)
	if err != nil {
		return fmt.Errorf("pack length: %w", err)
	}
	b.PackUint32(u)
	return nil
}

// PackUint64s appends a length-prefixed array.
func (b *Buffer) PackUint64s(vs []uint64) error {
	if err := b.PackLen(len(vs)); err != nil {
		return err
	}
	for _, v := range vs {
		b.PackUint64(v)
	}
	return nil
}

// PackInt64s appends a length-prefixed array.
func (b *Buffer) PackInt64s(vs []int64) error {
	if err := b.PackLen(len(vs)); err != nil {
		return err
	}
	for _, v := range vs {
		b.PackInt64(v)
	}
	return nil
}

// PackFloat64s appends a length-prefixed array.
func (b *Buffer) PackFloat64s(vs []float64) error {
	if err := b.PackLen(len(vs)); err != nil {
		return err
	}
	for _, v := range vs {
		b.PackFloat64(v)
	}
	return nil
}

func (b *Buffer) take(n int) ([]byte, error) {
	if n < 0 || b.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, b.off, b.Remaining())
	}
	p := b.data[b.off : b.off+n]
	b.off += n
	return p, nil
}

// UnpackUint8 reads a uint8.
func (b *Buffer) UnpackUint8() (uint8, error) {
	p, err := b.take(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

// UnpackUint32 reads a uint32.
func (b *Buffer) UnpackUint32() (uint32, error) {
	p, err := b.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(p), nil
}

// UnpackUint64 reads a uint64.
func (b *Buffer) UnpackUint64() (uint64, error) {
	p, err := b.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(p), nil
}

// UnpackInt64 reads an int64.
func (b *Buffer) UnpackInt64() (int64, error) {
	v, err := b.UnpackUint64()
	return int64(v), err
}

// UnpackFloat64 reads a float64.
func (b *Buffer) UnpackFloat64() (float64, error) {
	v, err := b.UnpackUint64()
	return math.Float64frombits(v), err
}

// UnpackLen reads a uint32 length prefix and checks that n elements of
// elemSize bytes are available.
func (b *Buffer) UnpackLen(elemSize int) (int, error) {
	u, err := b.UnpackUint32()
	if err != nil {
		return 0, err
	}
	n, err := conv.Uint32ToInt(u)
	if err != nil {
		return 0, err
	}
	if elemSize > 0 && n > b.Remaining()/elemSize {
		return 0, fmt.Errorf("%w: array of %d elements at offset %d, have %d bytes", ErrShortBuffer, n, b.off, b.Remaining())
	}
	return n, nil
}

// UnpackUint64s reads a length-prefixed array.
func (b *Buffer) UnpackUint64s() ([]uint64, error) {
	n, err := b.UnpackLen(8)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, n)
	for i := range out {
		out[i], _ = b.UnpackUint64()
	}
	return out, nil
}

// UnpackInt64s reads a length-prefixed array.
func (b *Buffer) UnpackInt64s() ([]int64, error) {
	n, err := b.UnpackLen(8)
	if err != nil {
		return nil, err
	}
	out := make([]int64, n)
	for i := range out {
		out[i], _ = b.UnpackInt64()
	}
	return out, nil
}

// UnpackFloat64s reads a length-prefixed array.
func (b *Buffer) UnpackFloat64s() ([]float64, error) {
	n, err := b.UnpackLen(8)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i], _ = b.UnpackFloat64()
	}
	return out, nil
}
