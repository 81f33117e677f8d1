package transport

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/hupe1980/meshadapt/internal/conv"
	"github.com/hupe1980/meshadapt/internal/hash"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how payloads are framed on the wire.
type Compression uint8

const (
	// CompressionNone frames payloads without compression.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD (better ratio for large connectivity tables).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// ParseCompression maps a configuration string to a Compression.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression %q", s)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Frame layout:
// [Type: 1][UncompressedSize: 4][CompressedSize: 4][CRC32C of payload: 4][Data...]
// CompressedSize == 0 means Data is the payload itself.
const frameHeaderSize = 13

// EncodeFrame frames payload, compressing it when that saves at least 10%.
func EncodeFrame(payload []byte, c Compression) ([]byte, error) {
	size, err := conv.IntToUint32(len(payload))
	if err != nil {
		return nil, fmt.Errorf("frame payload: %w", err)
	}

	var compressed []byte
	switch c {
	case CompressionNone:
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(payload)))
		n, err := lz4.CompressBlock(payload, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		compressed = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(payload, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("unsupported compression %v", c)
	}

	header := make([]byte, frameHeaderSize)
	header[0] = byte(c)
	binary.LittleEndian.PutUint32(header[1:], size)
	binary.LittleEndian.PutUint32(header[9:], hash.CRC32C(payload))

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(payload))*0.9 {
		return append(header, payload...), nil
	}
	binary.LittleEndian.PutUint32(header[5:], uint32(len(compressed)))
	return append(header, compressed...), nil
}

// DecodeFrame reverses EncodeFrame and verifies the checksum.
func DecodeFrame(frame []byte) ([]byte, error) {
	if len(frame) < frameHeaderSize {
		return nil, fmt.Errorf("%w: frame of %d bytes", ErrCorrupt, len(frame))
	}
	c := Compression(frame[0])
	size := binary.LittleEndian.Uint32(frame[1:])
	csize := binary.LittleEndian.Uint32(frame[5:])
	sum := binary.LittleEndian.Uint32(frame[9:])
	data := frame[frameHeaderSize:]

	var payload []byte
	if csize == 0 {
		if uint64(len(data)) != uint64(size) {
			return nil, fmt.Errorf("%w: stored frame has %d bytes, header says %d", ErrCorrupt, len(data), size)
		}
		payload = data
	} else {
		if uint64(len(data)) != uint64(csize) {
			return nil, fmt.Errorf("%w: compressed frame has %d bytes, header says %d", ErrCorrupt, len(data), csize)
		}
		out := make([]byte, size)
		switch c {
		case CompressionLZ4:
			n, err := lz4.UncompressBlock(data, out)
			if err != nil {
				return nil, fmt.Errorf("%w: lz4: %w", ErrCorrupt, err)
			}
			if uint32(n) != size {
				return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
			}
			payload = out
		case CompressionZSTD:
			dec := getZstdDecoder()
			decoded, err := dec.DecodeAll(data, out[:0])
			zstdDecoderPool.Put(dec)
			if err != nil {
				return nil, fmt.Errorf("%w: zstd: %w", ErrCorrupt, err)
			}
			if uint32(len(decoded)) != size {
				return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
			}
			payload = decoded
		default:
			return nil, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, frame[0])
		}
	}

	if err := hash.Verify(payload, sum); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return payload, nil
}
