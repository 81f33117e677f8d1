package wire

import (
	"fmt"

	"github.com/hupe1980/meshadapt/mesh"
	"github.com/hupe1980/meshadapt/transport"
)

// Codec packs and unpacks the values of one field kind.
type Codec struct {
	Pack   func(buf *transport.Buffer, r mesh.Row) error
	Unpack func(buf *transport.Buffer) (mesh.Row, error)
}

var registry = map[mesh.Kind]Codec{
	mesh.KindFloat64: {
		Pack: func(buf *transport.Buffer, r mesh.Row) error { return buf.PackFloat64s(r.F) },
		Unpack: func(buf *transport.Buffer) (mesh.Row, error) {
			v, err := buf.UnpackFloat64s()
			return mesh.FloatRow(v...), err
		},
	},
	mesh.KindInt64: {
		Pack: func(buf *transport.Buffer, r mesh.Row) error { return buf.PackInt64s(r.I) },
		Unpack: func(buf *transport.Buffer) (mesh.Row, error) {
			v, err := buf.UnpackInt64s()
			return mesh.IntRow(v...), err
		},
	},
}

// CodecFor returns the codec registered for kind.
func CodecFor(kind mesh.Kind) (Codec, error) {
	c, ok := registry[kind]
	if !ok {
		return Codec{}, fmt.Errorf("wire: no codec for kind %v", kind)
	}
	return c, nil
}

// packRow writes the kind tag followed by the values.
func packRow(buf *transport.Buffer, r mesh.Row) error {
	c, err := CodecFor(r.Kind)
	if err != nil {
		return err
	}
	buf.PackUint8(uint8(r.Kind))
	return c.Pack(buf, r)
}

func unpackRow(buf *transport.Buffer) (mesh.Row, error) {
	tag, err := buf.UnpackUint8()
	if err != nil {
		return mesh.Row{}, err
	}
	c, err := CodecFor(mesh.Kind(tag))
	if err != nil {
		return mesh.Row{}, fmt.Errorf("%w: %w", transport.ErrCorrupt, err)
	}
	return c.Unpack(buf)
}
