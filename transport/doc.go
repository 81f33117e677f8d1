// Package transport defines the collective communication contract used by the
// mesh adaptation engine, and the typed byte buffer records travel in.
//
// # Collectives
//
// Every Transport method is collective: all ranks call it, in the same order.
// Ranks that issue different sequences deadlock on a real runtime; the in-process
// implementation in transport/local reports ErrCollectiveMismatch instead.
//
// # Buffers
//
// A Buffer packs little-endian scalars and length-prefixed arrays. When used as
// the send side of an all-to-all, MarkSegmentStart opens the segment for each
// destination rank:
//
//	buf := transport.NewBuffer()
//	for r := 0; r < t.Size(); r++ {
//	    buf.MarkSegmentStart(r)
//	    buf.PackUint64(gid)
//	}
//	recv, err := transport.AllToAllBuffer(ctx, t, buf)
//	for recv.Remaining() > 0 {
//	    src := recv.SourceRank(recv.Offset())
//	    gid, err := recv.UnpackUint64()
//	}
//
// # Framing
//
// EncodeFrame and DecodeFrame wrap payloads with a CRC32C checksum and optional
// LZ4 or ZSTD compression.
package transport
