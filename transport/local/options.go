package local

import (
	"log/slog"

	"github.com/hupe1980/meshadapt/transport"
)

// Options configures a World.
type Options struct {
	// Compression applied to every payload frame.
	Compression transport.Compression

	// BandwidthBytesPerSec limits the bytes each rank sends per second.
	// If 0, unlimited.
	BandwidthBytesPerSec int64

	// MaxInFlightBytes caps the framed bytes held by all pending collectives.
	// A rank whose contribution does not fit fails with ErrInFlightLimit.
	// If 0, unlimited.
	MaxInFlightBytes int64

	// Logger receives debug records for every completed collective.
	Logger *slog.Logger
}

// DefaultOptions are used by NewWorld.
var DefaultOptions = Options{
	Compression: transport.CompressionNone,
}

// WithCompression sets the payload compression.
func WithCompression(c transport.Compression) func(*Options) {
	return func(o *Options) {
		o.Compression = c
	}
}

// WithBandwidth simulates a link of bytesPerSec per rank.
func WithBandwidth(bytesPerSec int64) func(*Options) {
	return func(o *Options) {
		o.BandwidthBytesPerSec = bytesPerSec
	}
}

// WithMaxInFlightBytes caps the bytes buffered by pending collectives.
func WithMaxInFlightBytes(n int64) func(*Options) {
	return func(o *Options) {
		o.MaxInFlightBytes = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) func(*Options) {
	return func(o *Options) {
		o.Logger = l
	}
}
