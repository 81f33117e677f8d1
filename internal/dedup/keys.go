package dedup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hupe1980/meshadapt/hilbert"
)

// keyer hashes points. With debug logging enabled it also asserts that every
// hashed point is resolved by its leaf cell and keeps the first failure.
type keyer struct {
	h     *hilbert.Hasher
	check bool
	err   error
}

func newKeyer(ctx context.Context, h *hilbert.Hasher, logger *slog.Logger) *keyer {
	return &keyer{h: h, check: logger.Enabled(ctx, slog.LevelDebug)}
}

func (k *keyer) key(p []float64) uint64 {
	if k.check && k.err == nil {
		k.err = k.h.CheckResolution(p)
	}
	return k.h.Key(p)
}

// remote is the error of a rank whose own check passed while another failed.
func remote(err error) error {
	return fmt.Errorf("%w: on another rank", err)
}
