package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/meshadapt/transport"
	"github.com/hupe1980/meshadapt/transport/local"
)

// RunRanks runs fn on size in-process ranks and fails tb on the first error.
// A stalled collective fails the test after a minute instead of hanging it.
func RunRanks(tb testing.TB, size int, fn func(ctx context.Context, t transport.Transport) error, optFns ...func(*local.Options)) {
	tb.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := local.Run(ctx, size, fn, optFns...); err != nil {
		tb.Fatalf("ranks failed: %v", err)
	}
}

// Self returns the endpoint of a single-rank world.
func Self() transport.Transport {
	w, err := local.NewWorld(1)
	must(err)
	return w.Comm(0)
}
