package local

import (
	"context"
	"fmt"

	"github.com/hupe1980/meshadapt/transport"
	"golang.org/x/sync/errgroup"
)

// Run executes fn on size ranks of a new World, one goroutine per rank.
// The first failing rank cancels the context of the others.
func Run(ctx context.Context, size int, fn func(ctx context.Context, t transport.Transport) error, optFns ...func(*Options)) error {
	w, err := NewWorld(size, optFns...)
	if err != nil {
		return err
	}
	return w.Run(ctx, fn)
}

// Run executes fn on every rank of w.
func (w *World) Run(ctx context.Context, fn func(ctx context.Context, t transport.Transport) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for r := 0; r < w.size; r++ {
		comm := w.Comm(r)
		g.Go(func() error {
			if err := fn(gctx, comm); err != nil {
				return fmt.Errorf("rank %d: %w", comm.rank, err)
			}
			return nil
		})
	}
	return g.Wait()
}
