package local

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// limiter meters what ranks push through the world.
type limiter struct {
	inFlight *semaphore.Weighted // nil if unlimited
	links    []*rate.Limiter     // per rank, nil if unlimited
}

func newLimiter(size int, opts Options) *limiter {
	l := &limiter{}
	if opts.MaxInFlightBytes > 0 {
		l.inFlight = semaphore.NewWeighted(opts.MaxInFlightBytes)
	}
	if opts.BandwidthBytesPerSec > 0 {
		l.links = make([]*rate.Limiter, size)
		for r := range l.links {
			l.links[r] = rate.NewLimiter(rate.Limit(opts.BandwidthBytesPerSec), int(opts.BandwidthBytesPerSec))
		}
	}
	return l
}

// send waits until rank's link allows n bytes.
func (l *limiter) send(ctx context.Context, rank, n int) error {
	if l.links == nil || n <= 0 {
		return nil
	}
	lim := l.links[rank]
	burst := lim.Burst()
	for n > 0 {
		chunk := min(n, burst)
		if err := lim.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// tryHold reserves n in-flight bytes without blocking.
func (l *limiter) tryHold(n int64) bool {
	if l.inFlight == nil || n <= 0 {
		return true
	}
	return l.inFlight.TryAcquire(n)
}

func (l *limiter) release(n int64) {
	if l.inFlight == nil || n <= 0 {
		return
	}
	l.inFlight.Release(n)
}
