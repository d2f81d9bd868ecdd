package pending

import (
	"context"
	"sync"
)

// Future is the write-once completion slot behind a parked call. The
// first of {Value, RemoteError, Timeout, Shutdown} to complete it wins;
// later deliveries are dropped silently.
type Future struct {
	done  chan struct{}
	once  sync.Once
	value any
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// complete resolves the future exactly once. It reports whether this call
// was the one that won the race.
func (f *Future) complete(value any, err error) bool {
	won := false
	f.once.Do(func() {
		f.value, f.err = value, err
		won = true
		close(f.done)
	})
	return won
}

// Wait blocks until the future resolves or ctx is done, whichever comes
// first. A context cancellation does not complete the future itself — the
// pending call remains parked until a reply, remote error, timeout sweep,
// or shutdown resolves it.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
