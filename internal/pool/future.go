package pool

import (
	"context"
	"sync/atomic"

	"github.com/southctrl/yt-cipher/internal/model"
)

// Future is the single-assignment result of a submitted job. It is settled
// exactly once, either resolved with an Output or rejected with an error.
type Future struct {
	id       string
	done     chan struct{}
	settled  atomic.Bool
	out      model.Output
	err      error
	workerID int
}

func newFuture(id string) *Future {
	return &Future{id: id, done: make(chan struct{}), workerID: -1}
}

// ID returns the job ID, which is also the ID of its history record.
func (f *Future) ID() string {
	return f.id
}

// Done is closed once the future is settled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future settles or ctx is done. Returning early on ctx
// does not cancel the job; it still runs to completion on its worker.
func (f *Future) Wait(ctx context.Context) (model.Output, error) {
	select {
	case <-f.done:
		return f.out, f.err
	case <-ctx.Done():
		return model.Output{}, ctx.Err()
	}
}

// WorkerID returns the worker that ran the job, or -1 if it never ran.
// It is only meaningful after Done is closed.
func (f *Future) WorkerID() int {
	select {
	case <-f.done:
		return f.workerID
	default:
		return -1
	}
}

// settle stores the outcome and wakes waiters. It reports false if the
// future was already settled, in which case nothing changes.
func (f *Future) settle(workerID int, out model.Output, err error) bool {
	if !f.settled.CompareAndSwap(false, true) {
		return false
	}
	f.workerID = workerID
	f.out = out
	f.err = err
	close(f.done)
	return true
}
