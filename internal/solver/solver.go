package solver

import (
	"context"
	"errors"

	"github.com/southctrl/yt-cipher/internal/model"
)

// Solver runs the deobfuscation engine against one Input. Implementations
// are not required to be safe for concurrent use: the pool gives every
// worker its own instance and calls it from a single goroutine.
type Solver interface {
	// Solve decodes the challenges in in. The context carries the per-job
	// deadline; implementations must stop promptly once it is done.
	Solve(ctx context.Context, in model.Input) (model.Output, error)

	// Close releases the instance. It is called when a worker rebuilds its
	// solver or the pool shuts down.
	Close() error
}

// Factory creates a fresh Solver for one worker slot.
type Factory func(workerID int) (Solver, error)

// Error is a failure reported by the engine itself, as opposed to a failure
// to reach it. Stack carries the script stack trace when one is available.
type Error struct {
	Message string
	Stack   string
}

func (e *Error) Error() string {
	return e.Message
}

// ErrTimeout is returned when a job exceeds its deadline inside the engine.
var ErrTimeout = errors.New("solver timed out")

// OutputError converts a whole-input failure reported in the output into an
// *Error, or returns nil for a successful output.
func OutputError(out model.Output) error {
	if out.Type == model.OutputError {
		msg := out.Error
		if msg == "" {
			msg = "solver reported an error"
		}
		return &Error{Message: msg}
	}
	return nil
}
