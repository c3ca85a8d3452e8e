package pool

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/southctrl/yt-cipher/internal/model"
	"github.com/southctrl/yt-cipher/internal/solver"
)

// worker owns one solver and runs the jobs handed to it one at a time.
type worker struct {
	id     int
	solver solver.Solver
	inbox  chan *job
	pool   *Pool
	logger *slog.Logger
}

// run executes jobs until the inbox is closed, then releases the solver.
func (w *worker) run() {
	defer w.closeSolver()
	for j := range w.inbox {
		out, err := w.execute(j)
		w.pool.complete(w, j, out, err)
	}
}

func (w *worker) execute(j *job) (out model.Output, err error) {
	j.startedAt = time.Now().UTC()

	ctx := context.Background()
	if w.pool.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.pool.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("solver panicked", "job_id", j.id, "panic", r)
			out = model.Output{}
			err = fmt.Errorf("solver panic: %v", r)
			w.respawn()
		}
	}()

	if w.solver == nil {
		if err := w.respawn(); err != nil {
			return model.Output{}, err
		}
	}

	return w.solver.Solve(ctx, j.input)
}

// respawn replaces the solver with a fresh one from the pool factory. On
// failure the worker is left without a solver and retries on the next job.
func (w *worker) respawn() error {
	w.closeSolver()
	workerRestarts.Inc()

	s, err := w.pool.factory(w.id)
	if err != nil {
		w.logger.Error("failed to rebuild solver", "error", err)
		return fmt.Errorf("rebuild solver for worker %d: %w", w.id, err)
	}
	w.solver = s
	w.logger.Info("solver rebuilt")
	return nil
}

func (w *worker) closeSolver() {
	if w.solver == nil {
		return
	}
	if err := w.solver.Close(); err != nil {
		w.logger.Warn("close solver", "error", err)
	}
	w.solver = nil
}
