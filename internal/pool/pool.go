package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/southctrl/yt-cipher/internal/model"
	"github.com/southctrl/yt-cipher/internal/solver"
)

// ErrClosed is returned for jobs submitted to, or still queued in, a closed
// pool.
var ErrClosed = errors.New("worker pool is closed")

// Recorder persists the history of settled jobs. It is satisfied by
// store.Store.
type Recorder interface {
	RecordJob(ctx context.Context, j *model.JobRecord) error
}

// Stats is a point-in-time snapshot of the pool.
type Stats struct {
	Size   int `json:"workers"`
	Idle   int `json:"idle"`
	Busy   int `json:"busy"`
	Queued int `json:"queued"`
}

type job struct {
	id        string
	input     model.Input
	future    *Future
	queuedAt  time.Time
	startedAt time.Time
}

// Pool runs jobs on a fixed number of workers.
type Pool struct {
	factory  solver.Factory
	timeout  time.Duration
	recorder Recorder
	logger   *slog.Logger

	mu      sync.Mutex
	queue   []*job
	idle    []*worker
	workers []*worker
	closed  bool

	wg sync.WaitGroup

	// History is written off the worker goroutines so a slow store never
	// delays the next job.
	records     chan *model.JobRecord
	recordsDone chan struct{}
}

// recordBuffer bounds the number of settled jobs awaiting persistence.
const recordBuffer = 256

// New builds size workers, each with its own solver from factory, and starts
// them. timeout bounds the run time of every job; zero disables it. recorder
// may be nil.
func New(size int, factory solver.Factory, timeout time.Duration, recorder Recorder, logger *slog.Logger) (*Pool, error) {
	if size < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", size)
	}

	p := &Pool{
		factory:  factory,
		timeout:  timeout,
		recorder: recorder,
		logger:   logger,
	}

	for id := 0; id < size; id++ {
		s, err := factory(id)
		if err != nil {
			for _, w := range p.workers {
				w.closeSolver()
			}
			return nil, fmt.Errorf("create solver for worker %d: %w", id, err)
		}
		w := &worker{
			id:     id,
			solver: s,
			inbox:  make(chan *job, 1),
			pool:   p,
			logger: logger.With("worker_id", id),
		}
		p.workers = append(p.workers, w)
		p.idle = append(p.idle, w)
	}

	if recorder != nil {
		p.records = make(chan *model.JobRecord, recordBuffer)
		p.recordsDone = make(chan struct{})
		go p.persist()
	}

	for _, w := range p.workers {
		p.wg.Go(w.run)
	}

	p.mu.Lock()
	p.updateGaugesLocked()
	p.mu.Unlock()

	logger.Info("worker pool started", "workers", size, "job_timeout", timeout.String())
	return p, nil
}

// Submit enqueues in and returns its Future without waiting for execution.
func (p *Pool) Submit(in model.Input) *Future {
	j := &job{
		id:       model.NewID(),
		input:    in,
		queuedAt: time.Now().UTC(),
	}
	j.future = newFuture(j.id)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		j.future.settle(-1, model.Output{}, ErrClosed)
		return j.future
	}

	p.queue = append(p.queue, j)
	p.dispatchLocked()
	return j.future
}

// Exec submits in and waits for its outcome or for ctx to be done.
func (p *Pool) Exec(ctx context.Context, in model.Input) (model.Output, error) {
	return p.Submit(in).Wait(ctx)
}

// Stats returns the current worker and queue counts.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Size:   len(p.workers),
		Idle:   len(p.idle),
		Busy:   len(p.workers) - len(p.idle),
		Queued: len(p.queue),
	}
}

// Close rejects queued jobs with ErrClosed, waits for running jobs to
// finish, flushes pending history and releases every solver. It is safe to
// call more than once.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	queued := p.queue
	p.queue = nil
	for _, w := range p.workers {
		close(w.inbox)
	}
	p.updateGaugesLocked()
	p.mu.Unlock()

	for _, j := range queued {
		j.future.settle(-1, model.Output{}, ErrClosed)
	}

	p.wg.Wait()
	if p.records != nil {
		close(p.records)
		<-p.recordsDone
	}
	p.logger.Info("worker pool stopped", "rejected_jobs", len(queued))
	return nil
}

// dispatchLocked pairs queued jobs with idle workers in FIFO order.
// p.mu must be held.
func (p *Pool) dispatchLocked() {
	for !p.closed && len(p.queue) > 0 && len(p.idle) > 0 {
		j := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]

		w := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]

		// An idle worker's inbox is always empty, so this never blocks.
		w.inbox <- j
	}
	p.updateGaugesLocked()
}

// complete returns w to the idle set, settles the job and dispatches the
// next queued job.
func (p *Pool) complete(w *worker, j *job, out model.Output, err error) {
	finished := time.Now().UTC()

	p.mu.Lock()
	p.idle = append(p.idle, w)
	p.mu.Unlock()

	j.future.settle(w.id, out, err)

	p.mu.Lock()
	p.dispatchLocked()
	p.mu.Unlock()

	p.record(w, j, out, err, finished)
}

func (p *Pool) record(w *worker, j *job, out model.Output, err error, finished time.Time) {
	if err == nil {
		err = solver.OutputError(out)
	}

	status := model.StatusCompleted
	var errMsg string
	if err != nil {
		status = model.StatusFailed
		errMsg = err.Error()
	}

	wait := j.startedAt.Sub(j.queuedAt)
	run := finished.Sub(j.startedAt)

	jobsTotal.WithLabelValues(status).Inc()
	jobWait.Observe(wait.Seconds())
	jobDuration.Observe(run.Seconds())

	w.logger.Debug("job settled",
		"job_id", j.id,
		"status", status,
		"wait_ms", wait.Milliseconds(),
		"duration_ms", run.Milliseconds(),
	)

	if p.records == nil {
		return
	}

	rec := &model.JobRecord{
		ID:         j.id,
		Status:     status,
		PlayerURL:  j.input.PlayerURL,
		WorkerID:   w.id,
		SigCount:   j.input.CountChallenges(model.KindSignature),
		NSigCount:  j.input.CountChallenges(model.KindNParam),
		Error:      errMsg,
		WaitMS:     int(wait.Milliseconds()),
		DurationMS: int(run.Milliseconds()),
		QueuedAt:   j.queuedAt,
		StartedAt:  j.startedAt,
		FinishedAt: finished,
	}
	p.records <- rec
}

// persist writes queued job records until Close drains the channel.
func (p *Pool) persist() {
	defer close(p.recordsDone)
	for rec := range p.records {
		if err := p.recorder.RecordJob(context.Background(), rec); err != nil {
			p.logger.Error("failed to record job", "job_id", rec.ID, "error", err)
		}
	}
}

// updateGaugesLocked publishes worker and queue counts. p.mu must be held.
func (p *Pool) updateGaugesLocked() {
	idle := len(p.idle)
	workersGauge.WithLabelValues(stateIdle).Set(float64(idle))
	workersGauge.WithLabelValues(stateBusy).Set(float64(len(p.workers) - idle))
	queueDepth.Set(float64(len(p.queue)))
}
