package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"DailyDigest/internal/domain"
)

// ErrRunnerClosed is returned by Start once Shutdown has begun.
var ErrRunnerClosed = errors.New("runner is shut down")

// Reporter is the write side of the progress record as seen by a running job.
type Reporter interface {
	Update(progress int, message string)
	AppendDetail(lines ...string)
}

// Tracker is the full progress record the runner drives.
type Tracker interface {
	Reporter
	Reset(id string, kind domain.JobKind, message string)
	Complete(message string, result domain.JobResult)
	Fail(message string)
	Snapshot() domain.Job
}

// Outcome is what a job hands back on success.
type Outcome struct {
	Result  domain.JobResult
	Message string
}

// Job is one unit of background work.
type Job struct {
	Kind    domain.JobKind
	Message string
	Run     func(ctx context.Context, rep Reporter) (Outcome, error)
}

// Task is the handle of an accepted job.
type Task struct {
	ID   string
	Kind domain.JobKind

	done    chan struct{}
	outcome Outcome
	err     error
}

// Done is closed when the job has reached a terminal state.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Alive reports whether the job is still executing.
func (t *Task) Alive() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// Wait blocks until the job finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-t.done:
		return t.outcome, t.err
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Runner admits at most one job at a time and runs it in the background.
type Runner struct {
	tracker Tracker
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	current *Task
	closed  bool
}

// NewRunner binds the runner to the progress record it drives.
func NewRunner(tracker Tracker, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{tracker: tracker, logger: logger, ctx: ctx, cancel: cancel}
}

// Start launches job unless another one is alive, in which case it returns domain.ErrJobActive.
func (r *Runner) Start(job Job) (*Task, error) {
	if job.Run == nil {
		return nil, fmt.Errorf("job %s has no body", job.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRunnerClosed
	}
	if r.current != nil && r.current.Alive() {
		return nil, domain.ErrJobActive
	}

	task := &Task{ID: uuid.NewString(), Kind: job.Kind, done: make(chan struct{})}
	r.current = task
	r.tracker.Reset(task.ID, job.Kind, job.Message)

	r.wg.Add(1)
	go r.execute(task, job)

	return task, nil
}

// Run starts job and waits for it. The single-flight rule still applies.
func (r *Runner) Run(ctx context.Context, job Job) (Outcome, error) {
	task, err := r.Start(job)
	if err != nil {
		return Outcome{}, err
	}
	return task.Wait(ctx)
}

// Busy reports whether a job is currently executing.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil && r.current.Alive()
}

// Snapshot exposes the progress record.
func (r *Runner) Snapshot() domain.Job {
	return r.tracker.Snapshot()
}

// Shutdown stops admitting jobs, cancels the running one and waits for it to return.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()

	finished := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running job: %w", ctx.Err())
	}
}

func (r *Runner) execute(task *Task, job Job) {
	logger := r.logger.With("run_id", task.ID, "kind", string(job.Kind))

	defer r.wg.Done()
	defer close(task.done)
	defer func() {
		if rec := recover(); rec != nil {
			task.err = fmt.Errorf("job panicked: %v", rec)
			logger.Error("job panicked", "panic", rec)
			r.tracker.Fail(task.err.Error())
		}
	}()

	logger.Info("job started")

	outcome, err := job.Run(r.ctx, r.tracker)
	task.outcome, task.err = outcome, err
	if err != nil {
		logger.Error("job failed", "error", err)
		r.tracker.Fail(err.Error())
		return
	}

	r.tracker.Complete(outcome.Message, outcome.Result)
	logger.Info("job completed")
}
