// Package progress owns the single observable job record.
//
// The record lives inside one goroutine; every mutation and every snapshot is
// a closure sent to it over a channel, so readers never see a half-updated job.
package progress

import (
	"sync"
	"time"

	"DailyDigest/internal/domain"
)

// Tracker is the channel-backed owner of the current job record.
type Tracker struct {
	ops       chan func(*domain.Job)
	done      chan struct{}
	closeOnce sync.Once
	now       func() time.Time
}

// NewTracker starts the owning goroutine with an idle record.
func NewTracker() *Tracker {
	t := &Tracker{
		ops:  make(chan func(*domain.Job)),
		done: make(chan struct{}),
		now:  time.Now,
	}
	go t.loop()
	return t
}

func (t *Tracker) loop() {
	job := domain.Job{Status: domain.JobIdle, Details: []string{}}
	for {
		select {
		case op := <-t.ops:
			op(&job)
		case <-t.done:
			return
		}
	}
}

func (t *Tracker) do(op func(*domain.Job)) bool {
	select {
	case t.ops <- op:
		return true
	case <-t.done:
		return false
	}
}

// Reset starts a fresh run: running, zero progress, empty details, no result.
func (t *Tracker) Reset(id string, kind domain.JobKind, message string) {
	started := t.now()
	t.do(func(j *domain.Job) {
		*j = domain.Job{
			ID:        id,
			Kind:      kind,
			Status:    domain.JobRunning,
			Message:   message,
			Details:   []string{},
			StartedAt: &started,
		}
	})
}

// Update raises progress and replaces the message. Lower values never move progress back.
func (t *Tracker) Update(progress int, message string) {
	t.do(func(j *domain.Job) {
		if j.Status != domain.JobRunning {
			return
		}
		if progress > 100 {
			progress = 100
		}
		if progress > j.Progress {
			j.Progress = progress
		}
		if message != "" {
			j.Message = message
		}
	})
}

// AppendDetail adds human-readable lines to the running job.
func (t *Tracker) AppendDetail(lines ...string) {
	if len(lines) == 0 {
		return
	}
	t.do(func(j *domain.Job) {
		if j.Status != domain.JobRunning {
			return
		}
		j.Details = append(j.Details, lines...)
	})
}

// Complete moves a running job to completed with progress 100.
func (t *Tracker) Complete(message string, result domain.JobResult) {
	finished := t.now()
	t.do(func(j *domain.Job) {
		if j.Status != domain.JobRunning {
			return
		}
		j.Status = domain.JobCompleted
		j.Progress = 100
		if message != "" {
			j.Message = message
		}
		j.Result = result
		j.FinishedAt = &finished
	})
}

// Fail moves a running job to error. The message is never left empty.
func (t *Tracker) Fail(message string) {
	if message == "" {
		message = "job failed"
	}
	finished := t.now()
	t.do(func(j *domain.Job) {
		if j.Status != domain.JobRunning {
			return
		}
		j.Status = domain.JobError
		j.Message = message
		j.FinishedAt = &finished
	})
}

// Snapshot returns a deep copy of the record.
func (t *Tracker) Snapshot() domain.Job {
	reply := make(chan domain.Job, 1)
	if !t.do(func(j *domain.Job) { reply <- clone(*j) }) {
		return domain.Job{Status: domain.JobIdle, Details: []string{}}
	}
	return <-reply
}

// Close stops the owning goroutine. Later calls become no-ops.
func (t *Tracker) Close() {
	t.closeOnce.Do(func() { close(t.done) })
}

func clone(j domain.Job) domain.Job {
	details := make([]string, len(j.Details))
	copy(details, j.Details)
	j.Details = details
	if j.StartedAt != nil {
		started := *j.StartedAt
		j.StartedAt = &started
	}
	if j.FinishedAt != nil {
		finished := *j.FinishedAt
		j.FinishedAt = &finished
	}
	return j
}
