package app

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
)

// jobRunner owns one TransferJob for its lifetime. All mutation goes through
// update so that every change is published to subscribers.
type jobRunner struct {
	id string

	mu         sync.Mutex
	job        domain.TransferJob
	subs       map[int]chan domain.Progress
	nextSub    int
	bufferSize int
	claims     []string
	finishedAt time.Time

	cancelled atomic.Bool
	done      chan struct{}
}

func newJobRunner(job domain.TransferJob, bufferSize int) *jobRunner {
	return &jobRunner{
		id:         job.ID,
		job:        job,
		subs:       make(map[int]chan domain.Progress),
		bufferSize: bufferSize,
		done:       make(chan struct{}),
	}
}

func (r *jobRunner) snapshot() domain.TransferJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.job.Clone()
}

// update applies fn to the job and publishes the resulting progress.
func (r *jobRunner) update(fn func(job *domain.TransferJob)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.job)
	r.publishLocked()
}

// transition moves the job to next, rejecting non-monotonic moves.
func (r *jobRunner) transition(next domain.TransferState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.job.State.CanTransition(next) {
		return fmt.Errorf("invalid state transition %s -> %s", r.job.State, next)
	}
	r.job.State = next
	r.publishLocked()
	return nil
}

// finish moves the job into a terminal state. Counts are left as they are.
func (r *jobRunner) finish(state domain.TransferState, info *domain.ErrorInfo, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.job.State.CanTransition(state) {
		return
	}
	r.job.State = state
	r.job.Error = info
	r.job.CompletedAt = &at
	r.publishLocked()
}

// publishLocked sends the current progress to every subscriber without
// blocking. A subscriber whose buffer is full misses this update.
func (r *jobRunner) publishLocked() {
	p := r.job.Progress()
	for _, ch := range r.subs {
		select {
		case ch <- p:
		default:
		}
	}
}

func (r *jobRunner) subscribe() (<-chan domain.Progress, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan domain.Progress, r.bufferSize)
	ch <- r.job.Progress()

	select {
	case <-r.done:
		close(ch)
		return ch, func() {}
	default:
	}

	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if c, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(c)
		}
	}
}

// close ends all subscriptions and releases waiters. Called once, after the
// terminal state has been recorded.
func (r *jobRunner) close(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, ch := range r.subs {
		close(ch)
		delete(r.subs, id)
	}
	r.finishedAt = at
	close(r.done)
}

func (r *jobRunner) isCancelled() bool {
	return r.cancelled.Load()
}

func (r *jobRunner) expired(now time.Time, retention time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.finishedAt.IsZero() && now.Sub(r.finishedAt) > retention
}
