package app

import (
	"context"
	"sync"

	"github.com/bft-labs/mantacam/internal/domain"
)

// ExposureQueue is a single-slot mailbox between the delivery goroutine
// and the exposure waiter. A new frame replaces an unconsumed one.
type ExposureQueue struct {
	mu         sync.Mutex
	frame      *domain.Frame
	closed     bool
	signal     chan struct{}
	done       chan struct{}
	overwrites uint64
}

// NewExposureQueue creates a closed queue. Call Open before use.
func NewExposureQueue() *ExposureQueue {
	done := make(chan struct{})
	close(done)
	return &ExposureQueue{
		closed: true,
		signal: make(chan struct{}, 1),
		done:   done,
	}
}

// Open empties the queue and accepts frames again.
func (q *ExposureQueue) Open() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		return
	}
	q.frame = nil
	q.closed = false
	q.done = make(chan struct{})
	select {
	case <-q.signal:
	default:
	}
}

// Close drops any pending frame and wakes waiters with domain.ErrSessionStopped.
func (q *ExposureQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.frame = nil
	close(q.done)
}

// Put stores f. It reports whether an unconsumed frame was replaced and
// whether f was accepted; a closed queue accepts nothing.
func (q *ExposureQueue) Put(f *domain.Frame) (overwritten, accepted bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false, false
	}
	overwritten = q.frame != nil
	if overwritten {
		q.overwrites++
	}
	q.frame = f
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return overwritten, true
}

// Take blocks until a frame is available, the queue is closed, or ctx is done.
func (q *ExposureQueue) Take(ctx context.Context) (*domain.Frame, error) {
	for {
		q.mu.Lock()
		if f := q.frame; f != nil {
			q.frame = nil
			q.mu.Unlock()
			return f, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, domain.ErrSessionStopped
		}
		done := q.done
		q.mu.Unlock()

		select {
		case <-q.signal:
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Pending reports whether an unconsumed frame is waiting.
func (q *ExposureQueue) Pending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.frame != nil
}

// Discard removes and returns the pending frame, if any.
func (q *ExposureQueue) Discard() *domain.Frame {
	q.mu.Lock()
	defer q.mu.Unlock()
	f := q.frame
	q.frame = nil
	return f
}

// Overwrites returns how many unconsumed frames were replaced.
func (q *ExposureQueue) Overwrites() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.overwrites
}
