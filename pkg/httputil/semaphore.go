package httputil

import (
	"context"
	"sync/atomic"
)

// Semaphore limits concurrent outbound operations. The persona engine
// uses it to cap in-flight LLM generations: past capacity, requests get
// the canned fallback line instead of queueing goroutines.
type Semaphore struct {
	sem     chan struct{}
	dropped atomic.Int64
}

// NewSemaphore creates a semaphore with the given capacity.
func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = 100
	}
	return &Semaphore{
		sem: make(chan struct{}, capacity),
	}
}

// TryAcquire attempts to acquire a slot without blocking.
// Returns true if acquired, false if at capacity.
func (s *Semaphore) TryAcquire() bool {
	select {
	case s.sem <- struct{}{}:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Acquire blocks until a slot is available or the context is cancelled.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot to the semaphore.
// Must be called after a successful TryAcquire or Acquire.
func (s *Semaphore) Release() {
	select {
	case <-s.sem:
	default:
		// Release without acquire; nothing to do.
	}
}

// DroppedCount returns the number of operations rejected at capacity.
func (s *Semaphore) DroppedCount() int64 {
	return s.dropped.Load()
}

// InFlight returns the number of currently held slots.
func (s *Semaphore) InFlight() int {
	return len(s.sem)
}
