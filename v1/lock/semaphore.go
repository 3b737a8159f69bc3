package lock

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Semaphore is a mutual exclusion lock built on a weighted semaphore of
// capacity one. Waiters are woken in FIFO order, which neither sync.Mutex
// nor Mutex guarantees.
type Semaphore struct {
	sem *semaphore.Weighted
}

// NewSemaphore returns a new unlocked Semaphore.
func NewSemaphore() *Semaphore {
	return &Semaphore{sem: semaphore.NewWeighted(1)}
}

// Lock blocks until the semaphore is acquired.
func (s *Semaphore) Lock() {
	// Acquire only fails when the context is done, which cannot happen here.
	_ = s.sem.Acquire(context.Background(), 1)
}

// Unlock releases the semaphore. It panics if the semaphore is not held.
func (s *Semaphore) Unlock() {
	s.sem.Release(1)
}

// TryLock attempts to acquire the semaphore without blocking.
func (s *Semaphore) TryLock() bool {
	return s.sem.TryAcquire(1)
}

// Acquire blocks until the semaphore is acquired or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	return s.sem.Acquire(ctx, 1)
}
