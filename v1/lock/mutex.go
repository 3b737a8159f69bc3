package lock

import (
	"context"
	"time"
)

// Mutex is a channel-based mutual exclusion lock. Unlike sync.Mutex it
// supports timed and context-aware acquisition natively. The zero value is
// not usable; create instances with NewMutex.
type Mutex struct {
	ch chan struct{}
}

// NewMutex returns a new unlocked Mutex.
func NewMutex() *Mutex {
	return &Mutex{ch: make(chan struct{}, 1)}
}

// Lock blocks until the mutex is acquired.
func (m *Mutex) Lock() {
	m.ch <- struct{}{}
}

// Unlock releases the mutex. It panics if the mutex is not locked.
func (m *Mutex) Unlock() {
	select {
	case <-m.ch:
	default:
		panic("lock: unlock of unlocked Mutex")
	}
}

// TryLock attempts to acquire the mutex without blocking.
func (m *Mutex) TryLock() bool {
	select {
	case m.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// TryLockFor blocks up to d for the mutex and reports whether it was
// acquired.
func (m *Mutex) TryLockFor(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case m.ch <- struct{}{}:
		return true
	case <-timer.C:
		return false
	}
}

// Acquire blocks until the mutex is acquired or ctx is done.
func (m *Mutex) Acquire(ctx context.Context) error {
	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
