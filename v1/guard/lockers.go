package guard

import (
	"context"
	"sync"
	"time"
)

// TryLocker is a sync.Locker that can attempt a non-blocking acquisition.
// sync.Mutex and the lockers in v1/lock implement it.
type TryLocker interface {
	sync.Locker
	TryLock() bool
}

// TimedLocker is a sync.Locker with a native timed acquisition. Lockers
// without it still get TryLockFor through a polling fallback on TryLocker.
type TimedLocker interface {
	sync.Locker
	TryLockFor(d time.Duration) bool
}

// ContextLocker is a sync.Locker whose blocking acquisition can be canceled
// through a context.
type ContextLocker interface {
	sync.Locker
	Acquire(ctx context.Context) error
}

// RWLocker is a locker that distinguishes shared from exclusive acquisition.
// sync.RWMutex implements it.
type RWLocker interface {
	sync.Locker
	RLock()
	RUnlock()
}

// TryRWLocker is an RWLocker that can attempt both modes without blocking.
type TryRWLocker interface {
	RWLocker
	TryLock() bool
	TryRLock() bool
}
