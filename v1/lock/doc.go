// Package lock provides locker implementations for use with guard. All of
// them satisfy sync.Locker plus the extended capabilities in v1/guard:
// Mutex is a channel-based local mutex with try, timed and context-aware
// acquisition; Semaphore builds the same surface on x/sync/semaphore; Redis
// is a single-key distributed mutex whose waiters are woken across nodes
// through a notify bus.
package lock
