// Package notify provides a signal-only pub/sub bus used to wake lock
// waiters across nodes. Delivery is best effort and duplicates are possible;
// lockers must always re-check the lock state after a wakeup and never rely
// on a signal as proof of availability.
package notify
