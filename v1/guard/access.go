package guard

import "time"

// Access is a scoped accessor for a guard's payload. It is created only by a
// successful acquisition and must be released exactly once. Using an Access
// after Release or Move is a programmer error and panics.
//
// An Access belongs to the goroutine that acquired it; it is not safe for
// concurrent use.
type Access[T any] struct {
	value    *T
	release  func(held time.Duration)
	acquired time.Time
	released bool
}

// Value returns a reference to the protected payload. The reference must not
// outlive the Access.
func (a *Access[T]) Value() *T {
	if a.released {
		panic("guard: access used after release")
	}
	return a.value
}

// Replace stores v as the payload and returns the previous value.
func (a *Access[T]) Replace(v T) T {
	if a.released {
		panic("guard: access used after release")
	}
	old := *a.value
	*a.value = v
	return old
}

// Release unlocks the guard. It panics when called twice; every acquisition
// releases exactly once.
func (a *Access[T]) Release() {
	if a.released {
		panic("guard: double release")
	}
	a.released = true
	a.release(time.Since(a.acquired))
}

// Move transfers ownership of the held lock to a new Access and invalidates
// the receiver. The hold obligation travels with the returned Access.
func (a *Access[T]) Move() *Access[T] {
	if a.released {
		panic("guard: move of released access")
	}
	a.released = true
	return &Access[T]{
		value:    a.value,
		release:  a.release,
		acquired: a.acquired,
	}
}

// ReadAccess is a scoped shared accessor handed out by RWGuard. Multiple
// ReadAccess instances may be live at once; none of them may mutate the
// payload.
type ReadAccess[T any] struct {
	value    *T
	release  func(held time.Duration)
	acquired time.Time
	released bool
}

// Value returns a copy of the protected payload.
func (r *ReadAccess[T]) Value() T {
	if r.released {
		panic("guard: access used after release")
	}
	return *r.value
}

// Release drops the shared hold. It panics when called twice.
func (r *ReadAccess[T]) Release() {
	if r.released {
		panic("guard: double release")
	}
	r.released = true
	r.release(time.Since(r.acquired))
}
