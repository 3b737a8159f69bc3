package guard

// Apply acquires g, invokes fn with the payload and releases the lock on all
// exit paths, returning fn's result. It is the operation-passing alternative
// to holding an Access. Go methods cannot introduce type parameters, hence
// the package-level form.
func Apply[T, R any](g *Guard[T], fn func(*T) R) R {
	a := g.Lock()
	defer a.Release()
	return fn(a.Value())
}

// ApplyErr is Apply for operations that can fail. The lock is released
// whether or not fn returns an error.
func ApplyErr[T, R any](g *Guard[T], fn func(*T) (R, error)) (R, error) {
	a := g.Lock()
	defer a.Release()
	return fn(a.Value())
}

// Snapshot takes a shared hold on g, invokes fn with a copy of the payload
// and releases, returning fn's result.
func Snapshot[T, R any](g *RWGuard[T], fn func(T) R) R {
	r := g.RLock()
	defer r.Release()
	return fn(r.Value())
}
