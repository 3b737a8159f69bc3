package guard

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	hcuuid "github.com/hashicorp/go-uuid"

	"github.com/mirkobrombin/go-guard/v1/metrics"
	"github.com/mirkobrombin/go-guard/v1/watch"
)

// RWGuard owns a payload protected by an RWLocker. Exclusive accessors
// behave like Guard's; shared accessors may coexist and expose the payload
// read-only.
type RWGuard[T any] struct {
	lk    RWLocker
	value T

	name string
	id   string
	bus  watch.Bus
}

// RWOption configures an RWGuard.
type RWOption[T any] func(*RWGuard[T])

// WithRWLocker sets the locker protecting the payload.
func WithRWLocker[T any](l RWLocker) RWOption[T] {
	return func(g *RWGuard[T]) {
		g.lk = l
	}
}

// WithRWEvents publishes acquire/release events for this guard under name.
func WithRWEvents[T any](bus watch.Bus, name string) RWOption[T] {
	return func(g *RWGuard[T]) {
		g.bus = bus
		g.name = name
		if id, err := hcuuid.GenerateUUID(); err == nil {
			g.id = id
		}
	}
}

// NewRW creates an RWGuard holding initial, protected by a sync.RWMutex
// unless WithRWLocker overrides it.
func NewRW[T any](initial T, opts ...RWOption[T]) *RWGuard[T] {
	g := &RWGuard[T]{
		lk:    &sync.RWMutex{},
		value: initial,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Lock blocks until exclusive acquisition and returns a live Access.
func (g *RWGuard[T]) Lock() *Access[T] {
	g.lk.Lock()
	return g.acquired()
}

// TryLock attempts a non-blocking exclusive acquisition. The configured
// locker must implement TryRWLocker.
func (g *RWGuard[T]) TryLock() (*Access[T], bool) {
	tl, ok := g.lk.(TryRWLocker)
	if !ok {
		panic("guard: configured locker does not support TryLock")
	}
	if !tl.TryLock() {
		metrics.ContentionCounter.Inc()
		return nil, false
	}
	return g.acquired(), true
}

// RLock blocks until shared acquisition and returns a live ReadAccess.
// Multiple ReadAccess instances may be live at once.
func (g *RWGuard[T]) RLock() *ReadAccess[T] {
	g.lk.RLock()
	return g.acquiredShared()
}

// TryRLock attempts a non-blocking shared acquisition. The configured locker
// must implement TryRWLocker.
func (g *RWGuard[T]) TryRLock() (*ReadAccess[T], bool) {
	tl, ok := g.lk.(TryRWLocker)
	if !ok {
		panic("guard: configured locker does not support TryRLock")
	}
	if !tl.TryRLock() {
		metrics.ContentionCounter.Inc()
		return nil, false
	}
	return g.acquiredShared(), true
}

// With acquires exclusively, invokes fn with the payload and releases on all
// exit paths.
func (g *RWGuard[T]) With(fn func(*T)) {
	a := g.Lock()
	defer a.Release()
	fn(a.Value())
}

// View acquires a shared hold, invokes fn with a copy of the payload and
// releases on all exit paths.
func (g *RWGuard[T]) View(fn func(T)) {
	r := g.RLock()
	defer r.Release()
	fn(r.Value())
}

func (g *RWGuard[T]) acquired() *Access[T] {
	metrics.AcquireCounter.Inc()
	metrics.ActiveGauge.Inc()
	g.publish(StateAcquired, false)
	return &Access[T]{
		value:    &g.value,
		acquired: time.Now(),
		release: func(time.Duration) {
			g.lk.Unlock()
			metrics.ReleaseCounter.Inc()
			metrics.ActiveGauge.Dec()
			g.publish(StateReleased, false)
		},
	}
}

func (g *RWGuard[T]) acquiredShared() *ReadAccess[T] {
	metrics.AcquireCounter.Inc()
	metrics.ActiveGauge.Inc()
	g.publish(StateAcquired, true)
	return &ReadAccess[T]{
		value:    &g.value,
		acquired: time.Now(),
		release: func(time.Duration) {
			g.lk.RUnlock()
			metrics.ReleaseCounter.Inc()
			metrics.ActiveGauge.Dec()
			g.publish(StateReleased, true)
		},
	}
}

func (g *RWGuard[T]) publish(state string, shared bool) {
	if g.bus == nil {
		return
	}
	evt := Event{
		Guard:  g.name,
		Holder: g.id,
		State:  state,
		Shared: shared,
		At:     time.Now().UnixMilli(),
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	_ = g.bus.Publish(context.Background(), Topic(g.name), data)
}
