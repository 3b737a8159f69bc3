package guard

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	hcuuid "github.com/hashicorp/go-uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	guarderrors "github.com/mirkobrombin/go-guard/v1/errors"
	"github.com/mirkobrombin/go-guard/v1/metrics"
	"github.com/mirkobrombin/go-guard/v1/watch"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-guard/v1/guard")

// acquirePollInterval paces the polling fallback used when the configured
// locker has TryLock but no native timed or context-aware acquisition.
const acquirePollInterval = 500 * time.Microsecond

// Guard owns a payload of type T and the locker that protects it. The
// payload is never reachable except through an Access created by a
// successful acquisition or inside an apply callback.
type Guard[T any] struct {
	lk    sync.Locker
	value T

	name string
	id   string
	bus  watch.Bus

	holdHist     prometheus.Histogram
	contention   prometheus.Counter
	traceEnabled bool
}

// Option configures a Guard.
type Option[T any] func(*Guard[T])

// WithLocker sets the locker protecting the payload. The locker instance is
// owned by the guard from this point on and must not be used directly.
func WithLocker[T any](l sync.Locker) Option[T] {
	return func(g *Guard[T]) {
		g.lk = l
	}
}

// WithMetrics enables per-guard Prometheus metrics on the provided registerer:
// a hold-duration histogram and a contention counter labelled by guard name.
func WithMetrics[T any](reg prometheus.Registerer, name string) Option[T] {
	return func(g *Guard[T]) {
		g.holdHist = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "guard_hold_seconds",
			Help:        "Time the guard lock was held per acquisition",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: prometheus.Labels{"guard": name},
		})
		g.contention = prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "guard_lock_contention_total",
			Help:        "Acquisition attempts that found the lock held",
			ConstLabels: prometheus.Labels{"guard": name},
		})
		reg.MustRegister(g.holdHist, g.contention)
	}
}

// WithTracing enables OpenTelemetry spans around context-aware acquisitions.
func WithTracing[T any]() Option[T] {
	return func(g *Guard[T]) {
		g.traceEnabled = true
	}
}

// WithEvents publishes acquire/release events for this guard under name on
// the given bus. Delivery is best effort.
func WithEvents[T any](bus watch.Bus, name string) Option[T] {
	return func(g *Guard[T]) {
		g.bus = bus
		g.name = name
		if id, err := hcuuid.GenerateUUID(); err == nil {
			g.id = id
		}
	}
}

// New creates a Guard holding initial, protected by a sync.Mutex unless
// WithLocker overrides it.
func New[T any](initial T, opts ...Option[T]) *Guard[T] {
	g := &Guard[T]{
		lk:    &sync.Mutex{},
		value: initial,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Lock blocks until the lock is acquired and returns a live Access. The
// caller must release it, usually with defer.
func (g *Guard[T]) Lock() *Access[T] {
	if tl, ok := g.lk.(TryLocker); ok {
		if !tl.TryLock() {
			g.contended()
			g.lk.Lock()
		}
	} else {
		g.lk.Lock()
	}
	return g.acquired()
}

// TryLock attempts a non-blocking acquisition. It returns a nil Access and
// false, with no side effects, when the lock is held elsewhere. The
// configured locker must implement TryLocker; calling TryLock on one that
// does not is a programmer error and panics.
func (g *Guard[T]) TryLock() (*Access[T], bool) {
	tl, ok := g.lk.(TryLocker)
	if !ok {
		panic("guard: configured locker does not support TryLock")
	}
	if !tl.TryLock() {
		g.contended()
		return nil, false
	}
	return g.acquired(), true
}

// TryLockFor blocks up to d for the lock. It uses the locker's own timed
// acquisition when available and otherwise polls TryLock. It returns
// errors.ErrTimeout when d elapses first.
func (g *Guard[T]) TryLockFor(d time.Duration) (*Access[T], error) {
	if tl, ok := g.lk.(TimedLocker); ok {
		if !tl.TryLockFor(d) {
			g.contended()
			return nil, guarderrors.ErrTimeout
		}
		return g.acquired(), nil
	}
	tl, ok := g.lk.(TryLocker)
	if !ok {
		panic("guard: configured locker supports neither TryLockFor nor TryLock")
	}
	deadline := time.Now().Add(d)
	contended := false
	for {
		if tl.TryLock() {
			return g.acquired(), nil
		}
		if !contended {
			contended = true
			g.contended()
		}
		if !time.Now().Before(deadline) {
			return nil, guarderrors.ErrTimeout
		}
		time.Sleep(acquirePollInterval)
	}
}

// Acquire blocks until the lock is acquired or ctx is done. Lockers
// implementing ContextLocker are used natively; otherwise TryLock is polled.
func (g *Guard[T]) Acquire(ctx context.Context) (*Access[T], error) {
	var span trace.Span
	var start time.Time
	if g.traceEnabled {
		ctx, span = tracer.Start(ctx, "Guard.Acquire",
			trace.WithAttributes(attribute.String("guard.name", g.name)))
		defer span.End()
		start = time.Now()
		defer func() {
			span.SetAttributes(attribute.Int64("guard.wait_ms", time.Since(start).Milliseconds()))
		}()
	}

	if cl, ok := g.lk.(ContextLocker); ok {
		if err := cl.Acquire(ctx); err != nil {
			return nil, err
		}
		return g.acquired(), nil
	}
	tl, ok := g.lk.(TryLocker)
	if !ok {
		panic("guard: configured locker supports neither Acquire nor TryLock")
	}
	contended := false
	for {
		if tl.TryLock() {
			return g.acquired(), nil
		}
		if !contended {
			contended = true
			g.contended()
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(acquirePollInterval):
		}
	}
}

// With acquires the lock, invokes fn with the payload and releases on all
// exit paths, panics included.
func (g *Guard[T]) With(fn func(*T)) {
	a := g.Lock()
	defer a.Release()
	fn(a.Value())
}

func (g *Guard[T]) acquired() *Access[T] {
	metrics.AcquireCounter.Inc()
	metrics.ActiveGauge.Inc()
	g.publish(StateAcquired, false)
	return &Access[T]{
		value:    &g.value,
		acquired: time.Now(),
		release:  g.releaseExclusive,
	}
}

func (g *Guard[T]) releaseExclusive(held time.Duration) {
	g.lk.Unlock()
	metrics.ReleaseCounter.Inc()
	metrics.ActiveGauge.Dec()
	if g.holdHist != nil {
		g.holdHist.Observe(held.Seconds())
	}
	g.publish(StateReleased, false)
}

func (g *Guard[T]) contended() {
	metrics.ContentionCounter.Inc()
	if g.contention != nil {
		g.contention.Inc()
	}
}

func (g *Guard[T]) publish(state string, shared bool) {
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
