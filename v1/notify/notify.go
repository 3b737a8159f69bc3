package notify

import (
	"context"
	"sync"
	"sync/atomic"
)

// Bus propagates release signals between lock holders and waiters. Keys are
// lock identities; payloads carry no data.
type Bus interface {
	Publish(ctx context.Context, key string) error
	Subscribe(ctx context.Context, key string) (chan struct{}, error)
	Unsubscribe(ctx context.Context, key string, ch chan struct{}) error
}

// Metrics reports publish and delivery counts for a bus.
type Metrics struct {
	Published uint64
	Delivered uint64
}

// subscription pairs a waiter channel with a done signal fired on
// Unsubscribe, so the goroutine watching the subscriber's context never
// outlives the subscription.
type subscription struct {
	ch   chan struct{}
	done chan struct{}
}

func newSubscription() *subscription {
	return &subscription{
		ch:   make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// InMemoryBus is a process-local implementation of Bus.
type InMemoryBus struct {
	mu        sync.Mutex
	subs      map[string][]*subscription
	published atomic.Uint64
	delivered atomic.Uint64
}

// NewInMemoryBus returns a new InMemoryBus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{subs: make(map[string][]*subscription)}
}

// Publish implements Bus.Publish. Delivery happens under the bus mutex so a
// concurrent Unsubscribe cannot close a channel mid-send; the sends are
// non-blocking, so the hold is bounded.
func (b *InMemoryBus) Publish(ctx context.Context, key string) error {
	b.published.Add(1)
	b.mu.Lock()
	for _, s := range b.subs[key] {
		select {
		case s.ch <- struct{}{}:
			b.delivered.Add(1)
		default:
		}
	}
	b.mu.Unlock()
	return nil
}

// Subscribe implements Bus.Subscribe. The subscription ends when ctx is done
// or Unsubscribe is called.
func (b *InMemoryBus) Subscribe(ctx context.Context, key string) (chan struct{}, error) {
	sub := newSubscription()
	b.mu.Lock()
	b.subs[key] = append(b.subs[key], sub)
	b.mu.Unlock()
	go func() {
		select {
		case <-ctx.Done():
			_ = b.Unsubscribe(context.Background(), key, sub.ch)
		case <-sub.done:
		}
	}()
	return sub.ch, nil
}

// Unsubscribe implements Bus.Unsubscribe.
func (b *InMemoryBus) Unsubscribe(ctx context.Context, key string, ch chan struct{}) error {
	b.mu.Lock()
	subs := b.subs[key]
	for i, s := range subs {
		if s.ch == ch {
			subs[i] = subs[len(subs)-1]
			subs = subs[:len(subs)-1]
			b.subs[key] = subs
			close(s.done)
			close(s.ch)
			break
		}
	}
	if len(subs) == 0 {
		delete(b.subs, key)
	}
	b.mu.Unlock()
	return nil
}

// Stats returns the published and delivered counts.
func (b *InMemoryBus) Stats() Metrics {
	return Metrics{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
	}
}
