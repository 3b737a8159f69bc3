package notify

import (
	"context"
	"sync"
	"sync/atomic"

	nats "github.com/nats-io/nats.go"
)

type natsSubscription struct {
	sub     *nats.Subscription
	waiters []*subscription
}

// NATSBus implements Bus using a NATS backend.
type NATSBus struct {
	conn *nats.Conn

	mu        sync.Mutex
	subs      map[string]*natsSubscription
	published atomic.Uint64
	delivered atomic.Uint64
}

// NewNATSBus returns a new NATSBus using the provided connection.
func NewNATSBus(conn *nats.Conn) *NATSBus {
	return &NATSBus{
		conn: conn,
		subs: make(map[string]*natsSubscription),
	}
}

// Publish implements Bus.Publish.
func (b *NATSBus) Publish(ctx context.Context, key string) error {
	if err := b.conn.Publish(key, []byte("1")); err != nil {
		return err
	}
	b.published.Add(1)
	return nil
}

// Subscribe implements Bus.Subscribe. One NATS subscription per subject is
// shared by all local waiters. The handler sends while holding the bus mutex
// so Unsubscribe cannot close a channel mid-send.
func (b *NATSBus) Subscribe(ctx context.Context, key string) (chan struct{}, error) {
	w := newSubscription()
	b.mu.Lock()
	sub := b.subs[key]
	if sub == nil {
		ns, err := b.conn.Subscribe(key, func(_ *nats.Msg) {
			b.mu.Lock()
			cur := b.subs[key]
			if cur == nil {
				b.mu.Unlock()
				return
			}
			for _, w := range cur.waiters {
				select {
				case w.ch <- struct{}{}:
					b.delivered.Add(1)
				default:
				}
			}
			b.mu.Unlock()
		})
		if err != nil {
			b.mu.Unlock()
			return nil, err
		}
		sub = &natsSubscription{sub: ns}
		b.subs[key] = sub
	}
	sub.waiters = append(sub.waiters, w)
	b.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = b.Unsubscribe(context.Background(), key, w.ch)
		case <-w.done:
		}
	}()
	return w.ch, nil
}

// Unsubscribe implements Bus.Unsubscribe.
func (b *NATSBus) Unsubscribe(ctx context.Context, key string, ch chan struct{}) error {
	b.mu.Lock()
	sub := b.subs[key]
	if sub == nil {
		b.mu.Unlock()
		return nil
	}
	for i, w := range sub.waiters {
		if w.ch == ch {
			sub.waiters[i] = sub.waiters[len(sub.waiters)-1]
			sub.waiters = sub.waiters[:len(sub.waiters)-1]
			close(w.done)
			close(w.ch)
			break
		}
	}
	if len(sub.waiters) == 0 {
		delete(b.subs, key)
		b.mu.Unlock()
		return sub.sub.Unsubscribe()
	}
	b.mu.Unlock()
	return nil
}

// Stats returns the published and delivered counts.
func (b *NATSBus) Stats() Metrics {
	return Metrics{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
	}
}
