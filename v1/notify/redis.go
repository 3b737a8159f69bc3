package notify

import (
	"context"
	stdErrors "errors"
	"sync"
	"sync/atomic"

	redis "github.com/redis/go-redis/v9"

	guarderrors "github.com/mirkobrombin/go-guard/v1/errors"
)

type redisSubscription struct {
	pubsub  *redis.PubSub
	waiters []*subscription
}

// RedisBus implements Bus using Redis pub/sub, letting waiters on one node
// wake when a holder on another node releases.
type RedisBus struct {
	client *redis.Client

	mu        sync.Mutex
	subs      map[string]*redisSubscription
	published atomic.Uint64
	delivered atomic.Uint64
}

// NewRedisBus returns a new RedisBus using the provided client.
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{
		client: client,
		subs:   make(map[string]*redisSubscription),
	}
}

// Publish implements Bus.Publish.
func (b *RedisBus) Publish(ctx context.Context, key string) error {
	err := b.client.Publish(ctx, key, "1").Err()
	if err == nil {
		b.published.Add(1)
		return nil
	}
	if stdErrors.Is(err, redis.ErrClosed) {
		return guarderrors.ErrConnectionClosed
	}
	return err
}

// Subscribe implements Bus.Subscribe. One Redis subscription per key is
// shared by all local waiters.
func (b *RedisBus) Subscribe(ctx context.Context, key string) (chan struct{}, error) {
	w := newSubscription()
	b.mu.Lock()
	sub := b.subs[key]
	if sub == nil {
		ps := b.client.Subscribe(context.Background(), key)
		if _, err := ps.Receive(ctx); err != nil {
			b.mu.Unlock()
			_ = ps.Close()
			return nil, err
		}
		sub = &redisSubscription{pubsub: ps}
		b.subs[key] = sub
		go b.dispatch(key, ps)
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

// dispatch fans Redis messages out to local waiters. It sends while holding
// the bus mutex so Unsubscribe cannot close a channel mid-send.
func (b *RedisBus) dispatch(key string, ps *redis.PubSub) {
	for range ps.Channel() {
		b.mu.Lock()
		sub := b.subs[key]
		if sub == nil {
			b.mu.Unlock()
			return
		}
		for _, w := range sub.waiters {
			select {
			case w.ch <- struct{}{}:
				b.delivered.Add(1)
			default:
			}
		}
		b.mu.Unlock()
	}
}

// Unsubscribe implements Bus.Unsubscribe. The Redis subscription is closed
// when the last local waiter leaves.
func (b *RedisBus) Unsubscribe(ctx context.Context, key string, ch chan struct{}) error {
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
		if err := sub.pubsub.Close(); err != nil {
			if stdErrors.Is(err, redis.ErrClosed) {
				return guarderrors.ErrConnectionClosed
			}
			return err
		}
		return nil
	}
	b.mu.Unlock()
	return nil
}

// Stats returns the published and delivered counts.
func (b *RedisBus) Stats() Metrics {
	return Metrics{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
	}
}
