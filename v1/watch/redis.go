package watch

import (
	"context"
	"sync"

	redis "github.com/redis/go-redis/v9"
)

// RedisBus implements Bus on top of Redis pub/sub. Events are fire and
// forget: watchers that connect after an event was published do not see it.
type RedisBus struct {
	client *redis.Client

	mu      sync.Mutex
	cancels map[chan []byte]context.CancelFunc
}

// NewRedisBus creates a new RedisBus using the provided client.
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{
		client:  client,
		cancels: make(map[chan []byte]context.CancelFunc),
	}
}

// Publish implements Bus.Publish.
func (b *RedisBus) Publish(ctx context.Context, key string, data []byte) error {
	return b.client.Publish(ctx, key, data).Err()
}

// Watch implements Bus.Watch.
func (b *RedisBus) Watch(ctx context.Context, key string) (chan []byte, error) {
	ps := b.client.Subscribe(ctx, key)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	return b.stream(ctx, ps), nil
}

// WatchPrefix implements Bus.WatchPrefix using a pattern subscription.
func (b *RedisBus) WatchPrefix(ctx context.Context, prefix string) (chan []byte, error) {
	ps := b.client.PSubscribe(ctx, prefix+"*")
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}
	return b.stream(ctx, ps), nil
}

func (b *RedisBus) stream(ctx context.Context, ps *redis.PubSub) chan []byte {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan []byte, 16)

	b.mu.Lock()
	b.cancels[ch] = cancel
	b.mu.Unlock()

	go func() {
		defer func() {
			b.mu.Lock()
			delete(b.cancels, ch)
			b.mu.Unlock()
			_ = ps.Close()
			close(ch)
		}()
		for {
			select {
			case msg, ok := <-ps.Channel():
				if !ok {
					return
				}
				select {
				case ch <- []byte(msg.Payload):
				default:
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Unwatch implements Bus.Unwatch.
func (b *RedisBus) Unwatch(ctx context.Context, key string, ch chan []byte) error {
	b.mu.Lock()
	cancel := b.cancels[ch]
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}
