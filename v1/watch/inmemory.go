package watch

import (
	"context"
	"strings"
	"sync"
)

// watcher pairs a subscriber channel with a done signal fired on removal, so
// the goroutine watching the subscriber's context never outlives the
// subscription.
type watcher struct {
	ch   chan []byte
	done chan struct{}
}

func newWatcher() *watcher {
	return &watcher{
		ch:   make(chan []byte, 16),
		done: make(chan struct{}),
	}
}

// InMemoryBus is a process-local implementation of Bus.
type InMemoryBus struct {
	mu       sync.Mutex
	subs     map[string][]*watcher
	prefixes map[string][]*watcher
}

// NewInMemory creates a new InMemoryBus.
func NewInMemory() *InMemoryBus {
	return &InMemoryBus{
		subs:     make(map[string][]*watcher),
		prefixes: make(map[string][]*watcher),
	}
}

// Publish sends data to all watchers of key and to all matching prefix
// watchers. Delivery happens under the bus mutex so a concurrent Unwatch
// cannot close a channel mid-send; the sends are non-blocking.
func (b *InMemoryBus) Publish(ctx context.Context, key string, data []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	b.mu.Lock()
	for _, w := range b.subs[key] {
		select {
		case w.ch <- data:
		default:
		}
	}
	for prefix, watchers := range b.prefixes {
		if strings.HasPrefix(key, prefix) {
			for _, w := range watchers {
				select {
				case w.ch <- data:
				default:
				}
			}
		}
	}
	b.mu.Unlock()
	return nil
}

// Watch subscribes to key and returns a channel receiving payloads.
func (b *InMemoryBus) Watch(ctx context.Context, key string) (chan []byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	w := newWatcher()
	b.mu.Lock()
	b.subs[key] = append(b.subs[key], w)
	b.mu.Unlock()
	go func() {
		select {
		case <-ctx.Done():
			_ = b.Unwatch(context.Background(), key, w.ch)
		case <-w.done:
		}
	}()
	return w.ch, nil
}

// WatchPrefix subscribes to every key starting with prefix.
func (b *InMemoryBus) WatchPrefix(ctx context.Context, prefix string) (chan []byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	w := newWatcher()
	b.mu.Lock()
	b.prefixes[prefix] = append(b.prefixes[prefix], w)
	b.mu.Unlock()
	go func() {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			b.removeLocked(b.prefixes, prefix, w.ch)
			b.mu.Unlock()
		case <-w.done:
		}
	}()
	return w.ch, nil
}

// Unwatch removes the channel from key watchers.
func (b *InMemoryBus) Unwatch(ctx context.Context, key string, ch chan []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	b.mu.Lock()
	b.removeLocked(b.subs, key, ch)
	b.removeLocked(b.prefixes, key, ch)
	b.mu.Unlock()
	return nil
}

func (b *InMemoryBus) removeLocked(m map[string][]*watcher, key string, ch chan []byte) {
	watchers := m[key]
	for i, w := range watchers {
		if w.ch == ch {
			watchers[i] = watchers[len(watchers)-1]
			watchers = watchers[:len(watchers)-1]
			m[key] = watchers
			close(w.done)
			close(w.ch)
			break
		}
	}
	if len(watchers) == 0 {
		delete(m, key)
	}
}
