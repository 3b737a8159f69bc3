package watch

import "context"

// Bus streams guard state events to observers. Guards publish an encoded
// event every time they change state; clients watch a single guard or a
// whole prefix of guard names.
type Bus interface {
	// Publish sends the payload to all watchers of key.
	Publish(ctx context.Context, key string, data []byte) error
	// Watch subscribes to payloads for key. The returned channel receives
	// payloads until the context is canceled or Unwatch is called.
	Watch(ctx context.Context, key string) (chan []byte, error)
	// WatchPrefix subscribes to payloads for every key with the given prefix.
	WatchPrefix(ctx context.Context, prefix string) (chan []byte, error)
	// Unwatch stops delivering payloads for key to ch.
	Unwatch(ctx context.Context, key string, ch chan []byte) error
}
