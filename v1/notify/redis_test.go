package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func newRedisBus(t *testing.T) *RedisBus {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return NewRedisBus(client)
}

func TestRedisBusPublishSubscribe(t *testing.T) {
	bus := newRedisBus(t)
	ctx := context.Background()

	ch, err := bus.Subscribe(ctx, "k")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Publish(ctx, "k"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	expectSignal(t, ch)
	if p := bus.Stats().Published; p != 1 {
		t.Fatalf("expected 1 published, got %d", p)
	}
}

func TestRedisBusSharedSubscription(t *testing.T) {
	bus := newRedisBus(t)
	ctx := context.Background()

	a, err := bus.Subscribe(ctx, "k")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	b, err := bus.Subscribe(ctx, "k")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Publish(ctx, "k"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	expectSignal(t, a)
	expectSignal(t, b)
}

func TestRedisBusUnsubscribe(t *testing.T) {
	bus := newRedisBus(t)
	ctx := context.Background()

	ch, err := bus.Subscribe(ctx, "k")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Unsubscribe(ctx, "k", ch); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if _, ok := <-ch; ok {
		t.Fatal("channel not closed after unsubscribe")
	}
	// Re-subscribing after the shared subscription was torn down must work.
	ch2, err := bus.Subscribe(ctx, "k")
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	if err := bus.Publish(ctx, "k"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case <-ch2:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for signal after resubscribe")
	}
}
