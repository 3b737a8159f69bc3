package watch

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

func newTestRedisBus(t *testing.T) *RedisBus {
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

func TestRedisWatchPublish(t *testing.T) {
	bus := newTestRedisBus(t)
	ctx := context.Background()

	ch, err := bus.Watch(ctx, "guard:a")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := bus.Publish(ctx, "guard:a", []byte("e1")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	expectPayload(t, ch, "e1")
}

func TestRedisWatchPrefix(t *testing.T) {
	bus := newTestRedisBus(t)
	ctx := context.Background()

	ch, err := bus.WatchPrefix(ctx, "guard:")
	if err != nil {
		t.Fatalf("watch prefix: %v", err)
	}
	if err := bus.Publish(ctx, "guard:a", []byte("ea")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	expectPayload(t, ch, "ea")
}

func TestRedisUnwatchClosesChannel(t *testing.T) {
	bus := newTestRedisBus(t)
	ctx := context.Background()

	ch, err := bus.Watch(ctx, "guard:a")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := bus.Unwatch(ctx, "guard:a", ch); err != nil {
		t.Fatalf("unwatch: %v", err)
	}
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("unexpected payload after unwatch")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unwatch")
	}
}
