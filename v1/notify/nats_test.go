package notify

import (
	"context"
	"os"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	nats "github.com/nats-io/nats.go"
)

func newNATSBus(t *testing.T) *NATSBus {
	t.Helper()
	addr := os.Getenv("GUARD_TEST_NATS_ADDR")

	var (
		s    *server.Server
		conn *nats.Conn
		err  error
	)
	if addr != "" {
		t.Logf("TestNATSBus: using real NATS at %s", addr)
		conn, err = nats.Connect(addr)
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
	} else {
		t.Log("TestNATSBus: using embedded NATS server")
		s = natsserver.RunRandClientPortServer()
		conn, err = nats.Connect(s.ClientURL())
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
	}
	t.Cleanup(func() {
		conn.Close()
		if s != nil {
			s.Shutdown()
		}
	})
	return NewNATSBus(conn)
}

func TestNATSBusPublishSubscribe(t *testing.T) {
	bus := newNATSBus(t)
	ctx := context.Background()

	ch, err := bus.Subscribe(ctx, "k")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Publish(ctx, "k"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	expectSignal(t, ch)
}

func TestNATSBusSharedSubscription(t *testing.T) {
	bus := newNATSBus(t)
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

	if err := bus.Unsubscribe(ctx, "k", a); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if err := bus.Publish(ctx, "k"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	expectSignal(t, b)
}
