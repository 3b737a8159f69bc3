package watch

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// publishUntil republishes key until stop is closed so a handler that is
// still setting up its subscription cannot miss the event.
func publishUntil(bus Bus, key string, data []byte, stop chan struct{}) {
	ctx := context.Background()
	for {
		select {
		case <-stop:
			return
		default:
			_ = bus.Publish(ctx, key, data)
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestSSEHandlerStreamsEvents(t *testing.T) {
	bus := NewInMemory()
	srv := httptest.NewServer(SSEHandler(bus))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "?guard=guard:a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	stop := make(chan struct{})
	defer close(stop)
	go publishUntil(bus, "guard:a", []byte("hello"), stop)

	scanner := bufio.NewScanner(resp.Body)
	deadline := time.Now().Add(2 * time.Second)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			if got := strings.TrimPrefix(line, "data: "); got != "hello" {
				t.Fatalf("unexpected payload %q", got)
			}
			return
		}
		if time.Now().After(deadline) {
			break
		}
	}
	t.Fatal("no event received over SSE")
}

func TestSSEHandlerMissingGuard(t *testing.T) {
	srv := httptest.NewServer(SSEHandler(NewInMemory()))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestWebSocketHandlerStreamsEvents(t *testing.T) {
	bus := NewInMemory()
	srv := httptest.NewServer(WebSocketHandler(bus))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?guard=guard:a"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go publishUntil(bus, "guard:a", []byte("hello"), stop)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != "hello" {
		t.Fatalf("unexpected payload %q", msg)
	}
}

func TestWebSocketHandlerPrefix(t *testing.T) {
	bus := NewInMemory()
	srv := httptest.NewServer(WebSocketHandler(bus))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?prefix=guard:"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go publishUntil(bus, "guard:xyz", []byte("ev"), stop)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != "ev" {
		t.Fatalf("unexpected payload %q", msg)
	}
}

func TestWebSocketHandlerMissingParams(t *testing.T) {
	srv := httptest.NewServer(WebSocketHandler(NewInMemory()))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
