// Package watch provides an event bus for observing guard state transitions.
// Events are opaque payloads; guards publish JSON-encoded acquire/release
// records under their configured name. The in-memory bus is suitable for a
// single process, the Redis bus propagates events across nodes, and the HTTP
// bridges stream events to browsers over SSE or WebSocket.
package watch
