package errors

import "errors"

var (
	// ErrTimeout is returned when a timed acquisition gives up before the
	// lock becomes available.
	ErrTimeout = errors.New("timeout")
	// ErrConnectionClosed is returned by bus backends when the underlying
	// connection has been closed.
	ErrConnectionClosed = errors.New("connection closed")
)
