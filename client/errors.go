package client

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("connection closed")

	// ErrNotConnected is returned by Send unless the connection is Connected.
	ErrNotConnected = errors.New("not connected")

	// ErrHeartbeatTimeout is the cause of a loss detected by the heartbeat.
	ErrHeartbeatTimeout = errors.New("nothing received within the heartbeat grace window")
)

// ConnectionError reports a failure of the socket itself.
type ConnectionError struct {
	Message string
	Cause   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}
