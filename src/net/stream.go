package net

import (
	"context"
	"errors"
	"fmt"
)

// Stream is one established block-sync session.
type Stream interface {
	// ID identifies the session in logs.
	ID() string
	// RemoteAddr is the address of the peer.
	RemoteAddr() string
	// Recv blocks for the next frame. It returns nil, io.EOF when the peer
	// closed the session cleanly between frames.
	Recv(ctx context.Context) ([]byte, error)
	// Send writes one frame.
	Send(ctx context.Context, frame []byte) error
	// Close tears down the session.
	Close() error
}

// StreamError is a failure of the session itself, as opposed to a failure to
// process what was received on it.
type StreamError struct {
	Op  string
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %s: %v", e.Op, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// NewStreamError wraps err as a StreamError for op.
func NewStreamError(op string, err error) error {
	return &StreamError{Op: op, Err: err}
}

// IsStreamError reports whether err is or wraps a StreamError.
func IsStreamError(err error) bool {
	var se *StreamError
	return errors.As(err, &se)
}
