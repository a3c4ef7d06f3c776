package net

import (
	"context"
	"net"
	"time"
)

// Transport establishes block-sync sessions. Sessions it accepts are offered
// to the Source it was built with.
type Transport interface {

	// Listen accepts incoming sessions until the transport is closed.
	Listen()

	// Dial opens a session to target.
	Dial(ctx context.Context, target string) (Stream, error)

	// LocalAddr is used to return our local address
	LocalAddr() string

	// AdvertiseAddr is used to return our advertise address where other peers
	// can reach us
	AdvertiseAddr() string

	// Close permanently closes a transport, stopping
	// any associated goroutines and freeing other resources.
	Close() error
}

// StreamLayer is used with the NetworkTransport to provide the low level stream
// abstraction.
type StreamLayer interface {
	net.Listener

	// Dial is used to create a new outgoing connection
	Dial(address string, timeout time.Duration) (net.Conn, error)

	// AdvertiseAddr returns the publicly-reachable address of the stream
	AdvertiseAddr() string
}
