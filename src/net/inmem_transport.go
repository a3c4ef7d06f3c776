package net

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewInmemAddr returns a new in-memory addr with a random UUID as the ID.
func NewInmemAddr() string {
	return uuid.New().String()
}

// Pipe returns the two ends of an in-memory session. Protocol negotiation is
// skipped; both ends carry frames immediately.
func Pipe() (Stream, Stream) {
	a, b := net.Pipe()
	return newConnStream(a, nil, 0), newConnStream(b, nil, 0)
}

// InmemTransport implements the Transport interface, to allow block sync to
// be tested in-memory without going over a network.
type InmemTransport struct {
	sync.RWMutex
	localAddr string
	source    *Source
	peers     map[string]*InmemTransport
	timeout   time.Duration
}

// NewInmemTransport is used to initialize a new transport and generates a
// random local address if none is specified. Sessions dialed to it are
// offered to source.
func NewInmemTransport(addr string, source *Source) (string, *InmemTransport) {
	if addr == "" {
		addr = NewInmemAddr()
	}
	trans := &InmemTransport{
		localAddr: addr,
		source:    source,
		peers:     make(map[string]*InmemTransport),
		timeout:   time.Second,
	}
	return addr, trans
}

// Listen implements the Transport interface. Inbound sessions are delivered
// by the dialing transport, so there is nothing to accept.
func (i *InmemTransport) Listen() {}

// LocalAddr implements the Transport interface.
func (i *InmemTransport) LocalAddr() string {
	return i.localAddr
}

// AdvertiseAddr implements the Transport interface.
func (i *InmemTransport) AdvertiseAddr() string {
	return i.localAddr
}

// Dial implements the Transport interface.
func (i *InmemTransport) Dial(ctx context.Context, target string) (Stream, error) {
	i.RLock()
	peer, ok := i.peers[target]
	i.RUnlock()

	if !ok {
		return nil, NewStreamError("dial", fmt.Errorf("failed to connect to peer: %v", target))
	}

	a, b := net.Pipe()
	local := newConnStream(a, nil, i.timeout)
	peer.source.Offer(newConnStream(b, nil, peer.timeout))
	return local, nil
}

// Connect is used to connect this transport to another transport for a given
// peer name. This allows for local routing.
func (i *InmemTransport) Connect(peer string, t *InmemTransport) {
	i.Lock()
	defer i.Unlock()
	i.peers[peer] = t
}

// Disconnect is used to remove the ability to route to a given peer.
func (i *InmemTransport) Disconnect(peer string) {
	i.Lock()
	defer i.Unlock()
	delete(i.peers, peer)
}

// DisconnectAll is used to remove all routes to peers.
func (i *InmemTransport) DisconnectAll() {
	i.Lock()
	defer i.Unlock()
	i.peers = make(map[string]*InmemTransport)
}

// Close is used to permanently disable the transport
func (i *InmemTransport) Close() error {
	i.DisconnectAll()
	return nil
}
