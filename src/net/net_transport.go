package net

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrTransportShutdown is returned when operations on a transport are
	// invoked after it's been terminated.
	ErrTransportShutdown = errors.New("transport shutdown")
)

/*
NetworkTransport provides a network based transport for the block-sync
sub-protocol. It requires an underlying stream layer to provide a stream
abstraction, which can be simple TCP, TLS, etc.

Each session starts with a protocol header exchange: the dialer sends its
header and the acceptor replies with its own once it has checked the dialer's.
The session then carries length-prefixed frames in both directions.
*/
type NetworkTransport struct {
	logger *logrus.Entry

	header ProtocolHeader
	source *Source

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex

	// connections still negotiating the protocol header
	pending     map[net.Conn]struct{}
	pendingLock sync.Mutex
	wg          sync.WaitGroup

	stream StreamLayer

	timeout time.Duration
}

// NewNetworkTransport creates a new network transport with the given stream
// layer. Accepted sessions are offered to source. The timeout bounds header
// negotiation and every Send.
func NewNetworkTransport(
	stream StreamLayer,
	header ProtocolHeader,
	source *Source,
	timeout time.Duration,
	logger *logrus.Entry,
) *NetworkTransport {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &NetworkTransport{
		logger:     logger.WithField("component", "transport"),
		header:     header,
		source:     source,
		shutdownCh: make(chan struct{}),
		pending:    make(map[net.Conn]struct{}),
		stream:     stream,
		timeout:    timeout,
	}
}

// Close is used to stop the network transport.
func (n *NetworkTransport) Close() error {
	n.shutdownLock.Lock()
	if n.shutdown {
		n.shutdownLock.Unlock()
		return nil
	}
	n.shutdown = true
	close(n.shutdownCh)
	err := n.stream.Close()
	n.shutdownLock.Unlock()

	n.pendingLock.Lock()
	for conn := range n.pending {
		conn.Close()
	}
	n.pendingLock.Unlock()

	n.wg.Wait()
	return err
}

// LocalAddr implements the Transport interface.
func (n *NetworkTransport) LocalAddr() string {
	addr := n.stream.Addr()

	if addr != nil {
		return addr.String()
	}

	return ""
}

// AdvertiseAddr implements the Transport interface.
func (n *NetworkTransport) AdvertiseAddr() string {
	return n.stream.AdvertiseAddr()
}

// IsShutdown is used to check if the transport is shutdown.
func (n *NetworkTransport) IsShutdown() bool {
	select {
	case <-n.shutdownCh:
		return true
	default:
		return false
	}
}

// Dial implements the Transport interface.
func (n *NetworkTransport) Dial(ctx context.Context, target string) (Stream, error) {
	if n.IsShutdown() {
		return nil, ErrTransportShutdown
	}

	timeout := n.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); timeout == 0 || d < timeout {
			timeout = d
		}
	}

	conn, err := n.stream.Dial(target, timeout)
	if err != nil {
		return nil, NewStreamError("dial", err)
	}

	if timeout > 0 {
		conn.SetDeadline(time.Now().Add(timeout))
	}

	r := bufio.NewReaderSize(conn, bufSize)
	if err := n.header.writeTo(conn); err != nil {
		conn.Close()
		return nil, NewStreamError("dial", err)
	}
	if err := n.header.expect(r); err != nil {
		conn.Close()
		return nil, NewStreamError("dial", err)
	}
	conn.SetDeadline(time.Time{})

	s := newConnStream(conn, r, n.timeout)

	n.logger.WithFields(logrus.Fields{
		"stream": s.ID(),
		"to":     target,
	}).Debug("dialed stream")

	return s, nil
}

// Listen opens the stream and handles incoming connections.
func (n *NetworkTransport) Listen() {
	const baseDelay = 5 * time.Millisecond
	const maxDelay = 1 * time.Second

	var loopDelay time.Duration
	for {
		// Accept incoming connections
		conn, err := n.stream.Accept()
		if err != nil {
			if loopDelay == 0 {
				loopDelay = baseDelay
			} else {
				loopDelay *= 2
			}
			if loopDelay > maxDelay {
				loopDelay = maxDelay
			}

			if n.IsShutdown() {
				return
			}
			n.logger.WithFields(logrus.Fields{
				"error": err,
				"delay": loopDelay,
			}).Error("Failed to accept connection")

			select {
			case <-n.shutdownCh:
				return
			case <-time.After(loopDelay):
				continue
			}
		}
		// No error, reset loop delay
		loopDelay = 0

		n.logger.WithFields(logrus.Fields{
			"node": conn.LocalAddr(),
			"from": conn.RemoteAddr(),
		}).Debug("accepted connection")

		if !n.track(conn) {
			conn.Close()
			return
		}

		// Handle the connection in dedicated routine
		go n.handleConn(conn)
	}
}

// track registers a connection under negotiation. It fails once the
// transport is shut down.
func (n *NetworkTransport) track(conn net.Conn) bool {
	n.shutdownLock.Lock()
	defer n.shutdownLock.Unlock()

	if n.shutdown {
		return false
	}

	n.pendingLock.Lock()
	n.pending[conn] = struct{}{}
	n.pendingLock.Unlock()

	n.wg.Add(1)
	return true
}

func (n *NetworkTransport) untrack(conn net.Conn) {
	n.pendingLock.Lock()
	delete(n.pending, conn)
	n.pendingLock.Unlock()
}

// handleConn negotiates the protocol header on an inbound connection and
// offers the resulting stream to the source.
func (n *NetworkTransport) handleConn(conn net.Conn) {
	defer n.wg.Done()
	defer n.untrack(conn)

	if n.timeout > 0 {
		conn.SetDeadline(time.Now().Add(n.timeout))
	}

	r := bufio.NewReaderSize(conn, bufSize)
	if err := n.header.expect(r); err != nil {
		n.logger.WithFields(logrus.Fields{
			"from":  conn.RemoteAddr(),
			"error": err,
		}).Warn("Failed to negotiate protocol")
		conn.Close()
		return
	}
	if err := n.header.writeTo(conn); err != nil {
		n.logger.WithField("error", err).Warn("Failed to send protocol header")
		conn.Close()
		return
	}
	conn.SetDeadline(time.Time{})

	s := newConnStream(conn, r, n.timeout)
	if n.source.Offer(s) {
		n.logger.WithFields(logrus.Fields{
			"stream": s.ID(),
			"from":   s.RemoteAddr(),
		}).Debug("offered stream")
	}
}
