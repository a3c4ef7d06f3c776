package net

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mosaicnetworks/rollsync/src/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTCPTransport(t *testing.T, header ProtocolHeader) (*NetworkTransport, *Source) {
	src := NewSource(Reject, common.NewTestEntry(t, "source"))
	trans, err := NewTCPTransport("127.0.0.1:0", "", header, src, time.Second, common.NewTestEntry(t, "transport"))
	require.NoError(t, err)
	go trans.Listen()
	return trans, src
}

func waitStream(t *testing.T, src *Source) Stream {
	var s Stream
	require.Eventually(t, func() bool {
		var ok bool
		s, ok = src.TryNext()
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	return s
}

func TestTCPTransport_StartStop(t *testing.T) {
	trans, _ := newTestTCPTransport(t, DefaultProtocolHeader())
	require.NoError(t, trans.Close())
	require.NoError(t, trans.Close())

	_, err := trans.Dial(context.Background(), "127.0.0.1:1")
	assert.Equal(t, ErrTransportShutdown, err)
}

func TestTCPTransport_BadAddr(t *testing.T) {
	_, err := NewTCPTransport("0.0.0.0:0", "", DefaultProtocolHeader(), nil, 0, common.NewTestEntry(t, "transport"))
	assert.Equal(t, errNotAdvertisable, err)
}

func TestTCPTransport_WithAdvertise(t *testing.T) {
	trans, err := NewTCPTransport("0.0.0.0:0", "127.0.0.1:12345", DefaultProtocolHeader(), nil, 0, common.NewTestEntry(t, "transport"))
	require.NoError(t, err)
	defer trans.Close()

	assert.Equal(t, "127.0.0.1:12345", trans.AdvertiseAddr())
}

func TestTCPTransport_DialAndStream(t *testing.T) {
	server, serverSrc := newTestTCPTransport(t, DefaultProtocolHeader())
	defer server.Close()
	client, _ := newTestTCPTransport(t, DefaultProtocolHeader())
	defer client.Close()

	out, err := client.Dial(context.Background(), server.LocalAddr())
	require.NoError(t, err)
	defer out.Close()

	in := waitStream(t, serverSrc)
	defer in.Close()

	require.NoError(t, out.Send(context.Background(), []byte("request")))
	frame, err := in.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("request"), frame)

	require.NoError(t, in.Send(context.Background(), []byte("response")))
	frame, err = out.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("response"), frame)
}

func TestTCPTransport_ProtocolMismatch(t *testing.T) {
	server, serverSrc := newTestTCPTransport(t, DefaultProtocolHeader())
	defer server.Close()
	client, _ := newTestTCPTransport(t, ProtocolHeader{ID: DefaultProtocolID, Name: "/gw/block-sync/2"})
	defer client.Close()

	_, err := client.Dial(context.Background(), server.LocalAddr())
	require.Error(t, err)
	assert.True(t, IsStreamError(err))

	time.Sleep(50 * time.Millisecond)
	assert.False(t, serverSrc.Pending())
}

func TestInmemTransport_Dial(t *testing.T) {
	srcA := NewSource(Reject, common.NewTestEntry(t, "source"))
	srcB := NewSource(Reject, common.NewTestEntry(t, "source"))
	addrA, transA := NewInmemTransport("", srcA)
	addrB, transB := NewInmemTransport("", srcB)
	transA.Connect(addrB, transB)
	defer transA.Close()
	defer transB.Close()

	_, err := transB.Dial(context.Background(), addrA)
	assert.True(t, IsStreamError(err))

	out, err := transA.Dial(context.Background(), addrB)
	require.NoError(t, err)
	defer out.Close()

	in, ok := srcB.TryNext()
	require.True(t, ok)
	defer in.Close()

	go out.Send(context.Background(), []byte("ping"))
	frame, err := in.Recv(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), frame)
}

// failingLayer is a StreamLayer whose Accept always fails.
type failingLayer struct {
	accepts int32
	closed  chan struct{}
}

func (l *failingLayer) Accept() (net.Conn, error) {
	atomic.AddInt32(&l.accepts, 1)
	return nil, errors.New("too many open files")
}

func (l *failingLayer) Close() error {
	close(l.closed)
	return nil
}

func (l *failingLayer) Addr() net.Addr                               { return nil }
func (l *failingLayer) AdvertiseAddr() string                        { return "" }
func (l *failingLayer) Dial(string, time.Duration) (net.Conn, error) { return nil, errors.New("no dial") }

func TestNetworkTransport_AcceptErrorBackoff(t *testing.T) {
	layer := &failingLayer{closed: make(chan struct{})}
	trans := NewNetworkTransport(layer, DefaultProtocolHeader(), nil, time.Second, common.NewTestEntry(t, "transport"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		trans.Listen()
	}()

	time.Sleep(200 * time.Millisecond)
	require.NoError(t, trans.Close())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return after Close")
	}

	// 5+10+20+40+80 ms fit in the window, a spinning loop would not stop there
	accepts := atomic.LoadInt32(&layer.accepts)
	assert.Less(t, accepts, int32(10))
	assert.GreaterOrEqual(t, accepts, int32(2))
}
