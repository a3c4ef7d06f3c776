package net

import (
	"context"
	"io"
	"testing"

	"github.com/mosaicnetworks/rollsync/src/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertClosed(t *testing.T, peer Stream) {
	_, err := peer.Recv(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestSourceReject(t *testing.T) {
	src := NewSource(Reject, common.NewTestEntry(t, "source"))

	first, firstPeer := Pipe()
	second, secondPeer := Pipe()
	defer firstPeer.Close()
	defer secondPeer.Close()

	assert.True(t, src.Offer(first))
	assert.False(t, src.Offer(second))
	assertClosed(t, secondPeer)

	s, ok := src.TryNext()
	require.True(t, ok)
	assert.Equal(t, first.ID(), s.ID())
	s.Close()

	_, ok = src.TryNext()
	assert.False(t, ok)
}

func TestSourceReplace(t *testing.T) {
	src := NewSource(Replace, common.NewTestEntry(t, "source"))

	first, firstPeer := Pipe()
	second, secondPeer := Pipe()
	defer firstPeer.Close()
	defer secondPeer.Close()

	assert.True(t, src.Offer(first))
	assert.True(t, src.Offer(second))
	assertClosed(t, firstPeer)

	s, ok := src.TryNext()
	require.True(t, ok)
	assert.Equal(t, second.ID(), s.ID())
	s.Close()
}

func TestSourceClose(t *testing.T) {
	src := NewSource(Reject, common.NewTestEntry(t, "source"))

	queued, queuedPeer := Pipe()
	late, latePeer := Pipe()
	defer queuedPeer.Close()
	defer latePeer.Close()

	assert.True(t, src.Offer(queued))
	src.Close()
	assertClosed(t, queuedPeer)
	assert.False(t, src.Pending())

	assert.False(t, src.Offer(late))
	assertClosed(t, latePeer)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("Replace")
	require.NoError(t, err)
	assert.Equal(t, Replace, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Reject, p)

	_, err = ParsePolicy("queue")
	assert.Error(t, err)
}
