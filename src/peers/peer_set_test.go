package peers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPeerSetFromAddrs(t *testing.T) {
	ps := NewPeerSetFromAddrs([]string{"a:1", "", "b:2", "a:1"})
	assert.Equal(t, []string{"a:1", "b:2"}, ps.Addrs())
	assert.Equal(t, "b:2", ps.Peers[1].String())
}

func TestPeerSetMerge(t *testing.T) {
	flags := NewPeerSetFromAddrs([]string{"a:1", "b:2"})
	file := NewPeerSet([]*Peer{
		NewPeer("b:2", "bob"),
		NewPeer("c:3", "carol"),
	})

	merged := flags.Merge(file)
	assert.Equal(t, []string{"a:1", "b:2", "c:3"}, merged.Addrs())

	b, ok := merged.ByAddr("b:2")
	assert.True(t, ok)
	assert.Equal(t, "", b.Moniker)

	assert.Equal(t, 2, flags.Len())
	assert.Equal(t, 2, flags.Merge(nil).Len())
}
