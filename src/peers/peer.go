package peers

import "fmt"

// Peer is a node that serves block-sync streams.
type Peer struct {
	NetAddr string
	Moniker string `json:",omitempty"`
}

// NewPeer creates a new Peer.
func NewPeer(netAddr, moniker string) *Peer {
	return &Peer{
		NetAddr: netAddr,
		Moniker: moniker,
	}
}

func (p *Peer) String() string {
	if p.Moniker == "" {
		return p.NetAddr
	}
	return fmt.Sprintf("%s(%s)", p.Moniker, p.NetAddr)
}
