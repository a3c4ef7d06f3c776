package peers

//PeerSet is an ordered set of Peers, unique by NetAddr
type PeerSet struct {
	Peers  []*Peer
	byAddr map[string]*Peer
}

//NewPeerSet creates a new PeerSet from a list of Peers. Later duplicates and
//peers without an address are dropped.
func NewPeerSet(peers []*Peer) *PeerSet {
	peerSet := &PeerSet{
		byAddr: make(map[string]*Peer),
	}

	for _, peer := range peers {
		peerSet.add(peer)
	}

	return peerSet
}

//NewPeerSetFromAddrs creates a PeerSet from bare network addresses
func NewPeerSetFromAddrs(addrs []string) *PeerSet {
	peers := make([]*Peer, 0, len(addrs))
	for _, addr := range addrs {
		peers = append(peers, NewPeer(addr, ""))
	}
	return NewPeerSet(peers)
}

func (ps *PeerSet) add(peer *Peer) {
	if peer == nil || peer.NetAddr == "" {
		return
	}
	if _, ok := ps.byAddr[peer.NetAddr]; ok {
		return
	}
	ps.byAddr[peer.NetAddr] = peer
	ps.Peers = append(ps.Peers, peer)
}

//Merge returns a new PeerSet with the peers of ps followed by the new peers
//of other
func (ps *PeerSet) Merge(other *PeerSet) *PeerSet {
	peers := make([]*Peer, 0, ps.Len()+other.Len())
	peers = append(peers, ps.Peers...)
	if other != nil {
		peers = append(peers, other.Peers...)
	}
	return NewPeerSet(peers)
}

//ByAddr returns the peer listening on addr
func (ps *PeerSet) ByAddr(addr string) (*Peer, bool) {
	p, ok := ps.byAddr[addr]
	return p, ok
}

//Addrs returns the network addresses in order
func (ps *PeerSet) Addrs() []string {
	res := make([]string, len(ps.Peers))
	for i, p := range ps.Peers {
		res[i] = p.NetAddr
	}
	return res
}

//Len returns the number of Peers in the PeerSet
func (ps *PeerSet) Len() int {
	if ps == nil {
		return 0
	}
	return len(ps.Peers)
}
