package blocksync

import (
	"sync/atomic"
)

// Mode captures where the client gets blocks from: NoStream, Handshaking,
// Streaming, or Stopped.
type Mode uint32

const (
	//NoStream is the initial mode. Blocks come from L1.
	NoStream Mode = iota
	//Handshaking negotiates a start point with a peer
	Handshaking
	//Streaming applies messages from a peer
	Streaming
	//Stopped is stopped
	Stopped
)

// String ...
func (m Mode) String() string {
	switch m {
	case NoStream:
		return "NoStream"
	case Handshaking:
		return "Handshaking"
	case Streaming:
		return "Streaming"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

type state struct {
	mode Mode
}

func (s *state) getMode() Mode {
	modeAddr := (*uint32)(&s.mode)
	return Mode(atomic.LoadUint32(modeAddr))
}

func (s *state) setMode(m Mode) {
	modeAddr := (*uint32)(&s.mode)
	atomic.StoreUint32(modeAddr, uint32(m))
}
