package blocksync

import (
	"fmt"

	"github.com/mosaicnetworks/rollsync/src/types"
)

// SyncRequest asks a peer to stream from the requester's last confirmed
// block. On the wire it is the block hash followed by the block number.
type SyncRequest struct {
	LastConfirmed types.NumberHash
}

const syncRequestSize = types.HashSize + 8

func (r *SyncRequest) Marshal() []byte {
	w := types.NewWriter(syncRequestSize)
	r.LastConfirmed.Encode(w)
	return w.Bytes()
}

func (r *SyncRequest) Unmarshal(data []byte) error {
	if len(data) != syncRequestSize {
		return fmt.Errorf("sync request: want %d bytes, got %d", syncRequestSize, len(data))
	}
	rd := types.NewReader(data)
	r.LastConfirmed.Decode(rd)
	return rd.Finish()
}

// SyncResponse is a peer's answer to a SyncRequest.
type SyncResponse uint32

const (
	// Found means the peer will stream from the requested block.
	Found SyncResponse = iota
	// TryAgain means the peer cannot serve the request yet.
	TryAgain
)

func (r SyncResponse) String() string {
	switch r {
	case Found:
		return "Found"
	case TryAgain:
		return "TryAgain"
	default:
		return fmt.Sprintf("SyncResponse(%d)", uint32(r))
	}
}

func (r SyncResponse) Marshal() []byte {
	w := types.NewWriter(4)
	w.Uint32(uint32(r))
	return w.Bytes()
}

// UnmarshalSyncResponse parses a 4-byte response id.
func UnmarshalSyncResponse(data []byte) (SyncResponse, error) {
	if len(data) != 4 {
		return 0, fmt.Errorf("sync response: want 4 bytes, got %d", len(data))
	}
	rd := types.NewReader(data)
	r := SyncResponse(rd.Uint32())
	if err := rd.Finish(); err != nil {
		return 0, err
	}
	if r != Found && r != TryAgain {
		return 0, fmt.Errorf("sync response: unknown id %d", uint32(r))
	}
	return r, nil
}

// SyncMessage is one of Revert, LocalBlock, Submitted or Confirmed.
type SyncMessage interface {
	messageID() uint32
	encode(w *types.Writer)
	decode(r *types.Reader)
}

const (
	revertID uint32 = iota
	localBlockID
	submittedID
	confirmedID
)

// Revert rewinds the chain to Target.
type Revert struct {
	Target types.NumberHash
}

// LocalBlock carries a block and the inputs needed to apply it.
type LocalBlock struct {
	types.LocalBlock
}

// Submitted marks Block as submitted to L1 by TxHash.
type Submitted struct {
	Block  types.NumberHash
	TxHash types.Hash
}

// Confirmed marks Block as confirmed on L1.
type Confirmed struct {
	Block types.NumberHash
}

func (*Revert) messageID() uint32     { return revertID }
func (*LocalBlock) messageID() uint32 { return localBlockID }
func (*Submitted) messageID() uint32  { return submittedID }
func (*Confirmed) messageID() uint32  { return confirmedID }

func (m *Revert) encode(w *types.Writer)     { m.Target.Encode(w) }
func (m *Revert) decode(r *types.Reader)     { m.Target.Decode(r) }
func (m *LocalBlock) encode(w *types.Writer) { m.LocalBlock.Encode(w) }
func (m *LocalBlock) decode(r *types.Reader) { m.LocalBlock.Decode(r) }
func (m *Confirmed) encode(w *types.Writer)  { m.Block.Encode(w) }
func (m *Confirmed) decode(r *types.Reader)  { m.Block.Decode(r) }

func (m *Submitted) encode(w *types.Writer) {
	m.Block.Encode(w)
	w.Hash(m.TxHash)
}

func (m *Submitted) decode(r *types.Reader) {
	m.Block.Decode(r)
	m.TxHash = r.Hash()
}

// MarshalSyncMessage encodes m as its u32 id followed by its fields.
func MarshalSyncMessage(m SyncMessage) []byte {
	w := types.NewWriter(64)
	w.Uint32(m.messageID())
	m.encode(w)
	return w.Bytes()
}

// UnmarshalSyncMessage decodes a frame produced by MarshalSyncMessage.
func UnmarshalSyncMessage(data []byte) (SyncMessage, error) {
	r := types.NewReader(data)

	var m SyncMessage
	switch id := r.Uint32(); {
	case r.Err() != nil:
		return nil, fmt.Errorf("sync message: %w", r.Err())
	case id == revertID:
		m = new(Revert)
	case id == localBlockID:
		m = new(LocalBlock)
	case id == submittedID:
		m = new(Submitted)
	case id == confirmedID:
		m = new(Confirmed)
	default:
		return nil, fmt.Errorf("sync message: unknown id %d", id)
	}

	m.decode(r)
	if err := r.Finish(); err != nil {
		return nil, fmt.Errorf("sync message %T: %w", m, err)
	}
	return m, nil
}
