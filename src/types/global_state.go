package types

// Rollup status values carried in GlobalState.Status.
const (
	StatusRunning uint8 = iota
	StatusHalting
)

// GlobalState is the committed summary of rollup state after a block.
type GlobalState struct {
	RollupConfigHash         Hash
	Account                  AccountMerkleState
	Block                    BlockMerkleState
	RevertedBlockRoot        Hash
	TipBlockHash             Hash
	TipBlockTimestamp        uint64
	LastFinalizedBlockNumber uint64
	Status                   uint8
	Version                  uint8
}

func (g *GlobalState) Encode(w *Writer) {
	w.Hash(g.RollupConfigHash)
	g.Account.Encode(w)
	g.Block.Encode(w)
	w.Hash(g.RevertedBlockRoot)
	w.Hash(g.TipBlockHash)
	w.Uint64(g.TipBlockTimestamp)
	w.Uint64(g.LastFinalizedBlockNumber)
	w.Uint8(g.Status)
	w.Uint8(g.Version)
}

func (g *GlobalState) Decode(r *Reader) {
	g.RollupConfigHash = r.Hash()
	g.Account.Decode(r)
	g.Block.Decode(r)
	g.RevertedBlockRoot = r.Hash()
	g.TipBlockHash = r.Hash()
	g.TipBlockTimestamp = r.Uint64()
	g.LastFinalizedBlockNumber = r.Uint64()
	g.Status = r.Uint8()
	g.Version = r.Uint8()
}

// Genesis returns the deterministic genesis block for a rollup config hash
// together with its post global state.
func Genesis(rollupConfigHash Hash, timestamp uint64) (*L2Block, GlobalState) {
	block := &L2Block{
		Raw: RawL2Block{
			Number:           0,
			StampedTimestamp: timestamp,
		},
	}
	gs := GlobalState{
		RollupConfigHash:  rollupConfigHash,
		Block:             BlockMerkleState{Count: 1},
		TipBlockHash:      block.Hash(),
		TipBlockTimestamp: timestamp,
		Status:            StatusRunning,
	}
	return block, gs
}

// FinalizedCustodian is the finalized asset balance held for one sUDT.
type FinalizedCustodian struct {
	SUDTScriptHash Hash
	Capacity       uint64
	Amount         uint64
}

// FinalizedCustodians is the custodian accounting snapshot at a block.
type FinalizedCustodians struct {
	Capacity uint64
	Assets   []FinalizedCustodian
}

// Asset returns the entry for an sUDT, or nil if none is held.
func (c *FinalizedCustodians) Asset(sudt Hash) *FinalizedCustodian {
	for i := range c.Assets {
		if c.Assets[i].SUDTScriptHash == sudt {
			return &c.Assets[i]
		}
	}
	return nil
}

// Clone returns a deep copy.
func (c *FinalizedCustodians) Clone() *FinalizedCustodians {
	out := &FinalizedCustodians{Capacity: c.Capacity}
	out.Assets = append([]FinalizedCustodian(nil), c.Assets...)
	return out
}
