package l1

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mosaicnetworks/rollsync/src/types"
)

// ErrBlockNotCommitted is returned by an RPCClient asked for a block above
// the committed tip.
var ErrBlockNotCommitted = errors.New("block not committed on l1")

// CommittedBlock is a rollup block as recorded by the settlement layer,
// together with the settlement transaction that submitted it.
type CommittedBlock struct {
	types.LocalBlock
	SubmitTxHash types.Hash
}

// NumberHash returns the pointer to the committed block.
func (cb *CommittedBlock) NumberHash() types.NumberHash {
	return cb.Block.NumberHash()
}

func (cb *CommittedBlock) Encode(w *types.Writer) {
	cb.LocalBlock.Encode(w)
	w.Hash(cb.SubmitTxHash)
}

func (cb *CommittedBlock) Decode(r *types.Reader) {
	cb.LocalBlock.Decode(r)
	cb.SubmitTxHash = r.Hash()
}

// RPCClient reads the committed rollup chain from the settlement layer.
type RPCClient interface {
	// GetCommittedTip returns the last rollup block committed on L1.
	GetCommittedTip(ctx context.Context, rollup *types.Script) (types.NumberHash, error)
	// GetCommittedBlock returns the committed block at number.
	GetCommittedBlock(ctx context.Context, rollup *types.Script, number uint64) (*CommittedBlock, error)
}

// InmemRPC is an RPCClient backed by a slice of committed blocks. Height 0 is
// the genesis block.
type InmemRPC struct {
	mu     sync.RWMutex
	blocks []*CommittedBlock
}

// NewInmemRPC returns an InmemRPC whose committed chain holds only genesis.
func NewInmemRPC(genesis *types.L2Block, post types.GlobalState) *InmemRPC {
	return &InmemRPC{
		blocks: []*CommittedBlock{{
			LocalBlock: types.LocalBlock{Block: genesis, PostGlobalState: post},
		}},
	}
}

// Commit appends cb to the committed chain. It must extend the current tip.
func (r *InmemRPC) Commit(cb *CommittedBlock) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tip := r.blocks[len(r.blocks)-1].NumberHash()
	if cb.Block.Number() != tip.Number+1 || cb.Block.Raw.ParentBlockHash != tip.Hash {
		return fmt.Errorf("block %s does not extend committed tip %s", cb.NumberHash(), tip)
	}
	r.blocks = append(r.blocks, cb)
	return nil
}

// Rewind drops every committed block above number, simulating an L1 reorg.
func (r *InmemRPC) Rewind(number uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if number+1 < uint64(len(r.blocks)) {
		r.blocks = r.blocks[:number+1]
	}
}

func (r *InmemRPC) GetCommittedTip(ctx context.Context, rollup *types.Script) (types.NumberHash, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.blocks[len(r.blocks)-1].NumberHash(), nil
}

func (r *InmemRPC) GetCommittedBlock(ctx context.Context, rollup *types.Script, number uint64) (*CommittedBlock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if number >= uint64(len(r.blocks)) {
		return nil, fmt.Errorf("%w: %d", ErrBlockNotCommitted, number)
	}
	return r.blocks[number], nil
}
