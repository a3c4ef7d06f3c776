// Package chaintest builds well-formed blocks and stores for tests.
package chaintest

import (
	"encoding/binary"

	"github.com/mosaicnetworks/rollsync/src/store"
	"github.com/mosaicnetworks/rollsync/src/types"
)

// RollupConfigHash is the config hash used by every genesis built here.
var RollupConfigHash = types.Blake2b([]byte("rollsync-test-rollup"))

// Genesis returns the genesis block shared by all test stores.
func Genesis() (*types.L2Block, types.GlobalState) {
	return types.Genesis(RollupConfigHash, 0)
}

// NewStore returns an InmemStore initialized with Genesis.
func NewStore() *store.InmemStore {
	s := store.NewInmemStore()
	genesis, gs := Genesis()
	if err := store.InitGenesis(s, genesis, &gs); err != nil {
		panic(err)
	}
	return s
}

// NextBlock builds a block on top of parent. salt distinguishes sibling blocks
// at the same height.
func NextBlock(parent types.NumberHash, salt uint64, deposits ...types.DepositInfo) *types.LocalBlock {
	producer := make([]byte, 8)
	binary.LittleEndian.PutUint64(producer, salt)

	block := &types.L2Block{
		Raw: types.RawL2Block{
			Number:           parent.Number + 1,
			BlockProducer:    producer,
			ParentBlockHash:  parent.Hash,
			StampedTimestamp: 1000 * (parent.Number + 1),
		},
		Transactions: [][]byte{[]byte{byte(parent.Number + 1), byte(salt)}},
	}
	block.Raw.TxCount = uint32(len(block.Transactions))

	return &types.LocalBlock{
		Block:    block,
		Deposits: deposits,
		PostGlobalState: types.GlobalState{
			RollupConfigHash:  RollupConfigHash,
			Block:             types.BlockMerkleState{Count: block.Number() + 1},
			TipBlockHash:      block.Hash(),
			TipBlockTimestamp: block.Raw.StampedTimestamp,
		},
	}
}

// Chain builds n contiguous blocks on top of parent.
func Chain(parent types.NumberHash, n int, salt uint64) []*types.LocalBlock {
	blocks := make([]*types.LocalBlock, 0, n)
	for i := 0; i < n; i++ {
		lb := NextBlock(parent, salt)
		blocks = append(blocks, lb)
		parent = lb.Block.NumberHash()
	}
	return blocks
}
