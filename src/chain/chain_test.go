package chain

import (
	"errors"
	"testing"

	"github.com/mosaicnetworks/rollsync/src/chain/chaintest"
	cm "github.com/mosaicnetworks/rollsync/src/common"
	"github.com/mosaicnetworks/rollsync/src/store"
	"github.com/mosaicnetworks/rollsync/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apply(t *testing.T, c *Chain, s store.Store, lb *types.LocalBlock) error {
	tx, err := s.Begin()
	require.NoError(t, err)
	defer tx.Discard()

	if err := c.ApplyBlock(tx, lb.Block, lb.Deposits, lb.DepositAssetScripts, lb.Withdrawals, &lb.PostGlobalState); err != nil {
		return err
	}
	if err := c.FinalizeCustodians(tx, lb.Block.Number()); err != nil {
		return err
	}
	return tx.Commit()
}

func TestApplyContiguousBlocksMovesTip(t *testing.T) {
	s := chaintest.NewStore()
	c := NewChain(2, cm.NewTestEntry(t, "chain"))

	tip, err := s.GetTip()
	require.NoError(t, err)

	blocks := chaintest.Chain(tip, 5, 0)
	for _, lb := range blocks {
		require.NoError(t, apply(t, c, s, lb))
	}

	tip, err = s.GetTip()
	require.NoError(t, err)
	assert.Equal(t, blocks[len(blocks)-1].Block.NumberHash(), tip)
}

func TestApplyRejectsBadParent(t *testing.T) {
	s := chaintest.NewStore()
	c := NewChain(2, cm.NewTestEntry(t, "chain"))
	tip, err := s.GetTip()
	require.NoError(t, err)

	// skips a height
	gap := chaintest.NextBlock(types.NumberHash{Number: tip.Number + 1, Hash: tip.Hash}, 0)
	assert.True(t, errors.Is(apply(t, c, s, gap), ErrInvalidParent))

	// right height, wrong parent
	orphan := chaintest.NextBlock(types.NumberHash{Number: tip.Number, Hash: types.Blake2b([]byte("x"))}, 0)
	assert.True(t, errors.Is(apply(t, c, s, orphan), ErrInvalidParent))

	after, err := s.GetTip()
	require.NoError(t, err)
	assert.Equal(t, tip, after)
}

func TestApplyRejectsBadGlobalState(t *testing.T) {
	s := chaintest.NewStore()
	c := NewChain(2, cm.NewTestEntry(t, "chain"))
	tip, err := s.GetTip()
	require.NoError(t, err)

	lb := chaintest.NextBlock(tip, 0)
	lb.PostGlobalState.TipBlockHash = types.Blake2b([]byte("wrong"))
	assert.True(t, errors.Is(apply(t, c, s, lb), ErrInvalidGlobalState))
}

func TestFinalizeCustodians(t *testing.T) {
	s := chaintest.NewStore()
	c := NewChain(1, cm.NewTestEntry(t, "chain"))
	tip, err := s.GetTip()
	require.NoError(t, err)

	sudt := types.Blake2b([]byte("sudt"))
	b1 := chaintest.NextBlock(tip, 0, types.DepositInfo{
		Request: types.DepositRequest{Capacity: 500, Amount: 7, SUDTScriptHash: sudt},
	})
	require.NoError(t, apply(t, c, s, b1))

	// not final yet at block 1
	custodians, err := s.GetFinalizedCustodians(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), custodians.Capacity)

	b2 := chaintest.NextBlock(b1.Block.NumberHash(), 0)
	require.NoError(t, apply(t, c, s, b2))

	custodians, err = s.GetFinalizedCustodians(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), custodians.Capacity)
	require.NotNil(t, custodians.Asset(sudt))
	assert.Equal(t, uint64(7), custodians.Asset(sudt).Amount)

	b3 := chaintest.NextBlock(b2.Block.NumberHash(), 0)
	b3.Block.Raw.WithdrawalCount = 1
	b3.PostGlobalState.TipBlockHash = b3.Block.Hash()
	b3.Withdrawals = []types.WithdrawalRequestExtra{{
		Request: types.WithdrawalRequest{Raw: types.RawWithdrawalRequest{
			Capacity: 600, Amount: 1, SUDTScriptHash: sudt,
		}},
	}}
	assert.True(t, errors.Is(apply(t, c, s, b3), ErrInsufficientCustodians))
}
