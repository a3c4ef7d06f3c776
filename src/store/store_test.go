package store

import (
	"testing"

	cm "github.com/mosaicnetworks/rollsync/src/common"
	"github.com/mosaicnetworks/rollsync/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("inmem", func(t *testing.T) {
		fn(t, NewInmemStore())
	})
	t.Run("badger", func(t *testing.T) {
		s, err := NewBadgerStore(t.TempDir(), cm.NewTestEntry(t, "badger"))
		require.NoError(t, err)
		defer s.Close()
		fn(t, s)
	})
}

func initGenesis(t *testing.T, s Store) *types.L2Block {
	genesis, gs := types.Genesis(types.Blake2b([]byte("cfg")), 0)
	require.NoError(t, InitGenesis(s, genesis, &gs))
	return genesis
}

func childOf(parent *types.L2Block) (*types.L2Block, *types.GlobalState) {
	b := &types.L2Block{
		Raw: types.RawL2Block{
			Number:          parent.Number() + 1,
			ParentBlockHash: parent.Hash(),
		},
	}
	gs := &types.GlobalState{
		Block:        types.BlockMerkleState{Count: b.Number() + 1},
		TipBlockHash: b.Hash(),
	}
	return b, gs
}

func TestEmptyStore(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		_, err := s.GetTip()
		assert.True(t, cm.IsStore(err, cm.Empty), "got %v", err)

		_, ok, err := s.GetBlockHashByNumber(0)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestInitGenesis(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		genesis := initGenesis(t, s)

		tip, err := s.GetTip()
		require.NoError(t, err)
		assert.Equal(t, genesis.NumberHash(), tip)

		confirmed, err := s.GetLastConfirmedBlockNumberHash()
		require.NoError(t, err)
		assert.Equal(t, genesis.NumberHash(), confirmed)

		// idempotent on the same genesis
		initGenesis(t, s)

		other, gs := types.Genesis(types.Blake2b([]byte("other")), 1)
		assert.Error(t, InitGenesis(s, other, &gs))
	})
}

func TestTxCommitIsAtomic(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		genesis := initGenesis(t, s)
		b1, gs1 := childOf(genesis)

		tx, err := s.Begin()
		require.NoError(t, err)
		require.NoError(t, tx.InsertBlock(b1, gs1, nil, nil))
		require.NoError(t, tx.SetTip(b1.NumberHash()))

		// visible inside the tx, invisible outside until commit
		_, ok, err := tx.GetBlockHashByNumber(1)
		require.NoError(t, err)
		assert.True(t, ok)
		_, ok, err = s.GetBlockHashByNumber(1)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, tx.Commit())

		hash, ok, err := s.GetBlockHashByNumber(1)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, b1.Hash(), hash)

		tip, err := s.GetLastValidTipBlockHash()
		require.NoError(t, err)
		assert.Equal(t, b1.Hash(), tip)

		stored, err := s.GetBlock(b1.Hash())
		require.NoError(t, err)
		assert.Equal(t, b1.Hash(), stored.Hash())

		post, err := s.GetBlockPostGlobalState(b1.Hash())
		require.NoError(t, err)
		assert.Equal(t, b1.Hash(), post.TipBlockHash)

		// used after commit
		assert.True(t, cm.IsStore(tx.SetTip(genesis.NumberHash()), cm.TxClosed))
	})
}

func TestTxDiscard(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		genesis := initGenesis(t, s)
		b1, gs1 := childOf(genesis)

		tx, err := s.Begin()
		require.NoError(t, err)
		require.NoError(t, tx.InsertBlock(b1, gs1, nil, nil))
		require.NoError(t, tx.SetLastConfirmedBlockNumberHash(b1.NumberHash()))
		tx.Discard()
		tx.Discard()

		_, ok, err := s.GetBlockHashByNumber(1)
		require.NoError(t, err)
		assert.False(t, ok)
		confirmed, err := s.GetLastConfirmedBlockNumberHash()
		require.NoError(t, err)
		assert.Equal(t, genesis.NumberHash(), confirmed)
	})
}

func TestInsertOccupiedHeight(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		genesis := initGenesis(t, s)
		b1, gs1 := childOf(genesis)

		tx, err := s.Begin()
		require.NoError(t, err)
		defer tx.Discard()
		require.NoError(t, tx.InsertBlock(b1, gs1, nil, nil))
		err = tx.InsertBlock(b1, gs1, nil, nil)
		assert.True(t, cm.IsStore(err, cm.KeyAlreadyExists), "got %v", err)
	})
}

func TestDetachBlock(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		genesis := initGenesis(t, s)
		b1, gs1 := childOf(genesis)
		deposits := []types.DepositInfo{{Request: types.DepositRequest{Capacity: 10}}}

		tx, err := s.Begin()
		require.NoError(t, err)
		require.NoError(t, tx.InsertBlock(b1, gs1, deposits, nil))
		require.NoError(t, tx.SetBlockSubmitTxHash(1, types.Blake2b([]byte("l1tx"))))
		require.NoError(t, tx.SetFinalizedCustodians(1, &types.FinalizedCustodians{Capacity: 10}))
		require.NoError(t, tx.Commit())

		got, err := s.GetBlockDeposits(1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, uint64(10), got[0].Request.Capacity)

		tx, err = s.Begin()
		require.NoError(t, err)
		require.NoError(t, tx.DetachBlock(1))
		require.NoError(t, tx.Commit())

		_, ok, err := s.GetBlockHashByNumber(1)
		require.NoError(t, err)
		assert.False(t, ok)
		_, ok, err = s.GetBlockSubmitTxHash(1)
		require.NoError(t, err)
		assert.False(t, ok)
		_, err = s.GetBlock(b1.Hash())
		assert.True(t, cm.IsStore(err, cm.KeyNotFound))
		_, err = s.GetFinalizedCustodians(1)
		assert.True(t, cm.IsStore(err, cm.KeyNotFound))
	})
}

func TestAssetScripts(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		script := &types.Script{CodeHash: types.Blake2b([]byte("sudt")), HashType: 1, Args: []byte{1}}

		tx, err := s.Begin()
		require.NoError(t, err)
		require.NoError(t, tx.InsertAssetScript(script))
		require.NoError(t, tx.Commit())

		got, err := s.GetAssetScript(script.Hash())
		require.NoError(t, err)
		assert.Equal(t, script.Hash(), got.Hash())
	})
}
