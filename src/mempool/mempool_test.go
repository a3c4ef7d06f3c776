package mempool

import (
	"testing"

	"github.com/mosaicnetworks/rollsync/src/chain"
	"github.com/mosaicnetworks/rollsync/src/chain/chaintest"
	cm "github.com/mosaicnetworks/rollsync/src/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushBeforeInitialSync(t *testing.T) {
	p := NewMemPool(chaintest.NewStore(), 0, cm.NewTestEntry(t, "mempool"))

	_, err := p.Push([]byte("tx"))
	assert.ErrorIs(t, err, ErrNotSynced)

	p.SetCompletedInitialSyncing()
	_, err = p.Push([]byte("tx"))
	require.NoError(t, err)
	_, err = p.Push([]byte("tx"))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestNotifyNewTipDropsIncluded(t *testing.T) {
	s := chaintest.NewStore()
	p := NewMemPool(s, 0, cm.NewTestEntry(t, "mempool"))
	p.SetCompletedInitialSyncing()

	tip, err := s.GetTip()
	require.NoError(t, err)
	lb := chaintest.NextBlock(tip, 0)

	_, err = p.Push(lb.Block.Transactions[0])
	require.NoError(t, err)
	_, err = p.Push([]byte("other"))
	require.NoError(t, err)

	tx, err := s.Begin()
	require.NoError(t, err)
	c := chain.NewChain(1, cm.NewTestEntry(t, "chain"))
	require.NoError(t, c.ApplyBlock(tx, lb.Block, nil, nil, nil, &lb.PostGlobalState))
	require.NoError(t, tx.Commit())

	require.NoError(t, p.NotifyNewTip(lb.Block.Hash(), &NotifyContext{}))
	assert.Equal(t, lb.Block.Hash(), p.Tip())
	assert.Equal(t, [][]byte{[]byte("other")}, p.Pending())

	// repeated notification is harmless
	require.NoError(t, p.NotifyNewTip(lb.Block.Hash(), nil))
	assert.Len(t, p.Pending(), 1)
}

func TestCapacity(t *testing.T) {
	p := NewMemPool(chaintest.NewStore(), 1, cm.NewTestEntry(t, "mempool"))
	p.SetCompletedInitialSyncing()

	_, err := p.Push([]byte("a"))
	require.NoError(t, err)
	_, err = p.Push([]byte("b"))
	assert.ErrorIs(t, err, ErrFull)
}
