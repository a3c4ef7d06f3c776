// Package l1 follows the rollup chain as committed on the settlement layer.
// It is the authoritative but slower sync path that the block-sync client
// falls back to whenever no peer stream is available.
package l1

import (
	"context"
	"sync"

	"github.com/mosaicnetworks/rollsync/src/store"
	"github.com/mosaicnetworks/rollsync/src/types"
)

// Chain is the subset of the chain component used to apply blocks. The
// embedded Locker is the lock shared with every other subsystem that touches
// the chain.
type Chain interface {
	sync.Locker

	ApplyBlock(
		tx store.Tx,
		block *types.L2Block,
		deposits []types.DepositInfo,
		depositAssetScripts []types.Script,
		withdrawals []types.WithdrawalRequestExtra,
		post *types.GlobalState,
	) error
	FinalizeCustodians(tx store.Tx, number uint64) error
}

// Context is the capability set a Syncer needs. The block-sync client
// implements it; tests implement it with fakes.
type Context interface {
	Store() store.Store
	RPCClient() RPCClient
	Chain() Chain
	RollupTypeScript() *types.Script
}

// Syncer advances and rewinds the local chain against the settlement layer.
type Syncer interface {
	// SyncL1 advances the chain as far as the settlement layer allows. It is
	// safe to call repeatedly.
	SyncL1(ctx context.Context, c Context) error
	// RevertBelow removes every block above number inside tx and moves the
	// tip back to number. The caller holds the chain lock.
	RevertBelow(c Context, tx store.Tx, number uint64) error
}
