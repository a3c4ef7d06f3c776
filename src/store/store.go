// Package store holds the rollup chain store: blocks indexed by number, the
// valid tip, the last submitted and last confirmed pointers, settlement tx
// hashes and custodian accounting. Every mutation goes through a Tx whose
// writes become visible together on Commit.
package store

import (
	"github.com/mosaicnetworks/rollsync/src/types"
)

// Reader is the read side shared by Store and Tx.
type Reader interface {
	// GetTip returns the valid tip pointer.
	GetTip() (types.NumberHash, error)
	// GetLastValidTipBlockHash returns the hash of the valid tip.
	GetLastValidTipBlockHash() (types.Hash, error)
	// GetLastSubmittedBlockNumberHash returns the last block submitted to L1.
	GetLastSubmittedBlockNumberHash() (types.NumberHash, error)
	// GetLastConfirmedBlockNumberHash returns the last block confirmed on L1.
	GetLastConfirmedBlockNumberHash() (types.NumberHash, error)
	// GetBlockHashByNumber returns the stored hash at a height, if any.
	GetBlockHashByNumber(number uint64) (types.Hash, bool, error)
	// GetBlock returns a block by hash.
	GetBlock(hash types.Hash) (*types.L2Block, error)
	// GetBlockPostGlobalState returns the global state after a block.
	GetBlockPostGlobalState(hash types.Hash) (*types.GlobalState, error)
	// GetBlockDeposits returns the deposits applied with a block.
	GetBlockDeposits(number uint64) ([]types.DepositInfo, error)
	// GetBlockWithdrawals returns the withdrawals applied with a block.
	GetBlockWithdrawals(number uint64) ([]types.WithdrawalRequestExtra, error)
	// GetBlockSubmitTxHash returns the settlement tx that submitted a block.
	GetBlockSubmitTxHash(number uint64) (types.Hash, bool, error)
	// GetFinalizedCustodians returns the custodian snapshot at a block.
	GetFinalizedCustodians(number uint64) (*types.FinalizedCustodians, error)
	// GetAssetScript returns a deposit asset script by hash.
	GetAssetScript(hash types.Hash) (*types.Script, error)
}

// Tx is a mutation scope. Writes are buffered until Commit; Discard drops
// them. A Tx must not be used after Commit or Discard.
type Tx interface {
	Reader

	// InsertBlock stores a block with its auxiliary inputs and indexes it by
	// number. It fails with KeyAlreadyExists if the height is occupied.
	InsertBlock(block *types.L2Block, post *types.GlobalState, deposits []types.DepositInfo, withdrawals []types.WithdrawalRequestExtra) error
	// DetachBlock removes every record associated with a height.
	DetachBlock(number uint64) error
	SetTip(tip types.NumberHash) error
	SetBlockSubmitTxHash(number uint64, txHash types.Hash) error
	SetLastSubmittedBlockNumberHash(nh types.NumberHash) error
	SetLastConfirmedBlockNumberHash(nh types.NumberHash) error
	SetFinalizedCustodians(number uint64, c *types.FinalizedCustodians) error
	InsertAssetScript(script *types.Script) error

	Commit() error
	Discard()
}

// Store is a transactional chain store.
type Store interface {
	Reader

	// Begin opens a read-write mutation scope.
	Begin() (Tx, error)
	// Close closes the underlying database.
	Close() error
	// StorePath returns the filepath of the underlying database.
	StorePath() string
}
