// Package chain applies rollup blocks to the chain store. It checks that each
// block extends the current tip and that the declared post global state
// matches, then records the block and its custodian accounting.
package chain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mosaicnetworks/rollsync/src/store"
	"github.com/mosaicnetworks/rollsync/src/types"
	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidParent is returned when a block does not extend the tip.
	ErrInvalidParent = errors.New("block does not extend the valid tip")
	// ErrInvalidGlobalState is returned when the post global state does not
	// describe the block being applied.
	ErrInvalidGlobalState = errors.New("post global state does not match block")
	// ErrInvalidWithdrawals is returned when the withdrawal count in the raw
	// block disagrees with the withdrawals supplied.
	ErrInvalidWithdrawals = errors.New("withdrawals do not match block")
	// ErrInsufficientCustodians is returned when withdrawals exceed the
	// finalized custodian balance.
	ErrInsufficientCustodians = errors.New("insufficient finalized custodians")
)

// Chain is the local chain component. It embeds the mutex other subsystems
// (block production, sync) take before touching it.
type Chain struct {
	sync.Mutex

	finalityBlocks uint64
	logger         *logrus.Entry
}

// NewChain returns a Chain. Deposits become part of the finalized custodian
// balance finalityBlocks blocks after the block that carried them.
func NewChain(finalityBlocks uint64, logger *logrus.Entry) *Chain {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Chain{
		finalityBlocks: finalityBlocks,
		logger:         logger.WithField("component", "chain"),
	}
}

// ApplyBlock validates block against the tip seen by tx and inserts it,
// moving the tip. The caller holds the Chain lock.
func (c *Chain) ApplyBlock(
	tx store.Tx,
	block *types.L2Block,
	deposits []types.DepositInfo,
	depositAssetScripts []types.Script,
	withdrawals []types.WithdrawalRequestExtra,
	post *types.GlobalState,
) error {
	tip, err := tx.GetTip()
	if err != nil {
		return fmt.Errorf("reading tip: %w", err)
	}

	number := block.Number()
	hash := block.Hash()
	if number != tip.Number+1 || block.Raw.ParentBlockHash != tip.Hash {
		return fmt.Errorf("%w: block %d parent %s, tip %s", ErrInvalidParent, number, block.Raw.ParentBlockHash, tip)
	}
	if post.TipBlockHash != hash || post.Block.Count != number+1 {
		return fmt.Errorf("%w: block %d", ErrInvalidGlobalState, number)
	}
	if int(block.Raw.WithdrawalCount) != len(withdrawals) {
		return fmt.Errorf("%w: block %d declares %d, got %d", ErrInvalidWithdrawals, number, block.Raw.WithdrawalCount, len(withdrawals))
	}

	if err := tx.InsertBlock(block, post, deposits, withdrawals); err != nil {
		return err
	}
	for i := range depositAssetScripts {
		if err := tx.InsertAssetScript(&depositAssetScripts[i]); err != nil {
			return err
		}
	}
	if err := tx.SetTip(types.NumberHash{Number: number, Hash: hash}); err != nil {
		return err
	}

	c.logger.WithFields(logrus.Fields{
		"number":      number,
		"hash":        hash,
		"deposits":    len(deposits),
		"withdrawals": len(withdrawals),
	}).Debug("applied block")

	return nil
}

// FinalizeCustodians computes and stores the finalized custodian snapshot at
// number: the snapshot at number-1, plus the deposits of the block that just
// reached finality, minus the withdrawals of block number.
func (c *Chain) FinalizeCustodians(tx store.Tx, number uint64) error {
	if number == 0 {
		return tx.SetFinalizedCustodians(0, &types.FinalizedCustodians{})
	}

	prev, err := tx.GetFinalizedCustodians(number - 1)
	if err != nil {
		return fmt.Errorf("custodians at %d: %w", number-1, err)
	}
	next := prev.Clone()

	if number > c.finalityBlocks {
		deposits, err := tx.GetBlockDeposits(number - c.finalityBlocks)
		if err != nil {
			return err
		}
		for _, d := range deposits {
			addCustodian(next, d.Request.SUDTScriptHash, d.Request.Capacity, d.Request.Amount)
		}
	}

	withdrawals, err := tx.GetBlockWithdrawals(number)
	if err != nil {
		return err
	}
	for _, w := range withdrawals {
		raw := w.Request.Raw
		if err := subCustodian(next, raw.SUDTScriptHash, raw.Capacity, raw.Amount); err != nil {
			return fmt.Errorf("block %d: %w", number, err)
		}
	}

	return tx.SetFinalizedCustodians(number, next)
}

func addCustodian(c *types.FinalizedCustodians, sudt types.Hash, capacity, amount uint64) {
	c.Capacity += capacity
	if a := c.Asset(sudt); a != nil {
		a.Capacity += capacity
		a.Amount += amount
		return
	}
	c.Assets = append(c.Assets, types.FinalizedCustodian{
		SUDTScriptHash: sudt,
		Capacity:       capacity,
		Amount:         amount,
	})
}

func subCustodian(c *types.FinalizedCustodians, sudt types.Hash, capacity, amount uint64) error {
	a := c.Asset(sudt)
	if a == nil || a.Capacity < capacity || a.Amount < amount || c.Capacity < capacity {
		return fmt.Errorf("%w: sudt %s capacity %d amount %d", ErrInsufficientCustodians, sudt, capacity, amount)
	}
	a.Capacity -= capacity
	a.Amount -= amount
	c.Capacity -= capacity
	return nil
}
