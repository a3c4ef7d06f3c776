package l1

import (
	"context"
	"errors"
	"fmt"

	cm "github.com/mosaicnetworks/rollsync/src/common"
	"github.com/mosaicnetworks/rollsync/src/store"
	"github.com/mosaicnetworks/rollsync/src/types"
	"github.com/sirupsen/logrus"
)

// ErrDiverged is returned when a block below the common ancestor found by
// SyncL1 does not match the settlement layer.
var ErrDiverged = errors.New("local chain diverges from l1")

// Follower is the Syncer that reads committed blocks through the Context's
// RPCClient.
type Follower struct {
	logger *logrus.Entry
}

// NewFollower returns a Follower.
func NewFollower(logger *logrus.Entry) *Follower {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Follower{
		logger: logger.WithField("component", "l1"),
	}
}

// SyncL1 brings the local chain in line with the committed chain on L1.
// Local blocks that conflict with L1 are reverted. Committed blocks the store
// already holds are marked submitted and confirmed, and the rest are applied.
// Local blocks above the committed tip that do not conflict are kept.
func (f *Follower) SyncL1(ctx context.Context, c Context) error {
	rpc := c.RPCClient()
	rollup := c.RollupTypeScript()

	remote, err := rpc.GetCommittedTip(ctx, rollup)
	if err != nil {
		return fmt.Errorf("get committed tip: %w", err)
	}

	tip, err := c.Store().GetTip()
	if err != nil {
		return err
	}

	ancestor, err := f.commonAncestor(ctx, c, remote, tip)
	if err != nil {
		return err
	}
	if ancestor < tip.Number && ancestor < remote.Number {
		f.logger.WithFields(logrus.Fields{
			"local_tip": tip,
			"l1_tip":    remote,
			"ancestor":  ancestor,
		}).Warn("local chain conflicts with l1, reverting")

		if err := f.revert(c, ancestor); err != nil {
			return err
		}
		tip.Number = ancestor
	}

	confirmed, err := c.Store().GetLastConfirmedBlockNumberHash()
	if err != nil {
		return err
	}

	// A peer may confirm a block before delivering it, so the walk starts at
	// whichever of the confirmed pointer and the tip is lower.
	start := confirmed.Number
	if tip.Number < start {
		start = tip.Number
	}

	applied := 0
	for n := start + 1; n <= remote.Number; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		cb, err := rpc.GetCommittedBlock(ctx, rollup, n)
		if err != nil {
			return fmt.Errorf("get committed block %d: %w", n, err)
		}
		if err := f.confirm(c, cb, n <= tip.Number); err != nil {
			return fmt.Errorf("block %d: %w", n, err)
		}
		applied++
	}

	if applied > 0 {
		f.logger.WithFields(logrus.Fields{
			"l1_tip": remote,
			"blocks": applied,
		}).Debug("synced from l1")
	}

	return nil
}

// RevertBelow implements Syncer.
func (f *Follower) RevertBelow(c Context, tx store.Tx, number uint64) error {
	return revertBelow(tx, number)
}

// commonAncestor returns the highest height at which the local chain and the
// committed chain agree, searching down from the lower of the two tips.
func (f *Follower) commonAncestor(ctx context.Context, c Context, remote, tip types.NumberHash) (uint64, error) {
	n := tip.Number
	if remote.Number < n {
		n = remote.Number
	}

	for ; n > 0; n-- {
		local, ok, err := c.Store().GetBlockHashByNumber(n)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}

		committed := remote.Hash
		if n != remote.Number {
			cb, err := c.RPCClient().GetCommittedBlock(ctx, c.RollupTypeScript(), n)
			if err != nil {
				return 0, fmt.Errorf("get committed block %d: %w", n, err)
			}
			committed = cb.Block.Hash()
		}
		if local == committed {
			return n, nil
		}
	}
	return 0, nil
}

func (f *Follower) revert(c Context, number uint64) error {
	chain := c.Chain()
	chain.Lock()
	defer chain.Unlock()

	tx, err := c.Store().Begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	if err := revertBelow(tx, number); err != nil {
		return err
	}
	return tx.Commit()
}

// confirm records cb as submitted and confirmed, applying it first unless the
// store already holds it. Neither pointer moves backwards.
func (f *Follower) confirm(c Context, cb *CommittedBlock, stored bool) error {
	chain := c.Chain()
	chain.Lock()
	defer chain.Unlock()

	tx, err := c.Store().Begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	nh := cb.NumberHash()
	if stored {
		hash, ok, err := tx.GetBlockHashByNumber(nh.Number)
		if err != nil {
			return err
		}
		if !ok || hash != nh.Hash {
			return fmt.Errorf("%w: local %s, l1 %s", ErrDiverged, hash, nh.Hash)
		}
	} else {
		lb := &cb.LocalBlock
		if err := chain.ApplyBlock(tx, lb.Block, lb.Deposits, lb.DepositAssetScripts, lb.Withdrawals, &lb.PostGlobalState); err != nil {
			return err
		}
		if err := chain.FinalizeCustodians(tx, nh.Number); err != nil {
			return err
		}
	}

	if err := tx.SetBlockSubmitTxHash(nh.Number, cb.SubmitTxHash); err != nil {
		return err
	}
	submitted, err := tx.GetLastSubmittedBlockNumberHash()
	if err != nil {
		return err
	}
	if submitted.Number < nh.Number {
		if err := tx.SetLastSubmittedBlockNumberHash(nh); err != nil {
			return err
		}
	}
	confirmed, err := tx.GetLastConfirmedBlockNumberHash()
	if err != nil {
		return err
	}
	if confirmed.Number < nh.Number {
		if err := tx.SetLastConfirmedBlockNumberHash(nh); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// revertBelow detaches every block above number and clamps the tip and the
// submitted and confirmed pointers to number. It is a no-op when the tip is
// already at or below number.
func revertBelow(tx store.Tx, number uint64) error {
	tip, err := tx.GetTip()
	if err != nil {
		return err
	}
	if tip.Number <= number {
		return nil
	}

	hash, ok, err := tx.GetBlockHashByNumber(number)
	if err != nil {
		return err
	}
	if !ok {
		return cm.NewStoreErr("Block", cm.KeyNotFound, fmt.Sprintf("number %d", number))
	}
	target := types.NumberHash{Number: number, Hash: hash}

	for n := tip.Number; n > number; n-- {
		if err := tx.DetachBlock(n); err != nil && !cm.IsStore(err, cm.KeyNotFound) {
			return err
		}
	}
	if err := tx.SetTip(target); err != nil {
		return err
	}

	submitted, err := tx.GetLastSubmittedBlockNumberHash()
	if err != nil {
		return err
	}
	if submitted.Number > number {
		if err := tx.SetLastSubmittedBlockNumberHash(target); err != nil {
			return err
		}
	}
	confirmed, err := tx.GetLastConfirmedBlockNumberHash()
	if err != nil {
		return err
	}
	if confirmed.Number > number {
		if err := tx.SetLastConfirmedBlockNumberHash(target); err != nil {
			return err
		}
	}
	return nil
}
