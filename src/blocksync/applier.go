package blocksync

import (
	"fmt"

	"github.com/mosaicnetworks/rollsync/src/l1"
	"github.com/sirupsen/logrus"
)

// apply dispatches one message. Each variant is a single store transaction;
// the mem pool is notified after commit when the tip moved.
func (c *Client) apply(msg SyncMessage) error {
	switch m := msg.(type) {
	case *Revert:
		return c.applyRevert(m)
	case *LocalBlock:
		return c.applyLocalBlock(m)
	case *Submitted:
		return c.applySubmitted(m)
	case *Confirmed:
		return c.applyConfirmed(m)
	default:
		return fmt.Errorf("unexpected sync message %T", msg)
	}
}

// applyRevert does not check the target hash against the store. A target at
// or above the tip changes nothing and notifies no one.
func (c *Client) applyRevert(m *Revert) error {
	logger := c.logger.WithField("number", m.Target.Number)
	logger.Info("received revert block")

	reverted := false
	err := c.withChain(func(chain l1.Chain) error {
		tx, err := c.store.Begin()
		if err != nil {
			return err
		}
		defer tx.Discard()

		tip, err := tx.GetTip()
		if err != nil {
			return err
		}
		if tip.Number <= m.Target.Number {
			return nil
		}

		if err := c.syncer.RevertBelow(c, tx, m.Target.Number); err != nil {
			return fmt.Errorf("revert below %d: %w", m.Target.Number, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		reverted = true
		return nil
	})
	if err != nil {
		return err
	}
	if !reverted {
		logger.Debug("nothing to revert")
		return nil
	}
	c.metrics.Reverts.Add(1)
	c.updateHeights()

	return c.notifyNewTip(m.Target.Hash)
}

func (c *Client) applyLocalBlock(m *LocalBlock) error {
	nh := m.Block.NumberHash()
	logger := c.logger.WithFields(logrus.Fields{
		"number": nh.Number,
		"hash":   nh.Hash,
	})
	logger.Info("received block")

	applied := false
	err := c.withChain(func(chain l1.Chain) error {
		tx, err := c.store.Begin()
		if err != nil {
			return err
		}
		defer tx.Discard()

		stored, ok, err := tx.GetBlockHashByNumber(nh.Number)
		if err != nil {
			return err
		}
		if ok {
			if stored != nh.Hash {
				return &ConsistencyError{Number: nh.Number, Stored: stored, Received: nh.Hash}
			}
			return nil
		}

		if err := chain.ApplyBlock(tx, m.Block, m.Deposits, m.DepositAssetScripts, m.Withdrawals, &m.PostGlobalState); err != nil {
			return fmt.Errorf("apply block %d: %w", nh.Number, err)
		}
		if err := chain.FinalizeCustodians(tx, nh.Number); err != nil {
			return fmt.Errorf("finalize custodians %d: %w", nh.Number, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return err
	}
	if !applied {
		logger.Debug("block already stored")
		return nil
	}

	c.metrics.BlocksApplied.Add(1)
	c.updateHeights()

	return c.notifyNewTip(nh.Hash)
}

func (c *Client) applySubmitted(m *Submitted) error {
	c.logger.WithFields(logrus.Fields{
		"number":  m.Block.Number,
		"tx_hash": m.TxHash,
	}).Info("received submitted block")

	tx, err := c.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	if err := tx.SetBlockSubmitTxHash(m.Block.Number, m.TxHash); err != nil {
		return err
	}
	if err := tx.SetLastSubmittedBlockNumberHash(m.Block); err != nil {
		return err
	}
	return tx.Commit()
}

func (c *Client) applyConfirmed(m *Confirmed) error {
	c.logger.WithField("number", m.Block.Number).Info("received confirmed block")

	tx, err := c.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	if err := tx.SetLastConfirmedBlockNumberHash(m.Block); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.updateHeights()
	return nil
}
