package store

import "github.com/mosaicnetworks/rollsync/src/types"

// readView implements Reader for a Store by running each call in its own
// read-only transaction.
type readView struct {
	readTxn func() kvTxn
}

func (r readView) GetTip() (tip types.NumberHash, err error) {
	err = view(r.readTxn(), func(t *storeTx) error {
		tip, err = t.GetTip()
		return err
	})
	return
}

func (r readView) GetLastValidTipBlockHash() (hash types.Hash, err error) {
	err = view(r.readTxn(), func(t *storeTx) error {
		hash, err = t.GetLastValidTipBlockHash()
		return err
	})
	return
}

func (r readView) GetLastSubmittedBlockNumberHash() (nh types.NumberHash, err error) {
	err = view(r.readTxn(), func(t *storeTx) error {
		nh, err = t.GetLastSubmittedBlockNumberHash()
		return err
	})
	return
}

func (r readView) GetLastConfirmedBlockNumberHash() (nh types.NumberHash, err error) {
	err = view(r.readTxn(), func(t *storeTx) error {
		nh, err = t.GetLastConfirmedBlockNumberHash()
		return err
	})
	return
}

func (r readView) GetBlockHashByNumber(number uint64) (hash types.Hash, ok bool, err error) {
	err = view(r.readTxn(), func(t *storeTx) error {
		hash, ok, err = t.GetBlockHashByNumber(number)
		return err
	})
	return
}

func (r readView) GetBlock(hash types.Hash) (block *types.L2Block, err error) {
	err = view(r.readTxn(), func(t *storeTx) error {
		block, err = t.GetBlock(hash)
		return err
	})
	return
}

func (r readView) GetBlockPostGlobalState(hash types.Hash) (gs *types.GlobalState, err error) {
	err = view(r.readTxn(), func(t *storeTx) error {
		gs, err = t.GetBlockPostGlobalState(hash)
		return err
	})
	return
}

func (r readView) GetBlockDeposits(number uint64) (deposits []types.DepositInfo, err error) {
	err = view(r.readTxn(), func(t *storeTx) error {
		deposits, err = t.GetBlockDeposits(number)
		return err
	})
	return
}

func (r readView) GetBlockWithdrawals(number uint64) (withdrawals []types.WithdrawalRequestExtra, err error) {
	err = view(r.readTxn(), func(t *storeTx) error {
		withdrawals, err = t.GetBlockWithdrawals(number)
		return err
	})
	return
}

func (r readView) GetBlockSubmitTxHash(number uint64) (hash types.Hash, ok bool, err error) {
	err = view(r.readTxn(), func(t *storeTx) error {
		hash, ok, err = t.GetBlockSubmitTxHash(number)
		return err
	})
	return
}

func (r readView) GetFinalizedCustodians(number uint64) (c *types.FinalizedCustodians, err error) {
	err = view(r.readTxn(), func(t *storeTx) error {
		c, err = t.GetFinalizedCustodians(number)
		return err
	})
	return
}

func (r readView) GetAssetScript(hash types.Hash) (s *types.Script, err error) {
	err = view(r.readTxn(), func(t *storeTx) error {
		s, err = t.GetAssetScript(hash)
		return err
	})
	return
}
