package store

import (
	"errors"
	"fmt"

	cm "github.com/mosaicnetworks/rollsync/src/common"
	"github.com/mosaicnetworks/rollsync/src/types"
)

// errKVNotFound is what kvTxn.get returns for a missing key. It is mapped to a
// common.StoreErr before leaving the package.
var errKVNotFound = errors.New("key not found")

// kvTxn is the engine seam: InmemStore and BadgerStore each provide one.
type kvTxn interface {
	get(key []byte) ([]byte, error)
	set(key, val []byte) error
	delete(key []byte) error
	commit() error
	discard()
}

// storeTx implements Tx (and, through read-only kvTxns, Reader) on top of a
// kvTxn.
type storeTx struct {
	kv     kvTxn
	closed bool
}

var _ Tx = (*storeTx)(nil)

func mapError(err error, name, key string) error {
	if errors.Is(err, errKVNotFound) {
		return cm.NewStoreErr(name, cm.KeyNotFound, key)
	}
	return err
}

func (t *storeTx) checkOpen() error {
	if t.closed {
		return cm.NewStoreErr("Tx", cm.TxClosed, "")
	}
	return nil
}

func (t *storeTx) getValue(name string, key []byte, v interface{}) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	data, err := t.kv.get(key)
	if err != nil {
		return mapError(err, name, string(key))
	}
	if err := unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s %s: %w", name, key, err)
	}
	return nil
}

func (t *storeTx) setValue(key []byte, v interface{}) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	data, err := marshal(v)
	if err != nil {
		return err
	}
	return t.kv.set(key, data)
}

func (t *storeTx) getHash(name string, key []byte) (types.Hash, bool, error) {
	var h types.Hash
	if err := t.checkOpen(); err != nil {
		return h, false, err
	}
	data, err := t.kv.get(key)
	if errors.Is(err, errKVNotFound) {
		return h, false, nil
	}
	if err != nil {
		return h, false, err
	}
	if len(data) != types.HashSize {
		return h, false, fmt.Errorf("%s %s: corrupt hash of %d bytes", name, key, len(data))
	}
	copy(h[:], data)
	return h, true, nil
}

func (t *storeTx) getPointer(name string, key []byte) (types.NumberHash, error) {
	var nh types.NumberHash
	err := t.getValue(name, key, &nh)
	if cm.IsStore(err, cm.KeyNotFound) {
		return nh, cm.NewStoreErr(name, cm.Empty, string(key))
	}
	return nh, err
}

//==============================================================================
//Reader

func (t *storeTx) GetTip() (types.NumberHash, error) {
	return t.getPointer("Tip", tipKey)
}

func (t *storeTx) GetLastValidTipBlockHash() (types.Hash, error) {
	tip, err := t.GetTip()
	return tip.Hash, err
}

func (t *storeTx) GetLastSubmittedBlockNumberHash() (types.NumberHash, error) {
	return t.getPointer("LastSubmitted", lastSubmittedKey)
}

func (t *storeTx) GetLastConfirmedBlockNumberHash() (types.NumberHash, error) {
	return t.getPointer("LastConfirmed", lastConfirmedKey)
}

func (t *storeTx) GetBlockHashByNumber(number uint64) (types.Hash, bool, error) {
	return t.getHash("BlockHash", numberKey(number))
}

func (t *storeTx) GetBlock(hash types.Hash) (*types.L2Block, error) {
	block := new(types.L2Block)
	if err := t.getValue("Block", blockKey(hash), block); err != nil {
		return nil, err
	}
	return block, nil
}

func (t *storeTx) GetBlockPostGlobalState(hash types.Hash) (*types.GlobalState, error) {
	gs := new(types.GlobalState)
	if err := t.getValue("GlobalState", globalStateKey(hash), gs); err != nil {
		return nil, err
	}
	return gs, nil
}

func (t *storeTx) GetBlockDeposits(number uint64) ([]types.DepositInfo, error) {
	var deposits []types.DepositInfo
	err := t.getValue("Deposits", depositsKey(number), &deposits)
	return deposits, err
}

func (t *storeTx) GetBlockWithdrawals(number uint64) ([]types.WithdrawalRequestExtra, error) {
	var withdrawals []types.WithdrawalRequestExtra
	err := t.getValue("Withdrawals", withdrawalsKey(number), &withdrawals)
	return withdrawals, err
}

func (t *storeTx) GetBlockSubmitTxHash(number uint64) (types.Hash, bool, error) {
	return t.getHash("SubmitTx", submitTxKey(number))
}

func (t *storeTx) GetFinalizedCustodians(number uint64) (*types.FinalizedCustodians, error) {
	c := new(types.FinalizedCustodians)
	if err := t.getValue("Custodians", custodiansKey(number), c); err != nil {
		return nil, err
	}
	return c, nil
}

func (t *storeTx) GetAssetScript(hash types.Hash) (*types.Script, error) {
	s := new(types.Script)
	if err := t.getValue("Script", scriptKey(hash), s); err != nil {
		return nil, err
	}
	return s, nil
}

//==============================================================================
//Writer

func (t *storeTx) InsertBlock(
	block *types.L2Block,
	post *types.GlobalState,
	deposits []types.DepositInfo,
	withdrawals []types.WithdrawalRequestExtra,
) error {
	number := block.Number()
	if _, ok, err := t.GetBlockHashByNumber(number); err != nil {
		return err
	} else if ok {
		return cm.NewStoreErr("Block", cm.KeyAlreadyExists, string(numberKey(number)))
	}

	hash := block.Hash()
	if err := t.kv.set(numberKey(number), hash[:]); err != nil {
		return err
	}
	if err := t.setValue(blockKey(hash), block); err != nil {
		return err
	}
	if err := t.setValue(globalStateKey(hash), post); err != nil {
		return err
	}
	if err := t.setValue(depositsKey(number), deposits); err != nil {
		return err
	}
	return t.setValue(withdrawalsKey(number), withdrawals)
}

func (t *storeTx) DetachBlock(number uint64) error {
	hash, ok, err := t.GetBlockHashByNumber(number)
	if err != nil {
		return err
	}
	if !ok {
		return cm.NewStoreErr("Block", cm.KeyNotFound, string(numberKey(number)))
	}
	for _, key := range [][]byte{
		numberKey(number),
		blockKey(hash),
		globalStateKey(hash),
		depositsKey(number),
		withdrawalsKey(number),
		submitTxKey(number),
		custodiansKey(number),
	} {
		if err := t.kv.delete(key); err != nil {
			return err
		}
	}
	return nil
}

func (t *storeTx) SetTip(tip types.NumberHash) error {
	return t.setValue(tipKey, &tip)
}

func (t *storeTx) SetBlockSubmitTxHash(number uint64, txHash types.Hash) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	return t.kv.set(submitTxKey(number), txHash[:])
}

func (t *storeTx) SetLastSubmittedBlockNumberHash(nh types.NumberHash) error {
	return t.setValue(lastSubmittedKey, &nh)
}

func (t *storeTx) SetLastConfirmedBlockNumberHash(nh types.NumberHash) error {
	return t.setValue(lastConfirmedKey, &nh)
}

func (t *storeTx) SetFinalizedCustodians(number uint64, c *types.FinalizedCustodians) error {
	return t.setValue(custodiansKey(number), c)
}

func (t *storeTx) InsertAssetScript(script *types.Script) error {
	return t.setValue(scriptKey(script.Hash()), script)
}

func (t *storeTx) Commit() error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	t.closed = true
	return t.kv.commit()
}

func (t *storeTx) Discard() {
	if t.closed {
		return
	}
	t.closed = true
	t.kv.discard()
}

// view runs fn against a read-only transaction that is always discarded.
func view(kv kvTxn, fn func(t *storeTx) error) error {
	t := &storeTx{kv: kv}
	defer t.Discard()
	return fn(t)
}
