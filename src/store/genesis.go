package store

import (
	"fmt"

	cm "github.com/mosaicnetworks/rollsync/src/common"
	"github.com/mosaicnetworks/rollsync/src/types"
)

// InitGenesis writes the genesis block and points tip, last submitted and
// last confirmed at it when the store is empty. On a non-empty store it only
// checks that the stored genesis matches.
func InitGenesis(s Store, genesis *types.L2Block, post *types.GlobalState) error {
	_, err := s.GetTip()
	if err == nil {
		hash, ok, err := s.GetBlockHashByNumber(0)
		if err != nil {
			return err
		}
		if !ok || hash != genesis.Hash() {
			return fmt.Errorf("genesis mismatch: stored %s, expected %s", hash, genesis.Hash())
		}
		return nil
	}
	if !cm.IsStore(err, cm.Empty) {
		return err
	}

	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Discard()

	if err := tx.InsertBlock(genesis, post, nil, nil); err != nil {
		return err
	}
	nh := genesis.NumberHash()
	if err := tx.SetTip(nh); err != nil {
		return err
	}
	if err := tx.SetLastSubmittedBlockNumberHash(nh); err != nil {
		return err
	}
	if err := tx.SetLastConfirmedBlockNumberHash(nh); err != nil {
		return err
	}
	if err := tx.SetFinalizedCustodians(0, &types.FinalizedCustodians{}); err != nil {
		return err
	}
	return tx.Commit()
}
