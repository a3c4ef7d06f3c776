// Package mempool holds pending rollup transactions. It follows the chain tip
// through NotifyNewTip and refuses new transactions until the node has
// completed its initial sync.
package mempool

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mosaicnetworks/rollsync/src/store"
	"github.com/mosaicnetworks/rollsync/src/types"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotSynced is returned by Push before initial syncing has completed.
	ErrNotSynced = errors.New("mem pool has not completed initial syncing")
	// ErrFull is returned by Push when the pool is at capacity.
	ErrFull = errors.New("mem pool is full")
	// ErrDuplicate is returned by Push for a transaction already pending.
	ErrDuplicate = errors.New("transaction already in mem pool")
)

// NotifyContext carries optional hints for NotifyNewTip. The zero value is the
// default context.
type NotifyContext struct {
	// Reinject lists transactions from reverted blocks to put back in the pool.
	Reinject [][]byte
}

// MemPool is the pending transaction pool. It embeds the mutex shared with
// the block producer and the sync client; callers hold it around every method
// except the read-only accessors.
type MemPool struct {
	sync.Mutex

	store    store.Reader
	capacity int
	logger   *logrus.Entry

	tip     types.Hash
	pending map[types.Hash][]byte
	order   []types.Hash

	completedInitialSyncing atomic.Bool
}

// NewMemPool returns an empty pool reading blocks from s.
func NewMemPool(s store.Reader, capacity int, logger *logrus.Entry) *MemPool {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &MemPool{
		store:    s,
		capacity: capacity,
		logger:   logger.WithField("component", "mempool"),
		pending:  make(map[types.Hash][]byte),
	}
}

// Push admits a raw transaction.
func (p *MemPool) Push(tx []byte) (types.Hash, error) {
	hash := types.TxHash(tx)
	if !p.completedInitialSyncing.Load() {
		return hash, ErrNotSynced
	}
	if _, ok := p.pending[hash]; ok {
		return hash, ErrDuplicate
	}
	if p.capacity > 0 && len(p.pending) >= p.capacity {
		return hash, ErrFull
	}
	p.pending[hash] = tx
	p.order = append(p.order, hash)
	return hash, nil
}

// NotifyNewTip moves the pool onto a new tip: transactions included in the tip
// block are dropped and reinjected ones are re-admitted. Notifying the current
// tip again is a no-op.
func (p *MemPool) NotifyNewTip(tip types.Hash, ctx *NotifyContext) error {
	if tip == p.tip && (ctx == nil || len(ctx.Reinject) == 0) {
		return nil
	}

	block, err := p.store.GetBlock(tip)
	if err != nil {
		return fmt.Errorf("loading tip block %s: %w", tip, err)
	}

	included := 0
	for _, tx := range block.Transactions {
		h := types.TxHash(tx)
		if _, ok := p.pending[h]; ok {
			delete(p.pending, h)
			included++
		}
	}
	if ctx != nil {
		for _, tx := range ctx.Reinject {
			h := types.TxHash(tx)
			if _, ok := p.pending[h]; !ok {
				p.pending[h] = tx
				p.order = append(p.order, h)
			}
		}
	}
	p.compact()
	p.tip = tip

	p.logger.WithFields(logrus.Fields{
		"tip":      tip,
		"number":   block.Number(),
		"included": included,
		"pending":  len(p.pending),
	}).Debug("new tip")

	return nil
}

// SetCompletedInitialSyncing opens the pool to new transactions.
func (p *MemPool) SetCompletedInitialSyncing() {
	p.completedInitialSyncing.Store(true)
}

// IsCompletedInitialSyncing reports whether SetCompletedInitialSyncing ran.
func (p *MemPool) IsCompletedInitialSyncing() bool {
	return p.completedInitialSyncing.Load()
}

// Tip returns the last notified tip.
func (p *MemPool) Tip() types.Hash {
	return p.tip
}

// Pending returns pending transactions in admission order.
func (p *MemPool) Pending() [][]byte {
	out := make([][]byte, 0, len(p.order))
	for _, h := range p.order {
		if tx, ok := p.pending[h]; ok {
			out = append(out, tx)
		}
	}
	return out
}

func (p *MemPool) compact() {
	order := p.order[:0]
	for _, h := range p.order {
		if _, ok := p.pending[h]; ok {
			order = append(order, h)
		}
	}
	p.order = order
}
