// Package blocksync keeps the local chain store and mem pool in line with
// the canonical rollup chain. It follows a peer stream when one is available
// and falls back to the settlement layer otherwise.
package blocksync

import (
	"context"
	"errors"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/rollsync/src/l1"
	"github.com/mosaicnetworks/rollsync/src/mempool"
	"github.com/mosaicnetworks/rollsync/src/net"
	"github.com/mosaicnetworks/rollsync/src/store"
	"github.com/mosaicnetworks/rollsync/src/types"
	"github.com/sirupsen/logrus"
)

// errEndOfStream is returned when a peer closes the stream while streaming.
var errEndOfStream = net.NewStreamError("recv", io.EOF)

// MemPool is the part of the mem pool the client drives. The embedded Locker
// is shared with the block producer.
type MemPool interface {
	sync.Locker

	NotifyNewTip(tip types.Hash, ctx *mempool.NotifyContext) error
	SetCompletedInitialSyncing()
}

// Client is the block-sync orchestrator. It runs in a single goroutine
// switching between NoStream, Handshaking and Streaming.
type Client struct {
	state

	conf    *Config
	logger  *logrus.Entry
	metrics *Metrics

	store   store.Store
	rpc     l1.RPCClient
	chain   l1.Chain
	memPool MemPool
	syncer  l1.Syncer
	rollup  types.Script
	source  *net.Source

	// completedInitialSyncing flips once, after the first consistent view of
	// the tip has been pushed to the mem pool.
	initialSyncLock         sync.Mutex
	completedInitialSyncing bool

	l1Syncs           uint64
	syncRequests      uint64
	messagesApplied   uint64
	streamErrors      uint64
	applicationErrors uint64
	consistencyErrors uint64

	start time.Time
}

// NewClient returns a Client reading peer streams from source.
func NewClient(
	conf *Config,
	s store.Store,
	rpc l1.RPCClient,
	chain l1.Chain,
	memPool MemPool,
	syncer l1.Syncer,
	rollup types.Script,
	source *net.Source,
) *Client {
	if conf.Backoff <= 0 {
		conf.Backoff = DefaultBackoff
	}
	if conf.Logger == nil {
		conf.Logger = logrus.NewEntry(logrus.New())
	}
	if conf.Metrics == nil {
		conf.Metrics = NopMetrics()
	}

	return &Client{
		conf:    conf,
		logger:  conf.Logger.WithField("component", "blocksync"),
		metrics: conf.Metrics,
		store:   s,
		rpc:     rpc,
		chain:   chain,
		memPool: memPool,
		syncer:  syncer,
		rollup:  rollup,
		source:  source,
		start:   time.Now(),
	}
}

// Store implements l1.Context.
func (c *Client) Store() store.Store {
	return c.store
}

// RPCClient implements l1.Context.
func (c *Client) RPCClient() l1.RPCClient {
	return c.rpc
}

// Chain implements l1.Context.
func (c *Client) Chain() l1.Chain {
	return c.chain
}

// RollupTypeScript implements l1.Context.
func (c *Client) RollupTypeScript() *types.Script {
	return &c.rollup
}

// Run drives the client until ctx is cancelled. No sync failure stops it.
func (c *Client) Run(ctx context.Context) error {
	var stream net.Stream
	defer func() {
		if stream != nil {
			stream.Close()
		}
		c.setMode(Stopped)
	}()

	for ctx.Err() == nil {
		if stream == nil {
			c.setMode(NoStream)

			if s, ok := c.source.TryNext(); ok {
				c.logger.WithFields(logrus.Fields{
					"stream": s.ID(),
					"peer":   s.RemoteAddr(),
				}).Info("using peer stream")
				stream = s
				continue
			}

			if err := c.syncL1(ctx); err != nil && ctx.Err() == nil {
				c.logger.WithError(err).Warn("l1 sync failed")
			}
		} else {
			err := c.runWithStream(ctx, stream)
			if ctx.Err() != nil {
				break
			}
			if c.handleCycleError(stream, err) {
				stream.Close()
				stream = nil
			}
		}

		c.sleep(ctx)
	}

	return nil
}

// handleCycleError logs the outcome of a stream cycle and reports whether the
// stream must be dropped.
func (c *Client) handleCycleError(stream net.Stream, err error) bool {
	logger := c.logger.WithField("stream", stream.ID())

	var ce *ConsistencyError
	switch {
	case err == nil:
		return false
	case errors.Is(err, errEndOfStream):
		logger.Info("end receiving block sync messages from peer")
		return true
	case net.IsStreamError(err):
		atomic.AddUint64(&c.streamErrors, 1)
		c.metrics.StreamErrors.Add(1)
		logger.WithError(err).Warn("dropping peer stream")
		return true
	case errors.As(err, &ce):
		atomic.AddUint64(&c.consistencyErrors, 1)
		c.metrics.ConsistencyErrors.Add(1)
		logger.WithFields(logrus.Fields{
			"number":   ce.Number,
			"stored":   ce.Stored,
			"received": ce.Received,
		}).Error("block hash mismatch at occupied height")
		return false
	default:
		atomic.AddUint64(&c.applicationErrors, 1)
		c.metrics.ApplicationErrors.Add(1)
		logger.WithError(err).Warn("block sync cycle failed")
		return false
	}
}

// runWithStream negotiates a start point on stream and then applies messages
// until the stream ends or an error occurs.
func (c *Client) runWithStream(ctx context.Context, stream net.Stream) error {
	c.setMode(Handshaking)
	if err := c.handshake(ctx, stream); err != nil {
		return err
	}

	c.setMode(Streaming)
	c.logger.WithField("stream", stream.ID()).Info("receiving block sync messages from peer")

	for {
		frame, err := stream.Recv(ctx)
		if err == io.EOF {
			return errEndOfStream
		}
		if err != nil {
			return asStreamError("recv", err)
		}

		msg, err := UnmarshalSyncMessage(frame)
		if err != nil {
			return net.NewStreamError("decode", err)
		}
		if err := c.apply(msg); err != nil {
			return err
		}

		atomic.AddUint64(&c.messagesApplied, 1)
		c.metrics.MessagesApplied.Add(1)
	}
}

// syncL1 runs one L1 sync and pushes the resulting tip to the mem pool. The
// first success completes initial syncing.
func (c *Client) syncL1(ctx context.Context) error {
	atomic.AddUint64(&c.l1Syncs, 1)
	c.metrics.L1Syncs.Add(1)

	if err := c.syncer.SyncL1(ctx, c); err != nil {
		c.metrics.L1SyncErrors.Add(1)
		return err
	}
	c.updateHeights()

	tip, err := c.store.GetLastValidTipBlockHash()
	if err != nil {
		return err
	}

	c.initialSyncLock.Lock()
	defer c.initialSyncLock.Unlock()

	if c.completedInitialSyncing {
		return c.notifyNewTip(tip)
	}

	err = c.withMemPool(func(p MemPool) error {
		if err := p.NotifyNewTip(tip, &mempool.NotifyContext{}); err != nil {
			return err
		}
		p.SetCompletedInitialSyncing()
		return nil
	})
	if err != nil {
		return err
	}
	c.completedInitialSyncing = true
	c.logger.WithField("tip", tip).Info("completed initial syncing")
	return nil
}

// withChain runs fn holding the chain lock. fn must not touch a stream or the
// mem pool.
func (c *Client) withChain(fn func(chain l1.Chain) error) error {
	c.chain.Lock()
	defer c.chain.Unlock()
	return fn(c.chain)
}

// withMemPool runs fn holding the mem pool lock. fn must not touch a stream
// or the chain.
func (c *Client) withMemPool(fn func(p MemPool) error) error {
	c.memPool.Lock()
	defer c.memPool.Unlock()
	return fn(c.memPool)
}

func (c *Client) notifyNewTip(tip types.Hash) error {
	return c.withMemPool(func(p MemPool) error {
		return p.NotifyNewTip(tip, &mempool.NotifyContext{})
	})
}

// sleep waits for the backoff or until ctx is done.
func (c *Client) sleep(ctx context.Context) error {
	t := time.NewTimer(c.conf.Backoff)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) setMode(m Mode) {
	c.state.setMode(m)
	c.metrics.Mode.Set(float64(m))
}

func (c *Client) updateHeights() {
	if tip, err := c.store.GetTip(); err == nil {
		c.metrics.TipHeight.Set(float64(tip.Number))
	}
	if confirmed, err := c.store.GetLastConfirmedBlockNumberHash(); err == nil {
		c.metrics.ConfirmedHeight.Set(float64(confirmed.Number))
	}
}

// Mode returns the current mode.
func (c *Client) Mode() Mode {
	return c.getMode()
}

// IsCompletedInitialSyncing reports whether initial syncing has completed.
func (c *Client) IsCompletedInitialSyncing() bool {
	c.initialSyncLock.Lock()
	defer c.initialSyncLock.Unlock()
	return c.completedInitialSyncing
}

// GetStats returns client statistics for the status service.
func (c *Client) GetStats() map[string]string {
	pointer := func(get func() (types.NumberHash, error)) string {
		nh, err := get()
		if err != nil {
			return "nil"
		}
		return nh.String()
	}
	count := func(addr *uint64) string {
		return strconv.FormatUint(atomic.LoadUint64(addr), 10)
	}

	return map[string]string{
		"mode":                      c.Mode().String(),
		"tip":                       pointer(c.store.GetTip),
		"last_submitted":            pointer(c.store.GetLastSubmittedBlockNumberHash),
		"last_confirmed":            pointer(c.store.GetLastConfirmedBlockNumberHash),
		"completed_initial_syncing": strconv.FormatBool(c.IsCompletedInitialSyncing()),
		"l1_syncs":                  count(&c.l1Syncs),
		"sync_requests":             count(&c.syncRequests),
		"messages_applied":          count(&c.messagesApplied),
		"stream_errors":             count(&c.streamErrors),
		"application_errors":        count(&c.applicationErrors),
		"consistency_errors":        count(&c.consistencyErrors),
		"uptime":                    time.Since(c.start).Round(time.Second).String(),
	}
}

// asStreamError makes sure err is classified as a transport failure.
func asStreamError(op string, err error) error {
	if net.IsStreamError(err) {
		return err
	}
	return net.NewStreamError(op, err)
}
