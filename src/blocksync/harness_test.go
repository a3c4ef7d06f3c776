package blocksync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mosaicnetworks/rollsync/src/chain"
	"github.com/mosaicnetworks/rollsync/src/chain/chaintest"
	"github.com/mosaicnetworks/rollsync/src/common"
	"github.com/mosaicnetworks/rollsync/src/l1"
	"github.com/mosaicnetworks/rollsync/src/mempool"
	"github.com/mosaicnetworks/rollsync/src/net"
	"github.com/mosaicnetworks/rollsync/src/store"
	"github.com/mosaicnetworks/rollsync/src/types"
	"github.com/stretchr/testify/require"
)

const testBackoff = 20 * time.Millisecond

// recordingMemPool records notifications instead of tracking transactions.
type recordingMemPool struct {
	sync.Mutex

	tips       []types.Hash
	completed  int
	failNotify int
}

func (p *recordingMemPool) NotifyNewTip(tip types.Hash, ctx *mempool.NotifyContext) error {
	if p.failNotify > 0 {
		p.failNotify--
		return errors.New("notify failed")
	}
	p.tips = append(p.tips, tip)
	return nil
}

func (p *recordingMemPool) SetCompletedInitialSyncing() {
	p.completed++
}

func (p *recordingMemPool) lastTip() types.Hash {
	p.Lock()
	defer p.Unlock()
	if len(p.tips) == 0 {
		return types.Hash{}
	}
	return p.tips[len(p.tips)-1]
}

func (p *recordingMemPool) completedCount() int {
	p.Lock()
	defer p.Unlock()
	return p.completed
}

// countingSyncer counts SyncL1 calls on top of a Follower.
type countingSyncer struct {
	*l1.Follower
	syncs int32
}

func (s *countingSyncer) SyncL1(ctx context.Context, c l1.Context) error {
	atomic.AddInt32(&s.syncs, 1)
	return s.Follower.SyncL1(ctx, c)
}

func (s *countingSyncer) count() int32 {
	return atomic.LoadInt32(&s.syncs)
}

type harness struct {
	t       *testing.T
	store   *store.InmemStore
	rpc     *l1.InmemRPC
	chain   *chain.Chain
	pool    *recordingMemPool
	syncer  *countingSyncer
	source  *net.Source
	client  *Client
	genesis *types.L2Block
}

func newHarness(t *testing.T) *harness {
	genesis, gs := chaintest.Genesis()

	h := &harness{
		t:       t,
		store:   chaintest.NewStore(),
		rpc:     l1.NewInmemRPC(genesis, gs),
		chain:   chain.NewChain(2, common.NewTestEntry(t, "chain")),
		pool:    &recordingMemPool{},
		syncer:  &countingSyncer{Follower: l1.NewFollower(common.NewTestEntry(t, "l1"))},
		source:  net.NewSource(net.Reject, common.NewTestEntry(t, "source")),
		genesis: genesis,
	}

	conf := &Config{
		Backoff: testBackoff,
		Logger:  common.NewTestEntry(t, "blocksync"),
		Metrics: NopMetrics(),
	}
	h.client = NewClient(conf, h.store, h.rpc, h.chain, h.pool, h.syncer, types.Script{Args: []byte("rollup")}, h.source)
	return h
}

// run starts the client and returns a func that stops it and waits for Run to
// return.
func (h *harness) run() func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.client.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// connect offers one end of a pipe to the client and returns the peer end.
func (h *harness) connect() net.Stream {
	local, peer := net.Pipe()
	require.True(h.t, h.source.Offer(local))
	return peer
}

// applyLocal stores blocks as if produced locally.
func (h *harness) applyLocal(blocks []*types.LocalBlock) {
	for _, lb := range blocks {
		require.NoError(h.t, h.client.apply(&LocalBlock{LocalBlock: *lb}))
	}
}

func (h *harness) setConfirmed(nh types.NumberHash) {
	tx, err := h.store.Begin()
	require.NoError(h.t, err)
	require.NoError(h.t, tx.SetLastConfirmedBlockNumberHash(nh))
	require.NoError(h.t, tx.Commit())
}

func (h *harness) tip() types.NumberHash {
	tip, err := h.store.GetTip()
	require.NoError(h.t, err)
	return tip
}

func (h *harness) stat(key string) string {
	return h.client.GetStats()[key]
}

func (h *harness) eventually(cond func() bool, msg string) {
	require.Eventually(h.t, cond, 5*time.Second, 5*time.Millisecond, msg)
}

func peerCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func expectRequest(t *testing.T, peer net.Stream) SyncRequest {
	ctx, cancel := peerCtx()
	defer cancel()

	frame, err := peer.Recv(ctx)
	require.NoError(t, err)

	var req SyncRequest
	require.NoError(t, req.Unmarshal(frame))
	return req
}

func respond(t *testing.T, peer net.Stream, resp SyncResponse) {
	ctx, cancel := peerCtx()
	defer cancel()
	require.NoError(t, peer.Send(ctx, resp.Marshal()))
}

func sendMessage(t *testing.T, peer net.Stream, m SyncMessage) {
	ctx, cancel := peerCtx()
	defer cancel()
	require.NoError(t, peer.Send(ctx, MarshalSyncMessage(m)))
}
