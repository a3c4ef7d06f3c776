package rollsync

import (
	"context"
	"testing"
	"time"

	"github.com/mosaicnetworks/rollsync/src/blocksync"
	"github.com/mosaicnetworks/rollsync/src/chain/chaintest"
	"github.com/mosaicnetworks/rollsync/src/common"
	"github.com/mosaicnetworks/rollsync/src/config"
	"github.com/mosaicnetworks/rollsync/src/l1"
	"github.com/mosaicnetworks/rollsync/src/net"
	"github.com/mosaicnetworks/rollsync/src/peers"
	"github.com/mosaicnetworks/rollsync/src/types"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) *config.Config {
	conf := config.NewTestConfig(t)
	conf.SetDataDir(t.TempDir())
	conf.BindAddr = "127.0.0.1:0"
	conf.NoService = true
	conf.Store = false
	conf.Backoff = 20 * time.Millisecond
	conf.TCPTimeout = time.Second
	return conf
}

func newTestEngine(t *testing.T, conf *config.Config) *Rollsync {
	r := NewRollsync(conf)
	r.Metrics = blocksync.NopMetrics()
	require.NoError(t, r.Init())
	return r
}

// start runs the engine and returns a func that stops it and checks the
// result of Run.
func start(t *testing.T, r *Rollsync) func() {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(ctx)
	}()
	return func() {
		cancel()
		select {
		case err := <-errCh:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("engine did not stop")
		}
	}
}

func commit(t *testing.T, rpc *l1.InmemRPC, blocks []*types.LocalBlock) {
	for _, lb := range blocks {
		require.NoError(t, rpc.Commit(&l1.CommittedBlock{
			LocalBlock:   *lb,
			SubmitTxHash: types.Blake2b([]byte("submit"), lb.Block.Raw.BlockProducer),
		}))
	}
}

func tipOf(t *testing.T, r *Rollsync) types.NumberHash {
	tip, err := r.Store.GetTip()
	require.NoError(t, err)
	return tip
}

func TestInitRejectsBadRollupArgs(t *testing.T) {
	conf := newTestConfig(t)
	conf.RollupScriptArgs = "0xzz"

	r := NewRollsync(conf)
	r.Metrics = blocksync.NopMetrics()
	require.Error(t, r.Init())
}

func TestInitRejectsBadSourcePolicy(t *testing.T) {
	conf := newTestConfig(t)
	conf.SourcePolicy = "queue"

	r := NewRollsync(conf)
	r.Metrics = blocksync.NopMetrics()
	require.Error(t, r.Init())
}

func TestRollsyncFollowsL1AndInboundPeer(t *testing.T) {
	r := newTestEngine(t, newTestConfig(t))

	rpc, ok := r.RPC.(*l1.InmemRPC)
	require.True(t, ok)

	genesis, _ := r.Genesis()
	blocks := chaintest.Chain(genesis.NumberHash(), 3, 0)
	commit(t, rpc, blocks[:2])

	stop := start(t, r)
	defer stop()

	require.Eventually(t, func() bool {
		return tipOf(t, r) == blocks[1].Block.NumberHash()
	}, 5*time.Second, 10*time.Millisecond)

	peerSource := net.NewSource(net.Reject, common.NewTestEntry(t, "peer"))
	peer, err := net.NewTCPTransport("127.0.0.1:0", "", r.Config.ProtocolHeader(), peerSource, time.Second, common.NewTestEntry(t, "peer"))
	require.NoError(t, err)
	defer peer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := peer.Dial(ctx, r.Transport.LocalAddr())
	require.NoError(t, err)
	defer stream.Close()

	frame, err := stream.Recv(ctx)
	require.NoError(t, err)

	var req blocksync.SyncRequest
	require.NoError(t, req.Unmarshal(frame))
	require.Equal(t, blocks[1].Block.NumberHash(), req.LastConfirmed)

	require.NoError(t, stream.Send(ctx, blocksync.Found.Marshal()))
	require.NoError(t, stream.Send(ctx, blocksync.MarshalSyncMessage(&blocksync.LocalBlock{LocalBlock: *blocks[2]})))

	require.Eventually(t, func() bool {
		return tipOf(t, r) == blocks[2].Block.NumberHash()
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, blocksync.Streaming, r.Client.Mode())
}

func TestRollsyncDialsPeers(t *testing.T) {
	peerSource := net.NewSource(net.Reject, common.NewTestEntry(t, "peer"))
	peer, err := net.NewTCPTransport("127.0.0.1:0", "", net.DefaultProtocolHeader(), peerSource, time.Second, common.NewTestEntry(t, "peer"))
	require.NoError(t, err)
	go peer.Listen()
	defer peer.Close()
	defer peerSource.Close()

	conf := newTestConfig(t)
	conf.Peers = []string{"127.0.0.1:1"}
	require.NoError(t, peers.NewJSONPeerSet(conf.DataDir).Write([]*peers.Peer{
		peers.NewPeer(peer.LocalAddr(), "upstream"),
	}))

	r := newTestEngine(t, conf)
	require.Equal(t, []string{"127.0.0.1:1", peer.LocalAddr()}, r.Peers.Addrs())

	stop := start(t, r)
	defer stop()

	var inbound net.Stream
	require.Eventually(t, func() bool {
		var ok bool
		inbound, ok = peerSource.TryNext()
		return ok
	}, 5*time.Second, 10*time.Millisecond)
	defer inbound.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	frame, err := inbound.Recv(ctx)
	require.NoError(t, err)

	var req blocksync.SyncRequest
	require.NoError(t, req.Unmarshal(frame))

	genesis, _ := r.Genesis()
	require.Equal(t, genesis.NumberHash(), req.LastConfirmed)
}

func TestRollsyncBadgerReopen(t *testing.T) {
	conf := newTestConfig(t)
	conf.Store = true
	conf.DatabaseDir = t.TempDir()

	r := newTestEngine(t, conf)
	rpc := r.RPC.(*l1.InmemRPC)

	genesis, _ := r.Genesis()
	blocks := chaintest.Chain(genesis.NumberHash(), 2, 0)
	commit(t, rpc, blocks)

	stop := start(t, r)
	require.Eventually(t, func() bool {
		return tipOf(t, r) == blocks[1].Block.NumberHash()
	}, 5*time.Second, 10*time.Millisecond)
	stop()

	reopened := newTestEngine(t, conf)
	defer reopened.Store.Close()
	defer reopened.Transport.Close()

	require.Equal(t, blocks[1].Block.NumberHash(), tipOf(t, reopened))

	confirmed, err := reopened.Store.GetLastConfirmedBlockNumberHash()
	require.NoError(t, err)
	require.Equal(t, blocks[1].Block.NumberHash(), confirmed)
}
