// Package rollsync assembles a block-sync node from its configuration: chain
// store, chain, mem pool, L1 follower, transport, sync client and HTTP
// service.
package rollsync

import (
	"context"
	"fmt"
	"time"

	"github.com/mosaicnetworks/rollsync/src/blocksync"
	"github.com/mosaicnetworks/rollsync/src/chain"
	"github.com/mosaicnetworks/rollsync/src/common"
	"github.com/mosaicnetworks/rollsync/src/config"
	"github.com/mosaicnetworks/rollsync/src/l1"
	"github.com/mosaicnetworks/rollsync/src/mempool"
	"github.com/mosaicnetworks/rollsync/src/net"
	"github.com/mosaicnetworks/rollsync/src/peers"
	"github.com/mosaicnetworks/rollsync/src/service"
	"github.com/mosaicnetworks/rollsync/src/store"
	"github.com/mosaicnetworks/rollsync/src/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Rollsync is the engine. Fields left nil before Init are built from Config;
// tests preset RPC and Metrics.
type Rollsync struct {
	Config    *config.Config
	Store     store.Store
	Chain     *chain.Chain
	MemPool   *mempool.MemPool
	RPC       l1.RPCClient
	Peers     *peers.PeerSet
	Source    *net.Source
	Transport net.Transport
	Client    *blocksync.Client
	Service   *service.Service
	Metrics   *blocksync.Metrics

	rollup types.Script
	logger *logrus.Entry
}

// NewRollsync returns an engine for config. Call Init before Run.
func NewRollsync(config *config.Config) *Rollsync {
	return &Rollsync{
		Config: config,
		logger: config.Logger(),
	}
}

// Genesis returns the genesis block and global state for the configured
// rollup.
func (r *Rollsync) Genesis() (*types.L2Block, types.GlobalState) {
	return types.Genesis(r.rollup.Hash(), r.Config.GenesisTimestamp)
}

func (r *Rollsync) initRollup() error {
	args, err := common.DecodeFromString(r.Config.RollupScriptArgs)
	if err != nil {
		return fmt.Errorf("rollup-args: %w", err)
	}
	r.rollup = types.Script{Args: args}
	return nil
}

func (r *Rollsync) initStore() error {
	if !r.Config.Store {
		r.Store = store.NewInmemStore()

		r.logger.Debug("created new in-mem store")
	} else {
		var err error

		r.logger.WithField("path", r.Config.DatabaseDir).Debug("Attempting to load or create database")

		r.Store, err = store.NewBadgerStore(r.Config.DatabaseDir, r.logger.WithField("component", "badger"))
		if err != nil {
			return err
		}
	}

	genesis, post := r.Genesis()
	if err := store.InitGenesis(r.Store, genesis, &post); err != nil {
		return err
	}

	tip, err := r.Store.GetTip()
	if err != nil {
		return err
	}
	r.logger.WithFields(logrus.Fields{
		"genesis": genesis.Hash(),
		"tip":     tip,
	}).Debug("store ready")

	return nil
}

func (r *Rollsync) initL1() {
	if r.RPC != nil {
		return
	}
	if r.Config.L1Endpoint == "" {
		genesis, post := r.Genesis()
		r.RPC = l1.NewInmemRPC(genesis, post)
		r.logger.Warn("no l1-rpc endpoint, following an in-memory L1")
		return
	}
	r.RPC = l1.NewHTTPClient(r.Config.L1Endpoint, r.Config.L1Timeout)
}

func (r *Rollsync) initPeers() error {
	filePeers, err := peers.NewJSONPeerSet(r.Config.DataDir).PeerSet()
	if err != nil {
		return err
	}

	r.Peers = peers.NewPeerSetFromAddrs(r.Config.Peers).Merge(filePeers)

	r.logger.WithField("peers", r.Peers.Addrs()).Debug("loaded peers")

	return nil
}

func (r *Rollsync) initTransport() error {
	policy, err := net.ParsePolicy(r.Config.SourcePolicy)
	if err != nil {
		return err
	}
	r.Source = net.NewSource(policy, r.logger)

	transport, err := net.NewTCPTransport(
		r.Config.BindAddr,
		r.Config.AdvertiseAddr,
		r.Config.ProtocolHeader(),
		r.Source,
		r.Config.TCPTimeout,
		r.logger,
	)
	if err != nil {
		return err
	}

	r.Transport = transport

	return nil
}

func (r *Rollsync) initClient() {
	if r.Metrics == nil {
		r.Metrics = blocksync.PrometheusMetrics("rollsync")
	}

	r.Client = blocksync.NewClient(
		&blocksync.Config{
			Backoff: r.Config.Backoff,
			Logger:  r.logger,
			Metrics: r.Metrics,
		},
		r.Store,
		r.RPC,
		r.Chain,
		r.MemPool,
		l1.NewFollower(r.logger),
		r.rollup,
		r.Source,
	)
}

func (r *Rollsync) initService() {
	if !r.Config.NoService && r.Config.ServiceAddr != "" {
		r.Service = service.NewService(r.Config.ServiceAddr, r.Client, r.logger.WithField("component", "service"))
	}
}

// Init builds every component.
func (r *Rollsync) Init() error {
	if err := r.initRollup(); err != nil {
		return err
	}

	if err := r.initPeers(); err != nil {
		return err
	}

	if err := r.initStore(); err != nil {
		return err
	}

	r.Chain = chain.NewChain(r.Config.FinalityBlocks, r.logger)
	r.MemPool = mempool.NewMemPool(r.Store, r.Config.MemPoolSize, r.logger)

	r.initL1()

	if err := r.initTransport(); err != nil {
		r.Store.Close()
		return err
	}

	r.initClient()
	r.initService()

	return nil
}

// Run runs every component until ctx is cancelled or one of them fails, then
// closes the store.
func (r *Rollsync) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r.Transport.Listen()
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		r.Source.Close()
		return r.Transport.Close()
	})
	g.Go(func() error {
		return r.Client.Run(ctx)
	})
	if r.Peers.Len() > 0 {
		g.Go(func() error {
			r.dialPeers(ctx)
			return nil
		})
	}
	if r.Service != nil {
		g.Go(func() error {
			return r.Service.Serve(ctx)
		})
	}

	err := g.Wait()
	if cerr := r.Store.Close(); err == nil {
		err = cerr
	}
	return err
}

// dialPeers cycles through the peer set, dialing one per backoff period while
// the client has no stream.
func (r *Rollsync) dialPeers(ctx context.Context) {
	ticker := time.NewTicker(r.Config.Backoff)
	defer ticker.Stop()

	addrs := r.Peers.Addrs()
	next := 0
	for {
		if r.Client.Mode() == blocksync.NoStream && !r.Source.Pending() {
			peer := addrs[next%len(addrs)]
			next++

			dialCtx, cancel := context.WithTimeout(ctx, r.Config.TCPTimeout)
			s, err := r.Transport.Dial(dialCtx, peer)
			cancel()

			if err != nil {
				r.logger.WithFields(logrus.Fields{
					"peer":  peer,
					"error": err,
				}).Debug("dial failed")
			} else {
				r.Source.Offer(s)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
