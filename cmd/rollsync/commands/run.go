package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/rollsync/src/rollsync"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that starts a rollsync node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runRollsync,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runRollsync(cmd *cobra.Command, args []string) error {
	engine := rollsync.NewRollsync(_config)

	if err := engine.Init(); err != nil {
		_config.Logger().Error("Cannot initialize engine:", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return engine.Run(ctx)
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.LogFile, "Also write logs to this file")

	// Network
	cmd.Flags().StringP("listen", "l", _config.BindAddr, "Listen IP:Port for block-sync streams")
	cmd.Flags().StringP("advertise", "a", _config.AdvertiseAddr, "Advertise IP:Port for block-sync streams")
	cmd.Flags().StringSlice("peers", _config.Peers, "IP:Port of peers to dial, in order")
	cmd.Flags().DurationP("timeout", "t", _config.TCPTimeout, "TCP Timeout")
	cmd.Flags().Uint32("protocol-id", _config.ProtocolID, "Block-sync protocol id")
	cmd.Flags().String("protocol-name", _config.ProtocolName, "Block-sync protocol name")
	cmd.Flags().String("source-policy", _config.SourcePolicy, "What to do with a stream arriving while one is pending (reject, replace)")
	cmd.Flags().Duration("backoff", _config.Backoff, "Wait between sync attempts")

	// Service
	cmd.Flags().Bool("no-service", _config.NoService, "Disable HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.ServiceAddr, "Listen IP:Port for HTTP service")

	// Store
	cmd.Flags().Bool("store", _config.Store, "Use badgerDB instead of in-mem DB")
	cmd.Flags().String("db", _config.DatabaseDir, "Dabatabase directory")

	// L1 and rollup
	cmd.Flags().String("l1-rpc", _config.L1Endpoint, "URL of the L1 JSON-RPC endpoint")
	cmd.Flags().Duration("l1-timeout", _config.L1Timeout, "Timeout of L1 RPC calls")
	cmd.Flags().String("rollup-args", _config.RollupScriptArgs, "Hex args of the rollup type script")
	cmd.Flags().Uint64("genesis-timestamp", _config.GenesisTimestamp, "Timestamp of the genesis block")
	cmd.Flags().Uint64("finality-blocks", _config.FinalityBlocks, "Number of blocks before custodians are finalized")
	cmd.Flags().Int("mempool-size", _config.MemPoolSize, "Max number of pending transactions")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.SetDataDir(_config.DataDir)

	logFields := logrus.Fields{
		"DataDir":          _config.DataDir,
		"LogLevel":         _config.LogLevel,
		"BindAddr":         _config.BindAddr,
		"AdvertiseAddr":    _config.AdvertiseAddr,
		"Peers":            _config.Peers,
		"Protocol":         _config.ProtocolHeader().String(),
		"SourcePolicy":     _config.SourcePolicy,
		"Backoff":          _config.Backoff,
		"TCPTimeout":       _config.TCPTimeout,
		"NoService":        _config.NoService,
		"ServiceAddr":      _config.ServiceAddr,
		"Store":            _config.Store,
		"L1Endpoint":       _config.L1Endpoint,
		"L1Timeout":        _config.L1Timeout,
		"RollupScriptArgs": _config.RollupScriptArgs,
		"FinalityBlocks":   _config.FinalityBlocks,
		"MemPoolSize":      _config.MemPoolSize,
	}

	if _config.Store {
		logFields["DatabaseDir"] = _config.DatabaseDir
	}

	_config.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/rollsync.toml (.json, .yaml also work)
	viper.SetConfigName("rollsync")      // name of config file (without extension)
	viper.AddConfigPath(_config.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Logger().Debugf("No config file found in: %s", _config.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
