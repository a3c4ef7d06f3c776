package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/rollsync/src/blocksync"
	"github.com/mosaicnetworks/rollsync/src/common"
	"github.com/mosaicnetworks/rollsync/src/net"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultConfigFile is the name of the optional configuration file read
	// from the datadir.
	DefaultConfigFile = "rollsync.toml"
)

// Default configuration values.
const (
	DefaultLogLevel       = "debug"
	DefaultBindAddr       = "127.0.0.1:1337"
	DefaultServiceAddr    = "127.0.0.1:8000"
	DefaultBackoff        = blocksync.DefaultBackoff
	DefaultTCPTimeout     = 1000 * time.Millisecond
	DefaultL1Timeout      = 10000 * time.Millisecond
	DefaultSourcePolicy   = "reject"
	DefaultStore          = false
	DefaultFinalityBlocks = 100
	DefaultMemPoolSize    = 10000
)

// Config contains all the configuration properties of a rollsync node.
type Config struct {
	// DataDir is the top-level directory containing rollsync configuration
	// and data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, receives a copy of every log entry.
	LogFile string `mapstructure:"log-file"`

	// BindAddr is the local address:port where this node accepts block-sync
	// sessions.
	BindAddr string `mapstructure:"listen"`

	// AdvertiseAddr is used to change the address that we advertise to other
	// nodes.
	AdvertiseAddr string `mapstructure:"advertise"`

	// Peers are dialed, in order, whenever the client has no stream.
	Peers []string `mapstructure:"peers"`

	// ProtocolID and ProtocolName identify the block-sync sub-protocol in the
	// session header.
	ProtocolID   uint32 `mapstructure:"protocol-id"`
	ProtocolName string `mapstructure:"protocol-name"`

	// SourcePolicy is what happens to a session arriving while another is
	// already queued: "reject" or "replace".
	SourcePolicy string `mapstructure:"source-policy"`

	// Backoff is the fixed delay between sync cycles.
	Backoff time.Duration `mapstructure:"backoff"`

	// TCPTimeout bounds protocol negotiation and each frame sent.
	TCPTimeout time.Duration `mapstructure:"timeout"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the optional HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	// Store activates persistant storage.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// L1Endpoint is the JSON-RPC endpoint of the settlement-layer indexer.
	// When empty the node follows an in-memory L1 holding only genesis.
	L1Endpoint string `mapstructure:"l1-rpc"`

	// L1Timeout bounds each L1 RPC call.
	L1Timeout time.Duration `mapstructure:"l1-timeout"`

	// RollupScriptArgs identifies the rollup on L1, hex encoded.
	RollupScriptArgs string `mapstructure:"rollup-args"`

	// GenesisTimestamp is the timestamp of the genesis block.
	GenesisTimestamp uint64 `mapstructure:"genesis-timestamp"`

	// FinalityBlocks is the number of blocks after which deposits count
	// towards finalized custodians.
	FinalityBlocks uint64 `mapstructure:"finality-blocks"`

	// MemPoolSize caps the number of pending transactions.
	MemPoolSize int `mapstructure:"mempool-size"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:        DefaultDataDir(),
		LogLevel:       DefaultLogLevel,
		BindAddr:       DefaultBindAddr,
		ServiceAddr:    DefaultServiceAddr,
		ProtocolID:     net.DefaultProtocolID,
		ProtocolName:   net.DefaultProtocolName,
		SourcePolicy:   DefaultSourcePolicy,
		Backoff:        DefaultBackoff,
		TCPTimeout:     DefaultTCPTimeout,
		Store:          DefaultStore,
		DatabaseDir:    DefaultDatabaseDir(),
		L1Timeout:      DefaultL1Timeout,
		FinalityBlocks: DefaultFinalityBlocks,
		MemPoolSize:    DefaultMemPoolSize,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t)
	return config
}

// SetDataDir sets the top-level rollsync directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitely set
// it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// ConfigFile returns the full path of the optional configuration file.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, DefaultConfigFile)
}

// ProtocolHeader returns the session header for the block-sync protocol.
func (c *Config) ProtocolHeader() net.ProtocolHeader {
	return net.ProtocolHeader{ID: c.ProtocolID, Name: c.ProtocolName}
}

// Logger returns a formatted logrus Entry, with prefix set to "rollsync".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
		if c.LogFile != "" {
			c.logger.Hooks.Add(lfshook.NewHook(
				lfshook.PathMap{
					logrus.DebugLevel: c.LogFile,
					logrus.InfoLevel:  c.LogFile,
					logrus.WarnLevel:  c.LogFile,
					logrus.ErrorLevel: c.LogFile,
					logrus.FatalLevel: c.LogFile,
					logrus.PanicLevel: c.LogFile,
				},
				&logrus.TextFormatter{},
			))
		}
	}
	return c.logger.WithField("prefix", "rollsync")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level rollsync
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Rollsync")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Rollsync")
		} else {
			return filepath.Join(home, ".rollsync")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
