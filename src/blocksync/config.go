package blocksync

import (
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultBackoff is the fixed delay between sync cycles.
const DefaultBackoff = 3 * time.Second

// Config holds the Client settings.
type Config struct {
	// Backoff is the fixed delay applied after every cycle and between
	// handshake attempts.
	Backoff time.Duration

	Logger  *logrus.Entry
	Metrics *Metrics
}

// DefaultConfig returns a Config with the default backoff, a standard logger
// and no-op metrics.
func DefaultConfig() *Config {
	return &Config{
		Backoff: DefaultBackoff,
		Logger:  logrus.NewEntry(logrus.New()),
		Metrics: NopMetrics(),
	}
}
