package blocksync

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this package.
	MetricsSubsystem = "blocksync"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Current Mode of the client.
	Mode metrics.Gauge
	// Number of L1 sync attempts.
	L1Syncs metrics.Counter
	// Number of failed L1 sync attempts.
	L1SyncErrors metrics.Counter
	// Number of SyncRequests sent.
	SyncRequests metrics.Counter
	// Number of messages applied from peers.
	MessagesApplied metrics.Counter
	// Number of blocks applied from peers.
	BlocksApplied metrics.Counter
	// Number of reverts applied from peers.
	Reverts metrics.Counter
	// Number of streams dropped after a transport error.
	StreamErrors metrics.Counter
	// Number of cycles aborted by an application error.
	ApplicationErrors metrics.Counter
	// Number of hash mismatches at an occupied height.
	ConsistencyErrors metrics.Counter
	// Height of the valid tip.
	TipHeight metrics.Gauge
	// Height of the last confirmed block.
	ConfirmedHeight metrics.Gauge
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	counter := func(name, help string) metrics.Counter {
		return prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      name,
			Help:      help,
		}, labels).With(labelsAndValues...)
	}
	gauge := func(name, help string) metrics.Gauge {
		return prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      name,
			Help:      help,
		}, labels).With(labelsAndValues...)
	}
	return &Metrics{
		Mode:              gauge("mode", "Current mode: 0 no stream, 1 handshaking, 2 streaming."),
		L1Syncs:           counter("l1_syncs", "Number of L1 sync attempts."),
		L1SyncErrors:      counter("l1_sync_errors", "Number of failed L1 sync attempts."),
		SyncRequests:      counter("sync_requests", "Number of sync requests sent to peers."),
		MessagesApplied:   counter("messages_applied", "Number of sync messages applied."),
		BlocksApplied:     counter("blocks_applied", "Number of blocks applied from peers."),
		Reverts:           counter("reverts", "Number of reverts applied from peers."),
		StreamErrors:      counter("stream_errors", "Number of streams dropped after a transport error."),
		ApplicationErrors: counter("application_errors", "Number of sync cycles aborted by an application error."),
		ConsistencyErrors: counter("consistency_errors", "Number of blocks received with a hash differing from the stored one."),
		TipHeight:         gauge("tip_height", "Height of the valid tip."),
		ConfirmedHeight:   gauge("confirmed_height", "Height of the last confirmed block."),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Mode:              discard.NewGauge(),
		L1Syncs:           discard.NewCounter(),
		L1SyncErrors:      discard.NewCounter(),
		SyncRequests:      discard.NewCounter(),
		MessagesApplied:   discard.NewCounter(),
		BlocksApplied:     discard.NewCounter(),
		Reverts:           discard.NewCounter(),
		StreamErrors:      discard.NewCounter(),
		ApplicationErrors: discard.NewCounter(),
		ConsistencyErrors: discard.NewCounter(),
		TipHeight:         discard.NewGauge(),
		ConfirmedHeight:   discard.NewGauge(),
	}
}
