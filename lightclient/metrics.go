package lightclient

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const MetricsSubsystem = "lightclient"

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of accepted initial submissions.
	InitialSubmissions metrics.Counter
	// Number of successful completions.
	Completions metrics.Counter
	// Number of rejected calls, labelled by operation and reason.
	Failures metrics.Counter
	// Source block number of the latest verified commitment.
	LatestBeefyBlock metrics.Gauge
	// Id of the current validator set.
	ValidatorSetID metrics.Gauge
	// Number of pending entries turned into tombstones by pruning.
	Pruned metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
func PrometheusMetrics(namespace string) *Metrics {
	return &Metrics{
		InitialSubmissions: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "initial_submissions",
			Help:      "Number of accepted initial signature commitments.",
		}, []string{}),
		Completions: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "completions",
			Help:      "Number of completed signature commitments.",
		}, []string{}),
		Failures: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "failures",
			Help:      "Number of rejected light client calls.",
		}, []string{"op", "reason"}),
		LatestBeefyBlock: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "latest_beefy_block",
			Help:      "Source block number of the latest verified commitment.",
		}, []string{}),
		ValidatorSetID: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "validator_set_id",
			Help:      "Id of the validator set commitments are verified against.",
		}, []string{}),
		Pruned: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "pruned",
			Help:      "Number of pending commitments expired or rejected by pruning.",
		}, []string{}),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		InitialSubmissions: discard.NewCounter(),
		Completions:        discard.NewCounter(),
		Failures:           discard.NewCounter(),
		LatestBeefyBlock:   discard.NewGauge(),
		ValidatorSetID:     discard.NewGauge(),
		Pruned:             discard.NewCounter(),
	}
}
