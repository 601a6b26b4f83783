package channel

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const MetricsSubsystem = "channel"

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of accepted commitments.
	Commitments metrics.Counter
	// Number of rejected commitments, labelled by reason.
	Rejections metrics.Counter
	// Number of dispatched messages, labelled by result.
	Deliveries metrics.Counter
	// Number of messages skipped for their nonce, labelled by reason.
	Skipped metrics.Counter
	// Latest delivered inbound nonce.
	InboundNonce metrics.Gauge
	// Number of messages sent by outbound channels.
	Sent metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
func PrometheusMetrics(namespace string) *Metrics {
	return &Metrics{
		Commitments: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "commitments",
			Help:      "Number of accepted channel commitments.",
		}, []string{}),
		Rejections: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "rejections",
			Help:      "Number of rejected channel commitments.",
		}, []string{"reason"}),
		Deliveries: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "deliveries",
			Help:      "Number of messages dispatched to applications.",
		}, []string{"result"}),
		Skipped: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "skipped",
			Help:      "Number of messages not dispatched.",
		}, []string{"reason"}),
		InboundNonce: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "inbound_nonce",
			Help:      "Nonce of the latest delivered message.",
		}, []string{}),
		Sent: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "sent",
			Help:      "Number of messages sent.",
		}, []string{}),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Commitments:  discard.NewCounter(),
		Rejections:   discard.NewCounter(),
		Deliveries:   discard.NewCounter(),
		Skipped:      discard.NewCounter(),
		InboundNonce: discard.NewGauge(),
		Sent:         discard.NewCounter(),
	}
}
