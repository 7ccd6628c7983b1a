package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PriceMetrics covers the aggregation pipeline: connector calls, normalizer
// rejections and ledger write skips.
type PriceMetrics struct {
	connectorCalls   *prometheus.CounterVec
	connectorLatency *prometheus.HistogramVec
	accepted         *prometheus.CounterVec
	rejected         *prometheus.CounterVec
	writeFailures    *prometheus.CounterVec
	alertsTriggered  prometheus.Counter
}

var (
	priceMetricsOnce sync.Once
	priceMetrics     *PriceMetrics
)

// Prices returns the singleton pipeline metrics registered on the default registerer.
func Prices() *PriceMetrics {
	return PricesWithConfig(Config{})
}

func PricesWithConfig(cfg Config) *PriceMetrics {
	priceMetricsOnce.Do(func() {
		priceMetrics = NewPriceMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return priceMetrics
}

func NewPriceMetrics(registerer prometheus.Registerer, cfg Config) *PriceMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	constLabels := cfg.constLabels()

	connectorCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pricewatch_connector_calls_total",
		Help:        "Source connector calls by operation and outcome.",
		ConstLabels: constLabels,
	}, []string{"source", "operation", "outcome"})
	connectorLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "pricewatch_connector_call_duration_seconds",
		Help:        "Source connector call latency.",
		Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		ConstLabels: constLabels,
	}, []string{"source", "operation"})
	accepted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pricewatch_observations_accepted_total",
		Help:        "Observations accepted by the normalizer.",
		ConstLabels: constLabels,
	}, []string{"source"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pricewatch_observations_rejected_total",
		Help:        "Observations rejected by the normalizer.",
		ConstLabels: constLabels,
	}, []string{"source", "reason"})
	writeFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "pricewatch_ledger_write_failures_total",
		Help:        "Accepted observations the ledger failed to record.",
		ConstLabels: constLabels,
	}, []string{"source"})
	alertsTriggered := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "pricewatch_alerts_triggered_total",
		Help:        "Price alerts triggered by scheduled evaluation.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(connectorCalls, connectorLatency, accepted, rejected, writeFailures, alertsTriggered)

	return &PriceMetrics{
		connectorCalls:   connectorCalls,
		connectorLatency: connectorLatency,
		accepted:         accepted,
		rejected:         rejected,
		writeFailures:    writeFailures,
		alertsTriggered:  alertsTriggered,
	}
}

func (m *PriceMetrics) ObserveConnectorCall(source, operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.connectorCalls.WithLabelValues(source, operation, outcome).Inc()
	m.connectorLatency.WithLabelValues(source, operation).Observe(duration.Seconds())
}

func (m *PriceMetrics) AddAccepted(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.accepted.WithLabelValues(source).Add(float64(n))
}

func (m *PriceMetrics) IncRejected(source, reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(source, reason).Inc()
}

func (m *PriceMetrics) IncWriteFailure(source string) {
	if m == nil {
		return
	}
	m.writeFailures.WithLabelValues(source).Inc()
}

func (m *PriceMetrics) AddAlertsTriggered(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.alertsTriggered.Add(float64(n))
}

// RejectedCounter exposes the rejection counter for a label pair.
func (m *PriceMetrics) RejectedCounter(source, reason string) prometheus.Counter {
	return m.rejected.WithLabelValues(source, reason)
}

// ConnectorCallCounter exposes the call counter for a label set.
func (m *PriceMetrics) ConnectorCallCounter(source, operation, outcome string) prometheus.Counter {
	return m.connectorCalls.WithLabelValues(source, operation, outcome)
}

// WriteFailureCounter exposes the ledger write failure counter for a source.
func (m *PriceMetrics) WriteFailureCounter(source string) prometheus.Counter {
	return m.writeFailures.WithLabelValues(source)
}
