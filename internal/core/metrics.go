package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "chatroom"

// Metrics groups the counters exported by the realtime layer.
// A nil *Metrics records nothing.
type Metrics struct {
	connections        prometheus.Gauge
	delivered          *prometheus.CounterVec
	dropped            *prometheus.CounterVec
	persisted          prometheus.Counter
	persistFailures    prometheus.Counter
	protocolViolations prometheus.Counter
}

// NewMetrics registers the realtime metrics with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "connections",
			Help:      "Number of live realtime connections.",
		}),
		delivered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_delivered_total",
			Help:      "Events enqueued to a connection, by event name.",
		}, []string{"event"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped because the connection was closed or its queue was full.",
		}, []string{"event"}),
		persisted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_persisted_total",
			Help:      "Messages written to storage.",
		}),
		persistFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "persist_failures_total",
			Help:      "Messages that could not be written to storage.",
		}),
		protocolViolations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "protocol_violations_total",
			Help:      "Inbound frames dropped as malformed or invalid.",
		}),
	}
}

func (m *Metrics) connectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) connectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) eventDelivered(kind EventKind) {
	if m != nil {
		m.delivered.WithLabelValues(kind.String()).Inc()
	}
}

func (m *Metrics) eventDropped(kind EventKind) {
	if m != nil {
		m.dropped.WithLabelValues(kind.String()).Inc()
	}
}

func (m *Metrics) messagePersisted() {
	if m != nil {
		m.persisted.Inc()
	}
}

func (m *Metrics) persistFailed() {
	if m != nil {
		m.persistFailures.Inc()
	}
}

// ProtocolViolation counts one dropped inbound frame.
func (m *Metrics) ProtocolViolation() {
	if m != nil {
		m.protocolViolations.Inc()
	}
}
