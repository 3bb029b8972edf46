package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// -----------------------------------------------------------------------------
// Metrics holds the collectors exposed on /metrics.
// A private registry keeps tests free of global state.
// -----------------------------------------------------------------------------

type Metrics struct {
	registry *prometheus.Registry

	activeConnections prometheus.Gauge
	messagesSent      prometheus.Counter
	sendFailures      prometheus.Counter
	inboundMessages   *prometheus.CounterVec
	malformedMessages prometheus.Counter
	controlBroadcasts prometheus.Counter
}

// -----------------------------------------------------------------------------

func NewMetrics(historyLength func() float64) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "onion_watch",
			Name:      "active_connections",
			Help:      "Number of registered websocket connections.",
		}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "onion_watch",
			Name:      "messages_sent_total",
			Help:      "Messages written to websocket connections.",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "onion_watch",
			Name:      "send_failures_total",
			Help:      "Messages dropped because the connection was closed or saturated.",
		}),
		inboundMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "onion_watch",
			Name:      "inbound_messages_total",
			Help:      "Parsed client messages by type.",
		}, []string{"type"}),
		malformedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "onion_watch",
			Name:      "malformed_messages_total",
			Help:      "Client payloads that were not valid JSON.",
		}),
		controlBroadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "onion_watch",
			Name:      "control_broadcasts_total",
			Help:      "Accepted TRAFFIC_CONTROL requests.",
		}),
	}

	m.registry.MustRegister(
		m.activeConnections,
		m.messagesSent,
		m.sendFailures,
		m.inboundMessages,
		m.malformedMessages,
		m.controlBroadcasts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if historyLength != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "onion_watch",
			Name:      "history_length",
			Help:      "Snapshots retained in the in-memory history.",
		}, historyLength))
	}

	return m
}

// -----------------------------------------------------------------------------

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
