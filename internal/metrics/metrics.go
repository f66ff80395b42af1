// internal/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tactics_relay"

// Metrics holds the relay's Prometheus collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	ConnectionsOpen  prometheus.Gauge
	ConnectionsTotal prometheus.Counter
	LobbiesLive      prometheus.Gauge
	MatchesStarted   prometheus.Counter
	CommandsAccepted *prometheus.CounterVec
	CommandsRejected *prometheus.CounterVec
	MessagesDropped  prometheus.Counter
	InboundFrames    *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. Passing a fresh
// prometheus.NewRegistry keeps tests isolated from the default registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		ConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_open",
			Help:      "Number of currently registered WebSocket connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Total connections accepted since server start.",
		}),
		LobbiesLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lobbies_live",
			Help:      "Number of lobbies held in memory.",
		}),
		MatchesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_started_total",
			Help:      "Lobbies that filled their second seat.",
		}),
		CommandsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_accepted_total",
			Help:      "Authoritative commands that passed the gate, by kind.",
		}, []string{"action"}),
		CommandsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_rejected_total",
			Help:      "Requests refused with a reason code.",
		}, []string{"reason"}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Outbound messages dropped because the recipient was gone or saturated.",
		}),
		InboundFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inbound_frames_total",
			Help:      "Inbound frames by event type.",
		}, []string{"type"}),
	}

	reg.MustRegister(
		m.ConnectionsOpen,
		m.ConnectionsTotal,
		m.LobbiesLive,
		m.MatchesStarted,
		m.CommandsAccepted,
		m.CommandsRejected,
		m.MessagesDropped,
		m.InboundFrames,
	)
	return m
}

// NewDefault registers on a new registry that also carries the Go runtime
// and process collectors.
func NewDefault() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return New(reg)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
