// Package metrics wraps github.com/prometheus/client_golang, exposing the
// counters and gauges named in SPEC_FULL.md §4.9 and §2: ingested events,
// dropped/invalid frames, broadcast subscriber count and drops, and command
// outcomes. There is no teacher precedent for this (brennhill-gasoline is
// zero-dependency) — grounded instead on the pack's r3e-network-service_layer
// use of client_golang, adopted wholesale since the core's Non-goals exclude
// a metrics *time-series database*, not metrics exposition itself.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every metric the collector daemon updates.
type Registry struct {
	reg *prometheus.Registry

	EventsIngested   *prometheus.CounterVec
	FramesInvalid    prometheus.Counter
	FramesDecodeFail prometheus.Counter

	BroadcastSubscribers prometheus.Gauge
	BroadcastDropped     prometheus.Counter

	CommandOutcomes *prometheus.CounterVec

	SessionsConnected prometheus.Gauge
}

// New builds a Registry with its own prometheus.Registry, so tests never
// collide with the global default registerer.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		EventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devlens",
			Name:      "events_ingested_total",
			Help:      "Events accepted into the store, by tag.",
		}, []string{"tag"}),
		FramesInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "devlens",
			Name:      "frames_invalid_total",
			Help:      "Inbound frames rejected as invalid-event.",
		}),
		FramesDecodeFail: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "devlens",
			Name:      "frames_decode_failed_total",
			Help:      "Inbound frames that failed to decode (invalid-frame).",
		}),
		BroadcastSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "devlens",
			Name:      "broadcast_subscribers",
			Help:      "Current /events subscriber count.",
		}),
		BroadcastDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "devlens",
			Name:      "broadcast_dropped_total",
			Help:      "Frames dropped for slow broadcast subscribers.",
		}),
		CommandOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devlens",
			Name:      "command_outcomes_total",
			Help:      "sendCommand resolutions, by outcome.",
		}, []string{"outcome"}),
		SessionsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "devlens",
			Name:      "sessions_connected",
			Help:      "Currently connected sessions.",
		}),
	}

	reg.MustRegister(
		r.EventsIngested,
		r.FramesInvalid,
		r.FramesDecodeFail,
		r.BroadcastSubscribers,
		r.BroadcastDropped,
		r.CommandOutcomes,
		r.SessionsConnected,
	)
	return r
}

// Gatherer exposes the underlying prometheus.Registry for the /metrics
// HTTP handler.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
