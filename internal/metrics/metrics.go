package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	serverStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcpherd",
			Subsystem: "server",
			Name:      "starts_total",
			Help:      "Number of successful server starts.",
		}, []string{"id"},
	)
	serverStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcpherd",
			Subsystem: "server",
			Name:      "stops_total",
			Help:      "Number of graceful stop requests.",
		}, []string{"id"},
	)
	serverKills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcpherd",
			Subsystem: "server",
			Name:      "kills_total",
			Help:      "Number of force-kill requests.",
		}, []string{"id"},
	)
	spawnFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcpherd",
			Subsystem: "server",
			Name:      "spawn_failures_total",
			Help:      "Number of starts rejected by the OS at spawn time.",
		}, []string{"id"},
	)
	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mcpherd",
			Subsystem: "server",
			Name:      "state_transitions_total",
			Help:      "Number of state transitions between lifecycle states.",
		}, []string{"id", "from", "to"},
	)
	currentState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mcpherd",
			Subsystem: "server",
			Name:      "current_state",
			Help:      "Current lifecycle state per server (1 = active state).",
		}, []string{"id", "state"},
	)
	detectedPorts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mcpherd",
			Subsystem: "server",
			Name:      "detected_port",
			Help:      "Declared or detected listening port per server (0 = unknown).",
		}, []string{"id"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{serverStarts, serverStops, serverKills, spawnFailures, stateTransitions, currentState, detectedPorts}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// RegisterDefault registers all metrics with the default registerer.
func RegisterDefault() error { return Register(prometheus.DefaultRegisterer) }

// Handler returns an http.Handler that serves Prometheus metrics for the
// DefaultGatherer. The caller wires the route.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncStart(id string) {
	if regOK.Load() {
		serverStarts.WithLabelValues(id).Inc()
	}
}

func IncStop(id string) {
	if regOK.Load() {
		serverStops.WithLabelValues(id).Inc()
	}
}

func IncKill(id string) {
	if regOK.Load() {
		serverKills.WithLabelValues(id).Inc()
	}
}

func IncSpawnFailure(id string) {
	if regOK.Load() {
		spawnFailures.WithLabelValues(id).Inc()
	}
}

func RecordStateTransition(id, from, to string) {
	if regOK.Load() {
		stateTransitions.WithLabelValues(id, from, to).Inc()
	}
}

func SetCurrentState(id, state string, active bool) {
	if regOK.Load() {
		v := float64(0)
		if active {
			v = 1
		}
		currentState.WithLabelValues(id, state).Set(v)
	}
}

func SetDetectedPort(id string, port int) {
	if regOK.Load() {
		detectedPorts.WithLabelValues(id).Set(float64(port))
	}
}
