// Package mcpherd supervises locally configured server processes: it
// spawns them through the platform shell, captures their output, detects
// the port they listen on, and tracks a per-server state machine that is
// safe to poll and mutate concurrently.
package mcpherd

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcpherd/mcpherd/internal/config"
	"github.com/mcpherd/mcpherd/internal/history"
	"github.com/mcpherd/mcpherd/internal/metrics"
	"github.com/mcpherd/mcpherd/internal/output"
	"github.com/mcpherd/mcpherd/internal/registry"
	"github.com/mcpherd/mcpherd/internal/server"
	"github.com/mcpherd/mcpherd/internal/supervisor"
)

// Re-exported types so embedders do not import internal packages.
type (
	// ServerConfig describes how to launch one managed server.
	ServerConfig = config.ServerConfig
	// Status is a point-in-time snapshot of one server's lifecycle.
	Status = registry.Status
	// State enumerates the lifecycle states.
	State = registry.State
	// Line is one captured output line.
	Line = output.Line
	// HistoryEvent is a lifecycle event delivered to history sinks.
	HistoryEvent = history.Event
	// HistorySink receives lifecycle events.
	HistorySink = history.Sink
)

// Lifecycle states.
const (
	StateIdle     = registry.StateIdle
	StateStarting = registry.StateStarting
	StateRunning  = registry.StateRunning
	StateStopping = registry.StateStopping
	StateKilling  = registry.StateKilling
	StateFinished = registry.StateFinished
	StateError    = registry.StateError
)

// Hard errors returned by Manager operations.
var (
	ErrConfigNotFound = supervisor.ErrConfigNotFound
	ErrNotFound       = supervisor.ErrNotFound
)

// Manager is the embeddable entry point. It pairs a supervisor with a
// mutable configuration store.
type Manager struct {
	sup   *supervisor.Supervisor
	store *config.Store
}

// NewManager creates a Manager with an empty in-memory configuration.
func NewManager(logger *slog.Logger) *Manager {
	store := config.NewStore("")
	return &Manager{sup: supervisor.New(store, logger), store: store}
}

// NewManagerFromFile creates a Manager backed by a JSON configuration
// file in the mcpServers format. A missing file yields an empty store.
func NewManagerFromFile(path string, logger *slog.Logger) (*Manager, error) {
	store, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return &Manager{sup: supervisor.New(store, logger), store: store}, nil
}

// Define registers or replaces a server definition.
func (m *Manager) Define(id string, cfg ServerConfig) error { return m.store.Add(id, cfg) }

// Remove deletes a server definition. The running process, if any, is
// not touched.
func (m *Manager) Remove(id string) error { return m.store.Remove(id) }

// Servers lists the configured server ids in sorted order.
func (m *Manager) Servers() []string { return m.store.List() }

// Config returns the stored definition for id.
func (m *Manager) Config(id string) (ServerConfig, bool) { return m.store.Lookup(id) }

// Start launches id. See supervisor.Supervisor.Start for semantics.
func (m *Manager) Start(id string) (Status, error) { return m.sup.Start(id) }

// Stop requests graceful termination of id.
func (m *Manager) Stop(id string) (Status, error) { return m.sup.Stop(id) }

// Kill force-terminates id.
func (m *Manager) Kill(id string) (Status, error) { return m.sup.Kill(id) }

// Status reports the current lifecycle status of id; never-started ids
// report Idle.
func (m *Manager) Status(id string) Status { return m.sup.Status(id) }

// Output returns the captured output lines of id's current or last run.
func (m *Manager) Output(id string) []Line { return m.sup.Output(id) }

// SetHistorySinks configures lifecycle event sinks on the supervisor.
func (m *Manager) SetHistorySinks(sinks ...HistorySink) { m.sup.SetHistorySinks(sinks...) }

// Store exposes the configuration store, for persistence control.
func (m *Manager) Store() *config.Store { return m.store }

// NewHTTPServer starts the management API on addr with routes under
// basePath and returns the running http.Server for shutdown control.
func (m *Manager) NewHTTPServer(addr, basePath string) (*http.Server, error) {
	return server.NewServer(addr, basePath, m.sup, m.store)
}

// HTTPHandler returns the management API as an http.Handler for mounting
// into an existing server.
func (m *Manager) HTTPHandler(basePath string) http.Handler {
	return server.NewRouter(m.sup, m.store, basePath).Handler()
}

// RegisterMetrics registers all mcpherd collectors on r. Metrics are
// no-ops until registered.
func RegisterMetrics(r *prometheus.Registry) error { return metrics.Register(r) }

// RegisterMetricsDefault registers the collectors on the default
// Prometheus registerer.
func RegisterMetricsDefault() error { return metrics.RegisterDefault() }

// MetricsHandler serves the registered metrics in Prometheus text format.
func MetricsHandler() http.Handler { return metrics.Handler() }
