// Package supervisor orchestrates the lifecycle of managed servers:
// spawning the OS process through the platform shell, capturing its
// output, signaling it on stop/kill, and reaping it when it exits. It
// owns the state machine; all shared state lives in the registry and the
// output buffer.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/mcpherd/mcpherd/internal/config"
	"github.com/mcpherd/mcpherd/internal/history"
	"github.com/mcpherd/mcpherd/internal/metrics"
	"github.com/mcpherd/mcpherd/internal/output"
	"github.com/mcpherd/mcpherd/internal/portdetect"
	"github.com/mcpherd/mcpherd/internal/registry"
)

// Hard failures surfaced to callers. Everything the OS does wrong after
// these preconditions is reported through the status instead.
var (
	ErrConfigNotFound = errors.New("no configuration for server")
	ErrNotFound       = errors.New("unknown server")
)

// Supervisor coordinates one registry, one output buffer, and one
// configuration provider. All entry points are non-blocking with respect
// to process exit.
type Supervisor struct {
	reg      *registry.Registry
	buf      *output.Buffer
	provider config.Provider
	detector *portdetect.Detector
	logger   *slog.Logger

	// startMu serializes the check-then-register window of Start so two
	// concurrent starts of the same id cannot both spawn.
	startMu sync.Mutex

	sinkMu sync.Mutex
	sinks  []history.Sink
}

func New(provider config.Provider, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	reg := registry.New()
	buf := output.NewBuffer()
	return &Supervisor{
		reg:      reg,
		buf:      buf,
		provider: provider,
		detector: portdetect.New(reg, buf, logger),
		logger:   logger,
	}
}

// Registry exposes the underlying registry for read-side consumers
// (status listings); the wait handle stays private to it.
func (s *Supervisor) Registry() *registry.Registry { return s.reg }

// SetHistorySinks configures lifecycle event sinks. Passing none clears
// the list.
func (s *Supervisor) SetHistorySinks(sinks ...history.Sink) {
	s.sinkMu.Lock()
	s.sinks = append([]history.Sink(nil), sinks...)
	s.sinkMu.Unlock()
}

// Start launches the server registered under id.
//
// Starting an id that is already Starting or Running returns the current
// status without spawning a second process. A spawn rejected by the OS is
// reported as a terminal Error status, not as a call failure; only a
// missing configuration is a hard error.
func (s *Supervisor) Start(id string) (registry.Status, error) {
	s.startMu.Lock()
	if st, ok := s.reg.Get(id); ok && (st.State == registry.StateStarting || st.State == registry.StateRunning) {
		s.startMu.Unlock()
		return st, nil
	}
	cfg, ok := s.provider.Lookup(id)
	if !ok {
		s.startMu.Unlock()
		return registry.Status{}, fmt.Errorf("%w: %s", ErrConfigNotFound, id)
	}

	// A fresh run gets a fresh log, and pollers see Starting before the
	// OS call completes.
	s.buf.Reset(id)
	starting := registry.Status{ID: id, State: registry.StateStarting, Port: cfg.Port}
	s.reg.Upsert(id, starting, nil)
	s.startMu.Unlock()

	line := cfg.CommandLine()
	cmd := shellCommand(line)
	cmd.Env = mergedEnv(cfg.Env)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return s.spawnFailed(id, line, err), nil
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return s.spawnFailed(id, line, err), nil
	}
	if err := cmd.Start(); err != nil {
		return s.spawnFailed(id, line, err), nil
	}

	pid := cmd.Process.Pid
	st := registry.Status{ID: id, State: registry.StateRunning, PID: pid, Port: cfg.Port}
	s.reg.Upsert(id, st, cmd)
	metrics.IncStart(id)
	metrics.RecordStateTransition(id, string(registry.StateStarting), string(registry.StateRunning))
	metrics.SetCurrentState(id, string(registry.StateRunning), true)
	s.logger.Info("server started", "id", id, "pid", pid)
	s.record(history.Event{Type: history.EventStarted, OccurredAt: time.Now().UTC(), ID: id, PID: pid, Port: cfg.Port})

	var readers sync.WaitGroup
	readers.Add(2)
	go s.capture(id, stdout, output.Stdout, &readers)
	go s.capture(id, stderr, output.Stderr, &readers)
	go s.monitor(id, &readers)
	s.detector.Run(context.Background(), id, pid)

	return st, nil
}

func (s *Supervisor) spawnFailed(id, line string, err error) registry.Status {
	metrics.IncSpawnFailure(id)
	msg := fmt.Sprintf("failed to start %q: %v (command: %s)", id, err, line)
	st := registry.Errored(id, msg)
	s.reg.Upsert(id, st, nil)
	s.logger.Error("spawn failed", "id", id, "error", err)
	return st
}

// Stop requests graceful termination of id.
//
// Terminal and Idle entries are returned unchanged. When the process has
// already been reaped, stopping it counts as a successful manual stop.
func (s *Supervisor) Stop(id string) (registry.Status, error) {
	st, ok := s.reg.Get(id)
	if !ok {
		return registry.Status{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if st.Terminal() || st.State == registry.StateIdle {
		return st, nil
	}
	s.transition(id, registry.StateStopping)
	metrics.IncStop(id)

	if !s.reg.Alive(id) {
		code := 0
		s.reg.Finalize(id, registry.Finished(id, &code, true))
		st, _ = s.reg.Get(id)
		return st, nil
	}
	if err := requestGracefulStop(st.PID); err != nil {
		return s.signalFailed(id, "stop", err), nil
	}
	s.logger.Info("sent graceful stop", "id", id, "pid", st.PID)
	st, _ = s.reg.Get(id)
	return st, nil
}

// Kill requests unconditional termination of id.
//
// A kill on an entry whose process is already gone is reported as an
// unsuccessful Finished, which distinguishes it from a graceful stop.
func (s *Supervisor) Kill(id string) (registry.Status, error) {
	st, ok := s.reg.Get(id)
	if !ok {
		return registry.Status{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if st.Terminal() || st.State == registry.StateIdle {
		return st, nil
	}
	s.transition(id, registry.StateKilling)
	metrics.IncKill(id)

	if !s.reg.Alive(id) {
		code := 1
		s.reg.Finalize(id, registry.Finished(id, &code, false))
		st, _ = s.reg.Get(id)
		return st, nil
	}
	if err := forceTerminate(st.PID); err != nil {
		return s.signalFailed(id, "kill", err), nil
	}
	s.logger.Info("sent force kill", "id", id, "pid", st.PID)
	st, _ = s.reg.Get(id)
	return st, nil
}

// signalFailed converts a failed signal send into a terminal Error status.
// The monitor may still overwrite it with Finished if the process exits.
func (s *Supervisor) signalFailed(id, op string, err error) registry.Status {
	msg := fmt.Sprintf("failed to %s %q: %v", op, id, err)
	s.reg.MutateStatus(id, func(st *registry.Status) {
		st.State = registry.StateError
		st.Message = msg
	})
	s.logger.Error("signal delivery failed", "id", id, "op", op, "error", err)
	st, _ := s.reg.Get(id)
	return st
}

// Status returns the current status of id. Ids that were never started
// report Idle rather than an error, so pollers treat "never started" and
// "reset" uniformly.
func (s *Supervisor) Status(id string) registry.Status {
	if st, ok := s.reg.Get(id); ok {
		return st
	}
	return registry.Idle(id)
}

// Output returns a snapshot of everything id has written so far in its
// current (or last) run, in write order.
func (s *Supervisor) Output(id string) []output.Line {
	return s.buf.Snapshot(id)
}

func (s *Supervisor) transition(id string, to registry.State) {
	var from registry.State
	s.reg.MutateStatus(id, func(st *registry.Status) {
		from = st.State
		st.State = to
	})
	metrics.RecordStateTransition(id, string(from), string(to))
	metrics.SetCurrentState(id, string(from), false)
	metrics.SetCurrentState(id, string(to), true)
}

func (s *Supervisor) record(e history.Event) {
	s.sinkMu.Lock()
	sinks := append([]history.Sink(nil), s.sinks...)
	s.sinkMu.Unlock()
	for _, snk := range sinks {
		if err := snk.Send(context.Background(), e); err != nil {
			s.logger.Debug("history sink send failed", "id", e.ID, "error", err)
		}
	}
}

// mergedEnv applies the configured variables additively over the
// inherited environment. With no extras the child inherits as-is.
func mergedEnv(extra map[string]string) []string {
	if len(extra) == 0 {
		return nil
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := os.Environ()
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}
