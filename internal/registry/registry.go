// Package registry is the authoritative map from server id to process
// state. Every other component reads and writes through it; nothing else
// holds shared mutable process state.
package registry

import (
	"os/exec"
	"sync"
)

// entry is the internal record for one server id. The cmd slot is the
// exclusive wait handle: it is taken at most once per run (by the monitor
// goroutine), which prevents double-reaping. alive tracks whether the OS
// process is still believed to exist; Stop/Kill use it to decide between
// signaling and finalizing directly.
type entry struct {
	status Status
	cmd    *exec.Cmd
	alive  bool
}

// Registry is safe for concurrent use. A single mutex guards the whole
// map; it is held only for the duration of a read-modify-write and never
// across blocking I/O, so a stuck process cannot stall unrelated ids.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Upsert replaces or inserts the entry for id. cmd may be nil (no live
// process yet, e.g. the Starting placeholder); a non-nil cmd re-arms the
// wait handle and the alive flag for the new run.
func (r *Registry) Upsert(id string, st Status, cmd *exec.Cmd) {
	r.mu.Lock()
	r.entries[id] = &entry{status: st, cmd: cmd, alive: cmd != nil}
	r.mu.Unlock()
}

// Get returns a snapshot copy of the status for id. The wait handle is
// never exposed.
func (r *Registry) Get(id string) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return Status{}, false
	}
	return e.status, true
}

// MutateStatus applies f to the status for id, if the entry exists.
// Unknown ids are a no-op.
func (r *Registry) MutateStatus(id string, f func(*Status)) {
	r.mu.Lock()
	if e, ok := r.entries[id]; ok {
		f(&e.status)
	}
	r.mu.Unlock()
}

// TakeHandle transfers ownership of the wait handle for id. Exactly one
// caller per run observes a non-nil result; everyone after gets nil. The
// taker becomes responsible for reaping the process via Wait.
func (r *Registry) TakeHandle(id string) *exec.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	cmd := e.cmd
	e.cmd = nil
	return cmd
}

// Alive reports whether the OS process behind id is still believed to
// exist. It turns false when Finalize runs.
func (r *Registry) Alive(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return ok && e.alive
}

// Finalize records a terminal status and clears the alive flag in one
// step. Only the monitor (and the already-gone Stop/Kill shortcut) write
// terminal statuses; the terminal write intentionally overwrites
// Stopping/Killing.
func (r *Registry) Finalize(id string, st Status) {
	r.mu.Lock()
	if e, ok := r.entries[id]; ok {
		st.ID = e.status.ID
		st.PID = e.status.PID
		st.Port = e.status.Port
		st.HasStderr = e.status.HasStderr
		e.status = st
		e.alive = false
	}
	r.mu.Unlock()
}

// SetPortOnce records the detected port for id if none is known yet.
// First writer wins; later probes observe false and stop.
func (r *Registry) SetPortOnce(id string, port int) bool {
	if port <= 0 {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.status.Port != 0 {
		return false
	}
	e.status.Port = port
	return true
}

// Port returns the declared or detected port for id, 0 when unknown.
func (r *Registry) Port(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		return e.status.Port
	}
	return 0
}

// MarkStderr flips the sticky has-error flag for id. It returns true only
// on the first flip of a run, so callers can log the transition once.
func (r *Registry) MarkStderr(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.status.HasStderr {
		return false
	}
	e.status.HasStderr = true
	return true
}

// IDs returns the ids of all registered entries.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}
