package registry

// State is the lifecycle state of a managed server. States form a closed
// set; Finished and Error are terminal until the next start replaces the
// entry.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateKilling  State = "killing"
	StateFinished State = "finished"
	StateError    State = "error"
)

// Status is the externally visible snapshot of one managed server.
// ExitCode is nil while the process has not exited, and also when it was
// terminated by a signal and the platform reported no code.
type Status struct {
	ID        string `json:"id"`
	State     State  `json:"state"`
	PID       int    `json:"pid,omitempty"`
	Port      int    `json:"port,omitempty"` // declared or detected; 0 when unknown
	ExitCode  *int   `json:"exit_code,omitempty"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"` // populated for StateError
	HasStderr bool   `json:"has_stderr"`        // sticky; set by the first stderr line of a run
}

// Terminal reports whether the status can no longer change without a new
// start.
func (s Status) Terminal() bool {
	return s.State == StateFinished || s.State == StateError
}

// Idle is the status reported for ids that were never started.
func Idle(id string) Status {
	return Status{ID: id, State: StateIdle}
}

// Finished builds a terminal Finished status. code may be nil when the
// process was killed by a signal.
func Finished(id string, code *int, success bool) Status {
	return Status{ID: id, State: StateFinished, ExitCode: code, Success: success}
}

// Errored builds a terminal Error status carrying a diagnostic message.
func Errored(id, message string) Status {
	return Status{ID: id, State: StateError, Message: message}
}
