package supervisor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/mcpherd/mcpherd/internal/history"
	"github.com/mcpherd/mcpherd/internal/metrics"
	"github.com/mcpherd/mcpherd/internal/output"
	"github.com/mcpherd/mcpherd/internal/registry"
)

// capture reads one pipe line by line until the process closes it and
// appends each line to the output buffer. The first stderr line of a run
// flips the sticky has-error flag; later ones do not re-trigger the log.
func (s *Supervisor) capture(id string, r io.Reader, src output.Source, readers *sync.WaitGroup) {
	defer readers.Done()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		s.buf.Append(id, src, sc.Text())
		if src == output.Stderr && s.reg.MarkStderr(id) {
			s.logger.Warn("server wrote to stderr", "id", id)
		}
	}
	// A scanner error here means the pipe closed mid-line; the remainder
	// was already delivered, so there is nothing left to record.
}

// monitor is the single authority for terminal statuses. It claims the
// wait handle (exiting immediately if another task already holds it),
// waits for both pipe readers to drain, reaps the process, and finalizes
// the registry entry, overwriting Stopping/Killing with the real outcome.
func (s *Supervisor) monitor(id string, readers *sync.WaitGroup) {
	cmd := s.reg.TakeHandle(id)
	if cmd == nil {
		return
	}
	// Wait must not run before the pipes are drained; it closes them.
	readers.Wait()

	err := cmd.Wait()
	var st registry.Status
	var summary string
	switch {
	case err == nil:
		code := cmd.ProcessState.ExitCode()
		if code < 0 {
			code = 0
		}
		st = registry.Finished(id, &code, true)
		summary = fmt.Sprintf("process exited with code %d", code)
	case isExitError(err):
		code := cmd.ProcessState.ExitCode()
		if code >= 0 {
			st = registry.Finished(id, &code, false)
			summary = fmt.Sprintf("process exited with code %d", code)
		} else {
			// Terminated by a signal; no exit code to report.
			st = registry.Finished(id, nil, false)
			summary = fmt.Sprintf("process terminated: %v", err)
		}
	default:
		// The reap itself failed. Record an unsuccessful Finished and
		// surface the error as an output line rather than losing it.
		st = registry.Finished(id, nil, false)
		summary = fmt.Sprintf("error waiting for process exit: %v", err)
	}

	s.reg.Finalize(id, st)
	src := output.Stdout
	if !st.Success {
		src = output.Stderr
	}
	s.buf.Append(id, src, summary)
	metrics.RecordStateTransition(id, string(registry.StateRunning), string(registry.StateFinished))
	metrics.SetCurrentState(id, string(registry.StateFinished), true)
	s.logger.Info("server exited", "id", id, "success", st.Success)

	final, _ := s.reg.Get(id)
	s.record(history.Event{
		Type:       history.EventFinished,
		OccurredAt: time.Now().UTC(),
		ID:         id,
		PID:        final.PID,
		Port:       final.Port,
		ExitCode:   st.ExitCode,
		Success:    st.Success,
		Message:    summary,
	})
}

func isExitError(err error) bool {
	var ee *exec.ExitError
	return errors.As(err, &ee)
}
