//go:build !windows

package supervisor

import (
	"errors"
	"syscall"
)

// requestGracefulStop delivers SIGTERM to the process group.
func requestGracefulStop(pid int) error {
	return signalGroup(pid, syscall.SIGTERM)
}

// forceTerminate delivers SIGKILL to the process group.
func forceTerminate(pid int) error {
	return signalGroup(pid, syscall.SIGKILL)
}

func signalGroup(pid int, sig syscall.Signal) error {
	err := syscall.Kill(-pid, sig)
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ESRCH) {
		// Group already gone; try the process itself. A fully exited
		// process counts as delivered, the monitor owns the final state.
		if e := syscall.Kill(pid, sig); e != nil && !errors.Is(e, syscall.ESRCH) {
			return e
		}
		return nil
	}
	return err
}
