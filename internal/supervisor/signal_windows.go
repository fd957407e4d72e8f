//go:build windows

package supervisor

import "os"

// requestGracefulStop is a documented no-op on Windows: there is no
// SIGTERM equivalent, so a stopped server must either exit on its own or
// be force-killed. The monitor remains the authority on final state.
func requestGracefulStop(pid int) error {
	return nil
}

// forceTerminate ends the process unconditionally via TerminateProcess.
func forceTerminate(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}
