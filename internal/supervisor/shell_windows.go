//go:build windows

package supervisor

import "os/exec"

// shellCommand wraps the composed command line in cmd /C so shell
// features in configured commands keep working.
func shellCommand(cmdLine string) *exec.Cmd {
	// #nosec G204 -- launching operator-configured commands is the purpose
	return exec.Command("cmd", "/C", cmdLine)
}
