//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// shellCommand wraps the composed command line in the platform
// interpreter so shell features in configured commands keep working. The
// child gets its own process group so signals reach the whole pipeline.
func shellCommand(cmdLine string) *exec.Cmd {
	// #nosec G204 -- launching operator-configured commands is the purpose
	cmd := exec.Command("/bin/sh", "-c", cmdLine)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}
