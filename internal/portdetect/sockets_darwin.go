//go:build darwin

package portdetect

import (
	"os/exec"
	"strconv"
	"strings"
)

// listeningPort shells out to lsof, the only portable way to enumerate
// another process's sockets on macOS without entitlements.
func listeningPort(pid int) (int, error) {
	out, err := exec.Command("lsof", "-nP", "-a", "-iTCP", "-sTCP:LISTEN", "-p", strconv.Itoa(pid)).Output()
	if err != nil {
		// lsof exits non-zero when the process has no matching sockets.
		return 0, nil
	}
	best := 0
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "(LISTEN)") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 9 {
			continue
		}
		name := fields[8]
		i := strings.LastIndexByte(name, ':')
		if i < 0 {
			continue
		}
		port, err := strconv.Atoi(name[i+1:])
		if err != nil || port <= 0 {
			continue
		}
		if best == 0 || port < best {
			best = port
		}
	}
	return best, nil
}
