//go:build linux

package portdetect

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// listeningPort returns the lowest-numbered TCP port the process is
// listening on, or 0 when it holds no LISTEN socket. It maps the socket
// inodes in /proc/net/tcp{,6} to the process through /proc/<pid>/fd.
func listeningPort(pid int) (int, error) {
	inodes, err := socketInodes(pid)
	if err != nil {
		return 0, err
	}
	if len(inodes) == 0 {
		return 0, nil
	}
	best := 0
	for _, table := range []string{"/proc/net/tcp", "/proc/net/tcp6"} {
		ports, err := listenPortsByInode(table)
		if err != nil {
			continue
		}
		for inode := range inodes {
			if p, ok := ports[inode]; ok && (best == 0 || p < best) {
				best = p
			}
		}
	}
	return best, nil
}

// socketInodes collects the socket inodes held open by pid.
func socketInodes(pid int) (map[string]struct{}, error) {
	fdPath := fmt.Sprintf("/proc/%d/fd", pid)
	fds, err := os.ReadDir(fdPath)
	if err != nil {
		return nil, err
	}
	inodes := make(map[string]struct{})
	for _, fd := range fds {
		link, err := os.Readlink(fdPath + "/" + fd.Name())
		if err != nil {
			continue
		}
		if strings.HasPrefix(link, "socket:[") && strings.HasSuffix(link, "]") {
			inodes[link[8:len(link)-1]] = struct{}{}
		}
	}
	return inodes, nil
}

// listenPortsByInode parses one /proc/net table and returns inode -> local
// port for sockets in the LISTEN state (0A).
func listenPortsByInode(path string) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	ports := make(map[string]int)
	scanner := bufio.NewScanner(f)
	scanner.Scan() // skip header
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 10 {
			continue
		}
		if fields[3] != "0A" {
			continue
		}
		local := fields[1]
		i := strings.LastIndexByte(local, ':')
		if i < 0 {
			continue
		}
		port, err := strconv.ParseInt(local[i+1:], 16, 32)
		if err != nil || port <= 0 {
			continue
		}
		ports[fields[9]] = int(port)
	}
	return ports, scanner.Err()
}
