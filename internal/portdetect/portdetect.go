// Package portdetect resolves the TCP port a managed server bound, using
// two best-effort probes: scanning captured output lines for well-known
// "listening on host:port" phrasings, and inspecting the OS socket table
// for a LISTEN socket owned by the pid. Both probes self-bound their
// duration, race to set a write-once port field on the registry, and never
// affect the server's lifecycle state.
package portdetect

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mcpherd/mcpherd/internal/metrics"
	"github.com/mcpherd/mcpherd/internal/output"
	"github.com/mcpherd/mcpherd/internal/registry"
)

const (
	logProbeWindow   = 5 * time.Second
	logProbeInterval = 100 * time.Millisecond
	sockProbeWindow  = 30 * time.Second
	sockProbeTick    = time.Second
)

// Patterns matched against case-folded output lines. The capture group is
// the port.
var logPatterns = []*regexp.Regexp{
	regexp.MustCompile(`listening on [^\s]*:(\d{1,5})`),
	regexp.MustCompile(`listening on port (\d{1,5})`),
	regexp.MustCompile(`listening at [^\s]*:(\d{1,5})`),
	regexp.MustCompile(`running (?:on|at) [^\s]*:(\d{1,5})`),
	regexp.MustCompile(`started (?:on|at) [^\s]*:(\d{1,5})`),
	regexp.MustCompile(`server (?:listening|running|started) on port (\d{1,5})`),
	regexp.MustCompile(`bound to [^\s]*:(\d{1,5})`),
}

// Detector runs the probes for one process run.
type Detector struct {
	reg    *registry.Registry
	buf    *output.Buffer
	logger *slog.Logger
}

func New(reg *registry.Registry, buf *output.Buffer, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{reg: reg, buf: buf, logger: logger}
}

// Run launches both probes for id/pid in background goroutines and returns
// immediately. ctx bounds the probes in addition to their own windows.
func (d *Detector) Run(ctx context.Context, id string, pid int) {
	go d.logProbe(ctx, id)
	go d.socketProbe(ctx, id, pid)
}

// logProbe scans newly captured output lines for a port announcement for a
// few seconds after start.
func (d *Detector) logProbe(ctx context.Context, id string) {
	deadline := time.After(logProbeWindow)
	tick := time.NewTicker(logProbeInterval)
	defer tick.Stop()
	seen := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-tick.C:
		}
		lines := d.buf.Since(id, seen)
		seen += len(lines)
		for _, ln := range lines {
			if port := ScanLine(ln.Text); port > 0 {
				d.record(id, port, "log")
				return
			}
		}
	}
}

// socketProbe polls the OS socket table once per second for up to thirty
// seconds, stopping early once a port is known (found by either probe).
func (d *Detector) socketProbe(ctx context.Context, id string, pid int) {
	if pid <= 0 {
		return
	}
	deadline := time.After(sockProbeWindow)
	tick := time.NewTicker(sockProbeTick)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-tick.C:
		}
		if d.reg.Port(id) != 0 {
			return
		}
		port, err := listeningPort(pid)
		if err != nil {
			// Unsupported platform or transient read failure; advisory only.
			return
		}
		if port > 0 {
			d.record(id, port, "sockets")
			return
		}
	}
}

func (d *Detector) record(id string, port int, probe string) {
	if d.reg.SetPortOnce(id, port) {
		metrics.SetDetectedPort(id, port)
		d.logger.Debug("detected listening port", "id", id, "port", port, "probe", probe)
	}
}

// ScanLine extracts a port from a single output line, or 0 when the line
// does not announce one. Matching is case-insensitive.
func ScanLine(text string) int {
	folded := strings.ToLower(text)
	for _, re := range logPatterns {
		m := re.FindStringSubmatch(folded)
		if m == nil {
			continue
		}
		port, err := strconv.Atoi(m[1])
		if err != nil || port <= 0 || port > 65535 {
			continue
		}
		return port
	}
	return 0
}
