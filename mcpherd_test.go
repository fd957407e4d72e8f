package mcpherd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests require sh/sleep on Unix-like systems")
	}
}

func waitTerminal(t *testing.T, m *Manager, id string) Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st := m.Status(id)
		if st.Terminal() {
			return st
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("%q did not reach a terminal state: %+v", id, m.Status(id))
	return Status{}
}

func TestManagerLifecycle(t *testing.T) {
	requireUnix(t)
	m := NewManager(nil)
	if err := m.Define("echo-srv", ServerConfig{Command: "sh", Args: []string{"-c", "echo hi && exit 0"}}); err != nil {
		t.Fatalf("Define: %v", err)
	}
	st, err := m.Start("echo-srv")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if st.State != StateRunning {
		t.Fatalf("start status = %+v", st)
	}
	final := waitTerminal(t, m, "echo-srv")
	if final.State != StateFinished || !final.Success {
		t.Fatalf("final = %+v", final)
	}
	lines := m.Output("echo-srv")
	if len(lines) == 0 || lines[0].Text != "hi" {
		t.Fatalf("output = %+v", lines)
	}
}

func TestManagerUnknownIDs(t *testing.T) {
	m := NewManager(nil)
	if st := m.Status("ghost"); st.State != StateIdle {
		t.Fatalf("status = %+v, want Idle", st)
	}
	if _, err := m.Start("ghost"); err == nil {
		t.Fatalf("Start of undefined id must fail")
	}
	if err := m.Remove("ghost"); err == nil {
		t.Fatalf("Remove of undefined id must fail")
	}
}

func TestManagerFromFileRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.json")
	m, err := NewManagerFromFile(path, nil)
	if err != nil {
		t.Fatalf("NewManagerFromFile: %v", err)
	}
	if err := m.Define("a", ServerConfig{Command: "true"}); err != nil {
		t.Fatalf("Define: %v", err)
	}

	again, err := NewManagerFromFile(path, nil)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	cfg, ok := again.Config("a")
	if !ok || cfg.Command != "true" {
		t.Fatalf("definition not persisted: %+v ok=%v", cfg, ok)
	}
	if got := again.Servers(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("Servers = %v", got)
	}
}

func TestHTTPHandlerServesStatus(t *testing.T) {
	m := NewManager(nil)
	ts := httptest.NewServer(m.HTTPHandler("/api"))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/servers/ghost/status")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.State != StateIdle {
		t.Fatalf("status = %+v, want Idle", st)
	}
}
