package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientHitsExpectedRoutes(t *testing.T) {
	var gotMethod, gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		_ = json.NewEncoder(w).Encode(Status{ID: "demo", State: "running", PID: 42})
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL + "/api"})
	ctx := context.Background()

	st, err := c.Start(ctx, "demo")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/servers/demo/start" {
		t.Fatalf("Start hit %s %s", gotMethod, gotPath)
	}
	if st.State != "running" || st.PID != 42 {
		t.Fatalf("Start decoded %+v", st)
	}

	if _, err := c.Stop(ctx, "demo"); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if gotPath != "/api/servers/demo/stop" {
		t.Fatalf("Stop hit %s", gotPath)
	}

	if _, err := c.Kill(ctx, "demo"); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if gotPath != "/api/servers/demo/kill" {
		t.Fatalf("Kill hit %s", gotPath)
	}

	if _, err := c.Status(ctx, "demo"); err != nil {
		t.Fatalf("Status: %v", err)
	}
	if gotMethod != http.MethodGet || gotPath != "/api/servers/demo/status" {
		t.Fatalf("Status hit %s %s", gotMethod, gotPath)
	}

	if err := c.Remove(ctx, "demo"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/servers/demo" {
		t.Fatalf("Remove hit %s %s", gotMethod, gotPath)
	}
}

func TestClientAddSendsConfig(t *testing.T) {
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL + "/api"})
	cfg := map[string]any{"command": "npx", "args": []string{"-y", "pkg"}}
	if err := c.Add(context.Background(), "demo", cfg); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if gotBody["id"] != "demo" {
		t.Fatalf("body = %+v", gotBody)
	}
	inner, ok := gotBody["config"].(map[string]any)
	if !ok || inner["command"] != "npx" {
		t.Fatalf("config = %+v", gotBody["config"])
	}
}

func TestClientSurfacesDaemonError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unknown server: ghost"})
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL + "/api"})
	_, err := c.Start(context.Background(), "ghost")
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := err.Error(); got != "daemon error: unknown server: ghost" {
		t.Fatalf("error = %q", got)
	}
}

func TestClientOutputDecodesLines(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]OutputLine{
			{Seq: 0, Text: "hi", Source: "stdout"},
			{Seq: 1, Text: "oops", Source: "stderr"},
		})
	}))
	defer ts.Close()

	c := New(Config{BaseURL: ts.URL + "/api"})
	lines, err := c.Output(context.Background(), "demo")
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if len(lines) != 2 || lines[1].Source != "stderr" {
		t.Fatalf("lines = %+v", lines)
	}
}

func TestDefaultsApplied(t *testing.T) {
	c := New(Config{})
	if c.baseURL != DefaultConfig().BaseURL {
		t.Fatalf("baseURL = %q", c.baseURL)
	}
}
