package registry

import (
	"os/exec"
	"sync"
	"testing"
)

func TestUpsertAndGetSnapshot(t *testing.T) {
	r := New()
	if _, ok := r.Get("a"); ok {
		t.Fatalf("expected no entry before Upsert")
	}
	r.Upsert("a", Status{ID: "a", State: StateRunning, PID: 42}, nil)
	st, ok := r.Get("a")
	if !ok || st.State != StateRunning || st.PID != 42 {
		t.Fatalf("unexpected status: %+v ok=%v", st, ok)
	}
	// Mutating the snapshot must not affect the registry.
	st.PID = 7
	st2, _ := r.Get("a")
	if st2.PID != 42 {
		t.Fatalf("snapshot mutation leaked into registry: %+v", st2)
	}
}

func TestTakeHandleExactlyOnce(t *testing.T) {
	r := New()
	cmd := exec.Command("true")
	r.Upsert("a", Status{ID: "a", State: StateRunning}, cmd)

	const n = 16
	var wg sync.WaitGroup
	got := make([]*exec.Cmd, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			got[i] = r.TakeHandle("a")
		}(i)
	}
	wg.Wait()

	count := 0
	for _, c := range got {
		if c != nil {
			if c != cmd {
				t.Fatalf("taker got a different handle")
			}
			count++
		}
	}
	if count != 1 {
		t.Fatalf("handle taken %d times, want exactly 1", count)
	}
	if r.TakeHandle("a") != nil {
		t.Fatalf("handle still available after take")
	}
	if r.TakeHandle("missing") != nil {
		t.Fatalf("unknown id must yield nil handle")
	}
}

func TestAliveClearedByFinalize(t *testing.T) {
	r := New()
	r.Upsert("a", Status{ID: "a", State: StateRunning, PID: 9, Port: 3000}, exec.Command("true"))
	if !r.Alive("a") {
		t.Fatalf("expected alive after Upsert with cmd")
	}
	code := 0
	r.Finalize("a", Finished("a", &code, true))
	if r.Alive("a") {
		t.Fatalf("expected not alive after Finalize")
	}
	st, _ := r.Get("a")
	if st.State != StateFinished || !st.Success {
		t.Fatalf("terminal status not recorded: %+v", st)
	}
	// Finalize preserves identity fields from the prior status.
	if st.ID != "a" || st.PID != 9 || st.Port != 3000 {
		t.Fatalf("Finalize dropped identity fields: %+v", st)
	}
}

func TestUpsertWithoutCmdIsNotAlive(t *testing.T) {
	r := New()
	r.Upsert("a", Status{ID: "a", State: StateStarting}, nil)
	if r.Alive("a") {
		t.Fatalf("Starting placeholder must not be alive")
	}
}

func TestSetPortOnceFirstWriterWins(t *testing.T) {
	r := New()
	r.Upsert("a", Status{ID: "a", State: StateRunning}, nil)
	if r.SetPortOnce("a", 0) {
		t.Fatalf("port 0 must be rejected")
	}
	if !r.SetPortOnce("a", 8080) {
		t.Fatalf("first write must succeed")
	}
	if r.SetPortOnce("a", 9090) {
		t.Fatalf("second write must lose")
	}
	if got := r.Port("a"); got != 8080 {
		t.Fatalf("Port = %d, want 8080", got)
	}
	if r.SetPortOnce("missing", 80) {
		t.Fatalf("unknown id must be rejected")
	}
}

func TestDeclaredPortBlocksDetection(t *testing.T) {
	r := New()
	r.Upsert("a", Status{ID: "a", State: StateRunning, Port: 5000}, nil)
	if r.SetPortOnce("a", 6000) {
		t.Fatalf("declared port must not be overwritten")
	}
	if got := r.Port("a"); got != 5000 {
		t.Fatalf("Port = %d, want 5000", got)
	}
}

func TestMarkStderrStickyAndOnce(t *testing.T) {
	r := New()
	r.Upsert("a", Status{ID: "a", State: StateRunning}, nil)
	if !r.MarkStderr("a") {
		t.Fatalf("first flip must report true")
	}
	if r.MarkStderr("a") {
		t.Fatalf("second flip must report false")
	}
	st, _ := r.Get("a")
	if !st.HasStderr {
		t.Fatalf("flag not sticky: %+v", st)
	}
	// Survives Finalize.
	r.Finalize("a", Finished("a", nil, false))
	st, _ = r.Get("a")
	if !st.HasStderr {
		t.Fatalf("flag lost on Finalize: %+v", st)
	}
}

func TestTerminal(t *testing.T) {
	cases := []struct {
		state State
		want  bool
	}{
		{StateIdle, false},
		{StateStarting, false},
		{StateRunning, false},
		{StateStopping, false},
		{StateKilling, false},
		{StateFinished, true},
		{StateError, true},
	}
	for _, c := range cases {
		if got := (Status{State: c.state}).Terminal(); got != c.want {
			t.Fatalf("Terminal(%s) = %v, want %v", c.state, got, c.want)
		}
	}
}
