package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHelpersNoOpBeforeRegister(t *testing.T) {
	// Must not panic or record anything while unregistered.
	regOK.Store(false)
	IncStart("x")
	IncStop("x")
	IncKill("x")
	IncSpawnFailure("x")
	RecordStateTransition("x", "starting", "running")
	SetCurrentState("x", "running", true)
	SetDetectedPort("x", 8080)
}

func TestRegisterAndCount(t *testing.T) {
	regOK.Store(false)
	r := prometheus.NewRegistry()
	if err := Register(r); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// Second registration is a no-op.
	if err := Register(r); err != nil {
		t.Fatalf("Register twice: %v", err)
	}

	IncStart("demo")
	IncStart("demo")
	if got := testutil.ToFloat64(serverStarts.WithLabelValues("demo")); got != 2 {
		t.Fatalf("starts_total = %v, want 2", got)
	}

	SetDetectedPort("demo", 4821)
	if got := testutil.ToFloat64(detectedPorts.WithLabelValues("demo")); got != 4821 {
		t.Fatalf("detected_port = %v, want 4821", got)
	}

	RecordStateTransition("demo", "running", "finished")
	if got := testutil.ToFloat64(stateTransitions.WithLabelValues("demo", "running", "finished")); got != 1 {
		t.Fatalf("state_transitions_total = %v, want 1", got)
	}
}
