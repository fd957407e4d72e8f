package history

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOpenSearchSinkPostsDocument(t *testing.T) {
	var gotPath string
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	sink := NewOpenSearchSink(ts.URL+"/", "mcpherd-history")
	e := Event{Type: EventStarted, OccurredAt: time.Now().UTC(), ID: "demo", PID: 77, Port: 8080}
	if err := sink.Send(context.Background(), e); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotPath != "/mcpherd-history/_doc" {
		t.Fatalf("path = %q", gotPath)
	}
	var doc Event
	if err := json.Unmarshal(gotBody, &doc); err != nil {
		t.Fatalf("body not JSON: %v", err)
	}
	if doc.ID != "demo" || doc.Type != EventStarted || doc.PID != 77 {
		t.Fatalf("document = %+v", doc)
	}
}

func TestOpenSearchSinkRejectsErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	sink := NewOpenSearchSink(ts.URL, "idx")
	if err := sink.Send(context.Background(), Event{Type: EventStarted, ID: "x"}); err == nil {
		t.Fatalf("expected error for 503 response")
	}
}
