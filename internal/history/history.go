package history

import (
	"context"
	"time"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventStarted  EventType = "started"
	EventFinished EventType = "finished"
)

// Event is one lifecycle event for a managed server. Output lines are
// deliberately not part of the record; only lifecycle facts are exported.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	ID         string    `json:"id"`
	PID        int       `json:"pid"`
	Port       int       `json:"port,omitempty"`
	ExitCode   *int      `json:"exit_code,omitempty"`
	Success    bool      `json:"success"`
	Message    string    `json:"message,omitempty"`
}

// Sink is a destination for lifecycle events (audit/analytics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
