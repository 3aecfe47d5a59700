package interfaces

import (
	"context"
	"encoding/json"
	"time"
)

type EventType string

const (
	EventTypeSnapshotUpdated EventType = "snapshot.updated"
	EventTypeSnapshotFailed  EventType = "snapshot.failed"
)

// SnapshotEvent announces the end of a poll cycle. Subscribers read the
// data itself through the HTTP API.
type SnapshotEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Instance  string         `json:"instance"`
	Timestamp time.Time      `json:"timestamp"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Counts    map[string]int `json:"counts,omitempty"`
}

func (e *SnapshotEvent) String() string {
	jsonData, err := json.Marshal(e)
	if err != nil {
		return "Error serializing event"
	}
	return string(jsonData)
}

// SnapshotPublisher delivers snapshot events to a message broker
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, event SnapshotEvent) error
	Close() error
}

// ControlServer accepts request/reply handlers on a broker subject
type ControlServer interface {
	RegisterRequestHandler(subject string, handler func([]byte) ([]byte, error)) error
}
