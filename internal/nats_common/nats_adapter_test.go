package nats_common

import (
	"context"
	"errors"
	"testing"

	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
)

func TestPublisher_NotConnected(t *testing.T) {
	p := NewPublisher(NATSConfig{ServerURL: "nats://127.0.0.1:1", Subject: "fireflyiii.snapshot"}, internal.NopLogger())

	err := p.PublishSnapshot(context.Background(), interfaces.SnapshotEvent{ID: "1"})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if err := p.RegisterRequestHandler("fireflyiii.control", func([]byte) ([]byte, error) { return nil, nil }); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if p.IsConnected() {
		t.Error("expected publisher to report disconnected")
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close on unconnected publisher: %v", err)
	}
}

func TestPublisher_ConnectFailure(t *testing.T) {
	p := NewPublisher(NATSConfig{ServerURL: "nats://127.0.0.1:1", Subject: "fireflyiii.snapshot"}, internal.NopLogger())
	if err := p.Connect(context.Background()); err == nil {
		t.Fatal("expected connection error for unreachable server")
	}
}

func TestNewPublisher_DefaultsClientID(t *testing.T) {
	p := NewPublisher(NATSConfig{}, internal.NopLogger())
	if p.Config.ClientID == "" {
		t.Error("expected a generated client id")
	}
}
