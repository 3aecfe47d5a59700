package nats_common

import (
	"context"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

type NATSConfig struct {
	ServerURL string
	// StreamName, when set, captures Subject in a JetStream stream
	StreamName     string
	Subject        string
	ControlSubject string
	ClientID       string
	Username       string
	Password       string
	Token          string
}

// EnsureStreamExists creates or updates a stream capturing subjects.
func EnsureStreamExists(ctx context.Context, js jetstream.JetStream, streamName string, subjects []string, config jetstream.StreamConfig) (jetstream.Stream, error) {
	config.Name = streamName
	config.Subjects = subjects

	if config.Storage == 0 {
		config.Storage = jetstream.FileStorage
	}
	if config.Retention == 0 {
		config.Retention = jetstream.LimitsPolicy
	}
	if config.MaxAge == 0 {
		config.MaxAge = 7 * 24 * time.Hour
	}

	stream, err := js.CreateOrUpdateStream(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}
	return stream, nil
}

// ApplyNATSAuthOptions returns the connection options for the configured credentials
func ApplyNATSAuthOptions(username, password, token string) []nats.Option {
	opts := []nats.Option{}
	logger := internal.GetLogger()
	if username != "" && password != "" {
		opts = append(opts, nats.UserInfo(username, password))
		logger.Debug(internal.ComponentNATS, "Using username/password authentication for NATS")
	} else if token != "" {
		opts = append(opts, nats.Token(token))
		logger.Debug(internal.ComponentNATS, "Using token authentication for NATS")
	}
	return opts
}
