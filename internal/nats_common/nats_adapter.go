package nats_common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// ErrNotConnected is returned when publishing before Connect
var ErrNotConnected = errors.New("not connected to NATS")

// connectTimeout bounds the initial connection attempt
const connectTimeout = 5 * time.Second

// Publisher publishes snapshot events to NATS and serves control requests
type Publisher struct {
	Config NATSConfig
	Logger *internal.Logger

	mu   sync.RWMutex
	conn *nats.Conn
	js   jetstream.JetStream
	subs []*nats.Subscription
}

// NewPublisher creates a new Publisher instance
func NewPublisher(config NATSConfig, logger *internal.Logger) *Publisher {
	if config.ClientID == "" {
		config.ClientID = internal.GenerateClientID()
	}
	return &Publisher{
		Config: config,
		Logger: logger,
	}
}

// Connect dials the server and, when a stream is configured, ensures it exists
func (p *Publisher) Connect(ctx context.Context) error {
	p.Logger.Debug(internal.ComponentNATS, "Connecting to NATS at %s as %s", p.Config.ServerURL, p.Config.ClientID)

	opts := []nats.Option{
		nats.Name(p.Config.ClientID),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.Timeout(connectTimeout),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			p.Logger.Error(internal.ComponentNATS, "NATS error: %v", err)
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			p.Logger.Warn(internal.ComponentNATS, "Disconnected from NATS server: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			p.Logger.Info(internal.ComponentNATS, "Reconnected to NATS server")
		}),
	}
	opts = append(opts, ApplyNATSAuthOptions(p.Config.Username, p.Config.Password, p.Config.Token)...)

	nc, err := nats.Connect(p.Config.ServerURL, opts...)
	if err != nil {
		return fmt.Errorf("NATS connection failed: %w", err)
	}

	var js jetstream.JetStream
	if p.Config.StreamName != "" {
		js, err = jetstream.New(nc)
		if err != nil {
			nc.Close()
			return fmt.Errorf("failed to create JetStream context: %w", err)
		}
		if _, err := EnsureStreamExists(ctx, js, p.Config.StreamName, []string{p.Config.Subject}, jetstream.StreamConfig{}); err != nil {
			nc.Close()
			return err
		}
		p.Logger.Info(internal.ComponentNATS, "Publishing %s into stream %s", p.Config.Subject, p.Config.StreamName)
	}

	p.mu.Lock()
	p.conn = nc
	p.js = js
	p.mu.Unlock()

	p.Logger.Info(internal.ComponentNATS, "Connected to NATS at %s", nc.ConnectedUrl())
	return nil
}

// PublishSnapshot implements interfaces.SnapshotPublisher
func (p *Publisher) PublishSnapshot(ctx context.Context, event interfaces.SnapshotEvent) error {
	p.mu.RLock()
	nc, js := p.conn, p.js
	p.mu.RUnlock()
	if nc == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if js != nil {
		if _, err := js.Publish(ctx, p.Config.Subject, data); err != nil {
			return fmt.Errorf("failed to publish to stream: %w", err)
		}
		return nil
	}
	if err := nc.Publish(p.Config.Subject, data); err != nil {
		return fmt.Errorf("failed to publish: %w", err)
	}
	return nil
}

// RegisterRequestHandler registers a handler function for request-reply pattern
func (p *Publisher) RegisterRequestHandler(subject string, handler func([]byte) ([]byte, error)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return ErrNotConnected
	}

	nc := p.conn
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		p.Logger.Debug(internal.ComponentNATS, "Received request on subject: %s", subject)

		response, err := handler(msg.Data)
		if err != nil {
			p.Logger.Error(internal.ComponentNATS, "Error handling request on subject %s: %v", subject, err)
			response = []byte(fmt.Sprintf("error: %v", err))
		}
		if msg.Reply == "" {
			return
		}
		if err := msg.Respond(response); err != nil {
			p.Logger.Error(internal.ComponentNATS, "Failed to publish response: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register request handler: %w", err)
	}

	p.subs = append(p.subs, sub)
	p.Logger.Debug(internal.ComponentNATS, "Registered request handler for subject: %s", subject)
	return nil
}

// IsConnected reports whether the connection is up
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conn != nil && p.conn.IsConnected()
}

// Close drains subscriptions and closes the connection
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, sub := range p.subs {
		_ = sub.Unsubscribe()
	}
	p.subs = nil

	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	return nil
}
