package factory

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/timerange"
	"github.com/ZanzyTHEbar/fireflyiii-go/firefly"
	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal/amqp"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal/nats_common"
)

// NewFireflyClient creates an unbound Firefly III client from config
func NewFireflyClient(cfg *internal.Config, logger *internal.Logger) *firefly.Client {
	return firefly.NewClient(firefly.Options{
		Host:               cfg.Firefly.URL,
		Token:              cfg.Firefly.Token,
		VerifyCertificates: cfg.Firefly.VerifyCertificates,
		Timeout:            cfg.Firefly.Timeout,
		Logger:             logger,
	})
}

// NewClientFactory returns a factory deriving a fresh, range-bound client
// from base on every call. A nil range returns base itself.
func NewClientFactory(base *firefly.Client) interfaces.ClientFactory {
	return func(rng *timerange.Range) interfaces.FireflyAPI {
		if rng == nil {
			return base
		}
		return base.ForRange(rng)
	}
}

// NewPublisher creates the snapshot publisher selected by publish.driver.
// An empty driver returns nil.
func NewPublisher(ctx context.Context, cfg *internal.Config, logger *internal.Logger) (interfaces.SnapshotPublisher, error) {
	pc := cfg.Publish
	switch pc.Driver {
	case "":
		return nil, nil
	case "nats":
		pub := nats_common.NewPublisher(nats_common.NATSConfig{
			ServerURL:      pc.URL,
			StreamName:     pc.Stream,
			Subject:        pc.Subject,
			ControlSubject: pc.ControlSubject,
			Username:       pc.Username,
			Password:       pc.Password,
			Token:          pc.Token,
		}, logger)
		if err := pub.Connect(ctx); err != nil {
			return nil, err
		}
		return pub, nil
	case "amqp":
		pub, err := amqp.NewPublisher(pc.URL, pc.Exchange, logger)
		if err != nil {
			return nil, err
		}
		return pub, nil
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", internal.ErrInvalidPublish, pc.Driver)
	}
}

// NewHistoryStore opens the cycle history database. An empty path
// returns nil.
func NewHistoryStore(path string) (interfaces.HistoryStore, error) {
	if path == "" {
		return nil, nil
	}
	db, err := internal.NewSQLiteDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return db, nil
}
