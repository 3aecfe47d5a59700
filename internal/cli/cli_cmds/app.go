package cli_cmds

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/fireflyiii-go/factory"
	"github.com/ZanzyTHEbar/fireflyiii-go/firefly"
	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal/cli"
	"github.com/ZanzyTHEbar/fireflyiii-go/services"
)

// app holds everything a poll run needs, built from the loaded config.
type app struct {
	config      *internal.Config
	logger      *internal.Logger
	client      *firefly.Client
	history     interfaces.HistoryStore
	publisher   interfaces.SnapshotPublisher
	metrics     *services.Metrics
	coordinator *services.Coordinator
}

// newApp validates the config and wires the client, sinks and coordinator.
// withSinks false skips the history store and the publisher.
func newApp(ctx context.Context, params *cli.CmdParams, withSinks bool) (*app, error) {
	if params.Config == nil {
		return nil, errors.New("configuration not loaded")
	}
	cfg := params.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := params.Logger
	if logger == nil {
		logger = internal.GetLogger()
	}

	a := &app{
		config: cfg,
		logger: logger,
		client: factory.NewFireflyClient(cfg, logger),
	}

	if withSinks {
		history, err := factory.NewHistoryStore(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		a.history = history

		publisher, err := factory.NewPublisher(ctx, cfg, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.publisher = publisher
		a.metrics = services.NewMetrics(cfg.Instance.Name)
	}

	coordinator, err := services.NewCoordinator(services.CoordinatorOptions{
		Config:    cfg,
		Clients:   factory.NewClientFactory(a.client),
		History:   a.history,
		Publisher: a.publisher,
		Metrics:   a.metrics,
		Logger:    logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.coordinator = coordinator
	return a, nil
}

// Close releases the history store and the publisher.
func (a *app) Close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn(internal.ComponentService, "Failed to close publisher: %v", err)
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn(internal.ComponentStorage, "Failed to close history database: %v", err)
		}
	}
}
