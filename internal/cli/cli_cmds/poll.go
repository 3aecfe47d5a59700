package cli_cmds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/adapters/api"
	"github.com/ZanzyTHEbar/fireflyiii-go/interfaces"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal/cli"
	"github.com/ZanzyTHEbar/fireflyiii-go/services"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// NewPoll creates the command that keeps the snapshot up to date
func NewPoll(params *cli.CmdParams) *cobra.Command {
	var once bool

	pollCmd := &cobra.Command{
		Use:     "poll",
		Aliases: []string{"serve"},
		Short:   "Poll the Firefly III server and publish snapshots",
		Long: `Poll the configured Firefly III server on the configured interval.
The snapshot is served over HTTP when http.listen is set and cycle
events are published when publish.driver is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, params, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.coordinator.RestoreLastSuccess(ctx); err != nil {
				a.logger.Warn(internal.ComponentStorage, "Failed to read cycle history: %v", err)
			}

			if once {
				updateErr := a.coordinator.Update(ctx)
				if err := writeJSON(cmd.OutOrStdout(), a.coordinator.Status()); err != nil {
					return err
				}
				return updateErr
			}
			return a.serve(ctx)
		},
	}

	pollCmd.Flags().BoolVar(&once, "once", false, "Run a single cycle, print its status and exit")

	return pollCmd
}

// serve runs the poller, and the API when enabled, until ctx is done.
func (a *app) serve(ctx context.Context) error {
	manager := services.NewServiceManager(a.logger)
	poller := services.NewPollService(a.coordinator, a.logger)
	manager.Register(services.PollServiceName, poller)

	if listen := a.config.HTTP.Listen; listen != "" {
		router, err := api.NewRouter(api.Options{
			Coordinator: a.coordinator,
			Refresher:   poller,
			Metrics:     a.metrics,
			Logger:      a.logger,
		})
		if err != nil {
			return err
		}
		manager.Register(api.ServiceName, api.NewServer(listen, router, a.logger))
	}

	if err := manager.StartAll(); err != nil {
		_ = manager.Shutdown(shutdownTimeout)
		return err
	}

	if ctl, ok := a.publisher.(interfaces.ControlServer); ok && a.config.Publish.ControlSubject != "" {
		if err := ctl.RegisterRequestHandler(a.config.Publish.ControlSubject, poller.ControlHandler); err != nil {
			a.logger.Warn(internal.ComponentNATS, "Control subject unavailable: %v", err)
		} else {
			a.logger.Info(internal.ComponentNATS, "Accepting control commands on %s", a.config.Publish.ControlSubject)
		}
	}

	a.logger.Info(internal.ComponentCLI, "Polling %s every %s", a.config.Firefly.URL, a.coordinator.Interval())
	<-ctx.Done()
	a.logger.Info(internal.ComponentCLI, "Shutting down")

	return manager.Shutdown(shutdownTimeout)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
