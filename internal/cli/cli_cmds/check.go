package cli_cmds

import (
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/fireflyiii-go/firefly"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal/cli"
	"github.com/spf13/cobra"
)

// ErrCheckAuth is returned by check when the server rejects the token
var ErrCheckAuth = errors.New("the server rejected the access token, check firefly.token")

// NewCheck creates a command that verifies the server is reachable and
// accepts the configured token
func NewCheck(params *cli.CmdParams) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the connection to the Firefly III server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), params, false)
			if err != nil {
				return err
			}

			if err := a.client.CheckConnection(cmd.Context()); err != nil {
				if firefly.IsAuthError(err) {
					return fmt.Errorf("%w: %v", ErrCheckAuth, err)
				}
				return fmt.Errorf("cannot connect to %s: %w", a.config.Firefly.URL, err)
			}

			agg, err := a.client.About(cmd.Context())
			if err != nil {
				return err
			}
			about := agg.About()
			fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s\n", a.config.Firefly.URL)
			if about != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Firefly III %s (API %s, %s)\n", about.Version, about.APIVersion, about.OS)
			}
			return nil
		},
	}
}
