package cli_cmds

import (
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/fireflyiii-go/domain/timerange"
	"github.com/ZanzyTHEbar/fireflyiii-go/factory"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal/cli"
	"github.com/ZanzyTHEbar/fireflyiii-go/services"
	"github.com/spf13/cobra"
)

// NewRange creates a command that prints the reporting window a cycle
// would use
func NewRange(params *cli.CmdParams) *cobra.Command {
	var (
		at     string
		asJSON bool
	)

	rangeCmd := &cobra.Command{
		Use:   "range",
		Short: "Show the reporting window for the configured range",
		Long: `Resolve the configured range settings against now, or against the
date given with --at. Year ranges without range.year_start ask the
server for its fiscal year start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := time.Now()
			if at != "" {
				parsed, err := time.ParseInLocation(timerange.DateFormat, at, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --at date %q, expected YYYY-MM-DD: %w", at, err)
				}
				ref = parsed
			}

			cfg := params.Config
			coordinator, err := services.NewCoordinator(services.CoordinatorOptions{
				Config:  cfg,
				Clients: factory.NewClientFactory(factory.NewFireflyClient(cfg, params.Logger)),
				Logger:  params.Logger,
			})
			if err != nil {
				return err
			}

			rng := coordinator.ResolveRange(cmd.Context(), ref)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rng)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s\n", cfg.Range.Kind, rng.StartDate(), rng.EndDate())
			return nil
		},
	}

	rangeCmd.Flags().StringVar(&at, "at", "", "Reference date (YYYY-MM-DD), defaults to today")
	rangeCmd.Flags().BoolVar(&asJSON, "json", false, "Print the exact bounds as JSON")

	return rangeCmd
}
