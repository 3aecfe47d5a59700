package cli_cmds

import (
	"fmt"

	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal/cli"

	"github.com/spf13/cobra"
)

// NewHelp creates a detailed help command
func NewHelp(params *cli.CmdParams) *cobra.Command {
	var showAll bool

	helpCmd := &cobra.Command{
		Use:               "detailed_help",
		Aliases:           []string{"h"},
		Short:             "Display detailed help for " + internal.DefaultAppName,
		Long:              `Display detailed help information including the command hierarchy and usage examples.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			if showAll {
				fmt.Fprintf(out, "%s - Complete Command Reference\n", internal.DefaultAppName)
				fmt.Fprintln(out, "==============================")
				fmt.Fprintln(out, "\nAvailable Commands:")

				for _, c := range params.Palette {
					fmt.Fprintf(out, "- %s: %s\n", c.Use, c.Short)
					for _, sub := range c.Commands() {
						fmt.Fprintf(out, "    %s: %s\n", sub.Use, sub.Short)
					}
				}
				return
			}

			fmt.Fprintln(out, internal.DefaultAppName)
			fmt.Fprintln(out, "==========")
			fmt.Fprintln(out, "\nMain Commands:")
			fmt.Fprintln(out, "  poll        Poll the server and serve the snapshot")
			fmt.Fprintln(out, "  check       Check the connection and token")
			fmt.Fprintln(out, "  range       Show the current reporting window")
			fmt.Fprintln(out, "  fetch       Fetch one object type as JSON")
			fmt.Fprintln(out, "  config      Inspect the configuration")
			fmt.Fprintf(out, "\nUse '%s [command] --help' for more information about a command.\n", internal.DefaultAppName)
			fmt.Fprintf(out, "Use '%s detailed_help --all' to see all available commands.\n", internal.DefaultAppName)
		},
	}

	helpCmd.Flags().BoolVarP(&showAll, "all", "a", false, "Show all commands")

	return helpCmd
}
