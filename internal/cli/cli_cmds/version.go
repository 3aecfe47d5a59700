package cli_cmds

import (
	"fmt"

	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal/cli"

	"github.com/spf13/cobra"
)

// NewVersion creates a version command
func NewVersion(params *cli.CmdParams) *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of " + internal.DefaultAppName,
		Long:  `Print the version information for ` + internal.DefaultAppName + ` including build details.`,
		// Skips the config load of the root command
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, internal.DefaultAppName)
			fmt.Fprintln(out, "==========")
			fmt.Fprintf(out, "%s\n", internal.VersionInfo())
		},
	}

	return versionCmd
}
