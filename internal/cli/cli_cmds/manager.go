package cli_cmds

import (
	"github.com/ZanzyTHEbar/fireflyiii-go/internal/cli"

	"github.com/spf13/cobra"
)

func GeneratePalette(params *cli.CmdParams) []*cobra.Command {

	// Global commands
	helpCmd := NewHelp(params)
	versionCmd := NewVersion(params)

	// Polling commands
	pollCmd := NewPoll(params)
	remoteCmd := NewRemote(params)

	// Utility commands
	checkCmd := NewCheck(params)
	rangeCmd := NewRange(params)
	fetchCmd := NewFetch(params)
	configCmd := NewConfig(params)

	// Return all commands
	return []*cobra.Command{
		helpCmd,
		versionCmd,
		pollCmd,
		remoteCmd,
		checkCmd,
		rangeCmd,
		fetchCmd,
		configCmd,
	}
}
