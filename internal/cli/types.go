package cli

import (
	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
	"github.com/spf13/cobra"
)

// CmdParams holds all dependencies needed by command handlers. Config and
// Logger are filled in by the root command before any handler runs.
type CmdParams struct {
	Config     *internal.Config
	Logger     *internal.Logger
	ConfigFile string
	Palette    []*cobra.Command
	Use        string
	Alias      string
	Short      string
	Long       string
}
