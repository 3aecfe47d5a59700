package main

import (
	"fmt"
	"os"

	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal/cli"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal/cli/cli_cmds"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	// Config and logger are loaded by the root command once flags are parsed
	rootParams := &cli.CmdParams{
		Palette: nil,
		Use:     internal.DefaultAppName,
		Alias:   internal.DefaultAppCMDShortCut,
		Short:   "Firefly III polling adapter",
		Long:    "Poll a Firefly III server for account, category, bill and budget data and publish the snapshot",
	}

	// Generate command palette
	palette := cli_cmds.GeneratePalette(rootParams)
	rootParams.Palette = palette

	// Create root command
	rootCmd := cli.NewRootCMD(rootParams)
	defer func() {
		if rootParams.Logger != nil {
			_ = rootParams.Logger.Close()
		}
	}()

	// Execute root command
	if err := rootCmd.Root.Execute(); err != nil {
		return fmt.Errorf("error executing root command: %w", err)
	}

	return nil
}
