package cli_cmds

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/fireflyiii-go/internal"
	"github.com/ZanzyTHEbar/fireflyiii-go/internal/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const secretMask = "********"

// NewConfig creates a command to inspect the adapter configuration
func NewConfig(params *cli.CmdParams) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the adapter configuration",
		Long:  `View the resolved configuration, including defaults and environment overrides.`,
	}

	configCmd.AddCommand(newConfigGet(params))
	configCmd.AddCommand(newConfigList(params))
	configCmd.AddCommand(newConfigInit(params))

	return configCmd
}

func displayValue(v *viper.Viper, key string) any {
	value := v.Get(key)
	if internal.IsSecretKey(key) && fmt.Sprint(value) != "" {
		return secretMask
	}
	return value
}

// newConfigGet creates a subcommand to get a specific config value
func newConfigGet(params *cli.CmdParams) *cobra.Command {
	return &cobra.Command{
		Use:   "get [key]",
		Short: "Get a configuration value",
		Long:  `Retrieve a specific configuration value by key, e.g. range.kind.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := internal.NewViper(params.ConfigFile)
			if err != nil {
				return err
			}

			key := strings.ToLower(args[0])
			if !v.IsSet(key) {
				return fmt.Errorf("config key %q not found", key)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, displayValue(v, key))
			return nil
		},
	}
}

// newConfigList creates a subcommand to list all config values
func newConfigList(params *cli.CmdParams) *cobra.Command {
	var format string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long:  `Display all resolved configuration values. Credentials are masked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := internal.NewViper(params.ConfigFile)
			if err != nil {
				return err
			}

			keys := v.AllKeys()
			sort.Strings(keys)

			switch strings.ToLower(format) {
			case "json":
				items := make(map[string]any, len(keys))
				for _, k := range keys {
					items[k] = displayValue(v, k)
				}
				return writeJSON(cmd.OutOrStdout(), items)

			default: // plain text format
				out := cmd.OutOrStdout()
				if used := v.ConfigFileUsed(); used != "" {
					fmt.Fprintf(out, "# %s\n", used)
				}
				for _, k := range keys {
					fmt.Fprintf(out, "%s = %v\n", k, displayValue(v, k))
				}
				return nil
			}
		},
	}

	listCmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text or json)")

	return listCmd
}

// newConfigInit writes the defaults to a new config file
func newConfigInit(params *cli.CmdParams) *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Write a config file with the default settings",
		Long:  `Write the default settings to path, or to ` + internal.DefaultConfigFile + `. Existing files are left untouched.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := internal.DefaultConfigFile
			if len(args) == 1 {
				path = args[0]
			}

			v, err := internal.NewViper(params.ConfigFile)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			if err := v.SafeWriteConfigAs(path); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
}
