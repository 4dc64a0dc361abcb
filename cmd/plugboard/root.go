package main

import (
	"github.com/spf13/cobra"

	"github.com/plugboard/plugboard/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// resolveConfigFile returns the explicit --config path, or the XDG config
// file if one exists.
func resolveConfigFile() string {
	if configFile != "" {
		return configFile
	}
	return xdg.ConfigFile()
}

// NewRootCmd creates the root command for the plugboard CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugboard",
		Short: "Plugboard - an embeddable plugin application runtime",
		Long: `Plugboard composes independent plugins - named screens, invocable
actions, and event handlers - into a shared, lifecycle-managed runtime.
The CLI validates plugin manifests and inspects what a set of plugins
contributes.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().String("logging.format", "json", "log format: json or text")
	cmd.PersistentFlags().String("logging.level", "info", "log level: debug, info, warn, error")

	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newRunCmd())

	return cmd
}
