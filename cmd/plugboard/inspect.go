package main

import (
	"encoding/json"
	"fmt"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/plugboard/plugboard/internal/config"
	"github.com/plugboard/plugboard/internal/logging"
	"github.com/plugboard/plugboard/pkg/board"
	"github.com/plugboard/plugboard/pkg/runtime"
)

// inspectConfig holds configuration for the inspect command.
type inspectConfig struct {
	filter     string
	jsonOutput bool
}

// inspectReport is the JSON shape of the inspect output.
type inspectReport struct {
	RuntimeVersion string                    `json:"runtime_version"`
	Plugins        []*board.PluginDefinition `json:"plugins"`
	Actions        []*board.ActionDefinition `json:"actions"`
	Screens        []*board.ScreenDefinition `json:"screens"`
}

// newInspectCmd creates the inspect subcommand.
func newInspectCmd() *cobra.Command {
	icfg := &inspectConfig{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Initialize the configured plugins and print what they contribute",
		Long: `Load and initialize the plugins from the configured paths, print
the registered plugins, actions, and screens via runtime introspection,
then shut the runtime down.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
			if err != nil {
				return err
			}

			logger := logging.Setup("plugboard", runtime.Version, cfg.Logging.Format, cfg.Logging.Level, cmd.ErrOrStderr())

			rt := runtime.New(
				runtime.WithLogger(logger),
				runtime.WithPluginPaths(cfg.Plugins.Paths...),
				runtime.WithPluginPackages(cfg.Plugins.Packages...),
				runtime.WithHostContext(cfg.Runtime.Host),
				runtime.WithPerformanceMonitoring(cfg.Runtime.PerformanceMonitoring),
			)

			ctx := cmd.Context()
			if err := rt.Initialize(ctx); err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			defer rt.Shutdown(ctx)

			report, err := buildReport(rt.Context().Introspect(), icfg.filter)
			if err != nil {
				return err
			}

			if icfg.jsonOutput {
				data, err := json.MarshalIndent(report, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal report: %w", err)
				}
				cmd.Println(string(data))
				return nil
			}

			printReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&icfg.filter, "filter", "", "glob filter on plugin/action/screen ids, ':' separated segments")
	cmd.Flags().BoolVar(&icfg.jsonOutput, "json", false, "output as JSON")
	cmd.Flags().StringSlice("plugins.paths", nil, "directories scanned for plugins")
	cmd.Flags().StringSlice("plugins.packages", nil, "individual plugin directories")

	return cmd
}

// buildReport collects introspection views, optionally filtered by a glob
// over ids.
func buildReport(intr board.Introspector, filter string) (*inspectReport, error) {
	match := func(string) bool { return true }
	if filter != "" {
		g, err := glob.Compile(filter, ':')
		if err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
		}
		match = g.Match
	}

	report := &inspectReport{
		RuntimeVersion: intr.Metadata().RuntimeVersion,
	}

	for _, name := range intr.ListPlugins() {
		if match(name) {
			report.Plugins = append(report.Plugins, intr.PluginDefinition(name))
		}
	}
	for _, id := range intr.ListActions() {
		if match(id) {
			report.Actions = append(report.Actions, intr.ActionDefinition(id))
		}
	}
	for _, id := range intr.ListScreens() {
		if match(id) {
			report.Screens = append(report.Screens, intr.ScreenDefinition(id))
		}
	}

	return report, nil
}

// printReport writes the human-readable report.
func printReport(cmd *cobra.Command, report *inspectReport) {
	cmd.Printf("runtime %s\n", report.RuntimeVersion)

	cmd.Printf("\nplugins (%d):\n", len(report.Plugins))
	for _, p := range report.Plugins {
		if len(p.Dependencies) > 0 {
			cmd.Printf("  %s %s (depends on %v)\n", p.Name, p.Version, p.Dependencies)
			continue
		}
		cmd.Printf("  %s %s\n", p.Name, p.Version)
	}

	cmd.Printf("\nactions (%d):\n", len(report.Actions))
	for _, a := range report.Actions {
		if a.Timeout > 0 {
			cmd.Printf("  %s (timeout %s)\n", a.ID, a.Timeout)
			continue
		}
		cmd.Printf("  %s\n", a.ID)
	}

	cmd.Printf("\nscreens (%d):\n", len(report.Screens))
	for _, s := range report.Screens {
		cmd.Printf("  %s: %s\n", s.ID, s.Title)
	}
}
