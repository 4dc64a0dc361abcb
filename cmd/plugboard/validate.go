package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/plugboard/plugboard/internal/discovery"
)

// newValidateCmd creates the validate subcommand.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [plugin-dir...]",
		Short: "Validate plugin manifests",
		Long: `Validate the plugin.yaml manifest in each given plugin directory
against the manifest schema and semantic rules (name format, semver
version, dependency declarations).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failures := 0
			for _, dir := range args {
				if err := validatePluginDir(dir); err != nil {
					cmd.PrintErrf("FAIL %s: %v\n", dir, err)
					failures++
					continue
				}
				cmd.Printf("OK   %s\n", dir)
			}
			if failures > 0 {
				return fmt.Errorf("%d of %d manifests failed validation", failures, len(args))
			}
			return nil
		},
	}
}

// validatePluginDir checks one plugin directory's manifest.
func validatePluginDir(dir string) error {
	manifestPath := filepath.Join(dir, discovery.ManifestFileName)
	data, err := os.ReadFile(filepath.Clean(manifestPath))
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}

	if err := discovery.ValidateSchema(data); err != nil {
		return fmt.Errorf("schema: %s", discovery.FormatSchemaError(err))
	}

	manifest, err := discovery.ParseManifest(data)
	if err != nil {
		return err
	}

	entryPath := filepath.Join(dir, manifest.Entry)
	if _, err := os.Stat(entryPath); err != nil {
		return fmt.Errorf("entry %s: %w", manifest.Entry, err)
	}

	return nil
}
