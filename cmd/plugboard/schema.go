package main

import (
	"github.com/spf13/cobra"

	"github.com/plugboard/plugboard/internal/discovery"
)

// newSchemaCmd creates the schema subcommand.
func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the plugin manifest JSON Schema",
		Long: `Print the JSON Schema that plugin.yaml manifests are validated
against. Reference it in manifests via ` + discovery.SchemaID() + `.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := discovery.GenerateSchema()
			if err != nil {
				return err
			}
			cmd.Println(string(data))
			return nil
		},
	}
}
