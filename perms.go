package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gradeflow/api/pkg/config"
	"gradeflow/api/pkg/perms"
)

// newPermsCmd groups the administrative calls against the external
// permission service: writing the schema and replaying tuples.
func newPermsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perms",
		Short: "Initialise and seed the external permission service",
	}
	cmd.AddCommand(newPermsInitCmd(), newPermsSeedCmd())
	return cmd
}

func newPermsInitCmd() *cobra.Command {
	var schemaPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the permission schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := os.ReadFile(schemaPath)
			if err != nil {
				return fmt.Errorf("read schema: %w", err)
			}

			cfg := config.Load()

			client := perms.NewClient(cfg.PermsHost, cfg.PermsTenant)
			version, err := client.WriteSchema(cmd.Context(), string(schema))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialised schema version %s\n", version)
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to the permission schema file")
	cmd.MarkFlagRequired("schema")
	return cmd
}

func newPermsSeedCmd() *cobra.Command {
	var tuplesPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replay permission tuples from a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(tuplesPath)
			if err != nil {
				return fmt.Errorf("read tuples: %w", err)
			}
			tuples, err := perms.ParseTuples(data)
			if err != nil {
				return err
			}

			cfg := config.Load()

			client := perms.NewClient(cfg.PermsHost, cfg.PermsTenant)
			if err := client.WriteTuples(cmd.Context(), tuples); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d permission tuples\n", len(tuples))
			return nil
		},
	}
	cmd.Flags().StringVar(&tuplesPath, "tuples", "", "path to the permission tuples JSON")
	cmd.MarkFlagRequired("tuples")
	return cmd
}
