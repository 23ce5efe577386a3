package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"principalcheck/internal/wiring"
)

func newSchemaCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the postgres directory tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.loadConfig()
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			dir, closeDB, err := wiring.OpenPostgres(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeDB() }()

			if err := dir.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
			return err
		},
	}
}
