package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"principalcheck/internal/symbol"
	"principalcheck/internal/wiring"
)

func newIconsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "icons",
		Short: "Print the resolved icon markup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Icons do not depend on the directory backend.
			cfg := opts.loadConfig()
			table := symbol.Resolve(cmd.Context(), wiring.Registry(cfg.Validation), opts.logger(cmd, cfg))

			entries := []struct {
				Name   string `json:"name"`
				Markup string `json:"markup"`
			}{
				{"user", table.User},
				{"group", table.Group},
				{"warning", table.Warning},
				{"alert", table.Alert},
			}
			if opts.output == "json" {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			for _, e := range entries {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", e.Name, e.Markup); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
