package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"principalcheck/internal/principal/models"
	"principalcheck/internal/validation"
	"principalcheck/internal/wiring"
)

type checkResult struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Kind string `json:"kind"`
	HTML string `json:"html"`
}

func newCheckCmd(opts *options) *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:   "check NAME",
		Short: "Validate a name against the configured directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := models.ParseKind(kindFlag)
			if err != nil {
				return err
			}
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			log := opts.logger(cmd, cfg)

			res, err := wiring.Build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = res.Close() }()

			v := validation.New(res.Symbols, res.Known, log, nil,
				validation.WithMaxLabelWidth(cfg.Validation.MaxLabelWidth),
			)
			out := v.Check(ctx, args[0], kind, res.Directory)

			result := checkResult{Name: args[0], Type: kind.String(), Kind: out.Severity.String(), HTML: out.HTML}
			if opts.output == "json" {
				return printJSON(cmd.OutOrStdout(), result)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", result.Kind, result.HTML)
			return err
		},
	}
	cmd.Flags().StringVarP(&kindFlag, "type", "t", "either", "Principal type (either, user, group)")
	return cmd
}
