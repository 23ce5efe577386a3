// Package cli implements the principalcheck command-line interface.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"principalcheck/internal/platform/config"
	"principalcheck/internal/platform/logger"
)

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd(config.FromEnv)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

type options struct {
	loadConfig func() config.Config
	output     string
}

func newRootCmd(loadConfig func() config.Config) *cobra.Command {
	opts := &options{loadConfig: loadConfig}

	rootCmd := &cobra.Command{
		Use:           "principalcheck",
		Short:         "Validate user and group names against a directory",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if opts.output != "text" && opts.output != "json" {
				return fmt.Errorf("unsupported output format %q: use 'text' or 'json'", opts.output)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "Output format (text, json)")

	rootCmd.AddCommand(newCheckCmd(opts))
	rootCmd.AddCommand(newIconsCmd(opts))
	rootCmd.AddCommand(newSchemaCmd(opts))
	rootCmd.AddCommand(newTokenCmd(opts))
	return rootCmd
}

// config loads and validates the environment configuration. CLI logs go to
// stderr so stdout stays machine-readable.
func (o *options) config() (config.Config, error) {
	cfg := o.loadConfig()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (o *options) logger(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	return logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
