// Package cli implements the quadmem command-line tool.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mannyrivera2010/go-quadmem/internal/config"
	"github.com/mannyrivera2010/go-quadmem/internal/metrics"
	"github.com/mannyrivera2010/go-quadmem/pkg/quadstore"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the quadmem CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "quadmem",
		Short: "quadmem - in-memory transactional quad store",
		Long:  "Load RDF quads into a transactional dataset and query them by pattern.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewGraphsCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// setup loads the configuration and builds the logger every command shares.
// Logs go to errOut so that JSON output stays clean; --verbose lowers the
// level to debug.
func setup(opts *RootOptions, errOut io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return cfg, nil, err
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	metrics.SetEnabled(cfg.Metrics.Enabled)
	return cfg, cfg.NewLogger(errOut), nil
}

// openDataset opens the dataset the configuration describes.
func openDataset(ctx context.Context, opts *RootOptions, errOut io.Writer) (quadstore.Dataset, *slog.Logger, error) {
	cfg, logger, err := setup(opts, errOut)
	if err != nil {
		return nil, nil, err
	}
	ds, err := quadstore.Open(ctx, cfg.ToOpenOptions(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("open %s dataset: %w", cfg.Backend, err)
	}
	return ds, logger, nil
}
