package cli

import (
	"context"
	"io"
	"slices"

	"github.com/spf13/cobra"
)

// NewGraphsCommand creates the graphs command.
func NewGraphsCommand(rootOpts *RootOptions) *cobra.Command {
	var data []string

	cmd := &cobra.Command{
		Use:          "graphs",
		Short:        "Load quad files and list their named graphs",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraphs(cmd.Context(), rootOpts, data, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringSliceVarP(&data, "data", "d", nil, "JSON-lines quad file (repeatable)")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func runGraphs(ctx context.Context, rootOpts *RootOptions, data []string, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ds, logger, err := openDataset(ctx, rootOpts, errOut)
	if err != nil {
		return err
	}
	defer ds.Close()

	if _, err := loadFiles(ctx, ds, logger, data); err != nil {
		return err
	}
	graphs, err := ds.ListGraphNodes(ctx)
	if err != nil {
		return err
	}
	names := make([]string, len(graphs))
	for i, g := range graphs {
		names[i] = g.String()
	}
	slices.Sort(names)

	formatter := &OutputFormatter{Format: rootOpts.Format, Writer: out}
	return formatter.Success(names, lines(names))
}
