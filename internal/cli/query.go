package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
	"github.com/mannyrivera2010/go-quadmem/pkg/quadstore"
)

// QueryOptions holds the flags of the query command. Terms use N-Triples
// syntax; empty, "*" and "ANY" mean any value.
type QueryOptions struct {
	Data      []string
	Graph     string
	Subject   string
	Predicate string
	Object    string
	Named     bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Load quad files and find the quads matching a pattern",
		Long: `Load one or more JSON-lines quad files into a dataset, then print every
quad matching the pattern.

Each line is an object with "graph", "subject", "predicate" and "object"
terms in N-Triples syntax, for example
  {"graph":"<http://ex/g>","subject":"<http://ex/s>","predicate":"<http://ex/p>","object":"\"v\""}
A line without "graph" is a default-graph statement.

The graph may be <urn:x-arq:UnionGraph> to query the merge of all named
graphs. --named excludes the default graph from wildcard-graph matches.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), rootOpts, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Data, "data", "d", nil, "JSON-lines quad file (repeatable)")
	cmd.Flags().StringVarP(&opts.Graph, "graph", "g", "", "graph term")
	cmd.Flags().StringVarP(&opts.Subject, "subject", "s", "", "subject term")
	cmd.Flags().StringVarP(&opts.Predicate, "predicate", "p", "", "predicate term")
	cmd.Flags().StringVarP(&opts.Object, "object", "o", "", "object term")
	cmd.Flags().BoolVar(&opts.Named, "named", false, "match named graphs only")
	_ = cmd.MarkFlagRequired("data")

	return cmd
}

func (o *QueryOptions) pattern() (g, s, p, obj quad.Node, err error) {
	terms := []struct {
		name string
		text string
		dst  *quad.Node
	}{
		{"graph", o.Graph, &g},
		{"subject", o.Subject, &s},
		{"predicate", o.Predicate, &p},
		{"object", o.Object, &obj},
	}
	for _, t := range terms {
		if *t.dst, err = quad.ParseNode(strings.TrimSpace(t.text)); err != nil {
			return g, s, p, obj, fmt.Errorf("--%s: %w", t.name, err)
		}
	}
	return g, s, p, obj, nil
}

func runQuery(ctx context.Context, rootOpts *RootOptions, opts *QueryOptions, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	g, s, p, o, err := opts.pattern()
	if err != nil {
		return err
	}
	ds, logger, err := openDataset(ctx, rootOpts, errOut)
	if err != nil {
		return err
	}
	defer ds.Close()

	n, err := loadFiles(ctx, ds, logger, opts.Data)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "loaded quads", "files", len(opts.Data), "quads", n)

	rctx, err := ds.Begin(ctx, quadstore.Read)
	if err != nil {
		return err
	}
	defer ds.End(rctx)

	find := ds.Find
	if opts.Named {
		find = ds.FindNG
	}
	seq, err := find(rctx, g, s, p, o)
	if err != nil {
		return err
	}
	found := slices.SortedFunc(seq, func(a, b quad.Quad) int {
		return strings.Compare(a.String(), b.String())
	})
	if found == nil {
		found = []quad.Quad{}
	}

	formatter := &OutputFormatter{Format: rootOpts.Format, Writer: out}
	text := make([]string, len(found))
	for i, q := range found {
		text[i] = q.String()
	}
	return formatter.Success(found, lines(text))
}
