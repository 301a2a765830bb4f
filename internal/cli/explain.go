package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mannyrivera2010/go-quadmem/internal/index"
	"github.com/mannyrivera2010/go-quadmem/internal/table"
	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

// Selection is the index form a table uses for one bound-slot pattern.
type Selection struct {
	Table   string `json:"table"`
	Pattern string `json:"pattern"`
	Form    string `json:"form"`
	// Direct is false when the pattern needs a scan of the default form.
	Direct bool `json:"direct"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explain",
		Short: "Show the index form chosen for every bound-slot pattern",
		Long: `Print, for the quad table and the default-graph triple table, which index
form answers each combination of bound slots, and whether it can descend
directly or must scan.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := setup(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			sel := Explain(table.NewQuadTable(logger), table.NewTripleTable(logger))
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(sel, func(w io.Writer) error { return writeSelections(w, sel) })
		},
	}
}

// Explain lists the form selection of every bound-slot pattern over each
// table's slots. Patterns are ordered by their slot bit mask.
func Explain(tables ...*table.Table) []Selection {
	bound := quad.IRI("urn:x-quadmem:bound")
	var out []Selection
	for _, t := range tables {
		tx := t.Begin()
		var own index.SlotSet
		for _, s := range t.Forms()[0].Slots() {
			own = own.With(s)
		}
		for mask := index.SlotSet(0); mask <= own; mask++ {
			if mask&^own != 0 {
				continue
			}
			var pattern index.Tuple
			for s := index.Graph; s <= index.Object; s++ {
				if mask.Has(s) {
					pattern[s] = bound
				}
			}
			form := tx.Choose(pattern)
			out = append(out, Selection{
				Table:   t.Name(),
				Pattern: mask.String(),
				Form:    form.Name(),
				Direct:  form.AvoidsTraversal(mask),
			})
		}
		tx.End()
	}
	return out
}

func writeSelections(w io.Writer, sel []Selection) error {
	if _, err := fmt.Fprintf(w, "%-7s  %-7s  %-4s  %s\n", "TABLE", "PATTERN", "FORM", "ACCESS"); err != nil {
		return err
	}
	for _, s := range sel {
		access := "scan"
		if s.Direct {
			access = "direct"
		}
		if _, err := fmt.Fprintf(w, "%-7s  %-7s  %-4s  %s\n", s.Table, s.Pattern, s.Form, access); err != nil {
			return err
		}
	}
	return nil
}
