package cli

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mannyrivera2010/go-quadmem/internal/table"
)

func TestExplain_Golden(t *testing.T) {
	out, err := execute(t, "explain")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "explain", []byte(out))
}

func TestExplain_OnlyEmptyPatternScans(t *testing.T) {
	sel := Explain(table.NewQuadTable(nil), table.NewTripleTable(nil))
	require.Len(t, sel, 16+8)

	for _, s := range sel {
		assert.Equal(t, s.Pattern != "-", s.Direct, "%s %s", s.Table, s.Pattern)
	}
}

func TestExplain_JSON(t *testing.T) {
	out, err := execute(t, "explain", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data []Selection `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Contains(t, resp.Data, Selection{Table: "quads", Pattern: "PO", Form: "OPSG", Direct: true})
	assert.Contains(t, resp.Data, Selection{Table: "triples", Pattern: "-", Form: "SPO", Direct: false})
}
