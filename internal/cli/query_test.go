package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

const sample = `# two named graphs and one default-graph statement
{"graph":"<http://ex/g1>","subject":"<http://ex/s>","predicate":"<http://ex/p>","object":"<http://ex/o1>"}
{"graph":"<http://ex/g2>","subject":"<http://ex/s>","predicate":"<http://ex/p>","object":"<http://ex/o1>"}

{"subject":"<http://ex/s>","predicate":"<http://ex/p>","object":"<http://ex/o2>"}
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func outputLines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

func TestQuery(t *testing.T) {
	data := writeFile(t, "sample.jsonl", sample)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "all graphs",
			args: []string{"--subject", " <http://ex/s> "},
			want: []string{
				"<http://ex/s> <http://ex/p> <http://ex/o1> <http://ex/g1> .",
				"<http://ex/s> <http://ex/p> <http://ex/o1> <http://ex/g2> .",
				"<http://ex/s> <http://ex/p> <http://ex/o2> <urn:x-arq:DefaultGraph> .",
			},
		},
		{
			name: "named only",
			args: []string{"--named"},
			want: []string{
				"<http://ex/s> <http://ex/p> <http://ex/o1> <http://ex/g1> .",
				"<http://ex/s> <http://ex/p> <http://ex/o1> <http://ex/g2> .",
			},
		},
		{
			name: "one graph",
			args: []string{"--graph", "<http://ex/g2>", "--object", "*"},
			want: []string{"<http://ex/s> <http://ex/p> <http://ex/o1> <http://ex/g2> ."},
		},
		{
			name: "union graph",
			args: []string{"--graph", "<urn:x-arq:UnionGraph>"},
			want: []string{"<http://ex/s> <http://ex/p> <http://ex/o1> <urn:x-arq:UnionGraph> ."},
		},
		{
			name: "default graph",
			args: []string{"-g", "<urn:x-arq:DefaultGraph>"},
			want: []string{"<http://ex/s> <http://ex/p> <http://ex/o2> <urn:x-arq:DefaultGraph> ."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"query", "--data", data}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, outputLines(out))
		})
	}
}

func TestQuery_JSON(t *testing.T) {
	data := writeFile(t, "sample.jsonl", sample)

	out, err := execute(t, "query", "--format", "json", "--data", data, "--object", "<http://ex/o2>")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   []quad.Quad `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []quad.Quad{quad.New(
		quad.DefaultGraph, quad.IRI("http://ex/s"), quad.IRI("http://ex/p"), quad.IRI("http://ex/o2"),
	)}, resp.Data)
}

func TestQuery_MultipleFilesAndBackends(t *testing.T) {
	first := writeFile(t, "a.jsonl", `{"graph":"<http://ex/g1>","subject":"_:b0","predicate":"<http://ex/name>","object":"\"Ada\"@en"}`)
	second := writeFile(t, "b.jsonl", `{"graph":"<http://ex/g1>","subject":"_:b0","predicate":"<http://ex/age>","object":"\"36\"^^<http://www.w3.org/2001/XMLSchema#integer>"}`)

	for _, backend := range []string{"memory", "journal", "sqlite", "badger"} {
		t.Run(backend, func(t *testing.T) {
			cfg := writeFile(t, "quadmem.yaml", "backend: "+backend+"\n")
			out, err := execute(t, "query", "--config", cfg, "--data", first, "--data", second, "-s", "_:b0")
			require.NoError(t, err)
			assert.Equal(t, []string{
				`_:b0 <http://ex/age> "36"^^<http://www.w3.org/2001/XMLSchema#integer> <http://ex/g1> .`,
				`_:b0 <http://ex/name> "Ada"@en <http://ex/g1> .`,
			}, outputLines(out))
		})
	}
}

func TestQuery_Errors(t *testing.T) {
	bad := writeFile(t, "bad.jsonl", "{\"subject\":\"<http://ex/s>\"\nnot json\n")
	_, err := execute(t, "query", "--data", bad)
	assert.ErrorContains(t, err, "bad.jsonl:1")

	_, err = execute(t, "query")
	assert.ErrorContains(t, err, `"data" not set`)

	good := writeFile(t, "good.jsonl", sample)
	_, err = execute(t, "query", "--data", good, "--subject", "<unterminated")
	assert.ErrorContains(t, err, "--subject")

	// A variable subject cannot be stored, so the load is rejected as a whole.
	vars := writeFile(t, "vars.jsonl", `{"subject":"?x","predicate":"<http://ex/p>","object":"<http://ex/o>"}`)
	_, err = execute(t, "query", "--data", vars)
	assert.ErrorContains(t, err, "invalid quad")
}

func TestGraphs(t *testing.T) {
	data := writeFile(t, "sample.jsonl", sample)

	out, err := execute(t, "graphs", "--data", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"<http://ex/g1>", "<http://ex/g2>"}, outputLines(out))
}
