// Package storagetest holds a conformance suite shared by every Backend.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mannyrivera2010/go-quadmem/internal/storage"
	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

func iri(s string) quad.Node { return quad.IRI("http://example.org/" + s) }

// Fixture quads used by Run.
var (
	Q1 = quad.New(iri("g1"), iri("s1"), iri("p1"), quad.Literal("one"))
	Q2 = quad.New(iri("g1"), iri("s2"), iri("p1"), quad.LangLiteral("deux", "fr"))
	Q3 = quad.New(iri("g2"), iri("s1"), iri("p2"), quad.TypedLiteral("3", "http://www.w3.org/2001/XMLSchema#integer"))
	Q4 = quad.New(quad.DefaultGraph, quad.Blank("b0"), iri("p1"), iri("s1"))
)

// Run exercises a Backend. open must return an empty backend; Run closes it.
func Run(t *testing.T, open func(t *testing.T) storage.Backend) {
	t.Run("AddDeleteContains", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)
		defer b.Close()

		added, err := b.Add(ctx, Q1)
		require.NoError(t, err)
		assert.True(t, added)
		added, err = b.Add(ctx, Q1)
		require.NoError(t, err)
		assert.False(t, added, "second add is a no-op")

		ok, err := b.Contains(ctx, Q1)
		require.NoError(t, err)
		assert.True(t, ok)

		n, err := b.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		removed, err := b.Delete(ctx, Q1)
		require.NoError(t, err)
		assert.True(t, removed)
		removed, err = b.Delete(ctx, Q1)
		require.NoError(t, err)
		assert.False(t, removed, "deleting an absent quad is a no-op")

		ok, err = b.Contains(ctx, Q1)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Find", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)
		defer b.Close()
		for _, q := range []quad.Quad{Q1, Q2, Q3, Q4} {
			_, err := b.Add(ctx, q)
			require.NoError(t, err)
		}

		tests := []struct {
			name    string
			pattern quad.Quad
			want    []quad.Quad
		}{
			{"all", quad.Quad{}, []quad.Quad{Q1, Q2, Q3, Q4}},
			{"graph", quad.Quad{Graph: iri("g1")}, []quad.Quad{Q1, Q2}},
			{"subject", quad.Quad{Subject: iri("s1")}, []quad.Quad{Q1, Q3}},
			{"predicate and graph", quad.Quad{Graph: iri("g1"), Predicate: iri("p1")}, []quad.Quad{Q1, Q2}},
			{"object", quad.Quad{Object: iri("s1")}, []quad.Quad{Q4}},
			{"exact", Q3, []quad.Quad{Q3}},
			{"default graph", quad.Quad{Graph: quad.DefaultGraph}, []quad.Quad{Q4}},
			{"missing", quad.Quad{Graph: iri("nope")}, nil},
			{"variables", quad.Quad{Subject: quad.Variable("s"), Object: quad.Literal("one")}, []quad.Quad{Q1}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := b.Find(ctx, tt.pattern)
				require.NoError(t, err)
				assert.ElementsMatch(t, tt.want, got)
			})
		}
	})

	t.Run("GraphsAndClear", func(t *testing.T) {
		ctx := context.Background()
		b := open(t)
		defer b.Close()
		for _, q := range []quad.Quad{Q1, Q2, Q3, Q4} {
			_, err := b.Add(ctx, q)
			require.NoError(t, err)
		}

		graphs, err := b.Graphs(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []quad.Node{iri("g1"), iri("g2"), quad.DefaultGraph}, graphs)

		require.NoError(t, b.Clear(ctx))
		n, err := b.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		graphs, err = b.Graphs(ctx)
		require.NoError(t, err)
		assert.Empty(t, graphs)
	})
}
