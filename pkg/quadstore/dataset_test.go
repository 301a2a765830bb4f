package quadstore

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

func iri(s string) quad.Node { return quad.IRI("http://example.org/" + s) }

var (
	g1 = iri("g1")
	g2 = iri("g2")
	s1 = iri("s1")
	p1 = iri("p1")
	o1 = quad.Literal("o1")
	o2 = quad.Literal("o2")
)

// datasets lists every dataset flavour the shared contract runs against.
func datasets() map[string]func(t *testing.T) Dataset {
	open := func(opts OpenOptions) func(t *testing.T) Dataset {
		return func(t *testing.T) Dataset {
			d, err := Open(context.Background(), opts)
			require.NoError(t, err)
			t.Cleanup(func() { d.Close() })
			return d
		}
	}
	return map[string]func(t *testing.T) Dataset{
		"memory":         open(DefaultOpenOptions()),
		"memory-unified": open(OpenOptions{Backend: BackendMemory}),
		"journal":        open(OpenOptions{Backend: BackendJournal}),
		"badger":         open(OpenOptions{Backend: BackendBadger, Namespace: "test"}),
		"sqlite":         open(OpenOptions{Backend: BackendSQLite, Namespace: "test"}),
	}
}

func forEachDataset(t *testing.T, fn func(t *testing.T, d Dataset)) {
	t.Helper()
	for name, open := range datasets() {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

func collect(t *testing.T, ctx context.Context, d Dataset, g, s, p, o quad.Node) []quad.Quad {
	t.Helper()
	seq, err := d.Find(ctx, g, s, p, o)
	require.NoError(t, err)
	return slices.Collect(seq)
}

func all(t *testing.T, ctx context.Context, d Dataset) []quad.Quad {
	t.Helper()
	return collect(t, ctx, d, quad.Any, quad.Any, quad.Any, quad.Any)
}

func TestDataset_RoundTrip(t *testing.T) {
	forEachDataset(t, func(t *testing.T, d Dataset) {
		ctx := context.Background()
		q := quad.New(g1, s1, p1, o1)

		wctx, err := d.Begin(ctx, Write)
		require.NoError(t, err)
		require.NoError(t, d.Add(wctx, q))
		assert.Equal(t, []quad.Quad{q}, all(t, wctx, d), "visible inside its own transaction")
		require.NoError(t, d.Commit(wctx))
		require.NoError(t, d.End(wctx))

		assert.Equal(t, []quad.Quad{q}, all(t, ctx, d))

		wctx, err = d.Begin(ctx, Write)
		require.NoError(t, err)
		require.NoError(t, d.Delete(wctx, q))
		require.NoError(t, d.Commit(wctx))
		assert.Empty(t, all(t, ctx, d))
	})
}

func TestDataset_Autocommit(t *testing.T) {
	forEachDataset(t, func(t *testing.T, d Dataset) {
		ctx := context.Background()
		q := quad.New(g1, s1, p1, o1)
		require.NoError(t, d.Add(ctx, q))
		assert.False(t, d.IsInTransaction(ctx))

		ok, err := d.Contains(ctx, g1, s1, p1, o1)
		require.NoError(t, err)
		assert.True(t, ok)

		n, err := d.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestDataset_TransactionDiscipline(t *testing.T) {
	forEachDataset(t, func(t *testing.T, d Dataset) {
		ctx := context.Background()

		assert.True(t, IsNoTransaction(d.Commit(ctx)))
		assert.True(t, IsNoTransaction(d.Abort(ctx)))
		assert.NoError(t, d.End(ctx))

		rctx, err := d.Begin(ctx, Read)
		require.NoError(t, err)
		assert.True(t, d.IsInTransaction(rctx))
		mode, ok := d.TransactionMode(rctx)
		assert.True(t, ok)
		assert.Equal(t, Read, mode)

		_, err = d.Begin(rctx, Write)
		assert.True(t, IsNestedTransaction(err))

		err = d.Add(rctx, quad.New(g1, s1, p1, o1))
		assert.True(t, IsReadOnlyTransaction(err), "got %v", err)
		assert.True(t, IsReadOnlyTransaction(d.Clear(rctx)))
		assert.True(t, IsNotWriteTransaction(d.Commit(rctx)))

		require.NoError(t, d.End(rctx))
		assert.False(t, d.IsInTransaction(rctx))
		_, ok = d.TransactionMode(rctx)
		assert.False(t, ok)

		// A finished transaction context can start a new one.
		wctx, err := d.Begin(rctx, Write)
		require.NoError(t, err)
		require.NoError(t, d.Abort(wctx))
	})
}

func TestDataset_AbortIsolation(t *testing.T) {
	forEachDataset(t, func(t *testing.T, d Dataset) {
		ctx := context.Background()
		keep := quad.New(g1, s1, p1, o1)
		require.NoError(t, d.Add(ctx, keep))

		wctx, err := d.Begin(ctx, Write)
		require.NoError(t, err)
		require.NoError(t, d.Add(wctx, quad.New(g2, s1, p1, o2)))
		require.NoError(t, d.Delete(wctx, keep))
		require.NoError(t, d.Abort(wctx))
		require.NoError(t, d.End(wctx))

		assert.Equal(t, []quad.Quad{keep}, all(t, ctx, d))
	})
}

func TestDataset_EndAbortsUncommittedWrite(t *testing.T) {
	forEachDataset(t, func(t *testing.T, d Dataset) {
		ctx := context.Background()
		wctx, err := d.Begin(ctx, Write)
		require.NoError(t, err)
		require.NoError(t, d.Add(wctx, quad.New(g1, s1, p1, o1)))
		require.NoError(t, d.End(wctx))

		empty, err := d.IsEmpty(ctx)
		require.NoError(t, err)
		assert.True(t, empty)
	})
}

func TestDataset_DefaultGraph(t *testing.T) {
	forEachDataset(t, func(t *testing.T, d Dataset) {
		ctx := context.Background()
		require.NoError(t, d.Add(ctx, quad.New(quad.Any, s1, p1, o1)))
		require.NoError(t, d.Add(ctx, quad.New(g1, s1, p1, o2)))

		assert.Equal(t, []quad.Quad{quad.New(quad.DefaultGraph, s1, p1, o1)},
			collect(t, ctx, d, quad.DefaultGraph, quad.Any, quad.Any, quad.Any))
		assert.ElementsMatch(t,
			[]quad.Quad{quad.New(quad.DefaultGraph, s1, p1, o1), quad.New(g1, s1, p1, o2)},
			all(t, ctx, d))

		named, err := d.FindNG(ctx, quad.Any, quad.Any, quad.Any, quad.Any)
		require.NoError(t, err)
		assert.Equal(t, []quad.Quad{quad.New(g1, s1, p1, o2)}, slices.Collect(named))

		graphs, err := d.ListGraphNodes(ctx)
		require.NoError(t, err)
		assert.Equal(t, []quad.Node{g1}, graphs)

		n, err := d.DefaultGraph().Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestDataset_CopyOnAddGraph(t *testing.T) {
	forEachDataset(t, func(t *testing.T, d Dataset) {
		ctx := context.Background()
		t1 := quad.NewTriple(s1, p1, o1)
		t2 := quad.NewTriple(s1, p1, o2)
		t3 := quad.NewTriple(iri("s3"), p1, o1)
		src := NewMemGraph(t1, t2)

		require.NoError(t, d.AddGraph(ctx, g1, src))
		src.Add(t3)

		got := collect(t, ctx, d, g1, t3.Subject, t3.Predicate, t3.Object)
		assert.Empty(t, got, "later changes to the source are not seen")
		assert.ElementsMatch(t, []quad.Quad{t1.InGraph(g1), t2.InGraph(g1)},
			collect(t, ctx, d, g1, quad.Any, quad.Any, quad.Any))
	})
}

func TestDataset_UnionGraphDeduplicates(t *testing.T) {
	forEachDataset(t, func(t *testing.T, d Dataset) {
		ctx := context.Background()
		require.NoError(t, d.Add(ctx, quad.New(g1, s1, p1, o1)))
		require.NoError(t, d.Add(ctx, quad.New(g2, s1, p1, o1)))
		require.NoError(t, d.Add(ctx, quad.New(quad.DefaultGraph, s1, p1, o2)))

		got := collect(t, ctx, d, quad.UnionGraph, s1, p1, o1)
		assert.Equal(t, []quad.Quad{quad.New(quad.UnionGraph, s1, p1, o1)}, got)

		got = collect(t, ctx, d, quad.UnionGraph, quad.Any, quad.Any, o2)
		assert.Empty(t, got, "default-graph triples are not in the union graph")

		seq, err := d.UnionGraph().Find(ctx, quad.Any, quad.Any, quad.Any)
		require.NoError(t, err)
		assert.Equal(t, []quad.Triple{quad.NewTriple(s1, p1, o1)}, slices.Collect(seq))
	})
}

func TestDataset_RemoveGraphAndDeleteAny(t *testing.T) {
	forEachDataset(t, func(t *testing.T, d Dataset) {
		ctx := context.Background()
		for _, q := range []quad.Quad{
			quad.New(g1, s1, p1, o1),
			quad.New(g1, s1, p1, o2),
			quad.New(g2, s1, p1, o1),
			quad.New(quad.DefaultGraph, s1, p1, o1),
		} {
			require.NoError(t, d.Add(ctx, q))
		}

		require.NoError(t, d.RemoveGraph(ctx, g1))
		graphs, err := d.ListGraphNodes(ctx)
		require.NoError(t, err)
		assert.Equal(t, []quad.Node{g2}, graphs)

		require.NoError(t, d.DeleteAny(ctx, quad.Any, quad.Any, quad.Any, o1))
		empty, err := d.IsEmpty(ctx)
		require.NoError(t, err)
		assert.True(t, empty)
	})
}

func TestDataset_EdgeTermsSurviveStorage(t *testing.T) {
	forEachDataset(t, func(t *testing.T, d Dataset) {
		ctx := context.Background()
		odd := []quad.Quad{
			quad.New(g2, quad.Blank(""), p1, o1),
			quad.New(g2, quad.Blank("x "), p1, quad.Literal(" padded ")),
			quad.New(g2, s1, p1, quad.LangLiteral("", "en")),
			quad.New(quad.IRI(""), s1, p1, quad.Literal("")),
		}
		for _, q := range odd {
			require.NoError(t, d.Add(ctx, q))
		}
		assert.ElementsMatch(t, odd, all(t, ctx, d))

		ok, err := d.Contains(ctx, g2, quad.Blank("x "), p1, quad.Any)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = d.Contains(ctx, g2, quad.Blank("x"), p1, quad.Any)
		require.NoError(t, err)
		assert.False(t, ok, "labels are not trimmed")

		require.NoError(t, d.RemoveGraph(ctx, g2))
		assert.Equal(t, odd[3:], all(t, ctx, d))

		require.NoError(t, d.Delete(ctx, odd[3]))
		empty, err := d.IsEmpty(ctx)
		require.NoError(t, err)
		assert.True(t, empty)
	})
}

func TestDataset_SetDefaultGraphAndClear(t *testing.T) {
	forEachDataset(t, func(t *testing.T, d Dataset) {
		ctx := context.Background()
		require.NoError(t, d.Add(ctx, quad.New(quad.DefaultGraph, s1, p1, o1)))
		require.NoError(t, d.Add(ctx, quad.New(g1, s1, p1, o1)))

		replacement := NewMemGraph(quad.NewTriple(s1, p1, o2))
		require.NoError(t, d.SetDefaultGraph(ctx, replacement))

		seq, err := d.DefaultGraph().Find(ctx, quad.Any, quad.Any, quad.Any)
		require.NoError(t, err)
		assert.Equal(t, []quad.Triple{quad.NewTriple(s1, p1, o2)}, slices.Collect(seq))

		require.NoError(t, d.Clear(ctx))
		n, err := d.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestDataset_GraphView(t *testing.T) {
	forEachDataset(t, func(t *testing.T, d Dataset) {
		ctx := context.Background()
		view := d.GetGraph(g1)
		assert.Equal(t, g1, view.Name())

		tr := quad.NewTriple(s1, p1, o1)
		require.NoError(t, view.Add(ctx, tr))
		ok, err := view.Contains(ctx, tr)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []quad.Quad{tr.InGraph(g1)}, all(t, ctx, d))

		require.NoError(t, view.Delete(ctx, tr))
		n, err := view.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		assert.ErrorIs(t, d.UnionGraph().Add(ctx, tr), ErrInvalidQuad)
	})
}

func TestDataset_RejectsInvalidQuads(t *testing.T) {
	forEachDataset(t, func(t *testing.T, d Dataset) {
		ctx := context.Background()
		assert.ErrorIs(t, d.Add(ctx, quad.New(g1, quad.Any, p1, o1)), ErrInvalidQuad)
		assert.ErrorIs(t, d.Add(ctx, quad.New(g1, s1, quad.Variable("p"), o1)), ErrInvalidQuad)
		assert.ErrorIs(t, d.Add(ctx, quad.New(quad.Variable("g"), s1, p1, o1)), ErrInvalidQuad)
		assert.ErrorIs(t, d.Delete(ctx, quad.New(quad.UnionGraph, s1, p1, o1)), ErrInvalidQuad)
		assert.ErrorIs(t, d.RemoveGraph(ctx, quad.UnionGraph), ErrInvalidGraph)
	})
}

func TestDataset_DeleteAbsentIsNoop(t *testing.T) {
	forEachDataset(t, func(t *testing.T, d Dataset) {
		ctx := context.Background()
		require.NoError(t, d.Delete(ctx, quad.New(g1, s1, p1, o1)))
		require.NoError(t, d.RemoveGraph(ctx, g2))
		assert.Empty(t, collect(t, ctx, d, iri("missing"), quad.Any, quad.Any, quad.Any))
	})
}

func TestDataset_Closed(t *testing.T) {
	forEachDataset(t, func(t *testing.T, d Dataset) {
		require.NoError(t, d.Close())
		_, err := d.Begin(context.Background(), Read)
		assert.ErrorIs(t, err, ErrClosed)
	})
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), OpenOptions{Backend: "tape"})
	assert.Error(t, err)
}
