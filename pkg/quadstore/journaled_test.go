package quadstore

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/mannyrivera2010/go-quadmem/internal/storage/memstore"
	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

func newJournaled(t *testing.T) *JournaledDataset {
	t.Helper()
	d := NewJournaledDataset(memstore.New(), OpenOptions{})
	t.Cleanup(func() { d.Close() })
	return d
}

func TestJournaled_Compactness(t *testing.T) {
	d := newJournaled(t)
	ctx := context.Background()
	q := quad.New(g1, s1, p1, o1)

	wctx, err := d.Begin(ctx, Write)
	require.NoError(t, err)
	defer d.End(wctx)

	require.NoError(t, d.Add(wctx, q))
	require.NoError(t, d.Add(wctx, q))
	assert.Equal(t, []quad.Change{quad.Add(q)}, d.Journal(wctx), "a repeated add is journaled once")

	require.NoError(t, d.Delete(wctx, quad.New(g2, s1, p1, o1)))
	assert.Len(t, d.Journal(wctx), 1, "deleting an absent quad is not journaled")

	require.NoError(t, d.Delete(wctx, q))
	require.NoError(t, d.Delete(wctx, q))
	assert.Equal(t, []quad.Change{quad.Add(q), quad.Delete(q)}, d.Journal(wctx))

	require.NoError(t, d.Commit(wctx))
	assert.Nil(t, d.Journal(wctx))
}

func TestJournaled_CommitClearsJournal(t *testing.T) {
	d := newJournaled(t)
	ctx := context.Background()

	wctx, err := d.Begin(ctx, Write)
	require.NoError(t, err)
	require.NoError(t, d.Add(wctx, quad.New(g1, s1, p1, o1)))
	require.NoError(t, d.Commit(wctx))

	wctx, err = d.Begin(ctx, Write)
	require.NoError(t, err)
	assert.Empty(t, d.Journal(wctx))
	require.NoError(t, d.Abort(wctx))

	n, err := d.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "aborting a later transaction does not undo an earlier commit")
}

func TestJournaled_AbortRestoresExactState(t *testing.T) {
	d := newJournaled(t)
	ctx := context.Background()
	before := []quad.Quad{
		quad.New(g1, s1, p1, o1),
		quad.New(g2, s1, p1, o2),
		quad.New(quad.DefaultGraph, s1, p1, o1),
	}
	for _, q := range before {
		require.NoError(t, d.Add(ctx, q))
	}

	wctx, err := d.Begin(ctx, Write)
	require.NoError(t, err)
	require.NoError(t, d.RemoveGraph(wctx, g1))
	require.NoError(t, d.Add(wctx, quad.New(g1, s1, p1, o2)))
	require.NoError(t, d.AddGraph(wctx, iri("g3"), NewMemGraph(quad.NewTriple(s1, p1, o1))))
	require.NoError(t, d.Clear(wctx))
	require.NoError(t, d.Abort(wctx))

	assert.ElementsMatch(t, before, all(t, ctx, d))
}

// flakyBackend fails Add for one quad once armed, so undoing its deletion
// fails.
type flakyBackend struct {
	*memstore.Store
	armed  bool
	target quad.Quad
}

func (f *flakyBackend) Add(ctx context.Context, q quad.Quad) (bool, error) {
	if f.armed && q == f.target {
		return false, errors.New("disk on fire")
	}
	return f.Store.Add(ctx, q)
}

func TestJournaled_RollbackFailureKeepsRemaining(t *testing.T) {
	ctx := context.Background()
	victim := quad.New(g1, s1, p1, o1)
	backend := &flakyBackend{Store: memstore.New(), target: victim}
	d := NewJournaledDataset(backend, OpenOptions{})
	defer d.Close()
	require.NoError(t, d.Add(ctx, victim))

	wctx, err := d.Begin(ctx, Write)
	require.NoError(t, err)
	require.NoError(t, d.Delete(wctx, victim))
	require.NoError(t, d.Add(wctx, quad.New(g2, s1, p1, o1)))
	backend.armed = true

	err = d.Abort(wctx)
	var rerr *RollbackError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, []quad.Change{quad.Delete(victim)}, rerr.Remaining)
	assert.EqualError(t, errors.Unwrap(err), "disk on fire")

	// The g2 addition was undone before the failure.
	assert.Empty(t, collect(t, ctx, d, g2, quad.Any, quad.Any, quad.Any))

	// The lock is released and the journal is fresh.
	backend.armed = false
	wctx, err = d.Begin(ctx, Write)
	require.NoError(t, err)
	assert.Empty(t, d.Journal(wctx))
	require.NoError(t, d.Commit(wctx))
}

func TestJournaled_WriterExcludesReaders(t *testing.T) {
	d := newJournaled(t)
	ctx := context.Background()

	wctx, err := d.Begin(ctx, Write)
	require.NoError(t, err)

	readerDone := make(chan int)
	var g errgroup.Group
	g.Go(func() error {
		n, err := d.Len(ctx)
		readerDone <- n
		return err
	})

	select {
	case <-readerDone:
		t.Fatal("reader ran during an open write transaction")
	case <-time.After(50 * time.Millisecond):
	}
	require.NoError(t, d.Add(wctx, quad.New(g1, s1, p1, o1)))
	require.NoError(t, d.Commit(wctx))
	assert.Equal(t, 1, <-readerDone)
	require.NoError(t, g.Wait())
}

func TestJournaled_LogChanges(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	d := NewJournaledDataset(memstore.New(), OpenOptions{LogChanges: true, Logger: logger})
	defer d.Close()

	require.NoError(t, d.Add(context.Background(), quad.New(g1, s1, p1, o1)))
	assert.Contains(t, buf.String(), "op=ADD")
	assert.Contains(t, buf.String(), "component=journal")
}
