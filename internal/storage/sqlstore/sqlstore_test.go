package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mannyrivera2010/go-quadmem/internal/storage"
	"github.com/mannyrivera2010/go-quadmem/internal/storage/storagetest"
	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		s, err := Open(":memory:", "test")
		require.NoError(t, err)
		return s
	})
}

func TestNamespacesShareOneFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "quads.db")

	a, err := Open(path, "a")
	require.NoError(t, err)
	_, err = a.Add(ctx, storagetest.Q1)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	b, err := Open(path, "b")
	require.NoError(t, err)
	defer b.Close()
	n, err := b.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	b.ns = "a"
	got, err := b.Find(ctx, quad.Quad{})
	require.NoError(t, err)
	assert.Equal(t, []quad.Quad{storagetest.Q1}, got)
}

func TestClosedStoreErrors(t *testing.T) {
	s, err := Open(":memory:", "")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_, err = s.Add(context.Background(), storagetest.Q1)
	assert.Error(t, err)
}
