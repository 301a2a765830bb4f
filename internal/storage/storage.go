// Package storage defines the mutable quad stores that a journaled dataset
// can make transactional.
//
// A Backend applies every call immediately and has no rollback of its own.
// Implementations live in the subpackages memstore, badgerstore and
// sqlstore.
package storage

import (
	"context"
	"errors"

	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("storage: backend closed")

// Backend is a non-transactional quad store. Quads passed to Add, Delete and
// Contains are concrete. Implementations must be safe for concurrent use.
type Backend interface {
	// Add stores q and reports whether it was not already present.
	Add(ctx context.Context, q quad.Quad) (bool, error)
	// Delete removes q and reports whether it had been present.
	Delete(ctx context.Context, q quad.Quad) (bool, error)
	Contains(ctx context.Context, q quad.Quad) (bool, error)
	// Find returns every stored quad matching pattern. Non-concrete pattern
	// slots match anything.
	Find(ctx context.Context, pattern quad.Quad) ([]quad.Quad, error)
	// Graphs returns the distinct graph names in use.
	Graphs(ctx context.Context) ([]quad.Node, error)
	Len(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

// Mutable adapts b to quad.Mutable so journal entries can be replayed
// against it.
func Mutable(b Backend) quad.Mutable { return mutable{b} }

type mutable struct{ b Backend }

func (m mutable) Add(ctx context.Context, q quad.Quad) error {
	_, err := m.b.Add(ctx, q)
	return err
}

func (m mutable) Delete(ctx context.Context, q quad.Quad) error {
	_, err := m.b.Delete(ctx, q)
	return err
}
