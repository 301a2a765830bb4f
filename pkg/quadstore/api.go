package quadstore

import (
	"context"
	"fmt"
	"iter"

	"github.com/mannyrivera2010/go-quadmem/internal/storage"
	"github.com/mannyrivera2010/go-quadmem/internal/storage/badgerstore"
	"github.com/mannyrivera2010/go-quadmem/internal/storage/memstore"
	"github.com/mannyrivera2010/go-quadmem/internal/storage/sqlstore"
	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

// Transactional is the transaction lifecycle shared by every dataset.
//
// Transaction state travels in the context: Begin returns a context bound to
// the new transaction, and every other call looks the transaction up in the
// context it is given. A transaction context must only be used by one
// goroutine at a time.
type Transactional interface {
	// Begin starts a transaction. A WRITE transaction waits until no other
	// writer is active. Begin fails if ctx already carries an open
	// transaction of this dataset. Nesting is only detected through ctx: a
	// goroutine that begins WRITE again with a context lacking its own
	// transaction waits for itself forever.
	Begin(ctx context.Context, mode Mode) (context.Context, error)

	// Commit publishes a WRITE transaction's changes and ends it.
	Commit(ctx context.Context) error

	// Abort discards the transaction's changes and ends it.
	Abort(ctx context.Context) error

	// End finishes the transaction in ctx, aborting it if it is an
	// uncommitted WRITE. It does nothing when no transaction is open.
	End(ctx context.Context) error

	IsInTransaction(ctx context.Context) bool

	// TransactionMode returns the mode of the open transaction, if any.
	TransactionMode(ctx context.Context) (Mode, bool)
}

// Dataset is a set of quads: one default graph and any number of named
// graphs. All implementations of this interface must be safe for concurrent
// use from multiple goroutines, each with its own transaction context.
//
// Mutators called outside a transaction run in their own WRITE transaction
// and commit before returning. Inside a READ transaction they fail. A
// goroutine holding a WRITE transaction must pass the context returned by
// Begin: a mutator given any other context autocommits, and so waits for the
// caller's own transaction to end.
//
// Pattern arguments use quad.Any (or a variable) as a wildcard. A graph of
// quad.DefaultGraph addresses the default graph and quad.UnionGraph the
// union of the named graphs.
type Dataset interface {
	Transactional

	// Find returns the quads matching the pattern. A wildcard graph matches
	// the default graph and every named graph. Union-graph matches are
	// reported once per distinct triple with the graph set to
	// quad.UnionGraph.
	//
	// The sequence is single-use. Inside a transaction it reflects the
	// transaction's view; outside one it reflects the state at the time of
	// the call.
	Find(ctx context.Context, g, s, p, o quad.Node) (iter.Seq[quad.Quad], error)

	// FindNG is like Find but never returns default-graph quads.
	FindNG(ctx context.Context, g, s, p, o quad.Node) (iter.Seq[quad.Quad], error)

	Contains(ctx context.Context, g, s, p, o quad.Node) (bool, error)

	// Add stores q. A wildcard graph means the default graph. Adding a quad
	// that is already present is a no-op. Inside a WRITE transaction ctx must
	// be the transaction's context; see the Dataset documentation.
	Add(ctx context.Context, q quad.Quad) error

	// Delete removes q. Deleting an absent quad is a no-op.
	Delete(ctx context.Context, q quad.Quad) error

	// DeleteAny removes every quad matching the pattern.
	DeleteAny(ctx context.Context, g, s, p, o quad.Node) error

	// AddGraph copies every triple of graph into the dataset under name.
	// Later changes to graph are not seen by the dataset.
	AddGraph(ctx context.Context, name quad.Node, graph Graph) error

	// RemoveGraph deletes every quad in the named graph.
	RemoveGraph(ctx context.Context, name quad.Node) error

	// SetDefaultGraph replaces the default graph's content with a copy of
	// graph.
	SetDefaultGraph(ctx context.Context, graph Graph) error

	// Clear removes every quad.
	Clear(ctx context.Context) error

	// ListGraphNodes returns the names of the non-empty named graphs.
	ListGraphNodes(ctx context.Context) ([]quad.Node, error)

	// GetGraph returns a live view of one graph of the dataset.
	GetGraph(name quad.Node) *GraphView

	DefaultGraph() *GraphView

	UnionGraph() *GraphView

	// Len returns the number of quads, default graph included.
	Len(ctx context.Context) (int, error)

	IsEmpty(ctx context.Context) (bool, error)

	// Close releases the dataset's resources. It must be called when the
	// application is done with the Dataset.
	Close() error
}

// Open is the main entry point to the quadstore library. It returns the
// dataset described by opts.
func Open(ctx context.Context, opts OpenOptions) (Dataset, error) {
	logger := opts.logger()
	var backend storage.Backend
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemDataset(opts), nil
	case BackendJournal:
		backend = memstore.New()
	case BackendBadger:
		b, err := badgerstore.Open(badgerstore.Config{
			Path:       opts.Path,
			InMemory:   opts.Path == "",
			SyncWrites: opts.SyncWrites,
			Namespace:  opts.Namespace,
			Logger:     logger.With("component", "badger"),
		})
		if err != nil {
			return nil, err
		}
		backend = b
	case BackendSQLite:
		path := opts.Path
		if path == "" {
			path = ":memory:"
		}
		s, err := sqlstore.Open(path, opts.Namespace)
		if err != nil {
			return nil, err
		}
		backend = s
	default:
		return nil, fmt.Errorf("quadstore: unknown backend %q", opts.Backend)
	}
	logger.DebugContext(ctx, "opened dataset", "backend", string(opts.Backend), "path", opts.Path)
	return NewJournaledDataset(backend, opts), nil
}
