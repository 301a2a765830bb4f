package quadstore

import (
	"context"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mannyrivera2010/go-quadmem/internal/index"
	"github.com/mannyrivera2010/go-quadmem/internal/metrics"
	"github.com/mannyrivera2010/go-quadmem/internal/table"
	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

// MemDataset is an in-memory dataset with snapshot isolation.
//
// Named-graph quads live in a table indexed six ways; default-graph triples
// live in a table indexed three ways, or in the quad table under
// quad.DefaultGraph when SeparateDefaultGraph is off. A transaction works on
// private roots of every index and publishes them together on commit, so
// readers never wait for writers and never see a partial commit.
type MemDataset struct {
	quads   *table.Table
	triples *table.Table

	// writeMu admits one WRITE transaction at a time. commitMu is held
	// shared while a transaction captures its roots and exclusively while a
	// commit publishes them.
	writeMu  sync.Mutex
	commitMu sync.RWMutex

	logger *slog.Logger
	closed atomic.Bool
}

var _ Dataset = (*MemDataset)(nil)

// NewMemDataset returns an empty in-memory dataset. Only the
// SeparateDefaultGraph and Logger options apply.
func NewMemDataset(opts OpenOptions) *MemDataset {
	logger := opts.logger()
	d := &MemDataset{
		quads:  table.NewQuadTable(logger),
		logger: logger,
	}
	if opts.SeparateDefaultGraph {
		d.triples = table.NewTripleTable(logger)
	}
	return d
}

// Begin captures a snapshot of every index. A WRITE transaction first
// takes the write lock.
func (d *MemDataset) Begin(ctx context.Context, mode Mode) (context.Context, error) {
	if activeTxn(ctx, d) != nil {
		return ctx, newNestedError("Begin")
	}
	if d.closed.Load() {
		return ctx, ErrClosed
	}
	if mode == Write && !d.writeMu.TryLock() {
		d.logger.DebugContext(ctx, "waiting for the write lock")
		d.writeMu.Lock()
	}
	tx := d.snapshot(mode)
	metrics.RecordBegin(ctx, mode.label())
	d.logger.DebugContext(ctx, "begin transaction", "mode", mode.String())
	return withTxn(ctx, d, tx), nil
}

// snapshot captures the published roots of both tables.
func (d *MemDataset) snapshot(mode Mode) *txn {
	d.commitMu.RLock()
	defer d.commitMu.RUnlock()
	tx := &txn{mode: mode, started: time.Now(), quads: d.quads.Begin()}
	if d.triples != nil {
		tx.triples = d.triples.Begin()
	}
	return tx
}

// Commit publishes every index root of the WRITE transaction at once and
// releases the write lock.
func (d *MemDataset) Commit(ctx context.Context) error {
	tx := activeTxn(ctx, d)
	if tx == nil {
		return newNoTransactionError("Commit")
	}
	if tx.mode != Write {
		return newNotWriteError("Commit")
	}

	d.commitMu.Lock()
	tx.quads.Commit()
	if tx.triples != nil {
		tx.triples.Commit()
	}
	d.commitMu.Unlock()

	metrics.RecordCommit(ctx, tx.mode.label(), time.Since(tx.started))
	d.logger.DebugContext(ctx, "commit transaction")
	d.finish(ctx, tx)
	return nil
}

// Abort drops the transaction's private roots.
func (d *MemDataset) Abort(ctx context.Context) error {
	tx := activeTxn(ctx, d)
	if tx == nil {
		return newNoTransactionError("Abort")
	}
	metrics.RecordAbort(ctx, tx.mode.label(), time.Since(tx.started))
	d.logger.DebugContext(ctx, "abort transaction", "mode", tx.mode.String())
	d.finish(ctx, tx)
	return nil
}

// End aborts an uncommitted WRITE transaction and ends a READ one.
func (d *MemDataset) End(ctx context.Context) error {
	tx := activeTxn(ctx, d)
	if tx == nil {
		return nil
	}
	if tx.mode == Write {
		return d.Abort(ctx)
	}
	d.finish(ctx, tx)
	return nil
}

// finish discards local roots and releases the write lock.
func (d *MemDataset) finish(ctx context.Context, tx *txn) {
	tx.done = true
	tx.quads.End()
	if tx.triples != nil {
		tx.triples.End()
	}
	if tx.mode == Write {
		d.writeMu.Unlock()
	}
	metrics.RecordEnd(ctx, tx.mode.label())
}

func (d *MemDataset) IsInTransaction(ctx context.Context) bool {
	return activeTxn(ctx, d) != nil
}

func (d *MemDataset) TransactionMode(ctx context.Context) (Mode, bool) {
	if tx := activeTxn(ctx, d); tx != nil {
		return tx.mode, true
	}
	return Read, false
}

// view returns the open transaction in ctx, or a throwaway read snapshot.
func (d *MemDataset) view(ctx context.Context) (*txn, error) {
	if tx := activeTxn(ctx, d); tx != nil {
		return tx, nil
	}
	if d.closed.Load() {
		return nil, ErrClosed
	}
	return d.snapshot(Read), nil
}

// mutate runs fn in the WRITE transaction of ctx, autocommitting when there
// is none. An error from fn aborts an autocommitted write.
func (d *MemDataset) mutate(ctx context.Context, op string, fn func(ctx context.Context, tx *txn) error) error {
	tx := activeTxn(ctx, d)
	if tx == nil {
		return autocommit(ctx, d, func(ctx context.Context) error {
			return d.mutate(ctx, op, fn)
		})
	}
	if tx.mode != Write {
		return newReadOnlyError(op)
	}
	return fn(ctx, tx)
}

func quadsOf(seq iter.Seq[index.Tuple]) iter.Seq[quad.Quad] {
	return func(yield func(quad.Quad) bool) {
		for t := range seq {
			if !yield(t.Quad()) {
				return
			}
		}
	}
}

func defaultQuadsOf(seq iter.Seq[index.Tuple]) iter.Seq[quad.Quad] {
	return func(yield func(quad.Quad) bool) {
		for t := range seq {
			if !yield(t.Triple().InGraph(quad.DefaultGraph)) {
				return
			}
		}
	}
}

// findDefault matches the default graph.
func (d *MemDataset) findDefault(ctx context.Context, tx *txn, s, p, o quad.Node) iter.Seq[quad.Quad] {
	if tx.triples != nil {
		return defaultQuadsOf(tx.triples.Find(ctx, index.Tuple{quad.Any, s, p, o}))
	}
	return quadsOf(tx.quads.Find(ctx, index.Tuple{quad.DefaultGraph, s, p, o}))
}

// findNamed matches the named graphs; g is a concrete name or a wildcard.
func (d *MemDataset) findNamed(ctx context.Context, tx *txn, g, s, p, o quad.Node) iter.Seq[quad.Quad] {
	seq := quadsOf(tx.quads.Find(ctx, index.Tuple{g, s, p, o}))
	if tx.triples == nil && !g.IsConcrete() {
		return withoutDefaultGraph(seq)
	}
	return seq
}

func (d *MemDataset) find(ctx context.Context, named bool, g, s, p, o quad.Node) (iter.Seq[quad.Quad], error) {
	tx, err := d.view(ctx)
	if err != nil {
		return nil, err
	}
	switch {
	case g.IsUnionGraph():
		return dedupeUnion(d.findNamed(ctx, tx, quad.Any, s, p, o)), nil
	case g.IsDefaultGraph():
		if named {
			return func(func(quad.Quad) bool) {}, nil
		}
		return d.findDefault(ctx, tx, s, p, o), nil
	case g.IsConcrete():
		return d.findNamed(ctx, tx, g, s, p, o), nil
	case named:
		return d.findNamed(ctx, tx, quad.Any, s, p, o), nil
	case tx.triples == nil:
		return quadsOf(tx.quads.Find(ctx, index.Tuple{quad.Any, s, p, o})), nil
	default:
		return concat(d.findDefault(ctx, tx, s, p, o), d.findNamed(ctx, tx, quad.Any, s, p, o)), nil
	}
}

// Find matches lazily against the transaction's snapshot, or a snapshot
// taken now when ctx carries none.
func (d *MemDataset) Find(ctx context.Context, g, s, p, o quad.Node) (iter.Seq[quad.Quad], error) {
	return d.find(ctx, false, g, s, p, o)
}

// FindNG is Find without the default graph.
func (d *MemDataset) FindNG(ctx context.Context, g, s, p, o quad.Node) (iter.Seq[quad.Quad], error) {
	return d.find(ctx, true, g, s, p, o)
}

func (d *MemDataset) Contains(ctx context.Context, g, s, p, o quad.Node) (bool, error) {
	seq, err := d.Find(ctx, g, s, p, o)
	if err != nil {
		return false, err
	}
	return !isEmptySeq(seq), nil
}

// addIn and deleteIn route a storable quad to its table.
func (d *MemDataset) addIn(tx *txn, q quad.Quad) {
	if q.IsDefaultGraph() && tx.triples != nil {
		tx.triples.Add(index.FromTriple(q.AsTriple()))
		return
	}
	tx.quads.Add(index.FromQuad(q))
}

func (d *MemDataset) deleteIn(tx *txn, q quad.Quad) {
	if q.IsDefaultGraph() && tx.triples != nil {
		tx.triples.Delete(index.FromTriple(q.AsTriple()))
		return
	}
	tx.quads.Delete(index.FromQuad(q))
}

// Add stores q, autocommitting outside a transaction.
func (d *MemDataset) Add(ctx context.Context, q quad.Quad) error {
	q, err := storable(q)
	if err != nil {
		return err
	}
	return d.mutate(ctx, "Add", func(_ context.Context, tx *txn) error {
		d.addIn(tx, q)
		return nil
	})
}

// Delete removes q, autocommitting outside a transaction.
func (d *MemDataset) Delete(ctx context.Context, q quad.Quad) error {
	q, err := storable(q)
	if err != nil {
		return err
	}
	return d.mutate(ctx, "Delete", func(_ context.Context, tx *txn) error {
		d.deleteIn(tx, q)
		return nil
	})
}

// DeleteAny with the union graph deletes the matches from every named graph.
func (d *MemDataset) DeleteAny(ctx context.Context, g, s, p, o quad.Node) error {
	named := false
	if g.IsUnionGraph() {
		g, named = quad.Any, true
	}
	return d.mutate(ctx, "DeleteAny", func(ctx context.Context, tx *txn) error {
		seq, err := d.find(ctx, named, g, s, p, o)
		if err != nil {
			return err
		}
		for _, q := range slices.Collect(seq) {
			d.deleteIn(tx, q)
		}
		return nil
	})
}

func (d *MemDataset) AddGraph(ctx context.Context, name quad.Node, graph Graph) error {
	name, err := writableGraph(name)
	if err != nil {
		return err
	}
	triples, err := copyGraph(ctx, graph)
	if err != nil {
		return err
	}
	return d.mutate(ctx, "AddGraph", func(_ context.Context, tx *txn) error {
		for _, t := range triples {
			d.addIn(tx, t.InGraph(name))
		}
		return nil
	})
}

func (d *MemDataset) RemoveGraph(ctx context.Context, name quad.Node) error {
	name, err := writableGraph(name)
	if err != nil {
		return err
	}
	return d.mutate(ctx, "RemoveGraph", func(ctx context.Context, tx *txn) error {
		d.removeGraph(ctx, tx, name)
		return nil
	})
}

func (d *MemDataset) removeGraph(ctx context.Context, tx *txn, name quad.Node) {
	if name.IsDefaultGraph() && tx.triples != nil {
		tx.triples.Clear()
		return
	}
	victims := slices.Collect(tx.quads.Find(ctx, index.Tuple{name, quad.Any, quad.Any, quad.Any}))
	for _, t := range victims {
		tx.quads.Delete(t)
	}
}

// SetDefaultGraph replaces the default graph with a copy of graph in one
// write.
func (d *MemDataset) SetDefaultGraph(ctx context.Context, graph Graph) error {
	triples, err := copyGraph(ctx, graph)
	if err != nil {
		return err
	}
	return d.mutate(ctx, "SetDefaultGraph", func(ctx context.Context, tx *txn) error {
		d.removeGraph(ctx, tx, quad.DefaultGraph)
		for _, t := range triples {
			d.addIn(tx, t.InGraph(quad.DefaultGraph))
		}
		return nil
	})
}

func (d *MemDataset) Clear(ctx context.Context) error {
	return d.mutate(ctx, "Clear", func(_ context.Context, tx *txn) error {
		tx.quads.Clear()
		if tx.triples != nil {
			tx.triples.Clear()
		}
		return nil
	})
}

// ListGraphNodes reads the top level of the graph-leading index.
func (d *MemDataset) ListGraphNodes(ctx context.Context) ([]quad.Node, error) {
	tx, err := d.view(ctx)
	if err != nil {
		return nil, err
	}
	var out []quad.Node
	for g := range tx.quads.Keys(index.Graph) {
		if !g.IsDefaultGraph() {
			out = append(out, g)
		}
	}
	return out, nil
}

func (d *MemDataset) GetGraph(name quad.Node) *GraphView { return newGraphView(d, name) }

func (d *MemDataset) DefaultGraph() *GraphView { return newGraphView(d, quad.DefaultGraph) }

func (d *MemDataset) UnionGraph() *GraphView { return newGraphView(d, quad.UnionGraph) }

func (d *MemDataset) Len(ctx context.Context) (int, error) {
	tx, err := d.view(ctx)
	if err != nil {
		return 0, err
	}
	n := tx.quads.Len()
	if tx.triples != nil {
		n += tx.triples.Len()
	}
	return n, nil
}

func (d *MemDataset) IsEmpty(ctx context.Context) (bool, error) {
	n, err := d.Len(ctx)
	return n == 0, err
}

// Close marks the dataset closed. Open transactions may still finish.
func (d *MemDataset) Close() error {
	d.closed.Store(true)
	return nil
}
