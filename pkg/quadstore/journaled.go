package quadstore

import (
	"context"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mannyrivera2010/go-quadmem/internal/journal"
	"github.com/mannyrivera2010/go-quadmem/internal/metrics"
	"github.com/mannyrivera2010/go-quadmem/internal/storage"
	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

// JournaledDataset makes a non-transactional storage.Backend transactional.
//
// Writes go straight to the backend. While a WRITE transaction is open every
// change that actually altered the backend is journaled; Abort undoes them in
// reverse order and Commit forgets them. Transactions are serialized by a
// readers-writer lock: many READ transactions or one WRITE transaction at a
// time. Default-graph statements are stored under quad.DefaultGraph.
type JournaledDataset struct {
	backend storage.Backend

	mu        sync.RWMutex
	record    *journal.Record
	sink      journal.OperationRecord
	recording bool

	logger *slog.Logger
	closed atomic.Bool
}

var _ Dataset = (*JournaledDataset)(nil)

// NewJournaledDataset wraps backend. The dataset owns backend and closes it
// on Close. With opts.LogChanges set, journaled changes are also logged.
func NewJournaledDataset(backend storage.Backend, opts OpenOptions) *JournaledDataset {
	logger := opts.logger()
	d := &JournaledDataset{
		backend: backend,
		record:  journal.NewRecord(),
		logger:  logger,
	}
	d.sink = d.record
	if opts.LogChanges {
		d.sink = journal.Tee{d.record, journal.NewLogRecord(logger.With("component", "journal"))}
	}
	return d
}

// Begin takes the read lock, or the write lock and starts recording.
func (d *JournaledDataset) Begin(ctx context.Context, mode Mode) (context.Context, error) {
	if activeTxn(ctx, d) != nil {
		return ctx, newNestedError("Begin")
	}
	if d.closed.Load() {
		return ctx, ErrClosed
	}
	if mode == Write {
		if !d.mu.TryLock() {
			d.logger.DebugContext(ctx, "waiting for the write lock")
			d.mu.Lock()
		}
		d.sink.Clear()
		d.recording = true
	} else {
		d.mu.RLock()
	}
	metrics.RecordBegin(ctx, mode.label())
	d.logger.DebugContext(ctx, "begin transaction", "mode", mode.String())
	return withTxn(ctx, d, &txn{mode: mode, started: time.Now()}), nil
}

// Commit forgets the journal; the changes are already in the backend.
func (d *JournaledDataset) Commit(ctx context.Context) error {
	tx := activeTxn(ctx, d)
	if tx == nil {
		return newNoTransactionError("Commit")
	}
	if tx.mode != Write {
		return newNotWriteError("Commit")
	}
	d.recording = false
	d.sink.Clear()
	metrics.RecordCommit(ctx, tx.mode.label(), time.Since(tx.started))
	d.logger.DebugContext(ctx, "commit transaction")
	d.finish(ctx, tx)
	return nil
}

// Abort undoes a WRITE transaction's changes. If an undo step fails, the
// error is a *RollbackError holding the changes left in place; the journal
// is cleared and the lock released either way.
func (d *JournaledDataset) Abort(ctx context.Context) error {
	tx := activeTxn(ctx, d)
	if tx == nil {
		return newNoTransactionError("Abort")
	}
	var err error
	if tx.mode == Write {
		err = d.rollback(ctx)
	}
	metrics.RecordAbort(ctx, tx.mode.label(), time.Since(tx.started))
	d.logger.DebugContext(ctx, "abort transaction", "mode", tx.mode.String())
	d.finish(ctx, tx)
	return err
}

func (d *JournaledDataset) rollback(ctx context.Context) error {
	d.recording = false
	n := d.record.Len()
	err := journal.Undo(ctx, d.record, storage.Mutable(d.backend))
	metrics.RecordJournalReplay(ctx, n-d.record.Len())
	if err != nil {
		rerr := &RollbackError{Remaining: d.record.Ops(), Err: err}
		d.logger.ErrorContext(ctx, "rollback failed", "remaining", len(rerr.Remaining), "error", err)
		d.sink.Clear()
		return rerr
	}
	d.sink.Clear()
	return nil
}

func (d *JournaledDataset) End(ctx context.Context) error {
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

func (d *JournaledDataset) finish(ctx context.Context, tx *txn) {
	tx.done = true
	if tx.mode == Write {
		d.mu.Unlock()
	} else {
		d.mu.RUnlock()
	}
	metrics.RecordEnd(ctx, tx.mode.label())
}

func (d *JournaledDataset) IsInTransaction(ctx context.Context) bool {
	return activeTxn(ctx, d) != nil
}

func (d *JournaledDataset) TransactionMode(ctx context.Context) (Mode, bool) {
	if tx := activeTxn(ctx, d); tx != nil {
		return tx.mode, true
	}
	return Read, false
}

// Journal returns the changes recorded so far in the open WRITE transaction.
func (d *JournaledDataset) Journal(ctx context.Context) []quad.Change {
	if tx := activeTxn(ctx, d); tx == nil || tx.mode != Write {
		return nil
	}
	return d.record.Ops()
}

// read runs fn with the dataset readable: inside the transaction of ctx, or
// under the read lock otherwise.
func (d *JournaledDataset) read(ctx context.Context, fn func() error) error {
	if activeTxn(ctx, d) != nil {
		return fn()
	}
	if d.closed.Load() {
		return ErrClosed
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return fn()
}

func (d *JournaledDataset) mutate(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	tx := activeTxn(ctx, d)
	if tx == nil {
		return autocommit(ctx, d, func(ctx context.Context) error {
			return d.mutate(ctx, op, fn)
		})
	}
	if tx.mode != Write {
		return newReadOnlyError(op)
	}
	return fn(ctx)
}

// addIn and deleteIn journal only changes that altered the backend.
func (d *JournaledDataset) addIn(ctx context.Context, q quad.Quad) error {
	added, err := d.backend.Add(ctx, q)
	if err != nil {
		return err
	}
	if added && d.recording {
		d.sink.Add(quad.Add(q))
	}
	return nil
}

func (d *JournaledDataset) deleteIn(ctx context.Context, q quad.Quad) error {
	removed, err := d.backend.Delete(ctx, q)
	if err != nil {
		return err
	}
	if removed && d.recording {
		d.sink.Add(quad.Delete(q))
	}
	return nil
}

// match reads the backend for a pattern. Wildcard graphs are passed through,
// so a named-only search filters the default graph afterwards.
func (d *JournaledDataset) match(ctx context.Context, named bool, g, s, p, o quad.Node) ([]quad.Quad, error) {
	switch {
	case g.IsUnionGraph():
		found, err := d.backend.Find(ctx, quad.New(quad.Any, s, p, o))
		if err != nil {
			return nil, err
		}
		return slices.Collect(dedupeUnion(slices.Values(found))), nil
	case g.IsDefaultGraph() && named:
		return nil, nil
	case !g.IsConcrete():
		g = quad.Any
	}
	found, err := d.backend.Find(ctx, quad.New(g, s, p, o))
	if err != nil {
		return nil, err
	}
	if named && g.IsAny() {
		found = slices.Collect(withoutDefaultGraph(slices.Values(found)))
	}
	return found, nil
}

func (d *JournaledDataset) find(ctx context.Context, named bool, g, s, p, o quad.Node) (iter.Seq[quad.Quad], error) {
	var found []quad.Quad
	err := d.read(ctx, func() error {
		var err error
		found, err = d.match(ctx, named, g, s, p, o)
		return err
	})
	if err != nil {
		return nil, err
	}
	return slices.Values(found), nil
}

func (d *JournaledDataset) Find(ctx context.Context, g, s, p, o quad.Node) (iter.Seq[quad.Quad], error) {
	return d.find(ctx, false, g, s, p, o)
}

func (d *JournaledDataset) FindNG(ctx context.Context, g, s, p, o quad.Node) (iter.Seq[quad.Quad], error) {
	return d.find(ctx, true, g, s, p, o)
}

func (d *JournaledDataset) Contains(ctx context.Context, g, s, p, o quad.Node) (bool, error) {
	q := quad.New(g, s, p, o)
	if q.IsConcrete() && !g.IsUnionGraph() {
		var ok bool
		err := d.read(ctx, func() error {
			var err error
			ok, err = d.backend.Contains(ctx, q)
			return err
		})
		return ok, err
	}
	seq, err := d.Find(ctx, g, s, p, o)
	if err != nil {
		return false, err
	}
	return !isEmptySeq(seq), nil
}

func (d *JournaledDataset) Add(ctx context.Context, q quad.Quad) error {
	q, err := storable(q)
	if err != nil {
		return err
	}
	return d.mutate(ctx, "Add", func(ctx context.Context) error { return d.addIn(ctx, q) })
}

func (d *JournaledDataset) Delete(ctx context.Context, q quad.Quad) error {
	q, err := storable(q)
	if err != nil {
		return err
	}
	return d.mutate(ctx, "Delete", func(ctx context.Context) error { return d.deleteIn(ctx, q) })
}

// DeleteAny with the union graph deletes the matches from every named graph.
func (d *JournaledDataset) DeleteAny(ctx context.Context, g, s, p, o quad.Node) error {
	named := false
	if g.IsUnionGraph() {
		g, named = quad.Any, true
	}
	return d.mutate(ctx, "DeleteAny", func(ctx context.Context) error {
		return d.deleteMatching(ctx, named, g, s, p, o)
	})
}

func (d *JournaledDataset) deleteMatching(ctx context.Context, named bool, g, s, p, o quad.Node) error {
	victims, err := d.match(ctx, named, g, s, p, o)
	if err != nil {
		return err
	}
	for _, q := range victims {
		if err := d.deleteIn(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (d *JournaledDataset) AddGraph(ctx context.Context, name quad.Node, graph Graph) error {
	name, err := writableGraph(name)
	if err != nil {
		return err
	}
	triples, err := copyGraph(ctx, graph)
	if err != nil {
		return err
	}
	return d.mutate(ctx, "AddGraph", func(ctx context.Context) error {
		for _, t := range triples {
			if err := d.addIn(ctx, t.InGraph(name)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *JournaledDataset) RemoveGraph(ctx context.Context, name quad.Node) error {
	name, err := writableGraph(name)
	if err != nil {
		return err
	}
	return d.mutate(ctx, "RemoveGraph", func(ctx context.Context) error {
		return d.deleteMatching(ctx, false, name, quad.Any, quad.Any, quad.Any)
	})
}

func (d *JournaledDataset) SetDefaultGraph(ctx context.Context, graph Graph) error {
	triples, err := copyGraph(ctx, graph)
	if err != nil {
		return err
	}
	return d.mutate(ctx, "SetDefaultGraph", func(ctx context.Context) error {
		if err := d.deleteMatching(ctx, false, quad.DefaultGraph, quad.Any, quad.Any, quad.Any); err != nil {
			return err
		}
		for _, t := range triples {
			if err := d.addIn(ctx, t.InGraph(quad.DefaultGraph)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Clear deletes quads one at a time so the deletions are journaled and an
// abort can restore them.
func (d *JournaledDataset) Clear(ctx context.Context) error {
	return d.mutate(ctx, "Clear", func(ctx context.Context) error {
		return d.deleteMatching(ctx, false, quad.Any, quad.Any, quad.Any, quad.Any)
	})
}

func (d *JournaledDataset) ListGraphNodes(ctx context.Context) ([]quad.Node, error) {
	var out []quad.Node
	err := d.read(ctx, func() error {
		graphs, err := d.backend.Graphs(ctx)
		if err != nil {
			return err
		}
		for _, g := range graphs {
			if !g.IsDefaultGraph() {
				out = append(out, g)
			}
		}
		return nil
	})
	return out, err
}

func (d *JournaledDataset) GetGraph(name quad.Node) *GraphView { return newGraphView(d, name) }

func (d *JournaledDataset) DefaultGraph() *GraphView { return newGraphView(d, quad.DefaultGraph) }

func (d *JournaledDataset) UnionGraph() *GraphView { return newGraphView(d, quad.UnionGraph) }

func (d *JournaledDataset) Len(ctx context.Context) (int, error) {
	var n int
	err := d.read(ctx, func() error {
		var err error
		n, err = d.backend.Len(ctx)
		return err
	})
	return n, err
}

func (d *JournaledDataset) IsEmpty(ctx context.Context) (bool, error) {
	n, err := d.Len(ctx)
	return n == 0, err
}

// Close closes the backend. It waits for open transactions to finish.
func (d *JournaledDataset) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.backend.Close()
}
