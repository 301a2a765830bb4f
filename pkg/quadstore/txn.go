package quadstore

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/mannyrivera2010/go-quadmem/internal/table"
	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

// txn is the per-goroutine transaction state carried in a context.
type txn struct {
	mode    Mode
	started time.Time
	done    bool

	// Local table views, memory datasets only. triples is nil when the
	// default graph shares the quad table.
	quads   *table.Txn
	triples *table.Txn
}

// txnKey scopes a context value to one dataset so a goroutine can hold
// transactions on several datasets at once.
type txnKey struct{ owner any }

func withTxn(ctx context.Context, owner any, tx *txn) context.Context {
	return context.WithValue(ctx, txnKey{owner}, tx)
}

// activeTxn returns the open transaction of owner in ctx, or nil.
func activeTxn(ctx context.Context, owner any) *txn {
	tx, _ := ctx.Value(txnKey{owner}).(*txn)
	if tx == nil || tx.done {
		return nil
	}
	return tx
}

// autocommit runs fn in a new WRITE transaction of d and commits it. If fn
// fails the transaction is aborted.
func autocommit(ctx context.Context, d Transactional, fn func(ctx context.Context) error) error {
	txctx, err := d.Begin(ctx, Write)
	if err != nil {
		return err
	}
	if err := fn(txctx); err != nil {
		return errors.Join(err, d.Abort(txctx))
	}
	return d.Commit(txctx)
}

// storable checks q and maps a wildcard graph to the default graph.
func storable(q quad.Quad) (quad.Quad, error) {
	if !q.Subject.IsConcrete() || !q.Predicate.IsConcrete() || !q.Object.IsConcrete() {
		return q, invalidQuad(q, "subject, predicate and object must be concrete")
	}
	switch {
	case q.Graph.IsAny():
		q.Graph = quad.DefaultGraph
	case q.Graph.IsUnionGraph():
		return q, invalidQuad(q, "the union graph is read-only")
	case !q.Graph.IsConcrete():
		return q, invalidQuad(q, "graph must be concrete")
	}
	return q, nil
}

// writableGraph maps a wildcard name to the default graph and rejects names
// that cannot hold statements.
func writableGraph(name quad.Node) (quad.Node, error) {
	switch {
	case name.IsAny():
		return quad.DefaultGraph, nil
	case name.IsUnionGraph(), !name.IsConcrete():
		return name, ErrInvalidGraph
	}
	return name, nil
}

// copyGraph reads every triple of g.
func copyGraph(ctx context.Context, g Graph) ([]quad.Triple, error) {
	seq, err := g.Find(ctx, quad.Any, quad.Any, quad.Any)
	if err != nil {
		return nil, err
	}
	var out []quad.Triple
	for t := range seq {
		out = append(out, t)
	}
	return out, nil
}

// dedupeUnion drops default-graph quads, keeps the first quad of every
// distinct triple and relabels it as a union-graph quad.
func dedupeUnion(seq iter.Seq[quad.Quad]) iter.Seq[quad.Quad] {
	return func(yield func(quad.Quad) bool) {
		seen := make(map[quad.Triple]struct{})
		for q := range seq {
			if q.Graph.IsDefaultGraph() {
				continue
			}
			t := q.AsTriple()
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			if !yield(t.InGraph(quad.UnionGraph)) {
				return
			}
		}
	}
}

func withoutDefaultGraph(seq iter.Seq[quad.Quad]) iter.Seq[quad.Quad] {
	return func(yield func(quad.Quad) bool) {
		for q := range seq {
			if q.Graph.IsDefaultGraph() {
				continue
			}
			if !yield(q) {
				return
			}
		}
	}
}

func concat(seqs ...iter.Seq[quad.Quad]) iter.Seq[quad.Quad] {
	return func(yield func(quad.Quad) bool) {
		for _, seq := range seqs {
			for q := range seq {
				if !yield(q) {
					return
				}
			}
		}
	}
}

func isEmptySeq(seq iter.Seq[quad.Quad]) bool {
	for range seq {
		return false
	}
	return true
}
