// Package table composes every index form of one arity into a single
// transactional table.
//
// A Table owns one published trie per form. A Txn holds private copies of
// those roots; mutations fan out to every copy and become visible to other
// transactions only when the Txn is committed.
package table

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync/atomic"

	"github.com/mannyrivera2010/go-quadmem/internal/index"
	"github.com/mannyrivera2010/go-quadmem/internal/metrics"
	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

// Table is one arity's worth of storage: an ordered list of forms, each with
// its own published trie. Every form holds the same set of tuples.
//
// Table does no locking of its own. Callers must not run Commit concurrently
// with Begin or another Commit; Begin and reads may run concurrently with each
// other.
type Table struct {
	name    string
	forms   []index.Form
	masters []atomic.Pointer[index.Trie]
	logger  *slog.Logger
}

// New creates an empty table over forms. forms[0] is the default form used for
// full scans. All forms must have the same arity.
func New(name string, forms []index.Form, logger *slog.Logger) *Table {
	if len(forms) == 0 {
		panic("table: no index forms")
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &Table{
		name:    name,
		forms:   forms,
		masters: make([]atomic.Pointer[index.Trie], len(forms)),
		logger:  logger.With("table", name),
	}
	arity := forms[0].Arity()
	for i, f := range forms {
		if f.Arity() != arity {
			panic(fmt.Sprintf("table: form %s has arity %d, want %d", f, f.Arity(), arity))
		}
		empty := index.NewTrie(arity)
		t.masters[i].Store(&empty)
	}
	return t
}

// NewQuadTable returns a table indexed by the six quad forms.
func NewQuadTable(logger *slog.Logger) *Table {
	return New("quads", index.QuadForms, logger)
}

// NewTripleTable returns a table indexed by the three triple forms. Tuples
// stored in it ignore the graph slot.
func NewTripleTable(logger *slog.Logger) *Table {
	return New("triples", index.TripleForms, logger)
}

func (t *Table) Name() string { return t.name }

func (t *Table) Forms() []index.Form { return t.forms }

// Len returns the number of tuples in the published state.
func (t *Table) Len() int { return t.masters[0].Load().Len() }

// Begin captures the currently published root of every form. The returned
// Txn sees exactly that state plus its own mutations.
func (t *Table) Begin() *Txn {
	roots := make([]index.Trie, len(t.forms))
	for i := range t.masters {
		roots[i] = *t.masters[i].Load()
	}
	return &Txn{table: t, roots: roots}
}

// Txn is a private view of a Table. It is not safe for concurrent use.
type Txn struct {
	table *Table
	roots []index.Trie
	dirty bool
	ended bool
}

// Dirty reports whether the transaction has changed anything.
func (x *Txn) Dirty() bool { return x.dirty }

func (x *Txn) slots() []index.Slot { return x.table.forms[0].Slots() }

// Choose returns the form that will answer pattern.
func (x *Txn) Choose(pattern index.Tuple) index.Form {
	return index.Choose(x.table.forms, pattern.Bound(x.slots()))
}

// Find iterates over tuples matching pattern. Slots outside the table's
// arity are ignored. Results come back in canonical slot order.
func (x *Txn) Find(ctx context.Context, pattern index.Tuple) iter.Seq[index.Tuple] {
	bound := pattern.Bound(x.slots())
	form := index.Choose(x.table.forms, bound)
	root := x.rootOf(form)
	x.table.logger.DebugContext(ctx, "find", "form", form.Name(), "bound", bound.String())
	metrics.RecordFormSelected(ctx, x.table.name, form.Name())

	return func(yield func(index.Tuple) bool) {
		for nodes := range root.Find(form.Project(pattern)) {
			if !yield(form.Restore(nodes)) {
				return
			}
		}
	}
}

func (x *Txn) rootOf(form index.Form) index.Trie {
	for i, f := range x.table.forms {
		if f.Name() == form.Name() {
			return x.roots[i]
		}
	}
	return x.roots[0]
}

// Contains reports whether the concrete tuple is present.
func (x *Txn) Contains(tuple index.Tuple) bool {
	return x.roots[0].Contains(x.table.forms[0].Project(tuple))
}

// Add stores tuple in every form and reports whether it was new.
func (x *Txn) Add(tuple index.Tuple) bool {
	changed := false
	for i, f := range x.table.forms {
		var ok bool
		x.roots[i], ok = x.roots[i].Add(f.Project(tuple))
		changed = changed || ok
	}
	x.dirty = x.dirty || changed
	return changed
}

// Delete removes tuple from every form and reports whether it was present.
// Deleting an absent tuple is a no-op.
func (x *Txn) Delete(tuple index.Tuple) bool {
	changed := false
	for i, f := range x.table.forms {
		var ok bool
		x.roots[i], ok = x.roots[i].Delete(f.Project(tuple))
		changed = changed || ok
	}
	x.dirty = x.dirty || changed
	return changed
}

// Clear drops every tuple.
func (x *Txn) Clear() {
	if x.roots[0].Len() == 0 {
		return
	}
	for i, f := range x.table.forms {
		x.roots[i] = index.NewTrie(f.Arity())
	}
	x.dirty = true
}

// Len returns the number of tuples visible to the transaction.
func (x *Txn) Len() int { return x.roots[0].Len() }

// Keys iterates over the distinct values of slot. A form led by slot answers
// directly from its top level; otherwise the default form is scanned.
func (x *Txn) Keys(slot index.Slot) iter.Seq[quad.Node] {
	for i, f := range x.table.forms {
		if f.Leading() == slot {
			return x.roots[i].Keys()
		}
	}
	form := x.table.forms[0]
	root := x.roots[0]
	return func(yield func(quad.Node) bool) {
		seen := make(map[quad.Node]struct{})
		wild := make([]quad.Node, form.Arity())
		for nodes := range root.Find(wild) {
			n := form.Restore(nodes)[slot]
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			if !yield(n) {
				return
			}
		}
	}
}

// Commit publishes the transaction's roots. The caller must hold whatever
// lock keeps Begin from running during the publish so no Begin observes some
// forms updated and others not.
func (x *Txn) Commit() {
	if x.ended {
		return
	}
	if x.dirty {
		for i := range x.roots {
			root := x.roots[i]
			x.table.masters[i].Store(&root)
		}
		x.table.logger.Debug("commit", "len", x.roots[0].Len())
	}
	x.End()
}

// End discards the transaction's roots without publishing.
func (x *Txn) End() {
	x.ended = true
	x.roots = nil
}

// Ended reports whether Commit or End has been called.
func (x *Txn) Ended() bool { return x.ended }
