package index

import "github.com/mannyrivera2010/go-quadmem/pkg/quad"

// Form is a fixed ordering of tuple slots. A Trie built under a form is keyed
// by the slots in that order.
type Form struct {
	name  string
	order []Slot
	all   SlotSet
}

func newForm(name string, order ...Slot) Form {
	return Form{name: name, order: order, all: SlotsOf(order...)}
}

// Quad forms. Every non-empty bound-slot pattern over G, S, P, O is a prefix
// of at least one of them.
var (
	GSPO = newForm("GSPO", Graph, Subject, Predicate, Object)
	GOPS = newForm("GOPS", Graph, Object, Predicate, Subject)
	SPOG = newForm("SPOG", Subject, Predicate, Object, Graph)
	OSGP = newForm("OSGP", Object, Subject, Graph, Predicate)
	PGSO = newForm("PGSO", Predicate, Graph, Subject, Object)
	OPSG = newForm("OPSG", Object, Predicate, Subject, Graph)
)

// Triple forms, which cover S, P, O by rotation.
var (
	SPO = newForm("SPO", Subject, Predicate, Object)
	POS = newForm("POS", Predicate, Object, Subject)
	OSP = newForm("OSP", Object, Subject, Predicate)
)

// QuadForms and TripleForms are in selection order; the first entry of each
// is the default used for full scans.
var (
	QuadForms   = []Form{GSPO, GOPS, SPOG, OSGP, PGSO, OPSG}
	TripleForms = []Form{SPO, POS, OSP}
)

func (f Form) Name() string { return f.name }

func (f Form) String() string { return f.name }

func (f Form) Arity() int { return len(f.order) }

// Slots returns the form's slot order. The caller must not modify it.
func (f Form) Slots() []Slot { return f.order }

// Leading is the slot keyed by the outermost level.
func (f Form) Leading() Slot { return f.order[0] }

// AvoidsTraversal reports whether a pattern binding exactly the given slots
// can be answered by this form without iterating a wildcard level ahead of a
// bound one: the pattern must equal a proper prefix of the form or bind every
// slot. The empty pattern never qualifies.
func (f Form) AvoidsTraversal(pattern SlotSet) bool {
	if pattern == f.all {
		return true
	}
	var prefix SlotSet
	for _, s := range f.order[:len(f.order)-1] {
		prefix = prefix.With(s)
		if prefix == pattern {
			return true
		}
	}
	return false
}

// Choose returns the first form in forms that avoids traversal for pattern,
// or forms[0] when none does.
func Choose(forms []Form, pattern SlotSet) Form {
	for _, f := range forms {
		if f.AvoidsTraversal(pattern) {
			return f
		}
	}
	return forms[0]
}

// Project lays the tuple's nodes out in this form's slot order.
func (f Form) Project(t Tuple) []quad.Node {
	out := make([]quad.Node, len(f.order))
	for i, s := range f.order {
		out[i] = t[s]
	}
	return out
}

// Restore is the inverse of Project.
func (f Form) Restore(nodes []quad.Node) Tuple {
	var t Tuple
	for i, s := range f.order {
		t[s] = nodes[i]
	}
	return t
}
