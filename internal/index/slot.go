// Package index implements the nested tuple maps behind the store and the
// index forms that order them.
//
// A Trie stores fixed-arity tuples of nodes as a chain of persistent maps
// ending in a persistent set. A Form is one permutation of the tuple slots;
// keeping one Trie per Form lets any lookup whose bound slots form a prefix of
// some permutation descend directly instead of scanning.
package index

import (
	"strings"

	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

// Slot names a position in a quad.
type Slot uint8

const (
	Graph Slot = iota
	Subject
	Predicate
	Object
)

var slotLetters = [...]string{"G", "S", "P", "O"}

func (s Slot) String() string {
	if int(s) < len(slotLetters) {
		return slotLetters[s]
	}
	return "?"
}

// SlotSet is a set of slots, typically the slots a pattern binds to concrete
// values.
type SlotSet uint8

// SlotsOf returns the set holding slots.
func SlotsOf(slots ...Slot) SlotSet {
	var set SlotSet
	for _, s := range slots {
		set = set.With(s)
	}
	return set
}

// With returns s plus slot.
func (s SlotSet) With(slot Slot) SlotSet { return s | 1<<slot }

// Has reports whether slot is in s.
func (s SlotSet) Has(slot Slot) bool { return s&(1<<slot) != 0 }

// Len returns the number of slots in s.
func (s SlotSet) Len() int {
	n := 0
	for v := s; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// String lists the member slots in G, S, P, O order, e.g. "SP"; the empty
// set renders as "-".
func (s SlotSet) String() string {
	var b strings.Builder
	for slot := Graph; slot <= Object; slot++ {
		if s.Has(slot) {
			b.WriteString(slot.String())
		}
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}

// Tuple holds one node per slot in canonical G, S, P, O order. Triple tuples
// leave the graph slot as the wildcard.
type Tuple [4]quad.Node

// FromQuad lays q out as a tuple.
func FromQuad(q quad.Quad) Tuple {
	return Tuple{q.Graph, q.Subject, q.Predicate, q.Object}
}

// FromTriple lays t out with Any in the graph slot.
func FromTriple(t quad.Triple) Tuple {
	return Tuple{quad.Any, t.Subject, t.Predicate, t.Object}
}

// Quad is the inverse of FromQuad.
func (t Tuple) Quad() quad.Quad {
	return quad.New(t[Graph], t[Subject], t[Predicate], t[Object])
}

func (t Tuple) Triple() quad.Triple {
	return quad.NewTriple(t[Subject], t[Predicate], t[Object])
}

// Bound returns which of the given slots hold concrete nodes.
func (t Tuple) Bound(slots []Slot) SlotSet {
	var set SlotSet
	for _, s := range slots {
		if t[s].IsConcrete() {
			set = set.With(s)
		}
	}
	return set
}
