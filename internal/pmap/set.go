package pmap

import (
	"iter"

	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

// Set is a persistent set of nodes, stored as a Map with empty values.
type Set struct {
	m Map[struct{}]
}

func (s Set) Len() int { return s.m.Len() }

func (s Set) Contains(n quad.Node) bool { return s.m.ContainsKey(n) }

// Plus returns a set that also holds n.
func (s Set) Plus(n quad.Node) Set {
	if s.m.ContainsKey(n) {
		return s
	}
	return Set{m: s.m.Plus(n, struct{}{})}
}

// Minus returns a set without n.
func (s Set) Minus(n quad.Node) Set {
	if !s.m.ContainsKey(n) {
		return s
	}
	return Set{m: s.m.Minus(n)}
}

// All iterates over the members in no particular order.
func (s Set) All() iter.Seq[quad.Node] { return s.m.Keys() }
