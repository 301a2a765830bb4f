// Package pmap provides persistent (immutable, structurally shared) maps and
// sets keyed by quad.Node.
//
// Both types are thin typed wrappers over github.com/benbjohnson/immutable,
// a hash array mapped trie. Updates return a new value and never modify the
// receiver, so a Map or Set may be shared freely between goroutines. The zero
// value of each type is an empty, ready to use structure.
package pmap

import (
	"iter"

	"github.com/benbjohnson/immutable"

	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

// nodeHasher places quad.Node keys in the trie.
type nodeHasher struct{}

var _ immutable.Hasher[quad.Node] = nodeHasher{}

// Hash returns a hash for key.
func (nodeHasher) Hash(key quad.Node) uint32 { return key.Hash() }

// Equal returns true if a is equal to b.
func (nodeHasher) Equal(a, b quad.Node) bool { return a == b }

// Map is a persistent mapping from nodes to values of type V.
type Map[V any] struct {
	m *immutable.Map[quad.Node, V]
}

// Len returns the number of entries.
func (m Map[V]) Len() int {
	if m.m == nil {
		return 0
	}
	return m.m.Len()
}

// Get returns the value stored under key.
func (m Map[V]) Get(key quad.Node) (V, bool) {
	var zero V
	if m.m == nil {
		return zero, false
	}
	return m.m.Get(key)
}

// ContainsKey reports whether key is present.
func (m Map[V]) ContainsKey(key quad.Node) bool {
	if m.m == nil {
		return false
	}
	_, ok := m.m.Get(key)
	return ok
}

// Plus returns a map with key bound to value. The receiver is unchanged.
func (m Map[V]) Plus(key quad.Node, value V) Map[V] {
	inner := m.m
	if inner == nil {
		inner = immutable.NewMap[quad.Node, V](nodeHasher{})
	}
	return Map[V]{m: inner.Set(key, value)}
}

// Minus returns a map without key. The receiver is unchanged.
func (m Map[V]) Minus(key quad.Node) Map[V] {
	if m.m == nil {
		return m
	}
	return Map[V]{m: m.m.Delete(key)}
}

// All iterates over the entries in no particular order.
func (m Map[V]) All() iter.Seq2[quad.Node, V] {
	return func(yield func(quad.Node, V) bool) {
		if m.m == nil {
			return
		}
		itr := m.m.Iterator()
		for !itr.Done() {
			k, v, _ := itr.Next()
			if !yield(k, v) {
				return
			}
		}
	}
}

// Keys iterates over the keys in no particular order.
func (m Map[V]) Keys() iter.Seq[quad.Node] {
	return func(yield func(quad.Node) bool) {
		for k := range m.All() {
			if !yield(k) {
				return
			}
		}
	}
}
