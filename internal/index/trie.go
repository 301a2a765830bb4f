package index

import (
	"fmt"
	"iter"
	"slices"

	"github.com/mannyrivera2010/go-quadmem/internal/pmap"
	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

// Trie is a persistent nested map holding tuples of a fixed arity.
//
// For arity n the levels are n-1 maps deep: each map at depth d < n-2 holds
// maps, the map at depth n-2 holds sets of last-slot nodes. A tuple is present
// iff its full descent path exists and the terminal set contains its last
// node. Deletes prune levels that become empty.
//
// Trie values are immutable; Add and Delete return a new Trie that shares
// structure with the receiver.
type Trie struct {
	arity int
	size  int
	root  pmap.Map[any]
}

func NewTrie(arity int) Trie {
	if arity < 2 {
		panic(fmt.Sprintf("index: trie arity %d < 2", arity))
	}
	return Trie{arity: arity}
}

func (t Trie) Arity() int { return t.arity }

// Len returns the number of tuples stored.
func (t Trie) Len() int { return t.size }

func (t Trie) check(tuple []quad.Node) {
	if len(tuple) != t.arity {
		panic(fmt.Sprintf("index: tuple of length %d in trie of arity %d", len(tuple), t.arity))
	}
}

// Contains reports whether the concrete tuple is stored.
func (t Trie) Contains(tuple []quad.Node) bool {
	t.check(tuple)
	m := t.root
	for depth := 0; depth < t.arity-2; depth++ {
		child, ok := m.Get(tuple[depth])
		if !ok {
			return false
		}
		m = child.(pmap.Map[any])
	}
	leaves, ok := m.Get(tuple[t.arity-2])
	return ok && leaves.(pmap.Set).Contains(tuple[t.arity-1])
}

// Add returns a trie that holds tuple, creating intermediate levels as
// needed, and whether the tuple was new.
func (t Trie) Add(tuple []quad.Node) (Trie, bool) {
	t.check(tuple)
	root, changed := t.insert(t.root, 0, tuple)
	if !changed {
		return t, false
	}
	return Trie{arity: t.arity, size: t.size + 1, root: root}, true
}

func (t Trie) insert(m pmap.Map[any], depth int, tuple []quad.Node) (pmap.Map[any], bool) {
	key := tuple[depth]
	child, _ := m.Get(key)
	if depth == t.arity-2 {
		leaves, _ := child.(pmap.Set)
		if leaves.Contains(tuple[depth+1]) {
			return m, false
		}
		return m.Plus(key, leaves.Plus(tuple[depth+1])), true
	}
	sub, _ := child.(pmap.Map[any])
	sub, changed := t.insert(sub, depth+1, tuple)
	if !changed {
		return m, false
	}
	return m.Plus(key, sub), true
}

// Delete returns a trie without tuple and whether it had been present.
// Deleting an absent tuple returns the receiver unchanged.
func (t Trie) Delete(tuple []quad.Node) (Trie, bool) {
	t.check(tuple)
	root, changed := t.remove(t.root, 0, tuple)
	if !changed {
		return t, false
	}
	return Trie{arity: t.arity, size: t.size - 1, root: root}, true
}

func (t Trie) remove(m pmap.Map[any], depth int, tuple []quad.Node) (pmap.Map[any], bool) {
	key := tuple[depth]
	child, ok := m.Get(key)
	if !ok {
		return m, false
	}
	if depth == t.arity-2 {
		leaves := child.(pmap.Set)
		if !leaves.Contains(tuple[depth+1]) {
			return m, false
		}
		leaves = leaves.Minus(tuple[depth+1])
		if leaves.Len() == 0 {
			return m.Minus(key), true
		}
		return m.Plus(key, leaves), true
	}
	sub, changed := t.remove(child.(pmap.Map[any]), depth+1, tuple)
	if !changed {
		return m, false
	}
	if sub.Len() == 0 {
		return m.Minus(key), true
	}
	return m.Plus(key, sub), true
}

// Find iterates over stored tuples matching pattern, in trie slot order.
// Concrete pattern nodes must match exactly; wildcards and variables match
// anything. A concrete node missing at any level ends the search with no
// results. Each yielded slice is freshly allocated.
func (t Trie) Find(pattern []quad.Node) iter.Seq[[]quad.Node] {
	t.check(pattern)
	return func(yield func([]quad.Node) bool) {
		buf := make([]quad.Node, t.arity)
		t.descend(t.root, 0, pattern, buf, yield)
	}
}

func (t Trie) descend(m pmap.Map[any], depth int, pattern, buf []quad.Node, yield func([]quad.Node) bool) bool {
	visit := func(key quad.Node, child any) bool {
		buf[depth] = key
		if depth == t.arity-2 {
			return t.leaves(child.(pmap.Set), pattern[depth+1], buf, yield)
		}
		return t.descend(child.(pmap.Map[any]), depth+1, pattern, buf, yield)
	}

	if key := pattern[depth]; key.IsConcrete() {
		child, ok := m.Get(key)
		if !ok {
			return true
		}
		return visit(key, child)
	}
	for key, child := range m.All() {
		if !visit(key, child) {
			return false
		}
	}
	return true
}

func (t Trie) leaves(set pmap.Set, want quad.Node, buf []quad.Node, yield func([]quad.Node) bool) bool {
	last := t.arity - 1
	if want.IsConcrete() {
		if !set.Contains(want) {
			return true
		}
		buf[last] = want
		return yield(slices.Clone(buf))
	}
	for n := range set.All() {
		buf[last] = n
		if !yield(slices.Clone(buf)) {
			return false
		}
	}
	return true
}

// Keys iterates over the distinct nodes in the outermost level.
func (t Trie) Keys() iter.Seq[quad.Node] {
	return t.root.Keys()
}
