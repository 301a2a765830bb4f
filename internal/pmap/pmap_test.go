package pmap

import (
	"fmt"
	"maps"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

func node(i int) quad.Node { return quad.IRI(fmt.Sprintf("http://example.org/%d", i)) }

func TestMap_ZeroValue(t *testing.T) {
	var m Map[int]
	assert.Equal(t, 0, m.Len())
	assert.False(t, m.ContainsKey(node(1)))
	_, ok := m.Get(node(1))
	assert.False(t, ok)
	assert.Equal(t, 0, m.Minus(node(1)).Len())
	for range m.All() {
		t.Fatal("zero map yielded an entry")
	}
}

func TestMap_PlusMinusPersistent(t *testing.T) {
	var empty Map[string]
	one := empty.Plus(node(1), "a")
	two := one.Plus(node(2), "b")
	replaced := two.Plus(node(1), "z")
	removed := two.Minus(node(1))

	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, 1, one.Len())
	assert.Equal(t, 2, two.Len())

	v, ok := two.Get(node(1))
	require.True(t, ok)
	assert.Equal(t, "a", v, "earlier version must not see later Plus")

	v, _ = replaced.Get(node(1))
	assert.Equal(t, "z", v)
	assert.Equal(t, 2, replaced.Len(), "no duplicate keys")

	assert.False(t, removed.ContainsKey(node(1)))
	assert.True(t, two.ContainsKey(node(1)), "Minus must not touch the receiver")
}

func TestMap_All(t *testing.T) {
	var m Map[int]
	for i := range 100 {
		m = m.Plus(node(i), i)
	}
	got := maps.Collect(m.All())
	require.Len(t, got, 100)
	for i := range 100 {
		assert.Equal(t, i, got[node(i)])
	}

	count := 0
	for range m.Keys() {
		count++
		if count == 10 {
			break
		}
	}
	assert.Equal(t, 10, count)
}

func TestSet(t *testing.T) {
	var s Set
	s1 := s.Plus(node(1)).Plus(node(2)).Plus(node(1))
	assert.Equal(t, 2, s1.Len())
	assert.True(t, s1.Contains(node(2)))

	s2 := s1.Minus(node(2))
	assert.False(t, s2.Contains(node(2)))
	assert.True(t, s1.Contains(node(2)))
	assert.Equal(t, s2, s2.Minus(node(42)))

	members := slices.Collect(s1.All())
	assert.ElementsMatch(t, []quad.Node{node(1), node(2)}, members)
}

func TestMap_KeysCompareWholeNode(t *testing.T) {
	keys := []quad.Node{
		quad.IRI("x"),
		quad.Blank("x"),
		quad.Literal("x"),
		quad.LangLiteral("x", "en"),
		quad.TypedLiteral("x", "http://www.w3.org/2001/XMLSchema#string"),
	}
	var m Map[int]
	for i, k := range keys {
		m = m.Plus(k, i)
	}
	require.Equal(t, len(keys), m.Len())
	for i, k := range keys {
		v, ok := m.Get(k)
		require.True(t, ok, "%v", k)
		assert.Equal(t, i, v)
	}
	assert.False(t, m.ContainsKey(quad.LangLiteral("x", "fr")))
}
