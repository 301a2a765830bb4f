package quadstore

import (
	"context"
	"iter"
	"sync"

	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

// Graph is a readable set of triples, such as one graph of a dataset or a
// caller-owned MemGraph.
type Graph interface {
	Find(ctx context.Context, s, p, o quad.Node) (iter.Seq[quad.Triple], error)
}

// GraphView presents one graph of a dataset as a set of triples. It holds no
// data of its own: reads and writes go to the dataset, in whatever
// transaction ctx carries.
type GraphView struct {
	ds   Dataset
	name quad.Node
}

func newGraphView(ds Dataset, name quad.Node) *GraphView {
	if !name.IsConcrete() {
		name = quad.DefaultGraph
	}
	return &GraphView{ds: ds, name: name}
}

// Name returns the graph name, quad.DefaultGraph or quad.UnionGraph.
func (v *GraphView) Name() quad.Node { return v.name }

func (v *GraphView) Find(ctx context.Context, s, p, o quad.Node) (iter.Seq[quad.Triple], error) {
	seq, err := v.ds.Find(ctx, v.name, s, p, o)
	if err != nil {
		return nil, err
	}
	return func(yield func(quad.Triple) bool) {
		for q := range seq {
			if !yield(q.AsTriple()) {
				return
			}
		}
	}, nil
}

func (v *GraphView) Contains(ctx context.Context, t quad.Triple) (bool, error) {
	return v.ds.Contains(ctx, v.name, t.Subject, t.Predicate, t.Object)
}

// Add stores t in the viewed graph. The union graph is read-only.
func (v *GraphView) Add(ctx context.Context, t quad.Triple) error {
	return v.ds.Add(ctx, t.InGraph(v.name))
}

func (v *GraphView) Delete(ctx context.Context, t quad.Triple) error {
	return v.ds.Delete(ctx, t.InGraph(v.name))
}

// Clear removes every triple of the viewed graph.
func (v *GraphView) Clear(ctx context.Context) error {
	return v.ds.RemoveGraph(ctx, v.name)
}

func (v *GraphView) Len(ctx context.Context) (int, error) {
	seq, err := v.Find(ctx, quad.Any, quad.Any, quad.Any)
	if err != nil {
		return 0, err
	}
	n := 0
	for range seq {
		n++
	}
	return n, nil
}

// MemGraph is a mutable, caller-owned set of triples. It is safe for
// concurrent use. Find iterates a copy taken at call time.
type MemGraph struct {
	mu      sync.RWMutex
	triples map[quad.Triple]struct{}
}

func NewMemGraph(triples ...quad.Triple) *MemGraph {
	g := &MemGraph{triples: make(map[quad.Triple]struct{}, len(triples))}
	for _, t := range triples {
		g.triples[t] = struct{}{}
	}
	return g
}

func (g *MemGraph) Add(t quad.Triple) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.triples[t] = struct{}{}
}

func (g *MemGraph) Delete(t quad.Triple) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.triples, t)
}

func (g *MemGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.triples)
}

func (g *MemGraph) Find(_ context.Context, s, p, o quad.Node) (iter.Seq[quad.Triple], error) {
	g.mu.RLock()
	var matches []quad.Triple
	for t := range g.triples {
		if t.Matches(s, p, o) {
			matches = append(matches, t)
		}
	}
	g.mu.RUnlock()
	return func(yield func(quad.Triple) bool) {
		for _, t := range matches {
			if !yield(t) {
				return
			}
		}
	}, nil
}
