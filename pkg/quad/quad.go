package quad

import "fmt"

// Quad represents a single, atomic RDF statement within a named graph.
// It is the fundamental unit of data in the system.
type Quad struct {
	Graph     Node `json:"graph"`
	Subject   Node `json:"subject"`
	Predicate Node `json:"predicate"`
	Object    Node `json:"object"`
}

// Triple is a statement without a graph. Triples in a dataset live in the
// default graph.
type Triple struct {
	Subject   Node `json:"subject"`
	Predicate Node `json:"predicate"`
	Object    Node `json:"object"`
}

// New returns the quad (g, s, p, o).
func New(g, s, p, o Node) Quad {
	return Quad{Graph: g, Subject: s, Predicate: p, Object: o}
}

// NewTriple returns the triple (s, p, o).
func NewTriple(s, p, o Node) Triple {
	return Triple{Subject: s, Predicate: p, Object: o}
}

// InGraph places t in graph g.
func (t Triple) InGraph(g Node) Quad {
	return Quad{Graph: g, Subject: t.Subject, Predicate: t.Predicate, Object: t.Object}
}

// AsTriple drops the graph.
func (q Quad) AsTriple() Triple {
	return Triple{Subject: q.Subject, Predicate: q.Predicate, Object: q.Object}
}

// IsDefaultGraph reports whether q belongs to the default graph. A quad with
// a wildcard graph slot is treated as a default-graph statement.
func (q Quad) IsDefaultGraph() bool {
	return q.Graph.IsDefaultGraph() || q.Graph.IsAny()
}

// IsConcrete reports whether every slot holds a concrete term.
func (q Quad) IsConcrete() bool {
	return q.Graph.IsConcrete() && q.Subject.IsConcrete() &&
		q.Predicate.IsConcrete() && q.Object.IsConcrete()
}

// Matches reports whether q matches the pattern, where non-concrete slots of
// the pattern match anything.
func (q Quad) Matches(g, s, p, o Node) bool {
	return matchNode(g, q.Graph) && matchNode(s, q.Subject) &&
		matchNode(p, q.Predicate) && matchNode(o, q.Object)
}

// Matches reports whether t matches the pattern.
func (t Triple) Matches(s, p, o Node) bool {
	return matchNode(s, t.Subject) && matchNode(p, t.Predicate) && matchNode(o, t.Object)
}

func matchNode(pattern, n Node) bool {
	return !pattern.IsConcrete() || pattern == n
}

// String renders q as an N-Quads statement.
func (q Quad) String() string {
	return fmt.Sprintf("%s %s %s %s .", q.Subject, q.Predicate, q.Object, q.Graph)
}

// String renders t as an N-Triples statement.
func (t Triple) String() string {
	return fmt.Sprintf("%s %s %s .", t.Subject, t.Predicate, t.Object)
}
