// Package memstore is a mutable in-memory Backend built from nested Go maps.
package memstore

import (
	"context"
	"sync"

	"github.com/mannyrivera2010/go-quadmem/internal/storage"
	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

type (
	objects    map[quad.Node]struct{}
	predicates map[quad.Node]objects
	subjects   map[quad.Node]predicates
)

// Store keeps quads as graph → subject → predicate → objects. Empty levels
// are removed on delete.
type Store struct {
	mu     sync.RWMutex
	graphs map[quad.Node]subjects
	size   int
	closed bool
}

var _ storage.Backend = (*Store)(nil)

func New() *Store {
	return &Store{graphs: make(map[quad.Node]subjects)}
}

func (s *Store) Add(_ context.Context, q quad.Quad) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, storage.ErrClosed
	}
	subs, ok := s.graphs[q.Graph]
	if !ok {
		subs = make(subjects)
		s.graphs[q.Graph] = subs
	}
	preds, ok := subs[q.Subject]
	if !ok {
		preds = make(predicates)
		subs[q.Subject] = preds
	}
	objs, ok := preds[q.Predicate]
	if !ok {
		objs = make(objects)
		preds[q.Predicate] = objs
	}
	if _, ok := objs[q.Object]; ok {
		return false, nil
	}
	objs[q.Object] = struct{}{}
	s.size++
	return true, nil
}

func (s *Store) Delete(_ context.Context, q quad.Quad) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, storage.ErrClosed
	}
	objs, ok := s.graphs[q.Graph][q.Subject][q.Predicate]
	if !ok {
		return false, nil
	}
	if _, ok := objs[q.Object]; !ok {
		return false, nil
	}
	delete(objs, q.Object)
	s.size--
	if len(objs) == 0 {
		preds := s.graphs[q.Graph][q.Subject]
		delete(preds, q.Predicate)
		if len(preds) == 0 {
			delete(s.graphs[q.Graph], q.Subject)
			if len(s.graphs[q.Graph]) == 0 {
				delete(s.graphs, q.Graph)
			}
		}
	}
	return true, nil
}

func (s *Store) Contains(_ context.Context, q quad.Quad) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, storage.ErrClosed
	}
	_, ok := s.graphs[q.Graph][q.Subject][q.Predicate][q.Object]
	return ok, nil
}

func (s *Store) Find(_ context.Context, pattern quad.Quad) ([]quad.Quad, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	var out []quad.Quad
	for g, subs := range pick(s.graphs, pattern.Graph) {
		for sub, preds := range pick(subs, pattern.Subject) {
			for p, objs := range pick(preds, pattern.Predicate) {
				for o := range pick(objs, pattern.Object) {
					out = append(out, quad.New(g, sub, p, o))
				}
			}
		}
	}
	return out, nil
}

// pick narrows m to the single entry for key when key is concrete.
func pick[V any](m map[quad.Node]V, key quad.Node) map[quad.Node]V {
	if !key.IsConcrete() {
		return m
	}
	v, ok := m[key]
	if !ok {
		return nil
	}
	return map[quad.Node]V{key: v}
}

func (s *Store) Graphs(context.Context) ([]quad.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	out := make([]quad.Node, 0, len(s.graphs))
	for g := range s.graphs {
		out = append(out, g)
	}
	return out, nil
}

func (s *Store) Len(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, storage.ErrClosed
	}
	return s.size, nil
}

func (s *Store) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.graphs = make(map[quad.Node]subjects)
	s.size = 0
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.graphs = nil
	return nil
}
