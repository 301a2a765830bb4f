// Package badgerstore is a Backend on top of BadgerDB.
//
// Each quad is one key: "quad:" and the namespace, then the graph, subject,
// predicate and object terms. The namespace and every term are written as a
// uvarint length followed by the text, so no namespace's keys are a prefix
// of another's. The value is the quad's JSON encoding. Lookups scan the
// longest key prefix the pattern binds in G, S, P, O order and filter the rest.
package badgerstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/mannyrivera2010/go-quadmem/internal/storage"
	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	InMemory bool

	SyncWrites bool

	// Namespace prefixes every key so several stores can share one database.
	Namespace string

	// Logger receives BadgerDB's internal logging. If nil, it is discarded.
	Logger *slog.Logger
}

// badgerLogger adapts slog to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

// Infof is routine level and compaction chatter; it goes out at debug.
func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

type Store struct {
	db     *badger.DB
	prefix []byte
	closed atomic.Bool
}

var _ storage.Backend = (*Store)(nil)

// Open opens (or creates) the database described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badgerstore: path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db, prefix: namespacePrefix(cfg.Namespace)}, nil
}

func namespacePrefix(ns string) []byte {
	k := []byte("quad:")
	k = binary.AppendUvarint(k, uint64(len(ns)))
	return append(k, ns...)
}

func appendTerm(buf []byte, n quad.Node) []byte {
	s := n.String()
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func (s *Store) key(q quad.Quad) []byte {
	k := bytes.Clone(s.prefix)
	for _, n := range []quad.Node{q.Graph, q.Subject, q.Predicate, q.Object} {
		k = appendTerm(k, n)
	}
	return k
}

// scanPrefix returns the key prefix fixed by the pattern's leading concrete
// slots.
func (s *Store) scanPrefix(pattern quad.Quad) []byte {
	k := bytes.Clone(s.prefix)
	for _, n := range []quad.Node{pattern.Graph, pattern.Subject, pattern.Predicate, pattern.Object} {
		if !n.IsConcrete() {
			break
		}
		k = appendTerm(k, n)
	}
	return k
}

// graphOf decodes the graph term from a key.
func (s *Store) graphOf(key []byte) (quad.Node, error) {
	rest := key[len(s.prefix):]
	n, w := binary.Uvarint(rest)
	if w <= 0 || uint64(len(rest)-w) < n {
		return quad.Any, fmt.Errorf("badgerstore: corrupt key %q", key)
	}
	return quad.ParseNode(string(rest[w : w+int(n)]))
}

func (s *Store) check() error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	return nil
}

func (s *Store) Add(_ context.Context, q quad.Quad) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	value, err := json.Marshal(q)
	if err != nil {
		return false, err
	}
	key := s.key(q)
	added := false
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		added = true
		return txn.Set(key, value)
	})
	if err != nil {
		return false, fmt.Errorf("badgerstore: add %s: %w", q, err)
	}
	return added, nil
}

func (s *Store) Delete(_ context.Context, q quad.Quad) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	key := s.key(q)
	removed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		removed = true
		return txn.Delete(key)
	})
	if err != nil {
		return false, fmt.Errorf("badgerstore: delete %s: %w", q, err)
	}
	return removed, nil
}

func (s *Store) Contains(_ context.Context, q quad.Quad) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	key := s.key(q)
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	return found, err
}

func (s *Store) Find(ctx context.Context, pattern quad.Quad) ([]quad.Quad, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	prefix := s.scanPrefix(pattern)
	var out []quad.Quad
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var q quad.Quad
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &q)
			}); err != nil {
				return err
			}
			if q.Matches(pattern.Graph, pattern.Subject, pattern.Predicate, pattern.Object) {
				out = append(out, q)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badgerstore: find: %w", err)
	}
	return out, nil
}

// keys calls fn for every key in the namespace without loading values.
func (s *Store) keys(fn func(key []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = s.prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := fn(it.Item().Key()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Graphs(context.Context) ([]quad.Node, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	seen := make(map[quad.Node]struct{})
	var out []quad.Node
	err := s.keys(func(key []byte) error {
		g, err := s.graphOf(key)
		if err != nil {
			return err
		}
		if _, dup := seen[g]; !dup {
			seen[g] = struct{}{}
			out = append(out, g)
		}
		return nil
	})
	return out, err
}

func (s *Store) Len(context.Context) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	n := 0
	err := s.keys(func([]byte) error {
		n++
		return nil
	})
	return n, err
}

func (s *Store) Clear(context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	if err := s.db.DropPrefix(s.prefix); err != nil {
		return fmt.Errorf("badgerstore: clear: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
