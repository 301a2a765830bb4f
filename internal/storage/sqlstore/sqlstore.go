// Package sqlstore is a Backend on top of SQLite.
//
// Terms are stored in their N-Triples text form, one row per quad, keyed by
// namespace.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mannyrivera2010/go-quadmem/internal/storage"
	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
	ns string
}

var _ storage.Backend = (*Store)(nil)

// Open creates or opens the database at path. ":memory:" gives a private
// in-memory database.
func Open(path, namespace string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: SQLite has a single writer, and an in-memory database
	// exists per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}
	return &Store{db: db, ns: namespace}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func terms(q quad.Quad) []any {
	return []any{q.Graph.String(), q.Subject.String(), q.Predicate.String(), q.Object.String()}
}

func (s *Store) exec(ctx context.Context, query string, q quad.Quad) (bool, error) {
	res, err := s.db.ExecContext(ctx, query, append([]any{s.ns}, terms(q)...)...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Add(ctx context.Context, q quad.Quad) (bool, error) {
	added, err := s.exec(ctx,
		`INSERT OR IGNORE INTO quads (ns, g, s, p, o) VALUES (?, ?, ?, ?, ?)`, q)
	if err != nil {
		return false, fmt.Errorf("sqlstore: add %s: %w", q, err)
	}
	return added, nil
}

func (s *Store) Delete(ctx context.Context, q quad.Quad) (bool, error) {
	removed, err := s.exec(ctx,
		`DELETE FROM quads WHERE ns = ? AND g = ? AND s = ? AND p = ? AND o = ?`, q)
	if err != nil {
		return false, fmt.Errorf("sqlstore: delete %s: %w", q, err)
	}
	return removed, nil
}

func (s *Store) Contains(ctx context.Context, q quad.Quad) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM quads WHERE ns = ? AND g = ? AND s = ? AND p = ? AND o = ?`,
		append([]any{s.ns}, terms(q)...)...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlstore: contains: %w", err)
	}
	return true, nil
}

func (s *Store) Find(ctx context.Context, pattern quad.Quad) ([]quad.Quad, error) {
	var b strings.Builder
	b.WriteString(`SELECT g, s, p, o FROM quads WHERE ns = ?`)
	args := []any{s.ns}
	for i, n := range []quad.Node{pattern.Graph, pattern.Subject, pattern.Predicate, pattern.Object} {
		if n.IsConcrete() {
			b.WriteString(" AND " + [...]string{"g", "s", "p", "o"}[i] + " = ?")
			args = append(args, n.String())
		}
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: find: %w", err)
	}
	defer rows.Close()

	var out []quad.Quad
	for rows.Next() {
		var g, sub, p, o string
		if err := rows.Scan(&g, &sub, &p, &o); err != nil {
			return nil, fmt.Errorf("sqlstore: scan: %w", err)
		}
		q, err := parseQuad(g, sub, p, o)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func parseQuad(terms ...string) (quad.Quad, error) {
	var nodes [4]quad.Node
	for i, t := range terms {
		n, err := quad.ParseNode(t)
		if err != nil {
			return quad.Quad{}, fmt.Errorf("sqlstore: stored term %q: %w", t, err)
		}
		nodes[i] = n
	}
	return quad.New(nodes[0], nodes[1], nodes[2], nodes[3]), nil
}

func (s *Store) Graphs(ctx context.Context) ([]quad.Node, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT g FROM quads WHERE ns = ?`, s.ns)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: graphs: %w", err)
	}
	defer rows.Close()

	var out []quad.Node
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("sqlstore: scan: %w", err)
		}
		n, err := quad.ParseNode(g)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: stored graph %q: %w", g, err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quads WHERE ns = ?`, s.ns).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlstore: count: %w", err)
	}
	return n, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM quads WHERE ns = ?`, s.ns); err != nil {
		return fmt.Errorf("sqlstore: clear: %w", err)
	}
	return nil
}

// Close closes the database connection. Calls after Close fail.
func (s *Store) Close() error {
	return s.db.Close()
}
