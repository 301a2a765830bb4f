// Package quadstore defines the public, embeddable API for an in-memory,
// transactional RDF dataset. It provides snapshot-isolated transactions over
// quads held in redundant persistent indexes, and a journaled variant that
// makes any mutable backend transactional.
package quadstore

import (
	"log/slog"
	"strings"
)

// Mode is the access mode of a transaction.
type Mode int

const (
	Read Mode = iota
	Write
)

func (m Mode) String() string {
	if m == Write {
		return "WRITE"
	}
	return "READ"
}

func (m Mode) label() string { return strings.ToLower(m.String()) }

// BackendKind selects the storage behind a dataset.
type BackendKind string

const (
	// BackendMemory is the snapshot-isolated in-memory dataset.
	BackendMemory BackendKind = "memory"
	// BackendJournal is a nested-map store made transactional by a journal.
	BackendJournal BackendKind = "journal"
	// BackendBadger is a BadgerDB store made transactional by a journal.
	BackendBadger BackendKind = "badger"
	// BackendSQLite is a SQLite store made transactional by a journal.
	BackendSQLite BackendKind = "sqlite"
)

// OpenOptions provides configuration for opening a dataset.
type OpenOptions struct {
	// Backend selects the implementation. Empty means BackendMemory.
	Backend BackendKind

	// Path of the database for the badger and sqlite backends. Empty means
	// an in-memory database.
	Path string

	// The namespace to operate on, for backends that share a database.
	Namespace string

	// SeparateDefaultGraph keeps default-graph statements in their own
	// triple-indexed table instead of the quad table. Memory backend only.
	SeparateDefaultGraph bool

	// SyncWrites makes the badger backend fsync every write.
	SyncWrites bool

	// LogChanges additionally writes every journaled change to Logger at
	// INFO. Journaled backends only.
	LogChanges bool

	// Logger receives debug and error logging. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultOpenOptions returns the options used when none are given.
func DefaultOpenOptions() OpenOptions {
	return OpenOptions{
		Backend:              BackendMemory,
		SeparateDefaultGraph: true,
	}
}

func (o OpenOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}
