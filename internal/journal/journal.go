// Package journal records quad changes so that a store with no native
// rollback can undo them.
package journal

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

// ErrWriteOnly is returned when consuming a record that keeps no entries.
var ErrWriteOnly = errors.New("journal: record is write-only")

// OperationRecord is an ordered log of changes.
type OperationRecord interface {
	// Add appends c.
	Add(c quad.Change)
	// Len returns the number of retained entries.
	Len() int
	// Reverse flips the order of the retained entries.
	Reverse()
	// Consume passes entries to fn in order. Each entry is removed only after
	// fn returns nil for it; on error the entry and everything after it stay.
	Consume(fn func(quad.Change) error) error
	// Clear drops every entry.
	Clear()
}

// Record is an in-memory OperationRecord. The zero value is ready to use. It
// is not safe for concurrent use.
type Record struct {
	ops []quad.Change
}

func NewRecord() *Record { return &Record{} }

func (r *Record) Add(c quad.Change) { r.ops = append(r.ops, c) }

func (r *Record) Len() int { return len(r.ops) }

// Ops returns a copy of the entries.
func (r *Record) Ops() []quad.Change { return slices.Clone(r.ops) }

func (r *Record) Reverse() { slices.Reverse(r.ops) }

func (r *Record) Consume(fn func(quad.Change) error) error {
	for len(r.ops) > 0 {
		if err := fn(r.ops[0]); err != nil {
			return err
		}
		r.ops[0] = quad.Change{}
		r.ops = r.ops[1:]
	}
	r.ops = nil
	return nil
}

func (r *Record) Clear() { r.ops = nil }

// Undo reverses r and applies the inverse of each entry to m, so the most
// recent change is undone first. It stops at the first failure, leaving the
// entries not yet undone in r.
func Undo(ctx context.Context, r OperationRecord, m quad.Mutable) error {
	r.Reverse()
	return r.Consume(func(c quad.Change) error {
		return quad.Apply(ctx, quad.Invert(c), m)
	})
}

// LogRecord writes every change to a logger and retains nothing.
type LogRecord struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogRecord logs changes at INFO to logger, or slog.Default() if nil.
func NewLogRecord(logger *slog.Logger) *LogRecord {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogRecord{logger: logger, level: slog.LevelInfo}
}

func (l *LogRecord) Add(c quad.Change) {
	l.logger.Log(context.Background(), l.level, "quad change",
		"op", c.Type.String(),
		"quad", c.Quad.String(),
	)
}

func (l *LogRecord) Len() int { return 0 }

func (l *LogRecord) Reverse() {}

func (l *LogRecord) Consume(func(quad.Change) error) error { return ErrWriteOnly }

func (l *LogRecord) Clear() {}

// Tee fans every Add out to several records. Len, Reverse, Consume and Clear
// act on the first one only.
type Tee []OperationRecord

func (t Tee) Add(c quad.Change) {
	for _, r := range t {
		r.Add(c)
	}
}

func (t Tee) Len() int { return t[0].Len() }

func (t Tee) Reverse() { t[0].Reverse() }

func (t Tee) Consume(fn func(quad.Change) error) error { return t[0].Consume(fn) }

func (t Tee) Clear() {
	for _, r := range t {
		r.Clear()
	}
}
