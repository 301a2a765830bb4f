package quadstore

import (
	"errors"
	"fmt"

	"github.com/mannyrivera2010/go-quadmem/pkg/quad"
)

var (
	// ErrInvalidQuad is returned when a quad cannot be stored: its subject,
	// predicate or object is not concrete, or its graph is a variable or the
	// union graph.
	ErrInvalidQuad = errors.New("quadstore: invalid quad")

	// ErrInvalidGraph is returned when a graph name cannot be written to.
	ErrInvalidGraph = errors.New("quadstore: invalid graph name")

	// ErrClosed is returned by calls made after Close.
	ErrClosed = errors.New("quadstore: dataset closed")
)

// TransactionError reports misuse of the transaction lifecycle. These are
// programming errors in the caller and are never retried internally.
type TransactionError struct {
	// Code identifies the error category.
	Code TransactionErrorCode

	// Op is the dataset method that failed, e.g. "Commit".
	Op string

	// Message is a human-readable description.
	Message string
}

// TransactionErrorCode categorizes transaction errors.
type TransactionErrorCode string

const (
	// ErrCodeNestedTransaction indicates Begin on a context that already
	// carries an active transaction of the same dataset.
	ErrCodeNestedTransaction TransactionErrorCode = "NESTED_TRANSACTION"

	// ErrCodeNoTransaction indicates Commit or Abort with no active
	// transaction.
	ErrCodeNoTransaction TransactionErrorCode = "NO_TRANSACTION"

	// ErrCodeNotWriteTransaction indicates Commit of a READ transaction.
	ErrCodeNotWriteTransaction TransactionErrorCode = "NOT_WRITE_TRANSACTION"

	// ErrCodeReadOnlyTransaction indicates a mutation inside a READ
	// transaction.
	ErrCodeReadOnlyTransaction TransactionErrorCode = "READ_ONLY_TRANSACTION"
)

// Error implements the error interface.
func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
}

func newNestedError(op string) *TransactionError {
	return &TransactionError{
		Code:    ErrCodeNestedTransaction,
		Op:      op,
		Message: "already in a transaction",
	}
}

func newNoTransactionError(op string) *TransactionError {
	return &TransactionError{
		Code:    ErrCodeNoTransaction,
		Op:      op,
		Message: "not in a transaction",
	}
}

func newNotWriteError(op string) *TransactionError {
	return &TransactionError{
		Code:    ErrCodeNotWriteTransaction,
		Op:      op,
		Message: "transaction is not a write transaction",
	}
}

func newReadOnlyError(op string) *TransactionError {
	return &TransactionError{
		Code:    ErrCodeReadOnlyTransaction,
		Op:      op,
		Message: "cannot mutate inside a read transaction",
	}
}

func hasCode(err error, code TransactionErrorCode) bool {
	var te *TransactionError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// IsNestedTransaction reports whether err is a nested Begin error.
// Uses errors.As to handle wrapped errors.
func IsNestedTransaction(err error) bool { return hasCode(err, ErrCodeNestedTransaction) }

// IsNoTransaction reports whether err came from Commit or Abort outside a
// transaction.
func IsNoTransaction(err error) bool { return hasCode(err, ErrCodeNoTransaction) }

func IsNotWriteTransaction(err error) bool { return hasCode(err, ErrCodeNotWriteTransaction) }

func IsReadOnlyTransaction(err error) bool { return hasCode(err, ErrCodeReadOnlyTransaction) }

// RollbackError is returned by Abort when replaying the journal fails.
// Remaining holds the journal entries that were not undone, most recent
// first, starting with the one whose inverse failed.
type RollbackError struct {
	Remaining []quad.Change
	Err       error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback failed with %d change(s) not undone: %v", len(e.Remaining), e.Err)
}

func (e *RollbackError) Unwrap() error { return e.Err }

func invalidQuad(q quad.Quad, why string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidQuad, why, q)
}
