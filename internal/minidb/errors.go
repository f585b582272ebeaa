package minidb

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds means a page index outside of the allocated range was
	// requested. It always indicates a bug or a corrupt tree.
	ErrOutOfBounds = errors.New("page index out of bounds")
	// ErrDuplicateKey is returned when inserting a key that already exists.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrSchemaMismatch means bytes read from a page do not match the layout
	// expected by the row or node codec.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrTableFull is returned when a new page would exceed the page limit.
	ErrTableFull = errors.New("table full")
	// ErrNotFound is returned by point lookups for missing keys.
	ErrNotFound = errors.New("not found")
	// ErrNoMoreRows marks the end of an iterator.
	ErrNoMoreRows = errors.New("no more rows")
	// ErrStringTooLong is returned when a text field does not fit its column.
	ErrStringTooLong = errors.New("string is too long")
	// ErrInvalidText is returned for text fields containing NUL bytes.
	ErrInvalidText = errors.New("invalid text")

	errUnrecognizedStatementType = fmt.Errorf("unrecognised statement type")
)

// IOError wraps a failed read or write of the backing file.
type IOError struct {
	Op      string
	PageIdx PageIndex
	Err     error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s page %d: %v", e.Op, e.PageIdx, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err leaves the database in a state where the
// session must not continue. Duplicate keys, a full table and lookups of
// missing rows are recoverable, anything touching I/O or page layout is not.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		return true
	}
	return errors.Is(err, ErrOutOfBounds) || errors.Is(err, ErrSchemaMismatch)
}
