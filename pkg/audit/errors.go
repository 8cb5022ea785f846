package audit

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when recording to a closed sink.
	ErrClosed = errors.New("audit sink is closed")

	// ErrCorruptLog is returned when an existing audit log cannot be parsed.
	ErrCorruptLog = errors.New("audit log is corrupt")

	// ErrInvalidEntry is returned for entries with unknown event types or
	// results, without an entity, or with a field over MaxFieldLength.
	ErrInvalidEntry = errors.New("invalid audit entry")
)

// StorageError represents an error from an audit backend.
type StorageError struct {
	Backend   string // "file", "sqlite", "memory"
	Operation string // "open", "record", "query", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// MaxFieldLength is the longest text field, in bytes, an entry may carry.
// It keeps every formatted line well inside the reader's line buffer.
const MaxFieldLength = 16 * 1024

// maxLineLength bounds one line of the file log, newline included.
const maxLineLength = 1024 * 1024

func validateEntry(e *Entry) error {
	if !e.EventType.Valid() {
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidEntry, e.EventType)
	}
	if !e.Result.Valid() {
		return fmt.Errorf("%w: unknown result %q", ErrInvalidEntry, e.Result)
	}
	if e.Entity == "" {
		return fmt.Errorf("%w: entity is required", ErrInvalidEntry)
	}
	for _, f := range []struct{ name, value string }{
		{"entity", e.Entity},
		{"category", e.Category},
		{"reason", e.Reason},
		{"bid_id", e.BidID},
		{"actor", e.Actor},
	} {
		if len(f.value) > MaxFieldLength {
			return fmt.Errorf("%w: %s is %d bytes, limit %d", ErrInvalidEntry, f.name, len(f.value), MaxFieldLength)
		}
	}
	return nil
}
