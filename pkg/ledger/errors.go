package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyMissing is returned when no key provider yields a key. Load
	// never falls back to an empty ledger when a ledger file exists.
	ErrKeyMissing = errors.New("ledger key is missing")

	// ErrLedgerCorrupt is matched by every CorruptionError.
	ErrLedgerCorrupt = errors.New("ledger is corrupt")

	// ErrSessionClosed is returned when using a closed session.
	ErrSessionClosed = errors.New("ledger session is closed")

	// ErrInvalidKey is returned for keys that are not 32 hex-encoded bytes.
	ErrInvalidKey = errors.New("invalid ledger key")
)

// CorruptionError reports a ledger file that could not be decrypted or
// decoded. It is fatal for the session.
type CorruptionError struct {
	Path   string
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *CorruptionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ledger %s is corrupt: %s: %v", e.Path, e.Reason, e.Cause)
	}
	return fmt.Sprintf("ledger %s is corrupt: %s", e.Path, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *CorruptionError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrLedgerCorrupt.
func (e *CorruptionError) Is(target error) bool {
	return target == ErrLedgerCorrupt
}

// StorageError represents a ledger IO failure.
type StorageError struct {
	Operation string // "load", "save", "generate_key", ...
	Path      string
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger storage error [operation=%s, path=%s]: %v", e.Operation, e.Path, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}
