package override

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRecord is returned for records missing required fields.
var ErrInvalidRecord = errors.New("invalid override record")

// StorageError represents an error from an override backend.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("override storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// prepare validates rec and fills its defaults.
func prepare(rec *Record, now func() time.Time) error {
	if strings.TrimSpace(rec.Entity) == "" {
		return fmt.Errorf("%w: entity is required", ErrInvalidRecord)
	}
	if strings.TrimSpace(rec.Reason) == "" {
		return fmt.Errorf("%w: reason is required", ErrInvalidRecord)
	}
	switch rec.Kind {
	case KindBypass, KindEmergency:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRecord, rec.Kind)
	}
	if rec.AuthorizedBy == "" {
		rec.AuthorizedBy = "unspecified"
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = now()
	}
	rec.Timestamp = rec.Timestamp.UTC()
	return nil
}
