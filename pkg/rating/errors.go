package rating

import (
	"errors"
	"fmt"
)

// ErrUnknownEntity is returned when trust is restored for an entity the
// ledger has never seen.
var ErrUnknownEntity = errors.New("unknown entity")

// InvalidInputError reports a rating input that cannot be scored. The
// ledger is never changed when it is returned.
type InvalidInputError struct {
	Entity  string
	Field   string
	Message string
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("invalid rating input: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid rating input for %q: %s: %s", e.Entity, e.Field, e.Message)
}
