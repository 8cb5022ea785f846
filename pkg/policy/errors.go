package policy

import (
	"errors"
	"fmt"
	"strings"

	"mercator-hq/bidguard/pkg/audit"
)

var (
	// ErrPolicyHardStop is matched by every HardStopError.
	ErrPolicyHardStop = errors.New("policy hard-stop")

	// ErrInvalidRequest is returned for requests without an entity or with
	// an unknown category.
	ErrInvalidRequest = errors.New("invalid policy request")

	// ErrReasonRequired is returned when a list change has no reason.
	ErrReasonRequired = errors.New("a reason is required")
)

// HardStopError is returned with a Blocked or Rejected decision when strict
// mode is on. The in-progress bid must be aborted.
type HardStopError struct {
	Entity   string
	Category Category
	Result   audit.Result
	Reason   string
}

// Error implements the error interface.
func (e *HardStopError) Error() string {
	return "policy hard-stop: " + e.HaltReason()
}

// HaltReason describes the stop for the Final audit entry and the CLI.
func (e *HardStopError) HaltReason() string {
	return fmt.Sprintf("%s %s %s (%s)", e.Category, e.Entity, strings.ToLower(string(e.Result)), e.Reason)
}

// Is reports whether target is ErrPolicyHardStop.
func (e *HardStopError) Is(target error) bool {
	return target == ErrPolicyHardStop
}

// ConfigurationError reports list files that cannot be used together.
type ConfigurationError struct {
	Message string
	Names   []string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if len(e.Names) == 0 {
		return "policy configuration error: " + e.Message
	}
	return fmt.Sprintf("policy configuration error: %s: %s", e.Message, strings.Join(e.Names, ", "))
}

// LoadError reports a list file that could not be read or parsed.
type LoadError struct {
	// FilePath is the path to the file that failed to load
	FilePath string

	// Line is the 1-indexed line of a parse error, when known
	Line int

	// Message describes the error
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	loc := e.FilePath
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", e.FilePath, e.Line)
	}
	if e.Cause != nil {
		return fmt.Sprintf("failed to load list file %q: %s: %v", loc, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load list file %q: %s", loc, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}
