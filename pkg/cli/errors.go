package cli

import (
	"errors"
	"fmt"

	"mercator-hq/bidguard/pkg/policy"
)

// Process exit codes.
const (
	ExitOK     = 0
	ExitFailed = 1

	// ExitHalted means a bid or check stopped on a policy hard-stop.
	ExitHalted = 2

	// ExitTampered means the audit log failed verification.
	ExitTampered = 3
)

// ErrAuditTampered is returned by audit verification failures.
var ErrAuditTampered = errors.New("audit log failed verification")

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, policy.ErrPolicyHardStop):
		return ExitHalted
	case errors.Is(err, ErrAuditTampered):
		return ExitTampered
	default:
		return ExitFailed
	}
}
