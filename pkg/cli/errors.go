package cli

import (
	"context"
	"errors"
	"fmt"
)

// Process exit statuses.
const (
	ExitFailure     = 1
	ExitConfig      = 2
	ExitInterrupted = 130
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Path    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

// Unwrap returns the underlying cause error.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError for the file at path.
func NewConfigError(path string, err error) *ConfigError {
	msg := "invalid configuration"
	if err != nil {
		msg = err.Error()
	}
	return &ConfigError{
		Path:    path,
		Message: msg,
		Err:     err,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps the error returned by a command to a process exit status.
// A command cut short by SIGINT or SIGTERM exits with ExitInterrupted.
func ExitCode(err error) int {
	var cfgErr *ConfigError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &cfgErr):
		return ExitConfig
	default:
		return ExitFailure
	}
}
