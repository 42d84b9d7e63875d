// Package errors provides the error taxonomy for prefixview.
//
// # Error Types
//
// Three domain error types cover the failure classes of a session:
//   - ConfigError: bad pattern, empty or unspawnable command, unusable
//     terminal. Always fatal, reported before the dashboard starts.
//   - StreamError: an I/O failure while reading one of the child's output
//     streams. The stream is treated as closed and the session continues.
//   - TerminationError: the child or its process group survived the
//     terminate and kill signals. Reported as a warning, teardown continues.
//
// ExitError carries the child's exit status out of the root command so the
// host process can exit with the same code.
//
// # Usage
//
//	err := errors.NewConfigError("pattern needs two capture groups", errors.ErrTooFewGroups).
//		WithField("parse.pattern").WithValue(pattern)
//
//	if errors.IsFatal(err) { ... }
//
//	var streamErr *errors.StreamError
//	if errors.As(err, &streamErr) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that stop the session from starting.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Configuration sentinel errors
var (
	// ErrInvalidPattern indicates that a regular expression failed to compile.
	ErrInvalidPattern = New("invalid pattern")
	// ErrTooFewGroups indicates that the grouping pattern has fewer than two capture groups.
	ErrTooFewGroups = New("pattern needs at least two capture groups")
	// ErrEmptyCommand indicates that no command was given to run.
	ErrEmptyCommand = New("no command given")
	// ErrSpawnFailed indicates that the child process could not be started.
	ErrSpawnFailed = New("failed to start command")
	// ErrNotTerminal indicates that stdout is not attached to a terminal.
	ErrNotTerminal = New("stdout is not a terminal")
)

// Runtime sentinel errors
var (
	// ErrStreamRead indicates an I/O failure on a child output stream.
	ErrStreamRead = New("stream read failed")
	// ErrKillFailed indicates that a signal could not be delivered to the process group.
	ErrKillFailed = New("failed to signal process group")
	// ErrProcessLingering indicates that the child was still alive after the forceful kill.
	ErrProcessLingering = New("process still running after kill")
	// ErrNotStarted indicates an operation on a supervisor whose child never started.
	ErrNotStarted = New("process not started")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// PrefixviewError is the base interface for all prefixview errors.
type PrefixviewError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsFatal returns true if the session cannot continue.
	IsFatal() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	fatal      bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsFatal returns whether the error ends the session.
func (e *baseError) IsFatal() bool {
	return e.fatal
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// format renders "prefix [k=v, ...]: message: cause".
func (e *baseError) format(prefix string, parts []string) string {
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ConfigError represents a configuration problem detected before the
// dashboard starts.
//
// Example:
//
//	err := errors.NewConfigError("bad grouping pattern", errors.ErrTooFewGroups)
//	err = err.WithField("parse.pattern").WithValue(`^(\w+)`)
//	fmt.Println(err) // "config error [field=parse.pattern, value=^(\w+)]: bad grouping pattern: pattern needs at least two capture groups"
type ConfigError struct {
	baseError
	Field string
	Value any
}

// NewConfigError creates a new ConfigError.
func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityCritical,
			fatal:      true,
			userFacing: true,
		},
	}
}

// WithField adds the offending configuration key.
func (e *ConfigError) WithField(field string) *ConfigError {
	e.Field = field
	return e
}

// WithValue adds the offending value.
func (e *ConfigError) WithValue(value any) *ConfigError {
	e.Value = value
	return e
}

// Error returns the formatted error message.
func (e *ConfigError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return e.format("config error", parts)
}

// Is checks if this error matches the target.
func (e *ConfigError) Is(target error) bool {
	_, ok := target.(*ConfigError)
	return ok
}

// StreamError represents a read failure on stdout or stderr of the child.
type StreamError struct {
	baseError
	Stream string
}

// NewStreamError creates a new StreamError.
func NewStreamError(stream string, cause error) *StreamError {
	return &StreamError{
		baseError: baseError{
			message:    "read failed",
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
		Stream: stream,
	}
}

// Error returns the formatted error message.
func (e *StreamError) Error() string {
	var parts []string
	if e.Stream != "" {
		parts = append(parts, fmt.Sprintf("stream=%s", e.Stream))
	}
	return e.format("stream error", parts)
}

// Is checks if this error matches the target.
func (e *StreamError) Is(target error) bool {
	if _, ok := target.(*StreamError); ok {
		return true
	}
	return target == ErrStreamRead
}

// TerminationError represents a child that could not be stopped cleanly.
//
// Example:
//
//	err := errors.NewTerminationError("kill failed", errors.ErrKillFailed).
//		WithPID(4242).WithSignal(syscall.SIGKILL)
type TerminationError struct {
	baseError
	PID    int
	Signal syscall.Signal
}

// NewTerminationError creates a new TerminationError.
func NewTerminationError(message string, cause error) *TerminationError {
	return &TerminationError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithPID adds the process group id to the error context.
func (e *TerminationError) WithPID(pid int) *TerminationError {
	e.PID = pid
	return e
}

// WithSignal adds the signal that was being delivered.
func (e *TerminationError) WithSignal(sig syscall.Signal) *TerminationError {
	e.Signal = sig
	return e
}

// Error returns the formatted error message.
func (e *TerminationError) Error() string {
	var parts []string
	if e.PID != 0 {
		parts = append(parts, fmt.Sprintf("pid=%d", e.PID))
	}
	if e.Signal != 0 {
		parts = append(parts, fmt.Sprintf("signal=%s", e.Signal))
	}
	return e.format("termination error", parts)
}

// Is checks if this error matches the target.
func (e *TerminationError) Is(target error) bool {
	_, ok := target.(*TerminationError)
	return ok
}

// ExitError carries the child's exit code out of the command layer. It is
// not printed; the entry point exits with Code.
type ExitError struct {
	Code int
}

// Error returns the formatted error message.
func (e *ExitError) Error() string {
	return fmt.Sprintf("child exited with code %d", e.Code)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsFatal returns true if the error must end the session. Errors that do not
// implement PrefixviewError are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var pvErr PrefixviewError
	if As(err, &pvErr) {
		return pvErr.IsFatal()
	}
	return true
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var pvErr PrefixviewError
	if As(err, &pvErr) {
		return pvErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement PrefixviewError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var pvErr PrefixviewError
	if As(err, &pvErr) {
		return pvErr.Severity()
	}
	return SeverityError
}

// ExitCode returns the code carried by an ExitError in err's chain.
func ExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
