package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/Iron-Ham/prefixview/internal/tui/keymap"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "buffer.scrollback")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidStopSignals returns the signals accepted for process.stop_signal
func ValidStopSignals() []string {
	return []string{"SIGTERM", "SIGINT", "SIGHUP"}
}

// These must match tui.SidebarMinWidth and tui.SidebarMaxWidth.
const (
	minSidebarWidth = 20
	maxSidebarWidth = 60
)

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateParse()...)
	errors = append(errors, c.validateBuffer()...)
	errors = append(errors, c.validateProcess()...)
	errors = append(errors, c.validateTUI()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateParse validates the ParseConfig
func (c *Config) validateParse() []ValidationError {
	var errors []ValidationError

	re, err := regexp.Compile(c.Parse.Pattern)
	switch {
	case err != nil:
		errors = append(errors, ValidationError{
			Field:   "parse.pattern",
			Value:   c.Parse.Pattern,
			Message: fmt.Sprintf("does not compile: %v", err),
		})
	case re.NumSubexp() < 2:
		errors = append(errors, ValidationError{
			Field:   "parse.pattern",
			Value:   c.Parse.Pattern,
			Message: fmt.Sprintf("needs at least 2 capture groups (key, message), has %d", re.NumSubexp()),
		})
	}

	if c.Parse.ErrorPattern != "" {
		if _, err := regexp.Compile(c.Parse.ErrorPattern); err != nil {
			errors = append(errors, ValidationError{
				Field:   "parse.error_pattern",
				Value:   c.Parse.ErrorPattern,
				Message: fmt.Sprintf("does not compile: %v", err),
			})
		}
	}

	return errors
}

// validateBuffer validates the BufferConfig
func (c *Config) validateBuffer() []ValidationError {
	var errors []ValidationError

	const maxScrollback = 1_000_000
	if c.Buffer.Scrollback < 1 || c.Buffer.Scrollback > maxScrollback {
		errors = append(errors, ValidationError{
			Field:   "buffer.scrollback",
			Value:   c.Buffer.Scrollback,
			Message: fmt.Sprintf("must be between 1 and %d", maxScrollback),
		})
	}

	const minLineBytes, maxLineBytes = 256, 16 * 1024 * 1024
	if c.Buffer.MaxLineBytes < minLineBytes || c.Buffer.MaxLineBytes > maxLineBytes {
		errors = append(errors, ValidationError{
			Field:   "buffer.max_line_bytes",
			Value:   c.Buffer.MaxLineBytes,
			Message: fmt.Sprintf("must be between %d and %d", minLineBytes, maxLineBytes),
		})
	}

	return errors
}

// validateProcess validates the ProcessConfig
func (c *Config) validateProcess() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidStopSignals(), c.Process.StopSignal) {
		errors = append(errors, ValidationError{
			Field:   "process.stop_signal",
			Value:   c.Process.StopSignal,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidStopSignals(), ", ")),
		})
	}

	const maxGracePeriodMs = 60_000
	if c.Process.GracePeriodMs < 0 || c.Process.GracePeriodMs > maxGracePeriodMs {
		errors = append(errors, ValidationError{
			Field:   "process.grace_period_ms",
			Value:   c.Process.GracePeriodMs,
			Message: fmt.Sprintf("must be between 0 and %d", maxGracePeriodMs),
		})
	}

	return errors
}

// validateTUI validates the TUIConfig
func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	if c.TUI.TickIntervalMs < 10 || c.TUI.TickIntervalMs > 1000 {
		errors = append(errors, ValidationError{
			Field:   "tui.tick_interval_ms",
			Value:   c.TUI.TickIntervalMs,
			Message: "must be between 10 and 1000",
		})
	}

	// 0 means use default
	if c.TUI.SidebarWidth != 0 {
		if c.TUI.SidebarWidth < minSidebarWidth {
			errors = append(errors, ValidationError{
				Field:   "tui.sidebar_width",
				Value:   c.TUI.SidebarWidth,
				Message: fmt.Sprintf("must be at least %d columns", minSidebarWidth),
			})
		}
		if c.TUI.SidebarWidth > maxSidebarWidth {
			errors = append(errors, ValidationError{
				Field:   "tui.sidebar_width",
				Value:   c.TUI.SidebarWidth,
				Message: fmt.Sprintf("exceeds maximum of %d columns", maxSidebarWidth),
			})
		}
	}

	if err := keymap.ValidateOverrides(c.TUI.Keys); err != nil {
		errors = append(errors, ValidationError{
			Field:   "tui.keys",
			Value:   c.TUI.Keys,
			Message: err.Error(),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// 0 disables rotation
	const maxLogSizeMB = 1000
	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 || c.Logging.MaxBackups > 100 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be between 0 and 100",
		})
	}

	return errors
}
