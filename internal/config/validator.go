package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Iron-Ham/filepipe/internal/store"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "router.idle_interval_ms")
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

// ValidLogFormats returns the list of valid stderr log formats
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateIPC()...)
	errors = append(errors, c.validateRouter()...)
	errors = append(errors, c.validateConsumer()...)
	errors = append(errors, c.validateChannels()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateIPC() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.IPC.Root) == "" {
		errors = append(errors, ValidationError{
			Field:   "ipc.root",
			Value:   c.IPC.Root,
			Message: "must not be empty",
		})
	}

	return errors
}

func (c *Config) validateRouter() []ValidationError {
	var errors []ValidationError

	if c.Router.ID != "" {
		if err := store.ValidateName(c.Router.ID); err != nil {
			errors = append(errors, ValidationError{
				Field:   "router.id",
				Value:   c.Router.ID,
				Message: "must be a single path element",
			})
		}
	}
	errors = append(errors, validateLoop("router", c.Router.IdleIntervalMs, c.Router.MaxPerRun)...)

	return errors
}

func (c *Config) validateConsumer() []ValidationError {
	return validateLoop("consumer", c.Consumer.IdleIntervalMs, c.Consumer.MaxPerRun)
}

// validateLoop checks the settings routers and consumers share
func validateLoop(prefix string, idleMs, maxPerRun int) []ValidationError {
	var errors []ValidationError

	if idleMs < 10 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".idle_interval_ms",
			Value:   idleMs,
			Message: "must be at least 10",
		})
	} else if idleMs > 60000 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".idle_interval_ms",
			Value:   idleMs,
			Message: "must be at most 60000 (1 minute)",
		})
	}

	if maxPerRun < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_per_run",
			Value:   maxPerRun,
			Message: "must be non-negative (0 = unlimited)",
		})
	}

	return errors
}

func (c *Config) validateChannels() []ValidationError {
	var errors []ValidationError

	for _, name := range c.ChannelNames() {
		if err := store.ValidateName(name); err != nil {
			errors = append(errors, ValidationError{
				Field:   "channels." + name,
				Value:   name,
				Message: "channel name must be a single path element",
			})
		}
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.Format != "" && !slices.Contains(ValidLogFormats(), strings.ToLower(c.Logging.Format)) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB < 1 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be at least 1",
		})
	} else if c.Logging.MaxSizeMB > 500 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be at most 500",
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	} else if c.Logging.MaxBackups > 20 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be at most 20",
		})
	}

	return errors
}
