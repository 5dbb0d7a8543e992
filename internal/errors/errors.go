// Package errors provides centralized error definitions and error handling utilities
// for filepipe. It defines the sentinel errors of the IPC protocol, typed errors that
// carry channel and file context, and classification helpers.
//
// # Error Types
//
// Errors fall into two groups that the router and consumer treat differently:
//
// Per-message errors describe a single message file and are recorded next to the
// message in deadletter/ as a reason file. They never abort a run:
//   - ValidationError: the message is not valid JSON, lacks schema identifiers,
//     names an unknown schema, or violates its schema
//   - HandlerError: a consumer's processing function reported a failure
//
// Environment errors describe the filesystem itself and abort the current run:
//   - StoreError: permission denied, disk full, directory uncreatable, ...
//
// A lost claim race is neither: it is reported as ErrClaimLost so callers can
// skip the file silently.
//
// # Usage
//
//	err := errors.NewStoreError("claim", cause).WithChannel("commands").WithFile("a.json")
//
//	if errors.Is(err, errors.ErrClaimLost) { ... }
//	if errors.IsEnvironment(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
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
	// SeverityCritical is for errors that require immediate attention.
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

// Store-related sentinel errors
var (
	// ErrClaimLost indicates that the source file vanished before the rename,
	// meaning another actor claimed it first.
	ErrClaimLost = New("claim lost")
	// ErrInvalidName indicates a channel, owner, or file name that is not a
	// single safe path element.
	ErrInvalidName = New("invalid name")
	// ErrExists indicates the destination name is already taken. Store
	// operations never replace an existing message.
	ErrExists = New("name already taken")
)

// Validation-related sentinel errors
var (
	// ErrInvalidJSON indicates the message is not syntactically valid JSON.
	ErrInvalidJSON = New("invalid JSON")
	// ErrMissingIdentifiers indicates schemaName or schemaVersion is absent or empty.
	ErrMissingIdentifiers = New("missing schema identifiers")
	// ErrUnknownSchema indicates no contract is registered for a name/version pair.
	ErrUnknownSchema = New("unknown schema")
	// ErrSchemaViolation indicates the message fails its contract's structural checks.
	ErrSchemaViolation = New("schema violation")
	// ErrChannelMismatch indicates the message's schema family is not the one
	// its channel accepts.
	ErrChannelMismatch = New("schema not accepted on channel")
)

// Consumer-related sentinel errors
var (
	// ErrHandlerFailed indicates a consumer handler reported an error or panicked.
	ErrHandlerFailed = New("handler failed")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// PipeError is the base interface for all filepipe errors.
type PipeError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
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

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// formatWithContext renders "prefix [k=v, ...]: message: cause".
func formatWithContext(prefix string, parts []string, message string, cause error) string {
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.Join(parts, ", "))
	}
	if cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, message, cause)
	}
	return fmt.Sprintf("%s: %s", prefix, message)
}

// -----------------------------------------------------------------------------
// Store Errors
// -----------------------------------------------------------------------------

// StoreError represents a filesystem or environment failure while operating
// on a channel. These are fatal to the current run and must reach the operator.
//
// Example:
//
//	err := errors.NewStoreError("rename to outbox", cause).WithChannel("commands").WithFile("a.json")
//	fmt.Println(err) // "store error [channel=commands, file=a.json]: rename to outbox: permission denied"
type StoreError struct {
	baseError
	Channel  string
	Location string
	File     string
}

// NewStoreError creates a new StoreError. The operation names what was being
// attempted (e.g. "create directory", "rename to outbox").
func NewStoreError(op string, cause error) *StoreError {
	return &StoreError{
		baseError: baseError{
			message:   op,
			cause:     cause,
			severity:  SeverityError,
			retryable: false,
		},
	}
}

// WithChannel adds a channel name to the error context.
func (e *StoreError) WithChannel(name string) *StoreError {
	e.Channel = name
	return e
}

// WithLocation adds the directory location (e.g. "outbox", "processing/c1").
func (e *StoreError) WithLocation(loc string) *StoreError {
	e.Location = loc
	return e
}

// WithFile adds the message file name to the error context.
func (e *StoreError) WithFile(name string) *StoreError {
	e.File = name
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *StoreError) WithRetryable(r bool) *StoreError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *StoreError) Error() string {
	var parts []string
	if e.Channel != "" {
		parts = append(parts, fmt.Sprintf("channel=%s", e.Channel))
	}
	if e.Location != "" {
		parts = append(parts, fmt.Sprintf("location=%s", e.Location))
	}
	if e.File != "" {
		parts = append(parts, fmt.Sprintf("file=%s", e.File))
	}
	return formatWithContext("store error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *StoreError) Is(target error) bool {
	if _, ok := target.(*StoreError); ok {
		return true
	}
	return false
}

// -----------------------------------------------------------------------------
// Validation Errors
// -----------------------------------------------------------------------------

// ValidationError represents a message that failed admission control.
// Its Error() text is the human-readable reason written to the deadletter
// reason file.
//
// Example:
//
//	err := errors.NewValidationError(errors.ErrSchemaViolation, "commands must not be empty").
//	    WithSchema("CommandBatch@1.0.0").WithField("commands")
type ValidationError struct {
	baseError
	Kind   error
	Schema string
	Field  string
}

// NewValidationError creates a ValidationError of the given kind, which should
// be one of the validation sentinels (ErrInvalidJSON, ErrSchemaViolation, ...).
func NewValidationError(kind error, detail string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:   detail,
			severity:  SeverityWarning,
			retryable: false,
		},
		Kind: kind,
	}
}

// WithSchema adds the schema (name@version) the message was checked against.
func (e *ValidationError) WithSchema(schema string) *ValidationError {
	e.Schema = schema
	return e
}

// WithField adds the offending field path.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the reason text. It always starts with the kind so that a
// reader of a reason file can tell parse failures from schema failures.
func (e *ValidationError) Error() string {
	var sb strings.Builder
	if e.Kind != nil {
		sb.WriteString(e.Kind.Error())
	} else {
		sb.WriteString("validation failed")
	}
	if e.Schema != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Schema)
		sb.WriteString(")")
	}
	if e.message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.message)
	}
	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}
	return sb.String()
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Handler Errors
// -----------------------------------------------------------------------------

// HandlerError wraps an error reported by a consumer's processing function.
// Error() returns the handler's text verbatim so it can be preserved in the
// deadletter reason file.
type HandlerError struct {
	baseError
	ConsumerID string
	File       string
}

// NewHandlerError creates a HandlerError around the handler's error.
func NewHandlerError(cause error) *HandlerError {
	return &HandlerError{
		baseError: baseError{
			message:   "handler failed",
			cause:     cause,
			severity:  SeverityWarning,
			retryable: false,
		},
	}
}

// WithConsumer adds the consumer ID to the error context.
func (e *HandlerError) WithConsumer(id string) *HandlerError {
	e.ConsumerID = id
	return e
}

// WithFile adds the message file name to the error context.
func (e *HandlerError) WithFile(name string) *HandlerError {
	e.File = name
	return e
}

// Error returns the handler's error text verbatim.
func (e *HandlerError) Error() string {
	if e.cause == nil {
		return e.message
	}
	return e.cause.Error()
}

// Is checks if this error matches the target.
func (e *HandlerError) Is(target error) bool {
	if _, ok := target.(*HandlerError); ok {
		return true
	}
	if target == ErrHandlerFailed {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var pipeErr PipeError
	if As(err, &pipeErr) {
		return pipeErr.IsRetryable()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement PipeError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var pipeErr PipeError
	if As(err, &pipeErr) {
		return pipeErr.Severity()
	}
	return SeverityError
}

// IsEnvironment returns true if err is an environment-level failure that must
// abort the current run: a StoreError, or any error that is neither a
// per-message error nor a lost claim.
func IsEnvironment(err error) bool {
	if err == nil {
		return false
	}
	var storeErr *StoreError
	if As(err, &storeErr) {
		return true
	}
	return !IsPerMessage(err) && !Is(err, ErrClaimLost)
}

// IsPerMessage returns true if err describes a single message (validation or
// handler failure) and should be recorded in deadletter rather than aborting.
func IsPerMessage(err error) bool {
	if err == nil {
		return false
	}
	var validation *ValidationError
	var handler *HandlerError
	return As(err, &validation) || As(err, &handler)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to route commands")
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
