package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// AppError is the unified error type raised by stages.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Stage is the name of the stage that raised the error, if known.
	Stage string `json:"stage,omitempty"`
	// Operation is the stage operation that failed (construct, process, flush, write, finalize).
	Operation string `json:"operation,omitempty"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	prefix := string(e.Code)
	if e.Stage != "" {
		prefix = fmt.Sprintf("%s [%s", prefix, e.Stage)
		if e.Operation != "" {
			prefix += "." + e.Operation
		}
		prefix += "]"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Kind returns the fault kind of the error.
func (e *AppError) Kind() Kind { return KindOf(e.Code) }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithStage records the stage and operation that raised the error and returns the receiver.
// Fields that are already set are kept so the innermost origin wins.
func (e *AppError) WithStage(stage, operation string) *AppError {
	if e.Stage == "" {
		e.Stage = stage
	}
	if e.Operation == "" {
		e.Operation = operation
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an AppError with the given code.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Configuration creates an error for configuration that failed to resolve or has the wrong shape.
func Configuration(message string) *AppError {
	return &AppError{Code: ErrCodeConfiguration, Message: message}
}

// EngineCreation creates an error for an engine factory failure.
func EngineCreation(engine string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeEngineCreation, Message: fmt.Sprintf("failed to create %s", engine),
		Details: map[string]any{"engine": engine}, Cause: cause,
	}
}

// Processing creates an error for a failed engine call.
func Processing(operation string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeProcessing, Message: fmt.Sprintf("%s failed", operation),
		Operation: operation, Cause: cause,
	}
}

// Lifecycle creates an error for an operation attempted in the wrong stage state.
func Lifecycle(operation, state string) *AppError {
	return &AppError{
		Code: ErrCodeLifecycle, Message: fmt.Sprintf("cannot %s in state %s", operation, state),
		Operation: operation, Details: map[string]any{"state": state},
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		Details: map[string]any{"field": field},
	}
}

// Internal creates a new AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: "an unexpected error occurred", Cause: cause}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err carries an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// KindOfError returns the fault kind of err, or KindUnknown if it is not an AppError.
func KindOfError(err error) Kind {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Kind()
	}
	return KindUnknown
}

// IsCanceled reports whether err comes from a canceled or expired context.
// Such errors are never turned into stage faults.
func IsCanceled(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
