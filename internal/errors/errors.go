package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// IndexError is the structured error type for licindex.
// It provides rich context for error handling, logging, and user presentation.
type IndexError struct {
	// Code is the unique error code (e.g., "ERR_201_PUBLICATION_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Data, Availability, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *IndexError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *IndexError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with IndexError.
func (e *IndexError) Is(target error) bool {
	if t, ok := target.(*IndexError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *IndexError) WithDetail(key, value string) *IndexError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *IndexError) WithSuggestion(suggestion string) *IndexError {
	e.Suggestion = suggestion
	return e
}

// New creates a new IndexError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *IndexError {
	return &IndexError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an IndexError from an existing error.
// The error's message becomes the IndexError message.
func Wrap(code string, err error) *IndexError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// NotFound creates the error for a publication id absent from the source.
func NotFound(id int64) *IndexError {
	return New(ErrCodePublicationNotFound, fmt.Sprintf("publication %d not found", id), nil)
}

// JobNotFound creates the error for an unknown job id.
func JobNotFound(jobID string) *IndexError {
	return New(ErrCodeJobNotFound, fmt.Sprintf("job %s not found", jobID), nil)
}

// SourceUnavailable creates the error for an unreachable data source.
func SourceUnavailable(message string, cause error) *IndexError {
	return New(ErrCodeSourceUnavailable, message, cause)
}

// IndexUnavailable creates the error for an unreachable search index.
func IndexUnavailable(message string, cause error) *IndexError {
	return New(ErrCodeIndexUnavailable, message, cause)
}

// StoreError creates a persistence-related error.
func StoreError(message string, cause error) *IndexError {
	return New(ErrCodeStoreFailed, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *IndexError {
	return New(ErrCodeInvalidParams, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *IndexError {
	return New(ErrCodeInternal, message, cause)
}

// IsNotFound checks if an error means the requested publication is absent.
func IsNotFound(err error) bool {
	return GetCode(err) == ErrCodePublicationNotFound
}

// IsCancelled checks if an error represents cooperative cancellation,
// either via context cancellation or an explicit cancelled code.
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) {
		return true
	}
	return GetCode(err) == ErrCodeCancelled
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is an IndexError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ie *IndexError
	if stderrors.As(err, &ie) {
		return ie.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var ie *IndexError
	if stderrors.As(err, &ie) {
		return ie.Severity == SeverityFatal
	}
	return false
}

// GetMessage extracts the plain message from an IndexError anywhere in
// the chain, falling back to Error(). Job records surface this text.
func GetMessage(err error) string {
	if err == nil {
		return ""
	}
	var ie *IndexError
	if stderrors.As(err, &ie) {
		return ie.Message
	}
	return err.Error()
}

// GetCode extracts the error code from an IndexError anywhere in the chain.
// Returns empty string if no IndexError is present.
func GetCode(err error) string {
	var ie *IndexError
	if stderrors.As(err, &ie) {
		return ie.Code
	}
	return ""
}

// GetCategory extracts the category from an IndexError anywhere in the chain.
// Returns empty string if no IndexError is present.
func GetCategory(err error) Category {
	var ie *IndexError
	if stderrors.As(err, &ie) {
		return ie.Category
	}
	return ""
}
