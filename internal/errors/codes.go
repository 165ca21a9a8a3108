// Package errors provides structured error handling for licindex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Data errors (missing records, store failures)
//   - 3XX: Availability errors (source or index unreachable)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryData indicates missing-record and store errors.
	CategoryData Category = "DATA"
	// CategoryAvailability indicates an unreachable collaborator.
	CategoryAvailability Category = "AVAILABILITY"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Data errors (200-299)
	ErrCodePublicationNotFound = "ERR_201_PUBLICATION_NOT_FOUND"
	ErrCodeJobNotFound         = "ERR_202_JOB_NOT_FOUND"
	ErrCodeStoreFailed         = "ERR_203_STORE_FAILED"
	ErrCodeCorruptIndex        = "ERR_204_CORRUPT_INDEX"

	// Availability errors (300-399)
	ErrCodeSourceUnavailable = "ERR_301_SOURCE_UNAVAILABLE"
	ErrCodeIndexUnavailable  = "ERR_302_INDEX_UNAVAILABLE"

	// Validation errors (400-499)
	ErrCodeInvalidParams  = "ERR_401_INVALID_PARAMS"
	ErrCodeUnknownJobType = "ERR_402_UNKNOWN_JOB_TYPE"
	ErrCodeInvalidQuery   = "ERR_403_INVALID_QUERY"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeSearchFailed = "ERR_502_SEARCH_FAILED"
	ErrCodeCancelled    = "ERR_503_CANCELLED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "201" from "ERR_201_PUBLICATION_NOT_FOUND")
	numStr := code[4:7]
	if len(numStr) < 1 {
		return CategoryInternal
	}

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryData
	case '3':
		return CategoryAvailability
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	// An unreachable collaborator aborts the job that hit it
	switch code {
	case ErrCodeSourceUnavailable, ErrCodeIndexUnavailable, ErrCodeCorruptIndex:
		return SeverityFatal
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeSourceUnavailable, ErrCodeIndexUnavailable:
		return true
	default:
		return false
	}
}
