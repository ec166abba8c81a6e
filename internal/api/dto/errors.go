package dto

// APIError represents a structured error response.
// All error responses from the API use this format for consistency.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Common error codes
const (
	ErrCodeNotFound        = "not_found"
	ErrCodeBadRequest      = "bad_request"
	ErrCodeInternalError   = "internal_error"
	ErrCodeValidation      = "validation_error"
	ErrCodeReconciliation  = "reconciliation_mismatch"
	ErrCodeUnknownCategory = "unknown_category"
	ErrCodeNoSplitNeeded   = "no_split_needed"
	ErrCodeAlreadySplit    = "already_split"
)

// NewAPIError creates a new APIError with the given code and message.
func NewAPIError(code, message string) APIError {
	return APIError{
		Code:    code,
		Message: message,
	}
}

// NotFoundError creates a not found error response.
func NotFoundError(resource string) APIError {
	return NewAPIError(ErrCodeNotFound, resource+" not found")
}

// BadRequestError creates a bad request error response.
func BadRequestError(message string) APIError {
	return NewAPIError(ErrCodeBadRequest, message)
}

// InternalError creates an internal server error response.
func InternalError() APIError {
	return NewAPIError(ErrCodeInternalError, "an internal error occurred")
}

// ValidationError creates a validation error response.
func ValidationError(message string) APIError {
	return NewAPIError(ErrCodeValidation, message)
}

// ReconciliationError creates an amount-mismatch error response with
// the figures the caller needs to correct the splits.
func ReconciliationError(message string, expected, actual, discrepancy float64) APIError {
	err := NewAPIError(ErrCodeReconciliation, message)
	err.Details = map[string]interface{}{
		"expected":    expected,
		"actual":      actual,
		"discrepancy": discrepancy,
	}
	return err
}

// UnknownCategoryError creates an unknown-category error response.
func UnknownCategoryError(message, category string) APIError {
	err := NewAPIError(ErrCodeUnknownCategory, message)
	err.Details = map[string]interface{}{
		"category": category,
	}
	return err
}
