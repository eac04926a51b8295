// Package errors defines the error taxonomy for the whale scanner.
//
// Upstream failures are classified into transient (retried up to the
// configured budget) and fatal (reported immediately); data-quality
// problems inside otherwise good responses are downgraded to safe
// defaults rather than surfaced as errors.
package errors

import (
	"fmt"

	"github.com/whale-scanner/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryTransientUpstream represents retryable upstream failures:
	// timeouts, connection errors, 429/5xx, unparsable success bodies
	CategoryTransientUpstream ErrorCategory = "transient_upstream"
	// CategoryFatalUpstream represents non-retryable upstream failures
	// (any other non-2xx status)
	CategoryFatalUpstream ErrorCategory = "fatal_upstream"
	// CategoryDataQuality represents malformed or missing fields in an
	// otherwise successful response
	CategoryDataQuality ErrorCategory = "data_quality"
	// CategoryExhaustion represents per-entity fallback still failing at
	// minimum batch size
	CategoryExhaustion ErrorCategory = "exhaustion"
	// CategoryValidation represents invalid caller input
	CategoryValidation ErrorCategory = "validation"
	// CategoryDatabase represents storage-layer errors
	CategoryDatabase ErrorCategory = "database"
	// CategoryCache represents cache-layer errors
	CategoryCache ErrorCategory = "cache"
)

// CategorizedError represents an error with a category and machine code
type CategorizedError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError for API responses
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewInvalidAddressError creates an invalid address error
func NewInvalidAddressError(address string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryValidation,
		Code:     "INVALID_ADDRESS",
		Message:  fmt.Sprintf("invalid address format: %s", address),
		Details: map[string]interface{}{
			"address": address,
		},
	}
}

// NewFetchExhaustedError creates an error for an address whose state
// could not be fetched even after per-entity fallback
func NewFetchExhaustedError(address string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryExhaustion,
		Code:     "FETCH_EXHAUSTED",
		Message:  fmt.Sprintf("all fetch attempts failed for address: %s", address),
		Details: map[string]interface{}{
			"address": address,
		},
	}
}

// NewMalformedStateError creates an error for a batch element that was
// present but not a decodable state object
func NewMalformedStateError(address string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryDataQuality,
		Code:     "MALFORMED_STATE",
		Message:  fmt.Sprintf("undecodable state element for address: %s", address),
		Details: map[string]interface{}{
			"address": address,
		},
	}
}

// NewFatalUpstreamError creates an error for a status retrying will not fix
func NewFatalUpstreamError(operation string, status int) *CategorizedError {
	return &CategorizedError{
		Category: CategoryFatalUpstream,
		Code:     "FATAL_UPSTREAM",
		Message:  fmt.Sprintf("upstream rejected %s with status %d", operation, status),
		Details: map[string]interface{}{
			"operation": operation,
			"status":    status,
		},
	}
}

// NewUpstreamUnavailableError creates an error for a required upstream
// resource that yielded nothing after all retries
func NewUpstreamUnavailableError(resource string) *CategorizedError {
	return &CategorizedError{
		Category: CategoryExhaustion,
		Code:     "UPSTREAM_UNAVAILABLE",
		Message:  fmt.Sprintf("upstream resource unavailable: %s", resource),
		Details: map[string]interface{}{
			"resource": resource,
		},
	}
}

// NewNoAddressesError creates an error for a scan with an empty address set
func NewNoAddressesError() *CategorizedError {
	return &CategorizedError{
		Category: CategoryValidation,
		Code:     "NO_ADDRESSES",
		Message:  "no addresses to scan; provide seeds or enable discovery",
	}
}

// NewDatabaseError creates a database error wrapping a cause
func NewDatabaseError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryDatabase,
		Code:     "DATABASE_ERROR",
		Message:  fmt.Sprintf("database operation failed: %s", operation),
		Details: map[string]interface{}{
			"operation": operation,
		},
		Cause: cause,
	}
}

// NewCacheError creates a cache error wrapping a cause
func NewCacheError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryCache,
		Code:     "CACHE_ERROR",
		Message:  fmt.Sprintf("cache operation failed: %s", operation),
		Details: map[string]interface{}{
			"operation": operation,
		},
		Cause: cause,
	}
}
