package api

import (
	"encoding/json"
	"net/http"

	"github.com/whale-scanner/internal/errors"
	"github.com/whale-scanner/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Common error codes
const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// respondServiceError writes a service-layer error, mapping categorized
// errors to HTTP statuses and preserving their code and details.
func respondServiceError(w http.ResponseWriter, err error) {
	catErr, ok := err.(*errors.CategorizedError)
	if !ok {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "An internal error occurred", nil)
		return
	}

	status := http.StatusInternalServerError
	switch catErr.Category {
	case errors.CategoryValidation:
		status = http.StatusBadRequest
	case errors.CategoryExhaustion, errors.CategoryTransientUpstream:
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		// Internal categories (database, cache) stay opaque to callers
		respondError(w, status, ErrCodeInternalError, "An internal error occurred", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: *catErr.ToServiceError()})
}
