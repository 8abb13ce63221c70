package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeDuplicateBatchNumber is used when a batch number already exists for a product
	ErrCodeDuplicateBatchNumber = "ERR_DUPLICATE_BATCH_NUMBER"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeInsufficientStock is used when branch stock cannot cover a request
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"
	// ErrCodeInsufficientBatchStock is used when a single batch cannot cover a request
	ErrCodeInsufficientBatchStock = "ERR_INSUFFICIENT_BATCH_STOCK"
	// ErrCodeBatchUnavailable is used when consuming a blocked, expired or disposed batch
	ErrCodeBatchUnavailable = "ERR_BATCH_UNAVAILABLE"
	// ErrCodeCannotDisposeUnexpired is used when disposing a batch that is neither expired nor blocked
	ErrCodeCannotDisposeUnexpired = "ERR_CANNOT_DISPOSE_UNEXPIRED"
	// ErrCodeNegativeStockResult is used when a ledger append would drive stock below zero
	ErrCodeNegativeStockResult = "ERR_NEGATIVE_STOCK_RESULT"
	// ErrCodeInvalidTransferState is used for disallowed transfer workflow transitions
	ErrCodeInvalidTransferState = "ERR_INVALID_TRANSFER_STATE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:             http.StatusNotFound,
	ErrCodeAlreadyExists:        http.StatusConflict,
	ErrCodeConflict:             http.StatusConflict,
	ErrCodeConcurrencyConflict:  http.StatusConflict,
	ErrCodeDuplicateBatchNumber: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:           http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:           http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:      http.StatusUnprocessableEntity,
	ErrCodeInsufficientBatchStock: http.StatusUnprocessableEntity,
	ErrCodeBatchUnavailable:       http.StatusUnprocessableEntity,
	ErrCodeCannotDisposeUnexpired: http.StatusUnprocessableEntity,
	ErrCodeNegativeStockResult:    http.StatusUnprocessableEntity,
	ErrCodeInvalidTransferState:   http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain-level error codes to the API format
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                ErrCodeNotFound,
	"ALREADY_EXISTS":           ErrCodeAlreadyExists,
	"VALIDATION_ERROR":         ErrCodeValidation,
	"CONCURRENCY_CONFLICT":     ErrCodeConcurrencyConflict,
	"DUPLICATE_BATCH_NUMBER":   ErrCodeDuplicateBatchNumber,
	"INSUFFICIENT_STOCK":       ErrCodeInsufficientStock,
	"INSUFFICIENT_BATCH_STOCK": ErrCodeInsufficientBatchStock,
	"BATCH_UNAVAILABLE":        ErrCodeBatchUnavailable,
	"CANNOT_DISPOSE_UNEXPIRED": ErrCodeCannotDisposeUnexpired,
	"NEGATIVE_STOCK_RESULT":    ErrCodeNegativeStockResult,
	"INVALID_TRANSFER_STATE":   ErrCodeInvalidTransferState,
	"INVALID_STATE":            ErrCodeInvalidState,
	"INVALID_INPUT":            ErrCodeInvalidInput,
	"BAD_REQUEST":              ErrCodeBadRequest,
	"INTERNAL_ERROR":           ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
