package shared

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrValidation          = NewDomainError("VALIDATION_ERROR", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
)

// Error codes for the stock accounting invariants. Constructors below attach
// the identifiers and quantities the caller needs to render an actionable message.
const (
	CodeDuplicateBatchNumber   = "DUPLICATE_BATCH_NUMBER"
	CodeInsufficientStock      = "INSUFFICIENT_STOCK"
	CodeInsufficientBatchStock = "INSUFFICIENT_BATCH_STOCK"
	CodeBatchUnavailable       = "BATCH_UNAVAILABLE"
	CodeCannotDisposeUnexpired = "CANNOT_DISPOSE_UNEXPIRED"
	CodeNegativeStockResult    = "NEGATIVE_STOCK_RESULT"
	CodeInvalidTransferState   = "INVALID_TRANSFER_STATE"
)

// NewDuplicateBatchNumberError reports a (product, batch number) uniqueness violation
func NewDuplicateBatchNumberError(productID uuid.UUID, batchNumber string) *DomainError {
	return NewDomainError(CodeDuplicateBatchNumber,
		fmt.Sprintf("Batch number %q already exists for product %s", batchNumber, productID))
}

// NewInsufficientStockError reports a shortfall against the requested quantity
func NewInsufficientStockError(productID uuid.UUID, requested, available decimal.Decimal) *DomainError {
	return NewDomainError(CodeInsufficientStock,
		fmt.Sprintf("Insufficient stock for product %s: requested %s, available %s",
			productID, requested, available))
}

// NewInsufficientBatchStockError reports a shortfall against a single batch
func NewInsufficientBatchStockError(batchID uuid.UUID, requested, available decimal.Decimal) *DomainError {
	return NewDomainError(CodeInsufficientBatchStock,
		fmt.Sprintf("Insufficient stock in batch %s: requested %s, available %s",
			batchID, requested, available))
}

// NewBatchUnavailableError reports consumption from a blocked, expired or disposed batch
func NewBatchUnavailableError(batchID uuid.UUID, reason string) *DomainError {
	return NewDomainError(CodeBatchUnavailable,
		fmt.Sprintf("Batch %s is unavailable: %s", batchID, reason))
}

// NewNegativeStockResultError reports a ledger append that would drive stock below zero
func NewNegativeStockResultError(productID uuid.UUID, before, quantity decimal.Decimal) *DomainError {
	return NewDomainError(CodeNegativeStockResult,
		fmt.Sprintf("Mutation of %s would drive stock of product %s below zero (current %s)",
			quantity, productID, before))
}

// NewInvalidTransferStateError reports a disallowed transfer transition
func NewInvalidTransferStateError(current, target string) *DomainError {
	return NewDomainError(CodeInvalidTransferState,
		fmt.Sprintf("Cannot transition transfer from %s to %s", current, target))
}

// IsCode reports whether err is a DomainError with the given code
func IsCode(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
