package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailchain/inventory/internal/domain/shared"
)

// ProductBatch represents a dated, cost-tracked lot of a product received
// together. It is the aggregate root for batch operations.
//
// A batch is created when stock is received (purchase, transfer-in, initial
// stock-take) and is never deleted; disposal is a flag so the audit history
// stays intact. Invariant: 0 <= CurrentStock <= InitialStock.
type ProductBatch struct {
	shared.BaseAggregateRoot
	ProductID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_batch_product_number,priority:1"`
	BatchNumber    string     `gorm:"type:varchar(100);not null;uniqueIndex:idx_batch_product_number,priority:2"`
	BranchID       *uuid.UUID `gorm:"type:uuid;index"` // nil means unassigned/legacy stock
	ExpiryDate     *time.Time `gorm:"index"`
	ProductionDate *time.Time
	InitialStock   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CurrentStock   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CostPerUnit    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	IsBlocked      bool            `gorm:"not null;default:false"`
	BlockReason    string          `gorm:"type:varchar(255)"`
	IsExpired      bool            `gorm:"not null;default:false"`
	IsDisposed     bool            `gorm:"not null;default:false"`
	DisposedAt     *time.Time
	DisposalMethod string     `gorm:"type:varchar(100)"`
	DisposedByID   *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (ProductBatch) TableName() string {
	return "product_batches"
}

// NewProductBatch creates a new batch with CurrentStock = InitialStock.
// Batch number uniqueness per product is enforced by the repository.
func NewProductBatch(
	productID uuid.UUID,
	branchID *uuid.UUID,
	batchNumber string,
	initialStock decimal.Decimal,
	costPerUnit decimal.Decimal,
	expiryDate, productionDate *time.Time,
	now time.Time,
) (*ProductBatch, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Product ID cannot be empty")
	}
	if batchNumber == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Batch number cannot be empty")
	}
	if initialStock.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Initial stock must be positive")
	}
	if costPerUnit.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Cost per unit cannot be negative")
	}

	return &ProductBatch{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		ProductID:         productID,
		BranchID:          branchID,
		BatchNumber:       batchNumber,
		ExpiryDate:        expiryDate,
		ProductionDate:    productionDate,
		InitialStock:      initialStock,
		CurrentStock:      initialStock,
		CostPerUnit:       costPerUnit.Round(4),
	}, nil
}

// AvailableStock returns the quantity that can be consumed from this batch.
// Blocked, expired and disposed batches contribute nothing.
func (b *ProductBatch) AvailableStock() decimal.Decimal {
	if b.IsBlocked || b.IsExpired || b.IsDisposed {
		return decimal.Zero
	}
	return b.CurrentStock
}

// IsAvailable returns true if the batch can be consumed from
func (b *ProductBatch) IsAvailable() bool {
	return b.AvailableStock().GreaterThan(decimal.Zero)
}

// unavailableReason names the flag that makes the batch unavailable
func (b *ProductBatch) unavailableReason() string {
	switch {
	case b.IsDisposed:
		return "batch has been disposed"
	case b.IsExpired:
		return "batch has expired"
	case b.IsBlocked:
		return "batch is blocked: " + b.BlockReason
	default:
		return ""
	}
}

// Consume decrements the batch stock. The batch is kept at zero stock
// rather than deleted.
func (b *ProductBatch) Consume(quantity decimal.Decimal, now time.Time) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION_ERROR", "Consume quantity must be positive")
	}
	if b.IsBlocked || b.IsExpired || b.IsDisposed {
		return shared.NewBatchUnavailableError(b.ID, b.unavailableReason())
	}
	if quantity.GreaterThan(b.CurrentStock) {
		return shared.NewInsufficientBatchStockError(b.ID, quantity, b.CurrentStock)
	}

	b.CurrentStock = b.CurrentStock.Sub(quantity)
	b.UpdatedAt = now.UTC()
	b.IncrementVersion()
	return nil
}

// Restock returns previously consumed quantity to the batch (sales returns).
// The initial-stock bound still holds.
func (b *ProductBatch) Restock(quantity decimal.Decimal, now time.Time) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION_ERROR", "Restock quantity must be positive")
	}
	if b.CurrentStock.Add(quantity).GreaterThan(b.InitialStock) {
		return shared.NewDomainError("VALIDATION_ERROR", "Restock would exceed the batch initial stock")
	}

	b.CurrentStock = b.CurrentStock.Add(quantity)
	b.UpdatedAt = now.UTC()
	b.IncrementVersion()
	return nil
}

// Block marks the batch as blocked with a reason (quality hold, recall)
func (b *ProductBatch) Block(reason string, now time.Time) error {
	if reason == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Block reason is required")
	}

	b.IsBlocked = true
	b.BlockReason = reason
	b.UpdatedAt = now.UTC()
	b.IncrementVersion()
	return nil
}

// Unblock releases a blocked batch
func (b *ProductBatch) Unblock(now time.Time) {
	b.IsBlocked = false
	b.BlockReason = ""
	b.UpdatedAt = now.UTC()
	b.IncrementVersion()
}

// MarkExpired flags the batch as expired. Stock is not zeroed; expired stock
// stays visible for the disposal workflow.
func (b *ProductBatch) MarkExpired(now time.Time) {
	b.IsExpired = true
	b.UpdatedAt = now.UTC()
	b.IncrementVersion()
}

// HasPassedExpiry returns true if the batch expiry date lies before the given time
func (b *ProductBatch) HasPassedExpiry(at time.Time) bool {
	if b.ExpiryDate == nil {
		return false
	}
	return b.ExpiryDate.Before(at)
}

// Dispose marks the batch as disposed. Only expired or blocked batches may
// be disposed.
func (b *ProductBatch) Dispose(method string, disposedBy uuid.UUID, now time.Time) error {
	if !b.IsExpired && !b.IsBlocked {
		return shared.NewDomainError(shared.CodeCannotDisposeUnexpired,
			"Batch "+b.ID.String()+" can only be disposed when expired or blocked")
	}
	if method == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Disposal method is required")
	}
	if disposedBy == uuid.Nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Disposer ID cannot be empty")
	}

	ts := now.UTC()
	b.IsDisposed = true
	b.DisposedAt = &ts
	b.DisposalMethod = method
	b.DisposedByID = &disposedBy
	b.UpdatedAt = ts
	b.IncrementVersion()
	return nil
}

// TotalValue returns the value of the remaining stock in this batch
func (b *ProductBatch) TotalValue() decimal.Decimal {
	return b.CurrentStock.Mul(b.CostPerUnit).Round(2)
}
