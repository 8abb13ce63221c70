package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailchain/inventory/internal/domain/shared"
)

// StockStatus is the derived availability state of a branch-inventory row
type StockStatus string

const (
	StockStatusOutOfStock StockStatus = "OUT_OF_STOCK"
	StockStatusLowStock   StockStatus = "LOW_STOCK"
	StockStatusInStock    StockStatus = "IN_STOCK"
)

// BranchInventory is the materialized current-stock view for one
// (branch, product) pair. It is a projection derived from the mutation
// ledger: its Stock field is written only by the ledger append path
// (ApplyDelta), never directly by callers. Thresholds and prices are
// branch-specific configuration.
type BranchInventory struct {
	shared.BaseAggregateRoot
	BranchID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_branch_inventory_pair,priority:1"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_branch_inventory_pair,priority:2"`
	Stock        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MinimumStock decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MaximumStock decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	BuyPrice     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	SellPrice    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	IsActive     bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (BranchInventory) TableName() string {
	return "branch_inventories"
}

// NewBranchInventory creates a projection row with zero stock
func NewBranchInventory(branchID, productID uuid.UUID, now time.Time) (*BranchInventory, error) {
	if branchID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Branch ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Product ID cannot be empty")
	}

	return &BranchInventory{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		BranchID:          branchID,
		ProductID:         productID,
		Stock:             decimal.Zero,
		MinimumStock:      decimal.Zero,
		MaximumStock:      decimal.Zero,
		BuyPrice:          decimal.Zero,
		SellPrice:         decimal.Zero,
		IsActive:          true,
	}, nil
}

// ApplyDelta adjusts the projected stock by the given signed quantity.
// Called exclusively from the ledger append path so the projection cannot
// diverge from the ledger.
func (bi *BranchInventory) ApplyDelta(delta decimal.Decimal, now time.Time) error {
	newStock := bi.Stock.Add(delta)
	if newStock.IsNegative() {
		return shared.NewNegativeStockResultError(bi.ProductID, bi.Stock, delta)
	}

	bi.Stock = newStock
	bi.UpdatedAt = now.UTC()
	bi.IncrementVersion()
	return nil
}

// SetThresholds sets the restock/overstock thresholds
func (bi *BranchInventory) SetThresholds(minimum, maximum decimal.Decimal, now time.Time) error {
	if minimum.IsNegative() || maximum.IsNegative() {
		return shared.NewDomainError("VALIDATION_ERROR", "Thresholds cannot be negative")
	}
	if maximum.GreaterThan(decimal.Zero) && maximum.LessThan(minimum) {
		return shared.NewDomainError("VALIDATION_ERROR", "Maximum stock cannot be below minimum stock")
	}

	bi.MinimumStock = minimum
	bi.MaximumStock = maximum
	bi.UpdatedAt = now.UTC()
	bi.IncrementVersion()
	return nil
}

// SetPrices sets the branch-specific buy/sell prices
func (bi *BranchInventory) SetPrices(buyPrice, sellPrice decimal.Decimal, now time.Time) error {
	if buyPrice.IsNegative() || sellPrice.IsNegative() {
		return shared.NewDomainError("VALIDATION_ERROR", "Prices cannot be negative")
	}

	bi.BuyPrice = buyPrice.Round(2)
	bi.SellPrice = sellPrice.Round(2)
	bi.UpdatedAt = now.UTC()
	bi.IncrementVersion()
	return nil
}

// NeedsRestock returns true if projected stock is at or below the minimum.
// Derived on read, never stored.
func (bi *BranchInventory) NeedsRestock() bool {
	return bi.Stock.LessThanOrEqual(bi.MinimumStock)
}

// IsOverstocked returns true if projected stock exceeds the maximum
func (bi *BranchInventory) IsOverstocked() bool {
	return bi.MaximumStock.GreaterThan(decimal.Zero) && bi.Stock.GreaterThan(bi.MaximumStock)
}

// Status derives the stock status from the stored fields
func (bi *BranchInventory) Status() StockStatus {
	switch {
	case bi.Stock.LessThanOrEqual(decimal.Zero):
		return StockStatusOutOfStock
	case bi.Stock.LessThanOrEqual(bi.MinimumStock):
		return StockStatusLowStock
	default:
		return StockStatusInStock
	}
}
