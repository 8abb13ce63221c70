package inventory

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailchain/inventory/internal/domain/shared"
)

// BatchAllocation is one per-batch consumption produced by FIFO allocation.
// Batch number and expiry date are snapshots taken at allocation time.
type BatchAllocation struct {
	BatchID     uuid.UUID       `json:"batch_id"`
	BatchNumber string          `json:"batch_number"`
	Quantity    decimal.Decimal `json:"quantity"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
	// Synthetic marks an allocation taken against the branch aggregate for
	// products without batch tracking.
	Synthetic bool `json:"synthetic,omitempty"`
}

// TotalCost returns the cost of this allocation rounded to 2 places
func (a BatchAllocation) TotalCost() decimal.Decimal {
	return a.Quantity.Mul(a.CostPerUnit).Round(2)
}

// SaleItemAllocation persists the link between a sold line item and the
// batch it was served from. Quantities across all rows of one sale item sum
// exactly to that item's sold quantity.
type SaleItemAllocation struct {
	shared.BaseEntity
	SaleItemID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	BatchID     *uuid.UUID      `gorm:"type:uuid;index"` // nil for synthetic allocations
	BatchNumber string          `gorm:"type:varchar(100)"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CostPerUnit decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalCost   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ExpiryDate  *time.Time
}

// TableName returns the table name for GORM
func (SaleItemAllocation) TableName() string {
	return "sale_item_allocations"
}

// NewSaleItemAllocation builds a persisted allocation row from a BatchAllocation
func NewSaleItemAllocation(saleItemID uuid.UUID, alloc BatchAllocation, now time.Time) *SaleItemAllocation {
	row := &SaleItemAllocation{
		BaseEntity:  shared.NewBaseEntity(now),
		SaleItemID:  saleItemID,
		BatchNumber: alloc.BatchNumber,
		Quantity:    alloc.Quantity,
		CostPerUnit: alloc.CostPerUnit,
		TotalCost:   alloc.TotalCost(),
		ExpiryDate:  alloc.ExpiryDate,
	}
	if !alloc.Synthetic {
		id := alloc.BatchID
		row.BatchID = &id
	}
	return row
}

// SortBatchesFIFO orders batches by the FIFO contract: expiry date ascending
// with nil expiry last, then production date ascending, then creation time,
// then id for a stable total order.
func SortBatchesFIFO(batches []ProductBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		bi, bj := batches[i], batches[j]
		switch {
		case bi.ExpiryDate != nil && bj.ExpiryDate != nil:
			if !bi.ExpiryDate.Equal(*bj.ExpiryDate) {
				return bi.ExpiryDate.Before(*bj.ExpiryDate)
			}
		case bi.ExpiryDate != nil:
			return true
		case bj.ExpiryDate != nil:
			return false
		}
		switch {
		case bi.ProductionDate != nil && bj.ProductionDate != nil:
			if !bi.ProductionDate.Equal(*bj.ProductionDate) {
				return bi.ProductionDate.Before(*bj.ProductionDate)
			}
		case bi.ProductionDate != nil:
			return true
		case bj.ProductionDate != nil:
			return false
		}
		if !bi.CreatedAt.Equal(bj.CreatedAt) {
			return bi.CreatedAt.Before(bj.CreatedAt)
		}
		return bi.ID.String() < bj.ID.String()
	})
}

// PlanFIFOAllocation walks batches in their given (FIFO) order and plans
// per-batch consumptions until the requested quantity is covered. It is a
// pure planning step: no batch is mutated. When the total available stock
// across the batches is less than requested it fails with an
// INSUFFICIENT_STOCK error carrying the shortfall, so callers get
// all-or-nothing semantics by planning before consuming.
func PlanFIFOAllocation(productID uuid.UUID, requested decimal.Decimal, batches []ProductBatch) ([]BatchAllocation, error) {
	if requested.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Requested quantity must be positive")
	}

	totalAvailable := decimal.Zero
	for i := range batches {
		totalAvailable = totalAvailable.Add(batches[i].AvailableStock())
	}
	if totalAvailable.LessThan(requested) {
		return nil, shared.NewInsufficientStockError(productID, requested, totalAvailable)
	}

	allocations := make([]BatchAllocation, 0, len(batches))
	remaining := requested
	for i := range batches {
		if remaining.IsZero() {
			break
		}
		available := batches[i].AvailableStock()
		if available.LessThanOrEqual(decimal.Zero) {
			continue
		}

		take := decimal.Min(remaining, available)
		allocations = append(allocations, BatchAllocation{
			BatchID:     batches[i].ID,
			BatchNumber: batches[i].BatchNumber,
			Quantity:    take,
			CostPerUnit: batches[i].CostPerUnit,
			ExpiryDate:  batches[i].ExpiryDate,
		})
		remaining = remaining.Sub(take)
	}

	return allocations, nil
}

// SyntheticAllocation degrades allocation to a single row against the branch
// aggregate for products that carry no batches (non-expiry-tracked
// categories). Cost comes from the branch-inventory row.
func SyntheticAllocation(requested decimal.Decimal, inv *BranchInventory) ([]BatchAllocation, error) {
	if requested.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Requested quantity must be positive")
	}
	if inv.Stock.LessThan(requested) {
		return nil, shared.NewInsufficientStockError(inv.ProductID, requested, inv.Stock)
	}

	return []BatchAllocation{{
		Quantity:    requested,
		CostPerUnit: inv.BuyPrice,
		Synthetic:   true,
	}}, nil
}

// AllocationTotal sums the quantities across allocations
func AllocationTotal(allocations []BatchAllocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Quantity)
	}
	return total
}
