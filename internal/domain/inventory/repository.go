package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailchain/inventory/internal/domain/shared"
)

// ProductBatchRepository defines persistence for the ProductBatch aggregate
type ProductBatchRepository interface {
	// FindByID finds a batch by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*ProductBatch, error)

	// FindByProductAndNumber finds a batch by its (product, batch number) key
	FindByProductAndNumber(ctx context.Context, productID uuid.UUID, batchNumber string) (*ProductBatch, error)

	// FindForProduct returns batches for a product, optionally scoped to a
	// branch, ordered by the FIFO contract: expiry date ascending with NULLs
	// last, then production date, then creation time, then id. When
	// onlyAvailable is true, blocked/expired/disposed and zero-stock batches
	// are excluded.
	FindForProduct(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID, onlyAvailable bool) ([]ProductBatch, error)

	// FindExpiringBefore returns non-expired batches whose expiry date lies
	// before the deadline. Used by the expiry sweep.
	FindExpiringBefore(ctx context.Context, deadline time.Time, filter shared.Filter) ([]ProductBatch, error)

	// ExistsByProductAndNumber checks the (product, batch number) uniqueness key
	ExistsByProductAndNumber(ctx context.Context, productID uuid.UUID, batchNumber string) (bool, error)

	// Create persists a new batch; duplicate (product, batch number) pairs fail
	Create(ctx context.Context, batch *ProductBatch) error

	// SaveWithLock updates a batch with an optimistic version check
	SaveWithLock(ctx context.Context, batch *ProductBatch) error

	// SumAvailableForProduct sums available stock across batches for a
	// (product, branch) key
	SumAvailableForProduct(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID) (decimal.Decimal, error)
}

// StockMutationRepository defines persistence for the append-only ledger.
// There are deliberately no update or delete operations.
type StockMutationRepository interface {
	// FindByID finds a ledger entry by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockMutation, error)

	// History returns entries for a (product, branch) key ordered by
	// occurrence time ascending, optionally bounded by [from, to).
	History(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID, from, to *time.Time, filter shared.Filter) ([]StockMutation, error)

	// FindByReference returns entries correlated to an originating document
	FindByReference(ctx context.Context, referenceNumber string) ([]StockMutation, error)

	// Create appends a new ledger entry
	Create(ctx context.Context, mutation *StockMutation) error

	// CountForProduct counts entries for a (product, branch) key
	CountForProduct(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID) (int64, error)

	// SumQuantity sums signed quantities for a (product, branch) key; replaying
	// the ledger from zero must reproduce the projected stock exactly.
	SumQuantity(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID) (decimal.Decimal, error)
}

// BranchInventoryRepository defines persistence for the branch projection
type BranchInventoryRepository interface {
	// FindByID finds a projection row by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*BranchInventory, error)

	// FindByBranchAndProduct finds the row for a (branch, product) pair
	FindByBranchAndProduct(ctx context.Context, branchID, productID uuid.UUID) (*BranchInventory, error)

	// FindByBranch lists projection rows for a branch
	FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]BranchInventory, error)

	// FindNeedingRestock lists rows at or below their minimum threshold.
	// Consumed by the notification collaborator.
	FindNeedingRestock(ctx context.Context, branchID *uuid.UUID, filter shared.Filter) ([]BranchInventory, error)

	// GetOrCreate returns the row for a (branch, product) pair, creating a
	// zero-stock row when none exists
	GetOrCreate(ctx context.Context, branchID, productID uuid.UUID, now time.Time) (*BranchInventory, error)

	// Save creates or updates a projection row
	Save(ctx context.Context, inv *BranchInventory) error

	// SaveWithLock updates a row with an optimistic version check; a stale
	// version yields a CONCURRENCY_CONFLICT error
	SaveWithLock(ctx context.Context, inv *BranchInventory) error

	// SumStockByProduct sums projected stock for a product across branches.
	// This is the product-level aggregate; it is never stored separately.
	SumStockByProduct(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error)

	// CountByBranch counts projection rows for a branch
	CountByBranch(ctx context.Context, branchID uuid.UUID) (int64, error)
}

// SaleItemAllocationRepository persists batch consumption rows for sold items
type SaleItemAllocationRepository interface {
	// FindBySaleItem returns allocation rows for a sale item
	FindBySaleItem(ctx context.Context, saleItemID uuid.UUID) ([]SaleItemAllocation, error)

	// CreateBatch persists allocation rows
	CreateBatch(ctx context.Context, allocations []*SaleItemAllocation) error
}

// MutationFilter extends shared.Filter with ledger-specific filters
type MutationFilter struct {
	shared.Filter
	BranchID     *uuid.UUID
	MutationType *MutationType
	Reference    string
	From         *time.Time
	To           *time.Time
}
