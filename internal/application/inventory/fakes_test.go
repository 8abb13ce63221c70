package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailchain/inventory/internal/domain/inventory"
	"github.com/retailchain/inventory/internal/domain/shared"
)

// In-memory repositories backing the service tests. They mirror the GORM
// implementations including the optimistic version check.

type memBatchRepo struct {
	mu      sync.Mutex
	batches map[uuid.UUID]inventory.ProductBatch
}

func newMemBatchRepo() *memBatchRepo {
	return &memBatchRepo{batches: make(map[uuid.UUID]inventory.ProductBatch)}
}

func (r *memBatchRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.ProductBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := b
	return &copied, nil
}

func (r *memBatchRepo) FindByProductAndNumber(_ context.Context, productID uuid.UUID, batchNumber string) (*inventory.ProductBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.batches {
		if b.ProductID == productID && b.BatchNumber == batchNumber {
			copied := b
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memBatchRepo) FindForProduct(_ context.Context, productID uuid.UUID, branchID *uuid.UUID, onlyAvailable bool) ([]inventory.ProductBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []inventory.ProductBatch
	for _, b := range r.batches {
		if b.ProductID != productID {
			continue
		}
		if branchID != nil && (b.BranchID == nil || *b.BranchID != *branchID) {
			continue
		}
		if onlyAvailable && !b.IsAvailable() {
			continue
		}
		result = append(result, b)
	}
	inventory.SortBatchesFIFO(result)
	return result, nil
}

func (r *memBatchRepo) FindExpiringBefore(_ context.Context, deadline time.Time, _ shared.Filter) ([]inventory.ProductBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []inventory.ProductBatch
	for _, b := range r.batches {
		if b.IsExpired || b.IsDisposed {
			continue
		}
		if b.ExpiryDate != nil && b.ExpiryDate.Before(deadline) {
			result = append(result, b)
		}
	}
	return result, nil
}

func (r *memBatchRepo) ExistsByProductAndNumber(_ context.Context, productID uuid.UUID, batchNumber string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.batches {
		if b.ProductID == productID && b.BatchNumber == batchNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *memBatchRepo) Create(_ context.Context, batch *inventory.ProductBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.batches {
		if b.ProductID == batch.ProductID && b.BatchNumber == batch.BatchNumber {
			return shared.NewDuplicateBatchNumberError(batch.ProductID, batch.BatchNumber)
		}
	}
	r.batches[batch.ID] = *batch
	return nil
}

func (r *memBatchRepo) SaveWithLock(_ context.Context, batch *inventory.ProductBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.batches[batch.ID]
	if !ok || stored.Version != batch.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.batches[batch.ID] = *batch
	return nil
}

func (r *memBatchRepo) SumAvailableForProduct(_ context.Context, productID uuid.UUID, branchID *uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, b := range r.batches {
		if b.ProductID != productID {
			continue
		}
		if branchID != nil && (b.BranchID == nil || *b.BranchID != *branchID) {
			continue
		}
		total = total.Add(b.AvailableStock())
	}
	return total, nil
}

type memMutationRepo struct {
	mu      sync.Mutex
	entries []inventory.StockMutation
}

func newMemMutationRepo() *memMutationRepo {
	return &memMutationRepo{}
}

func (r *memMutationRepo) matches(m inventory.StockMutation, productID uuid.UUID, branchID *uuid.UUID) bool {
	if m.ProductID != productID {
		return false
	}
	if branchID == nil {
		return m.BranchID == nil
	}
	return m.BranchID != nil && *m.BranchID == *branchID
}

func (r *memMutationRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.StockMutation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.entries {
		if m.ID == id {
			copied := m
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memMutationRepo) History(_ context.Context, productID uuid.UUID, branchID *uuid.UUID, from, to *time.Time, _ shared.Filter) ([]inventory.StockMutation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []inventory.StockMutation
	for _, m := range r.entries {
		if !r.matches(m, productID, branchID) {
			continue
		}
		if from != nil && m.OccurredAt.Before(*from) {
			continue
		}
		if to != nil && !m.OccurredAt.Before(*to) {
			continue
		}
		result = append(result, m)
	}
	return result, nil
}

func (r *memMutationRepo) FindByReference(_ context.Context, referenceNumber string) ([]inventory.StockMutation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []inventory.StockMutation
	for _, m := range r.entries {
		if m.ReferenceNumber == referenceNumber {
			result = append(result, m)
		}
	}
	return result, nil
}

func (r *memMutationRepo) Create(_ context.Context, mutation *inventory.StockMutation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *mutation)
	return nil
}

func (r *memMutationRepo) CountForProduct(_ context.Context, productID uuid.UUID, branchID *uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, m := range r.entries {
		if r.matches(m, productID, branchID) {
			count++
		}
	}
	return count, nil
}

func (r *memMutationRepo) SumQuantity(_ context.Context, productID uuid.UUID, branchID *uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, m := range r.entries {
		if r.matches(m, productID, branchID) {
			total = total.Add(m.Quantity)
		}
	}
	return total, nil
}

type memBranchRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]inventory.BranchInventory
}

func newMemBranchRepo() *memBranchRepo {
	return &memBranchRepo{rows: make(map[uuid.UUID]inventory.BranchInventory)}
}

func (r *memBranchRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.BranchInventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := row
	return &copied, nil
}

func (r *memBranchRepo) FindByBranchAndProduct(_ context.Context, branchID, productID uuid.UUID) (*inventory.BranchInventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.BranchID == branchID && row.ProductID == productID {
			copied := row
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memBranchRepo) FindByBranch(_ context.Context, branchID uuid.UUID, _ shared.Filter) ([]inventory.BranchInventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []inventory.BranchInventory
	for _, row := range r.rows {
		if row.BranchID == branchID {
			result = append(result, row)
		}
	}
	return result, nil
}

func (r *memBranchRepo) FindNeedingRestock(_ context.Context, branchID *uuid.UUID, _ shared.Filter) ([]inventory.BranchInventory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []inventory.BranchInventory
	for _, row := range r.rows {
		if branchID != nil && row.BranchID != *branchID {
			continue
		}
		if row.IsActive && row.MinimumStock.GreaterThan(decimal.Zero) && row.NeedsRestock() {
			result = append(result, row)
		}
	}
	return result, nil
}

func (r *memBranchRepo) GetOrCreate(ctx context.Context, branchID, productID uuid.UUID, now time.Time) (*inventory.BranchInventory, error) {
	if row, err := r.FindByBranchAndProduct(ctx, branchID, productID); err == nil {
		return row, nil
	}
	row, err := inventory.NewBranchInventory(branchID, productID, now)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[row.ID] = *row
	copied := *row
	return &copied, nil
}

func (r *memBranchRepo) Save(_ context.Context, inv *inventory.BranchInventory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[inv.ID] = *inv
	return nil
}

func (r *memBranchRepo) SaveWithLock(_ context.Context, inv *inventory.BranchInventory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[inv.ID]
	if !ok || stored.Version != inv.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.rows[inv.ID] = *inv
	return nil
}

func (r *memBranchRepo) SumStockByProduct(_ context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, row := range r.rows {
		if row.ProductID == productID {
			total = total.Add(row.Stock)
		}
	}
	return total, nil
}

func (r *memBranchRepo) CountByBranch(_ context.Context, branchID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, row := range r.rows {
		if row.BranchID == branchID {
			count++
		}
	}
	return count, nil
}

type memAllocationRepo struct {
	mu   sync.Mutex
	rows []inventory.SaleItemAllocation
}

func newMemAllocationRepo() *memAllocationRepo {
	return &memAllocationRepo{}
}

func (r *memAllocationRepo) FindBySaleItem(_ context.Context, saleItemID uuid.UUID) ([]inventory.SaleItemAllocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []inventory.SaleItemAllocation
	for _, row := range r.rows {
		if row.SaleItemID == saleItemID {
			result = append(result, row)
		}
	}
	return result, nil
}

func (r *memAllocationRepo) CreateBatch(_ context.Context, allocations []*inventory.SaleItemAllocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range allocations {
		r.rows = append(r.rows, *a)
	}
	return nil
}

// testEnv bundles the fakes with a no-op transaction scope
type testEnv struct {
	batches     *memBatchRepo
	mutations   *memMutationRepo
	branches    *memBranchRepo
	allocations *memAllocationRepo
	scope       *NoOpTransactionScope
}

func newTestEnv() *testEnv {
	batches := newMemBatchRepo()
	mutations := newMemMutationRepo()
	branches := newMemBranchRepo()
	allocations := newMemAllocationRepo()
	return &testEnv{
		batches:     batches,
		mutations:   mutations,
		branches:    branches,
		allocations: allocations,
		scope:       NewNoOpTransactionScope(batches, mutations, branches, allocations, nil),
	}
}

var (
	_ inventory.ProductBatchRepository       = (*memBatchRepo)(nil)
	_ inventory.StockMutationRepository      = (*memMutationRepo)(nil)
	_ inventory.BranchInventoryRepository    = (*memBranchRepo)(nil)
	_ inventory.SaleItemAllocationRepository = (*memAllocationRepo)(nil)
)
