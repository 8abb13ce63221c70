package transfer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appinv "github.com/retailchain/inventory/internal/application/inventory"
	"github.com/retailchain/inventory/internal/domain/inventory"
	"github.com/retailchain/inventory/internal/domain/shared"
	"github.com/retailchain/inventory/internal/domain/transfer"
)

// In-memory repositories backing the workflow tests. They mirror the GORM
// implementations including the optimistic version checks, so the ship and
// receive legs exercise the same contracts as production.

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

type memTransferRepo struct {
	mu        sync.Mutex
	transfers map[uuid.UUID]transfer.InventoryTransfer
}

func newMemTransferRepo() *memTransferRepo {
	return &memTransferRepo{transfers: make(map[uuid.UUID]transfer.InventoryTransfer)}
}

// clone detaches the aggregate from the store, like a fresh database load
func (r *memTransferRepo) clone(t transfer.InventoryTransfer) *transfer.InventoryTransfer {
	copied := t
	copied.Items = append([]transfer.TransferItem(nil), t.Items...)
	copied.StatusHistory = append([]transfer.TransferStatusHistory(nil), t.StatusHistory...)
	return &copied
}

func (r *memTransferRepo) FindByID(_ context.Context, id uuid.UUID) (*transfer.InventoryTransfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transfers[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return r.clone(t), nil
}

func (r *memTransferRepo) FindByNumber(_ context.Context, transferNumber string) (*transfer.InventoryTransfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.transfers {
		if t.TransferNumber == transferNumber {
			return r.clone(t), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memTransferRepo) FindAll(_ context.Context, filter transfer.TransferFilter) ([]transfer.InventoryTransfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []transfer.InventoryTransfer
	for _, t := range r.transfers {
		if r.matchesFilter(t, filter) {
			result = append(result, *r.clone(t))
		}
	}
	return result, nil
}

func (r *memTransferRepo) Count(_ context.Context, filter transfer.TransferFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, t := range r.transfers {
		if r.matchesFilter(t, filter) {
			count++
		}
	}
	return count, nil
}

func (r *memTransferRepo) matchesFilter(t transfer.InventoryTransfer, filter transfer.TransferFilter) bool {
	if filter.Status != nil && t.Status != *filter.Status {
		return false
	}
	if filter.Type != nil && t.Type != *filter.Type {
		return false
	}
	if filter.SourceBranchID != nil && t.SourceBranchID != *filter.SourceBranchID {
		return false
	}
	if filter.DestinationBranchID != nil && t.DestinationBranchID != *filter.DestinationBranchID {
		return false
	}
	if filter.RequestedByID != nil && t.RequestedByID != *filter.RequestedByID {
		return false
	}
	return true
}

func (r *memTransferRepo) Create(_ context.Context, t *transfer.InventoryTransfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, stored := range r.transfers {
		if stored.TransferNumber == t.TransferNumber {
			return shared.NewDomainError("VALIDATION_ERROR", "Transfer number already exists")
		}
	}
	r.transfers[t.ID] = *r.clone(*t)
	return nil
}

func (r *memTransferRepo) SaveWithLock(_ context.Context, t *transfer.InventoryTransfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.transfers[t.ID]
	if !ok || stored.Version != t.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.transfers[t.ID] = *r.clone(*t)
	return nil
}

func (r *memTransferRepo) ExistsByNumber(_ context.Context, transferNumber string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.transfers {
		if t.TransferNumber == transferNumber {
			return true, nil
		}
	}
	return false, nil
}

// memIdempotencyStore is an in-memory IdempotencyStore
type memIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{keys: make(map[string]bool)}
}

func (s *memIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *memIdempotencyStore) Close() error {
	return nil
}

// testEnv bundles the fakes with a no-op transaction scope
type testEnv struct {
	batches   *memBatchRepo
	mutations *memMutationRepo
	branches  *memBranchRepo
	transfers *memTransferRepo
	scope     *appinv.NoOpTransactionScope
}

func newTestEnv() *testEnv {
	batches := newMemBatchRepo()
	mutations := newMemMutationRepo()
	branches := newMemBranchRepo()
	allocations := newMemAllocationRepo()
	transfers := newMemTransferRepo()
	return &testEnv{
		batches:   batches,
		mutations: mutations,
		branches:  branches,
		transfers: transfers,
		scope:     appinv.NewNoOpTransactionScope(batches, mutations, branches, allocations, transfers),
	}
}

var (
	_ inventory.ProductBatchRepository       = (*memBatchRepo)(nil)
	_ inventory.StockMutationRepository      = (*memMutationRepo)(nil)
	_ inventory.BranchInventoryRepository    = (*memBranchRepo)(nil)
	_ inventory.SaleItemAllocationRepository = (*memAllocationRepo)(nil)
	_ transfer.TransferRepository            = (*memTransferRepo)(nil)
	_ shared.IdempotencyStore                = (*memIdempotencyStore)(nil)
)
