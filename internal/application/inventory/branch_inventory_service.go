package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailchain/inventory/internal/domain/inventory"
	"github.com/retailchain/inventory/internal/domain/shared"
)

// BranchInventoryService reads the per-branch projection and maintains its
// configuration (thresholds, prices). Projected stock itself is only ever
// written by the ledger append path.
type BranchInventoryService struct {
	branchRepo inventory.BranchInventoryRepository
	now        func() time.Time
}

// NewBranchInventoryService creates a new BranchInventoryService
func NewBranchInventoryService(branchRepo inventory.BranchInventoryRepository) *BranchInventoryService {
	return &BranchInventoryService{
		branchRepo: branchRepo,
		now:        time.Now,
	}
}

// SetClock overrides the service clock. Used in tests.
func (s *BranchInventoryService) SetClock(now func() time.Time) {
	s.now = now
}

// GetByBranchAndProduct retrieves the projection row for a (branch, product) pair
func (s *BranchInventoryService) GetByBranchAndProduct(ctx context.Context, branchID, productID uuid.UUID) (*BranchInventoryResponse, error) {
	proj, err := s.branchRepo.FindByBranchAndProduct(ctx, branchID, productID)
	if err != nil {
		return nil, err
	}
	response := ToBranchInventoryResponse(proj)
	return &response, nil
}

// ListByBranch lists the projection rows of a branch
func (s *BranchInventoryService) ListByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]BranchInventoryResponse, int64, error) {
	rows, err := s.branchRepo.FindByBranch(ctx, branchID, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.branchRepo.CountByBranch(ctx, branchID)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]BranchInventoryResponse, 0, len(rows))
	for i := range rows {
		responses = append(responses, ToBranchInventoryResponse(&rows[i]))
	}
	return responses, total, nil
}

// ListNeedingRestock lists rows at or below their minimum threshold,
// optionally scoped to one branch. Feeds restock notifications.
func (s *BranchInventoryService) ListNeedingRestock(ctx context.Context, branchID *uuid.UUID, filter shared.Filter) ([]BranchInventoryResponse, error) {
	rows, err := s.branchRepo.FindNeedingRestock(ctx, branchID, filter)
	if err != nil {
		return nil, err
	}
	responses := make([]BranchInventoryResponse, 0, len(rows))
	for i := range rows {
		responses = append(responses, ToBranchInventoryResponse(&rows[i]))
	}
	return responses, nil
}

// SetThresholds updates the restock/overstock thresholds of a (branch, product) pair
func (s *BranchInventoryService) SetThresholds(ctx context.Context, branchID, productID uuid.UUID, req SetThresholdsRequest) (*BranchInventoryResponse, error) {
	return s.update(ctx, branchID, productID, func(proj *inventory.BranchInventory, now time.Time) error {
		return proj.SetThresholds(req.MinimumStock, req.MaximumStock, now)
	})
}

// SetPrices updates the branch-specific prices of a (branch, product) pair
func (s *BranchInventoryService) SetPrices(ctx context.Context, branchID, productID uuid.UUID, req SetPricesRequest) (*BranchInventoryResponse, error) {
	return s.update(ctx, branchID, productID, func(proj *inventory.BranchInventory, now time.Time) error {
		return proj.SetPrices(req.BuyPrice, req.SellPrice, now)
	})
}

// ProductStock sums projected stock for a product across branches
func (s *BranchInventoryService) ProductStock(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	return s.branchRepo.SumStockByProduct(ctx, productID)
}

// update applies a mutator to a projection row under the optimistic lock.
// The row is created on first use so thresholds can be configured before any
// stock arrives.
func (s *BranchInventoryService) update(ctx context.Context, branchID, productID uuid.UUID, mutate func(*inventory.BranchInventory, time.Time) error) (*BranchInventoryResponse, error) {
	var proj *inventory.BranchInventory
	err := withConcurrencyRetry(ctx, func() error {
		now := s.now()
		var err error
		proj, err = s.branchRepo.GetOrCreate(ctx, branchID, productID, now)
		if err != nil {
			return err
		}
		if err := mutate(proj, now); err != nil {
			return err
		}
		return s.branchRepo.SaveWithLock(ctx, proj)
	})
	if err != nil {
		return nil, err
	}
	response := ToBranchInventoryResponse(proj)
	return &response, nil
}
