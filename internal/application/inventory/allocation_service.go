package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailchain/inventory/internal/domain/inventory"
	"github.com/retailchain/inventory/internal/domain/shared"
)

// AllocationService serves outbound quantities from batches in FIFO order.
// Allocation is all-or-nothing: the plan is computed against available stock
// first, and only a complete plan is applied.
type AllocationService struct {
	batchRepo      inventory.ProductBatchRepository
	branchRepo     inventory.BranchInventoryRepository
	allocationRepo inventory.SaleItemAllocationRepository
	txScope        TransactionScope
	now            func() time.Time
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(
	batchRepo inventory.ProductBatchRepository,
	branchRepo inventory.BranchInventoryRepository,
	allocationRepo inventory.SaleItemAllocationRepository,
	txScope TransactionScope,
) *AllocationService {
	return &AllocationService{
		batchRepo:      batchRepo,
		branchRepo:     branchRepo,
		allocationRepo: allocationRepo,
		txScope:        txScope,
		now:            time.Now,
	}
}

// SetClock overrides the service clock. Used in tests.
func (s *AllocationService) SetClock(now func() time.Time) {
	s.now = now
}

// ConsumeFIFO plans a FIFO allocation for a (product, branch) key and applies
// it: each planned batch is decremented under its optimistic lock. Products
// with no batch rows at all degrade to a single synthetic allocation against
// the branch projection; a batch-tracked product whose batches are all
// blocked, expired or empty fails instead. Runs against the repositories of
// the caller's transaction scope; the caller writes the matching ledger entry.
func ConsumeFIFO(
	ctx context.Context,
	repos TransactionalRepositories,
	productID, branchID uuid.UUID,
	quantity decimal.Decimal,
	now time.Time,
) ([]inventory.BatchAllocation, error) {
	batches, err := repos.Batches().FindForProduct(ctx, productID, &branchID, true)
	if err != nil {
		return nil, err
	}

	if len(batches) == 0 {
		all, err := repos.Batches().FindForProduct(ctx, productID, &branchID, false)
		if err != nil {
			return nil, err
		}
		if len(all) > 0 {
			return nil, shared.NewInsufficientStockError(productID, quantity, availableBatchStock(all))
		}
		proj, err := repos.BranchInventories().FindByBranchAndProduct(ctx, branchID, productID)
		if err != nil {
			if shared.IsCode(err, shared.ErrNotFound.Code) {
				return nil, shared.NewInsufficientStockError(productID, quantity, decimal.Zero)
			}
			return nil, err
		}
		return inventory.SyntheticAllocation(quantity, proj)
	}

	allocations, err := inventory.PlanFIFOAllocation(productID, quantity, batches)
	if err != nil {
		return nil, err
	}
	for _, alloc := range allocations {
		for i := range batches {
			if batches[i].ID != alloc.BatchID {
				continue
			}
			if err := batches[i].Consume(alloc.Quantity, now); err != nil {
				return nil, err
			}
			if err := repos.Batches().SaveWithLock(ctx, &batches[i]); err != nil {
				return nil, err
			}
			break
		}
	}
	return allocations, nil
}

// WeightedUnitCost returns the quantity-weighted average unit cost of an
// allocation, rounded to 4 places. Zero-quantity plans cost zero.
func WeightedUnitCost(allocations []inventory.BatchAllocation) decimal.Decimal {
	total := inventory.AllocationTotal(allocations)
	if total.IsZero() {
		return decimal.Zero
	}
	cost := decimal.Zero
	for _, a := range allocations {
		cost = cost.Add(a.Quantity.Mul(a.CostPerUnit))
	}
	return cost.Div(total).Round(4)
}

// Allocate consumes the requested quantity FIFO from the batches of a
// (product, branch) key and records one outbound ledger entry for the total.
// When a sale item is given, per-batch consumption rows are persisted so the
// sold quantity can be traced back to its batches.
func (s *AllocationService) Allocate(ctx context.Context, req AllocateRequest) (*AllocationResponse, error) {
	mutationType := req.MutationType
	if mutationType == "" {
		mutationType = inventory.MutationTypeSale
	}
	if !mutationType.IsValid() || mutationType.IsInbound() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Allocation requires an outbound mutation type")
	}

	var (
		allocations []inventory.BatchAllocation
		mutation    *inventory.StockMutation
	)
	err := withConcurrencyRetry(ctx, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			now := s.now()

			var err error
			allocations, err = ConsumeFIFO(ctx, repos, req.ProductID, req.BranchID, req.Quantity, now)
			if err != nil {
				return err
			}

			unitCost := WeightedUnitCost(allocations)
			branchID := req.BranchID
			mutation, err = AppendMutation(ctx, repos, AppendMutationRequest{
				ProductID:       req.ProductID,
				BranchID:        &branchID,
				Type:            mutationType,
				Quantity:        req.Quantity.Neg(),
				UnitCost:        &unitCost,
				ReferenceNumber: req.ReferenceNumber,
				ActorID:         req.ActorID,
			}, now)
			if err != nil {
				return err
			}

			if req.SaleItemID == nil {
				return nil
			}
			rows := make([]*inventory.SaleItemAllocation, 0, len(allocations))
			for _, alloc := range allocations {
				rows = append(rows, inventory.NewSaleItemAllocation(*req.SaleItemID, alloc, now))
			}
			return repos.SaleAllocations().CreateBatch(ctx, rows)
		})
	})
	if err != nil {
		return nil, err
	}

	mutationResponse := ToMutationResponse(mutation)
	return &AllocationResponse{
		ProductID:        req.ProductID,
		BranchID:         req.BranchID,
		Quantity:         req.Quantity,
		Lines:            toAllocationLines(allocations),
		WeightedUnitCost: WeightedUnitCost(allocations),
		TotalCost:        allocationCost(allocations),
		Mutation:         &mutationResponse,
	}, nil
}

// Preview plans a FIFO allocation without consuming anything. Useful for
// quoting and for checking availability before a transfer request.
func (s *AllocationService) Preview(ctx context.Context, req AllocateRequest) (*AllocationResponse, error) {
	batches, err := s.batchRepo.FindForProduct(ctx, req.ProductID, &req.BranchID, true)
	if err != nil {
		return nil, err
	}

	var allocations []inventory.BatchAllocation
	if len(batches) == 0 {
		all, err := s.batchRepo.FindForProduct(ctx, req.ProductID, &req.BranchID, false)
		if err != nil {
			return nil, err
		}
		if len(all) > 0 {
			return nil, shared.NewInsufficientStockError(req.ProductID, req.Quantity, availableBatchStock(all))
		}
		proj, err := s.branchRepo.FindByBranchAndProduct(ctx, req.BranchID, req.ProductID)
		if err != nil {
			if shared.IsCode(err, shared.ErrNotFound.Code) {
				return nil, shared.NewInsufficientStockError(req.ProductID, req.Quantity, decimal.Zero)
			}
			return nil, err
		}
		allocations, err = inventory.SyntheticAllocation(req.Quantity, proj)
		if err != nil {
			return nil, err
		}
	} else {
		allocations, err = inventory.PlanFIFOAllocation(req.ProductID, req.Quantity, batches)
		if err != nil {
			return nil, err
		}
	}

	return &AllocationResponse{
		ProductID:        req.ProductID,
		BranchID:         req.BranchID,
		Quantity:         req.Quantity,
		Lines:            toAllocationLines(allocations),
		WeightedUnitCost: WeightedUnitCost(allocations),
		TotalCost:        allocationCost(allocations),
	}, nil
}

// TraceSaleItem returns the persisted per-batch consumption rows of a sale item
func (s *AllocationService) TraceSaleItem(ctx context.Context, saleItemID uuid.UUID) ([]AllocationLine, error) {
	rows, err := s.allocationRepo.FindBySaleItem(ctx, saleItemID)
	if err != nil {
		return nil, err
	}

	lines := make([]AllocationLine, 0, len(rows))
	for i := range rows {
		row := rows[i]
		lines = append(lines, AllocationLine{
			BatchID:     row.BatchID,
			BatchNumber: row.BatchNumber,
			Quantity:    row.Quantity,
			CostPerUnit: row.CostPerUnit,
			TotalCost:   row.TotalCost,
			ExpiryDate:  row.ExpiryDate,
			Synthetic:   row.BatchID == nil,
		})
	}
	return lines, nil
}

// availableBatchStock sums AvailableStock across batch rows. Zero when every
// batch is blocked, expired, disposed or empty.
func availableBatchStock(batches []inventory.ProductBatch) decimal.Decimal {
	total := decimal.Zero
	for i := range batches {
		total = total.Add(batches[i].AvailableStock())
	}
	return total
}

// allocationCost sums the rounded per-line costs
func allocationCost(allocations []inventory.BatchAllocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.TotalCost())
	}
	return total
}
