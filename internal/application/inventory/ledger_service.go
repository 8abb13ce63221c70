package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailchain/inventory/internal/domain/inventory"
	"github.com/retailchain/inventory/internal/domain/shared"
)

// LedgerService owns the append-only stock mutation ledger. Appending is the
// only way projected stock changes: the ledger entry and the projection
// update are written in one transaction, so replaying the ledger always
// reproduces the projection.
type LedgerService struct {
	mutationRepo inventory.StockMutationRepository
	branchRepo   inventory.BranchInventoryRepository
	txScope      TransactionScope
	now          func() time.Time
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	mutationRepo inventory.StockMutationRepository,
	branchRepo inventory.BranchInventoryRepository,
	txScope TransactionScope,
) *LedgerService {
	return &LedgerService{
		mutationRepo: mutationRepo,
		branchRepo:   branchRepo,
		txScope:      txScope,
		now:          time.Now,
	}
}

// SetClock overrides the service clock. Used in tests.
func (s *LedgerService) SetClock(now func() time.Time) {
	s.now = now
}

// AppendMutation writes one ledger entry and applies its delta to the branch
// projection, all against the repositories of the given transaction scope.
// Callers that bundle several entries into one unit of work (allocation,
// transfer ship/receive) call this inside their own scope.
//
// For branch-scoped entries the stock-before snapshot comes from the
// projection row, which is created on first use. Entries without a branch
// derive their snapshot from the ledger itself.
func AppendMutation(ctx context.Context, repos TransactionalRepositories, req AppendMutationRequest, now time.Time) (*inventory.StockMutation, error) {
	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	if req.BranchID == nil {
		before, err := repos.Mutations().SumQuantity(ctx, req.ProductID, nil)
		if err != nil {
			return nil, err
		}
		mutation, err := inventory.NewStockMutation(
			req.ProductID, nil, req.Type, req.Quantity, before,
			req.ReferenceNumber, req.ActorID, occurredAt,
		)
		if err != nil {
			return nil, err
		}
		if req.UnitCost != nil {
			mutation.WithCost(*req.UnitCost)
		}
		if err := repos.Mutations().Create(ctx, mutation); err != nil {
			return nil, err
		}
		return mutation, nil
	}

	proj, err := repos.BranchInventories().GetOrCreate(ctx, *req.BranchID, req.ProductID, now)
	if err != nil {
		return nil, err
	}

	mutation, err := inventory.NewStockMutation(
		req.ProductID, req.BranchID, req.Type, req.Quantity, proj.Stock,
		req.ReferenceNumber, req.ActorID, occurredAt,
	)
	if err != nil {
		return nil, err
	}
	if req.UnitCost != nil {
		mutation.WithCost(*req.UnitCost)
	}

	if err := proj.ApplyDelta(req.Quantity, now); err != nil {
		return nil, err
	}
	if err := repos.BranchInventories().SaveWithLock(ctx, proj); err != nil {
		return nil, err
	}
	if err := repos.Mutations().Create(ctx, mutation); err != nil {
		return nil, err
	}
	return mutation, nil
}

// Append records one stock mutation. Lost optimistic-lock races against the
// projection row are retried with fresh reads.
func (s *LedgerService) Append(ctx context.Context, req AppendMutationRequest) (*MutationResponse, error) {
	if !req.Type.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Invalid mutation type")
	}

	var mutation *inventory.StockMutation
	err := withConcurrencyRetry(ctx, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			mutation, err = AppendMutation(ctx, repos, req, s.now())
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	response := ToMutationResponse(mutation)
	return &response, nil
}

// GetByID retrieves one ledger entry
func (s *LedgerService) GetByID(ctx context.Context, id uuid.UUID) (*MutationResponse, error) {
	mutation, err := s.mutationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToMutationResponse(mutation)
	return &response, nil
}

// History returns the ledger entries for a (product, branch) key in
// occurrence order, with the total count for pagination.
func (s *LedgerService) History(ctx context.Context, req HistoryRequest) ([]MutationResponse, int64, error) {
	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}

	mutations, err := s.mutationRepo.History(ctx, req.ProductID, req.BranchID, req.From, req.To, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.mutationRepo.CountForProduct(ctx, req.ProductID, req.BranchID)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]MutationResponse, 0, len(mutations))
	for i := range mutations {
		responses = append(responses, ToMutationResponse(&mutations[i]))
	}
	return responses, total, nil
}

// GetByReference returns the ledger entries correlated to an originating
// document (sale, transfer, purchase).
func (s *LedgerService) GetByReference(ctx context.Context, referenceNumber string) ([]MutationResponse, error) {
	mutations, err := s.mutationRepo.FindByReference(ctx, referenceNumber)
	if err != nil {
		return nil, err
	}
	responses := make([]MutationResponse, 0, len(mutations))
	for i := range mutations {
		responses = append(responses, ToMutationResponse(&mutations[i]))
	}
	return responses, nil
}

// VerifyReplay folds the ledger for a (product, branch) key and compares the
// result with the projected stock. The two must match at all times.
func (s *LedgerService) VerifyReplay(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID) (*ReplayCheckResponse, error) {
	ledgerStock, err := s.mutationRepo.SumQuantity(ctx, productID, branchID)
	if err != nil {
		return nil, err
	}

	projected := ledgerStock
	if branchID != nil {
		proj, err := s.branchRepo.FindByBranchAndProduct(ctx, *branchID, productID)
		switch {
		case err == nil:
			projected = proj.Stock
		case shared.IsCode(err, shared.ErrNotFound.Code):
			projected = decimal.Zero
		default:
			return nil, err
		}
	}

	return &ReplayCheckResponse{
		ProductID:      productID,
		BranchID:       branchID,
		LedgerStock:    ledgerStock,
		ProjectedStock: projected,
		Consistent:     ledgerStock.Equal(projected),
	}, nil
}

// ProductStock sums projected stock for a product across all branches. The
// product-level aggregate is always derived, never stored.
func (s *LedgerService) ProductStock(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	return s.branchRepo.SumStockByProduct(ctx, productID)
}
