package transfer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appinv "github.com/retailchain/inventory/internal/application/inventory"
	"github.com/retailchain/inventory/internal/domain/inventory"
	"github.com/retailchain/inventory/internal/domain/shared"
	"github.com/retailchain/inventory/internal/domain/transfer"
)

// TransferService drives the inter-branch transfer workflow. Stock moves in
// two legs: ship decrements the source branch, receive increments the
// destination, each leg one transaction bundling the status transition, the
// ledger entries and the batch effects. Cancelled and rejected transfers never
// touch stock.
type TransferService struct {
	transferRepo      transfer.TransferRepository
	branchRepo        inventory.BranchInventoryRepository
	txScope           appinv.TransactionScope
	idempotency       shared.IdempotencyStore
	idempotencyConfig shared.IdempotencyConfig
	approvalThreshold decimal.Decimal
	now               func() time.Time
}

// NewTransferService creates a new TransferService
func NewTransferService(
	transferRepo transfer.TransferRepository,
	branchRepo inventory.BranchInventoryRepository,
	txScope appinv.TransactionScope,
) *TransferService {
	return &TransferService{
		transferRepo:      transferRepo,
		branchRepo:        branchRepo,
		txScope:           txScope,
		idempotencyConfig: shared.DefaultIdempotencyConfig(),
		now:               time.Now,
	}
}

// SetIdempotencyStore enables idempotent ship/receive retries
func (s *TransferService) SetIdempotencyStore(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) {
	s.idempotency = store
	s.idempotencyConfig = cfg
}

// SetApprovalThreshold sets the value above which a transfer is flagged as
// requiring manager approval
func (s *TransferService) SetApprovalThreshold(threshold decimal.Decimal) {
	s.approvalThreshold = threshold
}

// SetClock overrides the service clock. Used in tests.
func (s *TransferService) SetClock(now func() time.Time) {
	s.now = now
}

// generateTransferNumber builds a human-readable unique transfer number
func generateTransferNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("TRF-%s-%s", now.UTC().Format("20060102"), suffix)
}

// Create requests a transfer. Source availability is checked against the
// projected stock so obviously unfillable requests fail fast, but nothing is
// reserved; the decrement happens at ship time.
func (s *TransferService) Create(ctx context.Context, req CreateTransferRequest) (*TransferResponse, error) {
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Transfer requires at least one item")
	}

	now := s.now()
	transferType := req.Type
	if transferType == "" {
		transferType = transfer.TransferTypeRegular
	}
	priority := req.Priority
	if priority == "" {
		priority = transfer.TransferPriorityNormal
	}
	transferNumber := req.TransferNumber
	if transferNumber == "" {
		transferNumber = generateTransferNumber(now)
	}

	var created *transfer.InventoryTransfer
	err := s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
		exists, err := repos.Transfers().ExistsByNumber(ctx, transferNumber)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError("VALIDATION_ERROR",
				fmt.Sprintf("Transfer number %q already exists", transferNumber))
		}

		created, err = transfer.NewInventoryTransfer(
			transferNumber, transferType, priority,
			req.SourceBranchID, req.DestinationBranchID,
			req.RequestReason, req.ActorID, now,
		)
		if err != nil {
			return err
		}

		for _, item := range req.Items {
			proj, err := repos.BranchInventories().FindByBranchAndProduct(ctx, req.SourceBranchID, item.ProductID)
			if err != nil {
				if shared.IsCode(err, shared.ErrNotFound.Code) {
					return shared.NewInsufficientStockError(item.ProductID, item.Quantity, decimal.Zero)
				}
				return err
			}
			if proj.Stock.LessThan(item.Quantity) {
				return shared.NewInsufficientStockError(item.ProductID, item.Quantity, proj.Stock)
			}
			if err := created.AddItem(item.ProductID, item.Quantity, proj.BuyPrice, "", nil, now); err != nil {
				return err
			}
		}

		return repos.Transfers().Create(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	response := ToTransferResponse(created, s.approvalThreshold)
	return &response, nil
}

// GetByID retrieves a transfer with its items and status history
func (s *TransferService) GetByID(ctx context.Context, id uuid.UUID) (*TransferResponse, error) {
	t, err := s.transferRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToTransferResponse(t, s.approvalThreshold)
	return &response, nil
}

// GetByNumber retrieves a transfer by its transfer number
func (s *TransferService) GetByNumber(ctx context.Context, transferNumber string) (*TransferResponse, error) {
	t, err := s.transferRepo.FindByNumber(ctx, transferNumber)
	if err != nil {
		return nil, err
	}
	response := ToTransferResponse(t, s.approvalThreshold)
	return &response, nil
}

// List retrieves transfers matching the request with the total count
func (s *TransferService) List(ctx context.Context, req ListTransfersRequest) ([]TransferResponse, int64, error) {
	filter := transfer.TransferFilter{Filter: shared.DefaultFilter()}
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}
	if req.Status != "" {
		status := transfer.TransferStatus(req.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("VALIDATION_ERROR", "Invalid transfer status filter")
		}
		filter.Status = &status
	}
	if req.Type != "" {
		transferType := transfer.TransferType(req.Type)
		if !transferType.IsValid() {
			return nil, 0, shared.NewDomainError("VALIDATION_ERROR", "Invalid transfer type filter")
		}
		filter.Type = &transferType
	}
	filter.SourceBranchID = req.SourceBranchID
	filter.DestinationBranchID = req.DestinationBranchID

	transfers, err := s.transferRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.transferRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]TransferResponse, 0, len(transfers))
	for i := range transfers {
		responses = append(responses, ToTransferResponse(&transfers[i], s.approvalThreshold))
	}
	return responses, total, nil
}

// Approve transitions a pending transfer to APPROVED
func (s *TransferService) Approve(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*TransferResponse, error) {
	return s.transition(ctx, id, func(t *transfer.InventoryTransfer, now time.Time) error {
		return t.Approve(actorID, now)
	})
}

// Reject transitions a pending transfer to REJECTED. No stock effect.
func (s *TransferService) Reject(ctx context.Context, id uuid.UUID, req RejectTransferRequest) (*TransferResponse, error) {
	return s.transition(ctx, id, func(t *transfer.InventoryTransfer, now time.Time) error {
		return t.Reject(req.ActorID, req.Reason, now)
	})
}

// Cancel transitions a pending or approved transfer to CANCELLED. Nothing has
// been shipped, so no stock moves and no compensation is needed.
func (s *TransferService) Cancel(ctx context.Context, id uuid.UUID, req CancelTransferRequest) (*TransferResponse, error) {
	return s.transition(ctx, id, func(t *transfer.InventoryTransfer, now time.Time) error {
		return t.Cancel(req.ActorID, req.Reason, now)
	})
}

// Ship dispatches an approved transfer. In one transaction the transfer moves
// to IN_TRANSIT, each item is consumed FIFO from the source branch batches
// and one TRANSFER ledger entry per item records the source decrement. A
// retried ship of the same transfer is a no-op returning the current state.
func (s *TransferService) Ship(ctx context.Context, id uuid.UUID, req ShipTransferRequest) (*TransferResponse, error) {
	current, err := s.transferRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	idempotencyKey := current.TransferNumber + ":ship"
	if done, err := s.alreadyProcessed(ctx, idempotencyKey); err == nil && done {
		response := ToTransferResponse(current, s.approvalThreshold)
		return &response, nil
	}

	var shipped *transfer.InventoryTransfer
	err = s.withConflictRetry(ctx, func() error {
		return s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			now := s.now()
			t, err := repos.Transfers().FindByID(ctx, id)
			if err != nil {
				return err
			}
			if err := t.Ship(req.ActorID, req.Carrier, req.TrackingNumber, now); err != nil {
				return err
			}

			for i := range t.Items {
				item := &t.Items[i]

				allocations, err := appinv.ConsumeFIFO(ctx, repos, item.ProductID, t.SourceBranchID, item.Quantity, now)
				if err != nil {
					return err
				}
				unitCost := appinv.WeightedUnitCost(allocations)
				if unitCost.IsZero() {
					unitCost = item.UnitCost
				}

				mutation, err := appinv.AppendMutation(ctx, repos, appinv.AppendMutationRequest{
					ProductID:       item.ProductID,
					BranchID:        &t.SourceBranchID,
					Type:            inventory.MutationTypeTransfer,
					Quantity:        item.Quantity.Neg(),
					UnitCost:        &unitCost,
					ReferenceNumber: t.TransferNumber,
					ActorID:         req.ActorID,
				}, now)
				if err != nil {
					return err
				}
				item.RecordSourceStock(mutation.StockBefore, mutation.StockAfter)

				// Carry the first consumed batch identity to the destination.
				for _, alloc := range allocations {
					if alloc.Synthetic {
						continue
					}
					item.BatchNumber = alloc.BatchNumber
					item.ExpiryDate = alloc.ExpiryDate
					break
				}
			}

			shipped = t
			return repos.Transfers().SaveWithLock(ctx, t)
		})
	})
	if err != nil {
		return nil, err
	}

	s.markProcessed(ctx, idempotencyKey)
	response := ToTransferResponse(shipped, s.approvalThreshold)
	return &response, nil
}

// Receive completes an in-transit transfer. In one transaction the transfer
// moves to COMPLETED and each item increments the destination branch through
// one TRANSFER ledger entry; when an item carries a batch snapshot, a
// destination batch is created so expiry tracking follows the stock. A
// retried receive is a no-op returning the current state.
func (s *TransferService) Receive(ctx context.Context, id uuid.UUID, actorID uuid.UUID) (*TransferResponse, error) {
	current, err := s.transferRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	idempotencyKey := current.TransferNumber + ":receive"
	if done, err := s.alreadyProcessed(ctx, idempotencyKey); err == nil && done {
		response := ToTransferResponse(current, s.approvalThreshold)
		return &response, nil
	}

	var received *transfer.InventoryTransfer
	err = s.withConflictRetry(ctx, func() error {
		return s.txScope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			now := s.now()
			t, err := repos.Transfers().FindByID(ctx, id)
			if err != nil {
				return err
			}
			if err := t.Receive(actorID, now); err != nil {
				return err
			}

			for i := range t.Items {
				item := &t.Items[i]
				unitCost := item.UnitCost

				mutation, err := appinv.AppendMutation(ctx, repos, appinv.AppendMutationRequest{
					ProductID:       item.ProductID,
					BranchID:        &t.DestinationBranchID,
					Type:            inventory.MutationTypeTransfer,
					Quantity:        item.Quantity,
					UnitCost:        &unitCost,
					ReferenceNumber: t.TransferNumber,
					ActorID:         actorID,
				}, now)
				if err != nil {
					return err
				}
				item.RecordDestinationStock(mutation.StockBefore, mutation.StockAfter)

				if item.BatchNumber == "" {
					continue
				}
				destinationNumber := fmt.Sprintf("%s-%s", item.BatchNumber, t.TransferNumber)
				exists, err := repos.Batches().ExistsByProductAndNumber(ctx, item.ProductID, destinationNumber)
				if err != nil {
					return err
				}
				if exists {
					continue
				}
				batch, err := inventory.NewProductBatch(
					item.ProductID, &t.DestinationBranchID, destinationNumber,
					item.Quantity, item.UnitCost, item.ExpiryDate, nil, now,
				)
				if err != nil {
					return err
				}
				if err := repos.Batches().Create(ctx, batch); err != nil {
					return err
				}
			}

			received = t
			return repos.Transfers().SaveWithLock(ctx, t)
		})
	})
	if err != nil {
		return nil, err
	}

	s.markProcessed(ctx, idempotencyKey)
	response := ToTransferResponse(received, s.approvalThreshold)
	return &response, nil
}

// transition applies a stockless status change under the optimistic lock
func (s *TransferService) transition(ctx context.Context, id uuid.UUID, mutate func(*transfer.InventoryTransfer, time.Time) error) (*TransferResponse, error) {
	var t *transfer.InventoryTransfer
	err := s.withConflictRetry(ctx, func() error {
		var err error
		t, err = s.transferRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := mutate(t, s.now()); err != nil {
			return err
		}
		return s.transferRepo.SaveWithLock(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	response := ToTransferResponse(t, s.approvalThreshold)
	return &response, nil
}

// alreadyProcessed checks the idempotency store when configured
func (s *TransferService) alreadyProcessed(ctx context.Context, key string) (bool, error) {
	if s.idempotency == nil || !s.idempotencyConfig.Enabled {
		return false, nil
	}
	return s.idempotency.IsProcessed(ctx, key)
}

// markProcessed records the idempotency key. A store failure is not
// propagated; the worst case is a retried request hitting the state machine
// guard instead of the fast path.
func (s *TransferService) markProcessed(ctx context.Context, key string) {
	if s.idempotency == nil || !s.idempotencyConfig.Enabled {
		return
	}
	_, _ = s.idempotency.MarkProcessed(ctx, key, s.idempotencyConfig.TTL)
}

// withConflictRetry retries optimistic-lock losers with fresh reads
func (s *TransferService) withConflictRetry(ctx context.Context, fn func() error) error {
	const attempts = 3
	backoff := []time.Duration{25 * time.Millisecond, 50 * time.Millisecond, 100 * time.Millisecond}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = fn()
		if err == nil || !shared.IsCode(err, shared.ErrConcurrencyConflict.Code) {
			return err
		}
		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff[attempt]):
			}
		}
	}
	return err
}
