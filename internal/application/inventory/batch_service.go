package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/retailchain/inventory/internal/domain/inventory"
	"github.com/retailchain/inventory/internal/domain/shared"
)

// BatchService handles batch lifecycle operations: receiving, blocking,
// expiry marking and disposal. Receiving and disposal write ledger entries in
// the same transaction as the batch change.
type BatchService struct {
	batchRepo inventory.ProductBatchRepository
	txScope   TransactionScope
	now       func() time.Time
}

// NewBatchService creates a new BatchService
func NewBatchService(batchRepo inventory.ProductBatchRepository, txScope TransactionScope) *BatchService {
	return &BatchService{
		batchRepo: batchRepo,
		txScope:   txScope,
		now:       time.Now,
	}
}

// SetClock overrides the service clock. Used in tests.
func (s *BatchService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateBatch receives a new batch of stock. The batch row and its STOCK_IN
// ledger entry commit atomically; a duplicate (product, batch number) pair
// fails with DUPLICATE_BATCH_NUMBER before anything is written.
func (s *BatchService) CreateBatch(ctx context.Context, req CreateBatchRequest) (*BatchResponse, error) {
	now := s.now()

	mutationType := req.MutationType
	if mutationType == "" {
		mutationType = inventory.MutationTypeStockIn
	}
	if !mutationType.IsValid() || !mutationType.IsInbound() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Batch receipt requires an inbound mutation type")
	}

	var batch *inventory.ProductBatch
	err := withConcurrencyRetry(ctx, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			exists, err := repos.Batches().ExistsByProductAndNumber(ctx, req.ProductID, req.BatchNumber)
			if err != nil {
				return err
			}
			if exists {
				return shared.NewDuplicateBatchNumberError(req.ProductID, req.BatchNumber)
			}

			batch, err = inventory.NewProductBatch(
				req.ProductID, req.BranchID, req.BatchNumber,
				req.Quantity, req.CostPerUnit,
				req.ExpiryDate, req.ProductionDate, now,
			)
			if err != nil {
				return err
			}
			if err := repos.Batches().Create(ctx, batch); err != nil {
				return err
			}

			if req.BranchID == nil {
				return nil
			}
			unitCost := batch.CostPerUnit
			_, err = AppendMutation(ctx, repos, AppendMutationRequest{
				ProductID:       req.ProductID,
				BranchID:        req.BranchID,
				Type:            mutationType,
				Quantity:        req.Quantity,
				UnitCost:        &unitCost,
				ReferenceNumber: req.ReferenceNumber,
				ActorID:         req.ActorID,
			}, now)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	response := ToBatchResponse(batch)
	return &response, nil
}

// GetByID retrieves a batch
func (s *BatchService) GetByID(ctx context.Context, id uuid.UUID) (*BatchResponse, error) {
	batch, err := s.batchRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToBatchResponse(batch)
	return &response, nil
}

// ListForProduct lists the batches of a product in FIFO consumption order
func (s *BatchService) ListForProduct(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID, onlyAvailable bool) ([]BatchResponse, error) {
	batches, err := s.batchRepo.FindForProduct(ctx, productID, branchID, onlyAvailable)
	if err != nil {
		return nil, err
	}
	responses := make([]BatchResponse, 0, len(batches))
	for i := range batches {
		responses = append(responses, ToBatchResponse(&batches[i]))
	}
	return responses, nil
}

// ListExpiringBefore lists not-yet-expired batches whose expiry date lies
// before the deadline
func (s *BatchService) ListExpiringBefore(ctx context.Context, deadline time.Time, filter shared.Filter) ([]BatchResponse, error) {
	batches, err := s.batchRepo.FindExpiringBefore(ctx, deadline, filter)
	if err != nil {
		return nil, err
	}
	responses := make([]BatchResponse, 0, len(batches))
	for i := range batches {
		responses = append(responses, ToBatchResponse(&batches[i]))
	}
	return responses, nil
}

// Block puts a batch on hold (quality hold, recall). Blocked stock is
// excluded from allocation but keeps its quantity.
func (s *BatchService) Block(ctx context.Context, batchID uuid.UUID, reason string) (*BatchResponse, error) {
	return s.updateBatch(ctx, batchID, func(batch *inventory.ProductBatch, now time.Time) error {
		return batch.Block(reason, now)
	})
}

// Unblock releases a blocked batch
func (s *BatchService) Unblock(ctx context.Context, batchID uuid.UUID) (*BatchResponse, error) {
	return s.updateBatch(ctx, batchID, func(batch *inventory.ProductBatch, now time.Time) error {
		batch.Unblock(now)
		return nil
	})
}

// MarkExpired flags a batch as expired. Its stock stays visible for the
// disposal workflow; no ledger entry is written until disposal.
func (s *BatchService) MarkExpired(ctx context.Context, batchID uuid.UUID) (*BatchResponse, error) {
	return s.updateBatch(ctx, batchID, func(batch *inventory.ProductBatch, now time.Time) error {
		batch.MarkExpired(now)
		return nil
	})
}

// SweepExpired marks every batch whose expiry date has passed. Returns the
// number of batches flagged. Run periodically; between runs, expiry is also
// enforced at consumption time through AvailableStock.
func (s *BatchService) SweepExpired(ctx context.Context) (int, error) {
	now := s.now()
	filter := shared.DefaultFilter()
	filter.PageSize = 500

	swept := 0
	for {
		batches, err := s.batchRepo.FindExpiringBefore(ctx, now, filter)
		if err != nil {
			return swept, err
		}
		if len(batches) == 0 {
			return swept, nil
		}
		for i := range batches {
			batch := &batches[i]
			batch.MarkExpired(now)
			if err := s.batchRepo.SaveWithLock(ctx, batch); err != nil {
				if shared.IsCode(err, shared.ErrConcurrencyConflict.Code) {
					continue // another writer got there first; next sweep retries
				}
				return swept, err
			}
			swept++
		}
		if len(batches) < filter.PageSize {
			return swept, nil
		}
	}
}

// Dispose disposes an expired or blocked batch. The remaining quantity is
// written off the ledger in the same transaction, classified by what
// triggered the disposal: EXPIRED for expired stock, DAMAGED for stock
// disposed off a quality hold.
func (s *BatchService) Dispose(ctx context.Context, req DisposeBatchRequest) (*BatchResponse, error) {
	var batch *inventory.ProductBatch
	err := withConcurrencyRetry(ctx, func() error {
		return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			now := s.now()
			var err error
			batch, err = repos.Batches().FindByID(ctx, req.BatchID)
			if err != nil {
				return err
			}

			remaining := batch.CurrentStock
			writeOffType := inventory.MutationTypeExpired
			if !batch.IsExpired {
				writeOffType = inventory.MutationTypeDamaged
			}
			if err := batch.Dispose(req.Method, req.ActorID, now); err != nil {
				return err
			}
			if err := repos.Batches().SaveWithLock(ctx, batch); err != nil {
				return err
			}

			if batch.BranchID == nil || !remaining.IsPositive() {
				return nil
			}
			reference := req.ReferenceNumber
			if reference == "" {
				reference = batch.BatchNumber
			}
			unitCost := batch.CostPerUnit
			_, err = AppendMutation(ctx, repos, AppendMutationRequest{
				ProductID:       batch.ProductID,
				BranchID:        batch.BranchID,
				Type:            writeOffType,
				Quantity:        remaining.Neg(),
				UnitCost:        &unitCost,
				ReferenceNumber: reference,
				ActorID:         req.ActorID,
			}, now)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	response := ToBatchResponse(batch)
	return &response, nil
}

// updateBatch applies a mutator to a batch under the optimistic lock
func (s *BatchService) updateBatch(ctx context.Context, batchID uuid.UUID, mutate func(*inventory.ProductBatch, time.Time) error) (*BatchResponse, error) {
	var batch *inventory.ProductBatch
	err := withConcurrencyRetry(ctx, func() error {
		var err error
		batch, err = s.batchRepo.FindByID(ctx, batchID)
		if err != nil {
			return err
		}
		if err := mutate(batch, s.now()); err != nil {
			return err
		}
		return s.batchRepo.SaveWithLock(ctx, batch)
	})
	if err != nil {
		return nil, err
	}
	response := ToBatchResponse(batch)
	return &response, nil
}
