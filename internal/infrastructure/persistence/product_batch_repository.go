package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/retailchain/inventory/internal/domain/inventory"
	"github.com/retailchain/inventory/internal/domain/shared"
)

// fifoOrder is the consumption order contract: earliest expiry first with
// batches that never expire last, ties broken deterministically.
const fifoOrder = "COALESCE(expiry_date, '9999-12-31') ASC, COALESCE(production_date, '9999-12-31') ASC, created_at ASC, id ASC"

// GormProductBatchRepository implements ProductBatchRepository using GORM
type GormProductBatchRepository struct {
	db *gorm.DB
}

// NewGormProductBatchRepository creates a new GormProductBatchRepository
func NewGormProductBatchRepository(db *gorm.DB) *GormProductBatchRepository {
	return &GormProductBatchRepository{db: db}
}

// FindByID finds a batch by its ID
func (r *GormProductBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.ProductBatch, error) {
	var batch inventory.ProductBatch
	if err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindByProductAndNumber finds a batch by its (product, batch number) key
func (r *GormProductBatchRepository) FindByProductAndNumber(ctx context.Context, productID uuid.UUID, batchNumber string) (*inventory.ProductBatch, error) {
	var batch inventory.ProductBatch
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND batch_number = ?", productID, batchNumber).
		First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// FindForProduct returns batches for a product in FIFO consumption order
func (r *GormProductBatchRepository) FindForProduct(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID, onlyAvailable bool) ([]inventory.ProductBatch, error) {
	query := r.db.WithContext(ctx).
		Model(&inventory.ProductBatch{}).
		Where("product_id = ?", productID)
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}
	if onlyAvailable {
		query = query.Where("is_blocked = FALSE AND is_expired = FALSE AND is_disposed = FALSE AND current_stock > 0")
	}

	var batches []inventory.ProductBatch
	if err := query.Order(fifoOrder).Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// FindExpiringBefore returns not-yet-flagged batches whose expiry date lies
// before the deadline
func (r *GormProductBatchRepository) FindExpiringBefore(ctx context.Context, deadline time.Time, filter shared.Filter) ([]inventory.ProductBatch, error) {
	query := r.db.WithContext(ctx).
		Model(&inventory.ProductBatch{}).
		Where("is_expired = FALSE AND is_disposed = FALSE").
		Where("expiry_date IS NOT NULL AND expiry_date < ?", deadline)
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var batches []inventory.ProductBatch
	if err := query.Order("expiry_date ASC, id ASC").Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// ExistsByProductAndNumber checks the (product, batch number) uniqueness key
func (r *GormProductBatchRepository) ExistsByProductAndNumber(ctx context.Context, productID uuid.UUID, batchNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.ProductBatch{}).
		Where("product_id = ? AND batch_number = ?", productID, batchNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create persists a new batch. The unique index on (product_id, batch_number)
// backstops the service-level existence check under concurrency.
func (r *GormProductBatchRepository) Create(ctx context.Context, batch *inventory.ProductBatch) error {
	if err := r.db.WithContext(ctx).Create(batch).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDuplicateBatchNumberError(batch.ProductID, batch.BatchNumber)
		}
		return err
	}
	return nil
}

// SaveWithLock updates a batch with an optimistic version check
func (r *GormProductBatchRepository) SaveWithLock(ctx context.Context, batch *inventory.ProductBatch) error {
	result := r.db.WithContext(ctx).
		Model(batch).
		Where("id = ? AND version = ?", batch.ID, batch.Version-1).
		Updates(map[string]interface{}{
			"current_stock":   batch.CurrentStock,
			"is_blocked":      batch.IsBlocked,
			"block_reason":    batch.BlockReason,
			"is_expired":      batch.IsExpired,
			"is_disposed":     batch.IsDisposed,
			"disposed_at":     batch.DisposedAt,
			"disposal_method": batch.DisposalMethod,
			"disposed_by_id":  batch.DisposedByID,
			"version":         batch.Version,
			"updated_at":      batch.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// SumAvailableForProduct sums available stock across the batches of a
// (product, branch) key
func (r *GormProductBatchRepository) SumAvailableForProduct(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID) (decimal.Decimal, error) {
	query := r.db.WithContext(ctx).
		Model(&inventory.ProductBatch{}).
		Where("product_id = ?", productID).
		Where("is_blocked = FALSE AND is_expired = FALSE AND is_disposed = FALSE")
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}

	var total decimal.NullDecimal
	if err := query.Select("SUM(current_stock)").Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// Ensure GormProductBatchRepository implements ProductBatchRepository
var _ inventory.ProductBatchRepository = (*GormProductBatchRepository)(nil)
