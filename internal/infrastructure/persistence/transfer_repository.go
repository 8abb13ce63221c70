package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retailchain/inventory/internal/domain/shared"
	"github.com/retailchain/inventory/internal/domain/transfer"
)

// GormTransferRepository implements TransferRepository using GORM. The
// aggregate is loaded whole: items and status history travel with the root.
type GormTransferRepository struct {
	db *gorm.DB
}

// NewGormTransferRepository creates a new GormTransferRepository
func NewGormTransferRepository(db *gorm.DB) *GormTransferRepository {
	return &GormTransferRepository{db: db}
}

// withAssociations preloads items and the ordered status history
func (r *GormTransferRepository) withAssociations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("changed_at ASC, created_at ASC")
		})
}

// FindByID finds a transfer by its ID with items and history
func (r *GormTransferRepository) FindByID(ctx context.Context, id uuid.UUID) (*transfer.InventoryTransfer, error) {
	var t transfer.InventoryTransfer
	if err := r.withAssociations(r.db.WithContext(ctx)).
		First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindByNumber finds a transfer by its transfer number
func (r *GormTransferRepository) FindByNumber(ctx context.Context, transferNumber string) (*transfer.InventoryTransfer, error) {
	var t transfer.InventoryTransfer
	if err := r.withAssociations(r.db.WithContext(ctx)).
		Where("transfer_number = ?", transferNumber).
		First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// FindAll lists transfers matching the filter
func (r *GormTransferRepository) FindAll(ctx context.Context, filter transfer.TransferFilter) ([]transfer.InventoryTransfer, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&transfer.InventoryTransfer{}), filter)
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, TransferSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var transfers []transfer.InventoryTransfer
	if err := r.withAssociations(query).
		Order(orderBy + " " + orderDir).
		Find(&transfers).Error; err != nil {
		return nil, err
	}
	return transfers, nil
}

// Count counts transfers matching the filter
func (r *GormTransferRepository) Count(ctx context.Context, filter transfer.TransferFilter) (int64, error) {
	var count int64
	query := r.applyFilter(r.db.WithContext(ctx).Model(&transfer.InventoryTransfer{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Create persists a new transfer with its items and first history row
func (r *GormTransferRepository) Create(ctx context.Context, t *transfer.InventoryTransfer) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// SaveWithLock updates the root with an optimistic version check, then
// upserts items and appends new history rows
func (r *GormTransferRepository) SaveWithLock(ctx context.Context, t *transfer.InventoryTransfer) error {
	result := r.db.WithContext(ctx).
		Model(t).
		Where("id = ? AND version = ?", t.ID, t.Version-1).
		Updates(map[string]interface{}{
			"status":          t.Status,
			"estimated_cost":  t.EstimatedCost,
			"actual_cost":     t.ActualCost,
			"carrier":         t.Carrier,
			"tracking_number": t.TrackingNumber,
			"notes":           t.Notes,
			"approved_by_id":  t.ApprovedByID,
			"approved_at":     t.ApprovedAt,
			"rejected_by_id":  t.RejectedByID,
			"rejected_at":     t.RejectedAt,
			"reject_reason":   t.RejectReason,
			"shipped_by_id":   t.ShippedByID,
			"shipped_at":      t.ShippedAt,
			"received_by_id":  t.ReceivedByID,
			"received_at":     t.ReceivedAt,
			"cancelled_by_id": t.CancelledByID,
			"cancelled_at":    t.CancelledAt,
			"cancel_reason":   t.CancelReason,
			"version":         t.Version,
			"updated_at":      t.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	if len(t.Items) > 0 {
		if err := r.db.WithContext(ctx).Save(&t.Items).Error; err != nil {
			return err
		}
	}
	if len(t.StatusHistory) > 0 {
		if err := r.db.WithContext(ctx).Save(&t.StatusHistory).Error; err != nil {
			return err
		}
	}
	return nil
}

// ExistsByNumber checks transfer-number uniqueness
func (r *GormTransferRepository) ExistsByNumber(ctx context.Context, transferNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&transfer.InventoryTransfer{}).
		Where("transfer_number = ?", transferNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the transfer-specific filters
func (r *GormTransferRepository) applyFilter(query *gorm.DB, filter transfer.TransferFilter) *gorm.DB {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.SourceBranchID != nil {
		query = query.Where("source_branch_id = ?", *filter.SourceBranchID)
	}
	if filter.DestinationBranchID != nil {
		query = query.Where("destination_branch_id = ?", *filter.DestinationBranchID)
	}
	if filter.RequestedByID != nil {
		query = query.Where("requested_by_id = ?", *filter.RequestedByID)
	}
	return query
}

// Ensure GormTransferRepository implements TransferRepository
var _ transfer.TransferRepository = (*GormTransferRepository)(nil)
