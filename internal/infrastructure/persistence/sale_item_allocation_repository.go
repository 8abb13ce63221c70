package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/retailchain/inventory/internal/domain/inventory"
)

// GormSaleItemAllocationRepository implements SaleItemAllocationRepository using GORM
type GormSaleItemAllocationRepository struct {
	db *gorm.DB
}

// NewGormSaleItemAllocationRepository creates a new GormSaleItemAllocationRepository
func NewGormSaleItemAllocationRepository(db *gorm.DB) *GormSaleItemAllocationRepository {
	return &GormSaleItemAllocationRepository{db: db}
}

// FindBySaleItem returns allocation rows for a sale item in creation order
func (r *GormSaleItemAllocationRepository) FindBySaleItem(ctx context.Context, saleItemID uuid.UUID) ([]inventory.SaleItemAllocation, error) {
	var rows []inventory.SaleItemAllocation
	if err := r.db.WithContext(ctx).
		Where("sale_item_id = ?", saleItemID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateBatch persists allocation rows
func (r *GormSaleItemAllocationRepository) CreateBatch(ctx context.Context, allocations []*inventory.SaleItemAllocation) error {
	if len(allocations) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&allocations).Error
}

// Ensure GormSaleItemAllocationRepository implements SaleItemAllocationRepository
var _ inventory.SaleItemAllocationRepository = (*GormSaleItemAllocationRepository)(nil)
