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

// GormBranchInventoryRepository implements BranchInventoryRepository using GORM
type GormBranchInventoryRepository struct {
	db *gorm.DB
}

// NewGormBranchInventoryRepository creates a new GormBranchInventoryRepository
func NewGormBranchInventoryRepository(db *gorm.DB) *GormBranchInventoryRepository {
	return &GormBranchInventoryRepository{db: db}
}

// FindByID finds a projection row by its ID
func (r *GormBranchInventoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.BranchInventory, error) {
	var row inventory.BranchInventory
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// FindByBranchAndProduct finds the row for a (branch, product) pair
func (r *GormBranchInventoryRepository) FindByBranchAndProduct(ctx context.Context, branchID, productID uuid.UUID) (*inventory.BranchInventory, error) {
	var row inventory.BranchInventory
	if err := r.db.WithContext(ctx).
		Where("branch_id = ? AND product_id = ?", branchID, productID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// FindByBranch lists projection rows for a branch
func (r *GormBranchInventoryRepository) FindByBranch(ctx context.Context, branchID uuid.UUID, filter shared.Filter) ([]inventory.BranchInventory, error) {
	query := r.db.WithContext(ctx).
		Model(&inventory.BranchInventory{}).
		Where("branch_id = ?", branchID)
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var rows []inventory.BranchInventory
	if err := query.Order("product_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindNeedingRestock lists rows at or below their minimum threshold
func (r *GormBranchInventoryRepository) FindNeedingRestock(ctx context.Context, branchID *uuid.UUID, filter shared.Filter) ([]inventory.BranchInventory, error) {
	query := r.db.WithContext(ctx).
		Model(&inventory.BranchInventory{}).
		Where("is_active = TRUE AND minimum_stock > 0 AND stock <= minimum_stock")
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var rows []inventory.BranchInventory
	if err := query.Order("branch_id ASC, product_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetOrCreate returns the row for a (branch, product) pair, creating a
// zero-stock row on first use. A lost creation race falls back to the row
// the winner inserted.
func (r *GormBranchInventoryRepository) GetOrCreate(ctx context.Context, branchID, productID uuid.UUID, now time.Time) (*inventory.BranchInventory, error) {
	row, err := r.FindByBranchAndProduct(ctx, branchID, productID)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	created, err := inventory.NewBranchInventory(branchID, productID, now)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.FindByBranchAndProduct(ctx, branchID, productID)
		}
		return nil, err
	}
	return created, nil
}

// Save creates or updates a projection row
func (r *GormBranchInventoryRepository) Save(ctx context.Context, inv *inventory.BranchInventory) error {
	return r.db.WithContext(ctx).Save(inv).Error
}

// SaveWithLock updates a row with an optimistic version check
func (r *GormBranchInventoryRepository) SaveWithLock(ctx context.Context, inv *inventory.BranchInventory) error {
	result := r.db.WithContext(ctx).
		Model(inv).
		Where("id = ? AND version = ?", inv.ID, inv.Version-1).
		Updates(map[string]interface{}{
			"stock":         inv.Stock,
			"minimum_stock": inv.MinimumStock,
			"maximum_stock": inv.MaximumStock,
			"buy_price":     inv.BuyPrice,
			"sell_price":    inv.SellPrice,
			"is_active":     inv.IsActive,
			"version":       inv.Version,
			"updated_at":    inv.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// SumStockByProduct sums projected stock for a product across branches
func (r *GormBranchInventoryRepository) SumStockByProduct(ctx context.Context, productID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&inventory.BranchInventory{}).
		Where("product_id = ?", productID).
		Select("SUM(stock)").
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// CountByBranch counts projection rows for a branch
func (r *GormBranchInventoryRepository) CountByBranch(ctx context.Context, branchID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&inventory.BranchInventory{}).
		Where("branch_id = ?", branchID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormBranchInventoryRepository implements BranchInventoryRepository
var _ inventory.BranchInventoryRepository = (*GormBranchInventoryRepository)(nil)
