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

// GormStockMutationRepository implements StockMutationRepository using GORM.
// The ledger is append-only: this repository deliberately exposes no update
// or delete paths.
type GormStockMutationRepository struct {
	db *gorm.DB
}

// NewGormStockMutationRepository creates a new GormStockMutationRepository
func NewGormStockMutationRepository(db *gorm.DB) *GormStockMutationRepository {
	return &GormStockMutationRepository{db: db}
}

// FindByID finds a ledger entry by its ID
func (r *GormStockMutationRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockMutation, error) {
	var mutation inventory.StockMutation
	if err := r.db.WithContext(ctx).First(&mutation, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &mutation, nil
}

// History returns ledger entries for a (product, branch) key in occurrence order
func (r *GormStockMutationRepository) History(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID, from, to *time.Time, filter shared.Filter) ([]inventory.StockMutation, error) {
	query := r.keyed(r.db.WithContext(ctx), productID, branchID)
	if from != nil {
		query = query.Where("occurred_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("occurred_at < ?", *to)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var mutations []inventory.StockMutation
	if err := query.Order("occurred_at ASC, created_at ASC").Find(&mutations).Error; err != nil {
		return nil, err
	}
	return mutations, nil
}

// FindByReference returns entries correlated to an originating document
func (r *GormStockMutationRepository) FindByReference(ctx context.Context, referenceNumber string) ([]inventory.StockMutation, error) {
	var mutations []inventory.StockMutation
	if err := r.db.WithContext(ctx).
		Where("reference_number = ?", referenceNumber).
		Order("occurred_at ASC, created_at ASC").
		Find(&mutations).Error; err != nil {
		return nil, err
	}
	return mutations, nil
}

// Create appends a new ledger entry
func (r *GormStockMutationRepository) Create(ctx context.Context, mutation *inventory.StockMutation) error {
	return r.db.WithContext(ctx).Create(mutation).Error
}

// CountForProduct counts entries for a (product, branch) key
func (r *GormStockMutationRepository) CountForProduct(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID) (int64, error) {
	var count int64
	if err := r.keyed(r.db.WithContext(ctx), productID, branchID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// SumQuantity folds the signed quantities of a (product, branch) key
func (r *GormStockMutationRepository) SumQuantity(ctx context.Context, productID uuid.UUID, branchID *uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := r.keyed(r.db.WithContext(ctx), productID, branchID).
		Select("SUM(quantity)").
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// keyed scopes a query to one (product, branch) ledger key. Entries without
// a branch form their own key.
func (r *GormStockMutationRepository) keyed(db *gorm.DB, productID uuid.UUID, branchID *uuid.UUID) *gorm.DB {
	query := db.Model(&inventory.StockMutation{}).Where("product_id = ?", productID)
	if branchID != nil {
		return query.Where("branch_id = ?", *branchID)
	}
	return query.Where("branch_id IS NULL")
}

// Ensure GormStockMutationRepository implements StockMutationRepository
var _ inventory.StockMutationRepository = (*GormStockMutationRepository)(nil)
