package persistence

import (
	"context"

	"gorm.io/gorm"

	appinv "github.com/retailchain/inventory/internal/application/inventory"
	"github.com/retailchain/inventory/internal/domain/inventory"
	"github.com/retailchain/inventory/internal/domain/transfer"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Batches returns the product batch repository scoped to the current transaction
func (r *gormTransactionalRepositories) Batches() inventory.ProductBatchRepository {
	return NewGormProductBatchRepository(r.tx)
}

// Mutations returns the stock mutation repository scoped to the current transaction
func (r *gormTransactionalRepositories) Mutations() inventory.StockMutationRepository {
	return NewGormStockMutationRepository(r.tx)
}

// BranchInventories returns the branch projection repository scoped to the current transaction
func (r *gormTransactionalRepositories) BranchInventories() inventory.BranchInventoryRepository {
	return NewGormBranchInventoryRepository(r.tx)
}

// SaleAllocations returns the sale-item allocation repository scoped to the current transaction
func (r *gormTransactionalRepositories) SaleAllocations() inventory.SaleItemAllocationRepository {
	return NewGormSaleItemAllocationRepository(r.tx)
}

// Transfers returns the transfer repository scoped to the current transaction
func (r *gormTransactionalRepositories) Transfers() transfer.TransferRepository {
	return NewGormTransferRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appinv.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
