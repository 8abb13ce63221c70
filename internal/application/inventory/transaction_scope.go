package inventory

import (
	"context"

	"github.com/retailchain/inventory/internal/domain/inventory"
	"github.com/retailchain/inventory/internal/domain/transfer"
)

// TransactionScope provides transactional access to the accounting
// repositories. When a function is executed within a scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically. Ledger appends, batch consumption and transfer
// transitions all run inside one scope so partial application is impossible.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within a
// transaction. All repositories returned share the same underlying
// database transaction.
type TransactionalRepositories interface {
	// Batches returns the product batch repository scoped to the current transaction
	Batches() inventory.ProductBatchRepository
	// Mutations returns the stock mutation repository scoped to the current transaction
	Mutations() inventory.StockMutationRepository
	// BranchInventories returns the branch projection repository scoped to the current transaction
	BranchInventories() inventory.BranchInventoryRepository
	// SaleAllocations returns the sale-item allocation repository scoped to the current transaction
	SaleAllocations() inventory.SaleItemAllocationRepository
	// Transfers returns the transfer repository scoped to the current transaction
	Transfers() transfer.TransferRepository
}

// NoOpTransactionScope runs functions without a real transaction. Used in
// tests where repositories are in-memory.
type NoOpTransactionScope struct {
	batchRepo      inventory.ProductBatchRepository
	mutationRepo   inventory.StockMutationRepository
	branchRepo     inventory.BranchInventoryRepository
	allocationRepo inventory.SaleItemAllocationRepository
	transferRepo   transfer.TransferRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given repositories
func NewNoOpTransactionScope(
	batchRepo inventory.ProductBatchRepository,
	mutationRepo inventory.StockMutationRepository,
	branchRepo inventory.BranchInventoryRepository,
	allocationRepo inventory.SaleItemAllocationRepository,
	transferRepo transfer.TransferRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		batchRepo:      batchRepo,
		mutationRepo:   mutationRepo,
		branchRepo:     branchRepo,
		allocationRepo: allocationRepo,
		transferRepo:   transferRepo,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Batches returns the product batch repository
func (s *NoOpTransactionScope) Batches() inventory.ProductBatchRepository {
	return s.batchRepo
}

// Mutations returns the stock mutation repository
func (s *NoOpTransactionScope) Mutations() inventory.StockMutationRepository {
	return s.mutationRepo
}

// BranchInventories returns the branch projection repository
func (s *NoOpTransactionScope) BranchInventories() inventory.BranchInventoryRepository {
	return s.branchRepo
}

// SaleAllocations returns the sale-item allocation repository
func (s *NoOpTransactionScope) SaleAllocations() inventory.SaleItemAllocationRepository {
	return s.allocationRepo
}

// Transfers returns the transfer repository
func (s *NoOpTransactionScope) Transfers() transfer.TransferRepository {
	return s.transferRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
