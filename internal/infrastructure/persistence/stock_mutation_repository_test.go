package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/retailchain/inventory/internal/domain/inventory"
	"github.com/retailchain/inventory/internal/domain/shared"
)

func setupMutationTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&inventory.StockMutation{}))
	return db
}

func appendEntry(t *testing.T, repo *GormStockMutationRepository, productID uuid.UUID, branchID *uuid.UUID, mutationType inventory.MutationType, quantity, before int64, reference string, occurredAt time.Time) *inventory.StockMutation {
	t.Helper()
	mutation, err := inventory.NewStockMutation(
		productID, branchID, mutationType,
		decimal.NewFromInt(quantity), decimal.NewFromInt(before),
		reference, uuid.New(), occurredAt,
	)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), mutation))
	return mutation
}

func TestGormStockMutationRepository_History(t *testing.T) {
	db := setupMutationTestDB(t)
	repo := NewGormStockMutationRepository(db)
	ctx := context.Background()
	productID := uuid.New()
	branchID := uuid.New()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	appendEntry(t, repo, productID, &branchID, inventory.MutationTypeSale, -20, 100, "SO-2", base.Add(2*time.Hour))
	appendEntry(t, repo, productID, &branchID, inventory.MutationTypeStockIn, 100, 0, "GRN-1", base)
	appendEntry(t, repo, productID, &branchID, inventory.MutationTypePurchase, 50, 80, "PO-3", base.Add(4*time.Hour))
	appendEntry(t, repo, productID, nil, inventory.MutationTypeStockIn, 7, 0, "GRN-HQ", base)
	appendEntry(t, repo, uuid.New(), &branchID, inventory.MutationTypeStockIn, 9, 0, "GRN-X", base)

	t.Run("returns the key's entries in occurrence order", func(t *testing.T) {
		entries, err := repo.History(ctx, productID, &branchID, nil, nil, shared.DefaultFilter())

		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "GRN-1", entries[0].ReferenceNumber)
		assert.Equal(t, "SO-2", entries[1].ReferenceNumber)
		assert.Equal(t, "PO-3", entries[2].ReferenceNumber)
	})

	t.Run("from is inclusive and to is exclusive", func(t *testing.T) {
		from := base.Add(2 * time.Hour)
		to := base.Add(4 * time.Hour)

		entries, err := repo.History(ctx, productID, &branchID, &from, &to, shared.DefaultFilter())

		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "SO-2", entries[0].ReferenceNumber)
	})

	t.Run("a nil branch is its own ledger key", func(t *testing.T) {
		entries, err := repo.History(ctx, productID, nil, nil, nil, shared.DefaultFilter())

		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "GRN-HQ", entries[0].ReferenceNumber)
	})

	t.Run("paginates", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Page = 2
		filter.PageSize = 2

		entries, err := repo.History(ctx, productID, &branchID, nil, nil, filter)

		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "PO-3", entries[0].ReferenceNumber)
	})
}

func TestGormStockMutationRepository_FindByReference(t *testing.T) {
	db := setupMutationTestDB(t)
	repo := NewGormStockMutationRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	sourceBranch := uuid.New()
	destinationBranch := uuid.New()
	productID := uuid.New()

	appendEntry(t, repo, productID, &sourceBranch, inventory.MutationTypeTransfer, -15, 40, "TRF-20260801-AB12CD34", base)
	appendEntry(t, repo, productID, &destinationBranch, inventory.MutationTypeTransfer, 15, 0, "TRF-20260801-AB12CD34", base.Add(time.Hour))
	appendEntry(t, repo, productID, &sourceBranch, inventory.MutationTypeSale, -1, 25, "SO-9", base)

	entries, err := repo.FindByReference(ctx, "TRF-20260801-AB12CD34")

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Quantity.IsNegative())
	assert.True(t, entries[1].Quantity.IsPositive())
}

func TestGormStockMutationRepository_Aggregates(t *testing.T) {
	db := setupMutationTestDB(t)
	repo := NewGormStockMutationRepository(db)
	ctx := context.Background()
	productID := uuid.New()
	branchID := uuid.New()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	appendEntry(t, repo, productID, &branchID, inventory.MutationTypeStockIn, 100, 0, "GRN-1", base)
	appendEntry(t, repo, productID, &branchID, inventory.MutationTypeSale, -30, 100, "SO-1", base.Add(time.Hour))

	t.Run("sums signed quantities", func(t *testing.T) {
		total, err := repo.SumQuantity(ctx, productID, &branchID)

		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(70)))
	})

	t.Run("sum over an empty key is zero", func(t *testing.T) {
		total, err := repo.SumQuantity(ctx, uuid.New(), nil)

		require.NoError(t, err)
		assert.True(t, total.IsZero())
	})

	t.Run("counts entries for the key", func(t *testing.T) {
		count, err := repo.CountForProduct(ctx, productID, &branchID)

		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})
}

func TestGormStockMutationRepository_FindByID(t *testing.T) {
	db := setupMutationTestDB(t)
	repo := NewGormStockMutationRepository(db)
	ctx := context.Background()

	entry := appendEntry(t, repo, uuid.New(), nil, inventory.MutationTypeAdjustment, -3, 10, "ADJ-1", time.Now())

	found, err := repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.MutationTypeAdjustment, found.MutationType)
	assert.True(t, found.StockAfter.Equal(decimal.NewFromInt(7)))

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
