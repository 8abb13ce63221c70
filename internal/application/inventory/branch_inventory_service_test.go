package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailchain/inventory/internal/domain/inventory"
	"github.com/retailchain/inventory/internal/domain/shared"
)

func TestBranchInventoryService_SetThresholds(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := NewBranchInventoryService(env.branches)
	branchID := uuid.New()
	productID := uuid.New()

	t.Run("creates the row on first use", func(t *testing.T) {
		resp, err := svc.SetThresholds(ctx, branchID, productID, SetThresholdsRequest{
			MinimumStock: decimal.NewFromInt(5),
			MaximumStock: decimal.NewFromInt(50),
		})

		require.NoError(t, err)
		assert.True(t, resp.MinimumStock.Equal(decimal.NewFromInt(5)))
		assert.True(t, resp.Stock.IsZero())
		// zero stock at a positive minimum needs restocking
		assert.True(t, resp.NeedsRestock)
	})

	t.Run("invalid thresholds are rejected", func(t *testing.T) {
		_, err := svc.SetThresholds(ctx, branchID, productID, SetThresholdsRequest{
			MinimumStock: decimal.NewFromInt(10),
			MaximumStock: decimal.NewFromInt(5),
		})

		require.Error(t, err)
	})
}

func TestBranchInventoryService_SetPrices(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := NewBranchInventoryService(env.branches)

	resp, err := svc.SetPrices(ctx, uuid.New(), uuid.New(), SetPricesRequest{
		BuyPrice:  decimal.NewFromFloat(3.50),
		SellPrice: decimal.NewFromFloat(5.99),
	})

	require.NoError(t, err)
	assert.True(t, resp.BuyPrice.Equal(decimal.NewFromFloat(3.50)))
	assert.True(t, resp.SellPrice.Equal(decimal.NewFromFloat(5.99)))
}

func TestBranchInventoryService_ListNeedingRestock(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := NewBranchInventoryService(env.branches)
	ledger := newLedgerService(env)
	branchID := uuid.New()
	actorID := uuid.New()

	lowProduct := uuid.New()
	okProduct := uuid.New()

	for _, p := range []uuid.UUID{lowProduct, okProduct} {
		_, err := svc.SetThresholds(ctx, branchID, p, SetThresholdsRequest{
			MinimumStock: decimal.NewFromInt(10),
		})
		require.NoError(t, err)
	}

	// lowProduct ends at the minimum, okProduct above it
	for product, q := range map[uuid.UUID]int64{lowProduct: 10, okProduct: 11} {
		_, err := ledger.Append(ctx, AppendMutationRequest{
			ProductID: product, BranchID: &branchID,
			Type: inventory.MutationTypePurchase, Quantity: decimal.NewFromInt(q),
			ActorID: actorID,
		})
		require.NoError(t, err)
	}

	rows, err := svc.ListNeedingRestock(ctx, &branchID, shared.DefaultFilter())

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, lowProduct, rows[0].ProductID)
	assert.Equal(t, inventory.StockStatusLowStock, rows[0].Status)
}

func TestBranchInventoryService_GetAndList(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := NewBranchInventoryService(env.branches)
	branchID := uuid.New()

	t.Run("get unknown pair yields not found", func(t *testing.T) {
		_, err := svc.GetByBranchAndProduct(ctx, branchID, uuid.New())

		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.ErrNotFound.Code))
	})

	t.Run("list returns rows with total", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, err := svc.SetThresholds(ctx, branchID, uuid.New(), SetThresholdsRequest{})
			require.NoError(t, err)
		}

		rows, total, err := svc.ListByBranch(ctx, branchID, shared.DefaultFilter())

		require.NoError(t, err)
		assert.Len(t, rows, 3)
		assert.Equal(t, int64(3), total)
	})
}
