package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailchain/inventory/internal/domain/inventory"
	"github.com/retailchain/inventory/internal/domain/shared"
)

func newAllocationService(env *testEnv) *AllocationService {
	return NewAllocationService(env.batches, env.branches, env.allocations, env.scope)
}

// seedBatches receives batches through the batch service so projection and
// ledger stay consistent with the allocation under test.
func seedBatches(t *testing.T, env *testEnv, productID, branchID uuid.UUID, batches []CreateBatchRequest) {
	t.Helper()
	svc := newBatchService(env)
	for _, req := range batches {
		req.ProductID = productID
		req.BranchID = &branchID
		if req.ActorID == uuid.Nil {
			req.ActorID = uuid.New()
		}
		_, err := svc.CreateBatch(context.Background(), req)
		require.NoError(t, err)
	}
}

func TestAllocationService_Allocate(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()
	branchID := uuid.New()
	actorID := uuid.New()
	now := time.Now()

	early := now.AddDate(0, 1, 0)
	late := now.AddDate(0, 2, 0)

	t.Run("consumes FIFO across batches and writes one ledger entry", func(t *testing.T) {
		env := newTestEnv()
		seedBatches(t, env, productID, branchID, []CreateBatchRequest{
			{BatchNumber: "LOT-EARLY", Quantity: decimal.NewFromInt(30), CostPerUnit: decimal.NewFromInt(10), ExpiryDate: &early},
			{BatchNumber: "LOT-LATE", Quantity: decimal.NewFromInt(50), CostPerUnit: decimal.NewFromInt(12), ExpiryDate: &late},
		})
		svc := newAllocationService(env)

		resp, err := svc.Allocate(ctx, AllocateRequest{
			ProductID: productID, BranchID: branchID,
			Quantity:        decimal.NewFromInt(45),
			ReferenceNumber: "SO-1",
			ActorID:         actorID,
		})

		require.NoError(t, err)
		require.Len(t, resp.Lines, 2)
		assert.Equal(t, "LOT-EARLY", resp.Lines[0].BatchNumber)
		assert.True(t, resp.Lines[0].Quantity.Equal(decimal.NewFromInt(30)))
		assert.True(t, resp.Lines[1].Quantity.Equal(decimal.NewFromInt(15)))

		// 30*10 + 15*12 = 480 over 45 units
		assert.True(t, resp.TotalCost.Equal(decimal.NewFromInt(480)))
		assert.True(t, resp.WeightedUnitCost.Equal(decimal.NewFromFloat(10.6667)), "got %s", resp.WeightedUnitCost)

		// batches decremented
		first, err := env.batches.FindByProductAndNumber(ctx, productID, "LOT-EARLY")
		require.NoError(t, err)
		assert.True(t, first.CurrentStock.IsZero())
		second, err := env.batches.FindByProductAndNumber(ctx, productID, "LOT-LATE")
		require.NoError(t, err)
		assert.True(t, second.CurrentStock.Equal(decimal.NewFromInt(35)))

		// one outbound ledger entry for the total, projection follows
		entries, err := env.mutations.FindByReference(ctx, "SO-1")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, inventory.MutationTypeSale, entries[0].MutationType)
		assert.True(t, entries[0].Quantity.Equal(decimal.NewFromInt(-45)))

		proj, err := env.branches.FindByBranchAndProduct(ctx, branchID, productID)
		require.NoError(t, err)
		assert.True(t, proj.Stock.Equal(decimal.NewFromInt(35)))
	})

	t.Run("insufficient stock fails with nothing consumed", func(t *testing.T) {
		env := newTestEnv()
		seedBatches(t, env, productID, branchID, []CreateBatchRequest{
			{BatchNumber: "LOT-A", Quantity: decimal.NewFromInt(30), CostPerUnit: decimal.NewFromInt(10)},
		})
		svc := newAllocationService(env)

		_, err := svc.Allocate(ctx, AllocateRequest{
			ProductID: productID, BranchID: branchID,
			Quantity: decimal.NewFromInt(31), ActorID: actorID,
		})

		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientStock))

		batch, err := env.batches.FindByProductAndNumber(ctx, productID, "LOT-A")
		require.NoError(t, err)
		assert.True(t, batch.CurrentStock.Equal(decimal.NewFromInt(30)))
	})

	t.Run("persists traceability rows when a sale item is given", func(t *testing.T) {
		env := newTestEnv()
		seedBatches(t, env, productID, branchID, []CreateBatchRequest{
			{BatchNumber: "LOT-T1", Quantity: decimal.NewFromInt(10), CostPerUnit: decimal.NewFromInt(5), ExpiryDate: &early},
			{BatchNumber: "LOT-T2", Quantity: decimal.NewFromInt(10), CostPerUnit: decimal.NewFromInt(6), ExpiryDate: &late},
		})
		svc := newAllocationService(env)
		saleItemID := uuid.New()

		_, err := svc.Allocate(ctx, AllocateRequest{
			ProductID: productID, BranchID: branchID,
			Quantity: decimal.NewFromInt(15), SaleItemID: &saleItemID, ActorID: actorID,
		})
		require.NoError(t, err)

		lines, err := svc.TraceSaleItem(ctx, saleItemID)
		require.NoError(t, err)
		require.Len(t, lines, 2)
		total := decimal.Zero
		for _, line := range lines {
			total = total.Add(line.Quantity)
		}
		assert.True(t, total.Equal(decimal.NewFromInt(15)))
	})

	t.Run("falls back to synthetic allocation without batches", func(t *testing.T) {
		env := newTestEnv()
		svc := newAllocationService(env)

		// stock arrives through the ledger only, no batch rows
		ledger := newLedgerService(env)
		_, err := ledger.Append(ctx, AppendMutationRequest{
			ProductID: productID, BranchID: &branchID,
			Type: inventory.MutationTypePurchase, Quantity: decimal.NewFromInt(20),
			ActorID: actorID,
		})
		require.NoError(t, err)

		resp, err := svc.Allocate(ctx, AllocateRequest{
			ProductID: productID, BranchID: branchID,
			Quantity: decimal.NewFromInt(8), ActorID: actorID,
		})

		require.NoError(t, err)
		require.Len(t, resp.Lines, 1)
		assert.True(t, resp.Lines[0].Synthetic)
		assert.Nil(t, resp.Lines[0].BatchID)

		proj, err := env.branches.FindByBranchAndProduct(ctx, branchID, productID)
		require.NoError(t, err)
		assert.True(t, proj.Stock.Equal(decimal.NewFromInt(12)))
	})

	t.Run("blocked stock is never sold through the fallback", func(t *testing.T) {
		env := newTestEnv()
		seedBatches(t, env, productID, branchID, []CreateBatchRequest{
			{BatchNumber: "LOT-HOLD", Quantity: decimal.NewFromInt(10), CostPerUnit: decimal.NewFromInt(10)},
		})
		batch, err := env.batches.FindByProductAndNumber(ctx, productID, "LOT-HOLD")
		require.NoError(t, err)
		_, err = newBatchService(env).Block(ctx, batch.ID, "quality hold")
		require.NoError(t, err)
		svc := newAllocationService(env)

		_, err = svc.Allocate(ctx, AllocateRequest{
			ProductID: productID, BranchID: branchID,
			Quantity: decimal.NewFromInt(5), ActorID: actorID,
		})

		// the projection still carries the held quantity, but the only
		// batch is blocked: no synthetic line, no consumption
		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientStock))

		held, err := env.batches.FindByProductAndNumber(ctx, productID, "LOT-HOLD")
		require.NoError(t, err)
		assert.True(t, held.CurrentStock.Equal(decimal.NewFromInt(10)))

		proj, err := env.branches.FindByBranchAndProduct(ctx, branchID, productID)
		require.NoError(t, err)
		assert.True(t, proj.Stock.Equal(decimal.NewFromInt(10)))

		count, err := env.mutations.CountForProduct(ctx, productID, &branchID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "only the receipt entry should exist")
	})

	t.Run("expired-only stock fails instead of degrading", func(t *testing.T) {
		env := newTestEnv()
		seedBatches(t, env, productID, branchID, []CreateBatchRequest{
			{BatchNumber: "LOT-OLD", Quantity: decimal.NewFromInt(10), CostPerUnit: decimal.NewFromInt(10), ExpiryDate: &early},
		})
		batch, err := env.batches.FindByProductAndNumber(ctx, productID, "LOT-OLD")
		require.NoError(t, err)
		_, err = newBatchService(env).MarkExpired(ctx, batch.ID)
		require.NoError(t, err)
		svc := newAllocationService(env)

		_, err = svc.Allocate(ctx, AllocateRequest{
			ProductID: productID, BranchID: branchID,
			Quantity: decimal.NewFromInt(1), ActorID: actorID,
		})

		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientStock))
	})

	t.Run("rejects inbound mutation types", func(t *testing.T) {
		env := newTestEnv()
		svc := newAllocationService(env)

		_, err := svc.Allocate(ctx, AllocateRequest{
			ProductID: productID, BranchID: branchID,
			Quantity:     decimal.NewFromInt(1),
			MutationType: inventory.MutationTypePurchase,
			ActorID:      actorID,
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "outbound")
	})

	t.Run("unknown product fails as insufficient stock", func(t *testing.T) {
		env := newTestEnv()
		svc := newAllocationService(env)

		_, err := svc.Allocate(ctx, AllocateRequest{
			ProductID: uuid.New(), BranchID: branchID,
			Quantity: decimal.NewFromInt(1), ActorID: actorID,
		})

		require.Error(t, err)
		assert.True(t, shared.IsCode(err, shared.CodeInsufficientStock))
	})
}

func TestAllocationService_Preview(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()
	branchID := uuid.New()

	env := newTestEnv()
	seedBatches(t, env, productID, branchID, []CreateBatchRequest{
		{BatchNumber: "LOT-P", Quantity: decimal.NewFromInt(50), CostPerUnit: decimal.NewFromInt(4)},
	})
	svc := newAllocationService(env)

	resp, err := svc.Preview(ctx, AllocateRequest{
		ProductID: productID, BranchID: branchID, Quantity: decimal.NewFromInt(20),
	})

	require.NoError(t, err)
	require.Len(t, resp.Lines, 1)
	assert.Nil(t, resp.Mutation)

	// nothing consumed
	batch, err := env.batches.FindByProductAndNumber(ctx, productID, "LOT-P")
	require.NoError(t, err)
	assert.True(t, batch.CurrentStock.Equal(decimal.NewFromInt(50)))
}

func TestAllocationService_Preview_BlockedStock(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()
	branchID := uuid.New()

	env := newTestEnv()
	seedBatches(t, env, productID, branchID, []CreateBatchRequest{
		{BatchNumber: "LOT-HELD", Quantity: decimal.NewFromInt(50), CostPerUnit: decimal.NewFromInt(4)},
	})
	batch, err := env.batches.FindByProductAndNumber(ctx, productID, "LOT-HELD")
	require.NoError(t, err)
	_, err = newBatchService(env).Block(ctx, batch.ID, "recall")
	require.NoError(t, err)

	_, err = newAllocationService(env).Preview(ctx, AllocateRequest{
		ProductID: productID, BranchID: branchID, Quantity: decimal.NewFromInt(1),
	})

	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodeInsufficientStock))
}

func TestWeightedUnitCost(t *testing.T) {
	t.Run("weights by quantity", func(t *testing.T) {
		cost := WeightedUnitCost([]inventory.BatchAllocation{
			{Quantity: decimal.NewFromInt(30), CostPerUnit: decimal.NewFromInt(10)},
			{Quantity: decimal.NewFromInt(10), CostPerUnit: decimal.NewFromInt(20)},
		})

		assert.True(t, cost.Equal(decimal.NewFromFloat(12.5)))
	})

	t.Run("empty plan costs zero", func(t *testing.T) {
		assert.True(t, WeightedUnitCost(nil).IsZero())
	})
}
