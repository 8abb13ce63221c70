package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailchain/inventory/internal/domain/inventory"
)

// CreateBatchRequest is the input for receiving a new batch of stock
type CreateBatchRequest struct {
	ProductID       uuid.UUID              `json:"product_id" binding:"required"`
	BranchID        *uuid.UUID             `json:"branch_id"`
	BatchNumber     string                 `json:"batch_number" binding:"required"`
	Quantity        decimal.Decimal        `json:"quantity" binding:"required"`
	CostPerUnit     decimal.Decimal        `json:"cost_per_unit"`
	ExpiryDate      *time.Time             `json:"expiry_date"`
	ProductionDate  *time.Time             `json:"production_date"`
	MutationType    inventory.MutationType `json:"mutation_type"` // defaults to STOCK_IN
	ReferenceNumber string                 `json:"reference_number"`
	ActorID         uuid.UUID              `json:"-"`
}

// DisposeBatchRequest is the input for disposing an expired or blocked batch
type DisposeBatchRequest struct {
	BatchID         uuid.UUID `json:"-"`
	Method          string    `json:"method" binding:"required"`
	ReferenceNumber string    `json:"reference_number"`
	ActorID         uuid.UUID `json:"-"`
}

// BatchResponse is the API representation of a product batch
type BatchResponse struct {
	ID             uuid.UUID       `json:"id"`
	ProductID      uuid.UUID       `json:"product_id"`
	BranchID       *uuid.UUID      `json:"branch_id,omitempty"`
	BatchNumber    string          `json:"batch_number"`
	ExpiryDate     *time.Time      `json:"expiry_date,omitempty"`
	ProductionDate *time.Time      `json:"production_date,omitempty"`
	InitialStock   decimal.Decimal `json:"initial_stock"`
	CurrentStock   decimal.Decimal `json:"current_stock"`
	AvailableStock decimal.Decimal `json:"available_stock"`
	CostPerUnit    decimal.Decimal `json:"cost_per_unit"`
	TotalValue     decimal.Decimal `json:"total_value"`
	IsBlocked      bool            `json:"is_blocked"`
	BlockReason    string          `json:"block_reason,omitempty"`
	IsExpired      bool            `json:"is_expired"`
	IsDisposed     bool            `json:"is_disposed"`
	DisposedAt     *time.Time      `json:"disposed_at,omitempty"`
	DisposalMethod string          `json:"disposal_method,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Version        int             `json:"version"`
}

// ToBatchResponse converts a domain batch to its API representation
func ToBatchResponse(b *inventory.ProductBatch) BatchResponse {
	return BatchResponse{
		ID:             b.ID,
		ProductID:      b.ProductID,
		BranchID:       b.BranchID,
		BatchNumber:    b.BatchNumber,
		ExpiryDate:     b.ExpiryDate,
		ProductionDate: b.ProductionDate,
		InitialStock:   b.InitialStock,
		CurrentStock:   b.CurrentStock,
		AvailableStock: b.AvailableStock(),
		CostPerUnit:    b.CostPerUnit,
		TotalValue:     b.TotalValue(),
		IsBlocked:      b.IsBlocked,
		BlockReason:    b.BlockReason,
		IsExpired:      b.IsExpired,
		IsDisposed:     b.IsDisposed,
		DisposedAt:     b.DisposedAt,
		DisposalMethod: b.DisposalMethod,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
		Version:        b.Version,
	}
}

// AppendMutationRequest is the input for appending one ledger entry
type AppendMutationRequest struct {
	ProductID       uuid.UUID              `json:"product_id" binding:"required"`
	BranchID        *uuid.UUID             `json:"branch_id"`
	Type            inventory.MutationType `json:"type" binding:"required"`
	Quantity        decimal.Decimal        `json:"quantity" binding:"required"` // signed
	UnitCost        *decimal.Decimal       `json:"unit_cost"`
	ReferenceNumber string                 `json:"reference_number"`
	ActorID         uuid.UUID              `json:"-"`
	OccurredAt      time.Time              `json:"-"` // zero means now
}

// MutationResponse is the API representation of a ledger entry
type MutationResponse struct {
	ID              uuid.UUID              `json:"id"`
	ProductID       uuid.UUID              `json:"product_id"`
	BranchID        *uuid.UUID             `json:"branch_id,omitempty"`
	Type            inventory.MutationType `json:"type"`
	Quantity        decimal.Decimal        `json:"quantity"`
	StockBefore     decimal.Decimal        `json:"stock_before"`
	StockAfter      decimal.Decimal        `json:"stock_after"`
	UnitCost        *decimal.Decimal       `json:"unit_cost,omitempty"`
	TotalCost       *decimal.Decimal       `json:"total_cost,omitempty"`
	ReferenceNumber string                 `json:"reference_number,omitempty"`
	ActorID         uuid.UUID              `json:"actor_id"`
	OccurredAt      time.Time              `json:"occurred_at"`
}

// ToMutationResponse converts a domain ledger entry to its API representation
func ToMutationResponse(m *inventory.StockMutation) MutationResponse {
	return MutationResponse{
		ID:              m.ID,
		ProductID:       m.ProductID,
		BranchID:        m.BranchID,
		Type:            m.MutationType,
		Quantity:        m.Quantity,
		StockBefore:     m.StockBefore,
		StockAfter:      m.StockAfter,
		UnitCost:        m.UnitCost,
		TotalCost:       m.TotalCost,
		ReferenceNumber: m.ReferenceNumber,
		ActorID:         m.ActorID,
		OccurredAt:      m.OccurredAt,
	}
}

// HistoryRequest bounds a ledger history query
type HistoryRequest struct {
	ProductID uuid.UUID  `json:"-"`
	BranchID  *uuid.UUID `json:"-"`
	From      *time.Time `form:"from"`
	To        *time.Time `form:"to"`
	Page      int        `form:"page"`
	PageSize  int        `form:"page_size"`
}

// ReplayCheckResponse reports a ledger-vs-projection consistency check
type ReplayCheckResponse struct {
	ProductID      uuid.UUID       `json:"product_id"`
	BranchID       *uuid.UUID      `json:"branch_id,omitempty"`
	LedgerStock    decimal.Decimal `json:"ledger_stock"`
	ProjectedStock decimal.Decimal `json:"projected_stock"`
	Consistent     bool            `json:"consistent"`
}

// BranchInventoryResponse is the API representation of a projection row
type BranchInventoryResponse struct {
	ID           uuid.UUID             `json:"id"`
	BranchID     uuid.UUID             `json:"branch_id"`
	ProductID    uuid.UUID             `json:"product_id"`
	Stock        decimal.Decimal       `json:"stock"`
	MinimumStock decimal.Decimal       `json:"minimum_stock"`
	MaximumStock decimal.Decimal       `json:"maximum_stock"`
	BuyPrice     decimal.Decimal       `json:"buy_price"`
	SellPrice    decimal.Decimal       `json:"sell_price"`
	Status       inventory.StockStatus `json:"status"`
	NeedsRestock bool                  `json:"needs_restock"`
	IsActive     bool                  `json:"is_active"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// ToBranchInventoryResponse converts a projection row to its API representation
func ToBranchInventoryResponse(bi *inventory.BranchInventory) BranchInventoryResponse {
	return BranchInventoryResponse{
		ID:           bi.ID,
		BranchID:     bi.BranchID,
		ProductID:    bi.ProductID,
		Stock:        bi.Stock,
		MinimumStock: bi.MinimumStock,
		MaximumStock: bi.MaximumStock,
		BuyPrice:     bi.BuyPrice,
		SellPrice:    bi.SellPrice,
		Status:       bi.Status(),
		NeedsRestock: bi.NeedsRestock(),
		IsActive:     bi.IsActive,
		UpdatedAt:    bi.UpdatedAt,
	}
}

// SetThresholdsRequest updates the restock/overstock thresholds of a projection row
type SetThresholdsRequest struct {
	MinimumStock decimal.Decimal `json:"minimum_stock"`
	MaximumStock decimal.Decimal `json:"maximum_stock"`
}

// SetPricesRequest updates the branch-specific prices of a projection row
type SetPricesRequest struct {
	BuyPrice  decimal.Decimal `json:"buy_price"`
	SellPrice decimal.Decimal `json:"sell_price"`
}

// AllocateRequest is the input for FIFO allocation of an outbound quantity
type AllocateRequest struct {
	ProductID       uuid.UUID              `json:"product_id" binding:"required"`
	BranchID        uuid.UUID              `json:"branch_id" binding:"required"`
	Quantity        decimal.Decimal        `json:"quantity" binding:"required"`
	MutationType    inventory.MutationType `json:"mutation_type"` // defaults to SALE
	ReferenceNumber string                 `json:"reference_number"`
	SaleItemID      *uuid.UUID             `json:"sale_item_id"`
	ActorID         uuid.UUID              `json:"-"`
}

// AllocationLine is one per-batch consumption in an allocation result
type AllocationLine struct {
	BatchID     *uuid.UUID      `json:"batch_id,omitempty"` // nil for synthetic lines
	BatchNumber string          `json:"batch_number,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
	Synthetic   bool            `json:"synthetic,omitempty"`
}

// AllocationResponse is the result of an allocation
type AllocationResponse struct {
	ProductID        uuid.UUID        `json:"product_id"`
	BranchID         uuid.UUID        `json:"branch_id"`
	Quantity         decimal.Decimal  `json:"quantity"`
	Lines            []AllocationLine `json:"lines"`
	WeightedUnitCost decimal.Decimal  `json:"weighted_unit_cost"`
	TotalCost        decimal.Decimal  `json:"total_cost"`
	Mutation         *MutationResponse `json:"mutation,omitempty"` // nil for previews
}

// toAllocationLines converts domain allocations to API lines
func toAllocationLines(allocations []inventory.BatchAllocation) []AllocationLine {
	lines := make([]AllocationLine, 0, len(allocations))
	for _, a := range allocations {
		line := AllocationLine{
			BatchNumber: a.BatchNumber,
			Quantity:    a.Quantity,
			CostPerUnit: a.CostPerUnit,
			TotalCost:   a.TotalCost(),
			ExpiryDate:  a.ExpiryDate,
			Synthetic:   a.Synthetic,
		}
		if !a.Synthetic {
			id := a.BatchID
			line.BatchID = &id
		}
		lines = append(lines, line)
	}
	return lines
}
