package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailchain/inventory/internal/domain/shared"
)

// MutationType classifies a stock movement
type MutationType string

const (
	MutationTypeStockIn    MutationType = "STOCK_IN"
	MutationTypeStockOut   MutationType = "STOCK_OUT"
	MutationTypeSale       MutationType = "SALE"
	MutationTypePurchase   MutationType = "PURCHASE"
	MutationTypeReturn     MutationType = "RETURN"
	MutationTypeAdjustment MutationType = "ADJUSTMENT"
	MutationTypeTransfer   MutationType = "TRANSFER"
	MutationTypeDamaged    MutationType = "DAMAGED"
	MutationTypeExpired    MutationType = "EXPIRED"
)

// String returns the string representation of MutationType
func (t MutationType) String() string {
	return string(t)
}

// IsValid returns true if the mutation type is valid
func (t MutationType) IsValid() bool {
	switch t {
	case MutationTypeStockIn,
		MutationTypeStockOut,
		MutationTypeSale,
		MutationTypePurchase,
		MutationTypeReturn,
		MutationTypeAdjustment,
		MutationTypeTransfer,
		MutationTypeDamaged,
		MutationTypeExpired:
		return true
	}
	return false
}

// IsInbound returns true for types that bring stock into a branch
func (t MutationType) IsInbound() bool {
	switch t {
	case MutationTypeStockIn, MutationTypePurchase, MutationTypeReturn, MutationTypeTransfer:
		return true
	}
	return false
}

// StockMutation is an immutable ledger entry recording one stock change with
// before/after quantities for a (product, branch) key. Entries are append-only;
// corrections are made with new entries, never by updating old ones. Replaying
// all entries for a key in occurrence order from zero reproduces the current
// aggregate stock exactly.
type StockMutation struct {
	shared.BaseEntity
	ProductID       uuid.UUID        `gorm:"type:uuid;not null;index:idx_mutation_product_branch,priority:1"`
	BranchID        *uuid.UUID       `gorm:"type:uuid;index:idx_mutation_product_branch,priority:2"`
	MutationType    MutationType     `gorm:"type:varchar(20);not null;index"`
	Quantity        decimal.Decimal  `gorm:"type:decimal(18,4);not null"` // signed: positive = increase
	StockBefore     decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	StockAfter      decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	UnitCost        *decimal.Decimal `gorm:"type:decimal(18,4)"`
	TotalCost       *decimal.Decimal `gorm:"type:decimal(18,2)"`
	ReferenceNumber string           `gorm:"type:varchar(100);index"` // originating sale/transfer/purchase
	ActorID         uuid.UUID        `gorm:"type:uuid;not null"`
	OccurredAt      time.Time        `gorm:"not null;index:idx_mutation_occurred"`
}

// TableName returns the table name for GORM
func (StockMutation) TableName() string {
	return "stock_mutations"
}

// NewStockMutation creates a ledger entry. StockAfter must equal
// StockBefore + Quantity; the constructor computes it so the invariant
// cannot be violated.
func NewStockMutation(
	productID uuid.UUID,
	branchID *uuid.UUID,
	mutationType MutationType,
	quantity decimal.Decimal,
	stockBefore decimal.Decimal,
	referenceNumber string,
	actorID uuid.UUID,
	occurredAt time.Time,
) (*StockMutation, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Product ID cannot be empty")
	}
	if !mutationType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Invalid mutation type")
	}
	if quantity.IsZero() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Mutation quantity cannot be zero")
	}
	if actorID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Actor ID cannot be empty")
	}

	stockAfter := stockBefore.Add(quantity)
	if stockAfter.IsNegative() {
		return nil, shared.NewNegativeStockResultError(productID, stockBefore, quantity)
	}

	return &StockMutation{
		BaseEntity:      shared.NewBaseEntity(occurredAt),
		ProductID:       productID,
		BranchID:        branchID,
		MutationType:    mutationType,
		Quantity:        quantity,
		StockBefore:     stockBefore,
		StockAfter:      stockAfter,
		ReferenceNumber: referenceNumber,
		ActorID:         actorID,
		OccurredAt:      occurredAt.UTC(),
	}, nil
}

// WithCost attaches per-unit and total cost to the entry
func (m *StockMutation) WithCost(unitCost decimal.Decimal) *StockMutation {
	uc := unitCost.Round(4)
	total := m.Quantity.Abs().Mul(uc).Round(2)
	m.UnitCost = &uc
	m.TotalCost = &total
	return m
}

// IsIncrease returns true if the entry increases stock
func (m *StockMutation) IsIncrease() bool {
	return m.Quantity.GreaterThan(decimal.Zero)
}

// ReplayMutations folds the given entries from zero and returns the
// resulting stock. Entries must be ordered by occurrence. Used by tests and
// consistency checks to verify the ledger replay invariant.
func ReplayMutations(mutations []StockMutation) decimal.Decimal {
	total := decimal.Zero
	for _, m := range mutations {
		total = total.Add(m.Quantity)
	}
	return total
}
