package transfer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailchain/inventory/internal/domain/shared"
)

// TransferStatus represents the state of an inter-branch transfer
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "PENDING"
	TransferStatusApproved  TransferStatus = "APPROVED"
	TransferStatusInTransit TransferStatus = "IN_TRANSIT"
	TransferStatusCompleted TransferStatus = "COMPLETED"
	TransferStatusRejected  TransferStatus = "REJECTED"
	TransferStatusCancelled TransferStatus = "CANCELLED"
)

// String returns the string representation of TransferStatus
func (s TransferStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a valid TransferStatus
func (s TransferStatus) IsValid() bool {
	switch s {
	case TransferStatusPending, TransferStatusApproved, TransferStatusInTransit,
		TransferStatusCompleted, TransferStatusRejected, TransferStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true if no further transitions are allowed
func (s TransferStatus) IsTerminal() bool {
	switch s {
	case TransferStatusCompleted, TransferStatusRejected, TransferStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo is the single transition table for the transfer workflow.
// All transition methods go through it; callers never re-validate
// preconditions at the call site.
func (s TransferStatus) CanTransitionTo(target TransferStatus) bool {
	switch s {
	case TransferStatusPending:
		return target == TransferStatusApproved ||
			target == TransferStatusRejected ||
			target == TransferStatusCancelled
	case TransferStatusApproved:
		return target == TransferStatusInTransit ||
			target == TransferStatusCancelled
	case TransferStatusInTransit:
		return target == TransferStatusCompleted
	}
	return false
}

// TransferType classifies the reason for a transfer
type TransferType string

const (
	TransferTypeRegular     TransferType = "REGULAR"
	TransferTypeEmergency   TransferType = "EMERGENCY"
	TransferTypeRebalancing TransferType = "REBALANCING"
	TransferTypeBulk        TransferType = "BULK"
)

// IsValid returns true if the transfer type is valid
func (t TransferType) IsValid() bool {
	switch t {
	case TransferTypeRegular, TransferTypeEmergency, TransferTypeRebalancing, TransferTypeBulk:
		return true
	}
	return false
}

// TransferPriority orders transfers for the logistics collaborator
type TransferPriority string

const (
	TransferPriorityLow    TransferPriority = "LOW"
	TransferPriorityNormal TransferPriority = "NORMAL"
	TransferPriorityHigh   TransferPriority = "HIGH"
	TransferPriorityUrgent TransferPriority = "URGENT"
)

// IsValid returns true if the priority is valid
func (p TransferPriority) IsValid() bool {
	switch p {
	case TransferPriorityLow, TransferPriorityNormal, TransferPriorityHigh, TransferPriorityUrgent:
		return true
	}
	return false
}

// TransferItem is one product line within a transfer. Source and destination
// stock snapshots are recorded when the corresponding ledger entries are
// written (ship and receive); destination fields stay nil until received.
type TransferItem struct {
	shared.BaseEntity
	TransferID             uuid.UUID        `gorm:"type:uuid;not null;index"`
	ProductID              uuid.UUID        `gorm:"type:uuid;not null;index"`
	Quantity               decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	UnitCost               decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	TotalCost              decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	SourceStockBefore      *decimal.Decimal `gorm:"type:decimal(18,4)"`
	SourceStockAfter       *decimal.Decimal `gorm:"type:decimal(18,4)"`
	DestinationStockBefore *decimal.Decimal `gorm:"type:decimal(18,4)"`
	DestinationStockAfter  *decimal.Decimal `gorm:"type:decimal(18,4)"`
	BatchNumber            string           `gorm:"type:varchar(100)"` // snapshot carried to the destination batch
	ExpiryDate             *time.Time
}

// TableName returns the table name for GORM
func (TransferItem) TableName() string {
	return "transfer_items"
}

// RecordSourceStock captures the source branch stock around the ship decrement
func (i *TransferItem) RecordSourceStock(before, after decimal.Decimal) {
	i.SourceStockBefore = &before
	i.SourceStockAfter = &after
}

// RecordDestinationStock captures the destination branch stock around the
// receive increment
func (i *TransferItem) RecordDestinationStock(before, after decimal.Decimal) {
	i.DestinationStockBefore = &before
	i.DestinationStockAfter = &after
}

// TransferStatusHistory is one append-only audit row per transition
type TransferStatusHistory struct {
	shared.BaseEntity
	TransferID  uuid.UUID      `gorm:"type:uuid;not null;index"`
	FromStatus  TransferStatus `gorm:"type:varchar(20);not null"`
	ToStatus    TransferStatus `gorm:"type:varchar(20);not null"`
	ChangedByID uuid.UUID      `gorm:"type:uuid;not null"`
	ChangedAt   time.Time      `gorm:"not null;index"`
	Reason      string         `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (TransferStatusHistory) TableName() string {
	return "transfer_status_history"
}

// InventoryTransfer is the aggregate root for inter-branch stock movement.
// It exclusively owns its Items and StatusHistory. Stock effects (ledger
// entries at ship and receive time) are driven by the application service
// inside one transaction per transition.
type InventoryTransfer struct {
	shared.BaseAggregateRoot
	TransferNumber      string           `gorm:"type:varchar(50);not null;uniqueIndex"`
	Status              TransferStatus   `gorm:"type:varchar(20);not null;index"`
	Type                TransferType     `gorm:"type:varchar(20);not null"`
	Priority            TransferPriority `gorm:"type:varchar(20);not null"`
	SourceBranchID      uuid.UUID        `gorm:"type:uuid;not null;index"`
	DestinationBranchID uuid.UUID        `gorm:"type:uuid;not null;index"`
	RequestReason       string           `gorm:"type:varchar(255)"`
	EstimatedCost       decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	ActualCost          *decimal.Decimal `gorm:"type:decimal(18,2)"`
	Carrier             string           `gorm:"type:varchar(100)"`
	TrackingNumber      string           `gorm:"type:varchar(100)"`
	Notes               string           `gorm:"type:varchar(500)"`

	RequestedByID uuid.UUID  `gorm:"type:uuid;not null"`
	ApprovedByID  *uuid.UUID `gorm:"type:uuid"`
	ApprovedAt    *time.Time
	RejectedByID  *uuid.UUID `gorm:"type:uuid"`
	RejectedAt    *time.Time
	RejectReason  string     `gorm:"type:varchar(255)"`
	ShippedByID   *uuid.UUID `gorm:"type:uuid"`
	ShippedAt     *time.Time
	ReceivedByID  *uuid.UUID `gorm:"type:uuid"`
	ReceivedAt    *time.Time
	CancelledByID *uuid.UUID `gorm:"type:uuid"`
	CancelledAt   *time.Time
	CancelReason  string `gorm:"type:varchar(255)"`

	Items         []TransferItem          `gorm:"foreignKey:TransferID;references:ID"`
	StatusHistory []TransferStatusHistory `gorm:"foreignKey:TransferID;references:ID"`
}

// TableName returns the table name for GORM
func (InventoryTransfer) TableName() string {
	return "inventory_transfers"
}

// NewInventoryTransfer creates a transfer in PENDING status with its
// creation recorded in the status history.
func NewInventoryTransfer(
	transferNumber string,
	transferType TransferType,
	priority TransferPriority,
	sourceBranchID, destinationBranchID uuid.UUID,
	requestReason string,
	requestedBy uuid.UUID,
	now time.Time,
) (*InventoryTransfer, error) {
	if transferNumber == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Transfer number cannot be empty")
	}
	if !transferType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Invalid transfer type")
	}
	if !priority.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Invalid transfer priority")
	}
	if sourceBranchID == uuid.Nil || destinationBranchID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Source and destination branch IDs are required")
	}
	if sourceBranchID == destinationBranchID {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Source and destination branches must differ")
	}
	if requestedBy == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Requester ID cannot be empty")
	}

	t := &InventoryTransfer{
		BaseAggregateRoot:   shared.NewBaseAggregateRoot(now),
		TransferNumber:      transferNumber,
		Status:              TransferStatusPending,
		Type:                transferType,
		Priority:            priority,
		SourceBranchID:      sourceBranchID,
		DestinationBranchID: destinationBranchID,
		RequestReason:       requestReason,
		EstimatedCost:       decimal.Zero,
		RequestedByID:       requestedBy,
		Items:               make([]TransferItem, 0),
		StatusHistory:       make([]TransferStatusHistory, 0),
	}
	t.appendHistory("", TransferStatusPending, requestedBy, requestReason, now)

	return t, nil
}

// AddItem adds a product line. Only allowed while the transfer is PENDING.
func (t *InventoryTransfer) AddItem(
	productID uuid.UUID,
	quantity, unitCost decimal.Decimal,
	batchNumber string,
	expiryDate *time.Time,
	now time.Time,
) error {
	if t.Status != TransferStatusPending {
		return shared.NewInvalidTransferStateError(t.Status.String(), "item modification")
	}
	if productID == uuid.Nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Product ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION_ERROR", "Item quantity must be positive")
	}
	if unitCost.IsNegative() {
		return shared.NewDomainError("VALIDATION_ERROR", "Unit cost cannot be negative")
	}

	item := TransferItem{
		BaseEntity:  shared.NewBaseEntity(now),
		TransferID:  t.ID,
		ProductID:   productID,
		Quantity:    quantity,
		UnitCost:    unitCost.Round(4),
		TotalCost:   quantity.Mul(unitCost).Round(2),
		BatchNumber: batchNumber,
		ExpiryDate:  expiryDate,
	}
	t.Items = append(t.Items, item)
	t.EstimatedCost = t.EstimatedCost.Add(item.TotalCost)
	t.UpdatedAt = now.UTC()
	t.IncrementVersion()
	return nil
}

// TotalValue returns the summed item cost of the transfer
func (t *InventoryTransfer) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, item := range t.Items {
		total = total.Add(item.TotalCost)
	}
	return total
}

// RequiresManagerApproval reports whether the transfer value exceeds the
// configured threshold. Enforcement happens at the caller layer.
func (t *InventoryTransfer) RequiresManagerApproval(threshold decimal.Decimal) bool {
	return threshold.GreaterThan(decimal.Zero) && t.TotalValue().GreaterThan(threshold)
}

// appendHistory adds one audit row for a transition
func (t *InventoryTransfer) appendHistory(from, to TransferStatus, changedBy uuid.UUID, reason string, now time.Time) {
	t.StatusHistory = append(t.StatusHistory, TransferStatusHistory{
		BaseEntity:  shared.NewBaseEntity(now),
		TransferID:  t.ID,
		FromStatus:  from,
		ToStatus:    to,
		ChangedByID: changedBy,
		ChangedAt:   now.UTC(),
		Reason:      reason,
	})
}

// transition performs the guarded state change plus its audit row
func (t *InventoryTransfer) transition(target TransferStatus, actor uuid.UUID, reason string, now time.Time) error {
	if !t.Status.CanTransitionTo(target) {
		return shared.NewInvalidTransferStateError(t.Status.String(), target.String())
	}
	if actor == uuid.Nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Actor ID cannot be empty")
	}

	t.appendHistory(t.Status, target, actor, reason, now)
	t.Status = target
	t.UpdatedAt = now.UTC()
	t.IncrementVersion()
	return nil
}

// Approve transitions PENDING -> APPROVED
func (t *InventoryTransfer) Approve(approver uuid.UUID, now time.Time) error {
	if err := t.transition(TransferStatusApproved, approver, "", now); err != nil {
		return err
	}
	ts := now.UTC()
	t.ApprovedByID = &approver
	t.ApprovedAt = &ts
	return nil
}

// Reject transitions PENDING -> REJECTED. No stock effect.
func (t *InventoryTransfer) Reject(actor uuid.UUID, reason string, now time.Time) error {
	if reason == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Rejection reason is required")
	}
	if err := t.transition(TransferStatusRejected, actor, reason, now); err != nil {
		return err
	}
	ts := now.UTC()
	t.RejectedByID = &actor
	t.RejectedAt = &ts
	t.RejectReason = reason
	return nil
}

// Ship transitions APPROVED -> IN_TRANSIT. The application service writes
// the source ledger decrements in the same transaction.
func (t *InventoryTransfer) Ship(shipper uuid.UUID, carrier, trackingNumber string, now time.Time) error {
	if err := t.transition(TransferStatusInTransit, shipper, "", now); err != nil {
		return err
	}
	ts := now.UTC()
	t.ShippedByID = &shipper
	t.ShippedAt = &ts
	t.Carrier = carrier
	t.TrackingNumber = trackingNumber
	return nil
}

// Receive transitions IN_TRANSIT -> COMPLETED. The application service writes
// the destination ledger increments in the same transaction.
func (t *InventoryTransfer) Receive(receiver uuid.UUID, now time.Time) error {
	if err := t.transition(TransferStatusCompleted, receiver, "", now); err != nil {
		return err
	}
	ts := now.UTC()
	t.ReceivedByID = &receiver
	t.ReceivedAt = &ts
	actual := t.EstimatedCost
	t.ActualCost = &actual
	return nil
}

// Cancel transitions PENDING or APPROVED -> CANCELLED. Nothing has been
// decremented yet, so there is no stock effect.
func (t *InventoryTransfer) Cancel(actor uuid.UUID, reason string, now time.Time) error {
	if reason == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Cancellation reason is required")
	}
	if err := t.transition(TransferStatusCancelled, actor, reason, now); err != nil {
		return err
	}
	ts := now.UTC()
	t.CancelledByID = &actor
	t.CancelledAt = &ts
	t.CancelReason = reason
	return nil
}

// ItemFor returns the line item for a product, or nil
func (t *InventoryTransfer) ItemFor(productID uuid.UUID) *TransferItem {
	for i := range t.Items {
		if t.Items[i].ProductID == productID {
			return &t.Items[i]
		}
	}
	return nil
}
