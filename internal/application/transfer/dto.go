package transfer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retailchain/inventory/internal/domain/transfer"
)

// CreateTransferRequest is the input for requesting an inter-branch transfer
type CreateTransferRequest struct {
	TransferNumber      string                    `json:"transfer_number"` // generated when empty
	Type                transfer.TransferType     `json:"type"`            // defaults to REGULAR
	Priority            transfer.TransferPriority `json:"priority"`        // defaults to NORMAL
	SourceBranchID      uuid.UUID                 `json:"source_branch_id" binding:"required"`
	DestinationBranchID uuid.UUID                 `json:"destination_branch_id" binding:"required"`
	RequestReason       string                    `json:"request_reason"`
	Items               []CreateTransferItem      `json:"items" binding:"required,min=1,dive"`
	ActorID             uuid.UUID                 `json:"-"`
}

// CreateTransferItem is one requested product line
type CreateTransferItem struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity" binding:"required"`
}

// RejectTransferRequest carries the mandatory rejection reason
type RejectTransferRequest struct {
	Reason  string    `json:"reason" binding:"required"`
	ActorID uuid.UUID `json:"-"`
}

// CancelTransferRequest carries the mandatory cancellation reason
type CancelTransferRequest struct {
	Reason  string    `json:"reason" binding:"required"`
	ActorID uuid.UUID `json:"-"`
}

// ShipTransferRequest is the input for dispatching an approved transfer
type ShipTransferRequest struct {
	Carrier        string    `json:"carrier"`
	TrackingNumber string    `json:"tracking_number"`
	ActorID        uuid.UUID `json:"-"`
}

// ListTransfersRequest bounds a transfer listing
type ListTransfersRequest struct {
	Status              string     `form:"status"`
	Type                string     `form:"type"`
	SourceBranchID      *uuid.UUID `form:"source_branch_id"`
	DestinationBranchID *uuid.UUID `form:"destination_branch_id"`
	Page                int        `form:"page"`
	PageSize            int        `form:"page_size"`
}

// TransferItemResponse is the API representation of a transfer line
type TransferItemResponse struct {
	ID                     uuid.UUID        `json:"id"`
	ProductID              uuid.UUID        `json:"product_id"`
	Quantity               decimal.Decimal  `json:"quantity"`
	UnitCost               decimal.Decimal  `json:"unit_cost"`
	TotalCost              decimal.Decimal  `json:"total_cost"`
	SourceStockBefore      *decimal.Decimal `json:"source_stock_before,omitempty"`
	SourceStockAfter       *decimal.Decimal `json:"source_stock_after,omitempty"`
	DestinationStockBefore *decimal.Decimal `json:"destination_stock_before,omitempty"`
	DestinationStockAfter  *decimal.Decimal `json:"destination_stock_after,omitempty"`
	BatchNumber            string           `json:"batch_number,omitempty"`
	ExpiryDate             *time.Time       `json:"expiry_date,omitempty"`
}

// StatusHistoryResponse is one audit row of the transfer workflow
type StatusHistoryResponse struct {
	FromStatus  string    `json:"from_status,omitempty"`
	ToStatus    string    `json:"to_status"`
	ChangedByID uuid.UUID `json:"changed_by_id"`
	ChangedAt   time.Time `json:"changed_at"`
	Reason      string    `json:"reason,omitempty"`
}

// TransferResponse is the API representation of a transfer
type TransferResponse struct {
	ID                  uuid.UUID                 `json:"id"`
	TransferNumber      string                    `json:"transfer_number"`
	Status              transfer.TransferStatus   `json:"status"`
	Type                transfer.TransferType     `json:"type"`
	Priority            transfer.TransferPriority `json:"priority"`
	SourceBranchID      uuid.UUID                 `json:"source_branch_id"`
	DestinationBranchID uuid.UUID                 `json:"destination_branch_id"`
	RequestReason       string                    `json:"request_reason,omitempty"`
	EstimatedCost       decimal.Decimal           `json:"estimated_cost"`
	ActualCost          *decimal.Decimal          `json:"actual_cost,omitempty"`
	Carrier             string                    `json:"carrier,omitempty"`
	TrackingNumber      string                    `json:"tracking_number,omitempty"`
	RequiresApproval    bool                      `json:"requires_manager_approval"`
	RequestedByID       uuid.UUID                 `json:"requested_by_id"`
	ApprovedByID        *uuid.UUID                `json:"approved_by_id,omitempty"`
	ApprovedAt          *time.Time                `json:"approved_at,omitempty"`
	RejectedByID        *uuid.UUID                `json:"rejected_by_id,omitempty"`
	RejectedAt          *time.Time                `json:"rejected_at,omitempty"`
	RejectReason        string                    `json:"reject_reason,omitempty"`
	ShippedByID         *uuid.UUID                `json:"shipped_by_id,omitempty"`
	ShippedAt           *time.Time                `json:"shipped_at,omitempty"`
	ReceivedByID        *uuid.UUID                `json:"received_by_id,omitempty"`
	ReceivedAt          *time.Time                `json:"received_at,omitempty"`
	CancelledByID       *uuid.UUID                `json:"cancelled_by_id,omitempty"`
	CancelledAt         *time.Time                `json:"cancelled_at,omitempty"`
	CancelReason        string                    `json:"cancel_reason,omitempty"`
	Items               []TransferItemResponse    `json:"items"`
	StatusHistory       []StatusHistoryResponse   `json:"status_history"`
	CreatedAt           time.Time                 `json:"created_at"`
	UpdatedAt           time.Time                 `json:"updated_at"`
	Version             int                       `json:"version"`
}

// ToTransferResponse converts a domain transfer to its API representation
func ToTransferResponse(t *transfer.InventoryTransfer, approvalThreshold decimal.Decimal) TransferResponse {
	items := make([]TransferItemResponse, 0, len(t.Items))
	for i := range t.Items {
		item := t.Items[i]
		items = append(items, TransferItemResponse{
			ID:                     item.ID,
			ProductID:              item.ProductID,
			Quantity:               item.Quantity,
			UnitCost:               item.UnitCost,
			TotalCost:              item.TotalCost,
			SourceStockBefore:      item.SourceStockBefore,
			SourceStockAfter:       item.SourceStockAfter,
			DestinationStockBefore: item.DestinationStockBefore,
			DestinationStockAfter:  item.DestinationStockAfter,
			BatchNumber:            item.BatchNumber,
			ExpiryDate:             item.ExpiryDate,
		})
	}

	history := make([]StatusHistoryResponse, 0, len(t.StatusHistory))
	for i := range t.StatusHistory {
		row := t.StatusHistory[i]
		history = append(history, StatusHistoryResponse{
			FromStatus:  row.FromStatus.String(),
			ToStatus:    row.ToStatus.String(),
			ChangedByID: row.ChangedByID,
			ChangedAt:   row.ChangedAt,
			Reason:      row.Reason,
		})
	}

	return TransferResponse{
		ID:                  t.ID,
		TransferNumber:      t.TransferNumber,
		Status:              t.Status,
		Type:                t.Type,
		Priority:            t.Priority,
		SourceBranchID:      t.SourceBranchID,
		DestinationBranchID: t.DestinationBranchID,
		RequestReason:       t.RequestReason,
		EstimatedCost:       t.EstimatedCost,
		ActualCost:          t.ActualCost,
		Carrier:             t.Carrier,
		TrackingNumber:      t.TrackingNumber,
		RequiresApproval:    t.RequiresManagerApproval(approvalThreshold),
		RequestedByID:       t.RequestedByID,
		ApprovedByID:        t.ApprovedByID,
		ApprovedAt:          t.ApprovedAt,
		RejectedByID:        t.RejectedByID,
		RejectedAt:          t.RejectedAt,
		RejectReason:        t.RejectReason,
		ShippedByID:         t.ShippedByID,
		ShippedAt:           t.ShippedAt,
		ReceivedByID:        t.ReceivedByID,
		ReceivedAt:          t.ReceivedAt,
		CancelledByID:       t.CancelledByID,
		CancelledAt:         t.CancelledAt,
		CancelReason:        t.CancelReason,
		Items:               items,
		StatusHistory:       history,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
		Version:             t.Version,
	}
}
