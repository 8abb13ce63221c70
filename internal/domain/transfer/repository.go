package transfer

import (
	"context"

	"github.com/google/uuid"

	"github.com/retailchain/inventory/internal/domain/shared"
)

// TransferRepository defines persistence for the InventoryTransfer aggregate.
// Items and status history are loaded and saved with the root; transfers are
// never hard-deleted.
type TransferRepository interface {
	// FindByID finds a transfer by its ID, items and history included
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryTransfer, error)

	// FindByNumber finds a transfer by its human-readable number
	FindByNumber(ctx context.Context, transferNumber string) (*InventoryTransfer, error)

	// FindAll lists transfers matching the filter
	FindAll(ctx context.Context, filter TransferFilter) ([]InventoryTransfer, error)

	// Count counts transfers matching the filter
	Count(ctx context.Context, filter TransferFilter) (int64, error)

	// Create persists a new transfer with its items and first history row
	Create(ctx context.Context, t *InventoryTransfer) error

	// SaveWithLock updates the transfer (and appends any new items/history
	// rows) with an optimistic version check on the root
	SaveWithLock(ctx context.Context, t *InventoryTransfer) error

	// ExistsByNumber checks transfer-number uniqueness
	ExistsByNumber(ctx context.Context, transferNumber string) (bool, error)
}

// TransferFilter extends shared.Filter with transfer-specific filters
type TransferFilter struct {
	shared.Filter
	Status              *TransferStatus
	Type                *TransferType
	SourceBranchID      *uuid.UUID
	DestinationBranchID *uuid.UUID
	RequestedByID       *uuid.UUID
}
