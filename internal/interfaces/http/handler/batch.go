package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	inventoryapp "github.com/retailchain/inventory/internal/application/inventory"
	"github.com/retailchain/inventory/internal/domain/shared"
)

// parseDateTime parses a datetime string in the formats the API accepts
func parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// BatchHandler handles product batch API endpoints
type BatchHandler struct {
	BaseHandler
	batchService *inventoryapp.BatchService
}

// NewBatchHandler creates a new BatchHandler
func NewBatchHandler(batchService *inventoryapp.BatchService) *BatchHandler {
	return &BatchHandler{
		batchService: batchService,
	}
}

// blockRequest carries the mandatory block reason
type blockRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Create receives a new batch of stock
func (h *BatchHandler) Create(c *gin.Context) {
	var req inventoryapp.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, "X-Actor-ID header is required")
		return
	}
	req.ActorID = actorID

	batch, err := h.batchService.CreateBatch(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, batch)
}

// GetByID retrieves a batch by its ID
func (h *BatchHandler) GetByID(c *gin.Context) {
	batchID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid batch ID format")
		return
	}

	batch, err := h.batchService.GetByID(c.Request.Context(), batchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, batch)
}

// ListForProduct lists batches of a product in FIFO consumption order
func (h *BatchHandler) ListForProduct(c *gin.Context) {
	productID, err := parseUUIDParam(c, "product_id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	var branchID *uuid.UUID
	if raw := c.Query("branch_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid branch ID format")
			return
		}
		branchID = &id
	}

	onlyAvailable := c.Query("only_available") != "false"

	batches, err := h.batchService.ListForProduct(c.Request.Context(), productID, branchID, onlyAvailable)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, batches)
}

// ListExpiring lists batches expiring before a deadline
func (h *BatchHandler) ListExpiring(c *gin.Context) {
	deadlineStr := c.Query("before")
	if deadlineStr == "" {
		h.BadRequest(c, "before query parameter is required")
		return
	}

	deadline, err := parseDateTime(deadlineStr)
	if err != nil {
		h.BadRequest(c, "Invalid before date format")
		return
	}

	filter := shared.DefaultFilter()
	batches, err := h.batchService.ListExpiringBefore(c.Request.Context(), deadline, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, batches)
}

// Block blocks a batch from FIFO consumption
func (h *BatchHandler) Block(c *gin.Context) {
	batchID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid batch ID format")
		return
	}

	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	batch, err := h.batchService.Block(c.Request.Context(), batchID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, batch)
}

// Unblock returns a blocked batch to FIFO consumption
func (h *BatchHandler) Unblock(c *gin.Context) {
	batchID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid batch ID format")
		return
	}

	batch, err := h.batchService.Unblock(c.Request.Context(), batchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, batch)
}

// MarkExpired flags a batch as expired
func (h *BatchHandler) MarkExpired(c *gin.Context) {
	batchID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid batch ID format")
		return
	}

	batch, err := h.batchService.MarkExpired(c.Request.Context(), batchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, batch)
}

// Dispose writes off a batch and its remaining stock
func (h *BatchHandler) Dispose(c *gin.Context) {
	batchID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid batch ID format")
		return
	}

	var req inventoryapp.DisposeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.BatchID = batchID

	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, "X-Actor-ID header is required")
		return
	}
	req.ActorID = actorID

	batch, err := h.batchService.Dispose(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, batch)
}

// SweepExpired flags every batch whose expiry date has passed
func (h *BatchHandler) SweepExpired(c *gin.Context) {
	count, err := h.batchService.SweepExpired(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"expired_count": count})
}
