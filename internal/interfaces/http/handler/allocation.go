package handler

import (
	"github.com/gin-gonic/gin"

	inventoryapp "github.com/retailchain/inventory/internal/application/inventory"
)

// AllocationHandler handles FIFO allocation API endpoints
type AllocationHandler struct {
	BaseHandler
	allocationService *inventoryapp.AllocationService
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(allocationService *inventoryapp.AllocationService) *AllocationHandler {
	return &AllocationHandler{
		allocationService: allocationService,
	}
}

// Allocate consumes an outbound quantity from batches in FIFO order
func (h *AllocationHandler) Allocate(c *gin.Context) {
	var req inventoryapp.AllocateRequest
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

	result, err := h.allocationService.Allocate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Preview plans a FIFO allocation without consuming stock
func (h *AllocationHandler) Preview(c *gin.Context) {
	var req inventoryapp.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.allocationService.Preview(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// TraceSaleItem lists the batch allocations recorded for one sale line
func (h *AllocationHandler) TraceSaleItem(c *gin.Context) {
	saleItemID, err := parseUUIDParam(c, "sale_item_id")
	if err != nil {
		h.BadRequest(c, "Invalid sale item ID format")
		return
	}

	lines, err := h.allocationService.TraceSaleItem(c.Request.Context(), saleItemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, lines)
}
