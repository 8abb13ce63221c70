package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	inventoryapp "github.com/retailchain/inventory/internal/application/inventory"
	"github.com/retailchain/inventory/internal/domain/shared"
	"github.com/retailchain/inventory/internal/interfaces/http/dto"
)

// BranchInventoryHandler handles branch stock projection API endpoints
type BranchInventoryHandler struct {
	BaseHandler
	branchService *inventoryapp.BranchInventoryService
}

// NewBranchInventoryHandler creates a new BranchInventoryHandler
func NewBranchInventoryHandler(branchService *inventoryapp.BranchInventoryService) *BranchInventoryHandler {
	return &BranchInventoryHandler{
		branchService: branchService,
	}
}

// Get retrieves the projection row of one product at one branch
func (h *BranchInventoryHandler) Get(c *gin.Context) {
	branchID, err := parseUUIDParam(c, "branch_id")
	if err != nil {
		h.BadRequest(c, "Invalid branch ID format")
		return
	}

	productID, err := parseUUIDParam(c, "product_id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	row, err := h.branchService.GetByBranchAndProduct(c.Request.Context(), branchID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, row)
}

// ListByBranch lists the projection rows of a branch
func (h *BranchInventoryHandler) ListByBranch(c *gin.Context) {
	branchID, err := parseUUIDParam(c, "branch_id")
	if err != nil {
		h.BadRequest(c, "Invalid branch ID format")
		return
	}

	var listReq dto.ListRequest
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := shared.DefaultFilter()
	if listReq.Page > 0 {
		filter.Page = listReq.Page
	}
	if listReq.PageSize > 0 {
		filter.PageSize = listReq.PageSize
	}

	rows, total, err := h.branchService.ListByBranch(c.Request.Context(), branchID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, rows, total, filter.Page, filter.PageSize)
}

// ListNeedingRestock lists projection rows at or below their restock threshold
func (h *BranchInventoryHandler) ListNeedingRestock(c *gin.Context) {
	var branchID *uuid.UUID
	if raw := c.Query("branch_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid branch ID format")
			return
		}
		branchID = &id
	}

	filter := shared.DefaultFilter()
	rows, err := h.branchService.ListNeedingRestock(c.Request.Context(), branchID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rows)
}

// SetThresholds updates the restock/overstock thresholds of a projection row
func (h *BranchInventoryHandler) SetThresholds(c *gin.Context) {
	branchID, err := parseUUIDParam(c, "branch_id")
	if err != nil {
		h.BadRequest(c, "Invalid branch ID format")
		return
	}

	productID, err := parseUUIDParam(c, "product_id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	var req inventoryapp.SetThresholdsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	row, err := h.branchService.SetThresholds(c.Request.Context(), branchID, productID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, row)
}

// SetPrices updates the branch-specific prices of a projection row
func (h *BranchInventoryHandler) SetPrices(c *gin.Context) {
	branchID, err := parseUUIDParam(c, "branch_id")
	if err != nil {
		h.BadRequest(c, "Invalid branch ID format")
		return
	}

	productID, err := parseUUIDParam(c, "product_id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	var req inventoryapp.SetPricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	row, err := h.branchService.SetPrices(c.Request.Context(), branchID, productID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, row)
}
