package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	inventoryapp "github.com/retailchain/inventory/internal/application/inventory"
)

// LedgerHandler handles stock mutation ledger API endpoints
type LedgerHandler struct {
	BaseHandler
	ledgerService *inventoryapp.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledgerService *inventoryapp.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
	}
}

// Append appends one entry to the stock mutation ledger
func (h *LedgerHandler) Append(c *gin.Context) {
	var req inventoryapp.AppendMutationRequest
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

	mutation, err := h.ledgerService.Append(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, mutation)
}

// GetByID retrieves a single ledger entry
func (h *LedgerHandler) GetByID(c *gin.Context) {
	mutationID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid mutation ID format")
		return
	}

	mutation, err := h.ledgerService.GetByID(c.Request.Context(), mutationID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, mutation)
}

// History lists the ledger of a product in chronological order
func (h *LedgerHandler) History(c *gin.Context) {
	productID, err := parseUUIDParam(c, "product_id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	var req inventoryapp.HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.ProductID = productID

	if raw := c.Query("branch_id"); raw != "" {
		branchID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid branch ID format")
			return
		}
		req.BranchID = &branchID
	}

	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	mutations, total, err := h.ledgerService.History(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, mutations, total, req.Page, req.PageSize)
}

// GetByReference lists ledger entries that share a reference number
func (h *LedgerHandler) GetByReference(c *gin.Context) {
	reference := c.Param("reference")
	if reference == "" {
		h.BadRequest(c, "reference is required")
		return
	}

	mutations, err := h.ledgerService.GetByReference(c.Request.Context(), reference)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, mutations)
}

// VerifyReplay checks the projection of a product against its ledger sum
func (h *LedgerHandler) VerifyReplay(c *gin.Context) {
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

	check, err := h.ledgerService.VerifyReplay(c.Request.Context(), productID, branchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, check)
}

// ProductStock reports the total projected stock of a product across branches
func (h *LedgerHandler) ProductStock(c *gin.Context) {
	productID, err := parseUUIDParam(c, "product_id")
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	stock, err := h.ledgerService.ProductStock(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"product_id": productID, "stock": stock})
}
