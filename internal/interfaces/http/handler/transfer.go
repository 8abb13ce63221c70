package handler

import (
	"github.com/gin-gonic/gin"

	transferapp "github.com/retailchain/inventory/internal/application/transfer"
)

// TransferHandler handles inter-branch transfer API endpoints
type TransferHandler struct {
	BaseHandler
	transferService *transferapp.TransferService
}

// NewTransferHandler creates a new TransferHandler
func NewTransferHandler(transferService *transferapp.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
	}
}

// Create requests a new inter-branch transfer
func (h *TransferHandler) Create(c *gin.Context) {
	var req transferapp.CreateTransferRequest
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

	transfer, err := h.transferService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, transfer)
}

// GetByID retrieves a transfer by its ID
func (h *TransferHandler) GetByID(c *gin.Context) {
	transferID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	transfer, err := h.transferService.GetByID(c.Request.Context(), transferID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, transfer)
}

// GetByNumber retrieves a transfer by its business number
func (h *TransferHandler) GetByNumber(c *gin.Context) {
	transferNumber := c.Param("transfer_number")
	if transferNumber == "" {
		h.BadRequest(c, "transfer number is required")
		return
	}

	transfer, err := h.transferService.GetByNumber(c.Request.Context(), transferNumber)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, transfer)
}

// List lists transfers with optional filters
func (h *TransferHandler) List(c *gin.Context) {
	var req transferapp.ListTransfersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	transfers, total, err := h.transferService.List(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, transfers, total, req.Page, req.PageSize)
}

// Approve approves a pending transfer
func (h *TransferHandler) Approve(c *gin.Context) {
	transferID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, "X-Actor-ID header is required")
		return
	}

	transfer, err := h.transferService.Approve(c.Request.Context(), transferID, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, transfer)
}

// Reject rejects a pending transfer with a mandatory reason
func (h *TransferHandler) Reject(c *gin.Context) {
	transferID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	var req transferapp.RejectTransferRequest
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

	transfer, err := h.transferService.Reject(c.Request.Context(), transferID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, transfer)
}

// Cancel cancels a transfer that has not shipped yet
func (h *TransferHandler) Cancel(c *gin.Context) {
	transferID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	var req transferapp.CancelTransferRequest
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

	transfer, err := h.transferService.Cancel(c.Request.Context(), transferID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, transfer)
}

// Ship dispatches an approved transfer and deducts source stock
func (h *TransferHandler) Ship(c *gin.Context) {
	transferID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	var req transferapp.ShipTransferRequest
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

	transfer, err := h.transferService.Ship(c.Request.Context(), transferID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, transfer)
}

// Receive completes a transfer and adds destination stock
func (h *TransferHandler) Receive(c *gin.Context) {
	transferID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid transfer ID format")
		return
	}

	actorID, err := getActorID(c)
	if err != nil {
		h.BadRequest(c, "X-Actor-ID header is required")
		return
	}

	transfer, err := h.transferService.Receive(c.Request.Context(), transferID, actorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, transfer)
}
