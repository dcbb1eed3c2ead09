package handler

import (
	"pawnshop/internal/repository"
	"pawnshop/internal/service"
	"pawnshop/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateBatch 建立拍卖批次
// POST /api/v1/auction-batches
func (h *Handler) CreateBatch(c *gin.Context) {
	createdBy, ok := actor(c)
	if !ok {
		return
	}
	var req service.CreateBatchRequest
	if !bindJSON(c, &req) {
		return
	}

	batch, err := h.auctions.Create(c.Request.Context(), &req, createdBy)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, batch)
}

// GetBatch
// GET /api/v1/auction-batches/:id
func (h *Handler) GetBatch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	batch, err := h.auctions.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, batch)
}

// ListBatches
// GET /api/v1/auction-batches?company_id=&store_id=&assigned_to=&status=
func (h *Handler) ListBatches(c *gin.Context) {
	filter := repository.BatchFilter{Status: c.Query("status"), Page: queryPage(c)}
	var ok bool
	if filter.CompanyID, ok = queryID(c, "company_id"); !ok {
		return
	}
	if filter.StoreID, ok = queryID(c, "store_id"); !ok {
		return
	}
	if filter.AssignedTo, ok = queryID(c, "assigned_to"); !ok {
		return
	}

	batches, total, err := h.auctions.List(c.Request.Context(), filter)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, listResult(batches, total, filter.Page))
}

type AssignBatchRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// AssignBatch 指派取件人
// POST /api/v1/auction-batches/:id/assign
func (h *Handler) AssignBatch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req AssignBatchRequest
	if !bindJSON(c, &req) {
		return
	}

	batch, err := h.auctions.Assign(c.Request.Context(), id, req.UserID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, batch)
}

// UpdatePickup 单件取件结果，itemId 为批次明细 id
// PUT /api/v1/auction-batches/:id/items/:itemId/pickup
func (h *Handler) UpdatePickup(c *gin.Context) {
	batchID, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}
	var req service.UpdatePickupRequest
	if !bindJSON(c, &req) {
		return
	}

	batch, err := h.auctions.UpdateItemPickup(c.Request.Context(), batchID, itemID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, batch)
}

// SubmitValidation 单件验货结论
// PUT /api/v1/auction-batches/:id/items/:itemId/validation
func (h *Handler) SubmitValidation(c *gin.Context) {
	batchID, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId")
	if !ok {
		return
	}
	validatedBy, ok := actor(c)
	if !ok {
		return
	}
	var req service.SubmitValidationRequest
	if !bindJSON(c, &req) {
		return
	}

	batch, err := h.auctions.SubmitItemValidation(c.Request.Context(), batchID, itemID, &req, validatedBy)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, batch)
}

// FinalizeBatch 定稿，进入 ready_for_auction
// POST /api/v1/auction-batches/:id/finalize
func (h *Handler) FinalizeBatch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	batch, err := h.auctions.Finalize(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, batch)
}

// CancelBatch
// POST /api/v1/auction-batches/:id/cancel
func (h *Handler) CancelBatch(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	batch, err := h.auctions.Cancel(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, batch)
}
