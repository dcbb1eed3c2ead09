package handler

import (
	"pawnshop/internal/repository"
	"pawnshop/internal/service"
	"pawnshop/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateContract 创建草稿合同
// POST /api/v1/contracts
func (h *Handler) CreateContract(c *gin.Context) {
	createdBy, ok := actor(c)
	if !ok {
		return
	}
	var req service.CreateContractRequest
	if !bindJSON(c, &req) {
		return
	}

	contract, err := h.contracts.Create(c.Request.Context(), &req, createdBy)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, contract)
}

// GetContract 合同详情（含物品）
// GET /api/v1/contracts/:id
func (h *Handler) GetContract(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	contract, err := h.contracts.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, contract)
}

// ListContracts 合同列表
// GET /api/v1/contracts?company_id=&store_id=&customer_id=&status=&page=1&page_size=20
func (h *Handler) ListContracts(c *gin.Context) {
	filter := repository.ContractFilter{Status: c.Query("status"), Page: queryPage(c)}
	var ok bool
	if filter.CompanyID, ok = queryID(c, "company_id"); !ok {
		return
	}
	if filter.StoreID, ok = queryID(c, "store_id"); !ok {
		return
	}
	if filter.CustomerID, ok = queryID(c, "customer_id"); !ok {
		return
	}

	contracts, total, err := h.contracts.List(c.Request.Context(), filter)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, listResult(contracts, total, filter.Page))
}

type ConfirmContractRequest struct {
	PIN string `json:"pin" binding:"required"`
}

// ConfirmContract 客户 PIN 确认
// POST /api/v1/contracts/:id/confirm
func (h *Handler) ConfirmContract(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ConfirmContractRequest
	if !bindJSON(c, &req) {
		return
	}

	contract, err := h.contracts.Confirm(c.Request.Context(), id, req.PIN)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, contract)
}

// ExtendContract 续当申请，生成待确认付款凭证
// POST /api/v1/contracts/:id/extend
func (h *Handler) ExtendContract(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	createdBy, ok := actor(c)
	if !ok {
		return
	}
	var req service.ExtendRequest
	if !bindJSON(c, &req) {
		return
	}

	intent, err := h.contracts.Extend(c.Request.Context(), id, &req, createdBy)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, intent)
}

// RedeemContract 赎当申请；amount_paid 为空时按报价全额
// POST /api/v1/contracts/:id/redeem
func (h *Handler) RedeemContract(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	createdBy, ok := actor(c)
	if !ok {
		return
	}
	var req service.RedeemRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	intent, err := h.contracts.Redeem(c.Request.Context(), id, &req, createdBy)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Created(c, intent)
}

// ListPayments 合同付款凭证
// GET /api/v1/contracts/:id/payments
func (h *Handler) ListPayments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	payments, err := h.contracts.ListPayments(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, payments)
}

// QuoteContract 按当前时间试算
// GET /api/v1/contracts/:id/quote?type=redemption|extension&amount=
func (h *Handler) QuoteContract(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	switch c.DefaultQuery("type", "redemption") {
	case "redemption":
		quote, err := h.contracts.QuoteRedemption(c.Request.Context(), id)
		if err != nil {
			response.FromError(c, err)
			return
		}
		response.Success(c, quote)
	case "extension":
		amount, err := decimal.NewFromString(c.DefaultQuery("amount", "0"))
		if err != nil {
			response.ParamError(c, "amount 参数错误")
			return
		}
		quote, err := h.contracts.QuoteExtension(c.Request.Context(), id, amount)
		if err != nil {
			response.FromError(c, err)
			return
		}
		response.Success(c, quote)
	default:
		response.ParamError(c, "type 只能是 redemption 或 extension")
	}
}

// SweepOverdue 手动触发逾期扫描，与定时任务同一逻辑，可重复执行
// POST /api/v1/contracts/overdue-sweep
func (h *Handler) SweepOverdue(c *gin.Context) {
	result, err := h.contracts.SweepOverdue(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, result)
}
