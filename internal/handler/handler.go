package handler

import (
	"net/http"
	"strconv"

	"pawnshop/internal/repository"
	"pawnshop/internal/service"
	"pawnshop/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ActorHeader carries the id of the staff member making the request. Requests
// without it are treated as customer-initiated.
const ActorHeader = "X-User-ID"

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	contracts *service.ContractService
	auctions  *service.AuctionService
	reports   *service.ReportService
	ready     func() error
}

// NewHandler 创建处理器实例。ready 为 nil 时 /health 恒为 ok。
func NewHandler(contracts *service.ContractService, auctions *service.AuctionService, reports *service.ReportService, ready func() error) *Handler {
	return &Handler{
		contracts: contracts,
		auctions:  auctions,
		reports:   reports,
		ready:     ready,
	}
}

// actor reads the optional X-User-ID header. ok is false when the header is
// present but malformed; the response has been written then.
func actor(c *gin.Context) (*uuid.UUID, bool) {
	raw := c.GetHeader(ActorHeader)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.ParamError(c, ActorHeader+" 不是合法的 uuid")
		return nil, false
	}
	return &id, true
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.ParamError(c, name+" 参数错误")
		return uuid.Nil, false
	}
	return id, true
}

// queryID parses an optional uuid query parameter.
func queryID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.ParamError(c, name+" 参数错误")
		return nil, false
	}
	return &id, true
}

func queryPage(c *gin.Context) repository.Page {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return repository.Page{
		Page:     page,
		PageSize: pageSize,
		OrderBy:  c.Query("order_by"),
		OrderDir: c.Query("order_dir"),
	}
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return false
	}
	return true
}

func listResult(list interface{}, total int64, page repository.Page) gin.H {
	return gin.H{
		"list":      list,
		"total":     total,
		"page":      page.Page,
		"page_size": page.PageSize,
	}
}

// DashboardSummary 看板统计
// GET /api/v1/dashboard/summary?company_id=&store_id=
func (h *Handler) DashboardSummary(c *gin.Context) {
	companyID, ok := queryID(c, "company_id")
	if !ok {
		return
	}
	storeID, ok := queryID(c, "store_id")
	if !ok {
		return
	}

	summary, err := h.reports.Summary(c.Request.Context(), companyID, storeID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, summary)
}

// Health 健康检查，ready 失败时返回 503
func (h *Handler) Health(c *gin.Context) {
	if h.ready != nil {
		if err := h.ready(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
