package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRouter 配置路由
func SetupRouter(h *Handler, log *zap.Logger) *gin.Engine {
	r := gin.New()

	r.Use(RecoveryMiddleware(log))
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware())
	r.Use(MetricsMiddleware())

	api := r.Group("/api/v1")
	{
		contracts := api.Group("/contracts")
		{
			contracts.POST("", h.CreateContract)
			contracts.GET("", h.ListContracts)
			contracts.POST("/overdue-sweep", h.SweepOverdue)
			contracts.GET("/:id", h.GetContract)
			contracts.POST("/:id/confirm", h.ConfirmContract)
			contracts.POST("/:id/extend", h.ExtendContract)
			contracts.POST("/:id/redeem", h.RedeemContract)
			contracts.GET("/:id/payments", h.ListPayments)
			contracts.GET("/:id/quote", h.QuoteContract)
		}

		batches := api.Group("/auction-batches")
		{
			batches.POST("", h.CreateBatch)
			batches.GET("", h.ListBatches)
			batches.GET("/:id", h.GetBatch)
			batches.POST("/:id/assign", h.AssignBatch)
			batches.PUT("/:id/items/:itemId/pickup", h.UpdatePickup)
			batches.PUT("/:id/items/:itemId/validation", h.SubmitValidation)
			batches.POST("/:id/finalize", h.FinalizeBatch)
			batches.POST("/:id/cancel", h.CancelBatch)
		}

		api.GET("/dashboard/summary", h.DashboardSummary)
	}

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
