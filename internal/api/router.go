package api

import (
	"commerce-backend/internal/api/audit"
	"commerce-backend/internal/api/discount"
	"commerce-backend/internal/api/inventory"
	"commerce-backend/internal/api/order"
	"commerce-backend/internal/api/payment"
	"commerce-backend/internal/errors"
	"commerce-backend/internal/middleware"
	"commerce-backend/internal/util"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Handlers 路由用到的全部处理器
type Handlers struct {
	Order     *order.OrderHandler
	Payment   *payment.PaymentHandler
	Discount  *discount.DiscountHandler
	Inventory *inventory.InventoryHandler
	Audit     *audit.AuditHandler
}

// RouterOptions 路由配置
type RouterOptions struct {
	AllowOrigins []string
	Monitor      *middleware.ErrorMonitor
}

// NewRouter 注册中间件与全部接口
func NewRouter(h Handlers, opts RouterOptions) *gin.Engine {
	// gin 绑定与服务层共用自定义校验规则
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		util.RegisterValidations(v)
	}

	monitor := opts.Monitor
	if monitor == nil {
		monitor = middleware.NewErrorMonitor()
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.ErrorMonitorMiddleware(monitor))

	corsConfig := cors.DefaultConfig()
	if len(opts.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = opts.AllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Authorization",
	}
	r.Use(cors.New(corsConfig))

	r.NoRoute(func(c *gin.Context) {
		errors.HandleError(c, errors.New(errors.ErrResourceNotFound, "接口不存在"))
	})
	r.GET("/healthz", func(c *gin.Context) {
		errors.HandleSuccess(c, http.StatusOK, nil)
	})

	api := r.Group("/api")
	{
		// 店面
		storefront := api.Group("/")
		storefront.Use(middleware.OptionalAuthMiddleware())
		{
			storefront.POST("/checkout", h.Order.Checkout)
			storefront.POST("/discounts/validate", h.Discount.Validate)
		}

		customer := api.Group("/orders")
		customer.Use(middleware.AuthMiddleware())
		{
			customer.GET("", h.Order.ListMyOrders)
			customer.GET("/:id", h.Order.GetMyOrder)
		}

		// 后台
		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
		{
			orders := admin.Group("/orders")
			{
				orders.GET("", h.Order.ListOrders)
				orders.GET("/:id", h.Order.GetOrder)
				orders.GET("/:id/timeline", h.Order.GetTimeline)
				orders.PATCH("/:id/status", h.Order.UpdateStatus)
				orders.POST("/:id/notes", h.Order.AddNote)
				orders.POST("/:id/fulfill", h.Order.Fulfill)
				orders.POST("/:id/cancel", h.Order.Cancel)
			}

			payments := admin.Group("/payments")
			{
				payments.POST("/:id/authorize", h.Payment.Authorize)
				payments.POST("/:id/fail", h.Payment.Fail)
				payments.POST("/:id/capture", h.Payment.Capture)
				payments.POST("/:id/void", h.Payment.Void)
				payments.POST("/:id/refund", h.Payment.Refund)
			}

			discounts := admin.Group("/discounts")
			{
				discounts.GET("", h.Discount.List)
				discounts.POST("", h.Discount.Create)
				discounts.GET("/:id", h.Discount.Get)
				discounts.PUT("/:id", h.Discount.Update)
				discounts.POST("/:id/enable", h.Discount.Enable)
				discounts.POST("/:id/disable", h.Discount.Disable)
				discounts.GET("/:id/usages", h.Discount.Usages)
				discounts.GET("/:id/verify", h.Discount.VerifyUsage)
			}

			inventory := admin.Group("/inventory")
			{
				inventory.GET("", h.Inventory.List)
				inventory.POST("", h.Inventory.Create)
				inventory.GET("/:id", h.Inventory.Get)
				inventory.POST("/:id/adjust", h.Inventory.Adjust)
				inventory.PUT("/:id/quantity", h.Inventory.SetQuantity)
				inventory.PUT("/:id/reorder", h.Inventory.UpdateReorderSettings)
				inventory.GET("/:id/adjustments", h.Inventory.Adjustments)
			}

			admin.GET("/audit-logs", h.Audit.List)
			admin.POST("/audit-logs/export", h.Audit.Export)

			admin.GET("/errors", func(c *gin.Context) {
				errors.HandleSuccess(c, http.StatusOK, gin.H{"counts": monitor.GetErrorCounts()})
			})
		}
	}

	return r
}
