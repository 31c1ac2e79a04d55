package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mnpay/backend/internal/infrastructure/config"
	"github.com/mnpay/backend/internal/infrastructure/logger"
	"github.com/mnpay/backend/internal/interfaces/http/handler"
	"github.com/mnpay/backend/internal/interfaces/http/middleware"
)

// Handlers collects the handlers mounted by the router
type Handlers struct {
	System   *handler.SystemHandler
	Payment  *handler.PaymentHandler
	Callback *handler.CallbackHandler
	Receipt  *handler.ReceiptHandler
	Ebarimt  *handler.EbarimtHandler
}

// New builds the gin engine with all middleware and routes mounted
func New(cfg *config.Config, log *zap.Logger, h Handlers) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.RequestLogger(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
			AllowMethods:     cfg.HTTP.CORSAllowMethods,
			AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders:    []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	if len(cfg.HTTP.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.HTTP.TrustedProxies)
	}

	engine.GET("/health", h.System.Health)
	engine.GET("/ready", h.System.Ready)

	api := engine.Group("/api/v1")
	{
		payments := api.Group("/payments")
		{
			payments.POST("", h.Payment.Create)
			payments.GET("/:ref", h.Payment.Get)
			payments.POST("/:ref/cancel", h.Payment.Cancel)
			payments.POST("/:ref/check", h.Payment.Check)
		}

		// the gateway calls back with GET or POST depending on product
		api.GET("/qpay/callback", h.Callback.Handle)
		api.POST("/qpay/callback", h.Callback.Handle)

		receipts := api.Group("/receipts")
		{
			receipts.POST("", h.Receipt.Issue)
			receipts.GET("/order/:orderRef", h.Receipt.List)
			receipts.DELETE("/:id", h.Receipt.Invalidate)
			receipts.POST("/send-data", h.Receipt.SendData)
		}

		ebarimt := api.Group("/ebarimt")
		{
			ebarimt.GET("/info", h.Ebarimt.Info)
			ebarimt.GET("/taxpayer/:tin", h.Ebarimt.Taxpayer)
			ebarimt.GET("/product-codes", h.Ebarimt.ProductCodes)
			ebarimt.GET("/stock-qr/:code", h.Ebarimt.StockQR)
			ebarimt.POST("/merchants", h.Ebarimt.RegisterMerchants)
			ebarimt.GET("/bank-accounts", h.Ebarimt.BankAccounts)
		}
	}

	return engine
}
