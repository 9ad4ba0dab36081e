package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/health"
	"github.com/vladislavdragonenkov/checkout/internal/version"
)

// RouterConfig — зависимости HTTP-роутера.
type RouterConfig struct {
	Orders    *OrderHandlers
	Webhooks  *WebhookHandler
	JWTSecret []byte
	Health    *health.Registry
	// WebhookLogs включает админский просмотр журнала доставок.
	WebhookLogs domain.WebhookLogRepository
	Logger      *log.Entry
}

// NewRouter собирает gin-роутер со всеми маршрутами сервиса.
//
// /api/webhooks/payment не требует JWT: аутентификация доставки — её подпись.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = log.WithField("component", "api")
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	router.GET("/healthz", gin.WrapF(health.Alive))
	if cfg.Health != nil {
		router.GET("/health", gin.WrapH(cfg.Health))
		router.GET("/readyz", gin.WrapF(cfg.Health.Ready))
	}
	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":  version.Version,
			"commit":   version.Commit,
			"built_at": version.BuiltAt,
		})
	})

	apiGroup := router.Group("/api")
	apiGroup.POST("/webhooks/payment", cfg.Webhooks.Handle)

	authed := apiGroup.Group("")
	authed.Use(AuthRequired(cfg.JWTSecret, logger))
	{
		authed.POST("/orders", cfg.Orders.Create)
		authed.GET("/orders/mine", cfg.Orders.ListMine)
		authed.GET("/orders/:id", cfg.Orders.Get)
		authed.POST("/orders/:id/pay", cfg.Orders.Pay)
	}

	admin := apiGroup.Group("/admin")
	admin.Use(AuthRequired(cfg.JWTSecret, logger), AdminRequired())
	{
		admin.GET("/orders", cfg.Orders.List)
		admin.PUT("/orders/:id/ship", cfg.Orders.Ship)
		admin.PUT("/orders/:id/deliver", cfg.Orders.Deliver)
		admin.GET("/orders/:id/timeline", cfg.Orders.Timeline)
		if cfg.WebhookLogs != nil {
			admin.GET("/webhooks", listWebhookDeliveries(cfg.WebhookLogs))
		}
	}

	return router
}

func listWebhookDeliveries(logs domain.WebhookLogRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := logs.List(100)
		if err != nil {
			respondError(c, "internal error")
			return
		}
		c.JSON(http.StatusOK, Response{Status: "success", Data: gin.H{"deliveries": entries}})
	}
}
