package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"workspace-backoffice/internal/database"
	"workspace-backoffice/internal/metrics"
)

type RouterDeps struct {
	Orders        *OrderHandler
	Notifications *NotificationHandler
	Perms         PermissionChecker
	Health        database.Service
	Metrics       *metrics.ServerMetrics
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.Health.Health(c.Request.Context()))
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1", requireUser())

	// The webhook is authenticated by the gateway's signature at the
	// edge, not by a workspace permission.
	api.POST("/payments/webhook", deps.Orders.Webhook)

	ws := api.Group("/workspaces/:wid")
	{
		ws.POST("/orders", requirePermission(deps.Perms, "order:create"), deps.Orders.PlaceOrder)
		ws.GET("/orders", requirePermission(deps.Perms, "order:read"), deps.Orders.ListOrders)
		ws.GET("/orders/:id", requirePermission(deps.Perms, "order:read"), deps.Orders.GetOrder)
		ws.PATCH("/orders/:id/status", requirePermission(deps.Perms, "order:update"), deps.Orders.UpdateStatus)
		ws.POST("/orders/:id/cancel", requirePermission(deps.Perms, "order:cancel"), deps.Orders.CancelOrder)
		ws.POST("/orders/:id/reorder", requirePermission(deps.Perms, "order:create"), deps.Orders.Reorder)
		ws.POST("/orders/:id/items", requirePermission(deps.Perms, "order:update"), deps.Orders.AddItem)
		ws.DELETE("/orders/:id/items/:itemID", requirePermission(deps.Perms, "order:update"), deps.Orders.RemoveItem)

		ws.GET("/notifications", requirePermission(deps.Perms, "notification:read"), deps.Notifications.List)
		ws.POST("/notifications/:id/read", requirePermission(deps.Perms, "notification:read"), deps.Notifications.MarkRead)
	}

	return r
}
