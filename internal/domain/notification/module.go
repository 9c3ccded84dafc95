package notification

import (
	"feed_gateway/internal/domain/notification/handler"
	"feed_gateway/internal/pkg/middleware"
	"feed_gateway/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// NotificationModule 通知模块
type NotificationModule struct{}

func init() {
	// 自动注册模块
	registry.Register(&NotificationModule{})
}

func (m *NotificationModule) Name() string {
	return "notification"
}

func (m *NotificationModule) Priority() int {
	return 5
}

func (m *NotificationModule) Init(ctx *registry.ModuleContext) error {
	notificationHandler := handler.NewNotificationHandler(ctx.Sessions)
	setupRoutes(ctx.Router, notificationHandler)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.NotificationHandler) {
	group := r.Group("/api/notifications")
	group.Use(middleware.AuthMiddleware())
	{
		group.GET("", h.Load)
		group.POST("/more", h.LoadMore)
		group.POST("/read-all", h.MarkAllRead)
		group.POST("/:id/read", h.MarkRead)
		group.GET("/:id/target", h.Resolve)
	}
}
