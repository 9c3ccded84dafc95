package mention

import (
	"feed_gateway/internal/domain/mention/handler"
	"feed_gateway/internal/pkg/config"
	"feed_gateway/internal/pkg/middleware"
	"feed_gateway/internal/pkg/registry"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// MentionModule 提及模块
type MentionModule struct{}

func init() {
	// 自动注册模块
	registry.Register(&MentionModule{})
}

func (m *MentionModule) Name() string {
	return "mention"
}

func (m *MentionModule) Priority() int {
	return 4
}

func (m *MentionModule) Init(ctx *registry.ModuleContext) error {
	mentionHandler := handler.NewMentionHandler(ctx.Sessions)
	setupRoutes(ctx.Router, mentionHandler)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.MentionHandler) {
	group := r.Group("/api/mention")
	group.Use(middleware.AuthMiddleware())
	// 逐键同步的接口，单独限一道速
	group.Use(middleware.RateLimitMiddleware(
		rate.Limit(config.GlobalConfig.Server.MentionRate),
		config.GlobalConfig.Server.MentionBurst))
	{
		group.GET("", h.State)
		group.POST("/input", h.Input)
		group.POST("/selection", h.MoveSelection)
		group.POST("/commit", h.Commit)
		group.POST("/dismiss", h.Dismiss)
		group.GET("/render", h.Render)
	}
}
