package session

import (
	"net/http"

	"feed_gateway/internal/domain/session/handler"
	"feed_gateway/internal/pkg/middleware"
	"feed_gateway/internal/pkg/registry"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SessionModule 会话模块，兼管健康检查、指标和文档入口
type SessionModule struct{}

func init() {
	// 自动注册模块
	registry.Register(&SessionModule{})
}

func (m *SessionModule) Name() string {
	return "session"
}

func (m *SessionModule) Priority() int {
	// 会话先于各业务面
	return 1
}

func (m *SessionModule) Init(ctx *registry.ModuleContext) error {
	sessionHandler := handler.NewSessionHandler(ctx.Sessions)
	setupRoutes(ctx.Router, sessionHandler)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.SessionHandler) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	group := r.Group("/api/session")
	group.Use(middleware.AuthMiddleware())
	{
		group.GET("", h.Status)
		group.DELETE("", h.Close)
	}
}
