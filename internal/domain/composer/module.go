package composer

import (
	"feed_gateway/internal/domain/composer/handler"
	"feed_gateway/internal/pkg/middleware"
	"feed_gateway/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// ComposerModule 发帖向导模块
type ComposerModule struct{}

func init() {
	// 自动注册模块
	registry.Register(&ComposerModule{})
}

func (m *ComposerModule) Name() string {
	return "composer"
}

func (m *ComposerModule) Priority() int {
	return 3
}

func (m *ComposerModule) Init(ctx *registry.ModuleContext) error {
	composerHandler := handler.NewComposerHandler(ctx.Sessions)
	setupRoutes(ctx.Router, composerHandler)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.ComposerHandler) {
	group := r.Group("/api/composer")
	group.Use(middleware.AuthMiddleware())
	{
		group.GET("", h.Snapshot)
		group.POST("/open", h.Open)
		group.POST("/cancel", h.Cancel)
		group.POST("/next", h.Next)
		group.POST("/back", h.Back)
		group.POST("/submit", h.Submit)

		group.PUT("/content", h.SetContent)
		group.PUT("/visibility", h.SetVisibility)
		group.PUT("/balances", h.SetBalances)
		group.PUT("/rewards", h.ToggleRewards)
		group.PUT("/rewards/coin", h.SelectCoin)
		group.PUT("/rewards/pool", h.SetPool)
		group.PUT("/rewards/rule", h.SetRule)

		group.POST("/media", h.Upload)
		group.DELETE("/media/:index", h.RemoveMedia)
		group.DELETE("/uploads/:id", h.DismissUpload)
	}
}
