package feed

import (
	"feed_gateway/internal/domain/feed/handler"
	"feed_gateway/internal/pkg/middleware"
	"feed_gateway/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// FeedModule 信息流模块
type FeedModule struct{}

func init() {
	// 自动注册模块
	registry.Register(&FeedModule{})
}

func (m *FeedModule) Name() string {
	return "feed"
}

func (m *FeedModule) Priority() int {
	// 信息流是核心面，排在会话之后
	return 2
}

func (m *FeedModule) Init(ctx *registry.ModuleContext) error {
	feedHandler := handler.NewFeedHandler(ctx.Sessions)
	threadHandler := handler.NewThreadHandler(ctx.Sessions)
	setupRoutes(ctx.Router, feedHandler, threadHandler)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.FeedHandler, th *handler.ThreadHandler) {
	feedGroup := r.Group("/api/feed")
	feedGroup.Use(middleware.AuthMiddleware())
	{
		feedGroup.GET("", h.Load)
		feedGroup.POST("/more", h.LoadMore)
		feedGroup.GET("/new-count", h.NewCount)
		feedGroup.POST("/new-posts", h.LoadNewPosts)
		feedGroup.GET("/media-layout", h.MediaLayout)

		feedGroup.GET("/posts/:id", h.GetPost)
		feedGroup.PUT("/posts/:id", h.Update)
		feedGroup.DELETE("/posts/:id", h.Delete)
		feedGroup.POST("/posts/:id/like", h.ToggleLike)
		feedGroup.POST("/posts/:id/share", h.Share)

		feedGroup.GET("/posts/:id/thread", th.Open)
		feedGroup.DELETE("/posts/:id/thread", th.Close)
		feedGroup.POST("/posts/:id/thread/comments", th.AddComment)
		feedGroup.POST("/posts/:id/thread/comments/:commentId/like", th.LikeComment)
		feedGroup.POST("/posts/:id/thread/reply-box", th.OpenReplyBox)
		feedGroup.DELETE("/posts/:id/thread/reply-box", th.CloseReplyBox)
		feedGroup.PUT("/posts/:id/thread/draft", th.SetDraft)
		feedGroup.POST("/posts/:id/thread/replies", th.SubmitReply)
	}
}
