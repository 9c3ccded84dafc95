package handler

import (
	sessionservice "feed_gateway/internal/domain/session/service"
	"feed_gateway/internal/pkg/middleware"
	"feed_gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// SessionHandler 会话处理器
type SessionHandler struct {
	sessions *sessionservice.Registry
}

func NewSessionHandler(sessions *sessionservice.Registry) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Status 会话概览：列表长度、未读数、轮询计数
// @Summary 会话状态
// @Tags Session
// @Produce json
// @Success 200 {object} response.Response
// @Router /session [get]
func (h *SessionHandler) Status(c *gin.Context) {
	e := h.sessions.GetOrCreate(middleware.GetToken(c))
	response.Success(c, gin.H{
		"feed_loaded":     len(e.Feed.Posts()),
		"feed_high_water": e.Feed.HighWater(),
		"new_posts":       e.Feed.NewCount(),
		"unread":          e.Notifications.Unread(),
	})
}

// Close 登出：停轮询、丢全部会话内状态
// @Summary 关闭会话
// @Tags Session
// @Produce json
// @Success 200 {object} response.Response
// @Router /session [delete]
func (h *SessionHandler) Close(c *gin.Context) {
	closed := h.sessions.Close(middleware.GetToken(c))
	response.Success(c, gin.H{"closed": closed})
}
