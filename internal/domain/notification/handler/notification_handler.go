package handler

import (
	"errors"
	"net/http"

	"feed_gateway/internal/domain/notification/service"
	sessionservice "feed_gateway/internal/domain/session/service"
	"feed_gateway/internal/pkg/middleware"
	"feed_gateway/internal/platform"
	"feed_gateway/pkg/response"
	"feed_gateway/pkg/utils"

	"github.com/gin-gonic/gin"
)

// NotificationHandler 通知处理器
type NotificationHandler struct {
	sessions *sessionservice.Registry
}

func NewNotificationHandler(sessions *sessionservice.Registry) *NotificationHandler {
	return &NotificationHandler{sessions: sessions}
}

func (h *NotificationHandler) engine(c *gin.Context) *sessionservice.Engine {
	return h.sessions.GetOrCreate(middleware.GetToken(c))
}

func failNotification(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.Fail(c, response.ErrNotificationNotFound, "notification not found")
	case errors.Is(err, service.ErrLoadInFlight):
		response.Fail(c, response.ErrLoadInFlight, "a page load is already running")
	case errors.Is(err, service.ErrNoTarget):
		response.Fail(c, response.ErrNotificationNotFound, "notification has no target")
	case errors.Is(err, platform.ErrUnavailable):
		response.Error(c, http.StatusBadGateway, response.ErrPlatformGateway, "platform unavailable")
	default:
		if apiErr := platform.AsAPIError(err); apiErr != nil {
			response.Fail(c, response.ErrNotificationNotFound, apiErr.Detail())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
	}
}

// Load 拉第一页通知
// @Summary 拉取通知
// @Tags Notification
// @Produce json
// @Param unread_only query bool false "只看未读"
// @Success 200 {object} response.Response
// @Router /notifications [get]
func (h *NotificationHandler) Load(c *gin.Context) {
	e := h.engine(c)
	unreadOnly := c.Query("unread_only") == "true"

	items, err := e.Notifications.Load(c.Request.Context(), unreadOnly)
	if err != nil {
		failNotification(c, err)
		return
	}
	response.Success(c, gin.H{
		"page": utils.PageResult{
			List:    items,
			Page:    1,
			PerPage: service.PageSize,
			HasMore: e.Notifications.HasMore(),
		},
		"unread": e.Notifications.Unread(),
	})
}

// LoadMore 追加下一页
// @Summary 追加通知
// @Tags Notification
// @Produce json
// @Success 200 {object} response.Response
// @Router /notifications/more [post]
func (h *NotificationHandler) LoadMore(c *gin.Context) {
	e := h.engine(c)

	performed, err := e.Notifications.LoadMore(c.Request.Context())
	if err != nil {
		failNotification(c, err)
		return
	}
	response.Success(c, gin.H{
		"performed":     performed,
		"notifications": e.Notifications.Items(),
		"unread":        e.Notifications.Unread(),
		"has_more":      e.Notifications.HasMore(),
	})
}

// MarkRead 标记单条已读
// @Summary 标记已读
// @Tags Notification
// @Produce json
// @Param id path string true "通知ID"
// @Success 200 {object} response.Response
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	e := h.engine(c)

	if err := e.Notifications.MarkAsRead(c.Request.Context(), c.Param("id")); err != nil {
		failNotification(c, err)
		return
	}
	response.Success(c, gin.H{"unread": e.Notifications.Unread()})
}

// MarkAllRead 全部标记已读
// @Summary 全部已读
// @Tags Notification
// @Produce json
// @Success 200 {object} response.Response
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	e := h.engine(c)

	if err := e.Notifications.MarkAllAsRead(c.Request.Context()); err != nil {
		failNotification(c, err)
		return
	}
	response.Success(c, gin.H{"unread": e.Notifications.Unread()})
}

// Resolve 点击通知：给出跳转目标并顺手标已读
// @Summary 通知跳转目标
// @Tags Notification
// @Produce json
// @Param id path string true "通知ID"
// @Success 200 {object} response.Response
// @Router /notifications/{id}/target [get]
func (h *NotificationHandler) Resolve(c *gin.Context) {
	e := h.engine(c)

	target, err := e.Notifications.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		failNotification(c, err)
		return
	}
	response.Success(c, target)
}
