package handler

import (
	"errors"
	"net/http"
	"strconv"

	"feed_gateway/internal/domain/feed/model"
	"feed_gateway/internal/domain/feed/service"
	sessionservice "feed_gateway/internal/domain/session/service"
	"feed_gateway/internal/pkg/middleware"
	"feed_gateway/internal/platform"
	"feed_gateway/pkg/mediagrid"
	"feed_gateway/pkg/response"
	"feed_gateway/pkg/utils"

	"github.com/gin-gonic/gin"
)

// FeedHandler 信息流处理器
type FeedHandler struct {
	sessions *sessionservice.Registry
}

func NewFeedHandler(sessions *sessionservice.Registry) *FeedHandler {
	return &FeedHandler{sessions: sessions}
}

func (h *FeedHandler) engine(c *gin.Context) *sessionservice.Engine {
	return h.sessions.GetOrCreate(middleware.GetToken(c))
}

// CommentInput 评论输入
type CommentInput struct {
	Content  string  `json:"content" binding:"required"`
	ParentID *string `json:"parentId"`
}

// ShareInput 转发输入
type ShareInput struct {
	Comment    string `json:"comment"`
	ToTimeline bool   `json:"toTimeline"`
}

// UpdateInput 编辑输入，零值字段不提交
type UpdateInput struct {
	Content    *string `json:"content"`
	Visibility *string `json:"visibility"`
}

// ReplyBoxInput 回复框定位
type ReplyBoxInput struct {
	CommentID string `json:"commentId" binding:"required"`
}

// DraftInput 回复草稿
type DraftInput struct {
	CommentID string `json:"commentId" binding:"required"`
	Text      string `json:"text"`
}

// failFeed 把信息流侧的错误翻译成业务码
func failFeed(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEntityBusy):
		response.Fail(c, response.ErrEntityBusy, "an action on this item is still running")
	case errors.Is(err, service.ErrLoadInFlight):
		response.Fail(c, response.ErrLoadInFlight, "a page load is already running")
	case errors.Is(err, service.ErrInvalidSort):
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "unknown sort")
	case errors.Is(err, service.ErrCommentNotFound):
		response.Fail(c, response.ErrCommentFailed, "comment not found")
	case errors.Is(err, service.ErrNoReplyBox):
		response.Fail(c, response.ErrCommentFailed, "no reply box is open")
	case errors.Is(err, service.ErrEmptyContent):
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "content is required")
	case errors.Is(err, platform.ErrUnavailable):
		response.Error(c, http.StatusBadGateway, response.ErrPlatformGateway, "platform unavailable")
	default:
		if apiErr := platform.AsAPIError(err); apiErr != nil {
			response.Fail(c, response.ErrPostNotFound, apiErr.Detail())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
	}
}

// Load 拉取信息流第一页
// @Summary 拉取信息流
// @Tags Feed
// @Produce json
// @Param sort query string false "newest 或 popular"
// @Success 200 {object} response.Response
// @Router /feed [get]
func (h *FeedHandler) Load(c *gin.Context) {
	sort := c.DefaultQuery("sort", service.SortNewest)
	e := h.engine(c)

	posts, err := e.Feed.LoadFeed(c.Request.Context(), 1, sort)
	if err != nil {
		failFeed(c, err)
		return
	}
	response.Success(c, pageOf(posts, e))
}

func pageOf(posts interface{}, e *sessionservice.Engine) utils.PageResult {
	result := utils.PageResult{List: posts, HasMore: e.Feed.HasMore()}
	if cursor := e.Feed.Cursor(); cursor != nil {
		result.Total = cursor.Total
		result.Page = cursor.CurrentPage
		result.PerPage = cursor.PerPage
	}
	return result
}

// LoadMore 追加下一页
// @Summary 追加下一页
// @Tags Feed
// @Produce json
// @Success 200 {object} response.Response
// @Router /feed/more [post]
func (h *FeedHandler) LoadMore(c *gin.Context) {
	e := h.engine(c)

	performed, err := e.Feed.LoadMore(c.Request.Context())
	if err != nil {
		failFeed(c, err)
		return
	}
	result := pageOf(e.Feed.Posts(), e)
	response.Success(c, gin.H{"performed": performed, "page": result})
}

// NewCount 查询高水位之后的新帖数量，不动列表
// @Summary 新帖数量
// @Tags Feed
// @Produce json
// @Success 200 {object} response.Response
// @Router /feed/new-count [get]
func (h *FeedHandler) NewCount(c *gin.Context) {
	e := h.engine(c)

	count, err := e.Feed.CheckNewPosts(c.Request.Context())
	if err != nil {
		failFeed(c, err)
		return
	}
	response.Success(c, gin.H{"count": count, "has_new_posts": count > 0})
}

// LoadNewPosts 用户点了"N 条新帖"，重载第一页并清零计数
// @Summary 载入新帖
// @Tags Feed
// @Produce json
// @Success 200 {object} response.Response
// @Router /feed/new-posts [post]
func (h *FeedHandler) LoadNewPosts(c *gin.Context) {
	e := h.engine(c)

	posts, err := e.Feed.LoadNewPosts(c.Request.Context())
	if err != nil {
		failFeed(c, err)
		return
	}
	response.Success(c, gin.H{"posts": posts})
}

// GetPost 深链单帖，不要求帖子已在列表里
// @Summary 单帖详情
// @Tags Feed
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Router /feed/posts/{id} [get]
func (h *FeedHandler) GetPost(c *gin.Context) {
	e := h.engine(c)

	post, err := e.Feed.LoadPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFeed(c, err)
		return
	}
	response.Success(c, post)
}

// ToggleLike 点赞/取消赞，以服务端返回为准
// @Summary 点赞切换
// @Tags Feed
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Router /feed/posts/{id}/like [post]
func (h *FeedHandler) ToggleLike(c *gin.Context) {
	e := h.engine(c)

	result, err := e.Feed.ToggleLike(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFeed(c, err)
		return
	}
	response.Success(c, result)
}

// Share 转发
// @Summary 转发帖子
// @Tags Feed
// @Accept json
// @Produce json
// @Param id path string true "帖子ID"
// @Param input body ShareInput true "转发参数"
// @Success 200 {object} response.Response
// @Router /feed/posts/{id}/share [post]
func (h *FeedHandler) Share(c *gin.Context) {
	var input ShareInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	e := h.engine(c)

	result, err := e.Feed.SharePost(c.Request.Context(), c.Param("id"), input.Comment, input.ToTimeline)
	if err != nil {
		failFeed(c, err)
		return
	}
	response.Success(c, result)
}

// Update 编辑帖子，确认后才改本地列表
// @Summary 编辑帖子
// @Tags Feed
// @Accept json
// @Produce json
// @Param id path string true "帖子ID"
// @Param input body UpdateInput true "编辑内容"
// @Success 200 {object} response.Response
// @Router /feed/posts/{id} [put]
func (h *FeedHandler) Update(c *gin.Context) {
	var input UpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	e := h.engine(c)

	post, err := e.Feed.UpdatePost(c.Request.Context(), c.Param("id"),
		toPostUpdate(input))
	if err != nil {
		failFeed(c, err)
		return
	}
	response.Success(c, post)
}

func toPostUpdate(input UpdateInput) model.PostUpdate {
	return model.PostUpdate{Content: input.Content, Visibility: input.Visibility}
}

// MediaLayout 按展示数量算九宫格布局，超出 4 张给角标
// @Summary 媒体布局
// @Tags Feed
// @Produce json
// @Param count query int true "媒体数量"
// @Success 200 {object} response.Response
// @Router /feed/media-layout [get]
func (h *FeedHandler) MediaLayout(c *gin.Context) {
	count, err := strconv.Atoi(c.DefaultQuery("count", "0"))
	if err != nil || count < 0 {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "count must be a non-negative number")
		return
	}
	layout := mediagrid.Compute(count)
	response.Success(c, gin.H{"layout": layout, "badge": layout.Badge()})
}

// Delete 删除帖子
// @Summary 删除帖子
// @Tags Feed
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Router /feed/posts/{id} [delete]
func (h *FeedHandler) Delete(c *gin.Context) {
	e := h.engine(c)

	if err := e.Feed.DeletePost(c.Request.Context(), c.Param("id")); err != nil {
		failFeed(c, err)
		return
	}
	response.Success(c, "deleted")
}
