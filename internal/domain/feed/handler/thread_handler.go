package handler

import (
	"net/http"

	sessionservice "feed_gateway/internal/domain/session/service"
	"feed_gateway/internal/pkg/middleware"
	"feed_gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// ThreadHandler 评论线程处理器
// 线程状态按帖子挂在会话引擎上，同一个帖子反复打开复用同一份
type ThreadHandler struct {
	sessions *sessionservice.Registry
}

func NewThreadHandler(sessions *sessionservice.Registry) *ThreadHandler {
	return &ThreadHandler{sessions: sessions}
}

func (h *ThreadHandler) engine(c *gin.Context) *sessionservice.Engine {
	return h.sessions.GetOrCreate(middleware.GetToken(c))
}

// Open 打开帖子的评论线程
// @Summary 打开评论线程
// @Tags Thread
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Router /feed/posts/{id}/thread [get]
func (h *ThreadHandler) Open(c *gin.Context) {
	e := h.engine(c)

	t, err := e.Thread(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFeed(c, err)
		return
	}
	response.Success(c, gin.H{
		"comments":    t.Comments(),
		"replying_to": t.ReplyingTo(),
	})
}

// Close 帖子详情关掉后释放线程
// @Summary 关闭评论线程
// @Tags Thread
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Router /feed/posts/{id}/thread [delete]
func (h *ThreadHandler) Close(c *gin.Context) {
	h.engine(c).DropThread(c.Param("id"))
	response.Success(c, "closed")
}

// AddComment 发一级评论
// @Summary 发表评论
// @Tags Thread
// @Accept json
// @Produce json
// @Param id path string true "帖子ID"
// @Param input body CommentInput true "评论内容"
// @Success 200 {object} response.Response
// @Router /feed/posts/{id}/thread/comments [post]
func (h *ThreadHandler) AddComment(c *gin.Context) {
	var input CommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	e := h.engine(c)

	t, err := e.Thread(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFeed(c, err)
		return
	}
	comment, err := t.AddComment(c.Request.Context(), input.Content)
	if err != nil {
		failFeed(c, err)
		return
	}
	response.Success(c, comment)
}

// OpenReplyBox 把唯一的回复框挪到某条评论下
// @Summary 打开回复框
// @Tags Thread
// @Accept json
// @Produce json
// @Param id path string true "帖子ID"
// @Param input body ReplyBoxInput true "评论定位"
// @Success 200 {object} response.Response
// @Router /feed/posts/{id}/thread/reply-box [post]
func (h *ThreadHandler) OpenReplyBox(c *gin.Context) {
	var input ReplyBoxInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	e := h.engine(c)

	t, err := e.Thread(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFeed(c, err)
		return
	}
	if err := t.OpenReplyBox(input.CommentID); err != nil {
		failFeed(c, err)
		return
	}
	response.Success(c, gin.H{"replying_to": t.ReplyingTo()})
}

// CloseReplyBox 收起回复框
// @Summary 收起回复框
// @Tags Thread
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Router /feed/posts/{id}/thread/reply-box [delete]
func (h *ThreadHandler) CloseReplyBox(c *gin.Context) {
	e := h.engine(c)

	t, err := e.Thread(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFeed(c, err)
		return
	}
	t.CloseReplyBox()
	response.Success(c, "closed")
}

// SetDraft 存回复草稿
// @Summary 保存回复草稿
// @Tags Thread
// @Accept json
// @Produce json
// @Param id path string true "帖子ID"
// @Param input body DraftInput true "草稿"
// @Success 200 {object} response.Response
// @Router /feed/posts/{id}/thread/draft [put]
func (h *ThreadHandler) SetDraft(c *gin.Context) {
	var input DraftInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	e := h.engine(c)

	t, err := e.Thread(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFeed(c, err)
		return
	}
	t.SetDraft(input.CommentID, input.Text)
	response.Success(c, "saved")
}

// SubmitReply 提交当前回复框里的草稿
// @Summary 提交回复
// @Tags Thread
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response
// @Router /feed/posts/{id}/thread/replies [post]
func (h *ThreadHandler) SubmitReply(c *gin.Context) {
	e := h.engine(c)

	t, err := e.Thread(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFeed(c, err)
		return
	}
	reply, err := t.SubmitReply(c.Request.Context())
	if err != nil {
		failFeed(c, err)
		return
	}
	response.Success(c, reply)
}

// LikeComment 给评论或回复点赞，两层位置都找
// @Summary 评论点赞切换
// @Tags Thread
// @Produce json
// @Param id path string true "帖子ID"
// @Param commentId path string true "评论ID"
// @Success 200 {object} response.Response
// @Router /feed/posts/{id}/thread/comments/{commentId}/like [post]
func (h *ThreadHandler) LikeComment(c *gin.Context) {
	e := h.engine(c)

	t, err := e.Thread(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFeed(c, err)
		return
	}
	result, err := t.ToggleCommentLike(c.Request.Context(), c.Param("commentId"))
	if err != nil {
		failFeed(c, err)
		return
	}
	response.Success(c, result)
}
