package handler

import (
	"net/http"

	"feed_gateway/internal/domain/mention/service"
	sessionservice "feed_gateway/internal/domain/session/service"
	"feed_gateway/internal/pkg/middleware"
	"feed_gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// MentionHandler 提及补全处理器
type MentionHandler struct {
	sessions *sessionservice.Registry
}

func NewMentionHandler(sessions *sessionservice.Registry) *MentionHandler {
	return &MentionHandler{sessions: sessions}
}

func (h *MentionHandler) resolver(c *gin.Context) *service.Resolver {
	return h.sessions.GetOrCreate(middleware.GetToken(c)).Resolver
}

// InputState 输入框全文和光标
type InputState struct {
	Text  string `json:"text"`
	Caret int    `json:"caret"`
}

// SelectionInput 高亮移动方向
type SelectionInput struct {
	Delta int `json:"delta" binding:"required"`
}

// CommitInput 提交候选，username 为空时取当前高亮项
type CommitInput struct {
	Username string `json:"username"`
}

// Input 每次按键同步输入框状态，必要时触发防抖搜索
// @Summary 同步输入状态
// @Tags Mention
// @Accept json
// @Produce json
// @Param input body InputState true "全文和光标"
// @Success 200 {object} response.Response
// @Router /mention/input [post]
func (h *MentionHandler) Input(c *gin.Context) {
	var input InputState
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	response.Success(c, h.resolver(c).Input(input.Text, input.Caret))
}

// State 当前候选面板状态
// @Summary 候选面板状态
// @Tags Mention
// @Produce json
// @Success 200 {object} response.Response
// @Router /mention [get]
func (h *MentionHandler) State(c *gin.Context) {
	response.Success(c, h.resolver(c).Snapshot())
}

// MoveSelection 方向键移动高亮
// @Summary 移动高亮
// @Tags Mention
// @Accept json
// @Produce json
// @Param input body SelectionInput true "方向"
// @Success 200 {object} response.Response
// @Router /mention/selection [post]
func (h *MentionHandler) MoveSelection(c *gin.Context) {
	var input SelectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	response.Success(c, h.resolver(c).MoveSelection(input.Delta))
}

// Commit 提交候选，返回拼好的全文和新光标
// @Summary 提交候选
// @Tags Mention
// @Accept json
// @Produce json
// @Param input body CommitInput true "候选"
// @Success 200 {object} response.Response
// @Router /mention/commit [post]
func (h *MentionHandler) Commit(c *gin.Context) {
	var input CommitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	result, ok := h.resolver(c).Commit(input.Username)
	if !ok {
		response.Fail(c, response.ErrNoActiveMention, "no mention in progress")
		return
	}
	response.Success(c, result)
}

// Dismiss 收起候选面板，不动文本
// @Summary 收起候选
// @Tags Mention
// @Produce json
// @Success 200 {object} response.Response
// @Router /mention/dismiss [post]
func (h *MentionHandler) Dismiss(c *gin.Context) {
	h.resolver(c).Dismiss()
	response.Success(c, "dismissed")
}

// Render 把已发布文本切成普通/提及片段
// @Summary 提及分段
// @Tags Mention
// @Produce json
// @Param text query string true "文本"
// @Success 200 {object} response.Response
// @Router /mention/render [get]
func (h *MentionHandler) Render(c *gin.Context) {
	response.Success(c, gin.H{"segments": service.Parse(c.Query("text"))})
}
