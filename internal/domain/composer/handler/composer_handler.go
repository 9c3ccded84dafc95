package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"feed_gateway/internal/domain/composer/model"
	"feed_gateway/internal/domain/composer/service"
	feedmodel "feed_gateway/internal/domain/feed/model"
	sessionservice "feed_gateway/internal/domain/session/service"
	"feed_gateway/internal/pkg/config"
	"feed_gateway/internal/pkg/middleware"
	"feed_gateway/internal/platform"
	"feed_gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// ComposerHandler 发帖向导处理器
type ComposerHandler struct {
	sessions *sessionservice.Registry
}

func NewComposerHandler(sessions *sessionservice.Registry) *ComposerHandler {
	return &ComposerHandler{sessions: sessions}
}

func (h *ComposerHandler) wizard(c *gin.Context) *service.Wizard {
	return h.sessions.GetOrCreate(middleware.GetToken(c)).Composer
}

// ContentInput 正文
type ContentInput struct {
	Content string `json:"content"`
}

// VisibilityInput 可见范围
type VisibilityInput struct {
	Visibility string `json:"visibility" binding:"required"`
}

// BalancesInput 钱包余额快照
type BalancesInput struct {
	Coins []model.WalletCoin `json:"coins" binding:"required"`
}

// RewardToggleInput 打赏开关
type RewardToggleInput struct {
	Enabled bool `json:"enabled"`
}

// CoinInput 打赏币种
type CoinInput struct {
	Symbol string `json:"symbol" binding:"required"`
}

// PoolInput 奖池
type PoolInput struct {
	Pool float64 `json:"pool"`
}

// RuleInput 按互动类型的打赏规则
type RuleInput struct {
	LikeAmount    float64 `json:"likeAmount"`
	CommentAmount float64 `json:"commentAmount"`
	ShareAmount   float64 `json:"shareAmount"`
	PerUserCap    float64 `json:"perUserCap"`
}

// failComposer 向导侧错误到业务码
func failComposer(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrComposerClosed):
		response.Fail(c, response.ErrStepBlocked, "composer is not open")
	case errors.Is(err, service.ErrContentRequired),
		errors.Is(err, service.ErrPoolRequired),
		errors.Is(err, service.ErrNotReviewStep):
		response.Fail(c, response.ErrStepBlocked, err.Error())
	case errors.Is(err, service.ErrNoFundedCoin):
		response.Fail(c, response.ErrNoFundedCoin, err.Error())
	case errors.Is(err, service.ErrCoinNotSelected):
		response.Fail(c, response.ErrCoinNotSelected, err.Error())
	case errors.Is(err, service.ErrMediaLimit):
		response.Fail(c, response.ErrMediaLimit, err.Error())
	case errors.Is(err, service.ErrPoolExceedsBalance):
		response.Fail(c, response.ErrPoolExceedsFunds, err.Error())
	case errors.Is(err, service.ErrBadVisibility), errors.Is(err, service.ErrBadIndex):
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
	case errors.Is(err, platform.ErrUnavailable):
		response.Error(c, http.StatusBadGateway, response.ErrPlatformGateway, "platform unavailable")
	default:
		if apiErr := platform.AsAPIError(err); apiErr != nil {
			response.Fail(c, response.ErrUploadFailed, apiErr.Detail())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
	}
}

// Open 打开向导
// @Summary 打开发帖向导
// @Tags Composer
// @Produce json
// @Success 200 {object} response.Response
// @Router /composer/open [post]
func (h *ComposerHandler) Open(c *gin.Context) {
	response.Success(c, h.wizard(c).Open())
}

// Snapshot 当前向导状态
// @Summary 向导状态
// @Tags Composer
// @Produce json
// @Success 200 {object} response.Response
// @Router /composer [get]
func (h *ComposerHandler) Snapshot(c *gin.Context) {
	response.Success(c, h.wizard(c).Snapshot())
}

// Cancel 取消并丢弃全部草稿
// @Summary 取消发帖
// @Tags Composer
// @Produce json
// @Success 200 {object} response.Response
// @Router /composer/cancel [post]
func (h *ComposerHandler) Cancel(c *gin.Context) {
	h.wizard(c).Cancel()
	response.Success(c, "canceled")
}

// SetContent 编辑正文
// @Summary 编辑正文
// @Tags Composer
// @Accept json
// @Produce json
// @Param input body ContentInput true "正文"
// @Success 200 {object} response.Response
// @Router /composer/content [put]
func (h *ComposerHandler) SetContent(c *gin.Context) {
	var input ContentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	if err := h.wizard(c).SetContent(input.Content); err != nil {
		failComposer(c, err)
		return
	}
	response.Success(c, "saved")
}

// SetVisibility 选可见范围
// @Summary 选可见范围
// @Tags Composer
// @Accept json
// @Produce json
// @Param input body VisibilityInput true "可见范围"
// @Success 200 {object} response.Response
// @Router /composer/visibility [put]
func (h *ComposerHandler) SetVisibility(c *gin.Context) {
	var input VisibilityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	if err := h.wizard(c).SetVisibility(input.Visibility); err != nil {
		failComposer(c, err)
		return
	}
	response.Success(c, "saved")
}

// SetBalances 钱包模块推送余额
// @Summary 推送钱包余额
// @Tags Composer
// @Accept json
// @Produce json
// @Param input body BalancesInput true "余额快照"
// @Success 200 {object} response.Response
// @Router /composer/balances [put]
func (h *ComposerHandler) SetBalances(c *gin.Context) {
	var input BalancesInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	h.wizard(c).SetBalances(input.Coins)
	response.Success(c, "saved")
}

// ToggleRewards 打赏开关
// @Summary 打赏开关
// @Tags Composer
// @Accept json
// @Produce json
// @Param input body RewardToggleInput true "开关"
// @Success 200 {object} response.Response
// @Router /composer/rewards [put]
func (h *ComposerHandler) ToggleRewards(c *gin.Context) {
	var input RewardToggleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	if err := h.wizard(c).EnableRewards(input.Enabled); err != nil {
		failComposer(c, err)
		return
	}
	response.Success(c, "saved")
}

// SelectCoin 选打赏币种
// @Summary 选打赏币种
// @Tags Composer
// @Accept json
// @Produce json
// @Param input body CoinInput true "币种"
// @Success 200 {object} response.Response
// @Router /composer/rewards/coin [put]
func (h *ComposerHandler) SelectCoin(c *gin.Context) {
	var input CoinInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	if err := h.wizard(c).SelectCoin(input.Symbol); err != nil {
		failComposer(c, err)
		return
	}
	response.Success(c, "saved")
}

// SetPool 设奖池
// @Summary 设奖池
// @Tags Composer
// @Accept json
// @Produce json
// @Param input body PoolInput true "奖池"
// @Success 200 {object} response.Response
// @Router /composer/rewards/pool [put]
func (h *ComposerHandler) SetPool(c *gin.Context) {
	var input PoolInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	if err := h.wizard(c).SetRewardPool(input.Pool); err != nil {
		failComposer(c, err)
		return
	}
	response.Success(c, "saved")
}

// SetRule 设打赏规则
// @Summary 设打赏规则
// @Tags Composer
// @Accept json
// @Produce json
// @Param input body RuleInput true "规则"
// @Success 200 {object} response.Response
// @Router /composer/rewards/rule [put]
func (h *ComposerHandler) SetRule(c *gin.Context) {
	var input RuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	err := h.wizard(c).SetRewardRule(feedmodel.RewardRule{
		LikeAmount:    input.LikeAmount,
		CommentAmount: input.CommentAmount,
		ShareAmount:   input.ShareAmount,
		PerUserCap:    input.PerUserCap,
	})
	if err != nil {
		failComposer(c, err)
		return
	}
	response.Success(c, "saved")
}

// Upload 接收一个文件丢进上传池，立即返回上传标识
// @Summary 上传媒体
// @Tags Composer
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "媒体文件"
// @Success 200 {object} response.Response
// @Router /composer/media [post]
func (h *ComposerHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "file is required")
		return
	}
	if max := config.GlobalConfig.Upload.MaxFileSize; max > 0 && fileHeader.Size > max {
		response.Fail(c, response.ErrUploadFailed, "file exceeds the size limit")
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") && !strings.HasPrefix(contentType, "video/") {
		response.Fail(c, response.ErrUploadFailed, "only image and video files are accepted")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	id, err := h.wizard(c).AddUpload(fileHeader.Filename, contentType, data)
	if err != nil {
		failComposer(c, err)
		return
	}
	response.Success(c, gin.H{"upload_id": id})
}

// RemoveMedia 按下标移除已传完的媒体
// @Summary 移除媒体
// @Tags Composer
// @Produce json
// @Param index path int true "媒体下标"
// @Success 200 {object} response.Response
// @Router /composer/media/{index} [delete]
func (h *ComposerHandler) RemoveMedia(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "index must be a number")
		return
	}
	if err := h.wizard(c).RemoveMedia(index); err != nil {
		failComposer(c, err)
		return
	}
	response.Success(c, "removed")
}

// DismissUpload 清掉一条失败的上传记录
// @Summary 清除失败上传
// @Tags Composer
// @Produce json
// @Param id path string true "上传标识"
// @Success 200 {object} response.Response
// @Router /composer/uploads/{id} [delete]
func (h *ComposerHandler) DismissUpload(c *gin.Context) {
	h.wizard(c).DismissUpload(c.Param("id"))
	response.Success(c, "dismissed")
}

// Next 步骤前移
// @Summary 下一步
// @Tags Composer
// @Produce json
// @Success 200 {object} response.Response
// @Router /composer/next [post]
func (h *ComposerHandler) Next(c *gin.Context) {
	step, err := h.wizard(c).Next()
	if err != nil {
		failComposer(c, err)
		return
	}
	response.Success(c, gin.H{"step": step})
}

// Back 步骤后退，永远放行
// @Summary 上一步
// @Tags Composer
// @Produce json
// @Success 200 {object} response.Response
// @Router /composer/back [post]
func (h *ComposerHandler) Back(c *gin.Context) {
	response.Success(c, gin.H{"step": h.wizard(c).Back()})
}

// Submit 预览页提交
// @Summary 提交发帖
// @Tags Composer
// @Produce json
// @Success 200 {object} response.Response
// @Router /composer/submit [post]
func (h *ComposerHandler) Submit(c *gin.Context) {
	post, err := h.wizard(c).Submit(c.Request.Context())
	if err != nil {
		failComposer(c, err)
		return
	}
	response.Success(c, post)
}
