package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"feed_gateway/internal/domain/composer/model"
	feedmodel "feed_gateway/internal/domain/feed/model"
	feedservice "feed_gateway/internal/domain/feed/service"
	"feed_gateway/internal/pkg/worker"
	"feed_gateway/internal/platform"
	"feed_gateway/pkg/logger"
	"feed_gateway/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Step 发帖向导的三个步骤，只能按顺序往前走
type Step string

const (
	StepContent  Step = "content"
	StepSettings Step = "settings"
	StepReview   Step = "review"
)

var (
	ErrComposerClosed     = errors.New("composer is not open")
	ErrContentRequired    = errors.New("add content or media")
	ErrPoolExceedsBalance = errors.New("reward pool exceeds balance")
	ErrNoFundedCoin    = errors.New("rewards require at least one funded coin")
	ErrCoinNotSelected = errors.New("select a reward coin before continuing")
	ErrPoolRequired    = errors.New("reward pool must be greater than zero")
	ErrMediaLimit      = errors.New("media limit reached")
	ErrBadVisibility   = errors.New("unknown visibility")
	ErrBadIndex        = errors.New("media index out of range")
	ErrNotReviewStep   = errors.New("submit is only available on the review step")
)

type uploadEntry struct {
	filename string
	percent  int
	err      string
}

// Wizard 三步发帖向导：内容 → 设置/打赏 → 预览
// 每一步的前进条件收敛成一个具名守卫，后退永远放行且不重新校验
type Wizard struct {
	mu    sync.Mutex
	store *feedservice.Store
	pool  *worker.UploadPool
	token string

	open       bool
	step       Step
	content    string
	visibility string
	media      []feedmodel.MediaItem
	uploads    map[string]*uploadEntry
	order      []string // 上传展示顺序

	rewardEnabled bool
	coinSymbol    string
	rewardPool    float64
	rewardRule    feedmodel.RewardRule

	// 钱包侧推过来的余额快照，0 当作"未知"
	balances map[string]float64
}

func NewWizard(store *feedservice.Store, pool *worker.UploadPool, token string) *Wizard {
	return &Wizard{
		store:    store,
		pool:     pool,
		token:    token,
		step:     StepContent,
		uploads:  make(map[string]*uploadEntry),
		balances: make(map[string]float64),
	}
}

// Open 打开向导，总是从一张白纸开始
func (w *Wizard) Open() model.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
	w.open = true
	return w.snapshotLocked()
}

// Cancel 任意一步取消：丢掉全部草稿，包括已经传完但没提交的媒体
func (w *Wizard) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
}

func (w *Wizard) resetLocked() {
	w.open = false
	w.step = StepContent
	w.content = ""
	w.visibility = feedmodel.VisibilityPublic
	w.media = nil
	w.uploads = make(map[string]*uploadEntry)
	w.order = nil
	w.rewardEnabled = false
	w.coinSymbol = ""
	w.rewardPool = 0
	w.rewardRule = feedmodel.RewardRule{}
}

// SetContent 编辑正文，任何步骤都允许（预览页只读由界面保证）
func (w *Wizard) SetContent(content string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return ErrComposerClosed
	}
	w.content = content
	return nil
}

func (w *Wizard) SetVisibility(visibility string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return ErrComposerClosed
	}
	switch visibility {
	case feedmodel.VisibilityPublic, feedmodel.VisibilityFollowers, feedmodel.VisibilityPrivate:
		w.visibility = visibility
		return nil
	default:
		return ErrBadVisibility
	}
}

// SetBalances 钱包模块推送余额快照，打赏守卫据此判断
func (w *Wizard) SetBalances(coins []model.WalletCoin) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances = make(map[string]float64, len(coins))
	for _, c := range coins {
		w.balances[c.Symbol] = c.Balance
	}
}

// EnableRewards 打开打赏开关要求钱包里至少有一种有余额的币
func (w *Wizard) EnableRewards(enabled bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return ErrComposerClosed
	}
	if !enabled {
		w.rewardEnabled = false
		return nil
	}
	funded := false
	for _, balance := range w.balances {
		if balance > 0 {
			funded = true
			break
		}
	}
	if !funded {
		return ErrNoFundedCoin
	}
	w.rewardEnabled = true
	return nil
}

func (w *Wizard) SelectCoin(symbol string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return ErrComposerClosed
	}
	w.coinSymbol = symbol
	return nil
}

func (w *Wizard) SetRewardPool(pool float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return ErrComposerClosed
	}
	w.rewardPool = pool
	return nil
}

func (w *Wizard) SetRewardRule(rule feedmodel.RewardRule) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return ErrComposerClosed
	}
	w.rewardRule = rule
	return nil
}

// AddUpload 把一个文件丢进上传池，立即返回合成的上传标识
// 并发上传互不等待，进度通过 Snapshot 观察
func (w *Wizard) AddUpload(filename, contentType string, data []byte) (string, error) {
	w.mu.Lock()
	if !w.open {
		w.mu.Unlock()
		return "", ErrComposerClosed
	}
	if len(w.media)+w.activeUploadsLocked() >= feedmodel.MaxMediaPerPost {
		w.mu.Unlock()
		return "", ErrMediaLimit
	}

	id := uuid.New().String()
	w.uploads[id] = &uploadEntry{filename: filename}
	w.order = append(w.order, id)
	w.mu.Unlock()

	w.pool.AddTask(worker.UploadTask{
		ID:          id,
		Token:       w.token,
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
		OnProgress:  w.onProgress,
		OnDone:      w.onDone,
	})
	return id, nil
}

func (w *Wizard) activeUploadsLocked() int {
	n := 0
	for _, u := range w.uploads {
		if u.err == "" {
			n++
		}
	}
	return n
}

func (w *Wizard) onProgress(id string, percent int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if u, ok := w.uploads[id]; ok {
		u.percent = percent
	}
}

// onDone 成功的上传从进度表挪进媒体列表，失败的留在原地带上错误文案
func (w *Wizard) onDone(id string, result *platform.UploadResult, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	u, ok := w.uploads[id]
	if !ok {
		// 取消之后才回来的结果，直接丢弃
		return
	}
	if err != nil {
		if logger.Log != nil {
			logger.Log.Warn("media upload failed",
				zap.String("upload_id", id), zap.Error(err))
		}
		u.err = uploadFailureMessage(err)
		return
	}

	delete(w.uploads, id)
	w.dropOrderLocked(id)
	w.media = append(w.media, feedmodel.MediaItem{
		ID:           id,
		Type:         result.Type,
		URL:          result.URL,
		ThumbnailURL: result.ThumbnailURL,
		Metadata:     result.Metadata,
	})
}

func uploadFailureMessage(err error) string {
	var apiErr *platform.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail()
	}
	return "upload failed, try again"
}

// DismissUpload 把一条失败记录从进度表里清掉
func (w *Wizard) DismissUpload(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if u, ok := w.uploads[id]; ok && u.err != "" {
		delete(w.uploads, id)
		w.dropOrderLocked(id)
	}
}

func (w *Wizard) dropOrderLocked(id string) {
	for i, v := range w.order {
		if v == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			return
		}
	}
}

// RemoveMedia 按下标移除已传完的媒体
func (w *Wizard) RemoveMedia(index int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return ErrComposerClosed
	}
	if index < 0 || index >= len(w.media) {
		return ErrBadIndex
	}
	w.media = append(w.media[:index], w.media[index+1:]...)
	return nil
}

// Next 步骤前移，条件写在每步的具名守卫里
func (w *Wizard) Next() (Step, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return w.step, ErrComposerClosed
	}

	switch w.step {
	case StepContent:
		if err := w.canLeaveContent(); err != nil {
			return w.step, err
		}
		w.step = StepSettings
	case StepSettings:
		if err := w.canLeaveSettings(); err != nil {
			return w.step, err
		}
		w.step = StepReview
	case StepReview:
		// 没有第四步
	}
	return w.step, nil
}

// Back 后退永远放行，不触发任何校验
func (w *Wizard) Back() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case StepReview:
		w.step = StepSettings
	case StepSettings:
		w.step = StepContent
	}
	return w.step
}

// canLeaveContent 有正文或至少一个传完的媒体才能离开第一步
// 还在传的文件不算数，传完自己会进媒体列表
func (w *Wizard) canLeaveContent() error {
	if w.content == "" && len(w.media) == 0 {
		return ErrContentRequired
	}
	return nil
}

// canLeaveSettings 打赏打开时要求选了币、设了奖池，
// 且奖池不超过该币的已知余额；余额 0 视为未知，不拦
func (w *Wizard) canLeaveSettings() error {
	if !w.rewardEnabled {
		return nil
	}
	if w.coinSymbol == "" {
		return ErrCoinNotSelected
	}
	if w.rewardPool <= 0 {
		return ErrPoolRequired
	}
	if balance := w.balances[w.coinSymbol]; balance > 0 && w.rewardPool > balance {
		return fmt.Errorf("%w: %s balance %g is short by %g",
			ErrPoolExceedsBalance, w.coinSymbol, balance, w.rewardPool-balance)
	}
	return nil
}

// Submit 预览页提交：走信息流的发帖通道，成功后整套状态归零并关闭
func (w *Wizard) Submit(ctx context.Context) (*feedmodel.Post, error) {
	w.mu.Lock()
	if !w.open {
		w.mu.Unlock()
		return nil, ErrComposerClosed
	}
	if w.step != StepReview {
		w.mu.Unlock()
		return nil, ErrNotReviewStep
	}

	draft := feedmodel.Draft{
		Content:    w.content,
		Visibility: w.visibility,
		Media:      append([]feedmodel.MediaItem(nil), w.media...),
	}
	if w.rewardEnabled {
		draft.RewardEnabled = true
		draft.RewardPool = w.rewardPool
		draft.RewardCoinSymbol = w.coinSymbol
		rule := w.rewardRule
		rule.TotalPool = w.rewardPool
		draft.RewardRule = &rule
	}
	w.mu.Unlock()

	post, err := w.store.CreatePost(ctx, draft)
	metrics.Default().CountOp("composer.submit", err)
	if err != nil {
		// 提交失败不动草稿，用户可以改了再试
		return nil, err
	}

	w.mu.Lock()
	w.resetLocked()
	w.mu.Unlock()
	return post, nil
}

// Snapshot 当前向导状态
func (w *Wizard) Snapshot() model.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

func (w *Wizard) snapshotLocked() model.Snapshot {
	uploads := make([]model.UploadState, 0, len(w.order))
	for _, id := range w.order {
		if u, ok := w.uploads[id]; ok {
			uploads = append(uploads, model.UploadState{
				ID:       id,
				Filename: u.filename,
				Percent:  u.percent,
				Error:    u.err,
			})
		}
	}
	return model.Snapshot{
		Open:             w.open,
		Step:             string(w.step),
		Content:          w.content,
		Visibility:       w.visibility,
		Media:            append([]feedmodel.MediaItem(nil), w.media...),
		Uploads:          uploads,
		RewardEnabled:    w.rewardEnabled,
		RewardCoinSymbol: w.coinSymbol,
		RewardPool:       w.rewardPool,
		RewardRule:       w.rewardRule,
	}
}
