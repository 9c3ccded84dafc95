package service

import (
	"context"
	"sync"
	"time"
	"unicode"

	"feed_gateway/internal/domain/mention/gateway"
	"feed_gateway/internal/domain/mention/model"
	"feed_gateway/pkg/logger"

	"go.uber.org/zap"
)

// DefaultDebounce 键入到触发远端搜索的防抖间隔
const DefaultDebounce = 300 * time.Millisecond

// suggestionLimit 每次搜索返回的候选上限
const suggestionLimit = 8

// State 提及解析器对外快照
type State struct {
	Active      bool                `json:"active"`
	Query       string              `json:"query"`
	Suggestions []model.MentionUser `json:"suggestions"`
	Selected    int                 `json:"selected"`
}

// CommitResult 提交候选后的文本与光标
type CommitResult struct {
	Text  string `json:"text"`
	Caret int    `json:"caret"`
}

// Resolver 输入期的 @ 提及解析器
//
// 任意支持打标的输入框共用同一套逻辑：从光标往回找最近的 @，
// 中间出现空白即视为没有进行中的提及；查询长度 ≥ 1 才触发
// 防抖搜索，且只保留最后一次防抖调用的结果（cancel-and-replace）。
// 光标位置按 rune 计
type Resolver struct {
	mu sync.Mutex
	gw gateway.SearchGateway

	token    string
	debounce time.Duration

	text  []rune
	caret int
	start int // '@' 的下标
	end   int // 进行中 token 的结束边界（不含）

	active      bool
	query       string
	suggestions []model.MentionUser
	selected    int

	timer *time.Timer
	seq   int // 防抖代号，新输入使旧结果作废
}

// NewResolver 创建解析器，debounce <= 0 时用默认 300ms
func NewResolver(gw gateway.SearchGateway, token string, debounce time.Duration) *Resolver {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Resolver{gw: gw, token: token, debounce: debounce}
}

// Input 输入框每次变化（文本或光标）都要喂给解析器
func (r *Resolver) Input(text string, caret int) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.text = []rune(text)
	if caret < 0 {
		caret = 0
	}
	if caret > len(r.text) {
		caret = len(r.text)
	}
	r.caret = caret

	start, ok := r.detectLocked()
	if !ok {
		r.dismissLocked()
		return r.stateLocked()
	}

	r.active = true
	r.start = start
	r.end = r.tokenEndLocked()
	newQuery := string(r.text[start+1 : caret])

	if newQuery == r.query && r.suggestions != nil {
		// 光标移动但查询没变，沿用现有候选
		return r.stateLocked()
	}
	r.query = newQuery
	r.suggestions = nil
	r.selected = 0

	if len(newQuery) >= 1 {
		r.scheduleSearchLocked(newQuery)
	} else {
		// 只打了 @，还没有查询词
		r.seq++
		if r.timer != nil {
			r.timer.Stop()
		}
	}
	return r.stateLocked()
}

// detectLocked 从光标往回找最近的 @
// 中间撞到空白/换行说明光标不在提及 token 里
func (r *Resolver) detectLocked() (int, bool) {
	for i := r.caret - 1; i >= 0; i-- {
		c := r.text[i]
		if c == '@' {
			return i, true
		}
		if unicode.IsSpace(c) {
			return 0, false
		}
	}
	return 0, false
}

// tokenEndLocked 从光标向后扫到下一个空白/换行/文本结尾
func (r *Resolver) tokenEndLocked() int {
	i := r.caret
	for i < len(r.text) && !unicode.IsSpace(r.text[i]) {
		i++
	}
	return i
}

// scheduleSearchLocked 重置防抖定时器，到点后发起远端搜索
func (r *Resolver) scheduleSearchLocked(query string) {
	r.seq++
	mySeq := r.seq

	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		users, err := r.gw.SearchUsers(ctx, r.token, query, suggestionLimit)
		if err != nil {
			// 搜索失败只是没有候选，不打扰输入
			if logger.Log != nil {
				logger.Log.Debug("mention search failed", zap.String("query", query), zap.Error(err))
			}
			return
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		// 已有更新的输入，丢弃本次结果
		if r.seq != mySeq || !r.active {
			return
		}
		r.suggestions = users
		r.selected = 0
	})
}

// MoveSelection 方向键移动高亮，截断不回绕
func (r *Resolver) MoveSelection(delta int) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.suggestions) > 0 {
		r.selected += delta
		if r.selected < 0 {
			r.selected = 0
		}
		if r.selected > len(r.suggestions)-1 {
			r.selected = len(r.suggestions) - 1
		}
	}
	return r.stateLocked()
}

// Commit 提交候选（回车取高亮项，点击带 username）
// 把 "@username " 拼接到检测出的边界上：替换到进行中 token 的
// 结尾为止，光标落在尾部空格之后
func (r *Resolver) Commit(username string) (CommitResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return CommitResult{}, false
	}
	if username == "" {
		if len(r.suggestions) == 0 {
			return CommitResult{}, false
		}
		username = r.suggestions[r.selected].Username
	}

	inserted := "@" + username + " "
	before := r.text[:r.start]
	after := r.text[r.end:]

	newText := make([]rune, 0, len(before)+len([]rune(inserted))+len(after))
	newText = append(newText, before...)
	newText = append(newText, []rune(inserted)...)
	newText = append(newText, after...)

	caret := len(before) + len([]rune(inserted))

	r.dismissLocked()
	r.text = newText
	r.caret = caret

	return CommitResult{Text: string(newText), Caret: caret}, true
}

// Dismiss Escape 或点击面板和输入框以外区域：收起候选，不动文本
func (r *Resolver) Dismiss() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dismissLocked()
}

// Snapshot 当前状态
func (r *Resolver) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

func (r *Resolver) dismissLocked() {
	r.active = false
	r.query = ""
	r.suggestions = nil
	r.selected = 0
	r.seq++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Resolver) stateLocked() State {
	suggestions := make([]model.MentionUser, len(r.suggestions))
	copy(suggestions, r.suggestions)
	return State{
		Active:      r.active,
		Query:       r.query,
		Suggestions: suggestions,
		Selected:    r.selected,
	}
}
