package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"feed_gateway/internal/domain/notification/gateway"
	"feed_gateway/internal/domain/notification/model"
	"feed_gateway/internal/platform"
	"feed_gateway/pkg/logger"
	"feed_gateway/pkg/metrics"

	"go.uber.org/zap"
)

// PageSize 通知每页固定 12 条
const PageSize = 12

var (
	ErrNotFound     = errors.New("notification not found")
	ErrLoadInFlight = errors.New("a page load is already running")
	ErrNoTarget     = errors.New("notification does not reference a post")
)

// Feed 通知列表
// 已读翻转先改本地再发请求，失败时回滚补偿
type Feed struct {
	mu      sync.Mutex
	gw      gateway.NotificationGateway
	token   string
	items   []model.Notification
	cursor  *platform.Meta
	unread  int
	loading bool
}

func NewFeed(gw gateway.NotificationGateway, token string) *Feed {
	return &Feed{gw: gw, token: token}
}

// Load 拉第一页，整表替换
func (f *Feed) Load(ctx context.Context, unreadOnly bool) ([]model.Notification, error) {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return nil, ErrLoadInFlight
	}
	f.loading = true
	f.mu.Unlock()

	items, meta, err := f.gw.FetchNotifications(ctx, f.token, 1, PageSize, unreadOnly)
	metrics.Default().CountOp("notification.load", err)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	if err != nil {
		return nil, err
	}
	f.items = items
	f.cursor = meta
	if meta != nil {
		f.unread = meta.UnreadCount
	}
	return f.itemsLocked(), nil
}

// LoadMore 追加下一页，最后一页之后是空操作
func (f *Feed) LoadMore(ctx context.Context) (performed bool, err error) {
	f.mu.Lock()
	if f.loading || f.cursor == nil || !f.cursor.HasMore() {
		f.mu.Unlock()
		return false, nil
	}
	f.loading = true
	next := f.cursor.CurrentPage + 1
	f.mu.Unlock()

	items, meta, err := f.gw.FetchNotifications(ctx, f.token, next, PageSize, false)
	metrics.Default().CountOp("notification.load_more", err)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	if err != nil {
		return false, err
	}
	f.items = append(f.items, items...)
	f.cursor = meta
	if meta != nil {
		f.unread = meta.UnreadCount
	}
	return true, nil
}

// MarkAsRead 乐观翻转：本地先置已读、未读数先减，请求失败再倒回去
func (f *Feed) MarkAsRead(ctx context.Context, id string) error {
	f.mu.Lock()
	idx := f.indexLocked(id)
	if idx < 0 {
		f.mu.Unlock()
		return ErrNotFound
	}
	if f.items[idx].ReadAt != nil {
		f.mu.Unlock()
		return nil
	}
	now := time.Now()
	f.items[idx].ReadAt = &now
	decremented := f.unread > 0
	if decremented {
		f.unread--
	}
	f.mu.Unlock()

	err := f.gw.MarkRead(ctx, f.token, id)
	metrics.Default().CountOp("notification.mark_read", err)
	if err == nil {
		return nil
	}

	// 补偿回滚
	f.mu.Lock()
	if idx := f.indexLocked(id); idx >= 0 {
		f.items[idx].ReadAt = nil
		if decremented {
			f.unread++
		}
	}
	f.mu.Unlock()
	if logger.Log != nil {
		logger.Log.Warn("mark-as-read rolled back",
			zap.String("notification_id", id), zap.Error(err))
	}
	return err
}

// MarkAllAsRead 对每条未读做同样的乐观翻转，失败整批恢复原样
func (f *Feed) MarkAllAsRead(ctx context.Context) error {
	f.mu.Lock()
	now := time.Now()
	flipped := make([]string, 0, len(f.items))
	for i := range f.items {
		if f.items[i].ReadAt == nil {
			f.items[i].ReadAt = &now
			flipped = append(flipped, f.items[i].ID)
		}
	}
	prevUnread := f.unread
	f.unread = 0
	f.mu.Unlock()

	err := f.gw.MarkAllRead(ctx, f.token)
	metrics.Default().CountOp("notification.mark_all_read", err)
	if err == nil {
		return nil
	}

	f.mu.Lock()
	for _, id := range flipped {
		if idx := f.indexLocked(id); idx >= 0 {
			f.items[idx].ReadAt = nil
		}
	}
	f.unread = prevUnread
	f.mu.Unlock()
	if logger.Log != nil {
		logger.Log.Warn("mark-all-as-read rolled back", zap.Error(err))
	}
	return err
}

// Resolve 点击通知：给出跳转目标，顺手把未读的标成已读
// 标已读失败不拦跳转，下次打开列表自然更正
func (f *Feed) Resolve(ctx context.Context, id string) (*model.Target, error) {
	f.mu.Lock()
	idx := f.indexLocked(id)
	if idx < 0 {
		f.mu.Unlock()
		return nil, ErrNotFound
	}
	n := f.items[idx]
	f.mu.Unlock()

	if n.Data.PostID == "" {
		return nil, ErrNoTarget
	}
	if n.ReadAt == nil {
		if err := f.MarkAsRead(ctx, id); err != nil && logger.Log != nil {
			logger.Log.Debug("deep-link mark-as-read failed",
				zap.String("notification_id", id), zap.Error(err))
		}
	}
	return &model.Target{PostID: n.Data.PostID, CommentID: n.Data.CommentID}, nil
}

// Items 当前列表的副本
func (f *Feed) Items() []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.itemsLocked()
}

// Unread 未读数
func (f *Feed) Unread() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread
}

// HasMore 是否还有下一页
func (f *Feed) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursor != nil && f.cursor.HasMore()
}

func (f *Feed) itemsLocked() []model.Notification {
	out := make([]model.Notification, len(f.items))
	copy(out, f.items)
	return out
}

func (f *Feed) indexLocked(id string) int {
	for i := range f.items {
		if f.items[i].ID == id {
			return i
		}
	}
	return -1
}
