package service

import (
	"context"
	"sync"
	"time"

	composerservice "feed_gateway/internal/domain/composer/service"
	feedservice "feed_gateway/internal/domain/feed/service"
	mentionservice "feed_gateway/internal/domain/mention/service"
	notifservice "feed_gateway/internal/domain/notification/service"
)

// Engine 一个界面会话对应的全套交互状态
// 信息流、发帖向导、提及补全、通知列表各一份，评论线程按帖子懒建
type Engine struct {
	Feed          *feedservice.Store
	Poller        *feedservice.Poller
	Composer      *composerservice.Wizard
	Resolver      *mentionservice.Resolver
	Notifications *notifservice.Feed

	mu       sync.Mutex
	threads  map[string]*feedservice.Thread
	lastSeen time.Time
}

func newEngine(feed *feedservice.Store, poller *feedservice.Poller,
	composer *composerservice.Wizard, resolver *mentionservice.Resolver,
	notifications *notifservice.Feed) *Engine {
	return &Engine{
		Feed:          feed,
		Poller:        poller,
		Composer:      composer,
		Resolver:      resolver,
		Notifications: notifications,
		threads:       make(map[string]*feedservice.Thread),
		lastSeen:      time.Now(),
	}
}

// Thread 拿某个帖子的评论线程，第一次访问时加载
func (e *Engine) Thread(ctx context.Context, postID string) (*feedservice.Thread, error) {
	e.mu.Lock()
	if t, ok := e.threads[postID]; ok {
		e.mu.Unlock()
		return t, nil
	}
	e.mu.Unlock()

	t, err := feedservice.NewThread(ctx, e.Feed, postID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// 并发首访以先放进去的为准
	if existing, ok := e.threads[postID]; ok {
		return existing, nil
	}
	e.threads[postID] = t
	return t, nil
}

// DropThread 帖子详情关闭后释放线程状态
func (e *Engine) DropThread(postID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.threads, postID)
}

// Touch 每次请求续一下活跃时间
func (e *Engine) Touch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSeen = time.Now()
}

func (e *Engine) idleSince(deadline time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSeen.Before(deadline)
}

// close 停掉轮询任务，丢弃全部草稿和线程
func (e *Engine) close() {
	e.Poller.Stop()
	e.Resolver.Dismiss()
	e.Composer.Cancel()
	e.mu.Lock()
	e.threads = make(map[string]*feedservice.Thread)
	e.mu.Unlock()
}
