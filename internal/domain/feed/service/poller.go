package service

import (
	"context"
	"sync"
	"time"

	"feed_gateway/pkg/logger"
	"feed_gateway/pkg/metrics"

	"go.uber.org/zap"
)

// Poller 新帖轮询任务
// 显式绑定生命周期：随会话启动，会话关闭或调用 Stop 时结束，
// 避免裸 interval 在视图切换后泄漏
type Poller struct {
	store    *Store
	interval time.Duration

	cancel  context.CancelFunc
	stopped sync.Once
	done    chan struct{}
}

// NewPoller 创建轮询器，interval 通常为 30s
func NewPoller(store *Store, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		store:    store,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start 启动后台轮询，重复调用只生效一次
func (p *Poller) Start(parent context.Context) {
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.Default().PollerTick()
				// 第 1 页还没加载过就没有高水位，无从对比
				if p.store.HighWater() == "" {
					continue
				}
				if _, err := p.store.CheckNewPosts(ctx); err != nil {
					// 失败静默，下个周期自然重试
					if logger.Log != nil {
						logger.Log.Debug("poll tick failed", zap.Error(err))
					}
				}
			}
		}
	}()
}

// Stop 停止轮询并等待后台协程退出
func (p *Poller) Stop() {
	p.stopped.Do(func() {
		if p.cancel != nil {
			p.cancel()
			<-p.done
		}
	})
}
