package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	composerservice "feed_gateway/internal/domain/composer/service"
	feedgateway "feed_gateway/internal/domain/feed/gateway"
	feedservice "feed_gateway/internal/domain/feed/service"
	mentiongateway "feed_gateway/internal/domain/mention/gateway"
	mentionservice "feed_gateway/internal/domain/mention/service"
	notifgateway "feed_gateway/internal/domain/notification/gateway"
	notifservice "feed_gateway/internal/domain/notification/service"
	"feed_gateway/internal/pkg/worker"
	"feed_gateway/pkg/logger"
	"feed_gateway/pkg/metrics"

	"go.uber.org/zap"
)

// Options 建会话引擎要用的参数
type Options struct {
	FeedPerPage  int
	PollInterval time.Duration
	IdleTTL      time.Duration
	Sweep        time.Duration
}

// Registry 以令牌哈希为键的会话表
// 引擎随第一个带令牌的请求出现，闲置过久被清扫协程回收
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Engine

	feedGW   feedgateway.FeedGateway
	notifGW  notifgateway.NotificationGateway
	searchGW mentiongateway.SearchGateway
	pool     *worker.UploadPool
	opts     Options
}

func NewRegistry(feedGW feedgateway.FeedGateway, notifGW notifgateway.NotificationGateway,
	searchGW mentiongateway.SearchGateway, pool *worker.UploadPool, opts Options) *Registry {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.Sweep <= 0 {
		opts.Sweep = time.Minute
	}
	return &Registry{
		sessions: make(map[string]*Engine),
		feedGW:   feedGW,
		notifGW:  notifGW,
		searchGW: searchGW,
		pool:     pool,
		opts:     opts,
	}
}

func sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

// GetOrCreate 取令牌对应的引擎，没有就建一个并拉起轮询
// 轮询挂在会话自己的生命周期上，不能跟着触发它的那个请求走
func (r *Registry) GetOrCreate(token string) *Engine {
	key := sessionKey(token)

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[key]; ok {
		e.Touch()
		return e
	}

	store := feedservice.NewStore(r.feedGW, token, r.opts.FeedPerPage)
	poller := feedservice.NewPoller(store, r.opts.PollInterval)
	resolver := mentionservice.NewResolver(r.searchGW, token, mentionservice.DefaultDebounce)
	composer := composerservice.NewWizard(store, r.pool, token)
	notifications := notifservice.NewFeed(r.notifGW, token)

	e := newEngine(store, poller, composer, resolver, notifications)
	poller.Start(context.Background())
	r.sessions[key] = e
	metrics.Default().SessionOpened()
	if logger.Log != nil {
		logger.Log.Info("session opened", zap.String("session", key))
	}
	return e
}

// Close 显式登出：停轮询、丢状态
func (r *Registry) Close(token string) bool {
	key := sessionKey(token)

	r.mu.Lock()
	e, ok := r.sessions[key]
	if ok {
		delete(r.sessions, key)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	e.close()
	metrics.Default().SessionClosed()
	if logger.Log != nil {
		logger.Log.Info("session closed", zap.String("session", key))
	}
	return true
}

// Len 活跃会话数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// StartSweeper 周期扫描闲置会话，ctx 结束时停下
func (r *Registry) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.opts.Sweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep()
			}
		}
	}()
}

// Shutdown 进程退出前停掉所有会话的轮询
func (r *Registry) Shutdown() {
	r.mu.Lock()
	engines := make([]*Engine, 0, len(r.sessions))
	for key, e := range r.sessions {
		engines = append(engines, e)
		delete(r.sessions, key)
	}
	r.mu.Unlock()

	for _, e := range engines {
		e.close()
		metrics.Default().SessionClosed()
	}
}

func (r *Registry) sweep() {
	deadline := time.Now().Add(-r.opts.IdleTTL)

	r.mu.Lock()
	var expired []*Engine
	for key, e := range r.sessions {
		if e.idleSince(deadline) {
			delete(r.sessions, key)
			expired = append(expired, e)
			if logger.Log != nil {
				logger.Log.Info("session evicted", zap.String("session", key))
			}
		}
	}
	r.mu.Unlock()

	for _, e := range expired {
		e.close()
		metrics.Default().SessionClosed()
	}
}
