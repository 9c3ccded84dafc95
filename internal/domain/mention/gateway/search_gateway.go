package gateway

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"feed_gateway/internal/domain/mention/model"
	"feed_gateway/internal/platform"
	"feed_gateway/pkg/cache"
	"feed_gateway/pkg/metrics"
)

// SearchGateway 用户搜索接口
type SearchGateway interface {
	SearchUsers(ctx context.Context, token, query string, limit int) ([]model.MentionUser, error)
}

type searchGateway struct {
	client *platform.Client
	cache  cache.CacheService
	ttl    time.Duration
}

// NewSearchGateway 创建提及搜索网关
// 搜索结果不区分观看者，可以跨会话短暂缓存，抵消逐键触发的查询量
func NewSearchGateway(client *platform.Client, c cache.CacheService, ttl time.Duration) SearchGateway {
	return &searchGateway{client: client, cache: c, ttl: ttl}
}

func (g *searchGateway) SearchUsers(ctx context.Context, token, query string, limit int) ([]model.MentionUser, error) {
	if limit <= 0 {
		limit = 8
	}
	key := "mention:" + strconv.Itoa(limit) + ":" + query

	var cached []model.MentionUser
	if err := g.cache.Get(ctx, key, &cached); err == nil {
		metrics.Default().CacheHit("mention")
		return cached, nil
	}
	metrics.Default().CacheMiss("mention")

	q := url.Values{
		"q":     {query},
		"limit": {strconv.Itoa(limit)},
	}
	var users []model.MentionUser
	if _, err := g.client.Get(ctx, token, "/feed/users/search", q, &users); err != nil {
		return nil, err
	}

	_ = g.cache.Set(ctx, key, users, g.ttl)
	return users, nil
}
