package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"feed_gateway/internal/domain/feed/model"
	"feed_gateway/internal/platform"
	"feed_gateway/pkg/cache"
	"feed_gateway/pkg/metrics"
)

// FeedGateway 平台信息流接口
type FeedGateway interface {
	FetchFeed(ctx context.Context, token, sort string, page, perPage int) ([]model.Post, *platform.Meta, error)
	NewPostCount(ctx context.Context, token, afterID string) (*model.NewPostCheck, error)
	CreatePost(ctx context.Context, token string, draft model.Draft) (*model.Post, error)
	UpdatePost(ctx context.Context, token, id string, update model.PostUpdate) (*model.Post, error)
	DeletePost(ctx context.Context, token, id string) error
	LikePost(ctx context.Context, token, id string) (*model.LikeResult, error)
	AddComment(ctx context.Context, token, postID, content string, parentID *string) (*model.Comment, error)
	LikeComment(ctx context.Context, token, postID, commentID string) (*model.LikeResult, error)
	SharePost(ctx context.Context, token, postID, comment string, toTimeline bool) (*model.ShareResult, error)
	FetchPost(ctx context.Context, token, id string) (*model.Post, error)
	FetchComments(ctx context.Context, token, postID string) ([]model.Comment, error)
}

type feedGateway struct {
	client   *platform.Client
	cache    cache.CacheService
	cacheTTL time.Duration
}

// NewFeedGateway 创建信息流网关
// feed 页做秒级缓存，减轻滚动场景下对平台的重复拉取；写操作全部直连
func NewFeedGateway(client *platform.Client, c cache.CacheService, cacheTTL time.Duration) FeedGateway {
	return &feedGateway{client: client, cache: c, cacheTTL: cacheTTL}
}

// cachedFeedPage feed 页缓存条目，分页元信息要跟数据一起存
type cachedFeedPage struct {
	Posts []model.Post   `json:"posts"`
	Meta  *platform.Meta `json:"meta"`
}

func (g *feedGateway) FetchFeed(ctx context.Context, token, sort string, page, perPage int) ([]model.Post, *platform.Meta, error) {
	// is_liked 是按观看者算的，缓存键必须带上调用方
	key := fmt.Sprintf("feed:%s:%s:%d:%d", tokenHash(token), sort, page, perPage)

	var cached cachedFeedPage
	if err := g.cache.Get(ctx, key, &cached); err == nil {
		metrics.Default().CacheHit("feed")
		return cached.Posts, cached.Meta, nil
	}
	metrics.Default().CacheMiss("feed")

	q := url.Values{
		"sort":     {sort},
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
	var posts []model.Post
	meta, err := g.client.Get(ctx, token, "/feed", q, &posts)
	if err != nil {
		return nil, nil, err
	}

	_ = g.cache.Set(ctx, key, cachedFeedPage{Posts: posts, Meta: meta}, g.cacheTTL)
	return posts, meta, nil
}

func (g *feedGateway) NewPostCount(ctx context.Context, token, afterID string) (*model.NewPostCheck, error) {
	q := url.Values{"after": {afterID}}
	var check model.NewPostCheck
	if _, err := g.client.Get(ctx, token, "/feed/new-count", q, &check); err != nil {
		return nil, err
	}
	return &check, nil
}

func (g *feedGateway) CreatePost(ctx context.Context, token string, draft model.Draft) (*model.Post, error) {
	var post model.Post
	if _, err := g.client.Post(ctx, token, "/feed/posts", draft, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (g *feedGateway) UpdatePost(ctx context.Context, token, id string, update model.PostUpdate) (*model.Post, error) {
	var post model.Post
	if _, err := g.client.Put(ctx, token, "/feed/posts/"+id, update, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (g *feedGateway) DeletePost(ctx context.Context, token, id string) error {
	return g.client.Delete(ctx, token, "/feed/posts/"+id)
}

func (g *feedGateway) LikePost(ctx context.Context, token, id string) (*model.LikeResult, error) {
	var result model.LikeResult
	if _, err := g.client.Post(ctx, token, "/feed/posts/"+id+"/like", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (g *feedGateway) AddComment(ctx context.Context, token, postID, content string, parentID *string) (*model.Comment, error) {
	body := map[string]interface{}{"content": content}
	if parentID != nil {
		body["parent_id"] = *parentID
	}
	var comment model.Comment
	if _, err := g.client.Post(ctx, token, "/feed/posts/"+postID+"/comment", body, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (g *feedGateway) LikeComment(ctx context.Context, token, postID, commentID string) (*model.LikeResult, error) {
	var result model.LikeResult
	path := "/feed/posts/" + postID + "/comments/" + commentID + "/like"
	if _, err := g.client.Post(ctx, token, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (g *feedGateway) SharePost(ctx context.Context, token, postID, comment string, toTimeline bool) (*model.ShareResult, error) {
	body := map[string]interface{}{
		"comment":           comment,
		"share_to_timeline": toTimeline,
	}
	var result model.ShareResult
	if _, err := g.client.Post(ctx, token, "/feed/posts/"+postID+"/share", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (g *feedGateway) FetchPost(ctx context.Context, token, id string) (*model.Post, error) {
	var post model.Post
	if _, err := g.client.Get(ctx, token, "/feed/posts/"+id, nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (g *feedGateway) FetchComments(ctx context.Context, token, postID string) ([]model.Comment, error) {
	var comments []model.Comment
	if _, err := g.client.Get(ctx, token, "/feed/posts/"+postID+"/comments", nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func tokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
