package service

import (
	"context"
	"errors"
	"sync"

	"feed_gateway/internal/domain/feed/gateway"
	"feed_gateway/internal/domain/feed/model"
	"feed_gateway/internal/platform"
	"feed_gateway/pkg/logger"
	"feed_gateway/pkg/metrics"
	"feed_gateway/pkg/utils"

	"go.uber.org/zap"
)

// 排序方式
const (
	SortNewest  = "newest"
	SortPopular = "popular"
)

var (
	// ErrEntityBusy 同一实体已有操作在途，重复点击直接拒绝
	ErrEntityBusy = errors.New("operation already in flight for this entity")
	// ErrLoadInFlight 已有分页加载在进行
	ErrLoadInFlight = errors.New("a page load is already in flight")
	// ErrInvalidSort 非法排序键
	ErrInvalidSort = errors.New("sort must be newest or popular")
)

// Store 信息流状态容器，单个会话持有一份
//
// 并发模型：所有状态变更都在互斥锁内完成；网络请求在锁外发出，
// 同一实体的并发变更靠 inflight 集合在调用入口拒绝，
// 不同实体上的操作互不阻塞
type Store struct {
	mu sync.Mutex
	gw gateway.FeedGateway

	token   string
	perPage int

	posts     []model.Post
	cursor    *platform.Meta
	sort      string
	highWater string // 本地已知最新一条帖子的 id
	newCount  int
	loading   bool // load-more 全局忙标记

	inflight map[string]struct{} // 在途实体 id 集合
}

// NewStore 创建信息流容器
func NewStore(gw gateway.FeedGateway, token string, perPage int) *Store {
	p := utils.Pagination{PerPage: perPage}
	_, perPage = p.Normalize()
	return &Store{
		gw:       gw,
		token:    token,
		perPage:  perPage,
		sort:     SortNewest,
		inflight: make(map[string]struct{}),
	}
}

// beginEntity 标记实体在途，已有操作时返回 false
func (s *Store) beginEntity(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[id]; busy {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

func (s *Store) endEntity(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}

// EntityBusy 指定实体是否有操作在途
func (s *Store) EntityBusy(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.inflight[id]
	return busy
}

// LoadFeed 拉取指定页
// 第 1 页替换整个列表并记录高水位；后续页追加
// 并发去重由调用方负责（LoadMore 的 loading 标记）
func (s *Store) LoadFeed(ctx context.Context, page int, sort string) ([]model.Post, error) {
	if sort == "" {
		sort = SortNewest
	}
	if sort != SortNewest && sort != SortPopular {
		return nil, ErrInvalidSort
	}
	if page <= 0 {
		page = 1
	}

	posts, meta, err := s.gw.FetchFeed(ctx, s.token, sort, page, s.perPage)
	metrics.Default().CountOp("feed.load", err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = sort
	s.cursor = meta
	if page == 1 {
		s.posts = posts
		s.highWater = ""
		if len(posts) > 0 {
			s.highWater = posts[0].ID
		}
	} else {
		s.posts = append(s.posts, posts...)
	}
	return s.snapshotLocked(), nil
}

// LoadMore 追加下一页
// 已在加载或已到末页时是 no-op，返回 performed=false
func (s *Store) LoadMore(ctx context.Context) (performed bool, err error) {
	s.mu.Lock()
	if s.loading || !s.cursor.HasMore() {
		s.mu.Unlock()
		return false, nil
	}
	s.loading = true
	page := s.cursor.CurrentPage + 1
	sort := s.sort
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	if _, err := s.LoadFeed(ctx, page, sort); err != nil {
		// 分页失败不打断用户，下一次滚动会自然重试
		if logger.Log != nil {
			logger.Log.Debug("load more failed", zap.Int("page", page), zap.Error(err))
		}
		return false, err
	}
	return true, nil
}

// CheckNewPosts 对比高水位探测新帖
// 只更新计数，从不改动可见列表；真正刷新要用户触发 LoadNewPosts
func (s *Store) CheckNewPosts(ctx context.Context) (int, error) {
	s.mu.Lock()
	after := s.highWater
	s.mu.Unlock()
	if after == "" {
		return 0, nil
	}

	check, err := s.gw.NewPostCount(ctx, s.token, after)
	if err != nil {
		// 轮询失败静默，下一个周期重试
		if logger.Log != nil {
			logger.Log.Debug("new-post check failed", zap.Error(err))
		}
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if check.HasNewPosts {
		s.newCount = check.Count
	} else {
		s.newCount = 0
	}
	return s.newCount, nil
}

// LoadNewPosts 用户点击「N 条新帖」后重载第 1 页并清零计数
func (s *Store) LoadNewPosts(ctx context.Context) ([]model.Post, error) {
	s.mu.Lock()
	sort := s.sort
	s.mu.Unlock()

	posts, err := s.LoadFeed(ctx, 1, sort)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.newCount = 0
	s.mu.Unlock()
	return posts, nil
}

// CreatePost 发帖
// 不做乐观插入：带奖池的帖子在平台校验通过之前无法可信渲染，
// 成功后才把平台返回的帖子插到列表头部
func (s *Store) CreatePost(ctx context.Context, draft model.Draft) (*model.Post, error) {
	post, err := s.gw.CreatePost(ctx, s.token, draft)
	metrics.Default().CountOp("feed.create_post", err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append([]model.Post{*post}, s.posts...)
	s.highWater = post.ID
	return post, nil
}

// ToggleLike 点赞/取消点赞
// 非乐观：只把服务端返回的 {liked, likes_count} 回写到对应帖子，
// 同一帖子的连续点击在入口被忙标记挡掉
func (s *Store) ToggleLike(ctx context.Context, postID string) (*model.LikeResult, error) {
	if !s.beginEntity(postID) {
		return nil, ErrEntityBusy
	}
	defer s.endEntity(postID)

	result, err := s.gw.LikePost(ctx, s.token, postID)
	metrics.Default().CountOp("feed.toggle_like", err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if post := s.findLocked(postID); post != nil {
		post.IsLiked = result.Liked
		post.LikesCount = result.LikesCount
	}
	return result, nil
}

// AddComment 评论
// parentID 为空时是一级评论，comments_count 加 1；回复不改计数
func (s *Store) AddComment(ctx context.Context, postID, content string, parentID *string) (*model.Comment, error) {
	if !s.beginEntity(postID) {
		return nil, ErrEntityBusy
	}
	defer s.endEntity(postID)

	comment, err := s.gw.AddComment(ctx, s.token, postID, content, parentID)
	metrics.Default().CountOp("feed.add_comment", err)
	if err != nil {
		return nil, err
	}

	if parentID == nil {
		s.mu.Lock()
		if post := s.findLocked(postID); post != nil {
			post.CommentsCount++
		}
		s.mu.Unlock()
	}
	return comment, nil
}

// LikeComment 评论点赞，返回权威结果
// 把结果落到哪个节点（一级评论还是某条回复）是 Thread 的职责
func (s *Store) LikeComment(ctx context.Context, postID, commentID string) (*model.LikeResult, error) {
	if !s.beginEntity(commentID) {
		return nil, ErrEntityBusy
	}
	defer s.endEntity(commentID)

	result, err := s.gw.LikeComment(ctx, s.token, postID, commentID)
	metrics.Default().CountOp("feed.like_comment", err)
	return result, err
}

// SharePost 转发
// 总是回写源帖的 shares_count；转发到时间线时把包装帖插到头部
func (s *Store) SharePost(ctx context.Context, postID, comment string, toTimeline bool) (*model.ShareResult, error) {
	if !s.beginEntity(postID) {
		return nil, ErrEntityBusy
	}
	defer s.endEntity(postID)

	result, err := s.gw.SharePost(ctx, s.token, postID, comment, toTimeline)
	metrics.Default().CountOp("feed.share_post", err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if post := s.findLocked(postID); post != nil {
		post.SharesCount = result.SharesCount
	}
	if result.SharedPost != nil {
		s.posts = append([]model.Post{*result.SharedPost}, s.posts...)
		s.highWater = result.SharedPost.ID
	}
	return result, nil
}

// UpdatePost 编辑帖子，确认后才替换本地副本
// 可见性/奖池改动可能被平台拒绝，所以不做乐观更新
func (s *Store) UpdatePost(ctx context.Context, postID string, update model.PostUpdate) (*model.Post, error) {
	if !s.beginEntity(postID) {
		return nil, ErrEntityBusy
	}
	defer s.endEntity(postID)

	updated, err := s.gw.UpdatePost(ctx, s.token, postID, update)
	metrics.Default().CountOp("feed.update_post", err)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == postID {
			s.posts[i] = *updated
			break
		}
	}
	return updated, nil
}

// DeletePost 删除帖子，确认后从列表移除（不做本地软隐藏）
func (s *Store) DeletePost(ctx context.Context, postID string) error {
	if !s.beginEntity(postID) {
		return ErrEntityBusy
	}
	defer s.endEntity(postID)

	err := s.gw.DeletePost(ctx, s.token, postID)
	metrics.Default().CountOp("feed.delete_post", err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.posts {
		if s.posts[i].ID == postID {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			break
		}
	}
	return nil
}

// LoadPost 单帖拉取，供深链使用，不要求帖子在可见列表里
func (s *Store) LoadPost(ctx context.Context, postID string) (*model.Post, error) {
	post, err := s.gw.FetchPost(ctx, s.token, postID)
	metrics.Default().CountOp("feed.load_post", err)
	return post, err
}

// LoadComments 拉取评论树（两级），纯读取
func (s *Store) LoadComments(ctx context.Context, postID string) ([]model.Comment, error) {
	comments, err := s.gw.FetchComments(ctx, s.token, postID)
	metrics.Default().CountOp("feed.load_comments", err)
	return comments, err
}

// Posts 当前列表快照
func (s *Store) Posts() []model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// NewCount 待展示的新帖数量
func (s *Store) NewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newCount
}

// HasMore 是否还有下一页
func (s *Store) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor.HasMore()
}

// Cursor 分页游标快照
func (s *Store) Cursor() *platform.Meta {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor == nil {
		return nil
	}
	c := *s.cursor
	return &c
}

// HighWater 高水位帖子 id，空串表示尚未加载过第 1 页
func (s *Store) HighWater() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highWater
}

func (s *Store) findLocked(postID string) *model.Post {
	for i := range s.posts {
		if s.posts[i].ID == postID {
			return &s.posts[i]
		}
	}
	return nil
}

func (s *Store) snapshotLocked() []model.Post {
	out := make([]model.Post, len(s.posts))
	copy(out, s.posts)
	return out
}
