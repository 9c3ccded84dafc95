package model

import "time"

// Visibility 帖子可见范围
const (
	VisibilityPublic    = "public"
	VisibilityFollowers = "followers"
	VisibilityPrivate   = "private"
)

// MaxMediaPerPost 单帖媒体上限
const MaxMediaPerPost = 10

// Author 帖子/评论作者
type Author struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	Verified    bool   `json:"verified"`
}

// MediaItem 帖子媒体
type MediaItem struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"` // image, video
	URL          string            `json:"url"`
	ThumbnailURL string            `json:"thumbnail_url,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// RewardRule 按互动类型的打赏规则
type RewardRule struct {
	LikeAmount    float64 `json:"like_amount"`
	CommentAmount float64 `json:"comment_amount"`
	ShareAmount   float64 `json:"share_amount"`
	TotalPool     float64 `json:"total_pool"`
	PerUserCap    float64 `json:"per_user_cap"`
}

// Post 信息流帖子
// comments_count 只统计一级评论，回复不计入
type Post struct {
	ID               string      `json:"id"`
	Author           Author      `json:"author"`
	Content          *string     `json:"content"` // 纯转发可以没有正文
	Visibility       string      `json:"visibility"`
	Media            []MediaItem `json:"media,omitempty"`
	LikesCount       int         `json:"likes_count"`
	CommentsCount    int         `json:"comments_count"`
	SharesCount      int         `json:"shares_count"`
	RewardEnabled    bool        `json:"reward_enabled"`
	RewardPool       float64     `json:"reward_pool,omitempty"`
	RewardCoinSymbol string      `json:"reward_coin_symbol,omitempty"`
	RewardRule       *RewardRule `json:"reward_rule,omitempty"`
	IsLiked          bool        `json:"is_liked"`
	SharedPost       *SharedPost `json:"shared_post,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// SharedPost 被转发的原帖
// 平台侧最多嵌套一层，所以这里不再带 shared_post 字段，
// 避免无界递归类型
type SharedPost struct {
	ID            string      `json:"id"`
	Author        Author      `json:"author"`
	Content       *string     `json:"content"`
	Visibility    string      `json:"visibility"`
	Media         []MediaItem `json:"media,omitempty"`
	LikesCount    int         `json:"likes_count"`
	CommentsCount int         `json:"comments_count"`
	SharesCount   int         `json:"shares_count"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Comment 评论，两级结构：一级评论带平铺的回复列表，回复不再嵌套
type Comment struct {
	ID         string    `json:"id"`
	Author     Author    `json:"author"`
	Content    string    `json:"content"`
	LikesCount int       `json:"likes_count"`
	IsLiked    bool      `json:"is_liked"`
	ParentID   *string   `json:"parent_id"`
	Replies    []Comment `json:"replies,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// LikeResult 点赞接口返回的权威结果
type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

// ShareResult 转发结果
// 选择「转发到时间线」时平台额外返回新创建的包装帖
type ShareResult struct {
	SharesCount int   `json:"shares_count"`
	SharedPost  *Post `json:"shared_post,omitempty"`
}

// NewPostCheck 新帖探测结果
type NewPostCheck struct {
	Count       int  `json:"count"`
	HasNewPosts bool `json:"has_new_posts"`
}

// Draft 发帖请求
type Draft struct {
	Content          string      `json:"content"`
	Visibility       string      `json:"visibility"`
	Media            []MediaItem `json:"media,omitempty"`
	RewardEnabled    bool        `json:"reward_enabled"`
	RewardPool       float64     `json:"reward_pool,omitempty"`
	RewardCoinSymbol string      `json:"reward_coin_symbol,omitempty"`
	RewardRule       *RewardRule `json:"reward_rule,omitempty"`
}

// PostUpdate 帖子编辑请求，零值字段不提交
type PostUpdate struct {
	Content    *string `json:"content,omitempty"`
	Visibility *string `json:"visibility,omitempty"`
}
