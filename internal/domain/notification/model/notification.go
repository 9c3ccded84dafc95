package model

import (
	"time"

	feedmodel "feed_gateway/internal/domain/feed/model"
)

// 通知类型
const (
	TypeLike    = "like"
	TypeComment = "comment"
	TypeMention = "mention"
	TypeReward  = "reward"
	TypeFollow  = "follow"
	TypeShare   = "share"
)

// NotificationData 通知正文和跳转目标
type NotificationData struct {
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Actor     *feedmodel.Author `json:"actor,omitempty"`
	PostID    string            `json:"post_id,omitempty"`
	CommentID string            `json:"comment_id,omitempty"`
}

// Notification 单条通知，ReadAt 为空表示未读
type Notification struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"`
	Data      NotificationData `json:"data"`
	ReadAt    *time.Time       `json:"read_at"`
	CreatedAt time.Time        `json:"created_at"`
}

// Target 点击通知后要打开的位置
// CommentID 非空时界面滚动到该评论并短暂高亮
type Target struct {
	PostID    string `json:"post_id"`
	CommentID string `json:"comment_id,omitempty"`
}
