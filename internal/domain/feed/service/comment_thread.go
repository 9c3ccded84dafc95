package service

import (
	"context"
	"errors"
	"sync"

	"feed_gateway/internal/domain/feed/model"
)

var (
	// ErrCommentNotFound 评论不在当前线程里
	ErrCommentNotFound = errors.New("comment not found in thread")
	// ErrNoReplyBox 没有打开的回复框
	ErrNoReplyBox = errors.New("no reply box is open")
	// ErrEmptyContent 空内容
	ErrEmptyContent = errors.New("content must not be empty")
)

// Thread 单个帖子的两级评论线程
//
// 一级评论各自带一个平铺的回复列表，回复不再嵌套：
// 对回复的回复仍然作为原一级评论下的兄弟回复追加。
// 点赞结果可能落在一级评论也可能落在某条回复上，
// 双位置查找是这个容器的核心职责
type Thread struct {
	mu     sync.Mutex
	store  *Store
	postID string

	comments   []model.Comment
	replyingTo *string           // 最多一个打开的回复框，按评论 id
	drafts     map[string]string // 各回复框的草稿
}

// NewThread 加载指定帖子的评论并创建线程容器
func NewThread(ctx context.Context, store *Store, postID string) (*Thread, error) {
	comments, err := store.LoadComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &Thread{
		store:    store,
		postID:   postID,
		comments: comments,
		drafts:   make(map[string]string),
	}, nil
}

// PostID 所属帖子
func (t *Thread) PostID() string { return t.postID }

// Comments 当前评论树快照
func (t *Thread) Comments() []model.Comment {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.Comment, len(t.comments))
	copy(out, t.comments)
	return out
}

// ReplyingTo 当前打开的回复框对应的评论 id
func (t *Thread) ReplyingTo() *string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.replyingTo == nil {
		return nil
	}
	id := *t.replyingTo
	return &id
}

// OpenReplyBox 打开指定评论的回复框，同时只允许一个
func (t *Thread) OpenReplyBox(commentID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.locateLocked(commentID) == nil {
		return ErrCommentNotFound
	}
	t.replyingTo = &commentID
	return nil
}

// CloseReplyBox 关闭回复框，草稿保留
func (t *Thread) CloseReplyBox() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replyingTo = nil
}

// SetDraft 更新某个回复框的草稿
func (t *Thread) SetDraft(commentID, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.drafts[commentID] = text
}

// Draft 读取草稿
func (t *Thread) Draft(commentID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.drafts[commentID]
}

// AddComment 发一级评论并追加到线程
func (t *Thread) AddComment(ctx context.Context, content string) (*model.Comment, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	comment, err := t.store.AddComment(ctx, t.postID, content, nil)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.comments = append(t.comments, *comment)
	return comment, nil
}

// SubmitReply 提交当前打开的回复框
// 回复永远挂在一级评论下：如果回复框开在某条回复上，
// 先解析出它的一级祖先再作为 parent 提交。
// 成功后只清掉这一个框的草稿并关闭它
func (t *Thread) SubmitReply(ctx context.Context) (*model.Comment, error) {
	t.mu.Lock()
	if t.replyingTo == nil {
		t.mu.Unlock()
		return nil, ErrNoReplyBox
	}
	target := *t.replyingTo
	content := t.drafts[target]
	root := t.rootOfLocked(target)
	t.mu.Unlock()

	if root == "" {
		return nil, ErrCommentNotFound
	}
	if content == "" {
		return nil, ErrEmptyContent
	}

	reply, err := t.store.AddComment(ctx, t.postID, content, &root)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.comments {
		if t.comments[i].ID == root {
			t.comments[i].Replies = append(t.comments[i].Replies, *reply)
			break
		}
	}
	delete(t.drafts, target)
	t.replyingTo = nil
	return reply, nil
}

// ToggleCommentLike 对线程内任意节点点赞并回写权威结果
func (t *Thread) ToggleCommentLike(ctx context.Context, commentID string) (*model.LikeResult, error) {
	t.mu.Lock()
	exists := t.locateLocked(commentID) != nil
	t.mu.Unlock()
	if !exists {
		return nil, ErrCommentNotFound
	}

	result, err := t.store.LikeComment(ctx, t.postID, commentID)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if node := t.locateLocked(commentID); node != nil {
		node.IsLiked = result.Liked
		node.LikesCount = result.LikesCount
	}
	return result, nil
}

// locateLocked 在一级评论和所有回复列表里按 id 查找节点
func (t *Thread) locateLocked(commentID string) *model.Comment {
	for i := range t.comments {
		if t.comments[i].ID == commentID {
			return &t.comments[i]
		}
		for j := range t.comments[i].Replies {
			if t.comments[i].Replies[j].ID == commentID {
				return &t.comments[i].Replies[j]
			}
		}
	}
	return nil
}

// rootOfLocked 返回节点所属的一级评论 id，找不到返回空串
func (t *Thread) rootOfLocked(commentID string) string {
	for i := range t.comments {
		if t.comments[i].ID == commentID {
			return t.comments[i].ID
		}
		for j := range t.comments[i].Replies {
			if t.comments[i].Replies[j].ID == commentID {
				return t.comments[i].ID
			}
		}
	}
	return ""
}
