package service

import (
	"context"
	"testing"

	"feed_gateway/internal/domain/feed/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threadComments() []model.Comment {
	parent := "c-1"
	return []model.Comment{
		{
			ID:      "c-1",
			Content: "first",
			Replies: []model.Comment{
				{ID: "r-1", Content: "reply one", ParentID: &parent},
				{ID: "r-2", Content: "reply two", ParentID: &parent},
			},
		},
		{ID: "c-2", Content: "second"},
	}
}

func newTestThread(t *testing.T) (*MockFeedGateway, *Thread) {
	t.Helper()
	ctx := context.Background()
	gw := new(MockFeedGateway)
	store := NewStore(gw, "tok", 10)

	gw.On("FetchComments", ctx, "tok", "p-1").Return(threadComments(), nil).Once()
	thread, err := NewThread(ctx, store, "p-1")
	require.NoError(t, err)
	return gw, thread
}

func TestThreadLikePatching(t *testing.T) {
	ctx := context.Background()

	t.Run("patches a top-level comment", func(t *testing.T) {
		gw, thread := newTestThread(t)

		gw.On("LikeComment", ctx, "tok", "p-1", "c-2").
			Return(&model.LikeResult{Liked: true, LikesCount: 5}, nil).Once()

		_, err := thread.ToggleCommentLike(ctx, "c-2")

		require.NoError(t, err)
		comments := thread.Comments()
		assert.True(t, comments[1].IsLiked)
		assert.Equal(t, 5, comments[1].LikesCount)
		assert.False(t, comments[0].IsLiked)
	})

	t.Run("patches a node inside a reply list", func(t *testing.T) {
		gw, thread := newTestThread(t)

		gw.On("LikeComment", ctx, "tok", "p-1", "r-2").
			Return(&model.LikeResult{Liked: true, LikesCount: 2}, nil).Once()

		_, err := thread.ToggleCommentLike(ctx, "r-2")

		require.NoError(t, err)
		replies := thread.Comments()[0].Replies
		assert.False(t, replies[0].IsLiked)
		assert.True(t, replies[1].IsLiked)
		assert.Equal(t, 2, replies[1].LikesCount)
	})

	t.Run("unknown node is rejected without a request", func(t *testing.T) {
		gw, thread := newTestThread(t)

		_, err := thread.ToggleCommentLike(context.Background(), "c-404")

		assert.ErrorIs(t, err, ErrCommentNotFound)
		gw.AssertNotCalled(t, "LikeComment")
	})
}

func TestThreadReplyBox(t *testing.T) {
	ctx := context.Background()

	t.Run("at most one reply box is open", func(t *testing.T) {
		_, thread := newTestThread(t)

		require.NoError(t, thread.OpenReplyBox("c-1"))
		require.NoError(t, thread.OpenReplyBox("c-2"))

		assert.Equal(t, "c-2", *thread.ReplyingTo())
	})

	t.Run("submit sends reply under the comment and clears only that draft", func(t *testing.T) {
		gw, thread := newTestThread(t)

		thread.SetDraft("c-1", "my reply")
		thread.SetDraft("c-2", "other draft")
		require.NoError(t, thread.OpenReplyBox("c-1"))

		root := "c-1"
		gw.On("AddComment", ctx, "tok", "p-1", "my reply", &root).
			Return(&model.Comment{ID: "r-3", Content: "my reply", ParentID: &root}, nil).Once()

		reply, err := thread.SubmitReply(ctx)

		require.NoError(t, err)
		assert.Equal(t, "r-3", reply.ID)
		assert.Len(t, thread.Comments()[0].Replies, 3)
		assert.Nil(t, thread.ReplyingTo())
		assert.Empty(t, thread.Draft("c-1"))
		assert.Equal(t, "other draft", thread.Draft("c-2"))
	})

	t.Run("reply to a reply lands as sibling under the top-level comment", func(t *testing.T) {
		gw, thread := newTestThread(t)

		thread.SetDraft("r-1", "nested take")
		require.NoError(t, thread.OpenReplyBox("r-1"))

		// parent 解析为一级祖先 c-1，而不是 r-1
		root := "c-1"
		gw.On("AddComment", ctx, "tok", "p-1", "nested take", &root).
			Return(&model.Comment{ID: "r-3", Content: "nested take", ParentID: &root}, nil).Once()

		reply, err := thread.SubmitReply(ctx)

		require.NoError(t, err)
		assert.Nil(t, reply.Replies, "replies never carry replies")
		replies := thread.Comments()[0].Replies
		assert.Equal(t, "r-3", replies[2].ID)
	})

	t.Run("submit without an open box fails", func(t *testing.T) {
		_, thread := newTestThread(t)

		_, err := thread.SubmitReply(ctx)
		assert.ErrorIs(t, err, ErrNoReplyBox)
	})

	t.Run("empty draft is rejected", func(t *testing.T) {
		_, thread := newTestThread(t)

		require.NoError(t, thread.OpenReplyBox("c-1"))
		_, err := thread.SubmitReply(ctx)
		assert.ErrorIs(t, err, ErrEmptyContent)
	})
}

func TestThreadAddComment(t *testing.T) {
	ctx := context.Background()

	t.Run("top-level comment is appended", func(t *testing.T) {
		gw, thread := newTestThread(t)

		gw.On("AddComment", ctx, "tok", "p-1", "third", (*string)(nil)).
			Return(&model.Comment{ID: "c-3", Content: "third"}, nil).Once()

		comment, err := thread.AddComment(ctx, "third")

		require.NoError(t, err)
		assert.Equal(t, "c-3", comment.ID)
		comments := thread.Comments()
		assert.Len(t, comments, 3)
		assert.Equal(t, "c-3", comments[2].ID)
	})

	t.Run("empty content is rejected locally", func(t *testing.T) {
		gw, thread := newTestThread(t)

		_, err := thread.AddComment(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyContent)
		gw.AssertNotCalled(t, "AddComment")
	})
}
