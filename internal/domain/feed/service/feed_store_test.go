package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"feed_gateway/internal/domain/feed/model"
	"feed_gateway/internal/platform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockFeedGateway is a mock of FeedGateway
type MockFeedGateway struct {
	mock.Mock
}

func (m *MockFeedGateway) FetchFeed(ctx context.Context, token, sort string, page, perPage int) ([]model.Post, *platform.Meta, error) {
	args := m.Called(ctx, token, sort, page, perPage)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]model.Post), args.Get(1).(*platform.Meta), args.Error(2)
}

func (m *MockFeedGateway) NewPostCount(ctx context.Context, token, afterID string) (*model.NewPostCheck, error) {
	args := m.Called(ctx, token, afterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.NewPostCheck), args.Error(1)
}

func (m *MockFeedGateway) CreatePost(ctx context.Context, token string, draft model.Draft) (*model.Post, error) {
	args := m.Called(ctx, token, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockFeedGateway) UpdatePost(ctx context.Context, token, id string, update model.PostUpdate) (*model.Post, error) {
	args := m.Called(ctx, token, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockFeedGateway) DeletePost(ctx context.Context, token, id string) error {
	args := m.Called(ctx, token, id)
	return args.Error(0)
}

func (m *MockFeedGateway) LikePost(ctx context.Context, token, id string) (*model.LikeResult, error) {
	args := m.Called(ctx, token, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LikeResult), args.Error(1)
}

func (m *MockFeedGateway) AddComment(ctx context.Context, token, postID, content string, parentID *string) (*model.Comment, error) {
	args := m.Called(ctx, token, postID, content, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Comment), args.Error(1)
}

func (m *MockFeedGateway) LikeComment(ctx context.Context, token, postID, commentID string) (*model.LikeResult, error) {
	args := m.Called(ctx, token, postID, commentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LikeResult), args.Error(1)
}

func (m *MockFeedGateway) SharePost(ctx context.Context, token, postID, comment string, toTimeline bool) (*model.ShareResult, error) {
	args := m.Called(ctx, token, postID, comment, toTimeline)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShareResult), args.Error(1)
}

func (m *MockFeedGateway) FetchPost(ctx context.Context, token, id string) (*model.Post, error) {
	args := m.Called(ctx, token, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Post), args.Error(1)
}

func (m *MockFeedGateway) FetchComments(ctx context.Context, token, postID string) ([]model.Comment, error) {
	args := m.Called(ctx, token, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Comment), args.Error(1)
}

func testPost(id string) model.Post {
	content := "post " + id
	return model.Post{
		ID:      id,
		Author:  model.Author{ID: "u-1", Username: "alice"},
		Content: &content,
	}
}

func metaPage(current, last int) *platform.Meta {
	return &platform.Meta{CurrentPage: current, LastPage: last, PerPage: 10, Total: last * 10}
}

func TestLoadFeed(t *testing.T) {
	ctx := context.Background()

	t.Run("page 1 replaces list and records high-water mark", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{testPost("p-3"), testPost("p-2")}, metaPage(1, 2), nil).Once()

		posts, err := store.LoadFeed(ctx, 1, SortNewest)

		require.NoError(t, err)
		assert.Len(t, posts, 2)
		assert.Equal(t, "p-3", store.HighWater())
		assert.True(t, store.HasMore())
		gw.AssertExpectations(t)
	})

	t.Run("page 2 appends", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{testPost("p-3")}, metaPage(1, 2), nil).Once()
		gw.On("FetchFeed", ctx, "tok", SortNewest, 2, 10).
			Return([]model.Post{testPost("p-1")}, metaPage(2, 2), nil).Once()

		_, err := store.LoadFeed(ctx, 1, SortNewest)
		require.NoError(t, err)
		posts, err := store.LoadFeed(ctx, 2, SortNewest)

		require.NoError(t, err)
		assert.Len(t, posts, 2)
		assert.Equal(t, "p-3", posts[0].ID)
		assert.Equal(t, "p-1", posts[1].ID)
		// 高水位仍然是第 1 页的第一条
		assert.Equal(t, "p-3", store.HighWater())
	})

	t.Run("rejects unknown sort key", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		_, err := store.LoadFeed(ctx, 1, "trending")
		assert.ErrorIs(t, err, ErrInvalidSort)
	})
}

func TestLoadMore(t *testing.T) {
	ctx := context.Background()

	t.Run("no-op on last page", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{testPost("p-1")}, metaPage(1, 1), nil).Once()
		_, err := store.LoadFeed(ctx, 1, SortNewest)
		require.NoError(t, err)
		assert.False(t, store.HasMore())

		performed, err := store.LoadMore(ctx)

		assert.NoError(t, err)
		assert.False(t, performed)
		gw.AssertNumberOfCalls(t, "FetchFeed", 1)
	})

	t.Run("no-op before first load", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		performed, err := store.LoadMore(ctx)
		assert.NoError(t, err)
		assert.False(t, performed)
	})

	t.Run("requests next page in append mode", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{testPost("p-2")}, metaPage(1, 2), nil).Once()
		gw.On("FetchFeed", ctx, "tok", SortNewest, 2, 10).
			Return([]model.Post{testPost("p-1")}, metaPage(2, 2), nil).Once()

		_, err := store.LoadFeed(ctx, 1, SortNewest)
		require.NoError(t, err)

		performed, err := store.LoadMore(ctx)

		require.NoError(t, err)
		assert.True(t, performed)
		assert.Len(t, store.Posts(), 2)
		assert.False(t, store.HasMore())
	})

	t.Run("only one load-more in flight", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{testPost("p-2")}, metaPage(1, 3), nil).Once()
		_, err := store.LoadFeed(ctx, 1, SortNewest)
		require.NoError(t, err)

		started := make(chan struct{})
		release := make(chan struct{})
		gw.On("FetchFeed", ctx, "tok", SortNewest, 2, 10).
			Run(func(args mock.Arguments) {
				close(started)
				<-release
			}).
			Return([]model.Post{testPost("p-1")}, metaPage(2, 3), nil).Once()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.LoadMore(ctx)
		}()

		// 等第一个请求挂起后再发第二个
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("first load never started")
		}

		performed, err := store.LoadMore(ctx)
		assert.NoError(t, err)
		assert.False(t, performed)

		close(release)
		wg.Wait()
		gw.AssertNumberOfCalls(t, "FetchFeed", 2)
	})
}

func TestCheckNewPosts(t *testing.T) {
	ctx := context.Background()

	t.Run("raises counter without touching the visible list", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{testPost("p-5")}, metaPage(1, 1), nil).Once()
		_, err := store.LoadFeed(ctx, 1, SortNewest)
		require.NoError(t, err)

		gw.On("NewPostCount", ctx, "tok", "p-5").
			Return(&model.NewPostCheck{Count: 3, HasNewPosts: true}, nil).Once()

		count, err := store.CheckNewPosts(ctx)

		require.NoError(t, err)
		assert.Equal(t, 3, count)
		assert.Equal(t, 3, store.NewCount())
		assert.Len(t, store.Posts(), 1)
	})

	t.Run("skips when high-water mark is empty", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		count, err := store.CheckNewPosts(ctx)

		assert.NoError(t, err)
		assert.Zero(t, count)
		gw.AssertNotCalled(t, "NewPostCount")
	})

	t.Run("loadNewPosts reloads page 1 and resets counter", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{testPost("p-5")}, metaPage(1, 1), nil).Once()
		_, err := store.LoadFeed(ctx, 1, SortNewest)
		require.NoError(t, err)

		gw.On("NewPostCount", ctx, "tok", "p-5").
			Return(&model.NewPostCheck{Count: 2, HasNewPosts: true}, nil).Once()
		_, err = store.CheckNewPosts(ctx)
		require.NoError(t, err)

		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{testPost("p-7"), testPost("p-6"), testPost("p-5")}, metaPage(1, 1), nil).Once()

		posts, err := store.LoadNewPosts(ctx)

		require.NoError(t, err)
		assert.Len(t, posts, 3)
		assert.Zero(t, store.NewCount())
		assert.Equal(t, "p-7", store.HighWater())
	})
}

func TestCreatePost(t *testing.T) {
	ctx := context.Background()

	t.Run("prepends confirmed post", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{testPost("p-1")}, metaPage(1, 1), nil).Once()
		_, err := store.LoadFeed(ctx, 1, SortNewest)
		require.NoError(t, err)

		created := testPost("p-2")
		draft := model.Draft{Content: "gm", Visibility: model.VisibilityPublic}
		gw.On("CreatePost", ctx, "tok", draft).Return(&created, nil).Once()

		post, err := store.CreatePost(ctx, draft)

		require.NoError(t, err)
		assert.Equal(t, "p-2", post.ID)
		assert.Equal(t, "p-2", store.Posts()[0].ID)
		assert.Equal(t, "p-2", store.HighWater())
	})

	t.Run("failure leaves the list untouched", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{testPost("p-1")}, metaPage(1, 1), nil).Once()
		_, err := store.LoadFeed(ctx, 1, SortNewest)
		require.NoError(t, err)

		gw.On("CreatePost", ctx, "tok", mock.Anything).
			Return(nil, &platform.APIError{Status: 422, Details: []string{"reward pool exceeds balance"}}).Once()

		post, err := store.CreatePost(ctx, model.Draft{Content: "gm"})

		assert.Error(t, err)
		assert.Nil(t, post)
		assert.Len(t, store.Posts(), 1)
		assert.Equal(t, "p-1", store.Posts()[0].ID)
	})
}

func TestToggleLike(t *testing.T) {
	ctx := context.Background()

	t.Run("applies authoritative result to the matching post", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{testPost("p-1"), testPost("p-2")}, metaPage(1, 1), nil).Once()
		_, err := store.LoadFeed(ctx, 1, SortNewest)
		require.NoError(t, err)

		gw.On("LikePost", ctx, "tok", "p-2").
			Return(&model.LikeResult{Liked: true, LikesCount: 8}, nil).Once()

		result, err := store.ToggleLike(ctx, "p-2")

		require.NoError(t, err)
		assert.True(t, result.Liked)

		posts := store.Posts()
		assert.False(t, posts[0].IsLiked)
		assert.True(t, posts[1].IsLiked)
		assert.Equal(t, 8, posts[1].LikesCount)
	})

	t.Run("server value wins regardless of local state", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		liked := testPost("p-1")
		liked.IsLiked = true
		liked.LikesCount = 4
		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{liked}, metaPage(1, 1), nil).Once()
		_, err := store.LoadFeed(ctx, 1, SortNewest)
		require.NoError(t, err)

		// 服务端说没点过赞，本地必须服从
		gw.On("LikePost", ctx, "tok", "p-1").
			Return(&model.LikeResult{Liked: false, LikesCount: 3}, nil).Once()

		_, err = store.ToggleLike(ctx, "p-1")

		require.NoError(t, err)
		assert.False(t, store.Posts()[0].IsLiked)
		assert.Equal(t, 3, store.Posts()[0].LikesCount)
	})

	t.Run("second toggle on the same post is rejected while in flight", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{testPost("p-1"), testPost("p-2")}, metaPage(1, 1), nil).Once()
		_, err := store.LoadFeed(ctx, 1, SortNewest)
		require.NoError(t, err)

		release := make(chan struct{})
		gw.On("LikePost", ctx, "tok", "p-1").
			Run(func(args mock.Arguments) { <-release }).
			Return(&model.LikeResult{Liked: true, LikesCount: 1}, nil).Once()
		gw.On("LikePost", ctx, "tok", "p-2").
			Return(&model.LikeResult{Liked: true, LikesCount: 1}, nil).Once()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.ToggleLike(ctx, "p-1")
		}()

		assert.Eventually(t, func() bool { return store.EntityBusy("p-1") }, time.Second, time.Millisecond)

		// 同一帖子的并发点击被拒
		_, err = store.ToggleLike(ctx, "p-1")
		assert.ErrorIs(t, err, ErrEntityBusy)

		// 其他帖子不受影响
		_, err = store.ToggleLike(ctx, "p-2")
		assert.NoError(t, err)

		close(release)
		wg.Wait()
		assert.False(t, store.EntityBusy("p-1"))
	})
}

func TestAddComment(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*MockFeedGateway, *Store) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)
		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{testPost("p-1")}, metaPage(1, 1), nil).Once()
		_, err := store.LoadFeed(ctx, 1, SortNewest)
		require.NoError(t, err)
		return gw, store
	}

	t.Run("top-level comment increments comments_count by exactly 1", func(t *testing.T) {
		gw, store := setup(t)

		gw.On("AddComment", ctx, "tok", "p-1", "nice", (*string)(nil)).
			Return(&model.Comment{ID: "c-1", Content: "nice"}, nil).Once()

		comment, err := store.AddComment(ctx, "p-1", "nice", nil)

		require.NoError(t, err)
		assert.Equal(t, "c-1", comment.ID)
		assert.Equal(t, 1, store.Posts()[0].CommentsCount)
	})

	t.Run("reply never changes comments_count", func(t *testing.T) {
		gw, store := setup(t)

		parent := "c-1"
		gw.On("AddComment", ctx, "tok", "p-1", "agreed", &parent).
			Return(&model.Comment{ID: "c-2", Content: "agreed", ParentID: &parent}, nil).Once()

		_, err := store.AddComment(ctx, "p-1", "agreed", &parent)

		require.NoError(t, err)
		assert.Zero(t, store.Posts()[0].CommentsCount)
	})

	t.Run("failure returns nil and leaves the count", func(t *testing.T) {
		gw, store := setup(t)

		gw.On("AddComment", ctx, "tok", "p-1", "x", (*string)(nil)).
			Return(nil, errors.New("boom")).Once()

		comment, err := store.AddComment(ctx, "p-1", "x", nil)

		assert.Error(t, err)
		assert.Nil(t, comment)
		assert.Zero(t, store.Posts()[0].CommentsCount)
	})
}

func TestSharePost(t *testing.T) {
	ctx := context.Background()

	t.Run("updates shares_count on the source post", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{testPost("p-1")}, metaPage(1, 1), nil).Once()
		_, err := store.LoadFeed(ctx, 1, SortNewest)
		require.NoError(t, err)

		gw.On("SharePost", ctx, "tok", "p-1", "", false).
			Return(&model.ShareResult{SharesCount: 7}, nil).Once()

		_, err = store.SharePost(ctx, "p-1", "", false)

		require.NoError(t, err)
		assert.Equal(t, 7, store.Posts()[0].SharesCount)
		assert.Len(t, store.Posts(), 1)
	})

	t.Run("share to timeline prepends the wrapper post", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{testPost("p-1")}, metaPage(1, 1), nil).Once()
		_, err := store.LoadFeed(ctx, 1, SortNewest)
		require.NoError(t, err)

		wrapper := testPost("p-9")
		gw.On("SharePost", ctx, "tok", "p-1", "look at this", true).
			Return(&model.ShareResult{SharesCount: 1, SharedPost: &wrapper}, nil).Once()

		_, err = store.SharePost(ctx, "p-1", "look at this", true)

		require.NoError(t, err)
		posts := store.Posts()
		assert.Len(t, posts, 2)
		assert.Equal(t, "p-9", posts[0].ID)
	})
}

func TestUpdateAndDeletePost(t *testing.T) {
	ctx := context.Background()

	t.Run("update patches in place only after confirmation", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{testPost("p-1"), testPost("p-2")}, metaPage(1, 1), nil).Once()
		_, err := store.LoadFeed(ctx, 1, SortNewest)
		require.NoError(t, err)

		newContent := "edited"
		updated := testPost("p-1")
		updated.Content = &newContent
		gw.On("UpdatePost", ctx, "tok", "p-1", mock.Anything).Return(&updated, nil).Once()

		_, err = store.UpdatePost(ctx, "p-1", model.PostUpdate{Content: &newContent})

		require.NoError(t, err)
		assert.Equal(t, "edited", *store.Posts()[0].Content)
		assert.Equal(t, "p-2", store.Posts()[1].ID)
	})

	t.Run("rejected update leaves local copy alone", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{testPost("p-1")}, metaPage(1, 1), nil).Once()
		_, err := store.LoadFeed(ctx, 1, SortNewest)
		require.NoError(t, err)

		gw.On("UpdatePost", ctx, "tok", "p-1", mock.Anything).
			Return(nil, &platform.APIError{Status: 403, Details: []string{"visibility change rejected"}}).Once()

		v := model.VisibilityPrivate
		_, err = store.UpdatePost(ctx, "p-1", model.PostUpdate{Visibility: &v})

		assert.Error(t, err)
		assert.Equal(t, "post p-1", *store.Posts()[0].Content)
	})

	t.Run("delete removes by id after confirmation", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{testPost("p-1"), testPost("p-2")}, metaPage(1, 1), nil).Once()
		_, err := store.LoadFeed(ctx, 1, SortNewest)
		require.NoError(t, err)

		gw.On("DeletePost", ctx, "tok", "p-1").Return(nil).Once()

		require.NoError(t, store.DeletePost(ctx, "p-1"))
		posts := store.Posts()
		assert.Len(t, posts, 1)
		assert.Equal(t, "p-2", posts[0].ID)
	})
}

func TestDeepLinkFetches(t *testing.T) {
	ctx := context.Background()

	t.Run("loadPost works without the post being in the list", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		target := testPost("p-42")
		gw.On("FetchPost", ctx, "tok", "p-42").Return(&target, nil).Once()

		post, err := store.LoadPost(ctx, "p-42")

		require.NoError(t, err)
		assert.Equal(t, "p-42", post.ID)
		assert.Empty(t, store.Posts())
	})
}
