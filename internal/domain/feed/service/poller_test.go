package service

import (
	"context"
	"testing"
	"time"

	"feed_gateway/internal/domain/feed/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPoller(t *testing.T) {
	ctx := context.Background()

	t.Run("ticks raise the new-post counter", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		gw.On("FetchFeed", ctx, "tok", SortNewest, 1, 10).
			Return([]model.Post{testPost("p-1")}, metaPage(1, 1), nil).Once()
		_, err := store.LoadFeed(ctx, 1, SortNewest)
		require.NoError(t, err)

		gw.On("NewPostCount", mock.Anything, "tok", "p-1").
			Return(&model.NewPostCheck{Count: 2, HasNewPosts: true}, nil)

		poller := NewPoller(store, 10*time.Millisecond)
		poller.Start(ctx)
		defer poller.Stop()

		assert.Eventually(t, func() bool {
			return store.NewCount() == 2
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("never polls before the first page load", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		poller := NewPoller(store, 5*time.Millisecond)
		poller.Start(ctx)
		time.Sleep(30 * time.Millisecond)
		poller.Stop()

		gw.AssertNotCalled(t, "NewPostCount")
	})

	t.Run("stop is idempotent and terminates the task", func(t *testing.T) {
		gw := new(MockFeedGateway)
		store := NewStore(gw, "tok", 10)

		poller := NewPoller(store, 5*time.Millisecond)
		poller.Start(ctx)
		poller.Stop()
		poller.Stop()
	})
}
