package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"feed_gateway/internal/domain/mention/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSearchGateway 可控的搜索桩：记录查询并按表返回
type fakeSearchGateway struct {
	mu      sync.Mutex
	queries []string
	results map[string][]model.MentionUser
	delay   time.Duration
}

func (f *fakeSearchGateway) SearchUsers(ctx context.Context, token, query string, limit int) ([]model.MentionUser, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.results[query], nil
}

func (f *fakeSearchGateway) queryList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.queries))
	copy(out, f.queries)
	return out
}

func user(name string) model.MentionUser {
	return model.MentionUser{ID: "u-" + name, Username: name, DisplayName: name}
}

func TestResolverDetection(t *testing.T) {
	gw := &fakeSearchGateway{results: map[string][]model.MentionUser{}}
	r := NewResolver(gw, "tok", 5*time.Millisecond)

	t.Run("no at sign means no mention", func(t *testing.T) {
		state := r.Input("hello world", 11)
		assert.False(t, state.Active)
	})

	t.Run("at sign directly before caret starts a mention", func(t *testing.T) {
		state := r.Input("hello @", 7)
		assert.True(t, state.Active)
		assert.Empty(t, state.Query)
	})

	t.Run("whitespace between at and caret cancels detection", func(t *testing.T) {
		state := r.Input("hello @al pha", 13)
		assert.False(t, state.Active)
	})

	t.Run("newline between at and caret cancels detection", func(t *testing.T) {
		state := r.Input("hey @al\npha", 11)
		assert.False(t, state.Active)
	})

	t.Run("query is the text between at and caret", func(t *testing.T) {
		state := r.Input("hello @alic", 11)
		assert.True(t, state.Active)
		assert.Equal(t, "alic", state.Query)
	})

	t.Run("caret in the middle of a token queries the left part", func(t *testing.T) {
		state := r.Input("hello @alice", 9) // caret after "@al"
		assert.True(t, state.Active)
		assert.Equal(t, "al", state.Query)
	})
}

func TestResolverDebounce(t *testing.T) {
	t.Run("search fires after the debounce window", func(t *testing.T) {
		gw := &fakeSearchGateway{results: map[string][]model.MentionUser{
			"al": {user("alice"), user("albert")},
		}}
		r := NewResolver(gw, "tok", 10*time.Millisecond)

		r.Input("hello @al", 9)

		assert.Eventually(t, func() bool {
			return len(r.Snapshot().Suggestions) == 2
		}, time.Second, 2*time.Millisecond)
		assert.Equal(t, []string{"al"}, gw.queryList())
	})

	t.Run("rapid keystrokes collapse into the last query", func(t *testing.T) {
		gw := &fakeSearchGateway{results: map[string][]model.MentionUser{
			"alice": {user("alice")},
		}}
		r := NewResolver(gw, "tok", 20*time.Millisecond)

		r.Input("@a", 2)
		r.Input("@al", 3)
		r.Input("@ali", 4)
		r.Input("@alic", 5)
		r.Input("@alice", 6)

		assert.Eventually(t, func() bool {
			return len(r.Snapshot().Suggestions) == 1
		}, time.Second, 2*time.Millisecond)
		// 前面的键入还没到防抖窗口就被替换掉了
		assert.Equal(t, []string{"alice"}, gw.queryList())
	})

	t.Run("stale results are dropped after dismiss", func(t *testing.T) {
		gw := &fakeSearchGateway{
			results: map[string][]model.MentionUser{"al": {user("alice")}},
			delay:   20 * time.Millisecond,
		}
		r := NewResolver(gw, "tok", time.Millisecond)

		r.Input("@al", 3)
		time.Sleep(5 * time.Millisecond) // 让定时器触发、搜索挂起
		r.Dismiss()

		time.Sleep(40 * time.Millisecond)
		assert.Empty(t, r.Snapshot().Suggestions)
		assert.False(t, r.Snapshot().Active)
	})
}

func TestResolverSelection(t *testing.T) {
	newReady := func(t *testing.T) *Resolver {
		gw := &fakeSearchGateway{results: map[string][]model.MentionUser{
			"a": {user("alice"), user("albert"), user("anna")},
		}}
		r := NewResolver(gw, "tok", time.Millisecond)
		r.Input("@a", 2)
		require.Eventually(t, func() bool {
			return len(r.Snapshot().Suggestions) == 3
		}, time.Second, time.Millisecond)
		return r
	}

	t.Run("movement clamps at both ends without wrapping", func(t *testing.T) {
		r := newReady(t)

		assert.Equal(t, 0, r.MoveSelection(-1).Selected)
		assert.Equal(t, 1, r.MoveSelection(1).Selected)
		assert.Equal(t, 2, r.MoveSelection(1).Selected)
		assert.Equal(t, 2, r.MoveSelection(1).Selected)
		assert.Equal(t, 1, r.MoveSelection(-1).Selected)
	})

	t.Run("commit uses the highlighted candidate", func(t *testing.T) {
		r := newReady(t)
		r.MoveSelection(1) // albert

		result, ok := r.Commit("")

		require.True(t, ok)
		assert.Equal(t, "@albert ", result.Text)
		assert.Equal(t, 8, result.Caret)
	})
}

func TestResolverCommit(t *testing.T) {
	newWith := func(t *testing.T, text string, caret int, query string, users ...model.MentionUser) *Resolver {
		gw := &fakeSearchGateway{results: map[string][]model.MentionUser{query: users}}
		r := NewResolver(gw, "tok", time.Millisecond)
		r.Input(text, caret)
		require.Eventually(t, func() bool {
			return len(r.Snapshot().Suggestions) == len(users)
		}, time.Second, time.Millisecond)
		return r
	}

	t.Run("splices at the detected boundary with trailing space", func(t *testing.T) {
		r := newWith(t, "hello @al", 9, "al", user("alice"))

		result, ok := r.Commit("alice")

		require.True(t, ok)
		assert.Equal(t, "hello @alice ", result.Text)
		assert.Equal(t, 13, result.Caret) // 紧跟插入的空格之后
	})

	t.Run("replaces through the end of the in-progress token", func(t *testing.T) {
		// 光标在 "@al" 后面，token 剩下的 "xxx" 一并被替换掉
		r := newWith(t, "hey @alxxx", 7, "al", user("alice"))

		result, ok := r.Commit("alice")

		require.True(t, ok)
		assert.Equal(t, "hey @alice ", result.Text)
		assert.Equal(t, 11, result.Caret)
	})

	t.Run("commit dismisses the panel", func(t *testing.T) {
		r := newWith(t, "@al", 3, "al", user("alice"))

		_, ok := r.Commit("")
		require.True(t, ok)

		state := r.Snapshot()
		assert.False(t, state.Active)
		assert.Empty(t, state.Suggestions)
	})

	t.Run("commit without an active mention is refused", func(t *testing.T) {
		gw := &fakeSearchGateway{results: map[string][]model.MentionUser{}}
		r := NewResolver(gw, "tok", time.Millisecond)
		r.Input("plain text", 10)

		_, ok := r.Commit("alice")
		assert.False(t, ok)
	})

	t.Run("multibyte text keeps rune-accurate caret", func(t *testing.T) {
		r := newWith(t, "你好 @al", 6, "al", user("alice"))

		result, ok := r.Commit("alice")

		require.True(t, ok)
		assert.Equal(t, "你好 @alice ", result.Text)
		assert.Equal(t, 10, result.Caret)
	})
}
