package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"feed_gateway/internal/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(config.PlatformConfig{BaseURL: srv.URL, Timeout: 2 * time.Second})
	return client, srv
}

func TestClientGet(t *testing.T) {
	t.Run("decodes data and meta", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			assert.Equal(t, "/feed", r.URL.Path)
			assert.Equal(t, "newest", r.URL.Query().Get("sort"))
			w.Write([]byte(`{"ok":true,"status":200,"data":{"value":42},"meta":{"current_page":1,"last_page":3,"per_page":10,"total":25}}`))
		})
		defer srv.Close()

		var out struct {
			Value int `json:"value"`
		}
		q := url.Values{"sort": {"newest"}}
		meta, err := client.Get(context.Background(), "tok-1", "/feed", q, &out)

		require.NoError(t, err)
		assert.Equal(t, 42, out.Value)
		assert.Equal(t, 1, meta.CurrentPage)
		assert.Equal(t, 3, meta.LastPage)
		assert.True(t, meta.HasMore())
	})

	t.Run("ok=false becomes APIError with details", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"ok":false,"status":422,"errors":[{"detail":"content too long"},{"detail":"too many media"}]}`))
		})
		defer srv.Close()

		_, err := client.Get(context.Background(), "tok-1", "/feed", nil, nil)

		require.Error(t, err)
		apiErr := AsAPIError(err)
		require.NotNil(t, apiErr)
		assert.Equal(t, 422, apiErr.Status)
		assert.Equal(t, "content too long", apiErr.Detail())
	})

	t.Run("transport failure wraps ErrUnavailable", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {})
		srv.Close() // 连接被拒

		_, err := client.Get(context.Background(), "", "/feed", nil, nil)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Nil(t, AsAPIError(err))
	})

	t.Run("malformed envelope wraps ErrUnavailable", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		})
		defer srv.Close()

		_, err := client.Get(context.Background(), "", "/feed", nil, nil)
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestClientPost(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"ok":true,"status":201,"data":{"id":"p-9"}}`))
	})
	defer srv.Close()

	var out struct {
		ID string `json:"id"`
	}
	_, err := client.Post(context.Background(), "tok", "/feed/posts", map[string]string{"content": "gm"}, &out)

	require.NoError(t, err)
	assert.Equal(t, "p-9", out.ID)
}

func TestClientUpload(t *testing.T) {
	t.Run("forwards multipart and reports terminal progress", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			assert.Equal(t, "cat.png", header.Filename)
			w.Write([]byte(`{"ok":true,"status":201,"data":{"type":"image","url":"https://cdn.example.com/cat.png","thumbnail_url":"https://cdn.example.com/cat_t.png"}}`))
		})
		defer srv.Close()

		payload := strings.Repeat("x", 4096)
		var lastPct int
		result, err := client.Upload(context.Background(), "tok", "cat.png", "image/png",
			strings.NewReader(payload), int64(len(payload)), func(pct int) { lastPct = pct })

		require.NoError(t, err)
		assert.Equal(t, "image", result.Type)
		assert.Equal(t, "https://cdn.example.com/cat.png", result.URL)
		assert.Equal(t, 100, lastPct)
	})

	t.Run("platform rejection surfaces APIError", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok":false,"status":413,"errors":[{"detail":"file too large"}]}`))
		})
		defer srv.Close()

		_, err := client.Upload(context.Background(), "tok", "big.mp4", "video/mp4",
			strings.NewReader("data"), 4, nil)

		apiErr := AsAPIError(err)
		require.NotNil(t, apiErr)
		assert.Equal(t, "file too large", apiErr.Detail())
	})
}

func TestMetricEndpoint(t *testing.T) {
	assert.Equal(t, "/feed", metricEndpoint("/feed"))
	assert.Equal(t, "/feed/posts/:id/like", metricEndpoint("/feed/posts/0a1b2c3d-99/like"))
	assert.Equal(t, "/notifications", metricEndpoint("/notifications"))
}
