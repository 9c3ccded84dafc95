package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"feed_gateway/internal/pkg/config"
	"feed_gateway/pkg/logger"
	"feed_gateway/pkg/metrics"

	"go.uber.org/zap"
)

// Client 创作者平台 API 客户端
// 认证、钱包、OAuth 等均在平台侧完成，这里只透传调用方的 Bearer Token
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient 创建平台客户端
func NewClient(cfg config.PlatformConfig) *Client {
	// 优化 HTTP Client 配置
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 100

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		HTTPClient: &http.Client{
			Transport: t,
			Timeout:   timeout,
		},
	}
}

// Get 发起 GET 请求并把 data 解码到 out
func (c *Client) Get(ctx context.Context, token, path string, query url.Values, out interface{}) (*Meta, error) {
	fullPath := path
	if len(query) > 0 {
		fullPath = path + "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, fullPath, token, nil, out)
}

// Post 发起 JSON POST
func (c *Client) Post(ctx context.Context, token, path string, body, out interface{}) (*Meta, error) {
	return c.do(ctx, http.MethodPost, path, token, body, out)
}

// Put 发起 JSON PUT
func (c *Client) Put(ctx context.Context, token, path string, body, out interface{}) (*Meta, error) {
	return c.do(ctx, http.MethodPut, path, token, body, out)
}

// Delete 发起 DELETE
func (c *Client) Delete(ctx context.Context, token, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, token, nil, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) (*Meta, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	cost := time.Since(start)

	endpoint := metricEndpoint(path)
	if err != nil {
		metrics.Default().ObservePlatformRequest(method, endpoint, 0, cost)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	metrics.Default().ObservePlatformRequest(method, endpoint, resp.StatusCode, cost)

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", ErrUnavailable, err)
	}

	if !env.OK {
		details := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			details = append(details, e.Detail)
		}
		status := env.Status
		if status == 0 {
			status = resp.StatusCode
		}
		if logger.Log != nil {
			logger.Log.Warn("platform rejected request",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status", status),
				zap.Strings("details", details),
			)
		}
		return nil, &APIError{Status: status, Details: details}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("%w: decode data: %v", ErrUnavailable, err)
		}
	}

	return env.Meta, nil
}

// metricEndpoint 把具体 ID 归并掉，避免指标标签爆炸
func metricEndpoint(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		// 路径里的资源 ID 统一归并为 :id
		if i > 0 && looksLikeID(p) {
			parts[i] = ":id"
		}
	}
	out := "/" + strings.Join(parts, "/")
	if idx := strings.Index(out, "?"); idx >= 0 {
		out = out[:idx]
	}
	return out
}

func looksLikeID(s string) bool {
	if len(s) < 8 {
		return false
	}
	for _, r := range s {
		if !(r == '-' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			return false
		}
	}
	return true
}
