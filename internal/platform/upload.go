package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"feed_gateway/pkg/metrics"
)

// UploadResult /upload 端点返回的媒体描述
type UploadResult struct {
	Type         string            `json:"type"` // image, video
	URL          string            `json:"url"`
	ThumbnailURL string            `json:"thumbnail_url,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// ProgressFunc 上传进度回调，pct 取值 0-100
type ProgressFunc func(pct int)

// Upload 以 multipart 方式把文件转发到平台 /upload
// 进度通过包装 reader 在传输层观测，对应浏览器端的 upload progress 事件
func (c *Client) Upload(ctx context.Context, token, filename, contentType string, src io.Reader, size int64, progress ProgressFunc) (*UploadResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(h)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	body := io.Reader(pr)
	if progress != nil && size > 0 {
		body = &progressReader{r: pr, total: size, report: progress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/upload", body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	cost := time.Since(start)
	if err != nil {
		metrics.Default().ObservePlatformRequest(http.MethodPost, "/upload", 0, cost)
		metrics.Default().ObserveUpload(size, err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	metrics.Default().ObservePlatformRequest(http.MethodPost, "/upload", resp.StatusCode, cost)

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		metrics.Default().ObserveUpload(size, err)
		return nil, fmt.Errorf("%w: decode envelope: %v", ErrUnavailable, err)
	}

	if !env.OK {
		details := make([]string, 0, len(env.Errors))
		for _, e := range env.Errors {
			details = append(details, e.Detail)
		}
		apiErr := &APIError{Status: env.Status, Details: details}
		metrics.Default().ObserveUpload(size, apiErr)
		return nil, apiErr
	}

	var result UploadResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		metrics.Default().ObserveUpload(size, err)
		return nil, fmt.Errorf("%w: decode data: %v", ErrUnavailable, err)
	}

	if progress != nil {
		progress(100)
	}
	metrics.Default().ObserveUpload(size, nil)
	return &result, nil
}

// progressReader 统计已读字节并上报百分比
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	p.read += int64(n)

	pct := int(p.read * 100 / p.total)
	if pct > 99 {
		// 100 由上传成功后统一上报，避免响应未到就显示完成
		pct = 99
	}
	if pct > p.last {
		p.last = pct
		p.report(pct)
	}
	return n, err
}
