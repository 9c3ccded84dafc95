package platform

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable 传输层失败（连接、超时、解析）
var ErrUnavailable = errors.New("platform unavailable")

// APIError 平台返回 ok=false 时的业务错误
type APIError struct {
	Status  int
	Details []string
}

func (e *APIError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("platform error (status %d)", e.Status)
	}
	return fmt.Sprintf("platform error (status %d): %s", e.Status, strings.Join(e.Details, "; "))
}

// Detail 第一条错误明细，用于直接展示给用户
func (e *APIError) Detail() string {
	if len(e.Details) == 0 {
		return "request rejected by platform"
	}
	return e.Details[0]
}

// AsAPIError 提取 APIError，非业务错误返回 nil
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
