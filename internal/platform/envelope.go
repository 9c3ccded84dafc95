package platform

import "encoding/json"

// Envelope 平台 API 的统一响应信封
// 所有端点都返回 { ok, status, data?, errors?, meta? }
type Envelope struct {
	OK     bool            `json:"ok"`
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []ErrorDetail   `json:"errors,omitempty"`
	Meta   *Meta           `json:"meta,omitempty"`
}

// ErrorDetail 平台侧校验错误条目
type ErrorDetail struct {
	Detail string `json:"detail"`
}

// Meta 分页与计数元信息
type Meta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	UnreadCount int `json:"unread_count,omitempty"` // 仅通知端点返回
}

// HasMore current_page < last_page 时还有下一页
func (m *Meta) HasMore() bool {
	if m == nil {
		return false
	}
	return m.CurrentPage < m.LastPage
}
