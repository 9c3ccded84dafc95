package model

// MentionUser 提及候选用户
// 来自平台搜索接口，只活在当前候选列表里，不做客户端持久化
type MentionUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}
