package model

import (
	feedmodel "feed_gateway/internal/domain/feed/model"
)

// WalletCoin 钱包里的一种币及其余额
// Balance 为 0 表示余额未知（钱包侧还没同步过来）
type WalletCoin struct {
	Symbol  string  `json:"symbol"`
	Balance float64 `json:"balance"`
}

// UploadState 单个文件的上传进度
type UploadState struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Percent  int    `json:"percent"`
	Error    string `json:"error,omitempty"`
}

// Snapshot 向导当前的完整状态，交给界面渲染
type Snapshot struct {
	Open             bool                  `json:"open"`
	Step             string                `json:"step"`
	Content          string                `json:"content"`
	Visibility       string                `json:"visibility"`
	Media            []feedmodel.MediaItem `json:"media"`
	Uploads          []UploadState         `json:"uploads"`
	RewardEnabled    bool                  `json:"reward_enabled"`
	RewardCoinSymbol string                `json:"reward_coin_symbol,omitempty"`
	RewardPool       float64               `json:"reward_pool,omitempty"`
	RewardRule       feedmodel.RewardRule  `json:"reward_rule"`
}
