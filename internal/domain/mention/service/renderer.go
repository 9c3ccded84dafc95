package service

import (
	"regexp"
	"sync"
)

// Segment 展示文本的一段：纯文本或提及
type Segment struct {
	Type     string `json:"type"` // text, mention
	Text     string `json:"text"`
	Username string `json:"username,omitempty"` // 仅 mention 段有值，用于跳转个人主页
}

const (
	SegmentText    = "text"
	SegmentMention = "mention"
)

// mentionPattern @ 后跟一个以上的字母数字、下划线或点
var mentionPattern = regexp.MustCompile(`@[A-Za-z0-9_.]+`)

// 解析结果按原文 memoize，信息流滚动时同一段文本会被反复渲染
var (
	parseCacheMu sync.Mutex
	parseCache   = make(map[string][]Segment)
)

const parseCacheLimit = 4096

// Parse 把已发布文本切成 text/mention 交替的段序列
// 纯函数：只处理已写好的文本，和输入期的 Resolver 无关
func Parse(text string) []Segment {
	if text == "" {
		return nil
	}

	parseCacheMu.Lock()
	if cached, ok := parseCache[text]; ok {
		parseCacheMu.Unlock()
		return cached
	}
	parseCacheMu.Unlock()

	var segments []Segment
	last := 0
	for _, loc := range mentionPattern.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			segments = append(segments, Segment{Type: SegmentText, Text: text[last:loc[0]]})
		}
		match := text[loc[0]:loc[1]]
		segments = append(segments, Segment{
			Type:     SegmentMention,
			Text:     match,
			Username: match[1:], // 去掉 @
		})
		last = loc[1]
	}
	if last < len(text) {
		segments = append(segments, Segment{Type: SegmentText, Text: text[last:]})
	}

	parseCacheMu.Lock()
	if len(parseCache) >= parseCacheLimit {
		// 简单清空，避免无界增长
		parseCache = make(map[string][]Segment)
	}
	parseCache[text] = segments
	parseCacheMu.Unlock()

	return segments
}
