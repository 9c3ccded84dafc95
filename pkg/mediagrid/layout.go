// Package mediagrid 根据帖子媒体数量计算确定性的九宫格布局。
// 纯函数，不持有任何状态，供前端直接按 cell 渲染。
package mediagrid

import "fmt"

// MaxVisible 最多展示的媒体块数量，超出部分折叠为角标
const MaxVisible = 4

// CellWidth 单元格宽度
type CellWidth string

const (
	WidthFull CellWidth = "full" // 整行
	WidthHalf CellWidth = "half" // 半行
)

// Cell 一个可见媒体块的位置
type Cell struct {
	MediaIndex int       `json:"media_index"` // 对应媒体列表中的下标
	Row        int       `json:"row"`
	Width      CellWidth `json:"width"`
}

// Layout 布局结果
type Layout struct {
	Cells    []Cell `json:"cells"`
	Overflow int    `json:"overflow"` // 未展示的媒体数量，0 表示全部可见
}

// Compute 按展示数量返回固定布局：
//
//	1 张: 整行
//	2 张: 两半行并排
//	3 张: 两半行 + 下方整行
//	4 张: 2x2 半行
//
// count > 4 时只排前 4 张，最后一格由调用方叠加 "+N" 角标，
// 点击角标进入帖子详情页而不是媒体查看器。
func Compute(count int) Layout {
	if count <= 0 {
		return Layout{}
	}

	shown := count
	if shown > MaxVisible {
		shown = MaxVisible
	}

	var cells []Cell
	switch shown {
	case 1:
		cells = []Cell{{MediaIndex: 0, Row: 0, Width: WidthFull}}
	case 2:
		cells = []Cell{
			{MediaIndex: 0, Row: 0, Width: WidthHalf},
			{MediaIndex: 1, Row: 0, Width: WidthHalf},
		}
	case 3:
		cells = []Cell{
			{MediaIndex: 0, Row: 0, Width: WidthHalf},
			{MediaIndex: 1, Row: 0, Width: WidthHalf},
			{MediaIndex: 2, Row: 1, Width: WidthFull},
		}
	case 4:
		cells = []Cell{
			{MediaIndex: 0, Row: 0, Width: WidthHalf},
			{MediaIndex: 1, Row: 0, Width: WidthHalf},
			{MediaIndex: 2, Row: 1, Width: WidthHalf},
			{MediaIndex: 3, Row: 1, Width: WidthHalf},
		}
	}

	overflow := 0
	if count > MaxVisible {
		overflow = count - MaxVisible
	}

	return Layout{Cells: cells, Overflow: overflow}
}

// Badge 角标文案，无折叠时返回空串
func (l Layout) Badge() string {
	if l.Overflow == 0 {
		return ""
	}
	return fmt.Sprintf("+%d", l.Overflow)
}
