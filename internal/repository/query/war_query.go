// Package query 定义仓储层的查询参数对象。
package query

import (
	"time"

	"rpgwar-self/internal/entity/game_runtime"
)

// Pagination 分页参数
type Pagination struct {
	Page     int `json:"page,omitempty"`      // 页码，从1开始
	PageSize int `json:"page_size,omitempty"` // 每页大小
	Offset   int `json:"-"`                   // 偏移量，内部计算
}

// Normalize 规范化分页参数并计算偏移量
func (p *Pagination) Normalize() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	p.Offset = (p.Page - 1) * p.PageSize
}

// WarQuery 战争历史查询参数
type WarQuery struct {
	// 过滤
	Kingdom        string                 `json:"kingdom,omitempty"`         // 守方或攻方包含该王国
	Status         game_runtime.WarStatus `json:"status,omitempty"`          // 为空则不过滤
	ScheduledAfter *time.Time             `json:"scheduled_after,omitempty"` // 时段下界（含）

	Pagination
}
