package models

import "time"

// ReferralEdge 推荐关系边
// 每个用户只有一条入边（树结构），depth = 上级 depth + 1，根节点 depth = 1。
type ReferralEdge struct {
	ID        uint      `gorm:"primarykey" json:"id"`                     // 主键
	ParentID  uint      `gorm:"not null;index" json:"parent_id"`          // 上级用户ID
	ChildID   uint      `gorm:"not null;uniqueIndex" json:"child_id"`     // 下级用户ID（唯一，保证树结构）
	GroupNo   int       `gorm:"not null;default:1;index" json:"group_no"` // 挂载分组号
	Position  int       `gorm:"not null;default:1" json:"position"`       // 同 (上级, 分组) 内的顺位
	Depth     int       `gorm:"not null;default:1;index" json:"depth"`    // 树深度
	CreatedAt time.Time `gorm:"index" json:"created_at"`                  // 创建时间
}

// TableName 指定表名
func (ReferralEdge) TableName() string {
	return "referral_edges"
}
