package models

import "time"

// LevelRequirement 等级规则条目
// 规则树的扁平存储：同一 (level, group_ordinal) 的条目为 AND 关系，
// 同一 level 的不同 group_ordinal 之间为 OR 关系。
type LevelRequirement struct {
	ID           uint      `gorm:"primarykey" json:"id"`                           // 主键
	Level        int       `gorm:"not null;index" json:"level"`                    // 目标等级
	GroupOrdinal int       `gorm:"not null;default:1" json:"group_ordinal"`        // 条件组序号
	Kind         string    `gorm:"type:varchar(64);not null;index" json:"kind"`    // 条件类型
	Amount       Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"` // 金额阈值（金额类条件）
	Count        int       `gorm:"not null;default:0" json:"count"`                // 数量阈值（数量类条件）
	TargetLevel  int       `gorm:"not null;default:0" json:"target_level"`         // 直推下级需达到的等级
	CreatedAt    time.Time `gorm:"index" json:"created_at"`                        // 创建时间
	UpdatedAt    time.Time `gorm:"index" json:"updated_at"`                        // 更新时间
}

// TableName 指定表名
func (LevelRequirement) TableName() string {
	return "level_requirements"
}
