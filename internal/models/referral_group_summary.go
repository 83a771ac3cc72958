package models

import "time"

// ReferralGroupSummary 分组销量汇总
// 按 (用户, 分组号) 汇总经由该分支向上滚动的购买总额，只增不减。
type ReferralGroupSummary struct {
	ID          uint      `gorm:"primarykey" json:"id"`                                                     // 主键
	UserID      uint      `gorm:"not null;index;index:idx_group_summary_unique,unique" json:"user_id"`      // 用户ID
	GroupNo     int       `gorm:"not null;default:1;index:idx_group_summary_unique,unique" json:"group_no"` // 分组号
	SalesVolume Money     `gorm:"type:decimal(20,2);not null;default:0" json:"sales_volume"`                // 累计销量
	CreatedAt   time.Time `gorm:"index" json:"created_at"`                                                  // 创建时间
	UpdatedAt   time.Time `gorm:"index" json:"updated_at"`                                                  // 更新时间
}

// TableName 指定表名
func (ReferralGroupSummary) TableName() string {
	return "referral_group_summaries"
}
