package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CenterManager 服务中心管理人
// 费率按生效时间窗口约束，购买发生时校验。
type CenterManager struct {
	ID            uint            `gorm:"primarykey" json:"id"`                                 // 主键
	UserID        uint            `gorm:"not null;uniqueIndex" json:"user_id"`                  // 管理人用户ID
	Percent       decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"percent"` // 服务费百分比
	IsActive      bool            `gorm:"not null;default:true;index" json:"is_active"`         // 是否启用
	EffectiveFrom *time.Time      `gorm:"index" json:"effective_from,omitempty"`                // 生效开始时间
	EffectiveTo   *time.Time      `gorm:"index" json:"effective_to,omitempty"`                  // 生效结束时间
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`                              // 创建时间
	UpdatedAt     time.Time       `gorm:"index" json:"updated_at"`                              // 更新时间
}

// TableName 指定表名
func (CenterManager) TableName() string {
	return "center_managers"
}

// UserCenterLink 用户与服务中心的邻近关系
// 预计算的 (distance, rank) 排序决定费用受益的先后顺序。
type UserCenterLink struct {
	ID           uint      `gorm:"primarykey" json:"id"`                                                       // 主键
	UserID       uint      `gorm:"not null;index;index:idx_user_center_unique,unique" json:"user_id"`          // 用户ID
	CenterUserID uint      `gorm:"not null;index;index:idx_user_center_unique,unique" json:"center_user_id"`   // 服务中心用户ID
	Distance     int       `gorm:"not null;default:0;index" json:"distance"`                                   // 距离
	Rank         int       `gorm:"not null;default:0" json:"rank"`                                             // 同距离内的顺位
	CreatedAt    time.Time `gorm:"index" json:"created_at"`                                                    // 创建时间
}

// TableName 指定表名
func (UserCenterLink) TableName() string {
	return "user_center_links"
}

// CenterCommission 服务中心费用记录
type CenterCommission struct {
	ID              uint            `gorm:"primarykey" json:"id"`                                                              // 主键
	CenterUserID    uint            `gorm:"not null;index;index:idx_center_commission_unique,unique" json:"center_user_id"`   // 服务中心用户ID
	SourceHistoryID uint            `gorm:"not null;index;index:idx_center_commission_unique,unique" json:"source_history_id"` // 来源购买记录ID
	BuyerUserID     uint            `gorm:"not null;index" json:"buyer_user_id"`                                               // 买家用户ID
	Percent         decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"percent"`                              // 服务费百分比
	BaseAmount      Money           `gorm:"type:decimal(20,2);not null;default:0" json:"base_amount"`                          // 费用基数
	Amount          Money           `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`                               // 费用金额
	Status          string          `gorm:"type:varchar(32);not null;index" json:"status"`                                     // 状态
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`                                                           // 创建时间
}

// TableName 指定表名
func (CenterCommission) TableName() string {
	return "center_commissions"
}
