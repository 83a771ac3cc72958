package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferralCommission 推荐返佣记录
// 每条对应 (购买记录行 × 命中层级 × 有资格的受益人)。
type ReferralCommission struct {
	ID                uint            `gorm:"primarykey" json:"id"`                                                                 // 主键
	BuyerUserID       uint            `gorm:"not null;index" json:"buyer_user_id"`                                                  // 买家用户ID
	BeneficiaryUserID uint            `gorm:"not null;index;index:idx_referral_commission_unique,unique" json:"beneficiary_user_id"` // 受益人用户ID
	HistoryID         uint            `gorm:"not null;index;index:idx_referral_commission_unique,unique" json:"history_id"`         // 购买记录ID
	Level             int             `gorm:"not null;index:idx_referral_commission_unique,unique" json:"level"`                    // 上级层数
	Percent           decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"percent"`                                 // 返佣百分比
	BaseAmount        Money           `gorm:"type:decimal(20,2);not null;default:0" json:"base_amount"`                             // 佣金基数
	CommissionAmount  Money           `gorm:"type:decimal(20,2);not null;default:0" json:"commission_amount"`                       // 佣金金额
	Status            string          `gorm:"type:varchar(32);not null;index" json:"status"`                                        // 佣金状态
	CreatedAt         time.Time       `gorm:"index" json:"created_at"`                                                              // 创建时间
}

// TableName 指定表名
func (ReferralCommission) TableName() string {
	return "referral_commissions"
}
