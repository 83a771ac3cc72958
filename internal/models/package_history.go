package models

import "time"

// PackageHistory 套餐购买记录
// 佣金基数的唯一事实来源，写入后不可变更。
type PackageHistory struct {
	ID         uint      `gorm:"primarykey" json:"id"`                                     // 主键
	PurchaseNo string    `gorm:"type:varchar(64);not null;index" json:"purchase_no"`       // 购买单号（同一次购买的多行共享）
	UserID     uint      `gorm:"not null;index" json:"user_id"`                            // 买家用户ID
	PackageID  uint      `gorm:"not null;index" json:"package_id"`                         // 套餐ID
	Quantity   int       `gorm:"not null;default:1" json:"quantity"`                       // 购买数量
	UnitPrice  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"`  // 成交单价
	TotalPrice Money     `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"` // 行总价
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                                  // 购买时间
}

// TableName 指定表名
func (PackageHistory) TableName() string {
	return "package_histories"
}
