package models

import (
	"time"

	"gorm.io/gorm"
)

// WalletAccount 钱包账户
// 每个 (用户, 币种) 一行，购买扣款时对该行加排他锁。
type WalletAccount struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                                // 主键
	UserID    uint           `gorm:"not null;index;index:idx_wallet_account_unique,unique" json:"user_id"` // 用户ID
	Token     string         `gorm:"type:varchar(32);not null;index:idx_wallet_account_unique,unique" json:"token"` // 币种
	Balance   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`                // 余额
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                                             // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                                             // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                                      // 软删除时间
}

// TableName 指定表名
func (WalletAccount) TableName() string {
	return "wallet_accounts"
}

// WalletTransaction 钱包流水（追加式账本）
// reference 唯一，天然幂等：同一业务事件重复入账会被唯一约束拒绝。
type WalletTransaction struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                        // 主键
	UserID        uint      `gorm:"not null;index" json:"user_id"`                               // 用户ID
	Token         string    `gorm:"type:varchar(32);not null;index" json:"token"`                // 币种
	Type          string    `gorm:"type:varchar(32);not null;index" json:"type"`                 // 交易类型
	Direction     string    `gorm:"type:varchar(8);not null;index" json:"direction"`             // 方向（in/out）
	Amount        Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`         // 交易金额
	BalanceBefore Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance_before"` // 交易前余额
	BalanceAfter  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"balance_after"`  // 交易后余额
	Reference     string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"reference"`     // 业务参考号（幂等键）
	Remark        string    `gorm:"type:varchar(255);default:''" json:"remark"`                  // 备注
	CreatedAt     time.Time `gorm:"index" json:"created_at"`                                     // 创建时间
}

// TableName 指定表名
func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
