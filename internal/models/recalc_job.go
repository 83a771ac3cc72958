package models

import "time"

// RecalcJob 等级重算任务
// 持久化队列记录，(owner_id, lease_expiry) 即租约，除 CAS 更新外不依赖任何锁服务。
type RecalcJob struct {
	ID          uint       `gorm:"primarykey" json:"id"`                                // 主键
	UserID      uint       `gorm:"not null;index" json:"user_id"`                       // 起点用户ID
	Reason      string     `gorm:"type:varchar(64);not null;index" json:"reason"`       // 触发原因
	PayloadJSON JSON       `gorm:"type:json" json:"payload"`                            // 任务载荷
	DedupeKey   *string    `gorm:"type:varchar(128);uniqueIndex" json:"dedupe_key"`     // 去重键（同一逻辑事件可安全重复入队）
	Status      string     `gorm:"type:varchar(32);not null;index" json:"status"`       // 任务状态
	OwnerID     string     `gorm:"type:varchar(128);index;default:''" json:"owner_id"`  // 当前租约持有者
	LeaseExpiry *time.Time `gorm:"index" json:"lease_expiry,omitempty"`                 // 租约到期时间
	HeartbeatAt *time.Time `gorm:"index" json:"heartbeat_at,omitempty"`                 // 最近心跳时间
	Attempts    int        `gorm:"not null;default:0" json:"attempts"`                  // 被认领次数
	LastError   string     `gorm:"type:varchar(500);default:''" json:"last_error"`      // 最近一次错误摘要
	CompletedAt *time.Time `gorm:"index" json:"completed_at,omitempty"`                 // 完成时间
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`                             // 创建时间
	UpdatedAt   time.Time  `gorm:"index" json:"updated_at"`                             // 更新时间
}

// TableName 指定表名
func (RecalcJob) TableName() string {
	return "recalc_jobs"
}
