package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Package 套餐表
type Package struct {
	ID        uint           `gorm:"primarykey" json:"id"`                             // 主键
	Code      string         `gorm:"uniqueIndex;not null" json:"code"`                 // 唯一标识
	NameJSON  JSON           `gorm:"type:json;not null" json:"name"`                   // 多语言名称
	Price     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"` // 单价
	Status    string         `gorm:"type:varchar(32);not null;default:'active';index" json:"status"` // 状态
	SortOrder int            `gorm:"default:0;index" json:"sort_order"`                // 排序权重
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                          // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                          // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                   // 软删除时间

	Rates []PackageRate `gorm:"foreignKey:PackageID" json:"rates,omitempty"` // 推荐返佣比例
}

// TableName 指定表名
func (Package) TableName() string {
	return "packages"
}

// PackageRate 套餐逐层返佣比例
// level 表示第几层上级，percent 为百分比值，不校验各层之和。
type PackageRate struct {
	ID        uint            `gorm:"primarykey" json:"id"`                                                      // 主键
	PackageID uint            `gorm:"not null;index;index:idx_package_rate_unique,unique" json:"package_id"`     // 套餐ID
	Level     int             `gorm:"not null;index:idx_package_rate_unique,unique" json:"level"`                // 上级层数（1 = 直接上级）
	Percent   decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"percent"`                      // 返佣百分比
	CreatedAt time.Time       `gorm:"index" json:"created_at"`                                                   // 创建时间
}

// TableName 指定表名
func (PackageRate) TableName() string {
	return "package_rates"
}

// OwnedPackage 用户持有套餐表
// 佣金资格判断依据：持有任意套餐数量 ≥ 1 才可获得返佣。
type OwnedPackage struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                                   // 主键
	UserID    uint      `gorm:"not null;index;index:idx_owned_package_unique,unique" json:"user_id"`    // 用户ID
	PackageID uint      `gorm:"not null;index;index:idx_owned_package_unique,unique" json:"package_id"` // 套餐ID
	Quantity  int       `gorm:"not null;default:0" json:"quantity"`                                     // 持有数量
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                                // 创建时间
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`                                                // 更新时间
}

// TableName 指定表名
func (OwnedPackage) TableName() string {
	return "owned_packages"
}
