package repository

import (
	"github.com/fenxiao-next/internal/models"

	"gorm.io/gorm"
)

// LevelRequirementRepository 等级规则数据访问接口
type LevelRequirementRepository interface {
	ListAll() ([]models.LevelRequirement, error)
	ListByLevel(level int) ([]models.LevelRequirement, error)
	MaxLevel() (int, error)
	ReplaceForLevel(level int, requirements []models.LevelRequirement) error
}

// GormLevelRequirementRepository GORM 等级规则仓储实现
type GormLevelRequirementRepository struct {
	db *gorm.DB
}

// NewLevelRequirementRepository 创建等级规则仓库
func NewLevelRequirementRepository(db *gorm.DB) *GormLevelRequirementRepository {
	return &GormLevelRequirementRepository{db: db}
}

// ListAll 获取全部等级规则（按等级与条件组排序）
func (r *GormLevelRequirementRepository) ListAll() ([]models.LevelRequirement, error) {
	requirements := make([]models.LevelRequirement, 0)
	if err := r.db.Order("level ASC, group_ordinal ASC, id ASC").
		Find(&requirements).Error; err != nil {
		return nil, err
	}
	return requirements, nil
}

// ListByLevel 获取指定等级的规则
func (r *GormLevelRequirementRepository) ListByLevel(level int) ([]models.LevelRequirement, error) {
	requirements := make([]models.LevelRequirement, 0)
	if err := r.db.Where("level = ?", level).
		Order("group_ordinal ASC, id ASC").
		Find(&requirements).Error; err != nil {
		return nil, err
	}
	return requirements, nil
}

// MaxLevel 获取配置过规则的最高等级
func (r *GormLevelRequirementRepository) MaxLevel() (int, error) {
	var max *int
	if err := r.db.Model(&models.LevelRequirement{}).
		Select("MAX(level)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// ReplaceForLevel 整体替换指定等级的规则
func (r *GormLevelRequirementRepository) ReplaceForLevel(level int, requirements []models.LevelRequirement) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("level = ?", level).
			Delete(&models.LevelRequirement{}).Error; err != nil {
			return err
		}
		for i := range requirements {
			requirements[i].ID = 0
			requirements[i].Level = level
		}
		if len(requirements) == 0 {
			return nil
		}
		return tx.Create(&requirements).Error
	})
}
