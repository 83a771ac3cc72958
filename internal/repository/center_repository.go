package repository

import (
	"errors"

	"github.com/fenxiao-next/internal/models"

	"gorm.io/gorm"
)

// CenterRepository 服务中心数据访问接口
type CenterRepository interface {
	GetManagerByUserID(userID uint) (*models.CenterManager, error)
	GetManagersByUserIDs(userIDs []uint) ([]models.CenterManager, error)
	ListManagers() ([]models.CenterManager, error)
	SaveManager(manager *models.CenterManager) error
	ListLinksByUser(userID uint) ([]models.UserCenterLink, error)
	ReplaceLinksForUser(userID uint, links []models.UserCenterLink) error
	WithTx(tx *gorm.DB) *GormCenterRepository
}

// GormCenterRepository GORM 服务中心仓储实现
type GormCenterRepository struct {
	db *gorm.DB
}

// NewCenterRepository 创建服务中心仓库
func NewCenterRepository(db *gorm.DB) *GormCenterRepository {
	return &GormCenterRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCenterRepository) WithTx(tx *gorm.DB) *GormCenterRepository {
	if tx == nil {
		return r
	}
	return &GormCenterRepository{db: tx}
}

// GetManagerByUserID 获取服务中心管理人
func (r *GormCenterRepository) GetManagerByUserID(userID uint) (*models.CenterManager, error) {
	if userID == 0 {
		return nil, nil
	}
	var manager models.CenterManager
	if err := r.db.Where("user_id = ?", userID).First(&manager).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &manager, nil
}

// GetManagersByUserIDs 批量获取服务中心管理人
func (r *GormCenterRepository) GetManagersByUserIDs(userIDs []uint) ([]models.CenterManager, error) {
	if len(userIDs) == 0 {
		return []models.CenterManager{}, nil
	}
	var managers []models.CenterManager
	if err := r.db.Where("user_id IN ?", userIDs).Find(&managers).Error; err != nil {
		return nil, err
	}
	return managers, nil
}

// ListManagers 获取全部服务中心管理人
func (r *GormCenterRepository) ListManagers() ([]models.CenterManager, error) {
	managers := make([]models.CenterManager, 0)
	if err := r.db.Order("id ASC").Find(&managers).Error; err != nil {
		return nil, err
	}
	return managers, nil
}

// SaveManager 创建或更新服务中心管理人
func (r *GormCenterRepository) SaveManager(manager *models.CenterManager) error {
	return r.db.Save(manager).Error
}

// ListLinksByUser 获取用户的服务中心邻近关系（按距离与顺位排序）
func (r *GormCenterRepository) ListLinksByUser(userID uint) ([]models.UserCenterLink, error) {
	if userID == 0 {
		return []models.UserCenterLink{}, nil
	}
	var links []models.UserCenterLink
	if err := r.db.Where("user_id = ?", userID).
		Order("distance ASC, rank ASC").
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

// ReplaceLinksForUser 整体替换用户的服务中心邻近关系
func (r *GormCenterRepository) ReplaceLinksForUser(userID uint, links []models.UserCenterLink) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).
			Delete(&models.UserCenterLink{}).Error; err != nil {
			return err
		}
		for i := range links {
			links[i].ID = 0
			links[i].UserID = userID
		}
		if len(links) == 0 {
			return nil
		}
		return tx.Create(&links).Error
	})
}
