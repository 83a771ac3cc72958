package repository

import (
	"errors"

	"github.com/fenxiao-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferralRepository 推荐关系数据访问接口
type ReferralRepository interface {
	GetEdgeByChildID(childID uint) (*models.ReferralEdge, error)
	GetEdgesByChildIDs(childIDs []uint) ([]models.ReferralEdge, error)
	CreateEdge(edge *models.ReferralEdge) error
	ListChildren(parentID uint) ([]models.ReferralEdge, error)
	CountDirectChildren(parentID uint) (int64, error)
	CountDirectChildrenAtLevel(parentID uint, minLevel int) (int64, error)
	MaxGroupNo(userID uint) (int, error)
	MaxPosition(parentID uint, groupNo int) (int, error)
	EnsureGroupSummary(userID uint, groupNo int) error
	IncrementGroupSummary(userID uint, groupNo int, amount models.Money) error
	GetGroupSummaries(userID uint) ([]models.ReferralGroupSummary, error)
	GetGroupSummary(userID uint, groupNo int) (*models.ReferralGroupSummary, error)
	WithTx(tx *gorm.DB) *GormReferralRepository
}

// GormReferralRepository GORM 推荐关系仓储实现
type GormReferralRepository struct {
	db *gorm.DB
}

// NewReferralRepository 创建推荐关系仓库
func NewReferralRepository(db *gorm.DB) *GormReferralRepository {
	return &GormReferralRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReferralRepository) WithTx(tx *gorm.DB) *GormReferralRepository {
	if tx == nil {
		return r
	}
	return &GormReferralRepository{db: tx}
}

// GetEdgeByChildID 获取用户的入边（每个用户至多一条）
func (r *GormReferralRepository) GetEdgeByChildID(childID uint) (*models.ReferralEdge, error) {
	if childID == 0 {
		return nil, nil
	}
	var edge models.ReferralEdge
	if err := r.db.Where("child_id = ?", childID).First(&edge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &edge, nil
}

// GetEdgesByChildIDs 批量获取入边
func (r *GormReferralRepository) GetEdgesByChildIDs(childIDs []uint) ([]models.ReferralEdge, error) {
	if len(childIDs) == 0 {
		return []models.ReferralEdge{}, nil
	}
	var edges []models.ReferralEdge
	if err := r.db.Where("child_id IN ?", childIDs).Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

// CreateEdge 创建推荐关系边
func (r *GormReferralRepository) CreateEdge(edge *models.ReferralEdge) error {
	return r.db.Create(edge).Error
}

// ListChildren 获取直推下级边列表
func (r *GormReferralRepository) ListChildren(parentID uint) ([]models.ReferralEdge, error) {
	if parentID == 0 {
		return []models.ReferralEdge{}, nil
	}
	var edges []models.ReferralEdge
	if err := r.db.Where("parent_id = ?", parentID).
		Order("group_no ASC, position ASC").
		Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

// CountDirectChildren 统计直推下级数量
func (r *GormReferralRepository) CountDirectChildren(parentID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.ReferralEdge{}).
		Where("parent_id = ?", parentID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountDirectChildrenAtLevel 统计等级达到 minLevel 的直推下级数量
func (r *GormReferralRepository) CountDirectChildrenAtLevel(parentID uint, minLevel int) (int64, error) {
	var count int64
	if err := r.db.Model(&models.ReferralEdge{}).
		Joins("JOIN users ON users.id = referral_edges.child_id").
		Where("referral_edges.parent_id = ? AND users.level >= ? AND users.deleted_at IS NULL", parentID, minLevel).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MaxGroupNo 获取用户已汇总的最大分组号（以分组汇总表为准）
func (r *GormReferralRepository) MaxGroupNo(userID uint) (int, error) {
	var max *int
	if err := r.db.Model(&models.ReferralGroupSummary{}).
		Where("user_id = ?", userID).
		Select("MAX(group_no)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// MaxPosition 获取 (上级, 分组) 内已占用的最大顺位
func (r *GormReferralRepository) MaxPosition(parentID uint, groupNo int) (int, error) {
	var max *int
	if err := r.db.Model(&models.ReferralEdge{}).
		Where("parent_id = ? AND group_no = ?", parentID, groupNo).
		Select("MAX(position)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// EnsureGroupSummary 幂等创建零值分组汇总行
func (r *GormReferralRepository) EnsureGroupSummary(userID uint, groupNo int) error {
	if userID == 0 || groupNo <= 0 {
		return nil
	}
	summary := models.ReferralGroupSummary{
		UserID:  userID,
		GroupNo: groupNo,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "group_no"}},
		DoNothing: true,
	}).Create(&summary).Error
}

// IncrementGroupSummary 累加分组销量（行不存在时先补零值行）
func (r *GormReferralRepository) IncrementGroupSummary(userID uint, groupNo int, amount models.Money) error {
	if err := r.EnsureGroupSummary(userID, groupNo); err != nil {
		return err
	}
	return r.db.Model(&models.ReferralGroupSummary{}).
		Where("user_id = ? AND group_no = ?", userID, groupNo).
		Update("sales_volume", gorm.Expr("sales_volume + ?", amount)).Error
}

// GetGroupSummaries 获取用户全部分组汇总
func (r *GormReferralRepository) GetGroupSummaries(userID uint) ([]models.ReferralGroupSummary, error) {
	if userID == 0 {
		return []models.ReferralGroupSummary{}, nil
	}
	var summaries []models.ReferralGroupSummary
	if err := r.db.Where("user_id = ?", userID).
		Order("group_no ASC").
		Find(&summaries).Error; err != nil {
		return nil, err
	}
	return summaries, nil
}

// GetGroupSummary 获取指定分组汇总
func (r *GormReferralRepository) GetGroupSummary(userID uint, groupNo int) (*models.ReferralGroupSummary, error) {
	var summary models.ReferralGroupSummary
	if err := r.db.Where("user_id = ? AND group_no = ?", userID, groupNo).
		First(&summary).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}
