package repository

import (
	"github.com/fenxiao-next/internal/models"

	"gorm.io/gorm"
)

// CommissionRepository 佣金数据访问接口
type CommissionRepository interface {
	CreateReferralCommission(commission *models.ReferralCommission) error
	ListReferralCommissions(filter ReferralCommissionListFilter) ([]models.ReferralCommission, int64, error)
	SumReferralCommission(beneficiaryUserID uint) (models.Money, error)
	CreateCenterCommission(commission *models.CenterCommission) error
	ListCenterCommissions(filter CenterCommissionListFilter) ([]models.CenterCommission, int64, error)
	WithTx(tx *gorm.DB) *GormCommissionRepository
}

// GormCommissionRepository GORM 佣金仓储实现
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金仓库
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) *GormCommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// CreateReferralCommission 创建推荐返佣记录
func (r *GormCommissionRepository) CreateReferralCommission(commission *models.ReferralCommission) error {
	return r.db.Create(commission).Error
}

// ListReferralCommissions 分页查询推荐返佣
func (r *GormCommissionRepository) ListReferralCommissions(filter ReferralCommissionListFilter) ([]models.ReferralCommission, int64, error) {
	query := r.db.Model(&models.ReferralCommission{})

	if filter.BuyerUserID != 0 {
		query = query.Where("buyer_user_id = ?", filter.BuyerUserID)
	}
	if filter.BeneficiaryUserID != 0 {
		query = query.Where("beneficiary_user_id = ?", filter.BeneficiaryUserID)
	}
	if filter.HistoryID != 0 {
		query = query.Where("history_id = ?", filter.HistoryID)
	}
	if filter.Level != 0 {
		query = query.Where("level = ?", filter.Level)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var commissions []models.ReferralCommission
	if err := query.Order("id DESC").Find(&commissions).Error; err != nil {
		return nil, 0, err
	}
	return commissions, total, nil
}

// SumReferralCommission 统计受益人累计返佣金额
func (r *GormCommissionRepository) SumReferralCommission(beneficiaryUserID uint) (models.Money, error) {
	var total models.Money
	if err := r.db.Model(&models.ReferralCommission{}).
		Where("beneficiary_user_id = ?", beneficiaryUserID).
		Select("COALESCE(SUM(commission_amount), 0)").
		Scan(&total).Error; err != nil {
		return models.Money{}, err
	}
	return total, nil
}

// CreateCenterCommission 创建服务中心费用记录
func (r *GormCommissionRepository) CreateCenterCommission(commission *models.CenterCommission) error {
	return r.db.Create(commission).Error
}

// ListCenterCommissions 分页查询服务中心费用
func (r *GormCommissionRepository) ListCenterCommissions(filter CenterCommissionListFilter) ([]models.CenterCommission, int64, error) {
	query := r.db.Model(&models.CenterCommission{})

	if filter.CenterUserID != 0 {
		query = query.Where("center_user_id = ?", filter.CenterUserID)
	}
	if filter.BuyerUserID != 0 {
		query = query.Where("buyer_user_id = ?", filter.BuyerUserID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var commissions []models.CenterCommission
	if err := query.Order("id DESC").Find(&commissions).Error; err != nil {
		return nil, 0, err
	}
	return commissions, total, nil
}
