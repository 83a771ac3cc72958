package repository

import (
	"errors"
	"strings"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PackageRepository 套餐数据访问接口
type PackageRepository interface {
	GetByID(id uint) (*models.Package, error)
	GetByIDs(ids []uint) ([]models.Package, error)
	GetByCode(code string) (*models.Package, error)
	List(filter PackageListFilter) ([]models.Package, int64, error)
	Create(pkg *models.Package) error
	Update(pkg *models.Package) error
	Delete(id uint) error
	ReplaceRates(packageID uint, rates []models.PackageRate) error
	UpsertOwned(userID, packageID uint, quantity int) error
	FilterOwnerIDs(userIDs []uint) ([]uint, error)
	CreateHistory(history *models.PackageHistory) error
	GetHistoriesByIDs(ids []uint) ([]models.PackageHistory, error)
	ListHistories(filter PackageHistoryListFilter) ([]models.PackageHistory, int64, error)
	SumHistoryTotal(userID uint) (models.Money, error)
	WithTx(tx *gorm.DB) *GormPackageRepository
}

// GormPackageRepository GORM 套餐仓储实现
type GormPackageRepository struct {
	db *gorm.DB
}

// NewPackageRepository 创建套餐仓库
func NewPackageRepository(db *gorm.DB) *GormPackageRepository {
	return &GormPackageRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPackageRepository) WithTx(tx *gorm.DB) *GormPackageRepository {
	if tx == nil {
		return r
	}
	return &GormPackageRepository{db: tx}
}

// GetByID 获取套餐（含返佣比例）
func (r *GormPackageRepository) GetByID(id uint) (*models.Package, error) {
	if id == 0 {
		return nil, nil
	}
	var pkg models.Package
	if err := r.db.Preload("Rates", func(db *gorm.DB) *gorm.DB {
		return db.Order("level ASC")
	}).First(&pkg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pkg, nil
}

// GetByIDs 批量获取套餐（含返佣比例）
func (r *GormPackageRepository) GetByIDs(ids []uint) ([]models.Package, error) {
	if len(ids) == 0 {
		return []models.Package{}, nil
	}
	var pkgs []models.Package
	if err := r.db.Preload("Rates", func(db *gorm.DB) *gorm.DB {
		return db.Order("level ASC")
	}).Where("id IN ?", ids).Find(&pkgs).Error; err != nil {
		return nil, err
	}
	return pkgs, nil
}

// GetByCode 按唯一标识获取套餐
func (r *GormPackageRepository) GetByCode(code string) (*models.Package, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var pkg models.Package
	if err := r.db.Where("code = ?", code).First(&pkg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pkg, nil
}

// List 分页查询套餐
func (r *GormPackageRepository) List(filter PackageListFilter) ([]models.Package, int64, error) {
	query := r.db.Model(&models.Package{})

	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		condition, argCount := buildLocalizedLikeCondition(r.db, []string{"code"}, []string{"name_json"})
		query = query.Where(condition, repeatLikeArgs(like, argCount)...)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OnlyActive {
		query = query.Where("status = ?", constants.PackageStatusActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)
	if filter.WithRates {
		query = query.Preload("Rates", func(db *gorm.DB) *gorm.DB {
			return db.Order("level ASC")
		})
	}

	var pkgs []models.Package
	if err := query.Order("sort_order ASC, id ASC").Find(&pkgs).Error; err != nil {
		return nil, 0, err
	}
	return pkgs, total, nil
}

// Create 创建套餐
func (r *GormPackageRepository) Create(pkg *models.Package) error {
	return r.db.Create(pkg).Error
}

// Update 更新套餐
func (r *GormPackageRepository) Update(pkg *models.Package) error {
	return r.db.Save(pkg).Error
}

// Delete 删除套餐（软删除）
func (r *GormPackageRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.Package{}, id).Error
}

// ReplaceRates 整体替换套餐的返佣比例配置
func (r *GormPackageRepository) ReplaceRates(packageID uint, rates []models.PackageRate) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("package_id = ?", packageID).
			Delete(&models.PackageRate{}).Error; err != nil {
			return err
		}
		for i := range rates {
			rates[i].ID = 0
			rates[i].PackageID = packageID
		}
		if len(rates) == 0 {
			return nil
		}
		return tx.Create(&rates).Error
	})
}

// UpsertOwned 累加用户持有套餐数量（不存在则创建）
func (r *GormPackageRepository) UpsertOwned(userID, packageID uint, quantity int) error {
	owned := models.OwnedPackage{
		UserID:    userID,
		PackageID: packageID,
		Quantity:  quantity,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "package_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity": gorm.Expr("quantity + ?", quantity),
		}),
	}).Create(&owned).Error
}

// FilterOwnerIDs 过滤出持有任意套餐数量 ≥ 1 的用户（佣金资格集合）
func (r *GormPackageRepository) FilterOwnerIDs(userIDs []uint) ([]uint, error) {
	if len(userIDs) == 0 {
		return []uint{}, nil
	}
	var ids []uint
	if err := r.db.Model(&models.OwnedPackage{}).
		Where("user_id IN ? AND quantity >= 1", userIDs).
		Distinct("user_id").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CreateHistory 创建购买记录
func (r *GormPackageRepository) CreateHistory(history *models.PackageHistory) error {
	return r.db.Create(history).Error
}

// GetHistoriesByIDs 批量获取购买记录
func (r *GormPackageRepository) GetHistoriesByIDs(ids []uint) ([]models.PackageHistory, error) {
	if len(ids) == 0 {
		return []models.PackageHistory{}, nil
	}
	var histories []models.PackageHistory
	if err := r.db.Where("id IN ?", ids).Find(&histories).Error; err != nil {
		return nil, err
	}
	return histories, nil
}

// ListHistories 分页查询购买记录
func (r *GormPackageRepository) ListHistories(filter PackageHistoryListFilter) ([]models.PackageHistory, int64, error) {
	query := r.db.Model(&models.PackageHistory{})

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.PackageID != 0 {
		query = query.Where("package_id = ?", filter.PackageID)
	}
	if filter.PurchaseNo != "" {
		query = query.Where("purchase_no = ?", filter.PurchaseNo)
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

	var histories []models.PackageHistory
	if err := query.Order("id DESC").Find(&histories).Error; err != nil {
		return nil, 0, err
	}
	return histories, total, nil
}

// SumHistoryTotal 统计用户个人累计购买总额
func (r *GormPackageRepository) SumHistoryTotal(userID uint) (models.Money, error) {
	var total models.Money
	if err := r.db.Model(&models.PackageHistory{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(total_price), 0)").
		Scan(&total).Error; err != nil {
		return models.Money{}, err
	}
	return total, nil
}
