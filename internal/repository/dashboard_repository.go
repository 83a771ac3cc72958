package repository

import (
	"fmt"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"

	"gorm.io/gorm"
)

// DashboardRepository 仪表盘聚合查询接口
// 说明：仅聚合统计数据，不承载业务规则。
type DashboardRepository interface {
	GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error)
	GetPurchaseTrends(startAt, endAt time.Time) ([]DashboardPurchaseTrendRow, error)
	GetTopPackages(startAt, endAt time.Time, limit int) ([]DashboardPackageRankingRow, error)
	GetLevelDistribution() ([]DashboardLevelRow, error)
	GetRecalcQueueStats(now time.Time, rescueGrace time.Duration) (DashboardQueueStatsRow, error)
}

// DashboardOverviewRow 仪表盘总览原始统计结果
type DashboardOverviewRow struct {
	PurchasesTotal       int64
	PurchaseVolume       float64
	ReferralCommissions  int64
	ReferralPayout       float64
	CenterCommissions    int64
	CenterPayout         float64
	NewUsers             int64
	ActivePackages       int64
}

// DashboardPurchaseTrendRow 购买趋势统计
type DashboardPurchaseTrendRow struct {
	Day            string
	PurchasesTotal int64
	PurchaseVolume float64
}

// DashboardPackageRankingRow 套餐排行原始行
type DashboardPackageRankingRow struct {
	PackageID  uint
	Name       string
	Purchases  int64
	Quantity   int64
	PaidAmount float64
}

// DashboardLevelRow 等级分布统计
type DashboardLevelRow struct {
	Level int
	Total int64
}

// DashboardQueueStatsRow 重算队列健康统计
type DashboardQueueStatsRow struct {
	Queued    int64
	Leased    int64
	Stalled   int64
	Completed int64
}

// GormDashboardRepository GORM 仪表盘聚合实现
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository 创建仪表盘仓库
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

// GetOverview 获取总览统计
func (r *GormDashboardRepository) GetOverview(startAt, endAt time.Time) (DashboardOverviewRow, error) {
	result := DashboardOverviewRow{}

	historyBase := func() *gorm.DB {
		return r.db.Model(&models.PackageHistory{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
	}

	if err := historyBase().Count(&result.PurchasesTotal).Error; err != nil {
		return result, err
	}
	if err := historyBase().
		Select("COALESCE(SUM(total_price), 0)").
		Scan(&result.PurchaseVolume).Error; err != nil {
		return result, err
	}

	referralBase := func() *gorm.DB {
		return r.db.Model(&models.ReferralCommission{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
	}
	if err := referralBase().Count(&result.ReferralCommissions).Error; err != nil {
		return result, err
	}
	if err := referralBase().
		Select("COALESCE(SUM(commission_amount), 0)").
		Scan(&result.ReferralPayout).Error; err != nil {
		return result, err
	}

	centerBase := func() *gorm.DB {
		return r.db.Model(&models.CenterCommission{}).
			Where("created_at >= ? AND created_at < ?", startAt, endAt)
	}
	if err := centerBase().Count(&result.CenterCommissions).Error; err != nil {
		return result, err
	}
	if err := centerBase().
		Select("COALESCE(SUM(amount), 0)").
		Scan(&result.CenterPayout).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.User{}).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Count(&result.NewUsers).Error; err != nil {
		return result, err
	}

	if err := r.db.Model(&models.Package{}).
		Where("status = ?", constants.PackageStatusActive).
		Count(&result.ActivePackages).Error; err != nil {
		return result, err
	}

	return result, nil
}

// GetPurchaseTrends 获取购买趋势
func (r *GormDashboardRepository) GetPurchaseTrends(startAt, endAt time.Time) ([]DashboardPurchaseTrendRow, error) {
	type trendRow struct {
		Day    string
		Total  int64
		Volume float64
	}

	dayExpr := "CAST(date(created_at) AS TEXT)"
	var rows []trendRow
	if err := r.db.Model(&models.PackageHistory{}).
		Select(fmt.Sprintf("%s as day, COUNT(*) as total, COALESCE(SUM(total_price), 0) as volume", dayExpr)).
		Where("created_at >= ? AND created_at < ?", startAt, endAt).
		Group(dayExpr).
		Order("day asc").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]DashboardPurchaseTrendRow, 0, len(rows))
	for _, item := range rows {
		result = append(result, DashboardPurchaseTrendRow{
			Day:            item.Day,
			PurchasesTotal: item.Total,
			PurchaseVolume: item.Volume,
		})
	}
	return result, nil
}

// GetTopPackages 获取套餐排行榜
func (r *GormDashboardRepository) GetTopPackages(startAt, endAt time.Time, limit int) ([]DashboardPackageRankingRow, error) {
	if limit <= 0 {
		limit = 5
	}
	rows := make([]DashboardPackageRankingRow, 0)
	nameExpr := localizedJSONCoalesceExpr(r.db, "packages.name_json")
	if err := r.db.Model(&models.PackageHistory{}).
		Select(fmt.Sprintf(`
			package_histories.package_id as package_id,
			%s as name,
			COUNT(*) as purchases,
			COALESCE(SUM(package_histories.quantity), 0) as quantity,
			COALESCE(SUM(package_histories.total_price), 0) as paid_amount
		`, nameExpr)).
		Joins("JOIN packages ON packages.id = package_histories.package_id").
		Where("package_histories.created_at >= ? AND package_histories.created_at < ?", startAt, endAt).
		Group("package_histories.package_id, name").
		Order("paid_amount DESC, quantity DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetLevelDistribution 获取用户等级分布
func (r *GormDashboardRepository) GetLevelDistribution() ([]DashboardLevelRow, error) {
	rows := make([]DashboardLevelRow, 0)
	if err := r.db.Model(&models.User{}).
		Select("level, COUNT(*) as total").
		Group("level").
		Order("level ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetRecalcQueueStats 获取重算队列健康统计
// stalled 统计租约超过救援宽限期仍未续约的任务。
func (r *GormDashboardRepository) GetRecalcQueueStats(now time.Time, rescueGrace time.Duration) (DashboardQueueStatsRow, error) {
	result := DashboardQueueStatsRow{}

	if err := r.db.Model(&models.RecalcJob{}).
		Where("status = ?", constants.RecalcJobStatusQueued).
		Count(&result.Queued).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.RecalcJob{}).
		Where("status = ?", constants.RecalcJobStatusLeased).
		Count(&result.Leased).Error; err != nil {
		return result, err
	}
	staleBefore := now.Add(-rescueGrace)
	if err := r.db.Model(&models.RecalcJob{}).
		Where("status = ? AND lease_expiry IS NOT NULL AND lease_expiry < ?", constants.RecalcJobStatusLeased, staleBefore).
		Count(&result.Stalled).Error; err != nil {
		return result, err
	}
	if err := r.db.Model(&models.RecalcJob{}).
		Where("status = ?", constants.RecalcJobStatusCompleted).
		Count(&result.Completed).Error; err != nil {
		return result, err
	}

	return result, nil
}
