package repository

import (
	"errors"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecalcJobRepository 等级重算任务数据访问接口
// 租约语义：所有认领/心跳/完成都是带条件的单行 UPDATE，
// 以 RowsAffected 判定 CAS 是否成功，不依赖外部锁服务。
type RecalcJobRepository interface {
	Enqueue(job *models.RecalcJob) (bool, error)
	GetByID(id uint) (*models.RecalcJob, error)
	GetByDedupeKey(key string) (*models.RecalcJob, error)
	ListClaimable(limit int, now time.Time, rescueGrace time.Duration, maxAge time.Duration) ([]models.RecalcJob, error)
	Claim(jobID uint, ownerID string, leaseExpiry time.Time, now time.Time, rescueGrace time.Duration, maxAge time.Duration) (bool, error)
	Heartbeat(jobID uint, ownerID string, leaseExpiry time.Time) (bool, error)
	Complete(jobID uint, ownerID string, lastError string) (bool, error)
	List(filter RecalcJobListFilter) ([]models.RecalcJob, int64, error)
	CountByStatus() (map[string]int64, error)
}

// GormRecalcJobRepository GORM 重算任务仓储实现
type GormRecalcJobRepository struct {
	db *gorm.DB
}

// NewRecalcJobRepository 创建重算任务仓库
func NewRecalcJobRepository(db *gorm.DB) *GormRecalcJobRepository {
	return &GormRecalcJobRepository{db: db}
}

// Enqueue 入队重算任务
// 带去重键时重复入队直接忽略，返回值表示是否真正插入了新行。
func (r *GormRecalcJobRepository) Enqueue(job *models.RecalcJob) (bool, error) {
	if job == nil {
		return false, nil
	}
	if job.Status == "" {
		job.Status = constants.RecalcJobStatusQueued
	}
	if job.DedupeKey != nil && *job.DedupeKey != "" {
		result := r.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dedupe_key"}},
			DoNothing: true,
		}).Create(job)
		if result.Error != nil {
			return false, result.Error
		}
		return result.RowsAffected > 0, nil
	}
	if err := r.db.Create(job).Error; err != nil {
		return false, err
	}
	return true, nil
}

// GetByID 获取重算任务
func (r *GormRecalcJobRepository) GetByID(id uint) (*models.RecalcJob, error) {
	if id == 0 {
		return nil, nil
	}
	var job models.RecalcJob
	if err := r.db.First(&job, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// GetByDedupeKey 按去重键获取重算任务
func (r *GormRecalcJobRepository) GetByDedupeKey(key string) (*models.RecalcJob, error) {
	if key == "" {
		return nil, nil
	}
	var job models.RecalcJob
	if err := r.db.Where("dedupe_key = ?", key).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// claimableCondition 可认领条件：排队中，或租约超过失联阈值加救援宽限期，或任务超龄。
// 救援宽限期避免两个工作器恰好在失联边界同时抢占。
func claimableCondition(query *gorm.DB, now time.Time, rescueGrace time.Duration, maxAge time.Duration) *gorm.DB {
	staleBefore := now.Add(-rescueGrace)
	condition := query.Where("status = ?", constants.RecalcJobStatusQueued).
		Or("status = ? AND lease_expiry IS NOT NULL AND lease_expiry < ?", constants.RecalcJobStatusLeased, staleBefore)
	if maxAge > 0 {
		agedBefore := now.Add(-maxAge)
		condition = condition.Or("status = ? AND created_at < ?", constants.RecalcJobStatusLeased, agedBefore)
	}
	return condition
}

// ListClaimable 列出可认领的任务（先到先得，不加锁，由 Claim 的 CAS 决出归属）
func (r *GormRecalcJobRepository) ListClaimable(limit int, now time.Time, rescueGrace time.Duration, maxAge time.Duration) ([]models.RecalcJob, error) {
	if limit <= 0 {
		return []models.RecalcJob{}, nil
	}
	var jobs []models.RecalcJob
	query := r.db.Model(&models.RecalcJob{}).
		Where(claimableCondition(r.db.Model(&models.RecalcJob{}), now, rescueGrace, maxAge))
	if err := query.Order("id ASC").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// Claim 认领任务（CAS）
// 仅当该行仍处于可认领状态时写入新租约；返回 false 表示被其他工作器抢先。
func (r *GormRecalcJobRepository) Claim(jobID uint, ownerID string, leaseExpiry time.Time, now time.Time, rescueGrace time.Duration, maxAge time.Duration) (bool, error) {
	if jobID == 0 || ownerID == "" {
		return false, nil
	}
	result := r.db.Model(&models.RecalcJob{}).
		Where("id = ?", jobID).
		Where(claimableCondition(r.db.Model(&models.RecalcJob{}), now, rescueGrace, maxAge)).
		Updates(map[string]interface{}{
			"status":       constants.RecalcJobStatusLeased,
			"owner_id":     ownerID,
			"lease_expiry": leaseExpiry,
			"heartbeat_at": now,
			"attempts":     gorm.Expr("attempts + 1"),
			"updated_at":   now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Heartbeat 续约（CAS）
// 只有当前租约持有者可以续约；任务已被救援或完成时返回 false。
func (r *GormRecalcJobRepository) Heartbeat(jobID uint, ownerID string, leaseExpiry time.Time) (bool, error) {
	if jobID == 0 || ownerID == "" {
		return false, nil
	}
	now := time.Now()
	result := r.db.Model(&models.RecalcJob{}).
		Where("id = ? AND owner_id = ? AND status = ?", jobID, ownerID, constants.RecalcJobStatusLeased).
		Updates(map[string]interface{}{
			"lease_expiry": leaseExpiry,
			"heartbeat_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Complete 完成任务（CAS）
// 只有当前租约持有者可以标记完成；丢失租约的工作器在此处得知被救援。
func (r *GormRecalcJobRepository) Complete(jobID uint, ownerID string, lastError string) (bool, error) {
	if jobID == 0 || ownerID == "" {
		return false, nil
	}
	now := time.Now()
	result := r.db.Model(&models.RecalcJob{}).
		Where("id = ? AND owner_id = ? AND status = ?", jobID, ownerID, constants.RecalcJobStatusLeased).
		Updates(map[string]interface{}{
			"status":       constants.RecalcJobStatusCompleted,
			"last_error":   lastError,
			"completed_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// List 分页查询重算任务
func (r *GormRecalcJobRepository) List(filter RecalcJobListFilter) ([]models.RecalcJob, int64, error) {
	query := r.db.Model(&models.RecalcJob{})

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Reason != "" {
		query = query.Where("reason = ?", filter.Reason)
	}
	if filter.OwnerID != "" {
		query = query.Where("owner_id = ?", filter.OwnerID)
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

	var jobs []models.RecalcJob
	if err := query.Order("id DESC").Find(&jobs).Error; err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// CountByStatus 按状态统计任务数量
func (r *GormRecalcJobRepository) CountByStatus() (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	if err := r.db.Model(&models.RecalcJob{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, item := range rows {
		counts[item.Status] = item.Count
	}
	return counts, nil
}
