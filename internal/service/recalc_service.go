package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/queue"
	"github.com/fenxiao-next/internal/repository"
)

// RecalcService 等级重算服务
// 任务真身持久化在 recalc_jobs 表，(owner_id, lease_expiry) 租约保证同一任务
// 同时只被一个工作器处理；队列消息仅作唤醒信号，丢失也只影响时延。
type RecalcService struct {
	jobRepo     repository.RecalcJobRepository
	levelSvc    *LevelService
	referralSvc *ReferralService
	settingSvc  *SettingService
	queueClient *queue.Client
}

// NewRecalcService 创建等级重算服务
func NewRecalcService(
	jobRepo repository.RecalcJobRepository,
	levelSvc *LevelService,
	referralSvc *ReferralService,
	settingSvc *SettingService,
	queueClient *queue.Client,
) *RecalcService {
	return &RecalcService{
		jobRepo:     jobRepo,
		levelSvc:    levelSvc,
		referralSvc: referralSvc,
		settingSvc:  settingSvc,
		queueClient: queueClient,
	}
}

// RecalcEnqueueInput 重算任务入队输入
type RecalcEnqueueInput struct {
	UserID    uint
	Reason    string
	DedupeKey string
	Payload   models.JSON
}

// Enqueue 入队一个重算任务
// 去重键命中已有记录时返回已存在的任务，不视为错误。
func (s *RecalcService) Enqueue(input RecalcEnqueueInput) (*models.RecalcJob, error) {
	if input.UserID == 0 {
		return nil, ErrUserNotFound
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		reason = constants.RecalcReasonManual
	}

	job := &models.RecalcJob{
		UserID:      input.UserID,
		Reason:      reason,
		PayloadJSON: input.Payload,
		Status:      constants.RecalcJobStatusQueued,
	}
	dedupeKey := strings.TrimSpace(input.DedupeKey)
	if dedupeKey != "" {
		job.DedupeKey = &dedupeKey
	}

	inserted, err := s.jobRepo.Enqueue(job)
	if err != nil {
		return nil, err
	}
	if !inserted && dedupeKey != "" {
		existing, err := s.jobRepo.GetByDedupeKey(dedupeKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			job = existing
		}
	}

	// 唤醒信号，失败不影响任务本身
	if s.queueClient != nil {
		payload := queue.LevelRecalcPayload{JobID: job.ID, UserID: job.UserID}
		if err := s.queueClient.EnqueueLevelRecalc(payload, dedupeKey); err != nil {
			logger.Warnw("重算唤醒消息发送失败", "job_id", job.ID, "error", err)
		}
	}

	return job, nil
}

// GetJob 查询重算任务
func (s *RecalcService) GetJob(id uint) (*models.RecalcJob, error) {
	job, err := s.jobRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrRecalcJobNotFound
	}
	return job, nil
}

// ListJobs 分页查询重算任务
func (s *RecalcService) ListJobs(filter repository.RecalcJobListFilter) ([]models.RecalcJob, int64, error) {
	return s.jobRepo.List(filter)
}

// ProcessJob 处理一个已被当前工作器持有租约的任务
// 从起点用户沿推荐链向上逐个重算：某个祖先等级未变化时提前终止；
// 单个祖先的重算错误记入摘要后继续向上，不中断整条链。
func (s *RecalcService) ProcessJob(job *models.RecalcJob, cfg WorkerSetting, ownerID string) error {
	if job == nil {
		return ErrRecalcJobNotFound
	}

	var failures []string
	current := job.UserID
	steps := 0

	for current != 0 && steps < cfg.MaxChainDepth {
		steps++

		changed, newLevel, err := s.levelSvc.Recompute(current)
		if err != nil {
			failures = append(failures, fmt.Sprintf("user %d: %v", current, err))
			logger.Warnw("等级重算单点失败", "job_id", job.ID, "user_id", current, "error", err)
		} else {
			logger.Debugw("等级重算完成一跳",
				"job_id", job.ID, "user_id", current, "level", newLevel, "changed", changed)
			// 等级未变则更高层的聚合输入也未变，继续向上没有意义
			if !changed {
				break
			}
		}

		if cfg.StopAtUserID != 0 && current == cfg.StopAtUserID {
			break
		}

		if cfg.HeartbeatEverySteps > 0 && steps%cfg.HeartbeatEverySteps == 0 {
			expiry := time.Now().Add(time.Duration(cfg.StallMs) * time.Millisecond)
			alive, err := s.jobRepo.Heartbeat(job.ID, ownerID, expiry)
			if err != nil {
				return err
			}
			if !alive {
				// 租约已被救援走，立刻放弃，剩余工作交给新持有者
				logger.Warnw("重算任务租约丢失，放弃处理", "job_id", job.ID, "owner_id", ownerID)
				return nil
			}
		}

		edge, err := s.referralSvc.GetEdge(current)
		if err != nil {
			failures = append(failures, fmt.Sprintf("user %d upline: %v", current, err))
			break
		}
		if edge == nil {
			break
		}
		current = edge.ParentID
	}

	summary := strings.Join(failures, "; ")
	if len(summary) > 500 {
		summary = summary[:500]
	}
	done, err := s.jobRepo.Complete(job.ID, ownerID, summary)
	if err != nil {
		return err
	}
	if !done {
		logger.Warnw("重算任务完成标记失败，租约可能已被救援", "job_id", job.ID, "owner_id", ownerID)
	}
	return nil
}

// QueueStats 各状态任务计数
func (s *RecalcService) QueueStats() (map[string]int64, error) {
	return s.jobRepo.CountByStatus()
}

// GetWorkerConfig 获取工作器配置
func (s *RecalcService) GetWorkerConfig() (WorkerSetting, error) {
	return s.settingSvc.GetWorkerSetting()
}

// WorkerConfigUpdateInput 工作器配置更新输入
// StopAtUser 支持用户ID或推荐码，留空表示清除截止账号。
type WorkerConfigUpdateInput struct {
	Setting    WorkerSetting
	StopAtUser string
}

// UpdateWorkerConfig 更新工作器配置
func (s *RecalcService) UpdateWorkerConfig(input WorkerConfigUpdateInput) (WorkerSetting, error) {
	setting := input.Setting
	stopAt := strings.TrimSpace(input.StopAtUser)
	if stopAt == "" {
		setting.StopAtUserID = 0
	} else {
		user, err := s.referralSvc.ResolveReferrer(stopAt)
		if err != nil || user == nil {
			return WorkerDefaultSetting(), ErrStopUserUnresolvable
		}
		setting.StopAtUserID = user.ID
	}
	return s.settingSvc.UpdateWorkerSetting(setting)
}
