package worker

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/provider"
	"github.com/fenxiao-next/internal/service"
)

// RecalcRunner 等级重算执行器
// 唤醒消息和定时轮询共用同一套认领逻辑：先按条件查询可认领任务，
// 再用 CAS 抢租约，抢不到说明别的实例已接手。
type RecalcRunner struct {
	container  *provider.Container
	instanceID string
}

// NewRecalcRunner 创建执行器
func NewRecalcRunner(c *provider.Container) *RecalcRunner {
	if c == nil {
		return nil
	}
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "worker"
	}
	return &RecalcRunner{
		container:  c,
		instanceID: fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8]),
	}
}

// loadConfig 读取工作器配置
// 每次调用都重读，配置热更新在下一轮立即生效。
func (r *RecalcRunner) loadConfig() (service.WorkerSetting, error) {
	if r == nil || r.container == nil || r.container.SettingService == nil {
		return service.WorkerDefaultSetting(), nil
	}
	return r.container.SettingService.GetWorkerSetting()
}

// ownerID 当前实例的租约持有者标识
func (r *RecalcRunner) ownerID(cfg service.WorkerSetting) string {
	if id := strings.TrimSpace(cfg.WorkerID); id != "" {
		return id
	}
	return r.instanceID
}

// DrainOnce 执行一轮认领与处理，返回本轮处理的任务数
func (r *RecalcRunner) DrainOnce(cfg service.WorkerSetting) (int, error) {
	if r == nil || r.container == nil || r.container.RecalcJobRepo == nil || r.container.RecalcService == nil {
		return 0, nil
	}

	now := time.Now()
	rescueGrace := time.Duration(cfg.RescueGraceSec) * time.Second
	maxAge := time.Duration(cfg.MaxAgeMs) * time.Millisecond
	jobs, err := r.container.RecalcJobRepo.ListClaimable(cfg.FetchLimit, now, rescueGrace, maxAge)
	if err != nil {
		return 0, err
	}

	owner := r.ownerID(cfg)
	processed := 0
	for i := range jobs {
		if processed >= cfg.BatchSize {
			break
		}
		job := jobs[i]
		leaseExpiry := time.Now().Add(time.Duration(cfg.StallMs) * time.Millisecond)
		claimed, err := r.container.RecalcJobRepo.Claim(job.ID, owner, leaseExpiry, time.Now(), rescueGrace, maxAge)
		if err != nil {
			return processed, err
		}
		if !claimed {
			// 查询和认领之间被别的实例抢走，属于正常竞争
			continue
		}
		processed++
		if err := r.container.RecalcService.ProcessJob(&job, cfg, owner); err != nil {
			logger.Warnw("recalc_job_process_failed", "job_id", job.ID, "owner_id", owner, "error", err)
		}
	}
	return processed, nil
}

// TryProcessJob 针对单个任务的认领与处理（唤醒路径）
func (r *RecalcRunner) TryProcessJob(jobID uint, cfg service.WorkerSetting) error {
	if r == nil || r.container == nil || r.container.RecalcJobRepo == nil || r.container.RecalcService == nil {
		return nil
	}

	job, err := r.container.RecalcJobRepo.GetByID(jobID)
	if err != nil {
		return err
	}
	if job == nil {
		logger.Debugw("recalc_job_wakeup_not_found", "job_id", jobID)
		return nil
	}

	owner := r.ownerID(cfg)
	rescueGrace := time.Duration(cfg.RescueGraceSec) * time.Second
	maxAge := time.Duration(cfg.MaxAgeMs) * time.Millisecond
	leaseExpiry := time.Now().Add(time.Duration(cfg.StallMs) * time.Millisecond)
	claimed, err := r.container.RecalcJobRepo.Claim(job.ID, owner, leaseExpiry, time.Now(), rescueGrace, maxAge)
	if err != nil {
		return err
	}
	if !claimed {
		logger.Debugw("recalc_job_wakeup_claim_lost", "job_id", jobID, "owner_id", owner)
		return nil
	}
	return r.container.RecalcService.ProcessJob(job, cfg, owner)
}
