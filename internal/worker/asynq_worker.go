package worker

import (
	"context"
	"encoding/json"

	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/provider"
	"github.com/fenxiao-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container

	runner *RecalcRunner
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
		runner:    NewRecalcRunner(c),
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskLevelRecalc, c.handleLevelRecalc)
}

// handleLevelRecalc 等级重算唤醒处理
// 消息只是提示「表里多了一个任务」，实际认领仍走 CAS 租约；
// 认领失败说明轮询或其他实例已接手，静默跳过。
func (c *Consumer) handleLevelRecalc(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_level_recalc_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.LevelRecalcPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_level_recalc_unmarshal_failed", "error", err)
		return err
	}
	if payload.JobID == 0 {
		logger.Debugw("worker_level_recalc_skip_invalid_payload", "job_id", payload.JobID)
		return nil
	}
	if c.runner == nil {
		logger.Warnw("worker_level_recalc_skip_runner_nil", "job_id", payload.JobID)
		return nil
	}

	cfg, err := c.runner.loadConfig()
	if err != nil {
		logger.Warnw("worker_level_recalc_load_config_failed", "job_id", payload.JobID, "error", err)
		return err
	}
	if !cfg.IsActive {
		logger.Debugw("worker_level_recalc_skip_inactive", "job_id", payload.JobID)
		return nil
	}
	if err := c.runner.TryProcessJob(payload.JobID, cfg); err != nil {
		logger.Warnw("worker_level_recalc_failed", "job_id", payload.JobID, "error", err)
		return err
	}
	return nil
}
