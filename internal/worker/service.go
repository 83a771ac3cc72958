package worker

import (
	"context"
	"errors"
	"time"

	"github.com/fenxiao-next/internal/config"
	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/queue"
	"github.com/fenxiao-next/internal/service"

	"github.com/hibiken/asynq"
)

const (
	// inactivePollInterval 配置未启用时的复查间隔
	inactivePollInterval = 10 * time.Second
)

// Service 异步队列与重算轮询服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}

	svc := &Service{
		name:     "worker",
		consumer: consumer,
	}
	// 队列未启用时只跑轮询，唤醒消息通道缺失不影响正确性
	if cfg != nil && cfg.Enabled {
		opt, serverCfg := queue.BuildServerConfig(cfg)
		svc.server = asynq.NewServer(opt, serverCfg)
		svc.mux = asynq.NewServeMux()
		consumer.Register(svc.mux)
	}
	return svc, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.consumer == nil {
		return errors.New("worker not initialized")
	}
	if s.server == nil || s.mux == nil {
		s.runRecalcLoop(ctx)
		return nil
	}
	go s.runRecalcLoop(ctx)
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runRecalcLoop 重算轮询主循环
// 每轮重读配置；interval 模式一轮一批，burst 模式一轮连续多批。
func (s *Service) runRecalcLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.runner == nil {
		return
	}
	runner := s.consumer.runner

	for {
		cfg, err := runner.loadConfig()
		if err != nil {
			logger.Warnw("worker_recalc_load_config_failed", "error", err)
			cfg = service.WorkerDefaultSetting()
		}

		sleep := inactivePollInterval
		if cfg.IsActive {
			runs := 1
			if cfg.Mode == constants.WorkerModeBurst {
				runs = cfg.BurstRuns
			}
			for i := 0; i < runs; i++ {
				processed, err := runner.DrainOnce(cfg)
				if err != nil {
					logger.Warnw("worker_recalc_drain_failed", "error", err)
					break
				}
				if processed == 0 {
					break
				}
			}
			sleep = time.Duration(cfg.IntervalMs) * time.Millisecond
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}
