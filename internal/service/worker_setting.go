package service

import (
	"fmt"
	"strings"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
)

const (
	workerIntervalMsMin    = 100
	workerStallMsMin       = 1000
	workerModeMaxRune      = 20
	workerIDMaxRune        = 100
	workerChainDepthMax    = 10000
	workerBatchSizeMax     = 1000
	workerHeartbeatStepMax = 100000
)

// WorkerSetting 等级重算工作器配置
// 单条可热更新记录：每个轮询周期开始时整体重读，周期内不缓存。
type WorkerSetting struct {
	IsActive            bool   `json:"is_active"`
	Mode                string `json:"mode"`
	WorkerID            string `json:"worker_id"`
	IntervalMs          int    `json:"interval_ms"`
	BurstRuns           int    `json:"burst_runs"`
	BatchSize           int    `json:"batch_size"`
	FetchLimit          int    `json:"fetch_limit"`
	StallMs             int    `json:"stall_ms"`
	MaxAgeMs            int    `json:"max_age_ms"`
	MaxChainDepth       int    `json:"max_chain_depth"`
	HeartbeatEverySteps int    `json:"heartbeat_every_steps"`
	RescueGraceSec      int    `json:"rescue_grace_sec"`
	StopAtUserID        uint   `json:"stop_at_user_id"`
}

// WorkerDefaultSetting 默认重算工作器配置
func WorkerDefaultSetting() WorkerSetting {
	return WorkerSetting{
		IsActive:            false,
		Mode:                constants.WorkerModeInterval,
		WorkerID:            "",
		IntervalMs:          5000,
		BurstRuns:           10,
		BatchSize:           10,
		FetchLimit:          20,
		StallMs:             60000,
		MaxAgeMs:            86400000,
		MaxChainDepth:       64,
		HeartbeatEverySteps: 10,
		RescueGraceSec:      30,
		StopAtUserID:        0,
	}
}

// NormalizeWorkerSetting 归一化重算工作器配置（只清理文本，不修正数值）
func NormalizeWorkerSetting(setting WorkerSetting) WorkerSetting {
	setting.Mode = strings.ToLower(normalizeSettingTextWithRuneLimit(setting.Mode, workerModeMaxRune))
	if setting.Mode == "" {
		setting.Mode = constants.WorkerModeInterval
	}
	setting.WorkerID = normalizeSettingTextWithRuneLimit(setting.WorkerID, workerIDMaxRune)
	return setting
}

// ValidateWorkerSetting 校验重算工作器配置
// 数值越界直接拒绝，不做静默收敛。
func ValidateWorkerSetting(setting WorkerSetting) error {
	normalized := NormalizeWorkerSetting(setting)
	if normalized.Mode != constants.WorkerModeInterval && normalized.Mode != constants.WorkerModeBurst {
		return fmt.Errorf("%w: 模式仅支持 interval 或 burst", ErrWorkerConfigInvalid)
	}
	if normalized.IntervalMs < workerIntervalMsMin {
		return fmt.Errorf("%w: 轮询间隔不能小于 %d 毫秒", ErrWorkerConfigInvalid, workerIntervalMsMin)
	}
	if normalized.BurstRuns <= 0 {
		return fmt.Errorf("%w: 突发批次数必须为正", ErrWorkerConfigInvalid)
	}
	if normalized.BatchSize <= 0 || normalized.BatchSize > workerBatchSizeMax {
		return fmt.Errorf("%w: 单批处理条数必须在 1-%d 之间", ErrWorkerConfigInvalid, workerBatchSizeMax)
	}
	if normalized.FetchLimit < normalized.BatchSize {
		return fmt.Errorf("%w: 拉取上限不能小于单批处理条数", ErrWorkerConfigInvalid)
	}
	if normalized.StallMs < workerStallMsMin {
		return fmt.Errorf("%w: 失联阈值不能小于 %d 毫秒", ErrWorkerConfigInvalid, workerStallMsMin)
	}
	if normalized.MaxAgeMs < 0 {
		return fmt.Errorf("%w: 任务最大年龄不能为负", ErrWorkerConfigInvalid)
	}
	if normalized.MaxChainDepth <= 0 || normalized.MaxChainDepth > workerChainDepthMax {
		return fmt.Errorf("%w: 链上行上限必须在 1-%d 之间", ErrWorkerConfigInvalid, workerChainDepthMax)
	}
	if normalized.HeartbeatEverySteps <= 0 || normalized.HeartbeatEverySteps > workerHeartbeatStepMax {
		return fmt.Errorf("%w: 心跳步长必须在 1-%d 之间", ErrWorkerConfigInvalid, workerHeartbeatStepMax)
	}
	if normalized.RescueGraceSec < 0 {
		return fmt.Errorf("%w: 救援宽限期不能为负", ErrWorkerConfigInvalid)
	}
	return nil
}

// WorkerSettingToMap 将重算工作器配置转换为 settings 存储结构
func WorkerSettingToMap(setting WorkerSetting) map[string]interface{} {
	normalized := NormalizeWorkerSetting(setting)
	return map[string]interface{}{
		"is_active":             normalized.IsActive,
		"mode":                  normalized.Mode,
		"worker_id":             normalized.WorkerID,
		"interval_ms":           normalized.IntervalMs,
		"burst_runs":            normalized.BurstRuns,
		"batch_size":            normalized.BatchSize,
		"fetch_limit":           normalized.FetchLimit,
		"stall_ms":              normalized.StallMs,
		"max_age_ms":            normalized.MaxAgeMs,
		"max_chain_depth":       normalized.MaxChainDepth,
		"heartbeat_every_steps": normalized.HeartbeatEverySteps,
		"rescue_grace_sec":      normalized.RescueGraceSec,
		"stop_at_user_id":       normalized.StopAtUserID,
	}
}

func workerSettingFromJSON(raw models.JSON, fallback WorkerSetting) WorkerSetting {
	result := fallback

	if activeRaw, ok := raw["is_active"]; ok {
		result.IsActive = parseSettingBool(activeRaw)
	}
	if modeRaw, ok := raw["mode"]; ok {
		result.Mode = normalizeSettingText(modeRaw)
	}
	if workerIDRaw, ok := raw["worker_id"]; ok {
		result.WorkerID = normalizeSettingText(workerIDRaw)
	}
	intFields := map[string]*int{
		"interval_ms":           &result.IntervalMs,
		"burst_runs":            &result.BurstRuns,
		"batch_size":            &result.BatchSize,
		"fetch_limit":           &result.FetchLimit,
		"stall_ms":              &result.StallMs,
		"max_age_ms":            &result.MaxAgeMs,
		"max_chain_depth":       &result.MaxChainDepth,
		"heartbeat_every_steps": &result.HeartbeatEverySteps,
		"rescue_grace_sec":      &result.RescueGraceSec,
	}
	for key, target := range intFields {
		if valueRaw, ok := raw[key]; ok {
			if parsed, err := parseSettingInt(valueRaw); err == nil {
				*target = parsed
			}
		}
	}
	if stopAtRaw, ok := raw["stop_at_user_id"]; ok {
		if parsed, err := parseSettingInt(stopAtRaw); err == nil && parsed >= 0 {
			result.StopAtUserID = uint(parsed)
		}
	}

	return NormalizeWorkerSetting(result)
}

func normalizeWorkerSettingMap(value map[string]interface{}) models.JSON {
	setting := workerSettingFromJSON(models.JSON(value), WorkerDefaultSetting())
	return models.JSON(WorkerSettingToMap(setting))
}

// GetWorkerSetting 获取重算工作器设置（优先 settings，空时回退默认）
func (s *SettingService) GetWorkerSetting() (WorkerSetting, error) {
	fallback := WorkerDefaultSetting()
	if s == nil {
		return fallback, nil
	}

	value, err := s.GetByKey(constants.SettingKeyWorkerConfig)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return workerSettingFromJSON(value, fallback), nil
}

// UpdateWorkerSetting 更新重算工作器设置
func (s *SettingService) UpdateWorkerSetting(setting WorkerSetting) (WorkerSetting, error) {
	normalized := NormalizeWorkerSetting(setting)
	if err := ValidateWorkerSetting(normalized); err != nil {
		return WorkerDefaultSetting(), err
	}
	if _, err := s.Update(constants.SettingKeyWorkerConfig, WorkerSettingToMap(normalized)); err != nil {
		return WorkerDefaultSetting(), err
	}
	return normalized, nil
}
