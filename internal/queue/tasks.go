package queue

import (
	"encoding/json"

	"github.com/fenxiao-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskLevelRecalc 等级重算唤醒任务
	// 仅作为轮询之外的即时唤醒信号，任务真身落在 recalc_jobs 表。
	TaskLevelRecalc = constants.TaskLevelRecalc
)

// LevelRecalcPayload 等级重算唤醒载荷
type LevelRecalcPayload struct {
	JobID  uint `json:"job_id"`
	UserID uint `json:"user_id"`
}

// NewLevelRecalcTask 创建等级重算唤醒任务
func NewLevelRecalcTask(payload LevelRecalcPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLevelRecalc, body), nil
}
