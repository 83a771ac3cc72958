package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/http/response"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"
	"github.com/fenxiao-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetRecalcJobs 获取重算任务列表
func (h *Handler) GetRecalcJobs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)

	jobs, total, err := h.RecalcService.ListJobs(repository.RecalcJobListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uint(userID),
		Status:   strings.TrimSpace(c.Query("status")),
		Reason:   strings.TrimSpace(c.Query("reason")),
		OwnerID:  strings.TrimSpace(c.Query("owner_id")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.recalc_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, jobs, pagination)
}

// GetRecalcJob 获取重算任务详情
func (h *Handler) GetRecalcJob(c *gin.Context) {
	id, ok := parsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	job, err := h.RecalcService.GetJob(id)
	if err != nil {
		if errors.Is(err, service.ErrRecalcJobNotFound) {
			respondError(c, response.CodeNotFound, "error.recalc_job_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.recalc_fetch_failed", err)
		return
	}
	response.Success(c, job)
}

// EnqueueRecalcJobRequest 手动入队重算任务请求
type EnqueueRecalcJobRequest struct {
	UserID    uint   `json:"user_id" binding:"required"`
	Reason    string `json:"reason"`
	DedupeKey string `json:"dedupe_key"`
}

// EnqueueRecalcJob 手动入队重算任务
func (h *Handler) EnqueueRecalcJob(c *gin.Context) {
	var req EnqueueRecalcJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = constants.RecalcReasonManual
	}
	job, err := h.RecalcService.Enqueue(service.RecalcEnqueueInput{
		UserID:    req.UserID,
		Reason:    reason,
		DedupeKey: strings.TrimSpace(req.DedupeKey),
		Payload: models.JSON{
			"source": "admin",
		},
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.recalc_enqueue_failed", err)
		return
	}
	response.Success(c, job)
}

// GetRecalcQueueStats 获取重算队列状态统计
func (h *Handler) GetRecalcQueueStats(c *gin.Context) {
	stats, err := h.RecalcService.QueueStats()
	if err != nil {
		respondError(c, response.CodeInternal, "error.recalc_fetch_failed", err)
		return
	}
	response.Success(c, stats)
}

// GetWorkerConfig 获取重算工作器配置
func (h *Handler) GetWorkerConfig(c *gin.Context) {
	cfg, err := h.RecalcService.GetWorkerConfig()
	if err != nil {
		respondError(c, response.CodeInternal, "error.settings_fetch_failed", err)
		return
	}
	response.Success(c, cfg)
}

// UpdateWorkerConfigRequest 更新重算工作器配置请求
type UpdateWorkerConfigRequest struct {
	service.WorkerSetting
	StopAtUser string `json:"stop_at_user"`
}

// UpdateWorkerConfig 更新重算工作器配置
// 配置非法时整体拒绝，不做静默修正。
func (h *Handler) UpdateWorkerConfig(c *gin.Context) {
	var req UpdateWorkerConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	cfg, err := h.RecalcService.UpdateWorkerConfig(service.WorkerConfigUpdateInput{
		Setting:    req.WorkerSetting,
		StopAtUser: strings.TrimSpace(req.StopAtUser),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWorkerConfigInvalid):
			respondError(c, response.CodeBadRequest, "error.worker_config_invalid", nil)
		case errors.Is(err, service.ErrStopUserUnresolvable):
			respondError(c, response.CodeBadRequest, "error.worker_stop_user_invalid", nil)
		default:
			respondError(c, response.CodeInternal, "error.settings_save_failed", err)
		}
		return
	}
	response.Success(c, cfg)
}
