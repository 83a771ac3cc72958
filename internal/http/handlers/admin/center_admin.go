package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/fenxiao-next/internal/http/response"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"
	"github.com/fenxiao-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// SaveCenterManagerRequest 创建/更新服务中心管理人请求
type SaveCenterManagerRequest struct {
	UserID        uint    `json:"user_id" binding:"required"`
	Percent       string  `json:"percent" binding:"required"`
	IsActive      *bool   `json:"is_active"`
	EffectiveFrom *string `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to"`
}

// GetCenterManagers 获取服务中心管理人列表
func (h *Handler) GetCenterManagers(c *gin.Context) {
	managers, err := h.CenterService.ListManagers()
	if err != nil {
		respondError(c, response.CodeInternal, "error.center_fetch_failed", err)
		return
	}
	response.Success(c, managers)
}

// GetCenterManager 获取服务中心管理人详情
func (h *Handler) GetCenterManager(c *gin.Context) {
	userID, ok := parsePathUint(c, "user_id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}

	manager, err := h.CenterService.GetManager(userID)
	if err != nil {
		if errors.Is(err, service.ErrCenterManagerNotFound) {
			respondError(c, response.CodeNotFound, "error.center_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.center_fetch_failed", err)
		return
	}
	response.Success(c, manager)
}

// SaveCenterManager 创建或更新服务中心管理人
// 变更只影响之后的购买，已结算的费用不回溯。
func (h *Handler) SaveCenterManager(c *gin.Context) {
	var req SaveCenterManagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	percent, err := decimal.NewFromString(strings.TrimSpace(req.Percent))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.center_percent_invalid", nil)
		return
	}
	effectiveFrom, err := parseTimeNullable(derefString(req.EffectiveFrom))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	effectiveTo, err := parseTimeNullable(derefString(req.EffectiveTo))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	manager, err := h.CenterService.SaveManager(models.CenterManager{
		UserID:        req.UserID,
		Percent:       percent,
		IsActive:      isActive,
		EffectiveFrom: effectiveFrom,
		EffectiveTo:   effectiveTo,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCenterPercentInvalid):
			respondError(c, response.CodeBadRequest, "error.center_percent_invalid", nil)
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, response.CodeNotFound, "error.user_not_found", nil)
		default:
			respondError(c, response.CodeInternal, "error.center_save_failed", err)
		}
		return
	}
	response.Success(c, manager)
}

// GetAdminCenterFees 管理端查询中心服务费记录
func (h *Handler) GetAdminCenterFees(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.CenterCommissionListFilter{
		Page:     page,
		PageSize: pageSize,
	}
	if raw := strings.TrimSpace(c.Query("center_user_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		filter.CenterUserID = uint(id)
	}
	if raw := strings.TrimSpace(c.Query("buyer_user_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		filter.BuyerUserID = uint(id)
	}

	fees, total, err := h.CommissionRepo.ListCenterCommissions(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.commission_fetch_failed", err)
		return
	}
	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, fees, pagination)
}

// GetUserCenterLinks 获取用户的服务中心链路
func (h *Handler) GetUserCenterLinks(c *gin.Context) {
	userID, ok := parsePathUint(c, "user_id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}

	links, err := h.CenterService.ListLinks(userID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.center_fetch_failed", err)
		return
	}
	response.Success(c, links)
}

// RebuildUserCenterLinks 重建用户的服务中心链路
// 管理人集合变化后需要对受影响用户重建预计算链路。
func (h *Handler) RebuildUserCenterLinks(c *gin.Context) {
	userID, ok := parsePathUint(c, "user_id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.user_id_invalid", nil)
		return
	}

	links, err := h.CenterService.RebuildLinks(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, response.CodeNotFound, "error.user_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.center_rebuild_failed", err)
		return
	}
	response.Success(c, links)
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
