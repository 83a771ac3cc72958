package admin

import (
	"errors"
	"strings"

	"github.com/fenxiao-next/internal/http/response"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// LevelRequirementRequest 等级规则条目请求
type LevelRequirementRequest struct {
	GroupOrdinal int    `json:"group_ordinal" binding:"required"`
	Kind         string `json:"kind" binding:"required"`
	Amount       string `json:"amount"`
	Count        int    `json:"count"`
	TargetLevel  int    `json:"target_level"`
}

// ReplaceLevelRequirementsRequest 整体替换某等级规则请求
type ReplaceLevelRequirementsRequest struct {
	Level        int                       `json:"level" binding:"required"`
	Requirements []LevelRequirementRequest `json:"requirements"`
}

// GetLevelRequirements 获取全部等级规则
func (h *Handler) GetLevelRequirements(c *gin.Context) {
	requirements, err := h.LevelService.ListRequirements()
	if err != nil {
		respondError(c, response.CodeInternal, "error.level_fetch_failed", err)
		return
	}
	response.Success(c, requirements)
}

// ReplaceLevelRequirements 整体替换指定等级的规则
// 同一条件组内为 AND，不同条件组之间为 OR。
func (h *Handler) ReplaceLevelRequirements(c *gin.Context) {
	var req ReplaceLevelRequirementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	requirements := make([]models.LevelRequirement, 0, len(req.Requirements))
	for _, item := range req.Requirements {
		amount := decimal.Zero
		if raw := strings.TrimSpace(item.Amount); raw != "" {
			parsed, err := decimal.NewFromString(raw)
			if err != nil {
				respondError(c, response.CodeBadRequest, "error.level_requirement_invalid", nil)
				return
			}
			amount = parsed
		}
		requirements = append(requirements, models.LevelRequirement{
			Level:        req.Level,
			GroupOrdinal: item.GroupOrdinal,
			Kind:         strings.TrimSpace(item.Kind),
			Amount:       models.NewMoneyFromDecimal(amount),
			Count:        item.Count,
			TargetLevel:  item.TargetLevel,
		})
	}

	if err := h.LevelService.ReplaceRequirementsForLevel(req.Level, requirements); err != nil {
		if errors.Is(err, service.ErrLevelPolicyInvalid) {
			respondError(c, response.CodeBadRequest, "error.level_requirement_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.level_save_failed", err)
		return
	}

	updated, err := h.LevelService.ListRequirements()
	if err != nil {
		respondError(c, response.CodeInternal, "error.level_fetch_failed", err)
		return
	}
	response.Success(c, updated)
}
