package public

import (
	"strconv"

	"github.com/fenxiao-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetMyUpline 获取当前用户的推荐上级链
func (h *Handler) GetMyUpline(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	maxHops, _ := strconv.Atoi(c.DefaultQuery("max_hops", "10"))
	if maxHops < 1 {
		maxHops = 1
	}
	if maxHops > 100 {
		maxHops = 100
	}

	edges, err := h.ReferralService.Upline(uid, maxHops)
	if err != nil {
		respondError(c, response.CodeInternal, "error.referral_fetch_failed", err)
		return
	}
	response.Success(c, edges)
}

// GetMyReferrals 获取当前用户的直接下级
func (h *Handler) GetMyReferrals(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	children, err := h.ReferralService.ListChildren(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.referral_fetch_failed", err)
		return
	}
	response.Success(c, children)
}

// GetMyGroupSummaries 获取当前用户各分组的销量汇总
func (h *Handler) GetMyGroupSummaries(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	summaries, err := h.ReferralService.GetGroupSummaries(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.referral_fetch_failed", err)
		return
	}
	response.Success(c, summaries)
}
