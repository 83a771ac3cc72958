package public

import (
	"strconv"

	"github.com/fenxiao-next/internal/http/response"
	"github.com/fenxiao-next/internal/repository"
	"github.com/fenxiao-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePurchaseRequest 套餐购买请求
type CreatePurchaseRequest struct {
	Items []service.PurchaseItemInput `json:"items" binding:"required"`
}

// CreatePurchase 用户购买套餐
// 扣款、返佣、业绩上卷和服务中心费用在同一事务内落账，
// 等级重算在事务提交后异步触发。
func (h *Handler) CreatePurchase(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	result, err := h.PurchaseService.Purchase(service.PurchaseInput{
		BuyerID: uid,
		Items:   req.Items,
	})
	if err != nil {
		respondPurchaseError(c, err)
		return
	}
	response.Success(c, result)
}

// GetMyPurchases 获取当前用户购买记录
func (h *Handler) GetMyPurchases(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	histories, total, err := h.PackageService.ListHistories(repository.PackageHistoryListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   uid,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.purchase_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, histories, pagination)
}

// GetMyCommissions 获取当前用户获得的推荐返佣明细
func (h *Handler) GetMyCommissions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	level, _ := strconv.Atoi(c.Query("level"))

	commissions, total, err := h.CommissionRepo.ListReferralCommissions(repository.ReferralCommissionListFilter{
		Page:              page,
		PageSize:          pageSize,
		BeneficiaryUserID: uid,
		Level:             level,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.commission_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, commissions, pagination)
}

// GetMyCenterFees 获取当前用户作为服务中心获得的费用明细
func (h *Handler) GetMyCenterFees(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	fees, total, err := h.CommissionRepo.ListCenterCommissions(repository.CenterCommissionListFilter{
		Page:         page,
		PageSize:     pageSize,
		CenterUserID: uid,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.commission_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, fees, pagination)
}
