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

// SavePackageRequest 创建/更新套餐请求
type SavePackageRequest struct {
	Code      string                     `json:"code" binding:"required"`
	Name      map[string]interface{}     `json:"name" binding:"required"`
	Price     string                     `json:"price" binding:"required"`
	Status    string                     `json:"status"`
	SortOrder int                        `json:"sort_order"`
	Rates     []service.PackageRateInput `json:"rates"`
}

func (req SavePackageRequest) toServiceInput() (service.SavePackageInput, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil {
		return service.SavePackageInput{}, err
	}
	return service.SavePackageInput{
		Code:      req.Code,
		NameJSON:  req.Name,
		Price:     models.NewMoneyFromDecimal(price),
		Status:    req.Status,
		SortOrder: req.SortOrder,
		Rates:     req.Rates,
	}, nil
}

// GetAdminPackages 获取套餐列表 (Admin)
func (h *Handler) GetAdminPackages(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	keyword := strings.TrimSpace(c.Query("search"))
	status := strings.TrimSpace(c.Query("status"))

	packages, total, err := h.PackageService.ListAdmin(keyword, status, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.package_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, packages, pagination)
}

// GetAdminPackage 获取套餐详情 (Admin)
func (h *Handler) GetAdminPackage(c *gin.Context) {
	id, ok := parsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	pkg, err := h.PackageService.GetByID(id)
	if err != nil {
		if errors.Is(err, service.ErrPackageNotFound) {
			respondError(c, response.CodeNotFound, "error.package_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.package_fetch_failed", err)
		return
	}
	response.Success(c, pkg)
}

// CreatePackage 创建套餐
func (h *Handler) CreatePackage(c *gin.Context) {
	var req SavePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toServiceInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	pkg, err := h.PackageService.Create(input)
	if err != nil {
		respondPackageSaveError(c, err, "error.package_save_failed")
		return
	}
	response.Success(c, pkg)
}

// UpdatePackage 更新套餐
func (h *Handler) UpdatePackage(c *gin.Context) {
	id, ok := parsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	var req SavePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toServiceInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	pkg, err := h.PackageService.Update(id, input)
	if err != nil {
		respondPackageSaveError(c, err, "error.package_save_failed")
		return
	}
	response.Success(c, pkg)
}

// DeletePackage 删除套餐（软删除）
// 已发生的购买记录与佣金不受影响。
func (h *Handler) DeletePackage(c *gin.Context) {
	id, ok := parsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	if err := h.PackageService.Delete(id); err != nil {
		if errors.Is(err, service.ErrPackageNotFound) {
			respondError(c, response.CodeNotFound, "error.package_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.package_delete_failed", err)
		return
	}
	response.Success(c, nil)
}

// GetAdminPurchases 获取购买记录列表 (Admin)
func (h *Handler) GetAdminPurchases(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 64)
	packageID, _ := strconv.ParseUint(c.Query("package_id"), 10, 64)

	histories, total, err := h.PackageService.ListHistories(repository.PackageHistoryListFilter{
		Page:       page,
		PageSize:   pageSize,
		UserID:     uint(userID),
		PackageID:  uint(packageID),
		PurchaseNo: strings.TrimSpace(c.Query("purchase_no")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.purchase_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, histories, pagination)
}

// GetAdminCommissions 获取推荐返佣列表 (Admin)
func (h *Handler) GetAdminCommissions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	buyerID, _ := strconv.ParseUint(c.Query("buyer_id"), 10, 64)
	beneficiaryID, _ := strconv.ParseUint(c.Query("beneficiary_id"), 10, 64)
	level, _ := strconv.Atoi(c.Query("level"))

	commissions, total, err := h.CommissionRepo.ListReferralCommissions(repository.ReferralCommissionListFilter{
		Page:              page,
		PageSize:          pageSize,
		BuyerUserID:       uint(buyerID),
		BeneficiaryUserID: uint(beneficiaryID),
		Level:             level,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.commission_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, commissions, pagination)
}

func respondPackageSaveError(c *gin.Context, err error, fallbackKey string) {
	switch {
	case errors.Is(err, service.ErrPackageNotFound):
		respondError(c, response.CodeNotFound, "error.package_not_found", nil)
	case errors.Is(err, service.ErrInvalidInput):
		respondError(c, response.CodeBadRequest, "error.package_invalid", nil)
	default:
		respondError(c, response.CodeInternal, fallbackKey, err)
	}
}
