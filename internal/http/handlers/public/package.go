package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/fenxiao-next/internal/http/response"
	"github.com/fenxiao-next/internal/service"

	"github.com/gin-gonic/gin"
)

// GetPackages 获取在售套餐列表
func (h *Handler) GetPackages(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	keyword := strings.TrimSpace(c.Query("search"))

	packages, total, err := h.PackageService.ListPublic(keyword, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.package_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, packages, pagination)
}

// GetPackage 获取套餐详情
func (h *Handler) GetPackage(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	pkg, err := h.PackageService.GetByID(uint(id))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPackageNotFound):
			respondError(c, response.CodeNotFound, "error.package_not_found", nil)
		default:
			respondError(c, response.CodeInternal, "error.package_fetch_failed", err)
		}
		return
	}
	response.Success(c, pkg)
}
