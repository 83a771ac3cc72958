package public

import (
	"errors"

	"github.com/fenxiao-next/internal/http/response"
	"github.com/fenxiao-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

var purchaseErrorRules = []mappedHandlerError{
	{target: service.ErrPurchaseItemRequired, code: response.CodeBadRequest, key: "error.purchase_invalid"},
	{target: service.ErrInvalidQuantity, code: response.CodeBadRequest, key: "error.purchase_quantity_invalid"},
	{target: service.ErrPackageNotFound, code: response.CodeBadRequest, key: "error.package_not_found"},
	{target: service.ErrPackageDisabled, code: response.CodeBadRequest, key: "error.package_disabled"},
	{target: service.ErrZeroTotal, code: response.CodeBadRequest, key: "error.purchase_zero_total"},
	{target: service.ErrWalletInsufficientBalance, code: response.CodeBadRequest, key: "error.insufficient_balance"},
	{target: service.ErrPurchaseConflict, code: response.CodeBadRequest, key: "error.purchase_conflict"},
	{target: service.ErrUserNotFound, code: response.CodeNotFound, key: "error.user_not_found"},
	{target: service.ErrUserDisabled, code: response.CodeUnauthorized, key: "error.user_disabled"},
}

func respondPurchaseError(c *gin.Context, err error) {
	respondWithMappedError(c, err, purchaseErrorRules, response.CodeInternal, "error.purchase_failed")
}
