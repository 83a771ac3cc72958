package service

import "errors"

// 通用错误
var (
	ErrNotFound     = errors.New("记录不存在")
	ErrUserNotFound = errors.New("用户不存在")
	ErrInvalidInput = errors.New("请求参数无效")
)

// 认证相关错误
var (
	ErrInvalidCredentials = errors.New("账号或密码错误")
	ErrUserDisabled       = errors.New("账号已被禁用")
	ErrInvalidToken       = errors.New("无效的 token")
	ErrEmailExists        = errors.New("邮箱已被注册")
	ErrWeakPassword       = errors.New("密码强度不足")
	ErrInvalidPassword    = errors.New("原密码错误")
	ErrHandleExists       = errors.New("账号标识已被占用")
	ErrAdminNotFound      = errors.New("管理员不存在")
	ErrAdminExists        = errors.New("管理员已存在")
	ErrCannotDeleteSelf   = errors.New("不能删除当前登录的管理员")
)

// 推荐关系相关错误
var (
	ErrReferrerRequired = errors.New("注册必须携带推荐人")
	ErrReferrerNotFound = errors.New("推荐人不存在")
	ErrReferralExists   = errors.New("用户已存在推荐关系")
	ErrInvalidGroupNo   = errors.New("分组号必须为正整数")
	ErrReferralSelfLink = errors.New("不能将自己设置为推荐人")
)

// 购买与佣金相关错误
var (
	ErrPackageNotFound      = errors.New("套餐不存在")
	ErrPackageDisabled      = errors.New("套餐已下架")
	ErrInvalidQuantity      = errors.New("购买数量必须为正整数")
	ErrZeroTotal            = errors.New("购买总额必须大于零")
	ErrPurchaseConflict     = errors.New("购买处理冲突，请重试")
	ErrPurchaseItemRequired = errors.New("购买清单不能为空")
)

// 钱包相关错误
var (
	ErrWalletAccountNotFound         = errors.New("钱包账户不存在")
	ErrWalletAccountCreateFailed     = errors.New("钱包账户创建失败")
	ErrWalletAccountUpdateFailed     = errors.New("钱包账户更新失败")
	ErrWalletTransactionCreateFailed = errors.New("钱包流水写入失败")
	ErrWalletInvalidAmount           = errors.New("金额必须大于零")
	ErrWalletInsufficientBalance     = errors.New("钱包余额不足")
)

// 等级与重算相关错误
var (
	ErrLevelPolicyInvalid   = errors.New("等级规则配置无效")
	ErrRecalcJobNotFound    = errors.New("重算任务不存在")
	ErrWorkerConfigInvalid  = errors.New("重算工作器配置无效")
	ErrCoinConfigInvalid    = errors.New("赠币配置无效")
	ErrStopUserUnresolvable = errors.New("截止账号无法解析")
)

// 服务中心相关错误
var (
	ErrCenterManagerNotFound = errors.New("服务中心管理人不存在")
	ErrCenterPercentInvalid  = errors.New("服务费比例无效")
)

// 仪表盘相关错误
var (
	ErrDashboardRangeInvalid = errors.New("仪表盘时间范围无效")
)
