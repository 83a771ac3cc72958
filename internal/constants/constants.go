package constants

// 套餐状态常量
const (
	PackageStatusActive   = "active"
	PackageStatusDisabled = "disabled"
)

// 购买单号前缀
const (
	PurchaseNoPrefix = "P"
)

// 推荐佣金状态常量
const (
	ReferralCommissionStatusSettled = "settled"
)

// 服务中心佣金状态常量
const (
	CenterCommissionStatusSettled = "settled"
)

// 等级规则类型常量
const (
	LevelRequirementNodeAmountMin               = "node_amount_min"
	LevelRequirementGroupSalesAmountMin         = "group_sales_amount_min"
	LevelRequirementDirectReferralCountMin      = "direct_referral_count_min"
	LevelRequirementDirectDownlineLevelCountMin = "direct_downline_level_count_min"
)

// 重算任务状态常量
const (
	RecalcJobStatusQueued    = "queued"
	RecalcJobStatusLeased    = "leased"
	RecalcJobStatusCompleted = "completed"
)

// 重算任务触发原因常量
const (
	RecalcReasonPurchase   = "purchase"
	RecalcReasonAdminGrant = "admin_grant"
	RecalcReasonPolicy     = "policy_change"
	RecalcReasonManual     = "manual"
)

// 重算工作器模式常量
const (
	WorkerModeInterval = "interval"
	WorkerModeBurst    = "burst"
)

// 钱包币种常量
const (
	WalletTokenUSDT = "usdt"
	WalletTokenCoin = "coin"
)

// 钱包交易类型常量
const (
	WalletTxnTypePurchase    = "purchase"
	WalletTxnTypeCommission  = "commission"
	WalletTxnTypeCenterFee   = "center_fee"
	WalletTxnTypeCoinBonus   = "coin_bonus"
	WalletTxnTypeAdminAdjust = "admin_adjust"
)

// 钱包交易方向常量
const (
	WalletTxnDirectionIn  = "in"
	WalletTxnDirectionOut = "out"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 登录日志状态常量
const (
	LoginLogStatusSuccess = "success"
	LoginLogStatusFailed  = "failed"
)

// 登录日志失败原因常量
const (
	LoginLogFailReasonBadRequest         = "bad_request"
	LoginLogFailReasonInvalidCredentials = "invalid_credentials"
	LoginLogFailReasonUserDisabled       = "user_disabled"
	LoginLogFailReasonInternalError      = "internal_error"
)

// 登录日志来源常量
const (
	LoginLogSourceWeb = "web"
)

// 队列常量
const (
	QueueDefault    = "default"
	TaskLevelRecalc = "level:recalc"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "fx"
)

// 设置键常量
const (
	SettingKeySiteConfig      = "site_config"
	SettingKeyWorkerConfig    = "recalc_worker_config"
	SettingKeyCoinConfig      = "coin_config"
	SettingKeyDashboardConfig = "dashboard_config"
)

// 站点设置字段常量
const (
	SettingFieldSiteCurrency = "currency"
	SiteCurrencyDefault      = "USD"
)

// 推荐链防御上限：分组销量向上滚动时最多跨越的层数
const (
	MaxRollupHops = 512
)
