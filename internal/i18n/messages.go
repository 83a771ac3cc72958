package i18n

// messages 按语言组织的内置文案，键缺失时由 T 按默认语言兜底。
var messages = map[string]map[string]string{
	LocaleZH: {
		"error.bad_request":         "请求参数有误",
		"error.unauthorized":        "未登录或登录已失效",
		"error.forbidden":           "没有权限执行该操作",
		"error.auth_header_missing": "缺少认证信息",
		"error.auth_header_invalid": "认证信息格式错误",
		"error.token_invalid":       "登录凭证无效",
		"error.token_revoked":       "登录凭证已失效，请重新登录",
		"error.jwt_secret_missing":  "服务端认证配置缺失",
		"error.rate_limited":        "请求过于频繁，请 %d 秒后重试",
		"error.rate_limit_unavailable": "限流服务暂不可用，请稍后重试",

		"error.register_failed":     "注册失败，请稍后重试",
		"error.login_failed":        "登录失败，请稍后重试",
		"error.login_invalid":       "邮箱或密码错误",
		"error.login_too_many":      "登录尝试过多，请稍后重试",
		"error.email_invalid":       "邮箱格式无效",
		"error.email_exists":        "该邮箱已被注册",
		"error.handle_invalid":      "用户名格式无效",
		"error.handle_exists":       "该用户名已被占用",
		"error.referrer_required":   "必须提供推荐人",
		"error.referrer_not_found":  "推荐人不存在",
		"error.password_weak":       "密码强度不足",
		"error.password_min_length": "密码长度不足",
		"error.password_require_upper":   "密码需要包含大写字母",
		"error.password_require_lower":   "密码需要包含小写字母",
		"error.password_require_number":  "密码需要包含数字",
		"error.password_require_special": "密码需要包含特殊字符",
		"error.password_old_invalid":     "原密码错误",
		"error.profile_empty":            "没有需要更新的资料",
		"error.user_not_found":           "用户不存在",
		"error.user_disabled":            "账号已被禁用",
		"error.user_fetch_failed":        "获取用户信息失败",
		"error.user_update_failed":       "更新用户信息失败",
		"error.user_id_invalid":          "用户标识无效",
		"error.user_id_type_invalid":     "用户标识类型错误",
		"error.user_login_log_fetch_failed": "获取登录记录失败",

		"error.admin_login_invalid":         "管理员账号或密码错误",
		"error.admin_username_invalid":      "管理员用户名格式无效",
		"error.admin_username_exists":       "管理员用户名已存在",
		"error.admin_create_failed":         "创建管理员失败",
		"error.admin_update_failed":         "更新管理员失败",
		"error.admin_delete_failed":         "删除管理员失败",
		"error.admin_delete_self_forbidden": "不能删除当前登录的管理员",
		"error.admin_delete_last_forbidden": "至少需要保留一名管理员",
		"error.admin_delete_protected":      "该管理员受保护，不能删除",
		"error.admin_id_invalid":            "管理员标识无效",
		"error.admin_id_type_invalid":       "管理员标识类型错误",

		"error.package_not_found":       "套餐不存在",
		"error.package_disabled":        "套餐已下架",
		"error.package_code_exists":     "套餐编码已存在",
		"error.package_invalid":         "套餐参数无效",
		"error.package_fetch_failed":    "获取套餐失败",
		"error.package_save_failed":     "保存套餐失败",
		"error.package_delete_failed":   "删除套餐失败",
		"error.package_rate_invalid":    "套餐返佣配置无效",

		"error.purchase_invalid":         "购买参数无效",
		"error.purchase_quantity_invalid": "购买数量无效",
		"error.purchase_zero_total":      "订单金额不能为零",
		"error.purchase_conflict":        "订单提交冲突，请重试",
		"error.purchase_failed":          "购买失败，请稍后重试",
		"error.purchase_fetch_failed":    "获取购买记录失败",
		"error.insufficient_balance":     "余额不足",

		"error.wallet_fetch_failed":     "获取钱包信息失败",
		"error.wallet_adjust_failed":    "钱包调整失败",
		"error.wallet_amount_invalid":   "金额无效",
		"error.wallet_token_invalid":    "币种无效",
		"error.wallet_reference_exists": "该调整已处理过",

		"error.referral_fetch_failed":    "获取推荐关系失败",
		"error.referral_cycle":           "推荐关系不能形成环",
		"error.referral_self":            "不能推荐自己",
		"error.referral_already_linked":  "该用户已绑定推荐人",
		"error.commission_fetch_failed":  "获取佣金记录失败",

		"error.level_fetch_failed":        "获取等级信息失败",
		"error.level_requirement_invalid": "等级条件配置无效",
		"error.level_save_failed":         "保存等级条件失败",
		"error.level_delete_failed":       "删除等级条件失败",
		"error.level_not_found":           "等级条件不存在",

		"error.recalc_job_not_found":    "重算任务不存在",
		"error.recalc_enqueue_failed":   "提交重算任务失败",
		"error.recalc_fetch_failed":     "获取重算任务失败",
		"error.worker_config_invalid":   "重算配置无效",
		"error.worker_stop_user_invalid": "截止用户无法解析",

		"error.center_not_found":        "运营中心不存在",
		"error.center_percent_invalid":  "运营中心抽成比例无效",
		"error.center_save_failed":      "保存运营中心失败",
		"error.center_fetch_failed":     "获取运营中心失败",
		"error.center_rebuild_failed":   "重建运营中心链路失败",
		"error.coin_config_invalid":     "赠币配置无效",

		"error.dashboard_fetch_failed":   "获取仪表盘数据失败",
		"error.dashboard_range_invalid":  "仪表盘时间范围无效",

		"error.settings_fetch_failed": "获取配置失败",
		"error.settings_save_failed":  "保存配置失败",
		"error.config_fetch_failed":   "获取站点配置失败",
		"error.save_failed":           "保存失败",
		"error.queue_unavailable":     "任务队列暂不可用",
	},
	LocaleTW: {
		"error.bad_request":         "請求參數有誤",
		"error.unauthorized":        "未登入或登入已失效",
		"error.forbidden":           "沒有權限執行該操作",
		"error.auth_header_missing": "缺少認證資訊",
		"error.auth_header_invalid": "認證資訊格式錯誤",
		"error.token_invalid":       "登入憑證無效",
		"error.token_revoked":       "登入憑證已失效，請重新登入",
		"error.jwt_secret_missing":  "伺服端認證配置缺失",
		"error.rate_limited":        "請求過於頻繁，請 %d 秒後重試",
		"error.rate_limit_unavailable": "限流服務暫不可用，請稍後重試",
		"error.login_invalid":       "信箱或密碼錯誤",
		"error.user_disabled":       "帳號已被停用",
		"error.insufficient_balance": "餘額不足",
		"error.purchase_conflict":    "訂單提交衝突，請重試",
	},
	LocaleEN: {
		"error.bad_request":         "Invalid request parameters",
		"error.unauthorized":        "Not signed in or session expired",
		"error.forbidden":           "You do not have permission to do that",
		"error.auth_header_missing": "Missing authorization header",
		"error.auth_header_invalid": "Malformed authorization header",
		"error.token_invalid":       "Invalid access token",
		"error.token_revoked":       "Access token revoked, please sign in again",
		"error.jwt_secret_missing":  "Server authentication is misconfigured",
		"error.rate_limited":        "Too many requests, retry in %d seconds",
		"error.rate_limit_unavailable": "Rate limiter unavailable, please retry later",

		"error.register_failed":    "Registration failed, please retry later",
		"error.login_failed":       "Sign-in failed, please retry later",
		"error.login_invalid":      "Incorrect email or password",
		"error.login_too_many":     "Too many sign-in attempts, please retry later",
		"error.email_invalid":      "Invalid email address",
		"error.email_exists":       "Email already registered",
		"error.handle_invalid":     "Invalid handle format",
		"error.handle_exists":      "Handle already taken",
		"error.referrer_required":  "A referrer is required",
		"error.referrer_not_found": "Referrer not found",
		"error.password_weak":      "Password is too weak",
		"error.password_old_invalid": "Current password is incorrect",
		"error.user_not_found":     "User not found",
		"error.user_disabled":      "Account is disabled",

		"error.package_not_found":   "Package not found",
		"error.package_disabled":    "Package is no longer available",
		"error.package_code_exists": "Package code already exists",

		"error.purchase_invalid":          "Invalid purchase request",
		"error.purchase_quantity_invalid": "Invalid purchase quantity",
		"error.purchase_zero_total":       "Order total must be positive",
		"error.purchase_conflict":         "Purchase conflicted, please retry",
		"error.insufficient_balance":      "Insufficient balance",

		"error.recalc_job_not_found":     "Recalculation job not found",
		"error.worker_config_invalid":    "Invalid worker configuration",
		"error.worker_stop_user_invalid": "Stop user cannot be resolved",

		"error.center_not_found":       "Center manager not found",
		"error.center_percent_invalid": "Invalid center commission percent",

		"error.dashboard_range_invalid": "Invalid dashboard time range",
		"error.settings_save_failed":    "Failed to save settings",
	},
}
