package repository

import "time"

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page        int
	PageSize    int
	Keyword     string
	Status      string
	Level       *int
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PackageListFilter 查询套餐列表的过滤条件
type PackageListFilter struct {
	Page       int
	PageSize   int
	Keyword    string
	Status     string
	OnlyActive bool
	WithRates  bool
}

// PackageHistoryListFilter 查询购买记录的过滤条件
type PackageHistoryListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	PackageID   uint
	PurchaseNo  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ReferralCommissionListFilter 查询推荐返佣的过滤条件
type ReferralCommissionListFilter struct {
	Page              int
	PageSize          int
	BuyerUserID       uint
	BeneficiaryUserID uint
	HistoryID         uint
	Level             int
	CreatedFrom       *time.Time
	CreatedTo         *time.Time
}

// CenterCommissionListFilter 查询服务中心费用的过滤条件
type CenterCommissionListFilter struct {
	Page         int
	PageSize     int
	CenterUserID uint
	BuyerUserID  uint
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// RecalcJobListFilter 查询重算任务的过滤条件
type RecalcJobListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Status      string
	Reason      string
	OwnerID     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// WalletTransactionListFilter 查询钱包流水的过滤条件
type WalletTransactionListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Token       string
	Type        string
	Direction   string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// UserLoginLogListFilter 查询登录日志的过滤条件
type UserLoginLogListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Email       string
	Status      string
	FailReason  string
	ClientIP    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// AuthzAuditLogListFilter 查询权限审计日志的过滤条件
type AuthzAuditLogListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	TargetAdminID   uint
	Action          string
	Role            string
	Object          string
	Method          string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}
