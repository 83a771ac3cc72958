package provider

import (
	"github.com/fenxiao-next/internal/authz"
	"github.com/fenxiao-next/internal/cache"
	"github.com/fenxiao-next/internal/config"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/queue"
	"github.com/fenxiao-next/internal/repository"
	"github.com/fenxiao-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo         repository.AdminRepository
	UserRepo          repository.UserRepository
	ReferralRepo      repository.ReferralRepository
	PackageRepo       repository.PackageRepository
	CommissionRepo    repository.CommissionRepository
	CenterRepo        repository.CenterRepository
	LevelRepo         repository.LevelRequirementRepository
	RecalcJobRepo     repository.RecalcJobRepository
	WalletRepo        repository.WalletRepository
	SettingRepo       repository.SettingRepository
	UserLoginLogRepo  repository.UserLoginLogRepository
	AuthzAuditLogRepo repository.AuthzAuditLogRepository
	DashboardRepo     repository.DashboardRepository

	// Services
	AuthzService        *authz.Service
	AuthService         *service.AuthService
	UserAuthService     *service.UserAuthService
	SettingService      *service.SettingService
	WalletService       *service.WalletService
	ReferralService     *service.ReferralService
	LevelService        *service.LevelService
	PackageService      *service.PackageService
	PurchaseService     *service.PurchaseService
	RecalcService       *service.RecalcService
	CenterService       *service.CenterService
	UserLoginLogService *service.UserLoginLogService
	AuthzAuditService   *service.AuthzAuditService
	DashboardService    *service.DashboardService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.ReferralRepo = repository.NewReferralRepository(db)
	c.PackageRepo = repository.NewPackageRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.CenterRepo = repository.NewCenterRepository(db)
	c.LevelRepo = repository.NewLevelRequirementRepository(db)
	c.RecalcJobRepo = repository.NewRecalcJobRepository(db)
	c.WalletRepo = repository.NewWalletRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
	c.UserLoginLogRepo = repository.NewUserLoginLogRepository(db)
	c.AuthzAuditLogRepo = repository.NewAuthzAuditLogRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo)
	c.WalletService = service.NewWalletService(c.WalletRepo)
	c.ReferralService = service.NewReferralService(c.ReferralRepo, c.UserRepo)
	c.LevelService = service.NewLevelService(c.LevelRepo, c.ReferralRepo, c.PackageRepo, c.UserRepo)
	c.RecalcService = service.NewRecalcService(c.RecalcJobRepo, c.LevelService, c.ReferralService, c.SettingService, c.QueueClient)
	c.PackageService = service.NewPackageService(c.PackageRepo)
	c.PurchaseService = service.NewPurchaseService(
		c.PackageRepo,
		c.CommissionRepo,
		c.CenterRepo,
		c.UserRepo,
		c.WalletService,
		c.ReferralService,
		c.SettingService,
		c.RecalcService,
	)
	c.CenterService = service.NewCenterService(c.CenterRepo, c.ReferralRepo, c.UserRepo)
	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo, c.ReferralService)
	c.UserLoginLogService = service.NewUserLoginLogService(c.UserLoginLogRepo)
	c.AuthzAuditService = service.NewAuthzAuditService(c.AuthzAuditLogRepo)
	c.DashboardService = service.NewDashboardService(c.DashboardRepo, c.SettingService)
}
