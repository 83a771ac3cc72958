package main

import (
	"fmt"
	"os"

	"github.com/fenxiao-next/internal/config"
	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 默认管理员
	if err := models.InitDefaultAdmin(os.Getenv("FX_DEFAULT_ADMIN_USERNAME"), os.Getenv("FX_DEFAULT_ADMIN_PASSWORD")); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	}

	// 根账号
	// 注册接口强制要求推荐人，推荐树的根只能在这里创建。
	rootEmail := os.Getenv("FX_ROOT_EMAIL")
	if rootEmail == "" {
		rootEmail = "root@fenxiao.local"
	}
	rootPassword := os.Getenv("FX_ROOT_PASSWORD")
	if rootPassword == "" {
		rootPassword = "Root@123456"
	}
	var root models.User
	if err := models.DB.Where("handle = ?", "root").First(&root).Error; err != nil {
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(rootPassword), bcrypt.DefaultCost)
		if hashErr != nil {
			stdLog.Fatalf("Failed to hash root password: %v", hashErr)
		}
		root = models.User{
			Email:        rootEmail,
			Handle:       "root",
			PasswordHash: string(hash),
			DisplayName:  "root",
			Status:       constants.UserStatusActive,
		}
		if err := models.DB.Create(&root).Error; err != nil {
			stdLog.Fatalf("Failed to create root user: %v", err)
		}
		stdLog.Printf("Created root user: %s (id=%d)", rootEmail, root.ID)
	} else {
		stdLog.Printf("Root user already exists: %s (id=%d)", root.Email, root.ID)
	}

	// 示例套餐：逐层返佣 5% / 3% / 2%
	packages := []struct {
		Code     string
		Name     map[string]interface{}
		Price    decimal.Decimal
		Sort     int
		Percents []string
	}{
		{
			Code: "starter",
			Name: map[string]interface{}{
				"zh-CN": "入门套餐",
				"zh-TW": "入門套餐",
				"en-US": "Starter Package",
			},
			Price:    decimal.NewFromInt(100),
			Sort:     300,
			Percents: []string{"5", "3", "2"},
		},
		{
			Code: "growth",
			Name: map[string]interface{}{
				"zh-CN": "进阶套餐",
				"zh-TW": "進階套餐",
				"en-US": "Growth Package",
			},
			Price:    decimal.NewFromInt(500),
			Sort:     200,
			Percents: []string{"6", "4", "2"},
		},
		{
			Code: "pro",
			Name: map[string]interface{}{
				"zh-CN": "旗舰套餐",
				"zh-TW": "旗艦套餐",
				"en-US": "Pro Package",
			},
			Price:    decimal.NewFromInt(1000),
			Sort:     100,
			Percents: []string{"8", "5", "3"},
		},
	}

	for _, plan := range packages {
		var existing models.Package
		if err := models.DB.Where("code = ?", plan.Code).First(&existing).Error; err == nil {
			stdLog.Printf("Package already exists: %s", plan.Code)
			continue
		}
		pkg := models.Package{
			Code:      plan.Code,
			NameJSON:  models.JSON(plan.Name),
			Price:     models.NewMoneyFromDecimal(plan.Price),
			Status:    constants.PackageStatusActive,
			SortOrder: plan.Sort,
		}
		if err := models.DB.Create(&pkg).Error; err != nil {
			stdLog.Printf("Failed to create package %s: %v", plan.Code, err)
			continue
		}
		for i, percent := range plan.Percents {
			value, err := decimal.NewFromString(percent)
			if err != nil {
				stdLog.Printf("Invalid rate percent %s for %s: %v", percent, plan.Code, err)
				continue
			}
			rate := models.PackageRate{
				PackageID: pkg.ID,
				Level:     i + 1,
				Percent:   value,
			}
			if err := models.DB.Create(&rate).Error; err != nil {
				stdLog.Printf("Failed to create rate for %s level %d: %v", plan.Code, i+1, err)
			}
		}
		stdLog.Printf("Created package: %s", plan.Code)
	}

	// 示例等级规则
	// 同一 (level, group_ordinal) 内为 AND，不同 group_ordinal 之间为 OR。
	var requirementCount int64
	models.DB.Model(&models.LevelRequirement{}).Count(&requirementCount)
	if requirementCount == 0 {
		requirements := []models.LevelRequirement{
			// L1：自购满 100
			{Level: 1, GroupOrdinal: 1, Kind: constants.LevelRequirementNodeAmountMin, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(100))},
			// L2：自购满 1000，或 分组销量满 10000
			{Level: 2, GroupOrdinal: 1, Kind: constants.LevelRequirementNodeAmountMin, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(1000))},
			{Level: 2, GroupOrdinal: 2, Kind: constants.LevelRequirementGroupSalesAmountMin, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(10000))},
			// L3：直推满 5 人 且 其中 2 人达到 L2，或 分组销量满 100000
			{Level: 3, GroupOrdinal: 1, Kind: constants.LevelRequirementDirectReferralCountMin, Count: 5},
			{Level: 3, GroupOrdinal: 1, Kind: constants.LevelRequirementDirectDownlineLevelCountMin, Count: 2, TargetLevel: 2},
			{Level: 3, GroupOrdinal: 2, Kind: constants.LevelRequirementGroupSalesAmountMin, Amount: models.NewMoneyFromDecimal(decimal.NewFromInt(100000))},
		}
		for _, req := range requirements {
			if err := models.DB.Create(&req).Error; err != nil {
				stdLog.Printf("Failed to create level requirement L%d/G%d: %v", req.Level, req.GroupOrdinal, err)
			}
		}
		stdLog.Printf("Created %d level requirements", len(requirements))
	} else {
		stdLog.Printf("Level requirements already exist: %d rows", requirementCount)
	}

	// 根账号设为服务中心管理人，默认费率 2%
	var manager models.CenterManager
	if err := models.DB.Where("user_id = ?", root.ID).First(&manager).Error; err != nil {
		manager = models.CenterManager{
			UserID:   root.ID,
			Percent:  decimal.NewFromInt(2),
			IsActive: true,
		}
		if err := models.DB.Create(&manager).Error; err != nil {
			stdLog.Printf("Failed to create center manager: %v", err)
		} else {
			stdLog.Printf("Created center manager for root (percent=2)")
		}
	} else {
		stdLog.Printf("Center manager already exists for root")
	}

	// 站点配置
	configData := map[string]interface{}{
		constants.SettingFieldSiteCurrency: constants.SiteCurrencyDefault,
		"languages":                        []string{"zh-CN", "zh-TW", "en-US"},
		"contact": map[string]string{
			"telegram": "https://t.me/fenxiaonext",
		},
	}

	var setting models.Setting
	if err := models.DB.Where("key = ?", constants.SettingKeySiteConfig).First(&setting).Error; err != nil {
		setting = models.Setting{
			Key:       constants.SettingKeySiteConfig,
			ValueJSON: models.JSON(configData),
		}
		if err := models.DB.Create(&setting).Error; err != nil {
			stdLog.Printf("Failed to create setting: %v", err)
		} else {
			stdLog.Println("Created site config")
		}
	} else {
		stdLog.Println("Site config already exists")
	}

	fmt.Println("\n✅ Seed data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- Default admin")
	fmt.Println("- Root user (referral tree root)")
	fmt.Println("- 3 Packages with per-level commission rates")
	fmt.Println("- Level requirements (L1-L3)")
	fmt.Println("- Root center manager (2%)")
	fmt.Println("- Site configuration")
}
