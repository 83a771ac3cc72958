package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type purchaseTestEnv struct {
	db          *gorm.DB
	purchaseSvc *PurchaseService
	walletSvc   *WalletService
	referralSvc *ReferralService
	settingSvc  *SettingService
	packageRepo repository.PackageRepository
	jobRepo     repository.RecalcJobRepository
}

func setupPurchaseServiceTest(t *testing.T) *purchaseTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:purchase_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.ReferralEdge{},
		&models.ReferralGroupSummary{},
		&models.Package{},
		&models.PackageRate{},
		&models.OwnedPackage{},
		&models.PackageHistory{},
		&models.ReferralCommission{},
		&models.CenterManager{},
		&models.UserCenterLink{},
		&models.CenterCommission{},
		&models.LevelRequirement{},
		&models.RecalcJob{},
		&models.WalletAccount{},
		&models.WalletTransaction{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	userRepo := repository.NewUserRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	packageRepo := repository.NewPackageRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	centerRepo := repository.NewCenterRepository(db)
	levelRepo := repository.NewLevelRequirementRepository(db)
	jobRepo := repository.NewRecalcJobRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	settingSvc := NewSettingService(settingRepo)
	walletSvc := NewWalletService(walletRepo)
	referralSvc := NewReferralService(referralRepo, userRepo)
	levelSvc := NewLevelService(levelRepo, referralRepo, packageRepo, userRepo)
	recalcSvc := NewRecalcService(jobRepo, levelSvc, referralSvc, settingSvc, nil)
	purchaseSvc := NewPurchaseService(packageRepo, commissionRepo, centerRepo, userRepo, walletSvc, referralSvc, settingSvc, recalcSvc)

	return &purchaseTestEnv{
		db:          db,
		purchaseSvc: purchaseSvc,
		walletSvc:   walletSvc,
		referralSvc: referralSvc,
		settingSvc:  settingSvc,
		packageRepo: packageRepo,
		jobRepo:     jobRepo,
	}
}

func (env *purchaseTestEnv) createUser(t *testing.T, id uint, handle string) {
	t.Helper()
	user := models.User{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", handle),
		Handle:       handle,
		PasswordHash: "hash",
		Status:       constants.UserStatusActive,
	}
	if err := env.db.Create(&user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
}

func (env *purchaseTestEnv) createPackage(t *testing.T, code string, price int64, rates map[int]string) *models.Package {
	t.Helper()
	pkg := models.Package{
		Code:     code,
		NameJSON: models.JSON{"zh-CN": code},
		Price:    models.NewMoneyFromDecimal(decimal.NewFromInt(price)),
		Status:   constants.PackageStatusActive,
	}
	if err := env.db.Create(&pkg).Error; err != nil {
		t.Fatalf("create package failed: %v", err)
	}
	for level, percent := range rates {
		rate := models.PackageRate{
			PackageID: pkg.ID,
			Level:     level,
			Percent:   decimal.RequireFromString(percent),
		}
		if err := env.db.Create(&rate).Error; err != nil {
			t.Fatalf("create rate failed: %v", err)
		}
	}
	return &pkg
}

func (env *purchaseTestEnv) fundWallet(t *testing.T, userID uint, amount int64) {
	t.Helper()
	if _, _, err := env.walletSvc.AdminAdjustBalance(WalletAdjustInput{
		UserID: userID,
		Token:  constants.WalletTokenUSDT,
		Delta:  models.NewMoneyFromDecimal(decimal.NewFromInt(amount)),
	}); err != nil {
		t.Fatalf("fund wallet failed: %v", err)
	}
}

func (env *purchaseTestEnv) giveOwnedPackage(t *testing.T, userID, packageID uint) {
	t.Helper()
	owned := models.OwnedPackage{UserID: userID, PackageID: packageID, Quantity: 1}
	if err := env.db.Create(&owned).Error; err != nil {
		t.Fatalf("create owned package failed: %v", err)
	}
}

func (env *purchaseTestEnv) balanceOf(t *testing.T, userID uint, token string) string {
	t.Helper()
	account, err := env.walletSvc.GetAccount(userID, token)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	return account.Balance.String()
}

// 推荐链 root(1) <- gp(2) <- parent(3) <- buyer(4)
func (env *purchaseTestEnv) buildChain(t *testing.T) {
	t.Helper()
	env.createUser(t, 1, "root")
	env.createUser(t, 2, "gp")
	env.createUser(t, 3, "parent")
	env.createUser(t, 4, "buyer")
	links := [][2]uint{{2, 1}, {3, 2}, {4, 3}}
	for _, pair := range links {
		if _, err := env.referralSvc.Link(ReferralLinkInput{ChildID: pair[0], ReferrerID: pair[1], GroupNo: 1}); err != nil {
			t.Fatalf("link %d -> %d failed: %v", pair[0], pair[1], err)
		}
	}
}

func TestPurchaseSettlesCommissionsWithSkip(t *testing.T) {
	env := setupPurchaseServiceTest(t)
	env.buildChain(t)
	pkg := env.createPackage(t, "starter", 100, map[int]string{1: "5", 2: "3", 3: "2"})

	// parent 与 root 有返佣资格，gp 名下无套餐
	env.giveOwnedPackage(t, 3, pkg.ID)
	env.giveOwnedPackage(t, 1, pkg.ID)
	env.fundWallet(t, 4, 250)

	result, err := env.purchaseSvc.Purchase(PurchaseInput{
		BuyerID: 4,
		Items:   []PurchaseItemInput{{PackageID: pkg.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}

	if !strings.HasPrefix(result.PurchaseNo, constants.PurchaseNoPrefix) {
		t.Fatalf("purchase no should carry the prefix, got %s", result.PurchaseNo)
	}
	if result.TotalPrice.String() != "100.00" {
		t.Fatalf("total want 100.00 got %s", result.TotalPrice.String())
	}
	if len(result.Histories) != 1 || result.Histories[0].Quantity != 1 {
		t.Fatalf("unexpected histories: %+v", result.Histories)
	}

	// 一层 5%，三层 2%；二层因 gp 无资格被跳过且不顺延
	if len(result.Commissions) != 2 {
		t.Fatalf("commissions len want 2 got %d", len(result.Commissions))
	}
	byLevel := make(map[int]models.ReferralCommission, len(result.Commissions))
	for _, commission := range result.Commissions {
		byLevel[commission.Level] = commission
	}
	if byLevel[1].BeneficiaryUserID != 3 || byLevel[1].CommissionAmount.String() != "5.00" {
		t.Fatalf("unexpected level 1 commission: %+v", byLevel[1])
	}
	if byLevel[3].BeneficiaryUserID != 1 || byLevel[3].CommissionAmount.String() != "2.00" {
		t.Fatalf("unexpected level 3 commission: %+v", byLevel[3])
	}
	if _, exists := byLevel[2]; exists {
		t.Fatalf("ineligible upline must be skipped, not forwarded")
	}

	if got := env.balanceOf(t, 4, constants.WalletTokenUSDT); got != "150.00" {
		t.Fatalf("buyer balance want 150.00 got %s", got)
	}
	if got := env.balanceOf(t, 3, constants.WalletTokenUSDT); got != "5.00" {
		t.Fatalf("parent balance want 5.00 got %s", got)
	}
	if got := env.balanceOf(t, 2, constants.WalletTokenUSDT); got != "0.00" {
		t.Fatalf("gp balance want 0.00 got %s", got)
	}
	if got := env.balanceOf(t, 1, constants.WalletTokenUSDT); got != "2.00" {
		t.Fatalf("root balance want 2.00 got %s", got)
	}

	// 业绩沿链路滚动到每个上级的 1 号分组
	for _, userID := range []uint{1, 2, 3} {
		summaries, err := env.referralSvc.GetGroupSummaries(userID)
		if err != nil {
			t.Fatalf("get summaries for %d failed: %v", userID, err)
		}
		if len(summaries) != 1 || summaries[0].SalesVolume.String() != "100.00" {
			t.Fatalf("user %d group sales want 100.00 got %+v", userID, summaries)
		}
	}

	// 购买后入队等级重算，去重键绑定购买单号
	job, err := env.jobRepo.GetByDedupeKey(fmt.Sprintf("purchase:%s", result.PurchaseNo))
	if err != nil {
		t.Fatalf("get recalc job failed: %v", err)
	}
	if job == nil || job.UserID != 4 || job.Reason != constants.RecalcReasonPurchase {
		t.Fatalf("unexpected recalc job: %+v", job)
	}

	// 买家持有数量累加
	var owned models.OwnedPackage
	if err := env.db.Where("user_id = ? AND package_id = ?", 4, pkg.ID).First(&owned).Error; err != nil {
		t.Fatalf("load owned package failed: %v", err)
	}
	if owned.Quantity != 1 {
		t.Fatalf("owned quantity want 1 got %d", owned.Quantity)
	}
}

func TestPurchaseSettlesCenterFees(t *testing.T) {
	env := setupPurchaseServiceTest(t)
	env.buildChain(t)
	pkg := env.createPackage(t, "starter", 100, map[int]string{1: "5"})
	env.fundWallet(t, 4, 100)

	manager := models.CenterManager{
		UserID:   1,
		Percent:  decimal.NewFromInt(2),
		IsActive: true,
	}
	if err := env.db.Create(&manager).Error; err != nil {
		t.Fatalf("create center manager failed: %v", err)
	}
	expired := models.CenterManager{
		UserID:   2,
		Percent:  decimal.NewFromInt(3),
		IsActive: true,
	}
	past := time.Now().Add(-time.Hour)
	expired.EffectiveTo = &past
	if err := env.db.Create(&expired).Error; err != nil {
		t.Fatalf("create expired manager failed: %v", err)
	}
	links := []models.UserCenterLink{
		{UserID: 4, CenterUserID: 1, Distance: 3, Rank: 1},
		{UserID: 4, CenterUserID: 2, Distance: 2, Rank: 1},
	}
	if err := env.db.Create(&links).Error; err != nil {
		t.Fatalf("create center links failed: %v", err)
	}

	result, err := env.purchaseSvc.Purchase(PurchaseInput{
		BuyerID: 4,
		Items:   []PurchaseItemInput{{PackageID: pkg.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}

	// 过期窗口的管理人不计费
	if len(result.CenterFees) != 1 {
		t.Fatalf("center fees len want 1 got %d", len(result.CenterFees))
	}
	fee := result.CenterFees[0]
	if fee.CenterUserID != 1 || fee.Amount.String() != "2.00" {
		t.Fatalf("unexpected center fee: %+v", fee)
	}
	if got := env.balanceOf(t, 1, constants.WalletTokenUSDT); got != "2.00" {
		t.Fatalf("center balance want 2.00 got %s", got)
	}
	if got := env.balanceOf(t, 2, constants.WalletTokenUSDT); got != "0.00" {
		t.Fatalf("expired center must not be paid, got %s", got)
	}
}

func TestPurchaseInsufficientBalanceRollsBack(t *testing.T) {
	env := setupPurchaseServiceTest(t)
	env.buildChain(t)
	pkg := env.createPackage(t, "starter", 100, map[int]string{1: "5"})
	env.giveOwnedPackage(t, 3, pkg.ID)
	env.fundWallet(t, 4, 10)

	_, err := env.purchaseSvc.Purchase(PurchaseInput{
		BuyerID: 4,
		Items:   []PurchaseItemInput{{PackageID: pkg.ID, Quantity: 1}},
	})
	if !errors.Is(err, ErrWalletInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	var histories, commissions, jobs int64
	if err := env.db.Model(&models.PackageHistory{}).Count(&histories).Error; err != nil {
		t.Fatalf("count histories failed: %v", err)
	}
	if err := env.db.Model(&models.ReferralCommission{}).Count(&commissions).Error; err != nil {
		t.Fatalf("count commissions failed: %v", err)
	}
	if err := env.db.Model(&models.RecalcJob{}).Count(&jobs).Error; err != nil {
		t.Fatalf("count jobs failed: %v", err)
	}
	if histories != 0 || commissions != 0 || jobs != 0 {
		t.Fatalf("failed purchase must leave no side effects: histories=%d commissions=%d jobs=%d", histories, commissions, jobs)
	}
	if got := env.balanceOf(t, 4, constants.WalletTokenUSDT); got != "10.00" {
		t.Fatalf("buyer balance should be untouched, got %s", got)
	}

	// 分组销量也不应被滚动
	summaries, err := env.referralSvc.GetGroupSummaries(3)
	if err != nil {
		t.Fatalf("get summaries failed: %v", err)
	}
	for _, summary := range summaries {
		if !summary.SalesVolume.Decimal.IsZero() {
			t.Fatalf("group sales should stay zero, got %s", summary.SalesVolume.String())
		}
	}
}

func TestPurchaseMergesDuplicateItems(t *testing.T) {
	env := setupPurchaseServiceTest(t)
	env.createUser(t, 1, "solo")
	pkg := env.createPackage(t, "starter", 100, nil)
	env.fundWallet(t, 1, 300)

	result, err := env.purchaseSvc.Purchase(PurchaseInput{
		BuyerID: 1,
		Items: []PurchaseItemInput{
			{PackageID: pkg.ID, Quantity: 1},
			{PackageID: pkg.ID, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}
	if len(result.Histories) != 1 {
		t.Fatalf("merged purchase should produce one history line, got %d", len(result.Histories))
	}
	if result.Histories[0].Quantity != 3 || result.Histories[0].TotalPrice.String() != "300.00" {
		t.Fatalf("unexpected merged line: %+v", result.Histories[0])
	}
	if got := env.balanceOf(t, 1, constants.WalletTokenUSDT); got != "0.00" {
		t.Fatalf("buyer balance want 0.00 got %s", got)
	}
}

func TestPurchaseValidation(t *testing.T) {
	env := setupPurchaseServiceTest(t)
	env.createUser(t, 1, "solo")
	pkg := env.createPackage(t, "starter", 100, nil)

	if _, err := env.purchaseSvc.Purchase(PurchaseInput{BuyerID: 1}); !errors.Is(err, ErrPurchaseItemRequired) {
		t.Fatalf("empty items should be rejected, got %v", err)
	}
	if _, err := env.purchaseSvc.Purchase(PurchaseInput{
		BuyerID: 1,
		Items:   []PurchaseItemInput{{PackageID: pkg.ID, Quantity: 0}},
	}); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("zero quantity should be rejected, got %v", err)
	}
	if _, err := env.purchaseSvc.Purchase(PurchaseInput{
		BuyerID: 1,
		Items:   []PurchaseItemInput{{PackageID: 999, Quantity: 1}},
	}); !errors.Is(err, ErrPackageNotFound) {
		t.Fatalf("unknown package should be rejected, got %v", err)
	}

	if err := env.db.Model(&models.Package{}).Where("id = ?", pkg.ID).
		Update("status", constants.PackageStatusDisabled).Error; err != nil {
		t.Fatalf("disable package failed: %v", err)
	}
	if _, err := env.purchaseSvc.Purchase(PurchaseInput{
		BuyerID: 1,
		Items:   []PurchaseItemInput{{PackageID: pkg.ID, Quantity: 1}},
	}); !errors.Is(err, ErrPackageDisabled) {
		t.Fatalf("disabled package should be rejected, got %v", err)
	}
}

func TestPurchaseCoinBonusForSinglePackageOrders(t *testing.T) {
	env := setupPurchaseServiceTest(t)
	env.createUser(t, 1, "solo")
	starter := env.createPackage(t, "starter", 100, nil)
	pro := env.createPackage(t, "pro", 50, nil)
	env.fundWallet(t, 1, 500)

	if _, err := env.settingSvc.Update(constants.SettingKeyCoinConfig, map[string]interface{}{
		"is_active":  true,
		"coin_price": "10",
	}); err != nil {
		t.Fatalf("enable coin config failed: %v", err)
	}

	result, err := env.purchaseSvc.Purchase(PurchaseInput{
		BuyerID: 1,
		Items:   []PurchaseItemInput{{PackageID: starter.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}
	if result.CoinBonus.String() != "10.00" {
		t.Fatalf("coin bonus want 10.00 got %s", result.CoinBonus.String())
	}
	if got := env.balanceOf(t, 1, constants.WalletTokenCoin); got != "10.00" {
		t.Fatalf("coin balance want 10.00 got %s", got)
	}

	// 混合套餐的订单不赠币
	result, err = env.purchaseSvc.Purchase(PurchaseInput{
		BuyerID: 1,
		Items: []PurchaseItemInput{
			{PackageID: starter.ID, Quantity: 1},
			{PackageID: pro.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("mixed purchase failed: %v", err)
	}
	if !result.CoinBonus.Decimal.IsZero() {
		t.Fatalf("mixed orders must not earn coins, got %s", result.CoinBonus.String())
	}
}
