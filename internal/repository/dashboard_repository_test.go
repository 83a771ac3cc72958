package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupDashboardRepositoryTest(t *testing.T) (*GormDashboardRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Package{},
		&models.PackageHistory{},
		&models.ReferralCommission{},
		&models.CenterCommission{},
		&models.RecalcJob{},
	); err != nil {
		t.Fatalf("migrate dashboard models failed: %v", err)
	}
	return NewDashboardRepository(db), db
}

func createDashboardTestUser(t *testing.T, db *gorm.DB, id uint, level int, createdAt time.Time) {
	t.Helper()
	user := models.User{
		ID:           id,
		Email:        fmt.Sprintf("dash_user_%d@example.com", id),
		Handle:       fmt.Sprintf("dash_user_%d", id),
		PasswordHash: "hash",
		Level:        level,
		Status:       constants.UserStatusActive,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
}

func TestDashboardOverviewAggregates(t *testing.T) {
	repo, db := setupDashboardRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)
	startAt := now.Add(-24 * time.Hour)
	endAt := now.Add(time.Hour)

	createDashboardTestUser(t, db, 1, 0, now.Add(-2*time.Hour))
	createDashboardTestUser(t, db, 2, 1, now.Add(-48*time.Hour))

	packages := []models.Package{
		{Code: "starter", NameJSON: models.JSON{"zh-CN": "入门套餐"}, Price: models.NewMoneyFromDecimal(decimal.NewFromInt(100)), Status: constants.PackageStatusActive},
		{Code: "legacy", NameJSON: models.JSON{"zh-CN": "停售套餐"}, Price: models.NewMoneyFromDecimal(decimal.NewFromInt(50)), Status: constants.PackageStatusDisabled},
	}
	if err := db.Create(&packages).Error; err != nil {
		t.Fatalf("create packages failed: %v", err)
	}

	histories := []models.PackageHistory{
		{PurchaseNo: "P1", UserID: 1, PackageID: packages[0].ID, Quantity: 1, UnitPrice: packages[0].Price, TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(100)), CreatedAt: now.Add(-2 * time.Hour)},
		{PurchaseNo: "P2", UserID: 1, PackageID: packages[0].ID, Quantity: 2, UnitPrice: packages[0].Price, TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(200)), CreatedAt: now.Add(-time.Hour)},
		{PurchaseNo: "P0", UserID: 2, PackageID: packages[0].ID, Quantity: 1, UnitPrice: packages[0].Price, TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(100)), CreatedAt: now.Add(-48 * time.Hour)},
	}
	if err := db.Create(&histories).Error; err != nil {
		t.Fatalf("create histories failed: %v", err)
	}

	commission := models.ReferralCommission{
		BuyerUserID:       1,
		BeneficiaryUserID: 2,
		HistoryID:         histories[0].ID,
		Level:             1,
		Percent:           decimal.NewFromInt(5),
		BaseAmount:        histories[0].TotalPrice,
		CommissionAmount:  models.NewMoneyFromDecimal(decimal.RequireFromString("5.00")),
		Status:            constants.ReferralCommissionStatusSettled,
		CreatedAt:         now.Add(-2 * time.Hour),
	}
	if err := db.Create(&commission).Error; err != nil {
		t.Fatalf("create referral commission failed: %v", err)
	}

	fee := models.CenterCommission{
		CenterUserID:    2,
		SourceHistoryID: histories[0].ID,
		BuyerUserID:     1,
		Percent:         decimal.NewFromInt(2),
		BaseAmount:      histories[0].TotalPrice,
		Amount:          models.NewMoneyFromDecimal(decimal.RequireFromString("2.00")),
		Status:          constants.CenterCommissionStatusSettled,
		CreatedAt:       now.Add(-2 * time.Hour),
	}
	if err := db.Create(&fee).Error; err != nil {
		t.Fatalf("create center commission failed: %v", err)
	}

	overview, err := repo.GetOverview(startAt, endAt)
	if err != nil {
		t.Fatalf("get overview failed: %v", err)
	}
	if overview.PurchasesTotal != 2 {
		t.Fatalf("purchases total want 2 got %d", overview.PurchasesTotal)
	}
	if overview.PurchaseVolume != 300 {
		t.Fatalf("purchase volume want 300 got %v", overview.PurchaseVolume)
	}
	if overview.ReferralCommissions != 1 || overview.ReferralPayout != 5 {
		t.Fatalf("unexpected referral stats: count=%d payout=%v", overview.ReferralCommissions, overview.ReferralPayout)
	}
	if overview.CenterCommissions != 1 || overview.CenterPayout != 2 {
		t.Fatalf("unexpected center stats: count=%d payout=%v", overview.CenterCommissions, overview.CenterPayout)
	}
	if overview.NewUsers != 1 {
		t.Fatalf("new users want 1 got %d", overview.NewUsers)
	}
	if overview.ActivePackages != 1 {
		t.Fatalf("active packages want 1 got %d", overview.ActivePackages)
	}
}

func TestDashboardTopPackagesRanking(t *testing.T) {
	repo, db := setupDashboardRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	packages := []models.Package{
		{Code: "starter", NameJSON: models.JSON{"zh-CN": "入门套餐"}, Price: models.NewMoneyFromDecimal(decimal.NewFromInt(100)), Status: constants.PackageStatusActive},
		{Code: "pro", NameJSON: models.JSON{"zh-CN": "专业套餐"}, Price: models.NewMoneyFromDecimal(decimal.NewFromInt(1000)), Status: constants.PackageStatusActive},
	}
	if err := db.Create(&packages).Error; err != nil {
		t.Fatalf("create packages failed: %v", err)
	}

	histories := []models.PackageHistory{
		{PurchaseNo: "P1", UserID: 1, PackageID: packages[0].ID, Quantity: 3, UnitPrice: packages[0].Price, TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(300)), CreatedAt: now.Add(-time.Hour)},
		{PurchaseNo: "P2", UserID: 2, PackageID: packages[1].ID, Quantity: 1, UnitPrice: packages[1].Price, TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(1000)), CreatedAt: now.Add(-time.Hour)},
	}
	if err := db.Create(&histories).Error; err != nil {
		t.Fatalf("create histories failed: %v", err)
	}

	rows, err := repo.GetTopPackages(now.Add(-24*time.Hour), now.Add(time.Hour), 5)
	if err != nil {
		t.Fatalf("get top packages failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows len want 2 got %d", len(rows))
	}
	if rows[0].PackageID != packages[1].ID || rows[0].PaidAmount != 1000 {
		t.Fatalf("highest paid amount should rank first, got %+v", rows[0])
	}
	if rows[0].Name != "专业套餐" {
		t.Fatalf("name should come from the localized payload, got %s", rows[0].Name)
	}
	if rows[1].Quantity != 3 {
		t.Fatalf("starter quantity want 3 got %d", rows[1].Quantity)
	}
}

func TestDashboardRecalcQueueStats(t *testing.T) {
	repo, db := setupDashboardRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)
	grace := 30 * time.Second

	freshLease := now.Add(time.Minute)
	staleLease := now.Add(-time.Hour)
	completedAt := now.Add(-time.Minute)
	jobs := []models.RecalcJob{
		{UserID: 1, Reason: constants.RecalcReasonManual, Status: constants.RecalcJobStatusQueued},
		{UserID: 2, Reason: constants.RecalcReasonPurchase, Status: constants.RecalcJobStatusLeased, OwnerID: "worker-a", LeaseExpiry: &freshLease},
		{UserID: 3, Reason: constants.RecalcReasonPurchase, Status: constants.RecalcJobStatusLeased, OwnerID: "worker-b", LeaseExpiry: &staleLease},
		{UserID: 4, Reason: constants.RecalcReasonManual, Status: constants.RecalcJobStatusCompleted, OwnerID: "worker-a", CompletedAt: &completedAt},
	}
	if err := db.Create(&jobs).Error; err != nil {
		t.Fatalf("create recalc jobs failed: %v", err)
	}

	stats, err := repo.GetRecalcQueueStats(now, grace)
	if err != nil {
		t.Fatalf("get queue stats failed: %v", err)
	}
	if stats.Queued != 1 || stats.Leased != 2 || stats.Stalled != 1 || stats.Completed != 1 {
		t.Fatalf("unexpected queue stats: %+v", stats)
	}
}

func TestDashboardPurchaseTrendsGroupsByDay(t *testing.T) {
	repo, db := setupDashboardRepositoryTest(t)
	dayOne := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	dayTwo := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)

	histories := []models.PackageHistory{
		{PurchaseNo: "P1", UserID: 1, PackageID: 1, Quantity: 1, TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(100)), CreatedAt: dayOne},
		{PurchaseNo: "P2", UserID: 1, PackageID: 1, Quantity: 1, TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(200)), CreatedAt: dayOne.Add(2 * time.Hour)},
		{PurchaseNo: "P3", UserID: 2, PackageID: 1, Quantity: 1, TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(500)), CreatedAt: dayTwo},
	}
	if err := db.Create(&histories).Error; err != nil {
		t.Fatalf("create histories failed: %v", err)
	}

	trends, err := repo.GetPurchaseTrends(dayOne.Add(-time.Hour), dayTwo.Add(time.Hour))
	if err != nil {
		t.Fatalf("get purchase trends failed: %v", err)
	}
	if len(trends) != 2 {
		t.Fatalf("trend days want 2 got %d", len(trends))
	}
	if trends[0].Day != "2026-08-01" || trends[0].PurchasesTotal != 2 || trends[0].PurchaseVolume != 300 {
		t.Fatalf("unexpected first day trend: %+v", trends[0])
	}
	if trends[1].Day != "2026-08-02" || trends[1].PurchaseVolume != 500 {
		t.Fatalf("unexpected second day trend: %+v", trends[1])
	}
}
