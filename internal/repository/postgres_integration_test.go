//go:build integration
// +build integration

package repository

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := []interface{}{
		&models.WalletTransaction{},
		&models.WalletAccount{},
		&models.PackageHistory{},
		&models.Package{},
		&models.RecalcJob{},
		&models.User{},
	}
	_ = db.Migrator().DropTable(cleanupModels...)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Package{},
		&models.PackageHistory{},
		&models.RecalcJob{},
		&models.WalletAccount{},
		&models.WalletTransaction{},
	); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresRecalcJobLeaseProtocol(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewRecalcJobRepository(db)

	key := "purchase:PG0001"
	job := &models.RecalcJob{UserID: 1, Reason: constants.RecalcReasonPurchase, DedupeKey: &key}
	inserted, err := repo.Enqueue(job)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if !inserted {
		t.Fatalf("first enqueue should insert")
	}

	dup := &models.RecalcJob{UserID: 1, Reason: constants.RecalcReasonPurchase, DedupeKey: &key}
	inserted, err = repo.Enqueue(dup)
	if err != nil {
		t.Fatalf("duplicate enqueue failed: %v", err)
	}
	if inserted {
		t.Fatalf("duplicate dedupe key must not insert")
	}

	now := time.Now()
	lease := now.Add(time.Minute)
	claimed, err := repo.Claim(job.ID, "pg-worker-a", lease, now, 30*time.Second, 24*time.Hour)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if !claimed {
		t.Fatalf("queued job should be claimable")
	}

	// 租约未过期时其他实例不能抢占
	claimed, err = repo.Claim(job.ID, "pg-worker-b", lease, now, 30*time.Second, 24*time.Hour)
	if err != nil {
		t.Fatalf("competing claim failed: %v", err)
	}
	if claimed {
		t.Fatalf("leased job must not be claimed by another owner")
	}

	ok, err := repo.Complete(job.ID, "pg-worker-a", "")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if !ok {
		t.Fatalf("lease owner should complete the job")
	}

	stored, err := repo.GetByID(job.ID)
	if err != nil {
		t.Fatalf("get job failed: %v", err)
	}
	if stored.Status != constants.RecalcJobStatusCompleted || stored.Attempts != 1 {
		t.Fatalf("unexpected job state: %+v", stored)
	}
}

func TestPostgresWalletTransactionReferenceUnique(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewWalletRepository(db)

	txn := &models.WalletTransaction{
		UserID:       1,
		Token:        constants.WalletTokenUSDT,
		Type:         constants.WalletTxnTypePurchase,
		Direction:    constants.WalletTxnDirectionOut,
		Amount:       models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		BalanceAfter: models.NewMoneyFromDecimal(decimal.NewFromInt(90)),
		Reference:    "purchase:PG0001:pay",
	}
	if err := repo.CreateTransaction(txn); err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}

	dup := &models.WalletTransaction{
		UserID:    1,
		Token:     constants.WalletTokenUSDT,
		Type:      constants.WalletTxnTypePurchase,
		Direction: constants.WalletTxnDirectionOut,
		Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		Reference: "purchase:PG0001:pay",
	}
	if err := repo.CreateTransaction(dup); err == nil {
		t.Fatalf("duplicate reference must be rejected by unique index")
	}

	found, err := repo.GetTransactionByReference("purchase:PG0001:pay")
	if err != nil {
		t.Fatalf("lookup by reference failed: %v", err)
	}
	if found == nil || found.ID != txn.ID {
		t.Fatalf("unexpected lookup result: %+v", found)
	}
}

func TestPostgresTopPackagesLocalizedName(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	repo := NewDashboardRepository(db)

	pkg := models.Package{
		Code:     "pg-pro",
		NameJSON: models.JSON{"zh-CN": "专业套餐", "en-US": "Pro"},
		Price:    models.NewMoneyFromDecimal(decimal.NewFromInt(500)),
		Status:   constants.PackageStatusActive,
	}
	if err := db.Create(&pkg).Error; err != nil {
		t.Fatalf("create package failed: %v", err)
	}
	history := models.PackageHistory{
		PurchaseNo: "PG0002",
		UserID:     1,
		PackageID:  pkg.ID,
		Quantity:   2,
		UnitPrice:  pkg.Price,
		TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(1000)),
	}
	if err := db.Create(&history).Error; err != nil {
		t.Fatalf("create history failed: %v", err)
	}

	startAt := time.Now().Add(-time.Hour)
	endAt := time.Now().Add(time.Hour)
	rows, err := repo.GetTopPackages(startAt, endAt, 5)
	if err != nil {
		t.Fatalf("get top packages failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one ranked package, got %d", len(rows))
	}
	if rows[0].PackageID != pkg.ID || rows[0].Name != "专业套餐" {
		t.Fatalf("unexpected ranking row: %+v", rows[0])
	}
	if rows[0].Quantity != 2 || rows[0].PaidAmount != 1000 {
		t.Fatalf("unexpected ranking totals: %+v", rows[0])
	}
}
