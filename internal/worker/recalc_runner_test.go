package worker

import (
	"fmt"
	"testing"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/provider"
	"github.com/fenxiao-next/internal/repository"
	"github.com/fenxiao-next/internal/service"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupRecalcRunnerTest(t *testing.T) (*RecalcRunner, *provider.Container, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:recalc_runner_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
		&models.LevelRequirement{},
		&models.RecalcJob{},
		&models.Setting{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	userRepo := repository.NewUserRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	packageRepo := repository.NewPackageRepository(db)
	levelRepo := repository.NewLevelRequirementRepository(db)
	jobRepo := repository.NewRecalcJobRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	settingSvc := service.NewSettingService(settingRepo)
	referralSvc := service.NewReferralService(referralRepo, userRepo)
	levelSvc := service.NewLevelService(levelRepo, referralRepo, packageRepo, userRepo)
	recalcSvc := service.NewRecalcService(jobRepo, levelSvc, referralSvc, settingSvc, nil)

	container := &provider.Container{
		RecalcJobRepo:  jobRepo,
		RecalcService:  recalcSvc,
		SettingService: settingSvc,
	}
	return NewRecalcRunner(container), container, db
}

func createRunnerTestUser(t *testing.T, db *gorm.DB, id uint, level int) {
	t.Helper()
	user := models.User{
		ID:           id,
		Email:        fmt.Sprintf("runner_user_%d@example.com", id),
		Handle:       fmt.Sprintf("runner_user_%d", id),
		PasswordHash: "hash",
		Level:        level,
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
}

func TestRecalcRunnerDrainOnceCompletesJob(t *testing.T) {
	runner, container, db := setupRecalcRunnerTest(t)

	// 推荐链 1 <- 2，买家 2 的购买额满足一级门槛
	createRunnerTestUser(t, db, 1, 0)
	createRunnerTestUser(t, db, 2, 0)
	edge := models.ReferralEdge{ParentID: 1, ChildID: 2, GroupNo: 1, Position: 1, Depth: 2}
	if err := db.Create(&edge).Error; err != nil {
		t.Fatalf("create edge failed: %v", err)
	}
	requirement := models.LevelRequirement{
		Level:        1,
		GroupOrdinal: 1,
		Kind:         constants.LevelRequirementNodeAmountMin,
		Amount:       models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
	}
	if err := db.Create(&requirement).Error; err != nil {
		t.Fatalf("create requirement failed: %v", err)
	}
	history := models.PackageHistory{
		PurchaseNo: "P1",
		UserID:     2,
		PackageID:  1,
		Quantity:   1,
		TotalPrice: models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
	}
	if err := db.Create(&history).Error; err != nil {
		t.Fatalf("create history failed: %v", err)
	}

	job, err := container.RecalcService.Enqueue(service.RecalcEnqueueInput{
		UserID: 2,
		Reason: constants.RecalcReasonPurchase,
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	cfg := service.WorkerDefaultSetting()
	processed, err := runner.DrainOnce(cfg)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed want 1 got %d", processed)
	}

	reloaded, err := container.RecalcJobRepo.GetByID(job.ID)
	if err != nil {
		t.Fatalf("reload job failed: %v", err)
	}
	if reloaded.Status != constants.RecalcJobStatusCompleted {
		t.Fatalf("job status want completed got %s", reloaded.Status)
	}

	var buyer models.User
	if err := db.First(&buyer, 2).Error; err != nil {
		t.Fatalf("reload buyer failed: %v", err)
	}
	if buyer.Level != 1 {
		t.Fatalf("buyer level want 1 got %d", buyer.Level)
	}

	// 上级个人购买额为零，等级不变
	var parent models.User
	if err := db.First(&parent, 1).Error; err != nil {
		t.Fatalf("reload parent failed: %v", err)
	}
	if parent.Level != 0 {
		t.Fatalf("parent level want 0 got %d", parent.Level)
	}
}

func TestRecalcRunnerDrainOnceRespectsBatchSize(t *testing.T) {
	runner, container, db := setupRecalcRunnerTest(t)
	for id := uint(1); id <= 3; id++ {
		createRunnerTestUser(t, db, id, 0)
		if _, err := container.RecalcService.Enqueue(service.RecalcEnqueueInput{
			UserID: id,
			Reason: constants.RecalcReasonManual,
		}); err != nil {
			t.Fatalf("enqueue for user %d failed: %v", id, err)
		}
	}

	cfg := service.WorkerDefaultSetting()
	cfg.BatchSize = 1
	processed, err := runner.DrainOnce(cfg)
	if err != nil {
		t.Fatalf("drain failed: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed want 1 got %d", processed)
	}

	counts, err := container.RecalcJobRepo.CountByStatus()
	if err != nil {
		t.Fatalf("count by status failed: %v", err)
	}
	if counts[constants.RecalcJobStatusQueued] != 2 || counts[constants.RecalcJobStatusCompleted] != 1 {
		t.Fatalf("unexpected counts after partial drain: %+v", counts)
	}
}

func TestRecalcRunnerTryProcessJobClaimLost(t *testing.T) {
	runner, container, db := setupRecalcRunnerTest(t)
	createRunnerTestUser(t, db, 1, 0)

	job, err := container.RecalcService.Enqueue(service.RecalcEnqueueInput{
		UserID: 1,
		Reason: constants.RecalcReasonManual,
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	now := time.Now()
	claimed, err := container.RecalcJobRepo.Claim(job.ID, "other-instance", now.Add(time.Minute), now, 30*time.Second, 0)
	if err != nil || !claimed {
		t.Fatalf("pre-claim failed: claimed=%v err=%v", claimed, err)
	}

	cfg := service.WorkerDefaultSetting()
	if err := runner.TryProcessJob(job.ID, cfg); err != nil {
		t.Fatalf("losing the claim race should not be an error: %v", err)
	}

	reloaded, err := container.RecalcJobRepo.GetByID(job.ID)
	if err != nil {
		t.Fatalf("reload job failed: %v", err)
	}
	if reloaded.OwnerID != "other-instance" || reloaded.Status != constants.RecalcJobStatusLeased {
		t.Fatalf("job should stay with the original owner, got owner=%s status=%s", reloaded.OwnerID, reloaded.Status)
	}
}

func TestRecalcRunnerOwnerIDPrefersConfiguredWorkerID(t *testing.T) {
	runner, _, _ := setupRecalcRunnerTest(t)

	cfg := service.WorkerDefaultSetting()
	cfg.WorkerID = "fixed-worker"
	if got := runner.ownerID(cfg); got != "fixed-worker" {
		t.Fatalf("owner id want fixed-worker got %s", got)
	}

	cfg.WorkerID = "   "
	if got := runner.ownerID(cfg); got == "" {
		t.Fatalf("owner id should fall back to the instance id")
	}
}
