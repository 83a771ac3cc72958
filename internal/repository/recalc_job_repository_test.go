package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupRecalcJobRepositoryTest(t *testing.T) (*GormRecalcJobRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:recalc_job_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.RecalcJob{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewRecalcJobRepository(db), db
}

func enqueueTestJob(t *testing.T, repo *GormRecalcJobRepository, userID uint, dedupeKey string) *models.RecalcJob {
	t.Helper()
	job := &models.RecalcJob{
		UserID: userID,
		Reason: constants.RecalcReasonManual,
	}
	if dedupeKey != "" {
		job.DedupeKey = &dedupeKey
	}
	inserted, err := repo.Enqueue(job)
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if !inserted {
		t.Fatalf("expected a new job row")
	}
	return job
}

func TestRecalcJobEnqueueDedupe(t *testing.T) {
	repo, _ := setupRecalcJobRepositoryTest(t)

	first := enqueueTestJob(t, repo, 1, "purchase:P001")

	dup := &models.RecalcJob{UserID: 1, Reason: constants.RecalcReasonPurchase}
	key := "purchase:P001"
	dup.DedupeKey = &key
	inserted, err := repo.Enqueue(dup)
	if err != nil {
		t.Fatalf("duplicated enqueue failed: %v", err)
	}
	if inserted {
		t.Fatalf("duplicated dedupe key should not insert a new row")
	}

	existing, err := repo.GetByDedupeKey("purchase:P001")
	if err != nil {
		t.Fatalf("get by dedupe key failed: %v", err)
	}
	if existing == nil || existing.ID != first.ID {
		t.Fatalf("dedupe lookup should return the original job, got %+v", existing)
	}

	// 无去重键的任务允许重复入队
	for i := 0; i < 2; i++ {
		inserted, err := repo.Enqueue(&models.RecalcJob{UserID: 2, Reason: constants.RecalcReasonManual})
		if err != nil || !inserted {
			t.Fatalf("keyless enqueue round %d failed: inserted=%v err=%v", i, inserted, err)
		}
	}
}

func TestRecalcJobClaimMutualExclusion(t *testing.T) {
	repo, _ := setupRecalcJobRepositoryTest(t)
	job := enqueueTestJob(t, repo, 1, "")

	now := time.Now()
	grace := 30 * time.Second
	lease := now.Add(time.Minute)

	claimed, err := repo.Claim(job.ID, "worker-a", lease, now, grace, 0)
	if err != nil || !claimed {
		t.Fatalf("first claim should succeed: claimed=%v err=%v", claimed, err)
	}

	stolen, err := repo.Claim(job.ID, "worker-b", lease, now, grace, 0)
	if err != nil {
		t.Fatalf("second claim errored: %v", err)
	}
	if stolen {
		t.Fatalf("a freshly leased job must not be claimable by another worker")
	}

	alive, err := repo.Heartbeat(job.ID, "worker-b", lease.Add(time.Minute))
	if err != nil {
		t.Fatalf("heartbeat errored: %v", err)
	}
	if alive {
		t.Fatalf("only the lease owner may heartbeat")
	}

	alive, err = repo.Heartbeat(job.ID, "worker-a", lease.Add(time.Minute))
	if err != nil || !alive {
		t.Fatalf("owner heartbeat should succeed: alive=%v err=%v", alive, err)
	}

	done, err := repo.Complete(job.ID, "worker-a", "")
	if err != nil || !done {
		t.Fatalf("owner complete should succeed: done=%v err=%v", done, err)
	}

	reloaded, err := repo.GetByID(job.ID)
	if err != nil {
		t.Fatalf("reload job failed: %v", err)
	}
	if reloaded.Status != constants.RecalcJobStatusCompleted {
		t.Fatalf("status want completed got %s", reloaded.Status)
	}
	if reloaded.Attempts != 1 {
		t.Fatalf("attempts want 1 got %d", reloaded.Attempts)
	}
	if reloaded.CompletedAt == nil {
		t.Fatalf("completed_at should be set")
	}
}

func TestRecalcJobRescueAfterGrace(t *testing.T) {
	repo, _ := setupRecalcJobRepositoryTest(t)
	job := enqueueTestJob(t, repo, 1, "")

	grace := 30 * time.Second
	past := time.Now().Add(-time.Hour)

	claimed, err := repo.Claim(job.ID, "worker-a", past.Add(time.Minute), past, grace, 0)
	if err != nil || !claimed {
		t.Fatalf("initial claim should succeed: claimed=%v err=%v", claimed, err)
	}

	// 租约过期但未越过宽限期时不可救援
	justExpired := past.Add(time.Minute).Add(grace / 2)
	claimable, err := repo.ListClaimable(10, justExpired, grace, 0)
	if err != nil {
		t.Fatalf("list claimable failed: %v", err)
	}
	if len(claimable) != 0 {
		t.Fatalf("job inside the rescue grace window must not be claimable")
	}

	now := time.Now()
	claimable, err = repo.ListClaimable(10, now, grace, 0)
	if err != nil {
		t.Fatalf("list claimable after grace failed: %v", err)
	}
	if len(claimable) != 1 || claimable[0].ID != job.ID {
		t.Fatalf("stale job should be claimable, got %d rows", len(claimable))
	}

	rescued, err := repo.Claim(job.ID, "worker-b", now.Add(time.Minute), now, grace, 0)
	if err != nil || !rescued {
		t.Fatalf("rescue claim should succeed: rescued=%v err=%v", rescued, err)
	}

	// 原持有者对已被救援的任务不再有任何权限
	if done, err := repo.Complete(job.ID, "worker-a", ""); err != nil || done {
		t.Fatalf("lost owner must not complete the job: done=%v err=%v", done, err)
	}
	if alive, err := repo.Heartbeat(job.ID, "worker-a", now.Add(time.Hour)); err != nil || alive {
		t.Fatalf("lost owner must not heartbeat: alive=%v err=%v", alive, err)
	}

	reloaded, err := repo.GetByID(job.ID)
	if err != nil {
		t.Fatalf("reload job failed: %v", err)
	}
	if reloaded.OwnerID != "worker-b" || reloaded.Attempts != 2 {
		t.Fatalf("unexpected job after rescue: owner=%s attempts=%d", reloaded.OwnerID, reloaded.Attempts)
	}
}

func TestRecalcJobListAndStats(t *testing.T) {
	repo, _ := setupRecalcJobRepositoryTest(t)

	enqueueTestJob(t, repo, 1, "")
	leased := enqueueTestJob(t, repo, 2, "")
	now := time.Now()
	if claimed, err := repo.Claim(leased.ID, "worker-a", now.Add(time.Minute), now, 30*time.Second, 0); err != nil || !claimed {
		t.Fatalf("claim failed: claimed=%v err=%v", claimed, err)
	}
	done := enqueueTestJob(t, repo, 2, "")
	if claimed, err := repo.Claim(done.ID, "worker-a", now.Add(time.Minute), now, 30*time.Second, 0); err != nil || !claimed {
		t.Fatalf("claim failed: claimed=%v err=%v", claimed, err)
	}
	if finished, err := repo.Complete(done.ID, "worker-a", "user 9: 用户不存在"); err != nil || !finished {
		t.Fatalf("complete failed: finished=%v err=%v", finished, err)
	}

	jobs, total, err := repo.List(RecalcJobListFilter{Page: 1, PageSize: 20, UserID: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(jobs) != 2 {
		t.Fatalf("user filter want 2 rows, total=%d len=%d", total, len(jobs))
	}

	jobs, total, err = repo.List(RecalcJobListFilter{Page: 1, PageSize: 20, Status: constants.RecalcJobStatusCompleted})
	if err != nil {
		t.Fatalf("list by status failed: %v", err)
	}
	if total != 1 || jobs[0].LastError == "" {
		t.Fatalf("completed job should carry its error summary, total=%d", total)
	}

	counts, err := repo.CountByStatus()
	if err != nil {
		t.Fatalf("count by status failed: %v", err)
	}
	if counts[constants.RecalcJobStatusQueued] != 1 ||
		counts[constants.RecalcJobStatusLeased] != 1 ||
		counts[constants.RecalcJobStatusCompleted] != 1 {
		t.Fatalf("unexpected status counts: %+v", counts)
	}
}
