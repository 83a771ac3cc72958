package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupReferralServiceTest(t *testing.T) (*ReferralService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:referral_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.ReferralEdge{},
		&models.ReferralGroupSummary{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return NewReferralService(repository.NewReferralRepository(db), repository.NewUserRepository(db)), db
}

func createReferralTestUser(t *testing.T, db *gorm.DB, id uint, handle string) {
	t.Helper()
	user := models.User{
		ID:           id,
		Email:        fmt.Sprintf("%s@example.com", handle),
		Handle:       handle,
		PasswordHash: "hash",
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
}

func TestReferralLinkAssignsDepthGroupAndPosition(t *testing.T) {
	svc, db := setupReferralServiceTest(t)
	createReferralTestUser(t, db, 1, "root")
	createReferralTestUser(t, db, 2, "alice")
	createReferralTestUser(t, db, 3, "bob")
	createReferralTestUser(t, db, 4, "carol")
	createReferralTestUser(t, db, 5, "dave")

	// 根用户无入边，首个下级 depth = 2，自动分配 1 号分组
	first, err := svc.Link(ReferralLinkInput{ChildID: 2, ReferrerID: 1})
	if err != nil {
		t.Fatalf("link alice failed: %v", err)
	}
	if first.Depth != 2 || first.GroupNo != 1 || first.Position != 1 {
		t.Fatalf("unexpected first edge: depth=%d group=%d position=%d", first.Depth, first.GroupNo, first.Position)
	}

	// 再次自动分配会开新分组
	second, err := svc.Link(ReferralLinkInput{ChildID: 3, ReferrerID: 1})
	if err != nil {
		t.Fatalf("link bob failed: %v", err)
	}
	if second.GroupNo != 2 || second.Position != 1 {
		t.Fatalf("auto group should advance, got group=%d position=%d", second.GroupNo, second.Position)
	}

	// 显式指定已有分组时顺位继续增长
	third, err := svc.Link(ReferralLinkInput{ChildID: 4, ReferrerID: 1, GroupNo: 1})
	if err != nil {
		t.Fatalf("link carol failed: %v", err)
	}
	if third.GroupNo != 1 || third.Position != 2 {
		t.Fatalf("explicit group should reuse slot, got group=%d position=%d", third.GroupNo, third.Position)
	}

	// 深度沿链路递增
	fourth, err := svc.Link(ReferralLinkInput{ChildID: 5, ReferrerID: 2})
	if err != nil {
		t.Fatalf("link dave failed: %v", err)
	}
	if fourth.Depth != 3 {
		t.Fatalf("depth want 3 got %d", fourth.Depth)
	}

	// 每个分组都会预建销量汇总行
	summaries, err := svc.GetGroupSummaries(1)
	if err != nil {
		t.Fatalf("get summaries failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries len want 2 got %d", len(summaries))
	}
}

func TestReferralLinkRejectsInvalidInput(t *testing.T) {
	svc, db := setupReferralServiceTest(t)
	createReferralTestUser(t, db, 1, "root")
	createReferralTestUser(t, db, 2, "alice")

	if _, err := svc.Link(ReferralLinkInput{ChildID: 1, ReferrerID: 1}); !errors.Is(err, ErrReferralSelfLink) {
		t.Fatalf("self link should be rejected, got %v", err)
	}
	if _, err := svc.Link(ReferralLinkInput{ChildID: 2, ReferrerID: 99}); !errors.Is(err, ErrReferrerNotFound) {
		t.Fatalf("unknown referrer should be rejected, got %v", err)
	}
	if _, err := svc.Link(ReferralLinkInput{ChildID: 2, ReferrerID: 1, GroupNo: -1}); !errors.Is(err, ErrInvalidGroupNo) {
		t.Fatalf("negative group should be rejected, got %v", err)
	}

	if _, err := svc.Link(ReferralLinkInput{ChildID: 2, ReferrerID: 1}); err != nil {
		t.Fatalf("link failed: %v", err)
	}
	if _, err := svc.Link(ReferralLinkInput{ChildID: 2, ReferrerID: 1}); !errors.Is(err, ErrReferralExists) {
		t.Fatalf("second inbound edge should be rejected, got %v", err)
	}
}

func TestResolveReferrerByIDAndHandle(t *testing.T) {
	svc, db := setupReferralServiceTest(t)
	createReferralTestUser(t, db, 7, "mentor")

	byID, err := svc.ResolveReferrer("7")
	if err != nil {
		t.Fatalf("resolve by id failed: %v", err)
	}
	if byID.ID != 7 {
		t.Fatalf("resolve by id want user 7 got %d", byID.ID)
	}

	byHandle, err := svc.ResolveReferrer(" mentor ")
	if err != nil {
		t.Fatalf("resolve by handle failed: %v", err)
	}
	if byHandle.ID != 7 {
		t.Fatalf("resolve by handle want user 7 got %d", byHandle.ID)
	}

	if _, err := svc.ResolveReferrer(""); !errors.Is(err, ErrReferrerRequired) {
		t.Fatalf("empty referrer should be rejected, got %v", err)
	}
	if _, err := svc.ResolveReferrer("ghost"); !errors.Is(err, ErrReferrerNotFound) {
		t.Fatalf("unknown referrer should be rejected, got %v", err)
	}
}

func TestReferralUplineOrder(t *testing.T) {
	svc, db := setupReferralServiceTest(t)
	for id, handle := range map[uint]string{1: "root", 2: "alice", 3: "bob", 4: "carol"} {
		createReferralTestUser(t, db, id, handle)
	}
	mustLink := func(child, referrer uint) {
		t.Helper()
		if _, err := svc.Link(ReferralLinkInput{ChildID: child, ReferrerID: referrer}); err != nil {
			t.Fatalf("link %d -> %d failed: %v", child, referrer, err)
		}
	}
	mustLink(2, 1)
	mustLink(3, 2)
	mustLink(4, 3)

	upline, err := svc.Upline(4, 10)
	if err != nil {
		t.Fatalf("upline failed: %v", err)
	}
	if len(upline) != 3 {
		t.Fatalf("upline len want 3 got %d", len(upline))
	}
	if upline[0].ParentID != 3 || upline[1].ParentID != 2 || upline[2].ParentID != 1 {
		t.Fatalf("upline order wrong: %d, %d, %d", upline[0].ParentID, upline[1].ParentID, upline[2].ParentID)
	}

	capped, err := svc.Upline(4, 2)
	if err != nil {
		t.Fatalf("capped upline failed: %v", err)
	}
	if len(capped) != 2 {
		t.Fatalf("capped upline len want 2 got %d", len(capped))
	}
}

func TestRollupSalesFollowsEdgeGroups(t *testing.T) {
	svc, db := setupReferralServiceTest(t)
	createReferralTestUser(t, db, 1, "root")
	createReferralTestUser(t, db, 2, "alice")
	createReferralTestUser(t, db, 3, "bob")

	// alice 挂在根的 1 号分组，bob 挂在 alice 的 1 号分组
	if _, err := svc.Link(ReferralLinkInput{ChildID: 2, ReferrerID: 1, GroupNo: 1}); err != nil {
		t.Fatalf("link alice failed: %v", err)
	}
	if _, err := svc.Link(ReferralLinkInput{ChildID: 3, ReferrerID: 2, GroupNo: 1}); err != nil {
		t.Fatalf("link bob failed: %v", err)
	}

	amount := models.NewMoneyFromDecimal(decimal.NewFromInt(100))
	if err := svc.RollupSales(models.DB, 3, amount); err != nil {
		t.Fatalf("rollup failed: %v", err)
	}
	if err := svc.RollupSales(models.DB, 3, amount); err != nil {
		t.Fatalf("second rollup failed: %v", err)
	}

	aliceSummaries, err := svc.GetGroupSummaries(2)
	if err != nil {
		t.Fatalf("get alice summaries failed: %v", err)
	}
	if len(aliceSummaries) != 1 || aliceSummaries[0].SalesVolume.String() != "200.00" {
		t.Fatalf("alice group sales want 200.00 got %+v", aliceSummaries)
	}

	rootSummaries, err := svc.GetGroupSummaries(1)
	if err != nil {
		t.Fatalf("get root summaries failed: %v", err)
	}
	if len(rootSummaries) != 1 || rootSummaries[0].SalesVolume.String() != "200.00" {
		t.Fatalf("root group sales want 200.00 got %+v", rootSummaries)
	}
	if rootSummaries[0].GroupNo != 1 {
		t.Fatalf("sales should land in the group recorded on the crossed edge, got %d", rootSummaries[0].GroupNo)
	}

	// 根用户自购无上级，不产生任何滚动
	if err := svc.RollupSales(models.DB, 1, amount); err != nil {
		t.Fatalf("root rollup failed: %v", err)
	}
	rootSummaries, err = svc.GetGroupSummaries(1)
	if err != nil {
		t.Fatalf("get root summaries failed: %v", err)
	}
	if rootSummaries[0].SalesVolume.String() != "200.00" {
		t.Fatalf("root self purchase must not inflate its own groups")
	}
}
