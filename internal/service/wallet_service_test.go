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

func setupWalletServiceTest(t *testing.T) (*WalletService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:wallet_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.WalletAccount{},
		&models.WalletTransaction{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return NewWalletService(repository.NewWalletRepository(db)), db
}

func createWalletTestUser(t *testing.T, db *gorm.DB, id uint) {
	t.Helper()
	user := models.User{
		ID:           id,
		Email:        fmt.Sprintf("wallet_user_%d@example.com", id),
		Handle:       fmt.Sprintf("wallet_user_%d", id),
		PasswordHash: "hash",
		Status:       constants.UserStatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
}

func TestWalletCreditCreatesAccountAndLedger(t *testing.T) {
	svc, db := setupWalletServiceTest(t)
	createWalletTestUser(t, db, 1)

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		account, txn, err := svc.CreditInTx(tx, WalletCreditInput{
			UserID:    1,
			Token:     constants.WalletTokenUSDT,
			Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("50.005")),
			TxnType:   constants.WalletTxnTypeCommission,
			Reference: "commission:1:L1:1",
		})
		if err != nil {
			return err
		}
		if account.Balance.String() != "50.01" {
			t.Fatalf("balance want 50.01 got %s", account.Balance.String())
		}
		if txn.Direction != constants.WalletTxnDirectionIn {
			t.Fatalf("direction want in got %s", txn.Direction)
		}
		if txn.BalanceBefore.String() != "0.00" || txn.BalanceAfter.String() != "50.01" {
			t.Fatalf("unexpected ledger balances: %s -> %s", txn.BalanceBefore.String(), txn.BalanceAfter.String())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("credit failed: %v", err)
	}

	var count int64
	if err := db.Model(&models.WalletTransaction{}).Count(&count).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("transaction count want 1 got %d", count)
	}
}

func TestWalletCreditIdempotentByReference(t *testing.T) {
	svc, db := setupWalletServiceTest(t)
	createWalletTestUser(t, db, 1)

	input := WalletCreditInput{
		UserID:    1,
		Token:     constants.WalletTokenUSDT,
		Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(30)),
		TxnType:   constants.WalletTxnTypeCommission,
		Reference: "commission:9:L1:1",
	}
	for i := 0; i < 2; i++ {
		if err := models.DB.Transaction(func(tx *gorm.DB) error {
			_, _, err := svc.CreditInTx(tx, input)
			return err
		}); err != nil {
			t.Fatalf("credit round %d failed: %v", i, err)
		}
	}

	account, err := svc.GetAccount(1, constants.WalletTokenUSDT)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if account.Balance.String() != "30.00" {
		t.Fatalf("balance want 30.00 got %s", account.Balance.String())
	}
	var count int64
	if err := db.Model(&models.WalletTransaction{}).Count(&count).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("duplicated reference should not produce a second ledger row, got %d", count)
	}
}

func TestWalletDebitInsufficientBalanceRollsBack(t *testing.T) {
	svc, db := setupWalletServiceTest(t)
	createWalletTestUser(t, db, 1)

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		_, _, err := svc.DebitInTx(tx, WalletDebitInput{
			UserID:    1,
			Token:     constants.WalletTokenUSDT,
			Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
			TxnType:   constants.WalletTxnTypePurchase,
			Reference: "purchase:P1:pay",
		})
		return err
	})
	if !errors.Is(err, ErrWalletInsufficientBalance) {
		t.Fatalf("expected insufficient balance error, got %v", err)
	}

	var accounts, txns int64
	if err := db.Model(&models.WalletAccount{}).Count(&accounts).Error; err != nil {
		t.Fatalf("count accounts failed: %v", err)
	}
	if err := db.Model(&models.WalletTransaction{}).Count(&txns).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	if accounts != 0 || txns != 0 {
		t.Fatalf("failed debit should leave nothing behind, accounts=%d txns=%d", accounts, txns)
	}
}

func TestWalletDebitRejectsNonPositiveAmount(t *testing.T) {
	svc, db := setupWalletServiceTest(t)
	createWalletTestUser(t, db, 1)

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		_, _, err := svc.DebitInTx(tx, WalletDebitInput{
			UserID:    1,
			Token:     constants.WalletTokenUSDT,
			Amount:    models.NewMoneyFromDecimal(decimal.Zero),
			TxnType:   constants.WalletTxnTypePurchase,
			Reference: "purchase:P2:pay",
		})
		return err
	})
	if !errors.Is(err, ErrWalletInvalidAmount) {
		t.Fatalf("expected invalid amount error, got %v", err)
	}
}

func TestWalletAdminAdjustBalance(t *testing.T) {
	svc, db := setupWalletServiceTest(t)
	createWalletTestUser(t, db, 1)

	account, txn, err := svc.AdminAdjustBalance(WalletAdjustInput{
		UserID: 1,
		Token:  constants.WalletTokenUSDT,
		Delta:  models.NewMoneyFromDecimal(decimal.NewFromInt(30)),
		Remark: "充值补录",
	})
	if err != nil {
		t.Fatalf("adjust add failed: %v", err)
	}
	if account.Balance.String() != "30.00" {
		t.Fatalf("balance after add want 30.00 got %s", account.Balance.String())
	}
	if txn.Type != constants.WalletTxnTypeAdminAdjust || txn.Direction != constants.WalletTxnDirectionIn {
		t.Fatalf("unexpected adjust txn: type=%s direction=%s", txn.Type, txn.Direction)
	}

	account, txn, err = svc.AdminAdjustBalance(WalletAdjustInput{
		UserID: 1,
		Token:  constants.WalletTokenUSDT,
		Delta:  models.NewMoneyFromDecimal(decimal.NewFromInt(-10)),
	})
	if err != nil {
		t.Fatalf("adjust subtract failed: %v", err)
	}
	if account.Balance.String() != "20.00" {
		t.Fatalf("balance after subtract want 20.00 got %s", account.Balance.String())
	}
	if txn.Direction != constants.WalletTxnDirectionOut {
		t.Fatalf("subtract should produce out txn, got %s", txn.Direction)
	}

	if _, _, err := svc.AdminAdjustBalance(WalletAdjustInput{
		UserID: 1,
		Token:  constants.WalletTokenUSDT,
		Delta:  models.NewMoneyFromDecimal(decimal.NewFromInt(-100)),
	}); !errors.Is(err, ErrWalletInsufficientBalance) {
		t.Fatalf("over-subtract should fail with insufficient balance, got %v", err)
	}

	if _, _, err := svc.AdminAdjustBalance(WalletAdjustInput{
		UserID: 1,
		Token:  constants.WalletTokenUSDT,
		Delta:  models.NewMoneyFromDecimal(decimal.Zero),
	}); !errors.Is(err, ErrWalletInvalidAmount) {
		t.Fatalf("zero delta should be rejected, got %v", err)
	}

	var txns int64
	if err := db.Model(&models.WalletTransaction{}).Where("user_id = ?", 1).Count(&txns).Error; err != nil {
		t.Fatalf("count transactions failed: %v", err)
	}
	if txns != 2 {
		t.Fatalf("only the two successful adjustments should be recorded, got %d", txns)
	}
}

func TestWalletTokenNormalization(t *testing.T) {
	svc, db := setupWalletServiceTest(t)
	createWalletTestUser(t, db, 1)

	account, err := svc.GetAccount(1, "  USDT ")
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if account.Token != constants.WalletTokenUSDT {
		t.Fatalf("token want %s got %s", constants.WalletTokenUSDT, account.Token)
	}

	again, err := svc.GetAccount(1, "")
	if err != nil {
		t.Fatalf("get account with empty token failed: %v", err)
	}
	if again.ID != account.ID {
		t.Fatalf("empty token should fall back to the default token account")
	}
}
