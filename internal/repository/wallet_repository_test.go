package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupWalletRepositoryTest(t *testing.T) (*GormWalletRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:wallet_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.WalletAccount{},
		&models.WalletTransaction{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewWalletRepository(db), db
}

func TestWalletRepositoryAccountUniquePerUserToken(t *testing.T) {
	repo, _ := setupWalletRepositoryTest(t)

	first := &models.WalletAccount{
		UserID:  1,
		Token:   constants.WalletTokenUSDT,
		Balance: models.NewMoneyFromDecimal(decimal.Zero),
	}
	if err := repo.CreateAccount(first); err != nil {
		t.Fatalf("create account failed: %v", err)
	}

	dup := &models.WalletAccount{
		UserID:  1,
		Token:   constants.WalletTokenUSDT,
		Balance: models.NewMoneyFromDecimal(decimal.Zero),
	}
	if err := repo.CreateAccount(dup); err == nil {
		t.Fatalf("duplicated (user, token) account should be rejected")
	}

	other := &models.WalletAccount{
		UserID:  1,
		Token:   constants.WalletTokenCoin,
		Balance: models.NewMoneyFromDecimal(decimal.Zero),
	}
	if err := repo.CreateAccount(other); err != nil {
		t.Fatalf("different token for same user should be allowed: %v", err)
	}

	accounts, err := repo.GetAccountsByUserID(1)
	if err != nil {
		t.Fatalf("list accounts failed: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("accounts len want 2 got %d", len(accounts))
	}
	if accounts[0].Token != constants.WalletTokenCoin || accounts[1].Token != constants.WalletTokenUSDT {
		t.Fatalf("accounts should be ordered by token, got %s, %s", accounts[0].Token, accounts[1].Token)
	}
}

func TestWalletRepositoryTransactionReferenceUnique(t *testing.T) {
	repo, _ := setupWalletRepositoryTest(t)

	txn := &models.WalletTransaction{
		UserID:    1,
		Token:     constants.WalletTokenUSDT,
		Type:      constants.WalletTxnTypePurchase,
		Direction: constants.WalletTxnDirectionOut,
		Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		Reference: "purchase:P20260101000000123456:pay",
	}
	if err := repo.CreateTransaction(txn); err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}

	dup := &models.WalletTransaction{
		UserID:    2,
		Token:     constants.WalletTokenUSDT,
		Type:      constants.WalletTxnTypePurchase,
		Direction: constants.WalletTxnDirectionOut,
		Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		Reference: "purchase:P20260101000000123456:pay",
	}
	if err := repo.CreateTransaction(dup); err == nil {
		t.Fatalf("duplicated reference should be rejected by the unique index")
	}

	found, err := repo.GetTransactionByReference("purchase:P20260101000000123456:pay")
	if err != nil {
		t.Fatalf("get by reference failed: %v", err)
	}
	if found == nil || found.ID != txn.ID {
		t.Fatalf("unexpected transaction lookup result: %+v", found)
	}

	missing, err := repo.GetTransactionByReference("purchase:unknown:pay")
	if err != nil {
		t.Fatalf("get missing reference failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("missing reference should return nil, got %+v", missing)
	}
}

func TestWalletRepositoryListTransactionsFilters(t *testing.T) {
	repo, db := setupWalletRepositoryTest(t)
	now := time.Now().UTC().Truncate(time.Second)

	rows := []models.WalletTransaction{
		{
			UserID:    1,
			Token:     constants.WalletTokenUSDT,
			Type:      constants.WalletTxnTypePurchase,
			Direction: constants.WalletTxnDirectionOut,
			Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
			Reference: "purchase:PA:pay",
			CreatedAt: now.Add(-2 * time.Hour),
		},
		{
			UserID:    1,
			Token:     constants.WalletTokenUSDT,
			Type:      constants.WalletTxnTypeCommission,
			Direction: constants.WalletTxnDirectionIn,
			Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
			Reference: "commission:1:L1:1",
			CreatedAt: now.Add(-time.Hour),
		},
		{
			UserID:    2,
			Token:     constants.WalletTokenCoin,
			Type:      constants.WalletTxnTypeCoinBonus,
			Direction: constants.WalletTxnDirectionIn,
			Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
			Reference: "purchase:PA:coin",
			CreatedAt: now,
		},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("create transactions failed: %v", err)
	}

	t.Run("filter by user and direction", func(t *testing.T) {
		list, total, err := repo.ListTransactions(WalletTransactionListFilter{
			Page:      1,
			PageSize:  20,
			UserID:    1,
			Direction: constants.WalletTxnDirectionIn,
		})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if total != 1 || len(list) != 1 {
			t.Fatalf("want single row, total=%d len=%d", total, len(list))
		}
		if list[0].Type != constants.WalletTxnTypeCommission {
			t.Fatalf("unexpected txn type %s", list[0].Type)
		}
	})

	t.Run("filter by token and created range", func(t *testing.T) {
		from := now.Add(-30 * time.Minute)
		list, total, err := repo.ListTransactions(WalletTransactionListFilter{
			Page:        1,
			PageSize:    20,
			Token:       constants.WalletTokenCoin,
			CreatedFrom: &from,
		})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if total != 1 || len(list) != 1 {
			t.Fatalf("want single row, total=%d len=%d", total, len(list))
		}
		if list[0].Reference != "purchase:PA:coin" {
			t.Fatalf("unexpected reference %s", list[0].Reference)
		}
	})

	t.Run("latest first", func(t *testing.T) {
		list, total, err := repo.ListTransactions(WalletTransactionListFilter{Page: 1, PageSize: 20, UserID: 1})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if total != 2 || len(list) != 2 {
			t.Fatalf("want two rows, total=%d len=%d", total, len(list))
		}
		if list[0].ID < list[1].ID {
			t.Fatalf("rows should be ordered newest first")
		}
	})
}
