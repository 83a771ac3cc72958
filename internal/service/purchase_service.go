package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/logger"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"
)

// PurchaseService 套餐购买服务
// 一次购买在单个事务内完成：扣款、落购买记录、逐层返佣、业绩上卷、服务中心费用。
// 事务提交后再异步触发等级重算。
type PurchaseService struct {
	packageRepo    repository.PackageRepository
	commissionRepo repository.CommissionRepository
	centerRepo     repository.CenterRepository
	userRepo       repository.UserRepository
	walletSvc      *WalletService
	referralSvc    *ReferralService
	settingSvc     *SettingService
	recalcSvc      *RecalcService
}

// NewPurchaseService 创建购买服务
func NewPurchaseService(
	packageRepo repository.PackageRepository,
	commissionRepo repository.CommissionRepository,
	centerRepo repository.CenterRepository,
	userRepo repository.UserRepository,
	walletSvc *WalletService,
	referralSvc *ReferralService,
	settingSvc *SettingService,
	recalcSvc *RecalcService,
) *PurchaseService {
	return &PurchaseService{
		packageRepo:    packageRepo,
		commissionRepo: commissionRepo,
		centerRepo:     centerRepo,
		userRepo:       userRepo,
		walletSvc:      walletSvc,
		referralSvc:    referralSvc,
		settingSvc:     settingSvc,
		recalcSvc:      recalcSvc,
	}
}

// PurchaseItemInput 购买明细输入
type PurchaseItemInput struct {
	PackageID uint `json:"package_id"`
	Quantity  int  `json:"quantity"`
}

// PurchaseInput 购买输入
type PurchaseInput struct {
	BuyerID uint
	Items   []PurchaseItemInput
}

// PurchaseResult 购买结果
type PurchaseResult struct {
	PurchaseNo  string                      `json:"purchase_no"`
	TotalPrice  models.Money                `json:"total_price"`
	Histories   []models.PackageHistory     `json:"histories"`
	Commissions []models.ReferralCommission `json:"commissions"`
	CenterFees  []models.CenterCommission   `json:"center_fees"`
	CoinBonus   models.Money                `json:"coin_bonus"`
}

// Purchase 执行套餐购买
func (s *PurchaseService) Purchase(input PurchaseInput) (*PurchaseResult, error) {
	if input.BuyerID == 0 {
		return nil, ErrUserNotFound
	}
	if len(input.Items) == 0 {
		return nil, ErrPurchaseItemRequired
	}

	items, err := s.mergeItems(input.Items)
	if err != nil {
		return nil, err
	}

	buyer, err := s.userRepo.GetByID(input.BuyerID)
	if err != nil {
		return nil, err
	}
	if buyer == nil {
		return nil, ErrUserNotFound
	}
	if buyer.Status != constants.UserStatusActive {
		return nil, ErrUserDisabled
	}

	packages, maxLevel, total, err := s.loadPackages(items)
	if err != nil {
		return nil, err
	}
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, ErrZeroTotal
	}

	purchaseNo := generatePurchaseNo()
	result := &PurchaseResult{
		PurchaseNo: purchaseNo,
		TotalPrice: models.NewMoneyFromDecimal(total),
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		packageRepo := s.packageRepo.WithTx(tx)
		commissionRepo := s.commissionRepo.WithTx(tx)

		// 扣款：买家余额一次性支付整单
		if _, _, err := s.walletSvc.DebitInTx(tx, WalletDebitInput{
			UserID:    input.BuyerID,
			Token:     constants.WalletTokenUSDT,
			Amount:    result.TotalPrice,
			TxnType:   constants.WalletTxnTypePurchase,
			Reference: fmt.Sprintf("purchase:%s:pay", purchaseNo),
			Remark:    fmt.Sprintf("购买套餐 %s", purchaseNo),
		}); err != nil {
			return err
		}

		// 落购买记录并累加持有数量
		histories := make([]models.PackageHistory, 0, len(items))
		for _, item := range items {
			pkg := packages[item.PackageID]
			unit := pkg.Price
			line := models.NewMoneyFromDecimal(unit.Mul(decimal.NewFromInt(int64(item.Quantity))))
			history := models.PackageHistory{
				PurchaseNo: purchaseNo,
				UserID:     input.BuyerID,
				PackageID:  pkg.ID,
				Quantity:   item.Quantity,
				UnitPrice:  unit,
				TotalPrice: line,
			}
			if err := packageRepo.CreateHistory(&history); err != nil {
				return translatePurchaseError(err)
			}
			if err := packageRepo.UpsertOwned(input.BuyerID, pkg.ID, item.Quantity); err != nil {
				return err
			}
			histories = append(histories, history)
		}
		result.Histories = histories

		// 推荐返佣：逐层命中，无资格跳过不顺延
		commissions, err := s.settleReferralCommissions(tx, packageRepo, commissionRepo, input.BuyerID, histories, packages, maxLevel)
		if err != nil {
			return err
		}
		result.Commissions = commissions

		// 单一套餐购买的赠币
		coinBonus, err := s.settleCoinBonus(tx, purchaseNo, input.BuyerID, items, result.TotalPrice)
		if err != nil {
			return err
		}
		result.CoinBonus = coinBonus

		// 业绩上卷：沿推荐链逐级累加到对应分组
		if err := s.referralSvc.RollupSales(tx, input.BuyerID, result.TotalPrice); err != nil {
			return err
		}

		// 服务中心费用
		fees, err := s.settleCenterFees(tx, commissionRepo, input.BuyerID, histories)
		if err != nil {
			return err
		}
		result.CenterFees = fees

		return nil
	})
	if err != nil {
		return nil, err
	}

	// 事务提交后触发等级重算，失败只记录不影响购买结果
	if s.recalcSvc != nil {
		if _, err := s.recalcSvc.Enqueue(RecalcEnqueueInput{
			UserID:    input.BuyerID,
			Reason:    constants.RecalcReasonPurchase,
			DedupeKey: fmt.Sprintf("purchase:%s", purchaseNo),
			Payload:   models.JSON{"purchase_no": purchaseNo},
		}); err != nil {
			logger.Warnw("购买后触发等级重算失败", "purchase_no", purchaseNo, "user_id", input.BuyerID, "error", err)
		}
	}

	logger.Infow("套餐购买完成",
		"purchase_no", purchaseNo,
		"user_id", input.BuyerID,
		"total", result.TotalPrice.String(),
		"commissions", len(result.Commissions),
		"center_fees", len(result.CenterFees))

	return result, nil
}

// mergeItems 合并同套餐的明细并校验数量
func (s *PurchaseService) mergeItems(items []PurchaseItemInput) ([]PurchaseItemInput, error) {
	merged := make([]PurchaseItemInput, 0, len(items))
	index := make(map[uint]int, len(items))
	for _, item := range items {
		if item.PackageID == 0 {
			return nil, ErrPackageNotFound
		}
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if pos, ok := index[item.PackageID]; ok {
			merged[pos].Quantity += item.Quantity
			continue
		}
		index[item.PackageID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

// loadPackages 加载套餐并计算整单总价与最深返佣层级
func (s *PurchaseService) loadPackages(items []PurchaseItemInput) (map[uint]models.Package, int, decimal.Decimal, error) {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.PackageID)
	}
	list, err := s.packageRepo.GetByIDs(ids)
	if err != nil {
		return nil, 0, decimal.Zero, err
	}

	packages := make(map[uint]models.Package, len(list))
	maxLevel := 0
	for _, pkg := range list {
		packages[pkg.ID] = pkg
		for _, rate := range pkg.Rates {
			if rate.Level > maxLevel {
				maxLevel = rate.Level
			}
		}
	}

	total := decimal.Zero
	for _, item := range items {
		pkg, ok := packages[item.PackageID]
		if !ok {
			return nil, 0, decimal.Zero, ErrPackageNotFound
		}
		if pkg.Status != constants.PackageStatusActive {
			return nil, 0, decimal.Zero, ErrPackageDisabled
		}
		total = total.Add(pkg.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return packages, maxLevel, total, nil
}

// settleReferralCommissions 按购买记录行 × 费率层级结算推荐返佣
// 无资格（名下无任何套餐）的上级直接跳过，层级不向更高上级顺延。
func (s *PurchaseService) settleReferralCommissions(
	tx *gorm.DB,
	packageRepo *repository.GormPackageRepository,
	commissionRepo *repository.GormCommissionRepository,
	buyerID uint,
	histories []models.PackageHistory,
	packages map[uint]models.Package,
	maxLevel int,
) ([]models.ReferralCommission, error) {
	if maxLevel <= 0 {
		return nil, nil
	}

	upline, err := s.referralSvc.Upline(buyerID, maxLevel)
	if err != nil {
		return nil, err
	}
	if len(upline) == 0 {
		return nil, nil
	}

	candidates := make([]uint, 0, len(upline))
	for _, edge := range upline {
		candidates = append(candidates, edge.ParentID)
	}
	owners, err := packageRepo.FilterOwnerIDs(candidates)
	if err != nil {
		return nil, err
	}
	eligible := make(map[uint]bool, len(owners))
	for _, id := range owners {
		eligible[id] = true
	}

	commissions := make([]models.ReferralCommission, 0, len(histories)*len(upline))
	for _, history := range histories {
		pkg := packages[history.PackageID]
		for _, rate := range pkg.Rates {
			if rate.Level <= 0 || rate.Level > len(upline) {
				continue
			}
			beneficiary := upline[rate.Level-1].ParentID
			if !eligible[beneficiary] {
				continue
			}
			amount := history.TotalPrice.Mul(rate.Percent).Div(decimal.NewFromInt(100)).Round(2)
			if amount.LessThanOrEqual(decimal.Zero) {
				continue
			}
			commission := models.ReferralCommission{
				BuyerUserID:       buyerID,
				BeneficiaryUserID: beneficiary,
				HistoryID:         history.ID,
				Level:             rate.Level,
				Percent:           rate.Percent,
				BaseAmount:        history.TotalPrice,
				CommissionAmount:  models.NewMoneyFromDecimal(amount),
				Status:            constants.ReferralCommissionStatusSettled,
			}
			if err := commissionRepo.CreateReferralCommission(&commission); err != nil {
				return nil, translatePurchaseError(err)
			}
			if _, _, err := s.walletSvc.CreditInTx(tx, WalletCreditInput{
				UserID:    beneficiary,
				Token:     constants.WalletTokenUSDT,
				Amount:    commission.CommissionAmount,
				TxnType:   constants.WalletTxnTypeCommission,
				Reference: fmt.Sprintf("commission:%d:L%d:%d", history.ID, rate.Level, beneficiary),
				Remark:    fmt.Sprintf("第 %d 层推荐返佣", rate.Level),
			}); err != nil {
				return nil, err
			}
			commissions = append(commissions, commission)
		}
	}
	return commissions, nil
}

// settleCoinBonus 结算赠币：仅当整单只包含单一套餐时生效
func (s *PurchaseService) settleCoinBonus(tx *gorm.DB, purchaseNo string, buyerID uint, items []PurchaseItemInput, total models.Money) (models.Money, error) {
	zero := models.NewMoneyFromDecimal(decimal.Zero)
	if len(items) != 1 || s.settingSvc == nil {
		return zero, nil
	}
	setting, err := s.settingSvc.GetCoinSetting()
	if err != nil {
		return zero, err
	}
	if !setting.IsActive || setting.CoinPrice.LessThanOrEqual(decimal.Zero) {
		return zero, nil
	}

	coins := models.NewMoneyFromDecimal(total.Div(setting.CoinPrice))
	if coins.LessThanOrEqual(decimal.Zero) {
		return zero, nil
	}
	if _, _, err := s.walletSvc.CreditInTx(tx, WalletCreditInput{
		UserID:    buyerID,
		Token:     constants.WalletTokenCoin,
		Amount:    coins,
		TxnType:   constants.WalletTxnTypeCoinBonus,
		Reference: fmt.Sprintf("purchase:%s:coin", purchaseNo),
		Remark:    "购买赠币",
	}); err != nil {
		return zero, err
	}
	return coins, nil
}

// settleCenterFees 按预计算的邻近关系结算服务中心费用
func (s *PurchaseService) settleCenterFees(
	tx *gorm.DB,
	commissionRepo *repository.GormCommissionRepository,
	buyerID uint,
	histories []models.PackageHistory,
) ([]models.CenterCommission, error) {
	centerRepo := s.centerRepo.WithTx(tx)

	links, err := centerRepo.ListLinksByUser(buyerID)
	if err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, nil
	}

	centerIDs := make([]uint, 0, len(links))
	seen := make(map[uint]bool, len(links))
	for _, link := range links {
		if link.CenterUserID == buyerID || seen[link.CenterUserID] {
			continue
		}
		seen[link.CenterUserID] = true
		centerIDs = append(centerIDs, link.CenterUserID)
	}
	managers, err := centerRepo.GetManagersByUserIDs(centerIDs)
	if err != nil {
		return nil, err
	}
	managerByUser := make(map[uint]models.CenterManager, len(managers))
	for _, manager := range managers {
		managerByUser[manager.UserID] = manager
	}

	now := time.Now()
	fees := make([]models.CenterCommission, 0, len(centerIDs)*len(histories))
	for _, centerID := range centerIDs {
		manager, ok := managerByUser[centerID]
		if !ok || !centerManagerEffective(manager, now) {
			continue
		}
		for _, history := range histories {
			amount := history.TotalPrice.Mul(manager.Percent).Div(decimal.NewFromInt(100)).Round(2)
			if amount.LessThanOrEqual(decimal.Zero) {
				continue
			}
			fee := models.CenterCommission{
				CenterUserID:    centerID,
				SourceHistoryID: history.ID,
				BuyerUserID:     buyerID,
				Percent:         manager.Percent,
				BaseAmount:      history.TotalPrice,
				Amount:          models.NewMoneyFromDecimal(amount),
				Status:          constants.CenterCommissionStatusSettled,
			}
			if err := commissionRepo.CreateCenterCommission(&fee); err != nil {
				return nil, translatePurchaseError(err)
			}
			if _, _, err := s.walletSvc.CreditInTx(tx, WalletCreditInput{
				UserID:    centerID,
				Token:     constants.WalletTokenUSDT,
				Amount:    fee.Amount,
				TxnType:   constants.WalletTxnTypeCenterFee,
				Reference: fmt.Sprintf("center:%d:%d", history.ID, centerID),
				Remark:    "服务中心费用",
			}); err != nil {
				return nil, err
			}
			fees = append(fees, fee)
		}
	}
	return fees, nil
}

// centerManagerEffective 判断管理人费率在给定时刻是否生效
func centerManagerEffective(manager models.CenterManager, at time.Time) bool {
	if !manager.IsActive {
		return false
	}
	if manager.Percent.LessThanOrEqual(decimal.Zero) {
		return false
	}
	if manager.EffectiveFrom != nil && at.Before(*manager.EffectiveFrom) {
		return false
	}
	if manager.EffectiveTo != nil && !at.Before(*manager.EffectiveTo) {
		return false
	}
	return true
}

func translatePurchaseError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrPurchaseConflict
	}
	return err
}

func generatePurchaseNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("%s%s%s", constants.PurchaseNoPrefix, now, randPurchaseDigits(6))
}

func randPurchaseDigits(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteByte('0')
			continue
		}
		b.WriteString(n.String())
	}
	return b.String()
}
