package service

import (
	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"

	"github.com/shopspring/decimal"
)

// LevelService 等级服务
// 负责聚合快照装配、等级评估与等级规则管理。
type LevelService struct {
	levelRepo    repository.LevelRequirementRepository
	referralRepo repository.ReferralRepository
	packageRepo  repository.PackageRepository
	userRepo     repository.UserRepository
}

// NewLevelService 创建等级服务
func NewLevelService(
	levelRepo repository.LevelRequirementRepository,
	referralRepo repository.ReferralRepository,
	packageRepo repository.PackageRepository,
	userRepo repository.UserRepository,
) *LevelService {
	return &LevelService{
		levelRepo:    levelRepo,
		referralRepo: referralRepo,
		packageRepo:  packageRepo,
		userRepo:     userRepo,
	}
}

// LoadAggregates 装配用户当前聚合快照
func (s *LevelService) LoadAggregates(userID uint) (LevelAggregates, error) {
	agg := LevelAggregates{}
	if userID == 0 {
		return agg, ErrUserNotFound
	}

	personal, err := s.packageRepo.SumHistoryTotal(userID)
	if err != nil {
		return agg, err
	}
	agg.PersonalTotal = personal.Decimal

	summaries, err := s.referralRepo.GetGroupSummaries(userID)
	if err != nil {
		return agg, err
	}
	agg.GroupSales = make([]decimal.Decimal, 0, len(summaries))
	for _, summary := range summaries {
		agg.GroupSales = append(agg.GroupSales, summary.SalesVolume.Decimal)
	}

	children, err := s.referralRepo.ListChildren(userID)
	if err != nil {
		return agg, err
	}
	childIDs := make([]uint, 0, len(children))
	for _, edge := range children {
		childIDs = append(childIDs, edge.ChildID)
	}
	users, err := s.userRepo.ListByIDs(childIDs)
	if err != nil {
		return agg, err
	}
	agg.DirectChildLevels = make([]int, 0, len(users))
	for _, user := range users {
		agg.DirectChildLevels = append(agg.DirectChildLevels, user.Level)
	}

	return agg, nil
}

// Recompute 重算用户等级并在变化时落库
// 返回是否变化与新等级；对相同聚合快照重复调用不会产生写入。
func (s *LevelService) Recompute(userID uint) (bool, int, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return false, 0, err
	}
	if user == nil {
		return false, 0, ErrUserNotFound
	}

	requirements, err := s.levelRepo.ListAll()
	if err != nil {
		return false, 0, err
	}
	agg, err := s.LoadAggregates(userID)
	if err != nil {
		return false, 0, err
	}

	level := EvaluateQualifiedLevel(requirements, agg)
	if level == user.Level {
		return false, level, nil
	}
	if err := s.userRepo.UpdateLevel(userID, level); err != nil {
		return false, 0, err
	}
	return true, level, nil
}

// ListRequirements 获取全部等级规则
func (s *LevelService) ListRequirements() ([]models.LevelRequirement, error) {
	return s.levelRepo.ListAll()
}

// ReplaceRequirementsForLevel 整体替换指定等级的规则
func (s *LevelService) ReplaceRequirementsForLevel(level int, requirements []models.LevelRequirement) error {
	if level <= 0 {
		return ErrLevelPolicyInvalid
	}
	for _, req := range requirements {
		if err := validateRequirement(req); err != nil {
			return err
		}
	}
	return s.levelRepo.ReplaceForLevel(level, requirements)
}

func validateRequirement(req models.LevelRequirement) error {
	if req.GroupOrdinal <= 0 {
		return ErrLevelPolicyInvalid
	}
	switch req.Kind {
	case constants.LevelRequirementNodeAmountMin, constants.LevelRequirementGroupSalesAmountMin:
		if req.Amount.Decimal.LessThan(decimal.Zero) {
			return ErrLevelPolicyInvalid
		}
	case constants.LevelRequirementDirectReferralCountMin:
		if req.Count <= 0 {
			return ErrLevelPolicyInvalid
		}
	case constants.LevelRequirementDirectDownlineLevelCountMin:
		if req.Count <= 0 || req.TargetLevel <= 0 {
			return ErrLevelPolicyInvalid
		}
	default:
		return ErrLevelPolicyInvalid
	}
	return nil
}
