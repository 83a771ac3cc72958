package service

import (
	"github.com/shopspring/decimal"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"
)

// CenterService 服务中心业务服务
// 管理人名单与费率由后台维护；用户到各服务中心的 (distance, rank)
// 邻近关系按推荐链预计算，购买结算时直接按序读取。
type CenterService struct {
	centerRepo   repository.CenterRepository
	referralRepo repository.ReferralRepository
	userRepo     repository.UserRepository
}

// NewCenterService 创建服务中心服务
func NewCenterService(
	centerRepo repository.CenterRepository,
	referralRepo repository.ReferralRepository,
	userRepo repository.UserRepository,
) *CenterService {
	return &CenterService{
		centerRepo:   centerRepo,
		referralRepo: referralRepo,
		userRepo:     userRepo,
	}
}

// SaveManager 创建或更新服务中心管理人
func (s *CenterService) SaveManager(input models.CenterManager) (*models.CenterManager, error) {
	if input.UserID == 0 {
		return nil, ErrUserNotFound
	}
	if input.Percent.LessThan(decimal.Zero) || input.Percent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, ErrCenterPercentInvalid
	}
	if input.EffectiveFrom != nil && input.EffectiveTo != nil && !input.EffectiveTo.After(*input.EffectiveFrom) {
		return nil, ErrCenterPercentInvalid
	}

	user, err := s.userRepo.GetByID(input.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	existing, err := s.centerRepo.GetManagerByUserID(input.UserID)
	if err != nil {
		return nil, err
	}
	manager := &input
	if existing != nil {
		existing.Percent = input.Percent
		existing.IsActive = input.IsActive
		existing.EffectiveFrom = input.EffectiveFrom
		existing.EffectiveTo = input.EffectiveTo
		manager = existing
	}
	if err := s.centerRepo.SaveManager(manager); err != nil {
		return nil, err
	}
	return manager, nil
}

// GetManager 获取管理人
func (s *CenterService) GetManager(userID uint) (*models.CenterManager, error) {
	manager, err := s.centerRepo.GetManagerByUserID(userID)
	if err != nil {
		return nil, err
	}
	if manager == nil {
		return nil, ErrCenterManagerNotFound
	}
	return manager, nil
}

// ListManagers 获取全部管理人
func (s *CenterService) ListManagers() ([]models.CenterManager, error) {
	return s.centerRepo.ListManagers()
}

// ListLinks 获取用户的服务中心邻近关系
func (s *CenterService) ListLinks(userID uint) ([]models.UserCenterLink, error) {
	return s.centerRepo.ListLinksByUser(userID)
}

// RebuildLinks 按当前推荐链重建用户的服务中心邻近关系
// 沿推荐链向上逐个检查祖先是否在管理人名单内，距离即跳数；
// 同一祖先只记一条，rank 按发现顺序递增。
func (s *CenterService) RebuildLinks(userID uint) ([]models.UserCenterLink, error) {
	if userID == 0 {
		return nil, ErrUserNotFound
	}

	managers, err := s.centerRepo.ListManagers()
	if err != nil {
		return nil, err
	}
	managerSet := make(map[uint]bool, len(managers))
	for _, manager := range managers {
		managerSet[manager.UserID] = true
	}

	links := make([]models.UserCenterLink, 0, 4)
	current := userID
	for hop := 1; hop <= constants.MaxRollupHops; hop++ {
		edge, err := s.referralRepo.GetEdgeByChildID(current)
		if err != nil {
			return nil, err
		}
		if edge == nil {
			break
		}
		if managerSet[edge.ParentID] {
			links = append(links, models.UserCenterLink{
				UserID:       userID,
				CenterUserID: edge.ParentID,
				Distance:     hop,
				Rank:         len(links) + 1,
			})
		}
		current = edge.ParentID
	}

	if err := s.centerRepo.ReplaceLinksForUser(userID, links); err != nil {
		return nil, err
	}
	return links, nil
}
