package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"

	"gorm.io/gorm"
)

// ReferralService 推荐关系服务
type ReferralService struct {
	referralRepo repository.ReferralRepository
	userRepo     repository.UserRepository
}

// ReferralLinkInput 建立推荐关系输入
type ReferralLinkInput struct {
	ChildID    uint
	ReferrerID uint
	GroupNo    int // 0 表示自动分配
}

// NewReferralService 创建推荐关系服务
func NewReferralService(
	referralRepo repository.ReferralRepository,
	userRepo repository.UserRepository,
) *ReferralService {
	return &ReferralService{
		referralRepo: referralRepo,
		userRepo:     userRepo,
	}
}

// ResolveReferrer 解析推荐人：接受内部ID或公开账号标识
func (s *ReferralService) ResolveReferrer(ref string) (*models.User, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ErrReferrerRequired
	}
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil && id > 0 {
		user, err := s.userRepo.GetByID(uint(id))
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
	}
	user, err := s.userRepo.GetByHandle(ref)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrReferrerNotFound
	}
	return user, nil
}

// Link 建立推荐关系边
// depth 取上级入边 depth + 1（上级无入边时上级为根，新边 depth = 2，根自身视为 depth 1）；
// 分组号取调用方显式值或已汇总最大分组号 + 1；顺位取 (上级, 分组) 内最大顺位 + 1。
func (s *ReferralService) Link(input ReferralLinkInput) (*models.ReferralEdge, error) {
	if input.ChildID == 0 || input.ReferrerID == 0 {
		return nil, ErrInvalidInput
	}
	if input.ChildID == input.ReferrerID {
		return nil, ErrReferralSelfLink
	}
	if input.GroupNo < 0 {
		return nil, ErrInvalidGroupNo
	}

	referrer, err := s.userRepo.GetByID(input.ReferrerID)
	if err != nil {
		return nil, err
	}
	if referrer == nil {
		return nil, ErrReferrerNotFound
	}

	existing, err := s.referralRepo.GetEdgeByChildID(input.ChildID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrReferralExists
	}

	var edgeResult *models.ReferralEdge
	if err := models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.referralRepo.WithTx(tx)

		parentEdge, err := repo.GetEdgeByChildID(input.ReferrerID)
		if err != nil {
			return err
		}
		depth := 2
		if parentEdge != nil {
			depth = parentEdge.Depth + 1
		}

		groupNo := input.GroupNo
		if groupNo == 0 {
			maxGroup, err := repo.MaxGroupNo(input.ReferrerID)
			if err != nil {
				return err
			}
			groupNo = maxGroup + 1
		}

		maxPosition, err := repo.MaxPosition(input.ReferrerID, groupNo)
		if err != nil {
			return err
		}

		edge := &models.ReferralEdge{
			ParentID:  input.ReferrerID,
			ChildID:   input.ChildID,
			GroupNo:   groupNo,
			Position:  maxPosition + 1,
			Depth:     depth,
			CreatedAt: time.Now(),
		}
		if err := repo.CreateEdge(edge); err != nil {
			return err
		}
		if err := repo.EnsureGroupSummary(input.ReferrerID, groupNo); err != nil {
			return err
		}
		edgeResult = edge
		return nil
	}); err != nil {
		return nil, err
	}
	return edgeResult, nil
}

// Upline 从用户向上收集祖先边：下标 i 即第 i+1 层上级的入边来源
// 返回的每个元素是向上跨越的那条边，佣金受益人为 edge.ParentID。
func (s *ReferralService) Upline(userID uint, maxHops int) ([]models.ReferralEdge, error) {
	if userID == 0 || maxHops <= 0 {
		return []models.ReferralEdge{}, nil
	}
	chain := make([]models.ReferralEdge, 0, maxHops)
	current := userID
	for hop := 0; hop < maxHops; hop++ {
		edge, err := s.referralRepo.GetEdgeByChildID(current)
		if err != nil {
			return nil, err
		}
		if edge == nil {
			break
		}
		chain = append(chain, *edge)
		current = edge.ParentID
	}
	return chain, nil
}

// RollupSales 分组销量向上滚动
// 每一跳使用实际跨越边上记录的分组号，销量计入购买路径经过的那个分支；
// 跳数受防御上限约束，推荐树在建边时已保证无环。
func (s *ReferralService) RollupSales(tx *gorm.DB, buyerID uint, amount models.Money) error {
	repo := s.referralRepo.WithTx(tx)
	current := buyerID
	for hop := 0; hop < constants.MaxRollupHops; hop++ {
		edge, err := repo.GetEdgeByChildID(current)
		if err != nil {
			return err
		}
		if edge == nil {
			break
		}
		if err := repo.IncrementGroupSummary(edge.ParentID, edge.GroupNo, amount); err != nil {
			return err
		}
		current = edge.ParentID
	}
	return nil
}

// GetEdge 获取用户的入边
func (s *ReferralService) GetEdge(userID uint) (*models.ReferralEdge, error) {
	return s.referralRepo.GetEdgeByChildID(userID)
}

// ListChildren 获取直推下级
func (s *ReferralService) ListChildren(parentID uint) ([]models.ReferralEdge, error) {
	return s.referralRepo.ListChildren(parentID)
}

// GetGroupSummaries 获取用户分组销量
func (s *ReferralService) GetGroupSummaries(userID uint) ([]models.ReferralGroupSummary, error) {
	return s.referralRepo.GetGroupSummaries(userID)
}
