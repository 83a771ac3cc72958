package service

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
	"github.com/fenxiao-next/internal/repository"
)

// PackageService 套餐业务服务
type PackageService struct {
	repo repository.PackageRepository
}

// NewPackageService 创建套餐服务
func NewPackageService(repo repository.PackageRepository) *PackageService {
	return &PackageService{repo: repo}
}

// PackageRateInput 套餐费率输入
type PackageRateInput struct {
	Level   int             `json:"level"`
	Percent decimal.Decimal `json:"percent"`
}

// SavePackageInput 创建/更新套餐输入
type SavePackageInput struct {
	Code      string
	NameJSON  map[string]interface{}
	Price     models.Money
	Status    string
	SortOrder int
	Rates     []PackageRateInput
}

// ListPublic 获取公开套餐列表（仅上架）
func (s *PackageService) ListPublic(keyword string, page, pageSize int) ([]models.Package, int64, error) {
	return s.repo.List(repository.PackageListFilter{
		Page:       page,
		PageSize:   pageSize,
		Keyword:    keyword,
		OnlyActive: true,
		WithRates:  true,
	})
}

// ListAdmin 获取后台套餐列表
func (s *PackageService) ListAdmin(keyword, status string, page, pageSize int) ([]models.Package, int64, error) {
	return s.repo.List(repository.PackageListFilter{
		Page:      page,
		PageSize:  pageSize,
		Keyword:   keyword,
		Status:    status,
		WithRates: true,
	})
}

// GetByID 获取套餐详情
func (s *PackageService) GetByID(id uint) (*models.Package, error) {
	pkg, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, ErrPackageNotFound
	}
	return pkg, nil
}

// Create 创建套餐
func (s *PackageService) Create(input SavePackageInput) (*models.Package, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" || len(input.NameJSON) == 0 {
		return nil, ErrInvalidInput
	}
	if input.Price.LessThan(decimal.Zero) {
		return nil, ErrInvalidInput
	}
	rates, err := normalizePackageRates(input.Rates)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrInvalidInput
	}

	pkg := &models.Package{
		Code:      code,
		NameJSON:  models.JSON(input.NameJSON),
		Price:     input.Price,
		Status:    normalizePackageStatus(input.Status),
		SortOrder: input.SortOrder,
	}
	if err := s.repo.Create(pkg); err != nil {
		return nil, err
	}
	if len(rates) > 0 {
		if err := s.repo.ReplaceRates(pkg.ID, rates); err != nil {
			return nil, err
		}
	}
	return s.repo.GetByID(pkg.ID)
}

// Update 更新套餐
func (s *PackageService) Update(id uint, input SavePackageInput) (*models.Package, error) {
	pkg, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, ErrPackageNotFound
	}
	if input.Price.LessThan(decimal.Zero) {
		return nil, ErrInvalidInput
	}
	rates, err := normalizePackageRates(input.Rates)
	if err != nil {
		return nil, err
	}

	if code := strings.TrimSpace(input.Code); code != "" && code != pkg.Code {
		existing, err := s.repo.GetByCode(code)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != pkg.ID {
			return nil, ErrInvalidInput
		}
		pkg.Code = code
	}
	if len(input.NameJSON) > 0 {
		pkg.NameJSON = models.JSON(input.NameJSON)
	}
	pkg.Price = input.Price
	pkg.Status = normalizePackageStatus(input.Status)
	pkg.SortOrder = input.SortOrder

	if err := s.repo.Update(pkg); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceRates(pkg.ID, rates); err != nil {
		return nil, err
	}
	return s.repo.GetByID(pkg.ID)
}

// Delete 删除套餐（软删除，历史购买记录不受影响）
func (s *PackageService) Delete(id uint) error {
	pkg, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if pkg == nil {
		return ErrPackageNotFound
	}
	return s.repo.Delete(id)
}

// ListHistories 分页查询购买记录
func (s *PackageService) ListHistories(filter repository.PackageHistoryListFilter) ([]models.PackageHistory, int64, error) {
	return s.repo.ListHistories(filter)
}

// normalizePackageRates 校验并整理费率：层级为正且不重复，比例非负
func normalizePackageRates(inputs []PackageRateInput) ([]models.PackageRate, error) {
	rates := make([]models.PackageRate, 0, len(inputs))
	seen := make(map[int]bool, len(inputs))
	for _, input := range inputs {
		if input.Level <= 0 || seen[input.Level] {
			return nil, ErrInvalidInput
		}
		if input.Percent.LessThan(decimal.Zero) {
			return nil, ErrInvalidInput
		}
		seen[input.Level] = true
		rates = append(rates, models.PackageRate{
			Level:   input.Level,
			Percent: input.Percent,
		})
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].Level < rates[j].Level })
	return rates, nil
}

func normalizePackageStatus(raw string) string {
	switch strings.TrimSpace(raw) {
	case constants.PackageStatusDisabled:
		return constants.PackageStatusDisabled
	default:
		return constants.PackageStatusActive
	}
}
