package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fenxiao-next/internal/cache"
	"github.com/fenxiao-next/internal/repository"
)

const (
	dashboardCacheTTL      = 45 * time.Second
	dashboardCustomMaxDays = 90
)

// DashboardService 仪表盘服务
// 说明：聚合后台首页核心经营数据。
type DashboardService struct {
	repo           repository.DashboardRepository
	settingService *SettingService
}

// NewDashboardService 创建仪表盘服务
func NewDashboardService(repo repository.DashboardRepository, settingService *SettingService) *DashboardService {
	return &DashboardService{repo: repo, settingService: settingService}
}

// DashboardQueryInput 仪表盘查询输入
type DashboardQueryInput struct {
	Range        string
	From         *time.Time
	To           *time.Time
	Timezone     string
	ForceRefresh bool
}

// DashboardOverviewResponse 仪表盘总览响应
type DashboardOverviewResponse struct {
	Range    string               `json:"range"`
	From     string               `json:"from"`
	To       string               `json:"to"`
	Timezone string               `json:"timezone"`
	KPI      DashboardKPI         `json:"kpi"`
	Queue    DashboardQueueStats  `json:"queue"`
	Alerts   []DashboardAlertItem `json:"alerts"`
}

// DashboardKPI 仪表盘核心指标
type DashboardKPI struct {
	PurchasesTotal      int64  `json:"purchases_total"`
	PurchaseVolume      string `json:"purchase_volume"`
	ReferralCommissions int64  `json:"referral_commissions"`
	ReferralPayout      string `json:"referral_payout"`
	CenterCommissions   int64  `json:"center_commissions"`
	CenterPayout        string `json:"center_payout"`
	PayoutRatio         string `json:"payout_ratio"`
	NewUsers            int64  `json:"new_users"`
	ActivePackages      int64  `json:"active_packages"`
}

// DashboardQueueStats 重算队列健康指标
type DashboardQueueStats struct {
	Queued    int64 `json:"queued"`
	Leased    int64 `json:"leased"`
	Stalled   int64 `json:"stalled"`
	Completed int64 `json:"completed"`
}

// DashboardAlertItem 仪表盘告警项
type DashboardAlertItem struct {
	Type  string `json:"type"`
	Level string `json:"level"`
	Value int64  `json:"value"`
}

// DashboardTrendResponse 仪表盘趋势响应
type DashboardTrendResponse struct {
	Range    string                `json:"range"`
	From     string                `json:"from"`
	To       string                `json:"to"`
	Timezone string                `json:"timezone"`
	Points   []DashboardTrendPoint `json:"points"`
}

// DashboardTrendPoint 趋势点
type DashboardTrendPoint struct {
	Date           string `json:"date"`
	PurchasesTotal int64  `json:"purchases_total"`
	PurchaseVolume string `json:"purchase_volume"`
}

// DashboardRankingsResponse 仪表盘排行榜响应
type DashboardRankingsResponse struct {
	Range       string                     `json:"range"`
	From        string                     `json:"from"`
	To          string                     `json:"to"`
	Timezone    string                     `json:"timezone"`
	TopPackages []DashboardPackageRanking  `json:"top_packages"`
	Levels      []DashboardLevelBucketItem `json:"levels"`
}

// DashboardPackageRanking 套餐排行项
type DashboardPackageRanking struct {
	PackageID  uint   `json:"package_id"`
	Name       string `json:"name"`
	Purchases  int64  `json:"purchases"`
	Quantity   int64  `json:"quantity"`
	PaidAmount string `json:"paid_amount"`
}

// DashboardLevelBucketItem 等级分布项
type DashboardLevelBucketItem struct {
	Level int   `json:"level"`
	Total int64 `json:"total"`
}

type dashboardWindow struct {
	rangeKey string
	startAt  time.Time
	endAt    time.Time
	timezone string
}

// GetOverview 获取仪表盘总览
func (s *DashboardService) GetOverview(ctx context.Context, input DashboardQueryInput) (*DashboardOverviewResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardOverviewResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	setting := s.loadDashboardSetting()

	cacheKey := fmt.Sprintf("dashboard:overview:%s:%d:%d:%s:%d:%d",
		window.rangeKey,
		window.startAt.Unix(),
		window.endAt.Unix(),
		window.timezone,
		setting.Alert.StalledJobsThreshold,
		setting.Alert.QueueBacklogThreshold,
	)
	if !input.ForceRefresh {
		var cached DashboardOverviewResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	overview, err := s.repo.GetOverview(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}
	queueStats, err := s.repo.GetRecalcQueueStats(time.Now(), s.loadRescueGrace())
	if err != nil {
		return nil, err
	}

	payoutRatio := 0.0
	if overview.PurchaseVolume > 0 {
		payoutRatio = (overview.ReferralPayout + overview.CenterPayout) / overview.PurchaseVolume * 100
	}

	response := &DashboardOverviewResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		KPI: DashboardKPI{
			PurchasesTotal:      overview.PurchasesTotal,
			PurchaseVolume:      formatMoneyValue(overview.PurchaseVolume),
			ReferralCommissions: overview.ReferralCommissions,
			ReferralPayout:      formatMoneyValue(overview.ReferralPayout),
			CenterCommissions:   overview.CenterCommissions,
			CenterPayout:        formatMoneyValue(overview.CenterPayout),
			PayoutRatio:         formatPercentValue(payoutRatio),
			NewUsers:            overview.NewUsers,
			ActivePackages:      overview.ActivePackages,
		},
		Queue: DashboardQueueStats{
			Queued:    queueStats.Queued,
			Leased:    queueStats.Leased,
			Stalled:   queueStats.Stalled,
			Completed: queueStats.Completed,
		},
		Alerts: buildDashboardAlerts(queueStats, setting.Alert),
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetTrends 获取仪表盘趋势
func (s *DashboardService) GetTrends(ctx context.Context, input DashboardQueryInput) (*DashboardTrendResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardTrendResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("dashboard:trends:%s:%d:%d:%s", window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone)
	if !input.ForceRefresh {
		var cached DashboardTrendResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	rows, err := s.repo.GetPurchaseTrends(window.startAt, window.endAt)
	if err != nil {
		return nil, err
	}
	rowMap := make(map[string]repository.DashboardPurchaseTrendRow, len(rows))
	for _, item := range rows {
		rowMap[item.Day] = item
	}

	points := make([]DashboardTrendPoint, 0)
	for cursor := time.Date(window.startAt.Year(), window.startAt.Month(), window.startAt.Day(), 0, 0, 0, 0, window.startAt.Location()); cursor.Before(window.endAt); cursor = cursor.AddDate(0, 0, 1) {
		day := cursor.Format("2006-01-02")
		item := rowMap[day]
		points = append(points, DashboardTrendPoint{
			Date:           day,
			PurchasesTotal: item.PurchasesTotal,
			PurchaseVolume: formatMoneyValue(item.PurchaseVolume),
		})
	}

	response := &DashboardTrendResponse{
		Range:    window.rangeKey,
		From:     window.startAt.Format(time.RFC3339),
		To:       window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone: window.timezone,
		Points:   points,
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

// GetRankings 获取仪表盘排行榜
func (s *DashboardService) GetRankings(ctx context.Context, input DashboardQueryInput) (*DashboardRankingsResponse, error) {
	if s == nil || s.repo == nil {
		return &DashboardRankingsResponse{}, nil
	}

	window, err := resolveDashboardWindow(input, time.Now())
	if err != nil {
		return nil, err
	}

	setting := s.loadDashboardSetting()

	cacheKey := fmt.Sprintf("dashboard:rankings:%s:%d:%d:%s:%d",
		window.rangeKey, window.startAt.Unix(), window.endAt.Unix(), window.timezone, setting.Ranking.TopPackagesLimit)
	if !input.ForceRefresh {
		var cached DashboardRankingsResponse
		hit, cacheErr := cache.GetJSON(ctx, cacheKey, &cached)
		if cacheErr == nil && hit {
			return &cached, nil
		}
	}

	packageRows, err := s.repo.GetTopPackages(window.startAt, window.endAt, setting.Ranking.TopPackagesLimit)
	if err != nil {
		return nil, err
	}
	levelRows, err := s.repo.GetLevelDistribution()
	if err != nil {
		return nil, err
	}

	topPackages := make([]DashboardPackageRanking, 0, len(packageRows))
	for _, row := range packageRows {
		topPackages = append(topPackages, DashboardPackageRanking{
			PackageID:  row.PackageID,
			Name:       row.Name,
			Purchases:  row.Purchases,
			Quantity:   row.Quantity,
			PaidAmount: formatMoneyValue(row.PaidAmount),
		})
	}
	levels := make([]DashboardLevelBucketItem, 0, len(levelRows))
	for _, row := range levelRows {
		levels = append(levels, DashboardLevelBucketItem{Level: row.Level, Total: row.Total})
	}

	response := &DashboardRankingsResponse{
		Range:       window.rangeKey,
		From:        window.startAt.Format(time.RFC3339),
		To:          window.endAt.Add(-time.Second).Format(time.RFC3339),
		Timezone:    window.timezone,
		TopPackages: topPackages,
		Levels:      levels,
	}

	_ = cache.SetJSON(ctx, cacheKey, response, dashboardCacheTTL)
	return response, nil
}

func (s *DashboardService) loadDashboardSetting() DashboardSetting {
	fallback := DashboardDefaultSetting()
	if s == nil || s.settingService == nil {
		return fallback
	}
	setting, err := s.settingService.GetDashboardSetting()
	if err != nil {
		return fallback
	}
	return NormalizeDashboardSetting(setting)
}

// loadRescueGrace 失联判定阈值与工作器配置保持一致
func (s *DashboardService) loadRescueGrace() time.Duration {
	fallback := time.Duration(WorkerDefaultSetting().RescueGraceSec) * time.Second
	if s == nil || s.settingService == nil {
		return fallback
	}
	setting, err := s.settingService.GetWorkerSetting()
	if err != nil {
		return fallback
	}
	return time.Duration(setting.RescueGraceSec) * time.Second
}

func resolveDashboardWindow(input DashboardQueryInput, now time.Time) (dashboardWindow, error) {
	rangeKey := strings.ToLower(strings.TrimSpace(input.Range))
	if rangeKey == "" {
		rangeKey = "7d"
	}

	timezone := strings.TrimSpace(input.Timezone)
	location := time.Local
	if timezone != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			location = parsed
		} else {
			timezone = ""
		}
	}
	if timezone == "" {
		timezone = location.String()
	}

	localNow := now.In(location)
	todayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, location)
	window := dashboardWindow{rangeKey: rangeKey, timezone: timezone}

	switch rangeKey {
	case "today":
		window.startAt = todayStart
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "7d":
		window.startAt = todayStart.AddDate(0, 0, -6)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "30d":
		window.startAt = todayStart.AddDate(0, 0, -29)
		window.endAt = todayStart.AddDate(0, 0, 1)
	case "custom":
		if input.From == nil || input.To == nil {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		startAt := input.From.In(location)
		endAt := input.To.In(location)
		if endAt.Before(startAt) {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		if endAt.Sub(startAt) > time.Hour*24*dashboardCustomMaxDays {
			return dashboardWindow{}, ErrDashboardRangeInvalid
		}
		window.startAt = startAt
		window.endAt = endAt.Add(time.Second)
	default:
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}

	if !window.endAt.After(window.startAt) {
		return dashboardWindow{}, ErrDashboardRangeInvalid
	}
	return window, nil
}

func formatMoneyValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func formatPercentValue(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func buildDashboardAlerts(queueStats repository.DashboardQueueStatsRow, alertSetting DashboardAlertSetting) []DashboardAlertItem {
	alerts := make([]DashboardAlertItem, 0, 2)
	if queueStats.Stalled >= alertSetting.StalledJobsThreshold {
		alerts = append(alerts, DashboardAlertItem{Type: "stalled_recalc_jobs", Level: "error", Value: queueStats.Stalled})
	}
	backlog := queueStats.Queued + queueStats.Leased
	if backlog >= alertSetting.QueueBacklogThreshold {
		alerts = append(alerts, DashboardAlertItem{Type: "recalc_queue_backlog", Level: "warning", Value: backlog})
	}
	return alerts
}
