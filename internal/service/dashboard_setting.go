package service

import (
	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
)

// DashboardAlertSetting 仪表盘告警规则配置
type DashboardAlertSetting struct {
	StalledJobsThreshold  int64 `json:"stalled_jobs_threshold"`
	QueueBacklogThreshold int64 `json:"queue_backlog_threshold"`
}

// DashboardRankingSetting 仪表盘排行规则配置
type DashboardRankingSetting struct {
	TopPackagesLimit int `json:"top_packages_limit"`
}

// DashboardSetting 仪表盘配置
type DashboardSetting struct {
	Alert   DashboardAlertSetting   `json:"alert"`
	Ranking DashboardRankingSetting `json:"ranking"`
}

// DashboardDefaultSetting 默认仪表盘配置
func DashboardDefaultSetting() DashboardSetting {
	return NormalizeDashboardSetting(DashboardSetting{
		Alert: DashboardAlertSetting{
			StalledJobsThreshold:  1,
			QueueBacklogThreshold: 100,
		},
		Ranking: DashboardRankingSetting{
			TopPackagesLimit: 5,
		},
	})
}

// NormalizeDashboardSetting 归一化仪表盘配置
func NormalizeDashboardSetting(setting DashboardSetting) DashboardSetting {
	if setting.Alert.StalledJobsThreshold < 1 || setting.Alert.StalledJobsThreshold > 100000 {
		setting.Alert.StalledJobsThreshold = 1
	}
	if setting.Alert.QueueBacklogThreshold < 1 || setting.Alert.QueueBacklogThreshold > 1000000 {
		setting.Alert.QueueBacklogThreshold = 100
	}
	if setting.Ranking.TopPackagesLimit < 1 || setting.Ranking.TopPackagesLimit > 20 {
		setting.Ranking.TopPackagesLimit = 5
	}
	return setting
}

// DashboardSettingToMap 将仪表盘配置转换为设置存储结构
func DashboardSettingToMap(setting DashboardSetting) map[string]interface{} {
	normalized := NormalizeDashboardSetting(setting)
	return map[string]interface{}{
		"alert": map[string]interface{}{
			"stalled_jobs_threshold":  normalized.Alert.StalledJobsThreshold,
			"queue_backlog_threshold": normalized.Alert.QueueBacklogThreshold,
		},
		"ranking": map[string]interface{}{
			"top_packages_limit": normalized.Ranking.TopPackagesLimit,
		},
	}
}

func dashboardSettingFromJSON(raw models.JSON, fallback DashboardSetting) DashboardSetting {
	result := fallback

	alertRaw, ok := raw["alert"].(map[string]interface{})
	if ok {
		if value, exists := alertRaw["stalled_jobs_threshold"]; exists {
			if parsed, err := parseSettingInt(value); err == nil {
				result.Alert.StalledJobsThreshold = int64(parsed)
			}
		}
		if value, exists := alertRaw["queue_backlog_threshold"]; exists {
			if parsed, err := parseSettingInt(value); err == nil {
				result.Alert.QueueBacklogThreshold = int64(parsed)
			}
		}
	}

	rankingRaw, ok := raw["ranking"].(map[string]interface{})
	if ok {
		if value, exists := rankingRaw["top_packages_limit"]; exists {
			if parsed, err := parseSettingInt(value); err == nil {
				result.Ranking.TopPackagesLimit = parsed
			}
		}
	}

	return NormalizeDashboardSetting(result)
}

// GetDashboardSetting 获取仪表盘设置（优先 settings，空时回退默认）
func (s *SettingService) GetDashboardSetting() (DashboardSetting, error) {
	fallback := DashboardDefaultSetting()
	if s == nil {
		return fallback, nil
	}
	value, err := s.GetByKey(constants.SettingKeyDashboardConfig)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return dashboardSettingFromJSON(value, fallback), nil
}
