package service

import (
	"testing"

	"github.com/fenxiao-next/internal/constants"
)

func TestUpdateDashboardSettingNormalized(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	input := map[string]interface{}{
		"alert": map[string]interface{}{
			"stalled_jobs_threshold":  "3",
			"queue_backlog_threshold": -2,
		},
		"ranking": map[string]interface{}{
			"top_packages_limit": 999,
		},
	}

	result, err := svc.Update(constants.SettingKeyDashboardConfig, input)
	if err != nil {
		t.Fatalf("update dashboard config failed: %v", err)
	}

	alert, ok := result["alert"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid alert payload type: %T", result["alert"])
	}
	ranking, ok := result["ranking"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid ranking payload type: %T", result["ranking"])
	}

	assertSettingIntValue(t, alert, "stalled_jobs_threshold", 3)
	assertSettingIntValue(t, alert, "queue_backlog_threshold", 100)
	assertSettingIntValue(t, ranking, "top_packages_limit", 5)
}

func TestUpdateDashboardSettingFallbackWhenMissing(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	result, err := svc.Update(constants.SettingKeyDashboardConfig, map[string]interface{}{})
	if err != nil {
		t.Fatalf("update dashboard config failed: %v", err)
	}

	alert, ok := result["alert"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid alert payload type: %T", result["alert"])
	}
	ranking, ok := result["ranking"].(map[string]interface{})
	if !ok {
		t.Fatalf("invalid ranking payload type: %T", result["ranking"])
	}

	assertSettingIntValue(t, alert, "stalled_jobs_threshold", 1)
	assertSettingIntValue(t, alert, "queue_backlog_threshold", 100)
	assertSettingIntValue(t, ranking, "top_packages_limit", 5)
}

func TestGetDashboardSettingFallsBackToDefaults(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	setting, err := svc.GetDashboardSetting()
	if err != nil {
		t.Fatalf("get dashboard setting failed: %v", err)
	}
	if setting.Alert.StalledJobsThreshold != 1 || setting.Alert.QueueBacklogThreshold != 100 {
		t.Fatalf("unexpected default alert setting: %+v", setting.Alert)
	}
	if setting.Ranking.TopPackagesLimit != 5 {
		t.Fatalf("unexpected default ranking setting: %+v", setting.Ranking)
	}
}

func assertSettingIntValue(t *testing.T, data map[string]interface{}, key string, expected int) {
	t.Helper()
	value, exists := data[key]
	if !exists {
		t.Fatalf("missing key %s", key)
	}
	parsed, err := parseSettingInt(value)
	if err != nil {
		t.Fatalf("parse key %s failed: %v", key, err)
	}
	if parsed != expected {
		t.Fatalf("unexpected value for %s, expected %d got %d", key, expected, parsed)
	}
}
