package service

import (
	"errors"
	"testing"

	"github.com/fenxiao-next/internal/constants"
	"github.com/fenxiao-next/internal/models"
)

func TestValidateWorkerSetting(t *testing.T) {
	base := WorkerDefaultSetting()
	if err := ValidateWorkerSetting(base); err != nil {
		t.Fatalf("default setting should validate, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(setting *WorkerSetting)
	}{
		{"unknown mode", func(s *WorkerSetting) { s.Mode = "cron" }},
		{"interval too small", func(s *WorkerSetting) { s.IntervalMs = 99 }},
		{"burst runs zero", func(s *WorkerSetting) { s.BurstRuns = 0 }},
		{"batch size zero", func(s *WorkerSetting) { s.BatchSize = 0 }},
		{"batch size over max", func(s *WorkerSetting) { s.BatchSize = 1001; s.FetchLimit = 2000 }},
		{"fetch limit below batch", func(s *WorkerSetting) { s.BatchSize = 20; s.FetchLimit = 10 }},
		{"stall too small", func(s *WorkerSetting) { s.StallMs = 999 }},
		{"negative max age", func(s *WorkerSetting) { s.MaxAgeMs = -1 }},
		{"chain depth zero", func(s *WorkerSetting) { s.MaxChainDepth = 0 }},
		{"chain depth over max", func(s *WorkerSetting) { s.MaxChainDepth = 10001 }},
		{"heartbeat steps zero", func(s *WorkerSetting) { s.HeartbeatEverySteps = 0 }},
		{"negative rescue grace", func(s *WorkerSetting) { s.RescueGraceSec = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setting := WorkerDefaultSetting()
			tc.mutate(&setting)
			err := ValidateWorkerSetting(setting)
			if !errors.Is(err, ErrWorkerConfigInvalid) {
				t.Fatalf("expected config rejection, got %v", err)
			}
		})
	}
}

func TestNormalizeWorkerSetting(t *testing.T) {
	setting := WorkerDefaultSetting()
	setting.Mode = "  BURST  "
	setting.WorkerID = "  worker-1  "

	normalized := NormalizeWorkerSetting(setting)
	if normalized.Mode != constants.WorkerModeBurst {
		t.Fatalf("mode should be lowered and trimmed, got %q", normalized.Mode)
	}
	if normalized.WorkerID != "worker-1" {
		t.Fatalf("worker id should be trimmed, got %q", normalized.WorkerID)
	}

	setting.Mode = "   "
	normalized = NormalizeWorkerSetting(setting)
	if normalized.Mode != constants.WorkerModeInterval {
		t.Fatalf("blank mode should fall back to interval, got %q", normalized.Mode)
	}
}

func TestWorkerSettingFromJSONParsesMixedTypes(t *testing.T) {
	raw := models.JSON{
		"is_active":       "on",
		"mode":            "Burst",
		"worker_id":       " node-a ",
		"interval_ms":     "250",
		"batch_size":      float64(5),
		"fetch_limit":     15,
		"stop_at_user_id": "7",
		"stall_ms":        "not-a-number",
	}

	setting := workerSettingFromJSON(raw, WorkerDefaultSetting())
	if !setting.IsActive {
		t.Fatalf("is_active should parse string truthy value")
	}
	if setting.Mode != constants.WorkerModeBurst {
		t.Fatalf("unexpected mode: %q", setting.Mode)
	}
	if setting.WorkerID != "node-a" {
		t.Fatalf("unexpected worker id: %q", setting.WorkerID)
	}
	if setting.IntervalMs != 250 || setting.BatchSize != 5 || setting.FetchLimit != 15 {
		t.Fatalf("unexpected numeric fields: %+v", setting)
	}
	if setting.StopAtUserID != 7 {
		t.Fatalf("unexpected stop_at_user_id: %d", setting.StopAtUserID)
	}
	// 解析失败的字段保留默认值
	if setting.StallMs != 60000 {
		t.Fatalf("unparsable stall_ms should keep fallback, got %d", setting.StallMs)
	}
}

func TestUpdateWorkerSettingPersistsNormalized(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	input := WorkerDefaultSetting()
	input.Mode = " INTERVAL "
	input.IsActive = true
	input.IntervalMs = 1000

	saved, err := svc.UpdateWorkerSetting(input)
	if err != nil {
		t.Fatalf("update worker setting failed: %v", err)
	}
	if saved.Mode != constants.WorkerModeInterval || !saved.IsActive || saved.IntervalMs != 1000 {
		t.Fatalf("unexpected saved setting: %+v", saved)
	}

	loaded, err := svc.GetWorkerSetting()
	if err != nil {
		t.Fatalf("get worker setting failed: %v", err)
	}
	if loaded.IntervalMs != 1000 || !loaded.IsActive {
		t.Fatalf("unexpected loaded setting: %+v", loaded)
	}

	bad := WorkerDefaultSetting()
	bad.BatchSize = 0
	if _, err := svc.UpdateWorkerSetting(bad); !errors.Is(err, ErrWorkerConfigInvalid) {
		t.Fatalf("invalid setting must be rejected, got %v", err)
	}
}

func TestGetWorkerSettingFallsBackToDefaults(t *testing.T) {
	repo := newMockSettingRepo()
	svc := NewSettingService(repo)

	setting, err := svc.GetWorkerSetting()
	if err != nil {
		t.Fatalf("get worker setting failed: %v", err)
	}
	defaults := WorkerDefaultSetting()
	if setting != defaults {
		t.Fatalf("expected defaults %+v, got %+v", defaults, setting)
	}
}
