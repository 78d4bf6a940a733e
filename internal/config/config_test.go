package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Lab != "fusion" {
		t.Errorf("expected lab fusion, got %s", cfg.Lab)
	}
	if cfg.Rate <= 0 {
		t.Error("rate should be positive")
	}
	if cfg.Duration <= 0 {
		t.Error("duration should be positive")
	}
	if cfg.Server.Addr == "" {
		t.Error("server addr should have a default")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("fusion", "ignition")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Knobs["heater"] != 75 {
		t.Errorf("expected heater 75, got %f", cfg.Knobs["heater"])
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	cfg := GetPreset("fusion", "nonexistent")
	if cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}

	cfg = GetPreset("nonexistent", "ignition")
	if cfg != nil {
		t.Error("expected nil for nonexistent lab")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("fusion")
	if len(presets) == 0 {
		t.Error("expected presets for fusion")
	}

	presets = ListPresets("nonexistent")
	if presets != nil {
		t.Error("expected nil for nonexistent lab")
	}
}

func TestTicks(t *testing.T) {
	tests := []struct {
		rate     float64
		duration float64
		expected int
	}{
		{60, 10, 600},
		{120, 30, 3600},
		{60, 0, 0},
		{30, 2, 60},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Rate = tt.rate
		cfg.Duration = tt.duration
		if got := cfg.Ticks(); got != tt.expected {
			t.Errorf("rate %v duration %v: expected %d ticks, got %d", tt.rate, tt.duration, tt.expected, got)
		}
	}
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Lab = "chain"
	cfg.Seed = 42
	cfg.Knobs = map[string]float64{"moderator": 80}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Lab != "chain" {
		t.Errorf("expected lab chain, got %s", loaded.Lab)
	}
	if loaded.Seed != 42 {
		t.Errorf("expected seed 42, got %d", loaded.Seed)
	}
	if loaded.Knobs["moderator"] != 80 {
		t.Errorf("expected moderator 80, got %f", loaded.Knobs["moderator"])
	}
	if loaded.Theme != DefaultTheme {
		t.Errorf("expected default theme preserved, got %s", loaded.Theme)
	}
}
