package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Cycle.TargetScore != 90.0 {
		t.Errorf("expected default target score 90, got %v", cfg.Cycle.TargetScore)
	}

	if cfg.Cycle.MaxRounds != 10 {
		t.Errorf("expected default max rounds 10, got %d", cfg.Cycle.MaxRounds)
	}

	if cfg.Cycle.MaxCost != 5.0 {
		t.Errorf("expected default max cost 5.0, got %v", cfg.Cycle.MaxCost)
	}

	if cfg.Cycle.NoImprovementRounds != 3 {
		t.Errorf("expected default no-improvement rounds 3, got %d", cfg.Cycle.NoImprovementRounds)
	}

	if cfg.Cycle.AutoApprove {
		t.Error("expected auto_approve to default to false")
	}

	if cfg.Cycle.VersionBump != "patch" {
		t.Errorf("expected default version bump 'patch', got %q", cfg.Cycle.VersionBump)
	}

	if cfg.Models.Agent == "" || cfg.Models.Judge == "" || cfg.Models.Improver == "" {
		t.Errorf("expected model defaults for every role, got %+v", cfg.Models)
	}

	if cfg.Bedrock.Enabled {
		t.Error("expected bedrock to default to disabled")
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
anthropic:
  api_key: sk-ant-file-key
models:
  agent: claude-haiku-3-5-20241022
cycle:
  target_score: 85
  max_rounds: 5
  auto_approve: true
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Anthropic.APIKey != "sk-ant-file-key" {
		t.Errorf("api key = %q", cfg.Anthropic.APIKey)
	}
	if cfg.Models.Agent != "claude-haiku-3-5-20241022" {
		t.Errorf("agent model = %q", cfg.Models.Agent)
	}
	if cfg.Cycle.TargetScore != 85 {
		t.Errorf("target score = %v, want 85", cfg.Cycle.TargetScore)
	}
	if cfg.Cycle.MaxRounds != 5 {
		t.Errorf("max rounds = %d, want 5", cfg.Cycle.MaxRounds)
	}
	if !cfg.Cycle.AutoApprove {
		t.Error("auto_approve not read from file")
	}

	// Unset keys keep their defaults.
	if cfg.Cycle.MaxCost != 5.0 {
		t.Errorf("max cost = %v, want default 5.0", cfg.Cycle.MaxCost)
	}
	if cfg.Models.Judge == "" {
		t.Error("judge model default lost")
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestCycleConfigConditions(t *testing.T) {
	tests := []struct {
		name string
		cfg  CycleConfig
		want int
	}{
		{"all enabled", CycleConfig{TargetScore: 90, MaxRounds: 10, MaxCost: 5, NoImprovementRounds: 3}, 4},
		{"all disabled", CycleConfig{}, 0},
		{"rounds only", CycleConfig{MaxRounds: 3}, 1},
		{"score and cost", CycleConfig{TargetScore: 80, MaxCost: 1}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conds, err := tt.cfg.Conditions()
			if err != nil {
				t.Fatalf("Conditions: %v", err)
			}
			if len(conds) != tt.want {
				t.Errorf("conditions = %d, want %d", len(conds), tt.want)
			}
		})
	}
}

func TestCycleConfigConditionsRejectsBadValues(t *testing.T) {
	if _, err := (CycleConfig{TargetScore: 150}).Conditions(); err == nil {
		t.Error("expected error for target score above 100")
	}
	if _, err := (CycleConfig{NoImprovementRounds: 2, MinDelta: -1}).Conditions(); err == nil {
		t.Error("expected error for negative min delta")
	}
}
