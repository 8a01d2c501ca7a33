package cost

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ShayCichocki/promptsmith/pkg/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComponentPricing_Cost(t *testing.T) {
	p := ComponentPricing{InputPerMillion: 3.00, OutputPerMillion: 15.00}

	tests := []struct {
		name  string
		usage models.TokenUsage
		want  float64
	}{
		{name: "zero usage", usage: models.TokenUsage{}, want: 0},
		{name: "one million input", usage: models.TokenUsage{InputTokens: 1_000_000}, want: 3.00},
		{name: "one million output", usage: models.TokenUsage{OutputTokens: 1_000_000}, want: 15.00},
		{name: "mixed", usage: models.TokenUsage{InputTokens: 500_000, OutputTokens: 100_000}, want: 1.50 + 1.50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Cost(tt.usage); !almostEqual(got, tt.want) {
				t.Errorf("Cost(%+v) = %v, want %v", tt.usage, got, tt.want)
			}
		})
	}
}

func TestRoundCost(t *testing.T) {
	p := &Pricing{
		Agent:    ComponentPricing{InputPerMillion: 3, OutputPerMillion: 15},
		Judge:    ComponentPricing{InputPerMillion: 0.80, OutputPerMillion: 4},
		Improver: ComponentPricing{InputPerMillion: 15, OutputPerMillion: 75},
	}

	agent := models.TokenUsage{InputTokens: 1_000_000}
	judge := models.TokenUsage{OutputTokens: 1_000_000}
	improver := models.TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}

	got := RoundCost(p, agent, judge, improver)
	if !almostEqual(got.Agent, 3) {
		t.Errorf("Agent = %v, want 3", got.Agent)
	}
	if !almostEqual(got.Judge, 4) {
		t.Errorf("Judge = %v, want 4", got.Judge)
	}
	if !almostEqual(got.Improver, 90) {
		t.Errorf("Improver = %v, want 90", got.Improver)
	}
	if !almostEqual(got.Total, 97) {
		t.Errorf("Total = %v, want 97", got.Total)
	}
}

func TestRoundCost_NilPricingIsZero(t *testing.T) {
	usage := models.TokenUsage{InputTokens: 10_000_000, OutputTokens: 10_000_000}
	got := RoundCost(nil, usage, usage, usage)
	if got != (models.RoundCost{}) {
		t.Errorf("RoundCost(nil, ...) = %+v, want zero", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.yaml")
	content := `agent:
  input_per_million: 3.0
  output_per_million: 15.0
judge:
  input_per_million: 0.8
  output_per_million: 4.0
improver:
  input_per_million: 15.0
  output_per_million: 75.0
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Agent.InputPerMillion != 3.0 || p.Improver.OutputPerMillion != 75.0 {
		t.Errorf("loaded pricing = %+v", p)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing pricing file")
	}
}

func TestForModel(t *testing.T) {
	if p := ForModel("claude-sonnet-4-20250514"); p == nil || p.Agent.InputPerMillion != 3.00 {
		t.Errorf("ForModel(sonnet) = %+v", p)
	}
	if p := ForModel("unknown-model"); p != nil {
		t.Errorf("ForModel(unknown) = %+v, want nil", p)
	}
}
