// Package cost turns per-component token usage into dollar cost
// breakdowns using per-million-token pricing tables.
package cost

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/promptsmith/pkg/models"
)

// ComponentPricing contains pricing per 1M tokens for one cycle component.
type ComponentPricing struct {
	// InputPerMillion is the cost per 1M input tokens.
	InputPerMillion float64 `yaml:"input_per_million"`
	// OutputPerMillion is the cost per 1M output tokens.
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// Cost computes the dollar cost of the given usage.
func (p ComponentPricing) Cost(usage models.TokenUsage) float64 {
	in := float64(usage.InputTokens) / 1_000_000 * p.InputPerMillion
	out := float64(usage.OutputTokens) / 1_000_000 * p.OutputPerMillion
	return in + out
}

// Pricing holds per-component pricing for a cycle. A nil Pricing means
// cost tracking is disabled and every round costs zero.
type Pricing struct {
	Agent    ComponentPricing `yaml:"agent"`
	Judge    ComponentPricing `yaml:"judge"`
	Improver ComponentPricing `yaml:"improver"`
}

// DefaultModelPricing contains per-1M-token pricing for known Claude models.
var DefaultModelPricing = map[string]ComponentPricing{
	"claude-opus-4-5-20251101":   {InputPerMillion: 15.00, OutputPerMillion: 75.00},
	"claude-opus-4-20250514":     {InputPerMillion: 15.00, OutputPerMillion: 75.00},
	"claude-sonnet-4-20250514":   {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-3-5-sonnet-20241022": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-3-5-haiku-20241022":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
}

// ForModel returns a Pricing that charges all three components at the
// given model's rate, or nil when the model is unknown.
func ForModel(model string) *Pricing {
	mp, ok := DefaultModelPricing[model]
	if !ok {
		return nil
	}
	return &Pricing{Agent: mp, Judge: mp, Improver: mp}
}

// Load reads a pricing table from a YAML file.
func Load(path string) (*Pricing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing table: %w", err)
	}

	var p Pricing
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse pricing table: %w", err)
	}
	return &p, nil
}

// RoundCost computes the cost breakdown for one round of token usage.
// A nil pricing table yields a zero cost.
func RoundCost(p *Pricing, agent, judge, improver models.TokenUsage) models.RoundCost {
	if p == nil {
		return models.RoundCost{}
	}
	c := models.RoundCost{
		Agent:    p.Agent.Cost(agent),
		Judge:    p.Judge.Cost(judge),
		Improver: p.Improver.Cost(improver),
	}
	c.Total = c.Agent + c.Judge + c.Improver
	return c
}
