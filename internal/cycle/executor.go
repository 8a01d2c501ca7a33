package cycle

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/promptsmith/internal/cost"
	"github.com/ShayCichocki/promptsmith/pkg/models"
)

// RoundExecutor runs one execute→evaluate→suggest pass. It has no side
// effects beyond what the injected collaborators perform.
type RoundExecutor struct {
	factory  AgentFactory
	runner   SuiteRunner
	improver Improver
	pricing  *cost.Pricing
}

// RoundOutcome is the raw product of one round before it is recorded.
type RoundOutcome struct {
	// Report is the evaluation suite's report for this round.
	Report *models.EvalReport
	// Suggestions are the improver's proposed edits, all unapproved.
	Suggestions []models.Suggestion
	// Cost is the round's cost breakdown; zero without a pricing table.
	Cost models.RoundCost
}

// NewRoundExecutor wires the collaborators for round execution.
func NewRoundExecutor(factory AgentFactory, runner SuiteRunner, improver Improver, pricing *cost.Pricing) (*RoundExecutor, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: missing agent factory", ErrInvalidConfig)
	}
	if runner == nil {
		return nil, fmt.Errorf("%w: missing suite runner", ErrInvalidConfig)
	}
	if improver == nil {
		return nil, fmt.Errorf("%w: missing improver", ErrInvalidConfig)
	}
	return &RoundExecutor{factory: factory, runner: runner, improver: improver, pricing: pricing}, nil
}

// ExecuteRound builds an agent from the prompt, runs the suite, asks
// the improver for suggestions and computes the round cost.
func (e *RoundExecutor) ExecuteRound(ctx context.Context, prompt models.AgentPrompt, cases []models.TestCase) (*RoundOutcome, error) {
	agent, err := e.factory.Build(prompt)
	if err != nil {
		return nil, fmt.Errorf("build agent: %w", err)
	}

	report, err := e.runner.Run(ctx, agent, cases)
	if err != nil {
		return nil, fmt.Errorf("run evaluation suite: %w", err)
	}

	suggestions, improverUsage, err := e.improver.Improve(ctx, prompt, report)
	if err != nil {
		return nil, fmt.Errorf("generate suggestions: %w", err)
	}

	return &RoundOutcome{
		Report:      report,
		Suggestions: suggestions,
		Cost:        cost.RoundCost(e.pricing, report.AgentUsage, report.JudgeUsage, improverUsage),
	}, nil
}
