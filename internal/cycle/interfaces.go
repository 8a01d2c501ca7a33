// Package cycle implements the resumable round-by-round improvement
// loop: round execution, the human-in-the-loop decision protocol, and
// the fully automatic driver.
package cycle

import (
	"context"

	"github.com/ShayCichocki/promptsmith/pkg/models"
)

// Agent executes one test input against the prompt it was built from.
// Implementations live outside the engine.
type Agent interface {
	Execute(ctx context.Context, input map[string]string) (output string, usage models.TokenUsage, err error)
}

// AgentFactory builds an agent from the current prompt.
type AgentFactory interface {
	Build(prompt models.AgentPrompt) (Agent, error)
}

// SuiteRunner runs the externally-owned evaluation suite and reports
// aggregate scores plus per-test verdicts.
type SuiteRunner interface {
	Run(ctx context.Context, agent Agent, cases []models.TestCase) (*models.EvalReport, error)
}

// Judge scores a single test output, reporting its own token usage.
// Consumed by suite runner implementations rather than by the engine
// directly.
type Judge interface {
	Score(ctx context.Context, tc models.TestCase, output string) (models.TestResult, models.TokenUsage, error)
}

// Improver generates edit suggestions from an evaluation report,
// reporting its own token usage.
type Improver interface {
	Improve(ctx context.Context, prompt models.AgentPrompt, report *models.EvalReport) ([]models.Suggestion, models.TokenUsage, error)
}

// StopChecker lets the automatic driver observe an external stop
// request between rounds.
type StopChecker interface {
	ShouldStop() bool
}
