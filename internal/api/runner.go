package api

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/promptsmith/internal/cycle"
	"github.com/ShayCichocki/promptsmith/pkg/models"
)

// EvalRunner runs a test suite case by case against an agent and scores
// each output with a judge.
type EvalRunner struct {
	judge cycle.Judge
}

// NewEvalRunner creates a suite runner over the given judge.
func NewEvalRunner(judge cycle.Judge) (*EvalRunner, error) {
	if judge == nil {
		return nil, fmt.Errorf("eval runner requires a judge")
	}
	return &EvalRunner{judge: judge}, nil
}

// Run executes every case in order and aggregates the report. Cases run
// sequentially so a cancelled context stops between cases, not mid-suite.
func (r *EvalRunner) Run(ctx context.Context, agent cycle.Agent, cases []models.TestCase) (*models.EvalReport, error) {
	if len(cases) == 0 {
		return nil, fmt.Errorf("no test cases to run")
	}

	report := &models.EvalReport{TotalTests: len(cases)}
	var scoreSum float64

	for _, tc := range cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		output, agentUsage, err := agent.Execute(ctx, tc.Input)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", tc.Name, err)
		}
		report.AgentUsage.Add(agentUsage)

		result, judgeUsage, err := r.judge.Score(ctx, tc, output)
		report.JudgeUsage.Add(judgeUsage)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", tc.Name, err)
		}

		report.Results = append(report.Results, result)
		scoreSum += result.Score
		if result.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
	}

	report.AvgScore = scoreSum / float64(len(cases))
	return report, nil
}
