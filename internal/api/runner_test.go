package api

import (
	"context"
	"errors"
	"testing"

	"github.com/ShayCichocki/promptsmith/pkg/models"
)

type echoAgent struct{}

func (echoAgent) Execute(ctx context.Context, input map[string]string) (string, models.TokenUsage, error) {
	return "echo: " + input["question"], models.TokenUsage{InputTokens: 10, OutputTokens: 5}, nil
}

// scriptedJudge scores cases by name.
type scriptedJudge struct {
	scores map[string]float64
}

func (j scriptedJudge) Score(ctx context.Context, tc models.TestCase, output string) (models.TestResult, models.TokenUsage, error) {
	score, ok := j.scores[tc.Name]
	if !ok {
		return models.TestResult{}, models.TokenUsage{}, errors.New("unknown case")
	}
	return models.TestResult{
		TestName: tc.Name,
		Output:   output,
		Score:    score,
		Passed:   score >= 70,
	}, models.TokenUsage{InputTokens: 20, OutputTokens: 3}, nil
}

func TestEvalRunnerAggregates(t *testing.T) {
	runner, err := NewEvalRunner(scriptedJudge{scores: map[string]float64{
		"a": 90,
		"b": 60,
		"c": 75,
	}})
	if err != nil {
		t.Fatalf("NewEvalRunner: %v", err)
	}

	cases := []models.TestCase{
		{Name: "a", Input: map[string]string{"question": "1"}},
		{Name: "b", Input: map[string]string{"question": "2"}},
		{Name: "c", Input: map[string]string{"question": "3"}},
	}

	report, err := runner.Run(context.Background(), echoAgent{}, cases)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.AvgScore != 75 {
		t.Errorf("AvgScore = %v, want 75", report.AvgScore)
	}
	if report.Passed != 2 || report.Failed != 1 {
		t.Errorf("passed=%d failed=%d, want 2 and 1", report.Passed, report.Failed)
	}
	if report.TotalTests != 3 || len(report.Results) != 3 {
		t.Errorf("totals = %d results = %d", report.TotalTests, len(report.Results))
	}
	if report.AgentUsage.InputTokens != 30 || report.JudgeUsage.InputTokens != 60 {
		t.Errorf("usage = %+v / %+v", report.AgentUsage, report.JudgeUsage)
	}
	if report.Results[1].Output != "echo: 2" {
		t.Errorf("output = %q", report.Results[1].Output)
	}
}

func TestEvalRunnerEmptySuite(t *testing.T) {
	runner, _ := NewEvalRunner(scriptedJudge{})
	if _, err := runner.Run(context.Background(), echoAgent{}, nil); err == nil {
		t.Fatal("expected error for empty suite")
	}
}

func TestEvalRunnerStopsOnCancelledContext(t *testing.T) {
	runner, _ := NewEvalRunner(scriptedJudge{scores: map[string]float64{"a": 90}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, echoAgent{}, []models.TestCase{{Name: "a"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNewEvalRunnerRequiresJudge(t *testing.T) {
	if _, err := NewEvalRunner(nil); err == nil {
		t.Fatal("expected error without judge")
	}
}
