package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/promptsmith/pkg/models"
)

// LLMJudge scores agent outputs with a model acting as evaluator.
type LLMJudge struct {
	client *Client
	model  anthropic.Model
}

// NewLLMJudge creates a judge backed by the given model.
func NewLLMJudge(client *Client, model anthropic.Model) *LLMJudge {
	return &LLMJudge{client: client, model: client.ResolveModel(model)}
}

const judgeSystemPrompt = `You are an evaluation judge. Score how well an AI assistant's output satisfies a test case.

Respond with ONLY a JSON object in this exact shape:
{"score": <number 0-100>, "passed": <true|false>, "feedback": "<one or two sentences>"}`

// Score evaluates one output against a test case.
func (j *LLMJudge) Score(ctx context.Context, tc models.TestCase, output string) (models.TestResult, models.TokenUsage, error) {
	result := models.TestResult{
		TestName: tc.Name,
		Input:    tc.Input,
		Output:   output,
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Test case: %s\n\n", tc.Name)
	for k, v := range tc.Input {
		fmt.Fprintf(&sb, "Input %s: %s\n", k, v)
	}
	if tc.Expected != "" {
		fmt.Fprintf(&sb, "\nExpected output:\n%s\n", tc.Expected)
	}
	if tc.Criteria != "" {
		fmt.Fprintf(&sb, "\nEvaluation criteria:\n%s\n", tc.Criteria)
	}
	fmt.Fprintf(&sb, "\nActual output:\n%s\n", output)

	resp, err := j.client.sdk().Messages.New(ctx, anthropic.MessageNewParams{
		Model:     j.model,
		MaxTokens: 1024,
		System:    []anthropic.TextBlockParam{{Text: judgeSystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(sb.String())),
		},
	})
	if err != nil {
		return result, models.TokenUsage{}, fmt.Errorf("judge call: %w", err)
	}
	j.client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	usage := models.TokenUsage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}

	verdict, err := parseVerdict(textContent(resp))
	if err != nil {
		return result, usage, fmt.Errorf("judge verdict for %s: %w", tc.Name, err)
	}

	result.Score = verdict.Score
	result.Passed = verdict.Passed
	result.Feedback = verdict.Feedback
	return result, usage, nil
}

type verdict struct {
	Score    float64 `json:"score"`
	Passed   bool    `json:"passed"`
	Feedback string  `json:"feedback"`
}

// parseVerdict extracts the judge's JSON verdict from model output.
func parseVerdict(text string) (*verdict, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var v verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}
	if v.Score < 0 || v.Score > 100 {
		return nil, fmt.Errorf("verdict score %v out of range [0, 100]", v.Score)
	}
	return &v, nil
}
