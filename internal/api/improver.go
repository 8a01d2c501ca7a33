package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/promptsmith/pkg/models"
)

// LLMImprover generates prompt edit suggestions from an evaluation
// report.
type LLMImprover struct {
	client *Client
	model  anthropic.Model
}

// NewLLMImprover creates an improver backed by the given model.
func NewLLMImprover(client *Client, model anthropic.Model) *LLMImprover {
	return &LLMImprover{client: client, model: client.ResolveModel(model)}
}

const improverSystemPrompt = `You are a prompt engineer. Given a prompt and its evaluation results, propose concrete edits that would improve the failing and low-scoring cases.

Each suggestion must quote an exact substring of the current prompt as currentValue, because edits are applied by literal replacement.

Respond with ONLY a JSON array in this exact shape:
[{"type": "system_prompt"|"user_prompt"|"parameters", "priority": "high"|"medium"|"low", "currentValue": "<exact substring>", "suggestedValue": "<replacement>", "reasoning": "<why>", "expectedImprovement": "<what should get better>"}]

An empty array is a valid answer when the prompt has no evident weaknesses.`

// Improve asks the model for edit suggestions.
func (i *LLMImprover) Improve(ctx context.Context, prompt models.AgentPrompt, report *models.EvalReport) ([]models.Suggestion, models.TokenUsage, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Current system prompt:\n%s\n\n", prompt.System)
	fmt.Fprintf(&sb, "Current user template:\n%s\n\n", prompt.UserTemplate)
	fmt.Fprintf(&sb, "Average score: %.1f (%d/%d passing)\n\n", report.AvgScore, report.Passed, report.TotalTests)

	for _, r := range report.Results {
		if r.Passed && r.Score >= report.AvgScore {
			continue
		}
		fmt.Fprintf(&sb, "Weak case %s (score %.1f, passed=%t):\n", r.TestName, r.Score, r.Passed)
		if r.Feedback != "" {
			fmt.Fprintf(&sb, "Judge feedback: %s\n", r.Feedback)
		}
		fmt.Fprintf(&sb, "Output:\n%s\n\n", r.Output)
	}

	resp, err := i.client.sdk().Messages.New(ctx, anthropic.MessageNewParams{
		Model:     i.model,
		MaxTokens: defaultMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: improverSystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(sb.String())),
		},
	})
	if err != nil {
		return nil, models.TokenUsage{}, fmt.Errorf("improver call: %w", err)
	}
	i.client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	usage := models.TokenUsage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}

	suggestions, err := parseSuggestions(textContent(resp))
	if err != nil {
		return nil, usage, err
	}
	return suggestions, usage, nil
}

// parseSuggestions extracts and validates the improver's JSON output.
// Suggestions with unknown types or priorities are dropped rather than
// failing the round.
func parseSuggestions(text string) ([]models.Suggestion, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var all []models.Suggestion
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}

	var valid []models.Suggestion
	for _, s := range all {
		if !s.Type.Valid() || s.CurrentValue == "" {
			continue
		}
		if !s.Priority.Valid() {
			s.Priority = models.PriorityMedium
		}
		valid = append(valid, s)
	}
	return valid, nil
}
