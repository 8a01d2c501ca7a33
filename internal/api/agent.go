package api

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/promptsmith/internal/cycle"
	"github.com/ShayCichocki/promptsmith/pkg/models"
)

const defaultMaxTokens = 4096

// PromptAgent executes test inputs against a fixed prompt. Each call is
// a single message exchange; the prompt under evaluation supplies both
// the system text and the user template.
type PromptAgent struct {
	client *Client
	model  anthropic.Model
	prompt models.AgentPrompt
}

// Execute renders the prompt's user template with the given input and
// returns the model's text output.
func (a *PromptAgent) Execute(ctx context.Context, input map[string]string) (string, models.TokenUsage, error) {
	rendered := a.prompt.Render(input)

	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(rendered)),
		},
	}
	if a.prompt.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: a.prompt.System}}
	}

	resp, err := a.client.sdk().Messages.New(ctx, params)
	if err != nil {
		return "", models.TokenUsage{}, fmt.Errorf("agent call: %w", err)
	}

	usage := models.TokenUsage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
	a.client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	return textContent(resp), usage, nil
}

// textContent concatenates the text blocks of a response.
func textContent(resp *anthropic.Message) string {
	var out string
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			out += variant.Text
		}
	}
	return out
}

// AgentBuilder builds PromptAgents against one client and model.
type AgentBuilder struct {
	client *Client
	model  anthropic.Model
}

// NewAgentBuilder creates an agent factory for the given model.
func NewAgentBuilder(client *Client, model anthropic.Model) *AgentBuilder {
	return &AgentBuilder{client: client, model: client.ResolveModel(model)}
}

// Build returns an agent bound to the given prompt.
func (b *AgentBuilder) Build(prompt models.AgentPrompt) (cycle.Agent, error) {
	if err := models.ValidateTemplate(prompt.UserTemplate); err != nil {
		return nil, err
	}
	return &PromptAgent{client: b.client, model: b.model, prompt: prompt}, nil
}
