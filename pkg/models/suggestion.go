package models

// SuggestionType identifies which prompt field a suggestion targets.
type SuggestionType string

const (
	// SuggestionSystemPrompt targets the system prompt text.
	SuggestionSystemPrompt SuggestionType = "system_prompt"
	// SuggestionUserPrompt targets the user prompt template.
	SuggestionUserPrompt SuggestionType = "user_prompt"
	// SuggestionParameters targets custom prompt parameters.
	SuggestionParameters SuggestionType = "parameters"
)

// Valid returns true if the type is a known value.
func (t SuggestionType) Valid() bool {
	switch t {
	case SuggestionSystemPrompt, SuggestionUserPrompt, SuggestionParameters:
		return true
	default:
		return false
	}
}

// SuggestionPriority ranks how impactful the improver expects an edit to be.
type SuggestionPriority string

const (
	PriorityHigh   SuggestionPriority = "high"
	PriorityMedium SuggestionPriority = "medium"
	PriorityLow    SuggestionPriority = "low"
)

// Valid returns true if the priority is a known value.
func (p SuggestionPriority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Suggestion is a proposed edit to a prompt field. Suggestions are
// ephemeral until applied; once recorded in a round they are never
// mutated again.
type Suggestion struct {
	// Type selects the prompt field the edit targets.
	Type SuggestionType `json:"type"`
	// Priority is the improver's ranking of expected impact.
	Priority SuggestionPriority `json:"priority"`
	// CurrentValue is the exact text to replace.
	CurrentValue string `json:"currentValue"`
	// SuggestedValue is the replacement text.
	SuggestedValue string `json:"suggestedValue"`
	// Reasoning explains why the improver proposed the edit.
	Reasoning string `json:"reasoning"`
	// ExpectedImprovement describes the anticipated effect.
	ExpectedImprovement string `json:"expectedImprovement"`
	// Approved is set by the reviewer (or the automatic driver).
	Approved bool `json:"approved,omitempty"`
	// Modified is set when the reviewer edited the suggested value.
	Modified bool `json:"modified,omitempty"`
}
