package models

import "time"

// TokenUsage is aggregated token usage for one engine component.
type TokenUsage struct {
	// InputTokens is the total input tokens used.
	InputTokens int64 `json:"inputTokens"`
	// OutputTokens is the total output tokens used.
	OutputTokens int64 `json:"outputTokens"`
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}

// Add accumulates another usage into this one.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// RoundCost is the dollar cost breakdown for one round.
type RoundCost struct {
	// Agent is the cost of executing the agent against the test suite.
	Agent float64 `json:"agent"`
	// Judge is the cost of scoring test outputs.
	Judge float64 `json:"judge"`
	// Improver is the cost of generating suggestions.
	Improver float64 `json:"improver"`
	// Total is the sum of the component costs.
	Total float64 `json:"total"`
}

// TestResult is the judged outcome of a single test case.
type TestResult struct {
	// TestName identifies the test case.
	TestName string `json:"testName"`
	// Input is the rendered input values for the case.
	Input map[string]string `json:"input,omitempty"`
	// Output is the agent's raw output.
	Output string `json:"output"`
	// Score is the judge score in [0,100].
	Score float64 `json:"score"`
	// Passed is the judge's pass/fail verdict.
	Passed bool `json:"passed"`
	// Feedback is the judge's explanation, if any.
	Feedback string `json:"feedback,omitempty"`
}

// EvalReport is the result of running the full test suite once.
type EvalReport struct {
	// AvgScore is the mean judge score across all cases.
	AvgScore float64 `json:"avgScore"`
	// Passed is the number of passing cases.
	Passed int `json:"passed"`
	// Failed is the number of failing cases.
	Failed int `json:"failed"`
	// TotalTests is the number of cases run.
	TotalTests int `json:"totalTests"`
	// Results holds per-test verdicts.
	Results []TestResult `json:"results,omitempty"`
	// AgentUsage is token usage incurred executing the agent.
	AgentUsage TokenUsage `json:"agentUsage,omitempty"`
	// JudgeUsage is token usage incurred scoring outputs.
	JudgeUsage TokenUsage `json:"judgeUsage,omitempty"`
}

// SerializedPrompt is the persistable form of an AgentPrompt. Extra
// fields live under CustomFields; the core fields always win over
// same-named entries in that bag.
type SerializedPrompt struct {
	ID           string         `json:"id"`
	Version      string         `json:"version"`
	System       string         `json:"system"`
	UserTemplate string         `json:"userTemplate"`
	CustomFields map[string]any `json:"customFields,omitempty"`
}

// RoundResult is the immutable record of one completed round.
type RoundResult struct {
	// Round is the 1-based round number. Round numbers keep increasing
	// across rollbacks, so they form a monotonic audit trail.
	Round int `json:"round"`
	// CompletedAt is when the round finished.
	CompletedAt time.Time `json:"completedAt"`
	// AvgScore is the mean judge score for the round.
	AvgScore float64 `json:"avgScore"`
	// Passed is the number of passing test cases.
	Passed int `json:"passed"`
	// Failed is the number of failing test cases.
	Failed int `json:"failed"`
	// TotalTests is the number of test cases run.
	TotalTests int `json:"totalTests"`
	// SuggestionsGenerated counts suggestions the improver produced.
	SuggestionsGenerated int `json:"suggestionsGenerated"`
	// SuggestionsApproved counts suggestions that were applied.
	SuggestionsApproved int `json:"suggestionsApproved"`
	// PromptSnapshot is the prompt before any suggestion was applied.
	// Rollback restores this snapshot.
	PromptSnapshot SerializedPrompt `json:"promptSnapshot"`
	// PromptVersionAfter is the prompt version after any bump.
	PromptVersionAfter string `json:"promptVersionAfter"`
	// Cost is the dollar cost breakdown for the round.
	Cost RoundCost `json:"cost"`
	// ScoreDelta is the change from the previous round's score.
	// Nil only for the first round.
	ScoreDelta *float64 `json:"scoreDelta"`
}

// CycleContext is the read-only view passed to termination checks.
type CycleContext struct {
	// CurrentRound is the number of the most recently executed round.
	CurrentRound int
	// LatestScore is the most recent round's average score.
	LatestScore float64
	// PreviousScores holds the average score of every round in order,
	// including the most recent one.
	PreviousScores []float64
	// TotalCost is the accumulated dollar cost across all rounds.
	TotalCost float64
	// History holds the completed round records in order.
	History []RoundResult
}
