package cycle

import "errors"

var (
	// ErrInvalidConfig indicates a bad cycle configuration or decision
	// argument, such as a missing collaborator or an out-of-range
	// rollback target.
	ErrInvalidConfig = errors.New("invalid cycle configuration")
	// ErrSuggestionApply indicates a suggestion that cannot be applied,
	// such as a user_prompt edit against a template-less prompt or a
	// version bump over an invalid semver string.
	ErrSuggestionApply = errors.New("suggestion apply failed")
	// ErrNotAwaitingDecision indicates Advance was called outside the
	// AWAITING_DECISION state.
	ErrNotAwaitingDecision = errors.New("cycle is not awaiting a decision")
	// ErrNotRunning indicates the cycle has already completed or failed
	// and cannot execute further rounds.
	ErrNotRunning = errors.New("cycle is not running")
)
