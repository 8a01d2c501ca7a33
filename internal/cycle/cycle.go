package cycle

import (
	"context"
	"fmt"
	"time"

	"github.com/ShayCichocki/promptsmith/internal/condition"
	"github.com/ShayCichocki/promptsmith/internal/cost"
	"github.com/ShayCichocki/promptsmith/internal/session"
	"github.com/ShayCichocki/promptsmith/pkg/models"
)

// State is the cycle state machine's observable state.
type State string

const (
	// StateRunning means the cycle may execute another round.
	StateRunning State = "running"
	// StateAwaitingDecision means a round finished and the cycle is
	// suspended until a decision arrives. This is the only suspension
	// point.
	StateAwaitingDecision State = "awaiting_decision"
	// StateCompleted means the cycle finished and the session is closed.
	StateCompleted State = "completed"
	// StateErrored means a round failed; the cycle cannot be advanced
	// further, though its session file can still be resumed later.
	StateErrored State = "error"
)

// DecisionType selects what to do with a suspended cycle.
type DecisionType string

const (
	// DecisionContinue applies approved suggestions and runs the next round.
	DecisionContinue DecisionType = "continue"
	// DecisionStop completes the session. A zero-valued Decision stops.
	DecisionStop DecisionType = "stop"
	// DecisionRollback resets the working prompt to a prior round's
	// pre-change snapshot.
	DecisionRollback DecisionType = "rollback"
)

// Decision is the caller's answer to a RoundYield.
type Decision struct {
	Type DecisionType
	// ApprovedSuggestions are applied on continue. Unlisted suggestions
	// are discarded.
	ApprovedSuggestions []models.Suggestion
	// RollbackToRound is the 1-based target round for rollback.
	RollbackToRound int
}

// RoundYield is handed to the caller at the suspension point after each
// round.
type RoundYield struct {
	// Result is the round record, not yet persisted.
	Result models.RoundResult
	// PendingSuggestions are the improver's proposals, all unapproved.
	PendingSuggestions []models.Suggestion
	// Termination is the outcome of checking the configured conditions.
	Termination condition.Result
	// Context is the read-only cycle context the check evaluated.
	Context models.CycleContext
}

// Result is the final aggregate of a completed cycle.
type Result struct {
	// SessionID identifies the persisted session.
	SessionID string
	// TotalRounds is the number of recorded rounds.
	TotalRounds int
	// FinalScore is the last round's average score.
	FinalScore float64
	// FirstScore is the first round's average score.
	FirstScore float64
	// TotalCost is the accumulated dollar cost.
	TotalCost float64
	// TerminationReason explains why the cycle stopped.
	TerminationReason string
	// FinalPrompt is the working prompt at completion.
	FinalPrompt models.AgentPrompt
}

// Config wires a cycle's collaborators and policy.
type Config struct {
	// Suite is the test cases evaluated each round.
	Suite []models.TestCase
	// Factory, Runner and Improver are the injected collaborators.
	Factory  AgentFactory
	Runner   SuiteRunner
	Improver Improver
	// Pricing computes round costs; nil disables cost tracking.
	Pricing *cost.Pricing
	// TerminateWhen is checked after every round with OR semantics.
	TerminateWhen []condition.Condition
	// VersionBump selects the semver component bumped when a round
	// applies at least one suggestion. Empty disables bumping.
	VersionBump models.BumpKind
	// Session owns the persisted history. Use session.NewSession for a
	// fresh run or session.ResumeSession to continue one.
	Session *session.Session
	// Stop is consulted by the automatic driver between rounds.
	Stop StopChecker
}

// Cycle is the resumable improvement state machine. A single caller
// drives it at a time; there is no internal parallelism across rounds.
type Cycle struct {
	cfg     Config
	exec    *RoundExecutor
	sess    *session.Session
	state   State
	working models.AgentPrompt
	// scores holds completed rounds' average scores. Rollback truncates
	// it; the persisted round list is never truncated.
	scores  []float64
	pending *pendingRound
}

type pendingRound struct {
	result      models.RoundResult
	suggestions []models.Suggestion
	termination condition.Result
	context     models.CycleContext
}

// New validates the configuration and prepares a cycle in the RUNNING
// state. The working prompt and prior scores come from the session, so
// resumed sessions pick up where they left off.
func New(cfg Config) (*Cycle, error) {
	if cfg.Session == nil {
		return nil, fmt.Errorf("%w: missing session", ErrInvalidConfig)
	}
	if len(cfg.Suite) == 0 {
		return nil, fmt.Errorf("%w: empty test suite", ErrInvalidConfig)
	}
	if cfg.VersionBump != "" && !cfg.VersionBump.Valid() {
		return nil, fmt.Errorf("%w: unknown version bump kind %q", ErrInvalidConfig, cfg.VersionBump)
	}

	exec, err := NewRoundExecutor(cfg.Factory, cfg.Runner, cfg.Improver, cfg.Pricing)
	if err != nil {
		return nil, err
	}

	working, err := session.DeserializePrompt(cfg.Session.CurrentPrompt())
	if err != nil {
		return nil, err
	}

	scores := make([]float64, 0, cfg.Session.Rounds())
	for _, r := range cfg.Session.History().Rounds {
		scores = append(scores, r.AvgScore)
	}

	return &Cycle{
		cfg:     cfg,
		exec:    exec,
		sess:    cfg.Session,
		state:   StateRunning,
		working: working,
		scores:  scores,
	}, nil
}

// State returns the machine's current state.
func (c *Cycle) State() State {
	return c.state
}

// Start executes the first round and suspends awaiting a decision.
func (c *Cycle) Start(ctx context.Context) (*RoundYield, error) {
	return c.runRound(ctx)
}

// Advance resumes a suspended cycle with a decision. Exactly one of the
// returned yield and result is non-nil on success: a yield means the
// cycle suspended again after another round, a result means it
// completed.
func (c *Cycle) Advance(ctx context.Context, d Decision) (*RoundYield, *Result, error) {
	if c.state != StateAwaitingDecision || c.pending == nil {
		return nil, nil, fmt.Errorf("%w: state is %s", ErrNotAwaitingDecision, c.state)
	}

	switch d.Type {
	case DecisionStop, "":
		res, err := c.finish()
		return nil, res, err

	case DecisionContinue:
		if err := c.applyAndPersist(d.ApprovedSuggestions); err != nil {
			return nil, nil, err
		}
		yield, err := c.runRound(ctx)
		return yield, nil, err

	case DecisionRollback:
		if err := c.rollback(d.RollbackToRound); err != nil {
			return nil, nil, err
		}
		yield, err := c.runRound(ctx)
		return yield, nil, err

	default:
		return nil, nil, fmt.Errorf("%w: unknown decision type %q", ErrInvalidConfig, d.Type)
	}
}

// runRound executes one round, builds its record and termination check,
// and suspends.
func (c *Cycle) runRound(ctx context.Context) (*RoundYield, error) {
	if c.state != StateRunning {
		return nil, fmt.Errorf("%w: state is %s", ErrNotRunning, c.state)
	}

	outcome, err := c.exec.ExecuteRound(ctx, c.working, c.cfg.Suite)
	if err != nil {
		return nil, c.fail(err)
	}

	snapshot, err := session.SerializePrompt(c.working)
	if err != nil {
		return nil, c.fail(err)
	}

	round := c.sess.Rounds() + 1
	var delta *float64
	if len(c.scores) > 0 {
		d := outcome.Report.AvgScore - c.scores[len(c.scores)-1]
		delta = &d
	}

	result := models.RoundResult{
		Round:                round,
		CompletedAt:          time.Now().UTC(),
		AvgScore:             outcome.Report.AvgScore,
		Passed:               outcome.Report.Passed,
		Failed:               outcome.Report.Failed,
		TotalTests:           outcome.Report.TotalTests,
		SuggestionsGenerated: len(outcome.Suggestions),
		PromptSnapshot:       snapshot,
		PromptVersionAfter:   c.working.Version,
		Cost:                 outcome.Cost,
		ScoreDelta:           delta,
	}

	// The termination context sees the just-finished round: cost and
	// score limits are checked only after a round completes.
	cc := models.CycleContext{
		CurrentRound:   round,
		LatestScore:    outcome.Report.AvgScore,
		PreviousScores: append(append([]float64{}, c.scores...), outcome.Report.AvgScore),
		TotalCost:      c.sess.TotalCost() + outcome.Cost.Total,
		History:        append(append([]models.RoundResult{}, c.sess.History().Rounds...), result),
	}

	c.pending = &pendingRound{
		result:      result,
		suggestions: outcome.Suggestions,
		termination: condition.CheckTermination(ctx, c.cfg.TerminateWhen, cc),
		context:     cc,
	}
	c.state = StateAwaitingDecision

	return &RoundYield{
		Result:             result,
		PendingSuggestions: outcome.Suggestions,
		Termination:        c.pending.termination,
		Context:            cc,
	}, nil
}

// finish persists the pending round, completes the session and returns
// the final aggregate.
func (c *Cycle) finish() (*Result, error) {
	pending := c.pending

	if err := c.sess.AddRound(pending.result, pending.result.PromptSnapshot); err != nil {
		return nil, c.fail(err)
	}
	c.scores = append(c.scores, pending.result.AvgScore)

	reason := "User requested stop"
	if pending.termination.Terminate {
		reason = pending.termination.Reason
	}
	if err := c.sess.Complete(reason); err != nil {
		return nil, c.fail(err)
	}
	if err := c.flushIfConfigured(); err != nil {
		return nil, err
	}

	c.pending = nil
	c.state = StateCompleted

	return &Result{
		SessionID:         c.sess.History().SessionID,
		TotalRounds:       c.sess.Rounds(),
		FinalScore:        c.scores[len(c.scores)-1],
		FirstScore:        c.scores[0],
		TotalCost:         c.sess.TotalCost(),
		TerminationReason: reason,
		FinalPrompt:       c.working,
	}, nil
}

// applyAndPersist applies approved suggestions to the working prompt,
// bumps the version when anything applied, and persists the pending
// round with the updated snapshot.
func (c *Cycle) applyAndPersist(approved []models.Suggestion) error {
	pending := c.pending
	working := c.working.Clone()

	outcome, err := applySuggestions(&working, approved)
	if err != nil {
		return c.fail(err)
	}

	if len(outcome.Applied) > 0 && c.cfg.VersionBump != "" {
		bumped, err := models.BumpVersion(working.Version, c.cfg.VersionBump)
		if err != nil {
			return c.fail(fmt.Errorf("%w: version bump: %v", ErrSuggestionApply, err))
		}
		working.Version = bumped
	}

	pending.result.SuggestionsApproved = len(outcome.Applied)
	pending.result.PromptVersionAfter = working.Version

	updated, err := session.SerializePrompt(working)
	if err != nil {
		return c.fail(err)
	}
	if err := c.sess.AddRound(pending.result, updated); err != nil {
		return c.fail(err)
	}

	c.working = working
	c.scores = append(c.scores, pending.result.AvgScore)
	c.pending = nil
	c.state = StateRunning
	return nil
}

// rollback persists the pending round for the audit trail, then resets
// the working prompt to the target round's pre-change snapshot and
// truncates the score history. The round counter keeps incrementing, so
// round numbers stay monotonic across rollbacks.
func (c *Cycle) rollback(target int) error {
	completed := c.sess.Rounds()
	if target < 1 || target > completed {
		return fmt.Errorf("%w: rollback round %d not found (have %d rounds)", ErrInvalidConfig, target, completed)
	}

	pending := c.pending
	if err := c.sess.AddRound(pending.result, pending.result.PromptSnapshot); err != nil {
		return c.fail(err)
	}

	snapshot := c.sess.History().Rounds[target-1].PromptSnapshot
	restored, err := session.DeserializePrompt(snapshot)
	if err != nil {
		return c.fail(fmt.Errorf("restore round %d snapshot: %w", target, err))
	}

	c.working = restored
	c.scores = c.scores[:target-1]
	c.pending = nil
	c.state = StateRunning
	return nil
}

// fail closes the session with an error reason before surfacing the
// error, so every terminated run has a closing record. The cycle cannot
// be advanced afterward.
func (c *Cycle) fail(err error) error {
	if !c.sess.Completed() {
		if cerr := c.sess.Complete(fmt.Sprintf("Error: %v", err)); cerr == nil {
			_ = c.flushIfConfigured()
		}
	}
	c.pending = nil
	c.state = StateErrored
	return err
}

func (c *Cycle) flushIfConfigured() error {
	if c.sess.Path() == "" {
		return nil
	}
	return c.sess.Flush()
}
