package condition

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/promptsmith/pkg/models"
)

// Result is the outcome of evaluating conditions against a cycle context.
type Result struct {
	// Terminate is true when the cycle should stop.
	Terminate bool
	// Reason explains the outcome in human-readable form.
	Reason string
	// Condition points at the matched condition when Terminate is true.
	Condition *Condition
}

// CheckCondition evaluates a single condition against the context.
// Dispatch is an exhaustive match over the closed set of kinds.
func CheckCondition(ctx context.Context, cond Condition, cc models.CycleContext) Result {
	switch cond.Kind {
	case KindTargetScore:
		if cc.LatestScore >= cond.Threshold {
			return Result{
				Terminate: true,
				Reason:    fmt.Sprintf("Target score %.1f reached (current: %.1f)", cond.Threshold, cc.LatestScore),
				Condition: &cond,
			}
		}
		return Result{Reason: fmt.Sprintf("score %.1f below target %.1f", cc.LatestScore, cond.Threshold)}

	case KindMaxRounds:
		if cc.CurrentRound >= cond.Rounds {
			return Result{
				Terminate: true,
				Reason:    fmt.Sprintf("Maximum rounds (%d) reached", cond.Rounds),
				Condition: &cond,
			}
		}
		return Result{Reason: fmt.Sprintf("round %d below maximum %d", cc.CurrentRound, cond.Rounds)}

	case KindMaxCost:
		if cc.TotalCost >= cond.MaxCost {
			return Result{
				Terminate: true,
				Reason:    fmt.Sprintf("Maximum cost $%.4f reached (current: $%.4f)", cond.MaxCost, cc.TotalCost),
				Condition: &cond,
			}
		}
		return Result{Reason: fmt.Sprintf("cost $%.4f below maximum $%.4f", cc.TotalCost, cond.MaxCost)}

	case KindNoImprovement:
		streak := nonImprovingStreak(cc.History, cond.MinDelta)
		if streak >= cond.Consecutive {
			return Result{
				Terminate: true,
				Reason:    fmt.Sprintf("No improvement for %d consecutive rounds (min delta %.2f)", streak, cond.MinDelta),
				Condition: &cond,
			}
		}
		return Result{Reason: fmt.Sprintf("non-improving streak %d below %d", streak, cond.Consecutive)}

	case KindCustom:
		if cond.Check == nil {
			return Result{Reason: "custom condition has no check function"}
		}
		met, err := cond.Check(ctx, cc)
		if err != nil {
			// A failing user predicate must never halt the cycle.
			return Result{Reason: fmt.Sprintf("custom condition %q failed: %v (treated as not met)", cond.Description, err)}
		}
		if met {
			return Result{
				Terminate: true,
				Reason:    fmt.Sprintf("Custom condition met: %s", cond.Description),
				Condition: &cond,
			}
		}
		return Result{Reason: fmt.Sprintf("custom condition %q not met", cond.Description)}

	default:
		return Result{Reason: fmt.Sprintf("unknown condition kind %q", cond.Kind)}
	}
}

// nonImprovingStreak counts rounds with scoreDelta <= minDelta, scanning
// from the most recent round backward. The scan stops at the first round
// with a nil delta (the first round ever) or a delta above minDelta.
func nonImprovingStreak(history []models.RoundResult, minDelta float64) int {
	streak := 0
	for i := len(history) - 1; i >= 0; i-- {
		delta := history[i].ScoreDelta
		if delta == nil || *delta > minDelta {
			break
		}
		streak++
	}
	return streak
}

// CheckTermination evaluates an ordered list of conditions with OR
// semantics and returns the first match. An empty list is distinguished
// from "no conditions met".
func CheckTermination(ctx context.Context, conds []Condition, cc models.CycleContext) Result {
	if len(conds) == 0 {
		return Result{Reason: "no termination conditions specified"}
	}
	for _, cond := range conds {
		if res := CheckCondition(ctx, cond, cc); res.Terminate {
			return res
		}
	}
	return Result{Reason: "no termination conditions met"}
}
