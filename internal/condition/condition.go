// Package condition implements the termination condition algebra for
// improvement cycles: leaf predicates over cycle context plus and/or/not
// combinators.
package condition

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ShayCichocki/promptsmith/pkg/models"
)

// Kind identifies a condition variant. The set is closed; CheckCondition
// dispatches over it exhaustively.
type Kind string

const (
	// KindTargetScore terminates when the latest score reaches a threshold.
	KindTargetScore Kind = "target_score"
	// KindMaxRounds terminates when the round count reaches a limit.
	KindMaxRounds Kind = "max_rounds"
	// KindNoImprovement terminates after N consecutive non-improving rounds.
	KindNoImprovement Kind = "no_improvement"
	// KindMaxCost terminates when accumulated cost reaches a limit.
	KindMaxCost Kind = "max_cost"
	// KindCustom wraps an arbitrary predicate. Combinators also produce
	// custom conditions.
	KindCustom Kind = "custom"
)

// CheckFunc is a user-supplied predicate over the cycle context.
type CheckFunc func(ctx context.Context, cc models.CycleContext) (bool, error)

// Condition is a termination condition. Exactly the fields relevant to
// its Kind are set.
type Condition struct {
	Kind Kind

	// Threshold is the target score for target_score conditions.
	Threshold float64
	// Rounds is the round limit for max_rounds conditions.
	Rounds int
	// MaxCost is the dollar limit for max_cost conditions.
	MaxCost float64
	// Consecutive is the streak length for no_improvement conditions.
	Consecutive int
	// MinDelta is the minimum score delta that counts as improvement.
	MinDelta float64
	// Check is the predicate for custom conditions.
	Check CheckFunc
	// Description names a custom condition in results.
	Description string
}

// String returns a short human-readable description of the condition.
func (c Condition) String() string {
	switch c.Kind {
	case KindTargetScore:
		return fmt.Sprintf("target score %.1f", c.Threshold)
	case KindMaxRounds:
		return fmt.Sprintf("maximum %d rounds", c.Rounds)
	case KindNoImprovement:
		return fmt.Sprintf("no improvement for %d rounds", c.Consecutive)
	case KindMaxCost:
		return fmt.Sprintf("maximum cost $%.4f", c.MaxCost)
	case KindCustom:
		if c.Description != "" {
			return c.Description
		}
		return "custom condition"
	default:
		return string(c.Kind)
	}
}

// TargetScore builds a condition that terminates once the latest score
// is at or above threshold. The threshold must lie in [0,100].
func TargetScore(threshold float64) (Condition, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 100 {
		return Condition{}, fmt.Errorf("%w: target score %v out of range [0,100]", ErrInvalidCondition, threshold)
	}
	return Condition{Kind: KindTargetScore, Threshold: threshold}, nil
}

// MaxRounds builds a condition that terminates once the current round
// number reaches count. The count must be a positive integer.
func MaxRounds(count int) (Condition, error) {
	if count < 1 {
		return Condition{}, fmt.Errorf("%w: max rounds %d must be >= 1", ErrInvalidCondition, count)
	}
	return Condition{Kind: KindMaxRounds, Rounds: count}, nil
}

// MaxCost builds a condition that terminates once total cost reaches
// maxUSD. The limit must be positive.
func MaxCost(maxUSD float64) (Condition, error) {
	if math.IsNaN(maxUSD) || maxUSD <= 0 {
		return Condition{}, fmt.Errorf("%w: max cost %v must be > 0", ErrInvalidCondition, maxUSD)
	}
	return Condition{Kind: KindMaxCost, MaxCost: maxUSD}, nil
}

// NoImprovement builds a condition that terminates after consecutive
// rounds whose score delta never exceeded minDelta. consecutive must be
// at least 1 and minDelta non-negative.
func NoImprovement(consecutive int, minDelta float64) (Condition, error) {
	if consecutive < 1 {
		return Condition{}, fmt.Errorf("%w: consecutive rounds %d must be >= 1", ErrInvalidCondition, consecutive)
	}
	if math.IsNaN(minDelta) || minDelta < 0 {
		return Condition{}, fmt.Errorf("%w: min delta %v must be >= 0", ErrInvalidCondition, minDelta)
	}
	return Condition{Kind: KindNoImprovement, Consecutive: consecutive, MinDelta: minDelta}, nil
}

// Custom builds a condition from an arbitrary predicate. A predicate
// error is treated as "not met" so a broken user check can never halt
// the cycle.
func Custom(check CheckFunc, description string) (Condition, error) {
	if check == nil {
		return Condition{}, fmt.Errorf("%w: custom condition requires a check function", ErrInvalidCondition)
	}
	if description == "" {
		description = "custom condition"
	}
	return Condition{Kind: KindCustom, Check: check, Description: description}, nil
}

// And combines conditions so that all must terminate. It short-circuits
// on the first non-terminating sub-condition. An empty list never
// terminates.
func And(conds ...Condition) Condition {
	inner := append([]Condition(nil), conds...)
	check := func(ctx context.Context, cc models.CycleContext) (bool, error) {
		if len(inner) == 0 {
			return false, nil
		}
		for _, c := range inner {
			if !CheckCondition(ctx, c, cc).Terminate {
				return false, nil
			}
		}
		return true, nil
	}
	return Condition{Kind: KindCustom, Check: check, Description: "all of (" + describeAll(inner) + ")"}
}

// Or combines conditions so that any may terminate. It short-circuits
// on the first terminating sub-condition. An empty list never
// terminates.
func Or(conds ...Condition) Condition {
	inner := append([]Condition(nil), conds...)
	check := func(ctx context.Context, cc models.CycleContext) (bool, error) {
		for _, c := range inner {
			if CheckCondition(ctx, c, cc).Terminate {
				return true, nil
			}
		}
		return false, nil
	}
	return Condition{Kind: KindCustom, Check: check, Description: "any of (" + describeAll(inner) + ")"}
}

// Not inverts a condition.
func Not(cond Condition) Condition {
	check := func(ctx context.Context, cc models.CycleContext) (bool, error) {
		return !CheckCondition(ctx, cond, cc).Terminate, nil
	}
	return Condition{Kind: KindCustom, Check: check, Description: "not (" + cond.String() + ")"}
}

func describeAll(conds []Condition) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
