package cycle

import (
	"context"
	"fmt"
)

// RunAuto drives the cycle without human review: every pending
// suggestion is approved and the loop continues until a termination
// condition matches, the stop checker trips, or the context is
// cancelled. At least one termination condition is required so an
// unattended run cannot loop forever.
func RunAuto(ctx context.Context, c *Cycle) (*Result, error) {
	if len(c.cfg.TerminateWhen) == 0 {
		return nil, fmt.Errorf("%w: automatic mode requires at least one termination condition", ErrInvalidConfig)
	}

	yield, err := c.Start(ctx)
	if err != nil {
		return nil, err
	}

	for {
		decision := Decision{Type: DecisionContinue, ApprovedSuggestions: yield.PendingSuggestions}
		if yield.Termination.Terminate || shouldStop(ctx, c.cfg.Stop) {
			decision = Decision{Type: DecisionStop}
		}

		next, result, err := c.Advance(ctx, decision)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
		yield = next
	}
}

func shouldStop(ctx context.Context, s StopChecker) bool {
	if ctx.Err() != nil {
		return true
	}
	return s != nil && s.ShouldStop()
}
