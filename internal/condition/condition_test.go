package condition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ShayCichocki/promptsmith/pkg/models"
)

func deltaPtr(d float64) *float64 { return &d }

// historyWithDeltas builds round history where the first round has a nil
// delta and subsequent rounds carry the given deltas.
func historyWithDeltas(deltas ...*float64) []models.RoundResult {
	history := make([]models.RoundResult, len(deltas))
	for i, d := range deltas {
		history[i] = models.RoundResult{Round: i + 1, ScoreDelta: d}
	}
	return history
}

func TestFactoryValidation(t *testing.T) {
	tests := []struct {
		name    string
		build   func() (Condition, error)
		wantErr bool
	}{
		{name: "target score in range", build: func() (Condition, error) { return TargetScore(85) }},
		{name: "target score zero", build: func() (Condition, error) { return TargetScore(0) }},
		{name: "target score hundred", build: func() (Condition, error) { return TargetScore(100) }},
		{name: "target score negative", build: func() (Condition, error) { return TargetScore(-1) }, wantErr: true},
		{name: "target score above hundred", build: func() (Condition, error) { return TargetScore(100.5) }, wantErr: true},
		{name: "max rounds one", build: func() (Condition, error) { return MaxRounds(1) }},
		{name: "max rounds zero", build: func() (Condition, error) { return MaxRounds(0) }, wantErr: true},
		{name: "max rounds negative", build: func() (Condition, error) { return MaxRounds(-3) }, wantErr: true},
		{name: "max cost positive", build: func() (Condition, error) { return MaxCost(0.001) }},
		{name: "max cost zero", build: func() (Condition, error) { return MaxCost(0) }, wantErr: true},
		{name: "no improvement valid", build: func() (Condition, error) { return NoImprovement(2, 0) }},
		{name: "no improvement zero rounds", build: func() (Condition, error) { return NoImprovement(0, 0) }, wantErr: true},
		{name: "no improvement negative delta", build: func() (Condition, error) { return NoImprovement(1, -0.5) }, wantErr: true},
		{name: "custom nil check", build: func() (Condition, error) { return Custom(nil, "x") }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			if tt.wantErr && !errors.Is(err, ErrInvalidCondition) {
				t.Errorf("error = %v, want ErrInvalidCondition", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCheckCondition_TargetScore(t *testing.T) {
	cond, _ := TargetScore(80)
	ctx := context.Background()

	res := CheckCondition(ctx, cond, models.CycleContext{LatestScore: 85})
	if !res.Terminate {
		t.Error("score 85 should meet target 80")
	}
	if !strings.Contains(res.Reason, "Target score") {
		t.Errorf("reason %q should mention target score", res.Reason)
	}

	res = CheckCondition(ctx, cond, models.CycleContext{LatestScore: 79.9})
	if res.Terminate {
		t.Error("score 79.9 should not meet target 80")
	}
}

func TestCheckCondition_MaxRounds(t *testing.T) {
	cond, _ := MaxRounds(3)
	ctx := context.Background()

	if res := CheckCondition(ctx, cond, models.CycleContext{CurrentRound: 3}); !res.Terminate {
		t.Error("round 3 should meet max rounds 3")
	}
	if res := CheckCondition(ctx, cond, models.CycleContext{CurrentRound: 2}); res.Terminate {
		t.Error("round 2 should not meet max rounds 3")
	}
	res := CheckCondition(ctx, cond, models.CycleContext{CurrentRound: 5})
	if !strings.Contains(res.Reason, "Maximum rounds") {
		t.Errorf("reason %q should mention maximum rounds", res.Reason)
	}
}

func TestCheckCondition_MaxCost(t *testing.T) {
	cond, _ := MaxCost(1.50)
	ctx := context.Background()

	if res := CheckCondition(ctx, cond, models.CycleContext{TotalCost: 1.50}); !res.Terminate {
		t.Error("cost at limit should terminate")
	}
	if res := CheckCondition(ctx, cond, models.CycleContext{TotalCost: 1.49}); res.Terminate {
		t.Error("cost below limit should not terminate")
	}
}

func TestCheckCondition_NoImprovement(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		consecutive int
		minDelta    float64
		history     []models.RoundResult
		want        bool
	}{
		{
			name:        "empty history",
			consecutive: 1,
			history:     nil,
			want:        false,
		},
		{
			name:        "first round only has nil delta",
			consecutive: 1,
			history:     historyWithDeltas(nil),
			want:        false,
		},
		{
			name:        "two flat rounds meet streak of two",
			consecutive: 2,
			history:     historyWithDeltas(nil, deltaPtr(0), deltaPtr(-1)),
			want:        true,
		},
		{
			name:        "improving round resets the streak",
			consecutive: 2,
			history:     historyWithDeltas(nil, deltaPtr(0), deltaPtr(5), deltaPtr(0)),
			want:        false,
		},
		{
			name:        "streak counts only the tail",
			consecutive: 3,
			history:     historyWithDeltas(nil, deltaPtr(0), deltaPtr(0), deltaPtr(5), deltaPtr(0), deltaPtr(-2)),
			want:        false,
		},
		{
			name:        "min delta treats small gains as no improvement",
			consecutive: 2,
			minDelta:    1.0,
			history:     historyWithDeltas(nil, deltaPtr(0.5), deltaPtr(0.9)),
			want:        true,
		},
		{
			name:        "gain above min delta breaks streak",
			consecutive: 2,
			minDelta:    1.0,
			history:     historyWithDeltas(nil, deltaPtr(0.5), deltaPtr(1.5), deltaPtr(0.2)),
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := NoImprovement(tt.consecutive, tt.minDelta)
			if err != nil {
				t.Fatalf("NoImprovement: %v", err)
			}
			res := CheckCondition(ctx, cond, models.CycleContext{History: tt.history})
			if res.Terminate != tt.want {
				t.Errorf("Terminate = %v, want %v (reason: %s)", res.Terminate, tt.want, res.Reason)
			}
		})
	}
}

func TestCheckCondition_CustomErrorNeverTerminates(t *testing.T) {
	cond, _ := Custom(func(ctx context.Context, cc models.CycleContext) (bool, error) {
		return true, fmt.Errorf("predicate exploded")
	}, "flaky check")

	res := CheckCondition(context.Background(), cond, models.CycleContext{})
	if res.Terminate {
		t.Error("failing predicate must not terminate the cycle")
	}
	if !strings.Contains(res.Reason, "predicate exploded") {
		t.Errorf("reason %q should embed the predicate error", res.Reason)
	}
}

func TestCheckTermination_FirstMatchWins(t *testing.T) {
	a, _ := MaxRounds(1)
	b, _ := TargetScore(10)
	cc := models.CycleContext{CurrentRound: 5, LatestScore: 90}

	res := CheckTermination(context.Background(), []Condition{a, b}, cc)
	if !res.Terminate {
		t.Fatal("both conditions satisfied, expected termination")
	}
	if res.Condition == nil || res.Condition.Kind != KindMaxRounds {
		t.Errorf("matched condition = %+v, want the first (max_rounds)", res.Condition)
	}
}

func TestCheckTermination_EmptyListDistinguished(t *testing.T) {
	empty := CheckTermination(context.Background(), nil, models.CycleContext{})
	if empty.Terminate {
		t.Error("empty condition list must not terminate")
	}
	if !strings.Contains(empty.Reason, "no termination conditions specified") {
		t.Errorf("reason %q should say no conditions were specified", empty.Reason)
	}

	cond, _ := TargetScore(99)
	unmet := CheckTermination(context.Background(), []Condition{cond}, models.CycleContext{LatestScore: 10})
	if unmet.Reason == empty.Reason {
		t.Error("unmet conditions should be distinguished from an empty list")
	}
}

func TestCheckTermination_Pure(t *testing.T) {
	a, _ := TargetScore(50)
	b, _ := MaxRounds(10)
	conds := []Condition{a, b}
	cc := models.CycleContext{CurrentRound: 4, LatestScore: 62, TotalCost: 1.2}

	first := CheckTermination(context.Background(), conds, cc)
	for i := 0; i < 5; i++ {
		again := CheckTermination(context.Background(), conds, cc)
		if again.Terminate != first.Terminate || again.Reason != first.Reason {
			t.Fatalf("call %d differed: %+v vs %+v", i, again, first)
		}
	}
}

func TestCombinators(t *testing.T) {
	met, _ := TargetScore(10)    // satisfied below
	unmet, _ := TargetScore(99)  // not satisfied
	cc := models.CycleContext{LatestScore: 50}
	ctx := context.Background()

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{name: "and all met", cond: And(met, met), want: true},
		{name: "and one unmet", cond: And(met, unmet), want: false},
		{name: "and empty never terminates", cond: And(), want: false},
		{name: "or one met", cond: Or(unmet, met), want: true},
		{name: "or none met", cond: Or(unmet, unmet), want: false},
		{name: "or empty never terminates", cond: Or(), want: false},
		{name: "not inverts met", cond: Not(met), want: false},
		{name: "not inverts unmet", cond: Not(unmet), want: true},
		{name: "nested", cond: And(met, Not(unmet)), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.cond.Kind != KindCustom {
				t.Errorf("combinator produced kind %q, want custom", tt.cond.Kind)
			}
			res := CheckCondition(ctx, tt.cond, cc)
			if res.Terminate != tt.want {
				t.Errorf("Terminate = %v, want %v", res.Terminate, tt.want)
			}
		})
	}
}

func TestAnd_ShortCircuits(t *testing.T) {
	calls := 0
	counting, _ := Custom(func(ctx context.Context, cc models.CycleContext) (bool, error) {
		calls++
		return true, nil
	}, "counting")
	unmet, _ := TargetScore(99)

	CheckCondition(context.Background(), And(unmet, counting), models.CycleContext{LatestScore: 1})
	if calls != 0 {
		t.Errorf("And evaluated %d sub-conditions past the first failure", calls)
	}
}

func TestOr_ShortCircuits(t *testing.T) {
	calls := 0
	counting, _ := Custom(func(ctx context.Context, cc models.CycleContext) (bool, error) {
		calls++
		return false, nil
	}, "counting")
	met, _ := TargetScore(10)

	CheckCondition(context.Background(), Or(met, counting), models.CycleContext{LatestScore: 50})
	if calls != 0 {
		t.Errorf("Or evaluated %d sub-conditions past the first match", calls)
	}
}
