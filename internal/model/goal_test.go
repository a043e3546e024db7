package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGoalRemaining(t *testing.T) {
	g := SavingsGoal{TargetAmount: dec("500"), CurrentAmount: dec("120.50")}
	if got := g.Remaining(); !got.Equal(dec("379.50")) {
		t.Errorf("Remaining() = %s", got)
	}

	over := SavingsGoal{TargetAmount: dec("100"), CurrentAmount: dec("150")}
	if got := over.Remaining(); !got.IsZero() {
		t.Errorf("overfunded Remaining() = %s, want 0", got)
	}
	if !over.Completed() {
		t.Error("overfunded goal should be completed")
	}
}

func TestGoalProgress(t *testing.T) {
	g := SavingsGoal{TargetAmount: dec("400"), CurrentAmount: dec("100")}
	if got := g.Progress(); !got.Equal(dec("25")) {
		t.Errorf("Progress() = %s, want 25", got)
	}
	empty := SavingsGoal{}
	if got := empty.Progress(); !got.IsZero() {
		t.Errorf("zero-target Progress() = %s, want 0", got)
	}
}
