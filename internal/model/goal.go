package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Priority ranks savings goals for waterfall allocation. Lower values are
// funded first; the ordering is ordinal, never a string comparison.
type Priority int

const (
	// PriorityHigh goals are funded before all others.
	PriorityHigh Priority = iota
	// PriorityMedium goals are funded after High goals complete.
	PriorityMedium
	// PriorityLow goals are funded last.
	PriorityLow
)

// Tiers lists the priorities in allocation order.
func Tiers() []Priority {
	return []Priority{PriorityHigh, PriorityMedium, PriorityLow}
}

// ParsePriority converts a user-facing label to a Priority.
func ParsePriority(s string) (Priority, bool) {
	switch s {
	case "high", "High":
		return PriorityHigh, true
	case "medium", "Medium":
		return PriorityMedium, true
	case "low", "Low":
		return PriorityLow, true
	}
	return PriorityLow, false
}

// String returns the user-facing label.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	default:
		return "Low"
	}
}

// SavingsGoal is a target an owner saves toward. CurrentAmount changes only
// through Deposit creation and is clamped so it never goes negative.
type SavingsGoal struct {
	CreatedAt     time.Time
	Deadline      *time.Time
	Owner         string
	Name          string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	Priority      Priority
	ID            int64
}

// Remaining returns how much the goal still needs, never negative.
func (g *SavingsGoal) Remaining() decimal.Decimal {
	need := g.TargetAmount.Sub(g.CurrentAmount)
	if need.IsNegative() {
		return decimal.Zero
	}
	return need
}

// Completed reports whether the goal has reached its target.
func (g *SavingsGoal) Completed() bool {
	return g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

// Progress returns completion as a percentage of the target.
func (g *SavingsGoal) Progress() decimal.Decimal {
	if g.TargetAmount.IsZero() {
		return decimal.Zero
	}
	return g.CurrentAmount.Div(g.TargetAmount).Shift(2).Round(2)
}

// Deposit is a signed balance-changing event on a goal. Positive amounts
// are credits, negative amounts withdrawals. GoalID is nil for deposits
// whose goal was later deleted and for refund reversals; the row survives
// as a historical record either way.
type Deposit struct {
	CreatedAt time.Time
	Owner     string
	GoalID    *int64
	Amount    decimal.Decimal
	ID        int64
}

// GoalHistory records a goal-affecting action for auditing.
type GoalHistory struct {
	CreatedAt time.Time
	Action    string
	Amount    decimal.Decimal
	ID        int64
	GoalID    int64
}

// History actions.
const (
	HistoryDeposit  = "Deposit"
	HistoryWithdraw = "Withdraw"
)
