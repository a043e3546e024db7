// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/avelier/cascade/internal/model"
	"github.com/shopspring/decimal"
)

// EntryFilter defines filtering options for ledger queries.
type EntryFilter struct {
	Start  *time.Time
	End    *time.Time
	Kind   model.EntryKind
	Limit  int
	Offset int
}

// GoalFilter defines filtering options for goal queries.
type GoalFilter struct {
	Tier      *model.Priority
	IDs       []int64
	UnmetOnly bool
}

// Storage defines the contract for the persistence layer. Every query is
// scoped to a single owner; no cross-owner reads or writes exist.
type Storage interface {
	// Ledger operations
	CreateEntry(ctx context.Context, entry *model.Entry) error
	ListEntries(ctx context.Context, owner string, filter EntryFilter) ([]model.Entry, error)
	DeleteEntries(ctx context.Context, owner string, ids []int64) (int64, error)
	// SumEntries totals entry amounts for dates in [start, end); a nil
	// bound is open.
	SumEntries(ctx context.Context, owner string, kind model.EntryKind, start, end *time.Time) (decimal.Decimal, error)

	// Recurring template operations
	CreateTemplate(ctx context.Context, tmpl *model.RecurringTemplate) error
	ListTemplates(ctx context.Context, owner string) ([]model.RecurringTemplate, error)
	UpdateTemplate(ctx context.Context, tmpl *model.RecurringTemplate) error
	DeleteTemplate(ctx context.Context, owner string, id int64) error

	// Goal and deposit operations
	CreateGoal(ctx context.Context, goal *model.SavingsGoal) error
	ListGoals(ctx context.Context, owner string, filter GoalFilter) ([]model.SavingsGoal, error)
	DeleteGoals(ctx context.Context, owner string, ids []int64) (int64, error)
	// CreateDeposit is the only mutator of a goal's current amount. It
	// clamps the balance at zero and appends a history record when a goal
	// is attached.
	CreateDeposit(ctx context.Context, owner string, goalID *int64, amount decimal.Decimal) error
	SumDeposits(ctx context.Context, owner string) (decimal.Decimal, error)
	// ListGoalHistory returns the balance events of one of the owner's own
	// goals; a foreign goal ID is rejected.
	ListGoalHistory(ctx context.Context, owner string, goalID int64) ([]model.GoalHistory, error)

	// Auto-savings rule operations
	CreateRule(ctx context.Context, rule *model.AutoSavingsRule) error
	ListRules(ctx context.Context, owner string) ([]model.AutoSavingsRule, error)
	MarkRuleApplied(ctx context.Context, id int64, when time.Time) error
	DeleteRule(ctx context.Context, owner string, id int64) error

	// Surplus tracker operations
	GetTracker(ctx context.Context, owner string) (*model.SurplusTracker, error)
	UpsertTracker(ctx context.Context, tracker *model.SurplusTracker) error

	// Owners returns every owner with ledger, template, or goal state.
	Owners(ctx context.Context) ([]string, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within the transaction.
	Storage
}

// ReconcileSummary is the public surface returned to the view layer after
// a waterfall pass.
type ReconcileSummary struct {
	AccumulatedBalance  decimal.Decimal
	CurrentMonthBalance decimal.Decimal
}

// MaterializeResult reports what a materialization pass produced.
type MaterializeResult struct {
	ConfigErrors   []error
	EntriesCreated int
	PendingBlocked int
}

// ExpenseForecast carries the three estimates the forecasting collaborator
// returns. The core never depends on how they are computed.
type ExpenseForecast struct {
	ThisMonthExpected decimal.Decimal
	SpentSoFar        decimal.Decimal
	NextMonthExpected decimal.Decimal
	HasData           bool
}

// Forecaster is the opaque expense-forecasting collaborator.
type Forecaster interface {
	Forecast(ctx context.Context, owner string, asOf time.Time) (ExpenseForecast, error)
}

// Classifier is the opaque category-prediction collaborator.
type Classifier interface {
	PredictCategory(text string) string
}

// GoalOutlook estimates a goal's odds of reaching its target by its
// deadline, with a suggested deadline the owner's saving pace supports and
// a confidence band on the final balance.
type GoalOutlook struct {
	SuggestedDeadline *time.Time
	Probability       decimal.Decimal
	ConfidenceLow     decimal.Decimal
	ConfidenceHigh    decimal.Decimal
}

// GoalPredictor is the opaque goal-outlook collaborator.
type GoalPredictor interface {
	PredictGoal(ctx context.Context, owner string, goal model.SavingsGoal, asOf time.Time) (GoalOutlook, error)
}
