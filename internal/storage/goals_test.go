package storage

import (
	"context"
	"testing"
	"time"

	"github.com/avelier/cascade/internal/common"
	"github.com/avelier/cascade/internal/model"
	"github.com/avelier/cascade/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestGoal(t *testing.T, store *SQLiteStorage, owner, name, target string, priority model.Priority) *model.SavingsGoal {
	t.Helper()
	goal := &model.SavingsGoal{
		Owner:        owner,
		Name:         name,
		TargetAmount: decimal.RequireFromString(target),
		Priority:     priority,
	}
	require.NoError(t, store.CreateGoal(context.Background(), goal))
	return goal
}

func TestListGoals_Filtering(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	vacation := createTestGoal(t, store, "lena", "Vacation", "1200.00", model.PriorityLow)
	emergency := createTestGoal(t, store, "lena", "Emergency fund", "3000.00", model.PriorityHigh)
	laptop := createTestGoal(t, store, "lena", "Laptop", "900.00", model.PriorityMedium)
	createTestGoal(t, store, "marco", "Car", "5000.00", model.PriorityHigh)

	all, err := store.ListGoals(ctx, "lena", service.GoalFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Priority tier order, High first.
	assert.Equal(t, emergency.ID, all[0].ID)
	assert.Equal(t, laptop.ID, all[1].ID)
	assert.Equal(t, vacation.ID, all[2].ID)

	high := model.PriorityHigh
	tier, err := store.ListGoals(ctx, "lena", service.GoalFilter{Tier: &high})
	require.NoError(t, err)
	require.Len(t, tier, 1)
	assert.Equal(t, "Emergency fund", tier[0].Name)

	byID, err := store.ListGoals(ctx, "lena", service.GoalFilter{IDs: []int64{vacation.ID, laptop.ID}})
	require.NoError(t, err)
	assert.Len(t, byID, 2)
}

func TestCreateDeposit_CreditsGoalAndHistory(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	goal := createTestGoal(t, store, "lena", "Bike", "500.00", model.PriorityMedium)

	require.NoError(t, store.CreateDeposit(ctx, "lena", &goal.ID, decimal.RequireFromString("120.50")))
	require.NoError(t, store.CreateDeposit(ctx, "lena", &goal.ID, decimal.RequireFromString("-20.50")))

	goals, err := store.ListGoals(ctx, "lena", service.GoalFilter{})
	require.NoError(t, err)
	assert.True(t, goals[0].CurrentAmount.Equal(decimal.RequireFromString("100.00")),
		"balance = %s", goals[0].CurrentAmount)

	history, err := store.ListGoalHistory(ctx, "lena", goal.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, model.HistoryDeposit, history[0].Action)
	assert.Equal(t, model.HistoryWithdraw, history[1].Action)

	sum, err := store.SumDeposits(ctx, "lena")
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.RequireFromString("100.00")), "deposit sum = %s", sum)
}

func TestCreateDeposit_ClampsWithdrawalAtZero(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	goal := createTestGoal(t, store, "lena", "Bike", "500.00", model.PriorityMedium)
	require.NoError(t, store.CreateDeposit(ctx, "lena", &goal.ID, decimal.RequireFromString("30.00")))
	require.NoError(t, store.CreateDeposit(ctx, "lena", &goal.ID, decimal.RequireFromString("-75.00")))

	goals, err := store.ListGoals(ctx, "lena", service.GoalFilter{})
	require.NoError(t, err)
	assert.True(t, goals[0].CurrentAmount.IsZero(), "balance = %s", goals[0].CurrentAmount)
}

func TestCreateDeposit_RejectsWrongOwner(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	goal := createTestGoal(t, store, "lena", "Bike", "500.00", model.PriorityMedium)

	err := store.CreateDeposit(ctx, "marco", &goal.ID, decimal.RequireFromString("10.00"))
	assert.ErrorIs(t, err, ErrOwnerMismatch)

	missing := int64(9999)
	err = store.CreateDeposit(ctx, "lena", &missing, decimal.RequireFromString("10.00"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteGoals_NullsDepositsAndCascadesHistory(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	goal := createTestGoal(t, store, "lena", "Bike", "500.00", model.PriorityMedium)
	require.NoError(t, store.CreateDeposit(ctx, "lena", &goal.ID, decimal.RequireFromString("200.00")))

	deleted, err := store.DeleteGoals(ctx, "lena", []int64{goal.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// Deposit amounts survive with the goal reference nulled.
	sum, err := store.SumDeposits(ctx, "lena")
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.RequireFromString("200.00")), "deposit sum = %s", sum)

	// The goal itself is gone, and its history rows cascaded away.
	_, err = store.ListGoalHistory(ctx, "lena", goal.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	var orphaned int
	require.NoError(t, store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM goal_history`).Scan(&orphaned))
	assert.Zero(t, orphaned)
}

func TestListGoalHistory_ScopedToOwner(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	goal := createTestGoal(t, store, "lena", "Bike", "500.00", model.PriorityMedium)
	require.NoError(t, store.CreateDeposit(ctx, "lena", &goal.ID, decimal.RequireFromString("120.50")))

	// Guessing another owner's goal ID must not expose their history.
	_, err := store.ListGoalHistory(ctx, "marco", goal.ID)
	assert.ErrorIs(t, err, ErrOwnerMismatch)

	history, err := store.ListGoalHistory(ctx, "lena", goal.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.HistoryDeposit, history[0].Action)
}

func TestRules_RoundTripAndMarkApplied(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	goal := createTestGoal(t, store, "lena", "Bike", "500.00", model.PriorityMedium)

	rule := &model.AutoSavingsRule{
		Owner:      "lena",
		GoalID:     goal.ID,
		Percentage: decimal.RequireFromString("12.5"),
		Frequency:  model.RuleMonthly,
	}
	require.NoError(t, store.CreateRule(ctx, rule))
	require.NotZero(t, rule.ID)

	rules, err := store.ListRules(ctx, "lena")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.True(t, rules[0].Percentage.Equal(decimal.RequireFromString("12.5")))
	assert.Nil(t, rules[0].LastApplied)

	when := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.MarkRuleApplied(ctx, rule.ID, when))

	rules, err = store.ListRules(ctx, "lena")
	require.NoError(t, err)
	require.NotNil(t, rules[0].LastApplied)
	assert.True(t, rules[0].LastApplied.Equal(when))

	require.NoError(t, store.DeleteRule(ctx, "lena", rule.ID))
	rules, err = store.ListRules(ctx, "lena")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestRules_RejectForeignGoal(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	goal := createTestGoal(t, store, "lena", "Bike", "500.00", model.PriorityMedium)

	err := store.CreateRule(ctx, &model.AutoSavingsRule{
		Owner:      "marco",
		GoalID:     goal.ID,
		Percentage: decimal.RequireFromString("10"),
		Frequency:  model.RuleMonthly,
	})
	assert.ErrorIs(t, err, ErrOwnerMismatch)
}

func TestTracker_DefaultAndUpsert(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	tracker, err := store.GetTracker(ctx, "lena")
	require.NoError(t, err)
	assert.True(t, tracker.AccumulatedBalance.IsZero())
	assert.Zero(t, tracker.LastAppliedMonth)

	tracker.AccumulatedBalance = decimal.RequireFromString("341.20")
	tracker.LastAppliedMonth = 3
	tracker.LastAppliedYear = 2025
	require.NoError(t, store.UpsertTracker(ctx, tracker))

	got, err := store.GetTracker(ctx, "lena")
	require.NoError(t, err)
	assert.True(t, got.AccumulatedBalance.Equal(decimal.RequireFromString("341.20")))
	assert.True(t, got.AppliedIn(time.Date(2025, time.March, 28, 0, 0, 0, 0, time.UTC)))
	assert.False(t, got.AppliedIn(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)))

	// Second upsert overwrites.
	got.AccumulatedBalance = decimal.Zero
	require.NoError(t, store.UpsertTracker(ctx, got))
	again, err := store.GetTracker(ctx, "lena")
	require.NoError(t, err)
	assert.True(t, again.AccumulatedBalance.IsZero())
}
