package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avelier/cascade/internal/common"
	"github.com/avelier/cascade/internal/model"
	"github.com/avelier/cascade/internal/service"
	"github.com/shopspring/decimal"
)

// CreateGoal inserts a savings goal.
func (s *SQLiteStorage) CreateGoal(ctx context.Context, goal *model.SavingsGoal) error {
	return createGoal(ctx, s.db, goal)
}

func (t *sqliteTransaction) CreateGoal(ctx context.Context, goal *model.SavingsGoal) error {
	return createGoal(ctx, t.tx, goal)
}

func createGoal(ctx context.Context, q queryer, goal *model.SavingsGoal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateGoal(goal); err != nil {
		return err
	}

	query := `
		INSERT INTO goals (owner, name, target_cents, current_cents, deadline, priority)
		VALUES (?, ?, ?, ?, ?, ?)`

	result, err := q.ExecContext(ctx, query,
		goal.Owner, goal.Name, toCents(goal.TargetAmount),
		toCents(goal.CurrentAmount), nullTime(goal.Deadline), int(goal.Priority))
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get goal ID: %w", err)
	}
	goal.ID = id

	return nil
}

// ListGoals returns the owner's goals matching the filter, ordered by
// priority tier then creation.
func (s *SQLiteStorage) ListGoals(ctx context.Context, owner string, filter service.GoalFilter) ([]model.SavingsGoal, error) {
	return listGoals(ctx, s.db, owner, filter)
}

func (t *sqliteTransaction) ListGoals(ctx context.Context, owner string, filter service.GoalFilter) ([]model.SavingsGoal, error) {
	return listGoals(ctx, t.tx, owner, filter)
}

func listGoals(ctx context.Context, q queryer, owner string, filter service.GoalFilter) ([]model.SavingsGoal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, owner, name, target_cents, current_cents, deadline, priority, created_at
		FROM goals
		WHERE owner = ?`
	args := []any{owner}

	if filter.Tier != nil {
		query += ` AND priority = ?`
		args = append(args, int(*filter.Tier))
	}
	if filter.UnmetOnly {
		query += ` AND current_cents < target_cents`
	}
	if len(filter.IDs) > 0 {
		query += fmt.Sprintf(` AND id IN (%s)`, placeholders(len(filter.IDs)))
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}

	query += ` ORDER BY priority ASC, created_at ASC, id ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var goals []model.SavingsGoal
	for rows.Next() {
		var g model.SavingsGoal
		var targetCents, currentCents int64
		var priority int
		var deadline sql.NullTime
		if err := rows.Scan(&g.ID, &g.Owner, &g.Name, &targetCents, &currentCents,
			&deadline, &priority, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		g.TargetAmount = fromCents(targetCents)
		g.CurrentAmount = fromCents(currentCents)
		g.Deadline = timePtr(deadline)
		g.Priority = model.Priority(priority)
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}
	return goals, nil
}

// DeleteGoals removes the owner's goals by ID and reports how many rows were
// deleted. Deposit rows pointing at a deleted goal keep their amounts with a
// null goal reference; history and rules cascade away.
func (s *SQLiteStorage) DeleteGoals(ctx context.Context, owner string, ids []int64) (int64, error) {
	return deleteGoals(ctx, s.db, owner, ids)
}

func (t *sqliteTransaction) DeleteGoals(ctx context.Context, owner string, ids []int64) (int64, error) {
	return deleteGoals(ctx, t.tx, owner, ids)
}

func deleteGoals(ctx context.Context, q queryer, owner string, ids []int64) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: ids", ErrEmptySlice)
	}

	query := fmt.Sprintf(
		`DELETE FROM goals WHERE owner = ? AND id IN (%s)`, placeholders(len(ids)))
	args := make([]any, 0, len(ids)+1)
	args = append(args, owner)
	for _, id := range ids {
		args = append(args, id)
	}

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete goals: %w", err)
	}
	return result.RowsAffected()
}

// CreateDeposit records a signed balance event. It is the only mutator of a
// goal's current amount: positive amounts credit the goal, negative amounts
// withdraw with the balance clamped at zero, and a history record is
// appended whenever a goal is attached. A nil goalID records the event
// against the owner's pool only.
func (s *SQLiteStorage) CreateDeposit(ctx context.Context, owner string, goalID *int64, amount decimal.Decimal) error {
	return createDeposit(ctx, s.db, owner, goalID, amount)
}

func (t *sqliteTransaction) CreateDeposit(ctx context.Context, owner string, goalID *int64, amount decimal.Decimal) error {
	return createDeposit(ctx, t.tx, owner, goalID, amount)
}

func createDeposit(ctx context.Context, q queryer, owner string, goalID *int64, amount decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(owner, "owner"); err != nil {
		return err
	}
	if amount.IsZero() {
		return fmt.Errorf("%w: zero deposit", ErrInvalidAmount)
	}

	cents := toCents(amount)

	if goalID != nil {
		var goalOwner string
		err := q.QueryRowContext(ctx,
			`SELECT owner FROM goals WHERE id = ?`, *goalID).Scan(&goalOwner)
		if err == sql.ErrNoRows {
			return fmt.Errorf("goal %d: %w", *goalID, common.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to look up goal: %w", err)
		}
		if goalOwner != owner {
			return fmt.Errorf("goal %d: %w", *goalID, ErrOwnerMismatch)
		}

		if _, err := q.ExecContext(ctx,
			`UPDATE goals SET current_cents = MAX(current_cents + ?, 0) WHERE id = ?`,
			cents, *goalID); err != nil {
			return fmt.Errorf("failed to update goal balance: %w", err)
		}

		action := model.HistoryDeposit
		if cents < 0 {
			action = model.HistoryWithdraw
		}
		if _, err := q.ExecContext(ctx,
			`INSERT INTO goal_history (goal_id, action, amount_cents) VALUES (?, ?, ?)`,
			*goalID, action, cents); err != nil {
			return fmt.Errorf("failed to record goal history: %w", err)
		}
	}

	var goalRef any
	if goalID != nil {
		goalRef = *goalID
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO deposits (owner, goal_id, amount_cents) VALUES (?, ?, ?)`,
		owner, goalRef, cents); err != nil {
		return fmt.Errorf("failed to create deposit: %w", err)
	}

	return nil
}

// SumDeposits totals every signed deposit ever recorded for the owner,
// including rows whose goal has since been deleted.
func (s *SQLiteStorage) SumDeposits(ctx context.Context, owner string) (decimal.Decimal, error) {
	return sumDeposits(ctx, s.db, owner)
}

func (t *sqliteTransaction) SumDeposits(ctx context.Context, owner string) (decimal.Decimal, error) {
	return sumDeposits(ctx, t.tx, owner)
}

func sumDeposits(ctx context.Context, q queryer, owner string) (decimal.Decimal, error) {
	if err := validateContext(ctx); err != nil {
		return decimal.Zero, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return decimal.Zero, err
	}

	var cents int64
	if err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM deposits WHERE owner = ?`,
		owner).Scan(&cents); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum deposits: %w", err)
	}
	return fromCents(cents), nil
}

// ListGoalHistory returns a goal's balance events, oldest first. The goal
// must belong to the owner.
func (s *SQLiteStorage) ListGoalHistory(ctx context.Context, owner string, goalID int64) ([]model.GoalHistory, error) {
	return listGoalHistory(ctx, s.db, owner, goalID)
}

func (t *sqliteTransaction) ListGoalHistory(ctx context.Context, owner string, goalID int64) ([]model.GoalHistory, error) {
	return listGoalHistory(ctx, t.tx, owner, goalID)
}

func listGoalHistory(ctx context.Context, q queryer, owner string, goalID int64) ([]model.GoalHistory, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return nil, err
	}

	var goalOwner string
	err := q.QueryRowContext(ctx,
		`SELECT owner FROM goals WHERE id = ?`, goalID).Scan(&goalOwner)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("goal %d: %w", goalID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up goal: %w", err)
	}
	if goalOwner != owner {
		return nil, fmt.Errorf("goal %d: %w", goalID, ErrOwnerMismatch)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, goal_id, action, amount_cents, created_at
		FROM goal_history
		WHERE goal_id = ?
		ORDER BY created_at ASC, id ASC`, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to query goal history: %w", err)
	}
	defer rows.Close()

	var history []model.GoalHistory
	for rows.Next() {
		var h model.GoalHistory
		var cents sql.NullInt64
		if err := rows.Scan(&h.ID, &h.GoalID, &h.Action, &cents, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan goal history: %w", err)
		}
		h.Amount = fromCents(cents.Int64)
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goal history: %w", err)
	}
	return history, nil
}
