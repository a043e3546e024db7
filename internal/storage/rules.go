package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avelier/cascade/internal/common"
	"github.com/avelier/cascade/internal/model"
	"github.com/shopspring/decimal"
)

// CreateRule inserts an auto-savings rule. The goal must exist and belong
// to the same owner.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.AutoSavingsRule) error {
	return createRule(ctx, s.db, rule)
}

func (t *sqliteTransaction) CreateRule(ctx context.Context, rule *model.AutoSavingsRule) error {
	return createRule(ctx, t.tx, rule)
}

func createRule(ctx context.Context, q queryer, rule *model.AutoSavingsRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	var goalOwner string
	err := q.QueryRowContext(ctx,
		`SELECT owner FROM goals WHERE id = ?`, rule.GoalID).Scan(&goalOwner)
	if err == sql.ErrNoRows {
		return fmt.Errorf("goal %d: %w", rule.GoalID, common.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to look up goal: %w", err)
	}
	if goalOwner != rule.Owner {
		return fmt.Errorf("goal %d: %w", rule.GoalID, ErrOwnerMismatch)
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO auto_savings_rules (owner, goal_id, percentage, frequency, last_applied)
		VALUES (?, ?, ?, ?, ?)`,
		rule.Owner, rule.GoalID, rule.Percentage.String(),
		string(rule.Frequency), nullTime(rule.LastApplied))
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule ID: %w", err)
	}
	rule.ID = id

	return nil
}

// ListRules returns the owner's auto-savings rules.
func (s *SQLiteStorage) ListRules(ctx context.Context, owner string) ([]model.AutoSavingsRule, error) {
	return listRules(ctx, s.db, owner)
}

func (t *sqliteTransaction) ListRules(ctx context.Context, owner string) ([]model.AutoSavingsRule, error) {
	return listRules(ctx, t.tx, owner)
}

func listRules(ctx context.Context, q queryer, owner string) ([]model.AutoSavingsRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, owner, goal_id, percentage, frequency, last_applied
		FROM auto_savings_rules
		WHERE owner = ?
		ORDER BY id ASC`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []model.AutoSavingsRule
	for rows.Next() {
		var r model.AutoSavingsRule
		var percentage, frequency string
		var lastApplied sql.NullTime
		if err := rows.Scan(&r.ID, &r.Owner, &r.GoalID, &percentage, &frequency, &lastApplied); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		r.Percentage, err = decimal.NewFromString(percentage)
		if err != nil {
			return nil, fmt.Errorf("rule %d has malformed percentage %q: %w", r.ID, percentage, err)
		}
		r.Frequency = model.RuleFrequency(frequency)
		r.LastApplied = timePtr(lastApplied)
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return rules, nil
}

// MarkRuleApplied stamps the rule's last-applied date after it fires.
func (s *SQLiteStorage) MarkRuleApplied(ctx context.Context, id int64, when time.Time) error {
	return markRuleApplied(ctx, s.db, id, when)
}

func (t *sqliteTransaction) MarkRuleApplied(ctx context.Context, id int64, when time.Time) error {
	return markRuleApplied(ctx, t.tx, id, when)
}

func markRuleApplied(ctx context.Context, q queryer, id int64, when time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := q.ExecContext(ctx,
		`UPDATE auto_savings_rules SET last_applied = ? WHERE id = ?`,
		dateOnly(when), id)
	if err != nil {
		return fmt.Errorf("failed to mark rule applied: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
	}
	return nil
}

// DeleteRule removes one of the owner's rules.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, owner string, id int64) error {
	return deleteRule(ctx, s.db, owner, id)
}

func (t *sqliteTransaction) DeleteRule(ctx context.Context, owner string, id int64) error {
	return deleteRule(ctx, t.tx, owner, id)
}

func deleteRule(ctx context.Context, q queryer, owner string, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(owner, "owner"); err != nil {
		return err
	}

	result, err := q.ExecContext(ctx,
		`DELETE FROM auto_savings_rules WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
	}
	return nil
}
