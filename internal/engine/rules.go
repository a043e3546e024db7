package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avelier/cascade/internal/common"
	"github.com/avelier/cascade/internal/model"
	"github.com/avelier/cascade/internal/service"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// ApplyRules runs every auto-savings rule of the owner whose frequency
// gate has elapsed, depositing a percentage of this month's income into
// the rule's goal. Returns the total allocated. Rules deposit directly,
// outside the waterfall; LastApplied only moves when a rule fires.
func (e *Engine) ApplyRules(ctx context.Context, owner string, today time.Time) (decimal.Decimal, error) {
	total := decimal.Zero

	err := e.withOwnerTx(ctx, owner, func(tx service.Transaction) error {
		var err error
		total, err = applyRules(ctx, tx, owner, today)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}

	if total.IsPositive() {
		slog.Info("applied auto-savings rules", "owner", owner, "allocated", total.String())
	}
	return total, nil
}

func applyRules(ctx context.Context, tx service.Transaction, owner string, today time.Time) (decimal.Decimal, error) {
	first := startOfMonth(today)
	end := dayAfter(today)
	income, err := tx.SumEntries(ctx, owner, model.KindIncome, &first, &end)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum monthly income: %w", err)
	}
	if !income.IsPositive() {
		return decimal.Zero, nil
	}

	rules, err := tx.ListRules(ctx, owner)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list rules: %w", err)
	}

	total := decimal.Zero
	for i := range rules {
		rule := &rules[i]
		if !rule.ShouldFire(today) {
			continue
		}

		allocation := income.Mul(rule.Percentage).Div(oneHundred).Round(2)
		if !allocation.IsPositive() {
			continue
		}

		err := tx.CreateDeposit(ctx, owner, &rule.GoalID, allocation)
		if errors.Is(err, common.ErrNotFound) {
			// The goal vanished out from under the rule; the cascade
			// normally removes the rule with it, so just skip.
			continue
		}
		if err != nil {
			return decimal.Zero, fmt.Errorf("rule %d deposit failed: %w", rule.ID, err)
		}

		if err := tx.MarkRuleApplied(ctx, rule.ID, today); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(allocation)
	}

	return total, nil
}
