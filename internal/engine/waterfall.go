package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avelier/cascade/internal/model"
	"github.com/avelier/cascade/internal/service"
	"github.com/shopspring/decimal"
)

// Reconcile runs one waterfall allocation pass for the owner: it computes
// the lifetime accumulated surplus not yet deposited and distributes it
// across unmet goals tier by tier, High before Medium before Low, splitting
// equally within a tier and redistributing what capped goals could not
// absorb. At most one pass mutates goal balances per calendar month; a
// second call in the same month returns the stored figures and deposits
// nothing.
func (e *Engine) Reconcile(ctx context.Context, owner string, today time.Time) (service.ReconcileSummary, error) {
	var summary service.ReconcileSummary

	err := e.withOwnerTx(ctx, owner, func(tx service.Transaction) error {
		var err error
		summary, err = reconcile(ctx, tx, owner, today)
		return err
	})
	if err != nil {
		return service.ReconcileSummary{}, err
	}

	slog.Info("reconciled surplus",
		"owner", owner,
		"accumulated", summary.AccumulatedBalance.String(),
		"current_month", summary.CurrentMonthBalance.String())
	return summary, nil
}

func reconcile(ctx context.Context, tx service.Transaction, owner string, today time.Time) (service.ReconcileSummary, error) {
	var summary service.ReconcileSummary

	tracker, err := tx.GetTracker(ctx, owner)
	if err != nil {
		return summary, err
	}

	// Reporting figure only; recomputing it on the short-circuit path is a
	// pure read and matches the stored pass when no new ledger activity
	// happened since.
	first := startOfMonth(today)
	end := dayAfter(today)
	currentMonth, err := surplus(ctx, tx, owner, &first, &end)
	if err != nil {
		return summary, err
	}
	summary.CurrentMonthBalance = currentMonth

	// Idempotency guard: one allocation pass per calendar month per owner.
	if tracker.AppliedIn(today) {
		summary.AccumulatedBalance = tracker.AccumulatedBalance
		return summary, nil
	}

	priorIncome, err := tx.SumEntries(ctx, owner, model.KindIncome, nil, &first)
	if err != nil {
		return summary, fmt.Errorf("failed to sum prior income: %w", err)
	}
	priorExpense, err := tx.SumEntries(ctx, owner, model.KindExpense, nil, &first)
	if err != nil {
		return summary, fmt.Errorf("failed to sum prior expenses: %w", err)
	}
	deposited, err := tx.SumDeposits(ctx, owner)
	if err != nil {
		return summary, err
	}

	accumulated := priorIncome.Sub(priorExpense).Sub(deposited)
	if accumulated.IsNegative() {
		accumulated = decimal.Zero
	}

	if accumulated.IsPositive() {
		accumulated, err = distribute(ctx, tx, owner, accumulated)
		if err != nil {
			return summary, err
		}
	}

	tracker.AccumulatedBalance = accumulated
	tracker.LastAppliedMonth = int(today.UTC().Month())
	tracker.LastAppliedYear = today.UTC().Year()
	if err := tx.UpsertTracker(ctx, tracker); err != nil {
		return summary, err
	}

	summary.AccumulatedBalance = accumulated
	return summary, nil
}

// distribute pours the accumulated surplus through the priority tiers and
// returns whatever no goal could absorb. Within a tier the pool splits
// equally across unmet goals each round; a goal takes at most its remaining
// need, and the unconsumed remainder redistributes to the tier's survivors
// in the next round.
func distribute(ctx context.Context, tx service.Transaction, owner string, pool decimal.Decimal) (decimal.Decimal, error) {
	for _, tier := range model.Tiers() {
		if !pool.IsPositive() {
			break
		}

		t := tier
		goals, err := tx.ListGoals(ctx, owner, service.GoalFilter{Tier: &t, UnmetOnly: true})
		if err != nil {
			return pool, fmt.Errorf("failed to list %s goals: %w", tier, err)
		}

		unmet := make([]*model.SavingsGoal, 0, len(goals))
		for i := range goals {
			unmet = append(unmet, &goals[i])
		}

		for pool.IsPositive() && len(unmet) > 0 {
			// Shares quantize down to whole cents; once the pool is below
			// one cent per goal the residue collapses onto the first unmet
			// goal so the loop terminates.
			share := pool.Div(decimal.NewFromInt(int64(len(unmet)))).RoundDown(2)
			if share.IsZero() {
				share = pool
			}

			progressed := false
			for _, g := range unmet {
				give := decimal.Min(share, g.Remaining(), pool)
				if !give.IsPositive() {
					continue
				}
				if err := tx.CreateDeposit(ctx, owner, &g.ID, give); err != nil {
					return pool, fmt.Errorf("waterfall deposit on goal %d failed: %w", g.ID, err)
				}
				g.CurrentAmount = g.CurrentAmount.Add(give)
				pool = pool.Sub(give)
				progressed = true
			}
			if !progressed {
				break
			}

			survivors := unmet[:0]
			for _, g := range unmet {
				if !g.Completed() {
					survivors = append(survivors, g)
				}
			}
			unmet = survivors
		}
	}

	return pool, nil
}

// DeleteGoalsWithRefund deletes the owner's goals and returns their saved
// balances to the accumulated surplus. The refund credit and the deletion
// are atomic; a reversing deposit keeps the lifetime deposit sum consistent
// so later reconciles recompute the same accumulated figure.
func (e *Engine) DeleteGoalsWithRefund(ctx context.Context, owner string, ids []int64) (int64, decimal.Decimal, error) {
	var count int64
	refund := decimal.Zero

	err := e.withOwnerTx(ctx, owner, func(tx service.Transaction) error {
		goals, err := tx.ListGoals(ctx, owner, service.GoalFilter{IDs: ids})
		if err != nil {
			return fmt.Errorf("failed to list goals: %w", err)
		}
		if len(goals) == 0 {
			return nil
		}

		for _, g := range goals {
			refund = refund.Add(g.CurrentAmount)
		}

		if refund.IsPositive() {
			if err := tx.CreateDeposit(ctx, owner, nil, refund.Neg()); err != nil {
				return fmt.Errorf("failed to record refund reversal: %w", err)
			}

			tracker, err := tx.GetTracker(ctx, owner)
			if err != nil {
				return err
			}
			tracker.AccumulatedBalance = tracker.AccumulatedBalance.Add(refund)
			if err := tx.UpsertTracker(ctx, tracker); err != nil {
				return err
			}
		}

		count, err = tx.DeleteGoals(ctx, owner, ids)
		return err
	})
	if err != nil {
		return 0, decimal.Zero, err
	}

	if count > 0 {
		slog.Info("deleted goals with refund",
			"owner", owner, "count", count, "refund", refund.String())
	}
	return count, refund, nil
}
