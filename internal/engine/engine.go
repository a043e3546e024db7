// Package engine implements the scheduling and allocation core: recurring
// template materialization, surplus calculation, auto-savings rules, and
// the goal allocation waterfall.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/avelier/cascade/internal/common"
	"github.com/avelier/cascade/internal/model"
	"github.com/avelier/cascade/internal/service"
	"github.com/shopspring/decimal"
)

// Engine runs the scheduling and allocation passes. Every mutating pass is
// serialized per owner and executes inside a single storage transaction;
// a failure mid-pass rolls the whole pass back.
type Engine struct {
	storage service.Storage
	locks   *ownerLocks
}

// New creates an engine backed by the given storage.
func New(storage service.Storage) *Engine {
	return &Engine{
		storage: storage,
		locks:   newOwnerLocks(),
	}
}

// withOwnerTx runs fn inside a transaction while holding the owner's lock.
// Lock contention from another process is retried; each attempt sees a
// fresh transaction since a failed one rolls back completely.
func (e *Engine) withOwnerTx(ctx context.Context, owner string, fn func(tx service.Transaction) error) error {
	lock := e.locks.get(owner)
	lock.Lock()
	defer lock.Unlock()

	return common.WithRetry(ctx, func() error {
		tx, err := e.storage.BeginTx(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin pass for %s: %w", owner, err)
		}

		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			if !common.IsRetryable(err) {
				return &common.RetryableError{Err: err, Retryable: false}
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit pass for %s: %w", owner, err)
		}
		return nil
	}, common.RetryOptions{MaxAttempts: 3, InitialDelay: 50 * time.Millisecond})
}

// Surplus returns max(income − expense, 0) over ledger entries with dates
// in [start, end). Pure read; a range with no income yields zero.
func (e *Engine) Surplus(ctx context.Context, owner string, start, end time.Time) (decimal.Decimal, error) {
	return surplus(ctx, e.storage, owner, &start, &end)
}

func surplus(ctx context.Context, store service.Storage, owner string, start, end *time.Time) (decimal.Decimal, error) {
	income, err := store.SumEntries(ctx, owner, model.KindIncome, start, end)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum income: %w", err)
	}
	expense, err := store.SumEntries(ctx, owner, model.KindExpense, start, end)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
	}

	s := income.Sub(expense)
	if s.IsNegative() {
		return decimal.Zero, nil
	}
	return s, nil
}

// startOfMonth returns midnight UTC on the first day of t's month.
func startOfMonth(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// dayAfter returns midnight UTC of the day after t, the exclusive upper
// bound for ranges that include t's date.
func dayAfter(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
