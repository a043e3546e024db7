// Package storage provides the data persistence layer for the cascade application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/avelier/cascade/internal/model"
	"github.com/shopspring/decimal"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrEmptySlice       = errors.New("slice cannot be empty")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidEntry     = errors.New("invalid entry")
	ErrInvalidTemplate  = errors.New("invalid template")
	ErrInvalidGoal      = errors.New("invalid goal")
	ErrInvalidRule      = errors.New("invalid rule")
	ErrOwnerMismatch    = errors.New("record belongs to a different owner")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateEntry validates a ledger entry before it is written.
func validateEntry(entry *model.Entry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry", ErrNilParameter)
	}
	if strings.TrimSpace(entry.Owner) == "" {
		return fmt.Errorf("%w: missing owner", ErrInvalidEntry)
	}
	if entry.Kind != model.KindIncome && entry.Kind != model.KindExpense {
		return fmt.Errorf("%w: kind %q", ErrInvalidEntry, entry.Kind)
	}
	if strings.TrimSpace(entry.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidEntry)
	}
	if entry.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidEntry)
	}
	if !entry.Amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, entry.Amount)
	}
	return nil
}

// validateTemplate validates a recurring template. The frequency token is
// deliberately not validated here: an unknown token is a reportable
// configuration state the materializer flags, not a write-time failure.
func validateTemplate(tmpl *model.RecurringTemplate) error {
	if tmpl == nil {
		return fmt.Errorf("%w: template", ErrNilParameter)
	}
	if strings.TrimSpace(tmpl.Owner) == "" {
		return fmt.Errorf("%w: missing owner", ErrInvalidTemplate)
	}
	if tmpl.Kind != model.KindIncome && tmpl.Kind != model.KindExpense {
		return fmt.Errorf("%w: kind %q", ErrInvalidTemplate, tmpl.Kind)
	}
	if strings.TrimSpace(tmpl.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidTemplate)
	}
	if tmpl.NextDue.IsZero() {
		return fmt.Errorf("%w: missing next due date", ErrInvalidTemplate)
	}
	if !tmpl.Amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, tmpl.Amount)
	}
	return nil
}

// validateGoal validates a savings goal.
func validateGoal(goal *model.SavingsGoal) error {
	if goal == nil {
		return fmt.Errorf("%w: goal", ErrNilParameter)
	}
	if strings.TrimSpace(goal.Owner) == "" {
		return fmt.Errorf("%w: missing owner", ErrInvalidGoal)
	}
	if strings.TrimSpace(goal.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidGoal)
	}
	if !goal.TargetAmount.IsPositive() {
		return fmt.Errorf("%w: target %s", ErrInvalidAmount, goal.TargetAmount)
	}
	if goal.CurrentAmount.IsNegative() {
		return fmt.Errorf("%w: negative current amount", ErrInvalidGoal)
	}
	switch goal.Priority {
	case model.PriorityHigh, model.PriorityMedium, model.PriorityLow:
	default:
		return fmt.Errorf("%w: priority %d", ErrInvalidGoal, goal.Priority)
	}
	return nil
}

// validateRule validates an auto-savings rule.
func validateRule(rule *model.AutoSavingsRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if strings.TrimSpace(rule.Owner) == "" {
		return fmt.Errorf("%w: missing owner", ErrInvalidRule)
	}
	if rule.GoalID == 0 {
		return fmt.Errorf("%w: missing goal", ErrInvalidRule)
	}
	if !rule.Frequency.Valid() {
		return fmt.Errorf("%w: frequency %q", ErrInvalidRule, rule.Frequency)
	}
	if rule.Percentage.IsNegative() || rule.Percentage.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: percentage %s out of range", ErrInvalidRule, rule.Percentage)
	}
	return nil
}
