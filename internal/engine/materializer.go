package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avelier/cascade/internal/model"
	"github.com/avelier/cascade/internal/service"
)

// Materialize converts every due recurring template into concrete ledger
// entries as of asOf, one period per template per round, until a fixed
// point. Income always materializes; expenses are gated by lifetime
// affordability and go pending when blocked, to be retried on every later
// pass. Idempotent per call: a successful run advances due dates past
// asOf, so a second call creates nothing new.
func (e *Engine) Materialize(ctx context.Context, owner string, asOf time.Time) (service.MaterializeResult, error) {
	var result service.MaterializeResult

	err := e.withOwnerTx(ctx, owner, func(tx service.Transaction) error {
		var err error
		result, err = materialize(ctx, tx, owner, asOf)
		return err
	})
	if err != nil {
		return service.MaterializeResult{}, err
	}

	slog.Info("materialized templates",
		"owner", owner,
		"entries", result.EntriesCreated,
		"pending", result.PendingBlocked,
		"config_errors", len(result.ConfigErrors))
	return result, nil
}

// workingTemplate pairs a template with its dirty flag so each row is
// written back at most once per pass.
type workingTemplate struct {
	tmpl  model.RecurringTemplate
	dirty bool
}

func materialize(ctx context.Context, tx service.Transaction, owner string, asOf time.Time) (service.MaterializeResult, error) {
	var result service.MaterializeResult

	totalIncome, err := tx.SumEntries(ctx, owner, model.KindIncome, nil, nil)
	if err != nil {
		return result, fmt.Errorf("failed to sum income: %w", err)
	}
	totalExpense, err := tx.SumEntries(ctx, owner, model.KindExpense, nil, nil)
	if err != nil {
		return result, fmt.Errorf("failed to sum expenses: %w", err)
	}

	templates, err := tx.ListTemplates(ctx, owner)
	if err != nil {
		return result, fmt.Errorf("failed to list templates: %w", err)
	}

	// The working set is loaded once and mutated in memory; rows are
	// written back through the transaction after the fixed point.
	working := make([]*workingTemplate, 0, len(templates))
	for i := range templates {
		w := &workingTemplate{tmpl: templates[i]}

		// Unknown frequency tokens are a configuration error, flagged and
		// excluded so the template cannot stall silently forever.
		if !w.tmpl.Frequency.Valid() {
			if w.tmpl.Status != model.StatusInvalid {
				w.tmpl.Status = model.StatusInvalid
				w.dirty = true
			}
			result.ConfigErrors = append(result.ConfigErrors,
				fmt.Errorf("template %q (%d): %w: %q",
					w.tmpl.Name, w.tmpl.ID, model.ErrUnknownFrequency, w.tmpl.Frequency))
			working = append(working, w)
			continue
		}
		working = append(working, w)
	}

	emit := func(w *workingTemplate) error {
		entry := &model.Entry{
			Owner:    owner,
			Kind:     w.tmpl.Kind,
			Name:     w.tmpl.Name,
			Category: w.tmpl.Category,
			Amount:   w.tmpl.Amount,
			Date:     w.tmpl.NextDue,
		}
		if err := tx.CreateEntry(ctx, entry); err != nil {
			return fmt.Errorf("failed to materialize %q: %w", w.tmpl.Name, err)
		}

		next, err := w.tmpl.Frequency.Next(w.tmpl.NextDue)
		if err != nil {
			return err
		}
		w.tmpl.NextDue = next
		w.dirty = true
		result.EntriesCreated++
		return nil
	}

	for {
		changed := false

		// Income first: income arriving in this round can unblock pending
		// expenses in the retry sub-pass below.
		for _, w := range working {
			if w.tmpl.Kind != model.KindIncome || w.tmpl.Status == model.StatusInvalid {
				continue
			}
			if !w.tmpl.DueAt(asOf) {
				continue
			}
			if err := emit(w); err != nil {
				return result, err
			}
			totalIncome = totalIncome.Add(w.tmpl.Amount)
			changed = true
		}

		// Due expenses, gated by lifetime affordability.
		for _, w := range working {
			if w.tmpl.Kind != model.KindExpense || w.tmpl.Status == model.StatusInvalid {
				continue
			}
			if !w.tmpl.DueAt(asOf) {
				continue
			}
			if totalExpense.Add(w.tmpl.Amount).LessThanOrEqual(totalIncome) {
				if err := emit(w); err != nil {
					return result, err
				}
				if w.tmpl.Status != model.StatusActive {
					w.tmpl.Status = model.StatusActive
				}
				totalExpense = totalExpense.Add(w.tmpl.Amount)
				changed = true
			} else if w.tmpl.Status != model.StatusPending {
				w.tmpl.Status = model.StatusPending
				w.dirty = true
			}
		}

		// Retry sub-pass: pending expenses get another affordability test
		// regardless of due date, since income created above may have
		// unblocked them.
		for _, w := range working {
			if w.tmpl.Status != model.StatusPending || w.tmpl.Expired() {
				continue
			}
			if totalExpense.Add(w.tmpl.Amount).GreaterThan(totalIncome) {
				continue
			}
			if err := emit(w); err != nil {
				return result, err
			}
			w.tmpl.Status = model.StatusActive
			totalExpense = totalExpense.Add(w.tmpl.Amount)
			changed = true
		}

		if !changed {
			break
		}
	}

	for _, w := range working {
		if w.tmpl.Status == model.StatusPending {
			result.PendingBlocked++
		}
		if !w.dirty {
			continue
		}
		if err := tx.UpdateTemplate(ctx, &w.tmpl); err != nil {
			return result, fmt.Errorf("failed to update template %d: %w", w.tmpl.ID, err)
		}
	}

	return result, nil
}
