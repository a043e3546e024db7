package main

import (
	"github.com/avelier/cascade/internal/engine"
	"github.com/avelier/cascade/internal/forecast"
	"github.com/avelier/cascade/internal/model"
	"github.com/spf13/cobra"
)

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the dashboard: totals, surplus, goals, and forecast",
		RunE:  runSummary,
	}

	cmd.Flags().String("as-of", "", "summarize as of this date (YYYY-MM-DD, default today)")
	return cmd
}

func runSummary(cmd *cobra.Command, _ []string) error {
	owner, err := requireOwner()
	if err != nil {
		return err
	}
	asOfFlag, _ := cmd.Flags().GetString("as-of")
	asOf, err := parseDateFlag(asOfFlag)
	if err != nil {
		return err
	}

	store, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	eng := engine.New(store)

	// Materialize first so due templates show up in the totals, then run
	// the rules and the waterfall for the month.
	matResult, err := eng.Materialize(ctx, owner, asOf)
	if err != nil {
		return err
	}
	allocated, err := eng.ApplyRules(ctx, owner, asOf)
	if err != nil {
		return err
	}
	summary, err := eng.Reconcile(ctx, owner, asOf)
	if err != nil {
		return err
	}

	totalIncome, err := store.SumEntries(ctx, owner, model.KindIncome, nil, nil)
	if err != nil {
		return err
	}
	totalExpense, err := store.SumEntries(ctx, owner, model.KindExpense, nil, nil)
	if err != nil {
		return err
	}

	cmd.Printf("── %s ───────────────────────────────\n", owner)
	cmd.Printf("total income:    %12s\n", totalIncome.StringFixed(2))
	cmd.Printf("total expense:   %12s\n", totalExpense.StringFixed(2))
	cmd.Printf("balance:         %12s\n", totalIncome.Sub(totalExpense).StringFixed(2))
	cmd.Printf("accumulated:     %12s\n", summary.AccumulatedBalance.StringFixed(2))
	cmd.Printf("this month:      %12s\n", summary.CurrentMonthBalance.StringFixed(2))
	cmd.Printf("auto-allocated:  %12s\n", allocated.StringFixed(2))
	if matResult.PendingBlocked > 0 {
		cmd.Printf("pending templates: %d\n", matResult.PendingBlocked)
	}
	for _, cfgErr := range matResult.ConfigErrors {
		cmd.Printf("config error: %v\n", cfgErr)
	}

	fc, err := forecast.NewRolling(store).Forecast(ctx, owner, asOf)
	if err != nil {
		return err
	}
	if fc.HasData {
		cmd.Printf("expected this month: %s (spent %s), next month: %s\n",
			fc.ThisMonthExpected.StringFixed(2),
			fc.SpentSoFar.StringFixed(2),
			fc.NextMonthExpected.StringFixed(2))
	}

	templates, err := store.ListTemplates(ctx, owner)
	if err != nil {
		return err
	}
	soon := asOf.AddDate(0, 0, 7)
	for _, t := range templates {
		if t.Status == model.StatusInvalid || t.Expired() {
			continue
		}
		if !t.NextDue.After(soon) {
			cmd.Printf("due soon: %s %s on %s\n",
				t.Name, t.Amount.StringFixed(2), t.NextDue.Format("2006-01-02"))
		}
	}

	return nil
}
