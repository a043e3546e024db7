package main

import (
	"fmt"

	"github.com/avelier/cascade/internal/classify"
	"github.com/avelier/cascade/internal/common"
	"github.com/avelier/cascade/internal/model"
	"github.com/spf13/cobra"
)

func expenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Manage expense entries",
	}

	cmd.AddCommand(expenseAddCmd())
	cmd.AddCommand(expenseListCmd())
	cmd.AddCommand(expenseDeleteCmd())
	return cmd
}

func expenseAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name> <amount>",
		Short: "Record an expense entry",
		Long: `Record an expense entry.

An expense that would push lifetime spending over lifetime income is
rejected; record the covering income first.`,
		Args: cobra.ExactArgs(2),
		RunE: runExpenseAdd,
	}

	cmd.Flags().String("date", "", "entry date (YYYY-MM-DD, default today)")
	cmd.Flags().String("category", "", "expense category (default: predicted from name)")
	return cmd
}

func runExpenseAdd(cmd *cobra.Command, args []string) error {
	owner, err := requireOwner()
	if err != nil {
		return err
	}
	amount, err := parseAmountArg(args[1])
	if err != nil {
		return err
	}
	dateFlag, _ := cmd.Flags().GetString("date")
	date, err := parseDateFlag(dateFlag)
	if err != nil {
		return err
	}
	category, _ := cmd.Flags().GetString("category")
	if category == "" {
		category = classify.NewKeywordClassifier().PredictCategory(args[0])
	} else {
		category = classify.NormalizeExpenseCategory(category)
	}

	store, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	totalIncome, err := store.SumEntries(ctx, owner, model.KindIncome, nil, nil)
	if err != nil {
		return err
	}
	totalExpense, err := store.SumEntries(ctx, owner, model.KindExpense, nil, nil)
	if err != nil {
		return err
	}
	if totalExpense.Add(amount).GreaterThan(totalIncome) {
		return common.NewUserError(
			fmt.Sprintf("Recording %q would push total spending (%s) over total income (%s)",
				args[0], totalExpense.Add(amount), totalIncome),
			fmt.Errorf("expense %s exceeds available income", amount))
	}

	entry := &model.Entry{
		Owner:    owner,
		Kind:     model.KindExpense,
		Name:     args[0],
		Amount:   amount,
		Date:     date,
		Category: category,
	}
	if err := store.CreateEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to record expense: %w", err)
	}

	cmd.Printf("recorded expense %d: %s %s (%s)\n", entry.ID, entry.Name, entry.Amount, entry.Category)
	return nil
}

func expenseListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expense entries, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEntryList(cmd, model.KindExpense)
		},
	}

	cmd.Flags().String("from", "", "start date (YYYY-MM-DD, inclusive)")
	cmd.Flags().String("to", "", "end date (YYYY-MM-DD, exclusive)")
	cmd.Flags().Int("limit", 50, "maximum rows")
	return cmd
}

func expenseDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete expense entries by ID",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntryDelete(cmd, args)
		},
	}
}
