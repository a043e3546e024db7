package main

import (
	"fmt"

	"github.com/avelier/cascade/internal/classify"
	"github.com/avelier/cascade/internal/model"
	"github.com/avelier/cascade/internal/service"
	"github.com/spf13/cobra"
)

func incomeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "income",
		Short: "Manage income entries",
	}

	cmd.AddCommand(incomeAddCmd())
	cmd.AddCommand(incomeListCmd())
	cmd.AddCommand(incomeDeleteCmd())
	return cmd
}

func incomeAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <source> <amount>",
		Short: "Record an income entry",
		Args:  cobra.ExactArgs(2),
		RunE:  runIncomeAdd,
	}

	cmd.Flags().String("date", "", "entry date (YYYY-MM-DD, default today)")
	cmd.Flags().String("category", "", "income category (default: derived from source)")
	return cmd
}

func runIncomeAdd(cmd *cobra.Command, args []string) error {
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
		category = classify.NormalizeIncomeCategory(args[0])
	}

	store, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entry := &model.Entry{
		Owner:    owner,
		Kind:     model.KindIncome,
		Name:     args[0],
		Amount:   amount,
		Date:     date,
		Category: category,
	}
	if err := store.CreateEntry(cmd.Context(), entry); err != nil {
		return fmt.Errorf("failed to record income: %w", err)
	}

	cmd.Printf("recorded income %d: %s %s (%s)\n", entry.ID, entry.Name, entry.Amount, entry.Category)
	return nil
}

func incomeListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List income entries, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEntryList(cmd, model.KindIncome)
		},
	}

	cmd.Flags().String("from", "", "start date (YYYY-MM-DD, inclusive)")
	cmd.Flags().String("to", "", "end date (YYYY-MM-DD, exclusive)")
	cmd.Flags().Int("limit", 50, "maximum rows")
	return cmd
}

func incomeDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete income entries by ID",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntryDelete(cmd, args)
		},
	}
}

// runEntryList is shared by the income and expense list commands.
func runEntryList(cmd *cobra.Command, kind model.EntryKind) error {
	owner, err := requireOwner()
	if err != nil {
		return err
	}

	filter := service.EntryFilter{Kind: kind}
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		t, err := parseDateFlag(from)
		if err != nil {
			return err
		}
		filter.Start = &t
	}
	if to, _ := cmd.Flags().GetString("to"); to != "" {
		t, err := parseDateFlag(to)
		if err != nil {
			return err
		}
		filter.End = &t
	}
	filter.Limit, _ = cmd.Flags().GetInt("limit")

	store, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.ListEntries(cmd.Context(), owner, filter)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		cmd.Printf("no %s entries\n", kind)
		return nil
	}

	for _, e := range entries {
		cmd.Printf("%6d  %s  %10s  %-24s %s\n",
			e.ID, e.Date.Format("2006-01-02"), e.Amount.StringFixed(2), e.Name, e.Category)
	}
	return nil
}

// runEntryDelete is shared by the income and expense delete commands.
func runEntryDelete(cmd *cobra.Command, args []string) error {
	owner, err := requireOwner()
	if err != nil {
		return err
	}
	ids, err := parseIDArgs(args)
	if err != nil {
		return err
	}

	store, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	deleted, err := store.DeleteEntries(cmd.Context(), owner, ids)
	if err != nil {
		return err
	}
	cmd.Printf("deleted %d entries\n", deleted)
	return nil
}
