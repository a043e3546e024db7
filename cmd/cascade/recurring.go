package main

import (
	"fmt"

	"github.com/avelier/cascade/internal/model"
	"github.com/spf13/cobra"
)

func recurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Manage recurring income and expense templates",
	}

	cmd.AddCommand(recurringAddCmd())
	cmd.AddCommand(recurringListCmd())
	cmd.AddCommand(recurringDeleteCmd())
	return cmd
}

func recurringAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name> <amount>",
		Short: "Create a recurring template",
		Long: `Create a recurring template that materializes ledger entries on a
schedule. The first entry is due on --start (default today); run
"cascade materialize" to convert due templates into entries.`,
		Args: cobra.ExactArgs(2),
		RunE: runRecurringAdd,
	}

	cmd.Flags().String("kind", "expense", "template kind (income, expense)")
	cmd.Flags().String("frequency", "monthly", "daily, weekly, monthly, quarterly, biannual, annual")
	cmd.Flags().String("start", "", "first due date (YYYY-MM-DD, default today)")
	cmd.Flags().String("end", "", "optional end date (YYYY-MM-DD)")
	cmd.Flags().String("category", "", "entry category")
	return cmd
}

func runRecurringAdd(cmd *cobra.Command, args []string) error {
	owner, err := requireOwner()
	if err != nil {
		return err
	}
	amount, err := parseAmountArg(args[1])
	if err != nil {
		return err
	}

	kindFlag, _ := cmd.Flags().GetString("kind")
	kind := model.EntryKind(kindFlag)
	if kind != model.KindIncome && kind != model.KindExpense {
		return fmt.Errorf("invalid kind %q (want income or expense)", kindFlag)
	}

	freqFlag, _ := cmd.Flags().GetString("frequency")
	frequency := model.Frequency(freqFlag)
	if !frequency.Valid() {
		return fmt.Errorf("invalid frequency %q", freqFlag)
	}

	startFlag, _ := cmd.Flags().GetString("start")
	start, err := parseDateFlag(startFlag)
	if err != nil {
		return err
	}

	tmpl := &model.RecurringTemplate{
		Owner:     owner,
		Kind:      kind,
		Name:      args[0],
		Amount:    amount,
		Frequency: frequency,
		NextDue:   start,
		Status:    model.StatusActive,
	}
	if endFlag, _ := cmd.Flags().GetString("end"); endFlag != "" {
		end, err := parseDateFlag(endFlag)
		if err != nil {
			return err
		}
		tmpl.EndDate = &end
	}
	tmpl.Category, _ = cmd.Flags().GetString("category")

	store, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.CreateTemplate(cmd.Context(), tmpl); err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}

	cmd.Printf("created %s template %d: %s %s %s, next due %s\n",
		tmpl.Kind, tmpl.ID, tmpl.Name, tmpl.Amount, tmpl.Frequency,
		tmpl.NextDue.Format("2006-01-02"))
	return nil
}

func recurringListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recurring templates, due-soonest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := requireOwner()
			if err != nil {
				return err
			}

			store, err := openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			templates, err := store.ListTemplates(cmd.Context(), owner)
			if err != nil {
				return err
			}
			if len(templates) == 0 {
				cmd.Println("no recurring templates")
				return nil
			}

			for _, t := range templates {
				end := ""
				if t.EndDate != nil {
					end = " until " + t.EndDate.Format("2006-01-02")
				}
				cmd.Printf("%6d  %-7s %-9s %10s  %-24s due %s%s [%s]\n",
					t.ID, t.Kind, t.Frequency, t.Amount.StringFixed(2), t.Name,
					t.NextDue.Format("2006-01-02"), end, t.Status)
			}
			return nil
		},
	}
}

func recurringDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recurring template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if err := store.DeleteTemplate(cmd.Context(), owner, ids[0]); err != nil {
				return err
			}
			cmd.Printf("deleted template %d\n", ids[0])
			return nil
		},
	}
}
