package main

import (
	"fmt"

	"github.com/avelier/cascade/internal/model"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage auto-savings rules",
		Long: `Auto-savings rules move a percentage of each month's income into a
goal on a schedule, independent of the surplus waterfall.`,
	}

	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesDeleteCmd())
	return cmd
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <goal-id> <percentage>",
		Short: "Create an auto-savings rule for a goal",
		Args:  cobra.ExactArgs(2),
		RunE:  runRulesAdd,
	}

	cmd.Flags().String("frequency", "monthly", "monthly, quarterly, biannual, annual")
	return cmd
}

func runRulesAdd(cmd *cobra.Command, args []string) error {
	owner, err := requireOwner()
	if err != nil {
		return err
	}
	ids, err := parseIDArgs(args[:1])
	if err != nil {
		return err
	}
	percentage, err := decimal.NewFromString(args[1])
	if err != nil {
		return fmt.Errorf("invalid percentage %q: %w", args[1], err)
	}

	freqFlag, _ := cmd.Flags().GetString("frequency")
	frequency := model.RuleFrequency(freqFlag)
	if !frequency.Valid() {
		return fmt.Errorf("invalid frequency %q", freqFlag)
	}

	store, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rule := &model.AutoSavingsRule{
		Owner:      owner,
		GoalID:     ids[0],
		Percentage: percentage,
		Frequency:  frequency,
	}
	if err := store.CreateRule(cmd.Context(), rule); err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	cmd.Printf("created rule %d: %s%% of monthly income to goal %d (%s)\n",
		rule.ID, rule.Percentage, rule.GoalID, rule.Frequency)
	return nil
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List auto-savings rules",
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

			rules, err := store.ListRules(cmd.Context(), owner)
			if err != nil {
				return err
			}
			if len(rules) == 0 {
				cmd.Println("no auto-savings rules")
				return nil
			}

			for _, r := range rules {
				last := "never"
				if r.LastApplied != nil {
					last = r.LastApplied.Format("2006-01-02")
				}
				cmd.Printf("%6d  goal %-6d %6s%%  %-9s last applied %s\n",
					r.ID, r.GoalID, r.Percentage, r.Frequency, last)
			}
			return nil
		},
	}
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an auto-savings rule",
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

			if err := store.DeleteRule(cmd.Context(), owner, ids[0]); err != nil {
				return err
			}
			cmd.Printf("deleted rule %d\n", ids[0])
			return nil
		},
	}
}
