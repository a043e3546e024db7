package main

import (
	"fmt"
	"time"

	"github.com/avelier/cascade/internal/engine"
	"github.com/avelier/cascade/internal/forecast"
	"github.com/avelier/cascade/internal/model"
	"github.com/avelier/cascade/internal/service"
	"github.com/spf13/cobra"
)

func goalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Manage savings goals",
	}

	cmd.AddCommand(goalsAddCmd())
	cmd.AddCommand(goalsListCmd())
	cmd.AddCommand(goalsDeleteCmd())
	cmd.AddCommand(goalsHistoryCmd())
	return cmd
}

func goalsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name> <target>",
		Short: "Create a savings goal",
		Args:  cobra.ExactArgs(2),
		RunE:  runGoalsAdd,
	}

	cmd.Flags().String("priority", "medium", "allocation priority (high, medium, low)")
	cmd.Flags().String("deadline", "", "optional deadline (YYYY-MM-DD)")
	return cmd
}

func runGoalsAdd(cmd *cobra.Command, args []string) error {
	owner, err := requireOwner()
	if err != nil {
		return err
	}
	target, err := parseAmountArg(args[1])
	if err != nil {
		return err
	}

	priorityFlag, _ := cmd.Flags().GetString("priority")
	priority, ok := model.ParsePriority(priorityFlag)
	if !ok {
		return fmt.Errorf("invalid priority %q (want high, medium, or low)", priorityFlag)
	}

	goal := &model.SavingsGoal{
		Owner:        owner,
		Name:         args[0],
		TargetAmount: target,
		Priority:     priority,
	}
	if deadlineFlag, _ := cmd.Flags().GetString("deadline"); deadlineFlag != "" {
		deadline, err := parseDateFlag(deadlineFlag)
		if err != nil {
			return err
		}
		goal.Deadline = &deadline
	}

	store, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.CreateGoal(cmd.Context(), goal); err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}

	cmd.Printf("created goal %d: %s, target %s, priority %s\n",
		goal.ID, goal.Name, goal.TargetAmount, goal.Priority)
	return nil
}

func goalsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List savings goals by priority tier",
		RunE:  runGoalsList,
	}

	cmd.Flags().Bool("outlook", false, "estimate each goal's odds of meeting its deadline")
	return cmd
}

func runGoalsList(cmd *cobra.Command, _ []string) error {
	owner, err := requireOwner()
	if err != nil {
		return err
	}

	store, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	goals, err := store.ListGoals(cmd.Context(), owner, service.GoalFilter{})
	if err != nil {
		return err
	}
	if len(goals) == 0 {
		cmd.Println("no savings goals")
		return nil
	}

	outlook, _ := cmd.Flags().GetBool("outlook")
	var pred *forecast.Probability
	var asOf time.Time
	if outlook {
		pred = forecast.NewProbability(store)
		if asOf, err = parseDateFlag(""); err != nil {
			return err
		}
	}

	for _, g := range goals {
		status := ""
		if g.Completed() {
			status = " ✔"
		}
		cmd.Printf("%6d  %-6s %10s / %-10s %5s%%  %s%s\n",
			g.ID, g.Priority, g.CurrentAmount.StringFixed(2),
			g.TargetAmount.StringFixed(2), g.Progress(), g.Name, status)

		if pred == nil {
			continue
		}
		o, err := pred.PredictGoal(cmd.Context(), owner, g, asOf)
		if err != nil {
			return err
		}
		suggested := "--"
		if o.SuggestedDeadline != nil {
			suggested = o.SuggestedDeadline.Format("2006-01-02")
		}
		cmd.Printf("        odds %s%%, on pace for %s, likely final balance %s to %s\n",
			o.Probability.StringFixed(0), suggested,
			o.ConfidenceLow.StringFixed(2), o.ConfidenceHigh.StringFixed(2))
	}
	return nil
}

func goalsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete savings goals, refunding their balances",
		Long: `Delete savings goals. Any amount already saved toward the deleted
goals is refunded to the accumulated surplus, where the next monthly
reconcile redistributes it across the remaining goals.`,
		Args: cobra.MinimumNArgs(1),
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

			count, refund, err := engine.New(store).DeleteGoalsWithRefund(cmd.Context(), owner, ids)
			if err != nil {
				return err
			}
			cmd.Printf("deleted %d goals, refunded %s to accumulated surplus\n",
				count, refund.StringFixed(2))
			return nil
		},
	}
}

func goalsHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <goal-id>",
		Short: "Show a goal's balance history",
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

			history, err := store.ListGoalHistory(cmd.Context(), owner, ids[0])
			if err != nil {
				return err
			}
			if len(history) == 0 {
				cmd.Println("no history")
				return nil
			}

			for _, h := range history {
				cmd.Printf("%s  %-8s %10s\n",
					h.CreatedAt.Format("2006-01-02"), h.Action, h.Amount.StringFixed(2))
			}
			return nil
		},
	}
}
