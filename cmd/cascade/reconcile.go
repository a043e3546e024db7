package main

import (
	"fmt"
	"time"

	"github.com/avelier/cascade/internal/engine"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run the monthly surplus waterfall",
		Long: `Compute the accumulated surplus and pour it through the savings goals
in priority order. At most one pass mutates goal balances per calendar
month; re-running in the same month reports the stored figures.`,
		RunE: runReconcile,
	}

	cmd.Flags().Bool("all", false, "reconcile every owner in the database")
	cmd.Flags().String("as-of", "", "reconcile as of this date (YYYY-MM-DD, default today)")
	return cmd
}

func runReconcile(cmd *cobra.Command, _ []string) error {
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

	eng := engine.New(store)
	ctx := cmd.Context()

	all, _ := cmd.Flags().GetBool("all")
	if !all {
		owner, err := requireOwner()
		if err != nil {
			return err
		}
		return reconcileOwner(cmd, eng, owner, asOf)
	}

	owners, err := store.Owners(ctx)
	if err != nil {
		return err
	}
	if len(owners) == 0 {
		cmd.Println("no owners")
		return nil
	}

	// Owners are independent; sweep them in parallel.
	g, gctx := errgroup.WithContext(ctx)
	summaries := make([]string, len(owners))
	for i, owner := range owners {
		i, owner := i, owner
		g.Go(func() error {
			summary, err := eng.Reconcile(gctx, owner, asOf)
			if err != nil {
				return fmt.Errorf("reconcile %s: %w", owner, err)
			}
			summaries[i] = fmt.Sprintf("%s: accumulated %s, this month %s",
				owner, summary.AccumulatedBalance.StringFixed(2),
				summary.CurrentMonthBalance.StringFixed(2))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, line := range summaries {
		cmd.Println(line)
	}
	return nil
}

func reconcileOwner(cmd *cobra.Command, eng *engine.Engine, owner string, asOf time.Time) error {
	summary, err := eng.Reconcile(cmd.Context(), owner, asOf)
	if err != nil {
		return err
	}
	cmd.Printf("accumulated surplus: %s\n", summary.AccumulatedBalance.StringFixed(2))
	cmd.Printf("current month balance: %s\n", summary.CurrentMonthBalance.StringFixed(2))
	return nil
}
