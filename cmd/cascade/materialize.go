package main

import (
	"github.com/avelier/cascade/internal/engine"
	"github.com/spf13/cobra"
)

func materializeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Convert due recurring templates into ledger entries",
		Long: `Convert every due recurring template into concrete ledger entries,
one entry per elapsed period. Expense templates that lifetime income
cannot cover go pending and are retried on every later run.`,
		RunE: runMaterialize,
	}

	cmd.Flags().String("as-of", "", "materialize due dates up to this date (YYYY-MM-DD, default today)")
	return cmd
}

func runMaterialize(cmd *cobra.Command, _ []string) error {
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

	result, err := engine.New(store).Materialize(cmd.Context(), owner, asOf)
	if err != nil {
		return err
	}

	cmd.Printf("created %d entries, %d templates pending\n",
		result.EntriesCreated, result.PendingBlocked)
	for _, cfgErr := range result.ConfigErrors {
		cmd.Printf("config error: %v\n", cfgErr)
	}
	return nil
}
