package main

import (
	"fmt"
	"os"

	"github.com/avelier/cascade/internal/classify"
	"github.com/avelier/cascade/internal/importer"
	"github.com/avelier/cascade/internal/model"
	"github.com/spf13/cobra"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import entries from CSV exports or OFX/QFX statements",
	}

	cmd.AddCommand(importCSVCmd())
	cmd.AddCommand(importOFXCmd())
	return cmd
}

func importCSVCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csv <file>",
		Short: "Import income or expense rows from a CSV export",
		Long: `Import rows from a CSV export. Header names are matched against common
bank and spreadsheet spellings; rows with missing dates, names, or
amounts are skipped, and expense rows that would exceed lifetime income
are blocked.`,
		Args: cobra.ExactArgs(1),
		RunE: runImportCSV,
	}

	cmd.Flags().String("kind", "expense", "row kind (income, expense)")
	return cmd
}

func runImportCSV(cmd *cobra.Command, args []string) error {
	owner, err := requireOwner()
	if err != nil {
		return err
	}

	kindFlag, _ := cmd.Flags().GetString("kind")
	kind := model.EntryKind(kindFlag)
	if kind != model.KindIncome && kind != model.KindExpense {
		return fmt.Errorf("invalid kind %q (want income or expense)", kindFlag)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = f.Close() }()

	store, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	imp := importer.NewCSVImporter(store, classify.NewKeywordClassifier())
	result, err := imp.Import(cmd.Context(), owner, kind, f, cmd.OutOrStderr())
	if err != nil {
		return err
	}

	cmd.Printf("\nimported %d rows, skipped %d, blocked %d\n",
		result.Imported, result.Skipped, result.Blocked)
	return nil
}

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ofx <file>",
		Short: "Import bank transactions from an OFX/QFX statement",
		Long: `Import an OFX/QFX statement: debits become expense entries and credits
become income entries. Transactions already in the ledger are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().Bool("dry-run", false, "parse and report without writing anything")
	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	owner, err := requireOwner()
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = f.Close() }()

	store, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	imp := importer.NewOFXImporter(store, classify.NewKeywordClassifier())
	result, err := imp.Import(cmd.Context(), owner, f, dryRun)
	if err != nil {
		return err
	}

	if dryRun {
		cmd.Printf("would import %d transactions (%d duplicates)\n",
			result.Imported, result.Duplicates)
		return nil
	}
	cmd.Printf("imported %d transactions, %d duplicates skipped\n",
		result.Imported, result.Duplicates)
	return nil
}
