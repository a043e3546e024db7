package importer

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/avelier/cascade/internal/classify"
	"github.com/avelier/cascade/internal/model"
	"github.com/avelier/cascade/internal/service"
	"github.com/avelier/cascade/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func seedIncome(t *testing.T, store *storage.SQLiteStorage, owner, amount string) {
	t.Helper()
	require.NoError(t, store.CreateEntry(context.Background(), &model.Entry{
		Owner:  owner,
		Kind:   model.KindIncome,
		Name:   "Seed",
		Amount: decimal.RequireFromString(amount),
		Date:   time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
	}))
}

func TestCSVImport_IncomeHeaderVariants(t *testing.T) {
	store := newTestStorage(t)
	imp := NewCSVImporter(store, classify.NewKeywordClassifier())

	csvData := strings.Join([]string{
		"Transaction_Date,Source_Name,Amount_Received,Type",
		"2025-03-01,Acme Corp,2500.00,paycheck",
		"03/15/2025,Side project,400,freelance",
	}, "\n")

	result, err := imp.Import(context.Background(), "lena", model.KindIncome,
		strings.NewReader(csvData), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Zero(t, result.Skipped)

	entries, err := store.ListEntries(context.Background(), "lena", service.EntryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Side project", entries[0].Name)
	assert.Equal(t, "Freelance", entries[0].Category)
	assert.Equal(t, "Salary", entries[1].Category)
	assert.True(t, entries[1].Date.Equal(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCSVImport_SkipsBadRows(t *testing.T) {
	store := newTestStorage(t)
	imp := NewCSVImporter(store, classify.NewKeywordClassifier())
	seedIncome(t, store, "lena", "10000.00")

	csvData := strings.Join([]string{
		"Date,Description,Amount",
		"2025-03-01,Groceries,63.47",
		"not-a-date,Rent,900.00",
		"2025-03-03,,12.00",
		"2025-03-04,Coffee,garbage",
		"2025-03-05,Cinema,0",
	}, "\n")

	result, err := imp.Import(context.Background(), "lena", model.KindExpense,
		strings.NewReader(csvData), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 4, result.Skipped)
}

func TestCSVImport_ExpenseAffordabilityBlocks(t *testing.T) {
	store := newTestStorage(t)
	imp := NewCSVImporter(store, classify.NewKeywordClassifier())
	seedIncome(t, store, "lena", "100.00")

	csvData := strings.Join([]string{
		"Date,Description,Amount",
		"2025-03-01,Groceries,60.00",
		"2025-03-02,Rent,900.00",
		"2025-03-03,Coffee,5.00",
	}, "\n")

	result, err := imp.Import(context.Background(), "lena", model.KindExpense,
		strings.NewReader(csvData), io.Discard)
	require.NoError(t, err)
	// Rent exceeds income and is blocked; the smaller rows still land.
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Blocked)

	total, err := store.SumEntries(context.Background(), "lena", model.KindExpense, nil, nil)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("65.00")))
}

func TestCSVImport_DebitCreditColumns(t *testing.T) {
	store := newTestStorage(t)
	imp := NewCSVImporter(store, classify.NewKeywordClassifier())
	seedIncome(t, store, "lena", "1000.00")

	csvData := strings.Join([]string{
		"Date,Description,Debit,Credit",
		"2025-03-01,Supermarket,75.20,",
		"2025-03-02,Refund from store,,20.00",
	}, "\n")

	result, err := imp.Import(context.Background(), "lena", model.KindExpense,
		strings.NewReader(csvData), io.Discard)
	require.NoError(t, err)
	// Credits are not expenses.
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Skipped)

	entries, err := store.ListEntries(context.Background(), "lena",
		service.EntryFilter{Kind: model.KindExpense})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Food & Dining", entries[0].Category)
}
