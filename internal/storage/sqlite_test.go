package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/avelier/cascade/internal/common"
	"github.com/avelier/cascade/internal/model"
	"github.com/avelier/cascade/internal/service"
	"github.com/shopspring/decimal"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func testDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testEntry(owner string, kind model.EntryKind, name, amount string, date time.Time) *model.Entry {
	return &model.Entry{
		Owner:  owner,
		Kind:   kind,
		Name:   name,
		Amount: decimal.RequireFromString(amount),
		Date:   date,
	}
}

func TestSQLiteStorage_CreateAndListEntries(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	entries := []*model.Entry{
		testEntry("lena", model.KindIncome, "Salary", "2500.00", testDate(2025, time.March, 1)),
		testEntry("lena", model.KindExpense, "Rent", "900.00", testDate(2025, time.March, 2)),
		testEntry("lena", model.KindExpense, "Groceries", "63.47", testDate(2025, time.March, 5)),
		testEntry("marco", model.KindIncome, "Salary", "1800.00", testDate(2025, time.March, 1)),
	}
	for _, e := range entries {
		if err := store.CreateEntry(ctx, e); err != nil {
			t.Fatalf("CreateEntry(%s) failed: %v", e.Name, err)
		}
		if e.ID == 0 {
			t.Errorf("CreateEntry(%s) did not assign an ID", e.Name)
		}
	}

	got, err := store.ListEntries(ctx, "lena", service.EntryFilter{})
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListEntries returned %d entries, want 3", len(got))
	}
	// Most recent first.
	if got[0].Name != "Groceries" {
		t.Errorf("first entry = %q, want Groceries", got[0].Name)
	}
	if !got[0].Amount.Equal(decimal.RequireFromString("63.47")) {
		t.Errorf("amount round-trip = %s, want 63.47", got[0].Amount)
	}

	expenses, err := store.ListEntries(ctx, "lena", service.EntryFilter{Kind: model.KindExpense})
	if err != nil {
		t.Fatalf("ListEntries(expense) failed: %v", err)
	}
	if len(expenses) != 2 {
		t.Errorf("expense filter returned %d entries, want 2", len(expenses))
	}
}

func TestSQLiteStorage_SumEntriesHalfOpenRange(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	for _, e := range []*model.Entry{
		testEntry("lena", model.KindIncome, "Feb salary", "1000.00", testDate(2025, time.February, 28)),
		testEntry("lena", model.KindIncome, "Mar salary", "1000.00", testDate(2025, time.March, 1)),
		testEntry("lena", model.KindIncome, "Mar bonus", "250.50", testDate(2025, time.March, 31)),
		testEntry("lena", model.KindIncome, "Apr salary", "1000.00", testDate(2025, time.April, 1)),
	} {
		if err := store.CreateEntry(ctx, e); err != nil {
			t.Fatalf("CreateEntry failed: %v", err)
		}
	}

	start := testDate(2025, time.March, 1)
	end := testDate(2025, time.April, 1)
	sum, err := store.SumEntries(ctx, "lena", model.KindIncome, &start, &end)
	if err != nil {
		t.Fatalf("SumEntries failed: %v", err)
	}
	// March 1 included, April 1 excluded.
	if want := decimal.RequireFromString("1250.50"); !sum.Equal(want) {
		t.Errorf("SumEntries = %s, want %s", sum, want)
	}

	open, err := store.SumEntries(ctx, "lena", model.KindIncome, nil, nil)
	if err != nil {
		t.Fatalf("SumEntries(open) failed: %v", err)
	}
	if want := decimal.RequireFromString("3250.50"); !open.Equal(want) {
		t.Errorf("SumEntries(open) = %s, want %s", open, want)
	}
}

func TestSQLiteStorage_DeleteEntries(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	mine := testEntry("lena", model.KindExpense, "Coffee", "4.50", testDate(2025, time.March, 3))
	theirs := testEntry("marco", model.KindExpense, "Coffee", "4.50", testDate(2025, time.March, 3))
	for _, e := range []*model.Entry{mine, theirs} {
		if err := store.CreateEntry(ctx, e); err != nil {
			t.Fatalf("CreateEntry failed: %v", err)
		}
	}

	// Deleting with another owner's ID must not cross owner boundaries.
	deleted, err := store.DeleteEntries(ctx, "lena", []int64{mine.ID, theirs.ID})
	if err != nil {
		t.Fatalf("DeleteEntries failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteEntries removed %d rows, want 1", deleted)
	}

	remaining, err := store.ListEntries(ctx, "marco", service.EntryFilter{})
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(remaining) != 1 {
		t.Errorf("marco has %d entries after delete, want 1", len(remaining))
	}
}

func TestSQLiteStorage_TemplateRoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	end := testDate(2025, time.December, 31)
	tmpl := &model.RecurringTemplate{
		Owner:     "lena",
		Kind:      model.KindExpense,
		Name:      "Gym",
		Category:  "Health",
		Amount:    decimal.RequireFromString("35.00"),
		Frequency: model.FrequencyMonthly,
		NextDue:   testDate(2025, time.March, 15),
		EndDate:   &end,
	}
	if err := store.CreateTemplate(ctx, tmpl); err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}

	templates, err := store.ListTemplates(ctx, "lena")
	if err != nil {
		t.Fatalf("ListTemplates failed: %v", err)
	}
	if len(templates) != 1 {
		t.Fatalf("ListTemplates returned %d templates, want 1", len(templates))
	}
	got := templates[0]
	if got.Status != model.StatusActive {
		t.Errorf("new template status = %q, want active", got.Status)
	}
	if got.EndDate == nil || !got.EndDate.Equal(end) {
		t.Errorf("end date round-trip = %v, want %v", got.EndDate, end)
	}

	got.NextDue = testDate(2025, time.April, 15)
	got.Status = model.StatusPending
	if err := store.UpdateTemplate(ctx, &got); err != nil {
		t.Fatalf("UpdateTemplate failed: %v", err)
	}

	templates, err = store.ListTemplates(ctx, "lena")
	if err != nil {
		t.Fatalf("ListTemplates after update failed: %v", err)
	}
	if !templates[0].NextDue.Equal(testDate(2025, time.April, 15)) {
		t.Errorf("next due after update = %v, want 2025-04-15", templates[0].NextDue)
	}
	if templates[0].Status != model.StatusPending {
		t.Errorf("status after update = %q, want pending", templates[0].Status)
	}

	if err := store.DeleteTemplate(ctx, "marco", got.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("cross-owner delete error = %v, want ErrNotFound", err)
	}
	if err := store.DeleteTemplate(ctx, "lena", got.ID); err != nil {
		t.Fatalf("DeleteTemplate failed: %v", err)
	}
}

func TestSQLiteStorage_UnknownFrequencyIsStorable(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	// Unknown tokens are accepted at write time so the scheduler can flag
	// them as configuration errors instead of losing the row.
	tmpl := &model.RecurringTemplate{
		Owner:     "lena",
		Kind:      model.KindExpense,
		Name:      "Mystery",
		Amount:    decimal.RequireFromString("10.00"),
		Frequency: model.Frequency("fortnightly"),
		NextDue:   testDate(2025, time.March, 1),
	}
	if err := store.CreateTemplate(ctx, tmpl); err != nil {
		t.Fatalf("CreateTemplate with unknown frequency failed: %v", err)
	}

	templates, err := store.ListTemplates(ctx, "lena")
	if err != nil {
		t.Fatalf("ListTemplates failed: %v", err)
	}
	if templates[0].Frequency.Valid() {
		t.Errorf("frequency %q should not be valid", templates[0].Frequency)
	}
}

func TestSQLiteStorage_Owners(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.CreateEntry(ctx,
		testEntry("marco", model.KindIncome, "Salary", "100.00", testDate(2025, time.March, 1))); err != nil {
		t.Fatalf("CreateEntry failed: %v", err)
	}
	if err := store.CreateGoal(ctx, &model.SavingsGoal{
		Owner:        "lena",
		Name:         "Bike",
		TargetAmount: decimal.RequireFromString("500.00"),
		Priority:     model.PriorityMedium,
	}); err != nil {
		t.Fatalf("CreateGoal failed: %v", err)
	}

	owners, err := store.Owners(ctx)
	if err != nil {
		t.Fatalf("Owners failed: %v", err)
	}
	if len(owners) != 2 || owners[0] != "lena" || owners[1] != "marco" {
		t.Errorf("Owners = %v, want [lena marco]", owners)
	}
}

func TestSQLiteStorage_TransactionRollback(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatalf("BeginTx failed: %v", err)
	}
	if err := tx.CreateEntry(ctx,
		testEntry("lena", model.KindIncome, "Ghost", "50.00", testDate(2025, time.March, 1))); err != nil {
		t.Fatalf("CreateEntry in tx failed: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	got, err := store.ListEntries(ctx, "lena", service.EntryFilter{})
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("rolled-back entry is visible: %v", got)
	}
}

func TestSQLiteStorage_MigrateIsIdempotent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	version, err := store.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, ExpectedSchemaVersion)
	}
}
