package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avelier/cascade/internal/model"
	"github.com/avelier/cascade/internal/service"
	"github.com/shopspring/decimal"
)

// CreateEntry inserts a new ledger entry.
func (s *SQLiteStorage) CreateEntry(ctx context.Context, entry *model.Entry) error {
	return createEntry(ctx, s.db, entry)
}

func (t *sqliteTransaction) CreateEntry(ctx context.Context, entry *model.Entry) error {
	return createEntry(ctx, t.tx, entry)
}

func createEntry(ctx context.Context, q queryer, entry *model.Entry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEntry(entry); err != nil {
		return err
	}

	query := `
		INSERT INTO entries (owner, kind, name, amount_cents, date, category)
		VALUES (?, ?, ?, ?, ?, ?)`

	result, err := q.ExecContext(ctx, query,
		entry.Owner, string(entry.Kind), entry.Name,
		toCents(entry.Amount), dateOnly(entry.Date), entry.Category)
	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get entry ID: %w", err)
	}
	entry.ID = id
	entry.Date = dateOnly(entry.Date)

	return nil
}

// ListEntries returns an owner's ledger entries, most recent first.
func (s *SQLiteStorage) ListEntries(ctx context.Context, owner string, filter service.EntryFilter) ([]model.Entry, error) {
	return listEntries(ctx, s.db, owner, filter)
}

func (t *sqliteTransaction) ListEntries(ctx context.Context, owner string, filter service.EntryFilter) ([]model.Entry, error) {
	return listEntries(ctx, t.tx, owner, filter)
}

func listEntries(ctx context.Context, q queryer, owner string, filter service.EntryFilter) ([]model.Entry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return nil, err
	}
	if filter.Start != nil && filter.End != nil && filter.End.Before(*filter.Start) {
		return nil, ErrInvalidDateRange
	}

	query := `
		SELECT id, owner, kind, name, amount_cents, date, category, created_at
		FROM entries
		WHERE owner = ?`
	args := []any{owner}

	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.Start != nil {
		query += ` AND date >= ?`
		args = append(args, dateOnly(*filter.Start))
	}
	if filter.End != nil {
		query += ` AND date < ?`
		args = append(args, dateOnly(*filter.End))
	}

	query += ` ORDER BY date DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []model.Entry
	for rows.Next() {
		var e model.Entry
		var kind string
		var cents int64
		if err := rows.Scan(&e.ID, &e.Owner, &kind, &e.Name, &cents, &e.Date, &e.Category, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Kind = model.EntryKind(kind)
		e.Amount = fromCents(cents)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return entries, nil
}

// DeleteEntries removes an owner's entries by ID and reports how many rows
// were deleted.
func (s *SQLiteStorage) DeleteEntries(ctx context.Context, owner string, ids []int64) (int64, error) {
	return deleteEntries(ctx, s.db, owner, ids)
}

func (t *sqliteTransaction) DeleteEntries(ctx context.Context, owner string, ids []int64) (int64, error) {
	return deleteEntries(ctx, t.tx, owner, ids)
}

func deleteEntries(ctx context.Context, q queryer, owner string, ids []int64) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: ids", ErrEmptySlice)
	}

	query := fmt.Sprintf(
		`DELETE FROM entries WHERE owner = ? AND id IN (%s)`, placeholders(len(ids)))
	args := make([]any, 0, len(ids)+1)
	args = append(args, owner)
	for _, id := range ids {
		args = append(args, id)
	}

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete entries: %w", err)
	}
	return result.RowsAffected()
}

// SumEntries totals amounts of the owner's entries of one kind with dates
// in [start, end). Nil bounds are open.
func (s *SQLiteStorage) SumEntries(ctx context.Context, owner string, kind model.EntryKind, start, end *time.Time) (decimal.Decimal, error) {
	return sumEntries(ctx, s.db, owner, kind, start, end)
}

func (t *sqliteTransaction) SumEntries(ctx context.Context, owner string, kind model.EntryKind, start, end *time.Time) (decimal.Decimal, error) {
	return sumEntries(ctx, t.tx, owner, kind, start, end)
}

func sumEntries(ctx context.Context, q queryer, owner string, kind model.EntryKind, start, end *time.Time) (decimal.Decimal, error) {
	if err := validateContext(ctx); err != nil {
		return decimal.Zero, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return decimal.Zero, err
	}

	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM entries WHERE owner = ? AND kind = ?`
	args := []any{owner, string(kind)}

	if start != nil {
		query += ` AND date >= ?`
		args = append(args, dateOnly(*start))
	}
	if end != nil {
		query += ` AND date < ?`
		args = append(args, dateOnly(*end))
	}

	var cents int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&cents); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum entries: %w", err)
	}
	return fromCents(cents), nil
}

// placeholders returns n comma-separated SQL placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
