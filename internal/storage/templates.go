package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avelier/cascade/internal/common"
	"github.com/avelier/cascade/internal/model"
)

// CreateTemplate inserts a recurring template.
func (s *SQLiteStorage) CreateTemplate(ctx context.Context, tmpl *model.RecurringTemplate) error {
	return createTemplate(ctx, s.db, tmpl)
}

func (t *sqliteTransaction) CreateTemplate(ctx context.Context, tmpl *model.RecurringTemplate) error {
	return createTemplate(ctx, t.tx, tmpl)
}

func createTemplate(ctx context.Context, q queryer, tmpl *model.RecurringTemplate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTemplate(tmpl); err != nil {
		return err
	}
	if tmpl.Status == "" {
		tmpl.Status = model.StatusActive
	}

	query := `
		INSERT INTO recurring_templates
			(owner, kind, name, amount_cents, category, frequency, next_due, end_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := q.ExecContext(ctx, query,
		tmpl.Owner, string(tmpl.Kind), tmpl.Name, toCents(tmpl.Amount),
		tmpl.Category, string(tmpl.Frequency), dateOnly(tmpl.NextDue),
		nullTime(tmpl.EndDate), string(tmpl.Status))
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get template ID: %w", err)
	}
	tmpl.ID = id
	tmpl.NextDue = dateOnly(tmpl.NextDue)

	return nil
}

// ListTemplates returns all of an owner's recurring templates, due-soonest
// first.
func (s *SQLiteStorage) ListTemplates(ctx context.Context, owner string) ([]model.RecurringTemplate, error) {
	return listTemplates(ctx, s.db, owner)
}

func (t *sqliteTransaction) ListTemplates(ctx context.Context, owner string) ([]model.RecurringTemplate, error) {
	return listTemplates(ctx, t.tx, owner)
}

func listTemplates(ctx context.Context, q queryer, owner string) ([]model.RecurringTemplate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, owner, kind, name, amount_cents, category, frequency,
		       next_due, end_date, status, created_at
		FROM recurring_templates
		WHERE owner = ?
		ORDER BY next_due ASC, id ASC`

	rows, err := q.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var templates []model.RecurringTemplate
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}
	return templates, nil
}

func scanTemplate(rows *sql.Rows) (*model.RecurringTemplate, error) {
	var tmpl model.RecurringTemplate
	var kind, frequency, status string
	var cents int64
	var endDate sql.NullTime

	if err := rows.Scan(&tmpl.ID, &tmpl.Owner, &kind, &tmpl.Name, &cents,
		&tmpl.Category, &frequency, &tmpl.NextDue, &endDate, &status,
		&tmpl.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan template: %w", err)
	}

	tmpl.Kind = model.EntryKind(kind)
	tmpl.Frequency = model.Frequency(frequency)
	tmpl.Status = model.TemplateStatus(status)
	tmpl.Amount = fromCents(cents)
	tmpl.EndDate = timePtr(endDate)
	return &tmpl, nil
}

// UpdateTemplate rewrites a template's mutable fields. The owner on the
// template must match the stored row.
func (s *SQLiteStorage) UpdateTemplate(ctx context.Context, tmpl *model.RecurringTemplate) error {
	return updateTemplate(ctx, s.db, tmpl)
}

func (t *sqliteTransaction) UpdateTemplate(ctx context.Context, tmpl *model.RecurringTemplate) error {
	return updateTemplate(ctx, t.tx, tmpl)
}

func updateTemplate(ctx context.Context, q queryer, tmpl *model.RecurringTemplate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTemplate(tmpl); err != nil {
		return err
	}
	if tmpl.ID == 0 {
		return fmt.Errorf("%w: template ID", ErrNilParameter)
	}

	query := `
		UPDATE recurring_templates
		SET name = ?, amount_cents = ?, category = ?, frequency = ?,
		    next_due = ?, end_date = ?, status = ?
		WHERE id = ? AND owner = ?`

	result, err := q.ExecContext(ctx, query,
		tmpl.Name, toCents(tmpl.Amount), tmpl.Category, string(tmpl.Frequency),
		dateOnly(tmpl.NextDue), nullTime(tmpl.EndDate), string(tmpl.Status),
		tmpl.ID, tmpl.Owner)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("template %d: %w", tmpl.ID, common.ErrNotFound)
	}
	return nil
}

// DeleteTemplate removes one of the owner's templates.
func (s *SQLiteStorage) DeleteTemplate(ctx context.Context, owner string, id int64) error {
	return deleteTemplate(ctx, s.db, owner, id)
}

func (t *sqliteTransaction) DeleteTemplate(ctx context.Context, owner string, id int64) error {
	return deleteTemplate(ctx, t.tx, owner, id)
}

func deleteTemplate(ctx context.Context, q queryer, owner string, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(owner, "owner"); err != nil {
		return err
	}

	result, err := q.ExecContext(ctx,
		`DELETE FROM recurring_templates WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("template %d: %w", id, common.ErrNotFound)
	}
	return nil
}
