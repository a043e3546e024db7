package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avelier/cascade/internal/model"
)

// GetTracker returns the owner's surplus tracker, or a zeroed tracker when
// no waterfall pass has run yet.
func (s *SQLiteStorage) GetTracker(ctx context.Context, owner string) (*model.SurplusTracker, error) {
	return getTracker(ctx, s.db, owner)
}

func (t *sqliteTransaction) GetTracker(ctx context.Context, owner string) (*model.SurplusTracker, error) {
	return getTracker(ctx, t.tx, owner)
}

func getTracker(ctx context.Context, q queryer, owner string) (*model.SurplusTracker, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return nil, err
	}

	tracker := &model.SurplusTracker{Owner: owner}
	var cents int64

	err := q.QueryRowContext(ctx, `
		SELECT accumulated_cents, last_applied_month, last_applied_year
		FROM surplus_trackers
		WHERE owner = ?`, owner).
		Scan(&cents, &tracker.LastAppliedMonth, &tracker.LastAppliedYear)
	if err == sql.ErrNoRows {
		tracker.AccumulatedBalance = fromCents(0)
		return tracker, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query surplus tracker: %w", err)
	}

	tracker.AccumulatedBalance = fromCents(cents)
	return tracker, nil
}

// UpsertTracker writes the owner's surplus tracker state.
func (s *SQLiteStorage) UpsertTracker(ctx context.Context, tracker *model.SurplusTracker) error {
	return upsertTracker(ctx, s.db, tracker)
}

func (t *sqliteTransaction) UpsertTracker(ctx context.Context, tracker *model.SurplusTracker) error {
	return upsertTracker(ctx, t.tx, tracker)
}

func upsertTracker(ctx context.Context, q queryer, tracker *model.SurplusTracker) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if tracker == nil {
		return fmt.Errorf("%w: tracker", ErrNilParameter)
	}
	if err := validateString(tracker.Owner, "owner"); err != nil {
		return err
	}
	if tracker.AccumulatedBalance.IsNegative() {
		return fmt.Errorf("%w: negative accumulated balance", ErrInvalidAmount)
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO surplus_trackers (owner, accumulated_cents, last_applied_month, last_applied_year)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner) DO UPDATE SET
			accumulated_cents = excluded.accumulated_cents,
			last_applied_month = excluded.last_applied_month,
			last_applied_year = excluded.last_applied_year`,
		tracker.Owner, toCents(tracker.AccumulatedBalance),
		tracker.LastAppliedMonth, tracker.LastAppliedYear)
	if err != nil {
		return fmt.Errorf("failed to upsert surplus tracker: %w", err)
	}
	return nil
}
