package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency controls how far a recurring template's due date advances on
// each materialization.
type Frequency string

const (
	// FrequencyDaily advances the due date by one day.
	FrequencyDaily Frequency = "daily"
	// FrequencyWeekly advances the due date by seven days.
	FrequencyWeekly Frequency = "weekly"
	// FrequencyMonthly advances the due date by one calendar month.
	FrequencyMonthly Frequency = "monthly"
	// FrequencyQuarterly advances the due date by three calendar months.
	FrequencyQuarterly Frequency = "quarterly"
	// FrequencyBiannual advances the due date by six calendar months.
	FrequencyBiannual Frequency = "biannual"
	// FrequencyAnnual advances the due date by twelve calendar months.
	FrequencyAnnual Frequency = "annual"
)

// ErrUnknownFrequency reports a frequency token the scheduler cannot step.
// Templates carrying one are flagged invalid instead of stalling silently.
var ErrUnknownFrequency = fmt.Errorf("unknown frequency")

// Valid reports whether the frequency is a recognized token.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly,
		FrequencyQuarterly, FrequencyBiannual, FrequencyAnnual:
		return true
	}
	return false
}

// Next returns the due date one frequency step after t. Month-based steps
// preserve the day of month, clamping to the last day when the target month
// is shorter.
func (f Frequency) Next(t time.Time) (time.Time, error) {
	switch f {
	case FrequencyDaily:
		return t.AddDate(0, 0, 1), nil
	case FrequencyWeekly:
		return t.AddDate(0, 0, 7), nil
	case FrequencyMonthly:
		return addMonthsClamped(t, 1), nil
	case FrequencyQuarterly:
		return addMonthsClamped(t, 3), nil
	case FrequencyBiannual:
		return addMonthsClamped(t, 6), nil
	case FrequencyAnnual:
		return addMonthsClamped(t, 12), nil
	default:
		return t, fmt.Errorf("%w: %q", ErrUnknownFrequency, string(f))
	}
}

// addMonthsClamped adds calendar months without the normalization overflow
// of time.AddDate (Jan 31 + 1 month = Feb 28/29, not Mar 3).
func addMonthsClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	day := t.Day()
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}

// TemplateStatus tracks the materialization state of a recurring expense
// template. Income templates are always active.
type TemplateStatus string

const (
	// StatusActive marks a template that materialized on its last attempt.
	StatusActive TemplateStatus = "active"
	// StatusPending marks an expense template blocked by affordability;
	// it is retried on every future pass.
	StatusPending TemplateStatus = "pending"
	// StatusInvalid marks a template with an unrecognized frequency. It is
	// excluded from processing until corrected.
	StatusInvalid TemplateStatus = "invalid"
)

// RecurringTemplate generates ledger entries on a schedule. NextDue only
// advances after a successful materialization and never moves backward.
type RecurringTemplate struct {
	NextDue   time.Time
	CreatedAt time.Time
	EndDate   *time.Time
	Owner     string
	Kind      EntryKind
	Name      string
	Category  string
	Frequency Frequency
	Status    TemplateStatus
	Amount    decimal.Decimal
	ID        int64
}

// DueAt reports whether the template should materialize at asOf: its due
// date has arrived and, when an end date is set, has not passed it.
func (t *RecurringTemplate) DueAt(asOf time.Time) bool {
	if t.NextDue.After(asOf) {
		return false
	}
	return !t.Expired()
}

// Expired reports whether the template's due date has moved past its end
// date. Expired templates are skipped and never advanced.
func (t *RecurringTemplate) Expired() bool {
	return t.EndDate != nil && t.NextDue.After(*t.EndDate)
}
