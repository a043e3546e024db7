package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SurplusTracker is the per-owner allocation state: the accumulated surplus
// not yet converted into goal deposits, and the last calendar month a
// waterfall pass ran. At most one pass mutates goal balances per calendar
// month per owner.
type SurplusTracker struct {
	Owner              string
	AccumulatedBalance decimal.Decimal
	LastAppliedMonth   int
	LastAppliedYear    int
}

// AppliedIn reports whether a waterfall pass already ran in the calendar
// month containing t. The stamp is recorded in UTC, so t is normalized
// before comparing.
func (s *SurplusTracker) AppliedIn(t time.Time) bool {
	u := t.UTC()
	return s.LastAppliedYear == u.Year() && s.LastAppliedMonth == int(u.Month())
}
