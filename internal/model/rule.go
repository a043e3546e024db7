package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleFrequency controls how often an auto-savings rule fires.
type RuleFrequency string

const (
	// RuleMonthly fires after at least one full calendar month.
	RuleMonthly RuleFrequency = "monthly"
	// RuleQuarterly fires after at least three months.
	RuleQuarterly RuleFrequency = "quarterly"
	// RuleBiannual fires after at least six months.
	RuleBiannual RuleFrequency = "biannual"
	// RuleAnnual fires after at least twelve months.
	RuleAnnual RuleFrequency = "annual"
)

// Valid reports whether the rule frequency is recognized.
func (f RuleFrequency) Valid() bool {
	switch f {
	case RuleMonthly, RuleQuarterly, RuleBiannual, RuleAnnual:
		return true
	}
	return false
}

// months returns the gate threshold in whole months, or 0 for an
// unrecognized frequency (which then never fires).
func (f RuleFrequency) months() int {
	switch f {
	case RuleMonthly:
		return 1
	case RuleQuarterly:
		return 3
	case RuleBiannual:
		return 6
	case RuleAnnual:
		return 12
	}
	return 0
}

// AutoSavingsRule allocates a percentage of monthly income to a goal on a
// frequency schedule, independent of the waterfall. LastApplied updates
// only when the rule actually fires.
type AutoSavingsRule struct {
	LastApplied *time.Time
	Owner       string
	Percentage  decimal.Decimal
	ID          int64
	GoalID      int64
	Frequency   RuleFrequency
}

// ShouldFire evaluates the frequency gate against LastApplied.
func (r *AutoSavingsRule) ShouldFire(today time.Time) bool {
	gate := r.Frequency.months()
	if gate == 0 {
		return false
	}
	if r.LastApplied == nil {
		return true
	}
	return monthsBetween(*r.LastApplied, today) >= gate
}

// monthsBetween returns the count of full calendar months elapsed from
// earlier to later.
func monthsBetween(earlier, later time.Time) int {
	if later.Before(earlier) {
		return 0
	}
	months := (later.Year()-earlier.Year())*12 + int(later.Month()) - int(earlier.Month())
	if later.Day() < earlier.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
