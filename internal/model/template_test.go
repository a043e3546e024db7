package model

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFrequencyNext(t *testing.T) {
	tests := []struct {
		name string
		freq Frequency
		from time.Time
		want time.Time
	}{
		{"daily", FrequencyDaily, date(2024, time.January, 15), date(2024, time.January, 16)},
		{"weekly", FrequencyWeekly, date(2024, time.January, 29), date(2024, time.February, 5)},
		{"monthly", FrequencyMonthly, date(2024, time.January, 15), date(2024, time.February, 15)},
		{"monthly clamps to short month", FrequencyMonthly, date(2024, time.January, 31), date(2024, time.February, 29)},
		{"monthly clamps non-leap february", FrequencyMonthly, date(2023, time.January, 30), date(2023, time.February, 28)},
		{"monthly across year boundary", FrequencyMonthly, date(2023, time.December, 31), date(2024, time.January, 31)},
		{"quarterly", FrequencyQuarterly, date(2024, time.November, 30), date(2025, time.February, 28)},
		{"biannual", FrequencyBiannual, date(2024, time.August, 31), date(2025, time.February, 28)},
		{"annual preserves leap day by clamping", FrequencyAnnual, date(2024, time.February, 29), date(2025, time.February, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.freq.Next(tt.from)
			if err != nil {
				t.Fatalf("Next() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Next() = %s, want %s", got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
			if !got.After(tt.from) {
				t.Errorf("Next() did not advance: %s -> %s", tt.from, got)
			}
		})
	}
}

func TestFrequencyNextUnknown(t *testing.T) {
	from := date(2024, time.March, 1)
	got, err := Frequency("fortnightly").Next(from)
	if !errors.Is(err, ErrUnknownFrequency) {
		t.Fatalf("expected ErrUnknownFrequency, got %v", err)
	}
	if !got.Equal(from) {
		t.Errorf("unknown frequency must not move the date: got %s", got)
	}
}

func TestTemplateDueAt(t *testing.T) {
	end := date(2024, time.March, 1)
	tests := []struct {
		name string
		tmpl RecurringTemplate
		asOf time.Time
		want bool
	}{
		{"due today", RecurringTemplate{NextDue: date(2024, time.April, 1)}, date(2024, time.April, 1), true},
		{"overdue", RecurringTemplate{NextDue: date(2024, time.January, 1)}, date(2024, time.April, 1), true},
		{"not yet due", RecurringTemplate{NextDue: date(2024, time.May, 1)}, date(2024, time.April, 1), false},
		{"past end date", RecurringTemplate{NextDue: date(2024, time.April, 1), EndDate: &end}, date(2024, time.April, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tmpl.DueAt(tt.asOf); got != tt.want {
				t.Errorf("DueAt() = %v, want %v", got, tt.want)
			}
		})
	}
}
