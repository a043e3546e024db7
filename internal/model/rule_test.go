package model

import (
	"testing"
	"time"
)

func TestRuleShouldFire(t *testing.T) {
	applied := date(2024, time.January, 15)
	tests := []struct {
		name        string
		lastApplied *time.Time
		today       time.Time
		freq        RuleFrequency
		want        bool
	}{
		{"never applied fires", nil, date(2024, time.June, 1), RuleMonthly, true},
		{"same month does not fire", &applied, date(2024, time.January, 31), RuleMonthly, false},
		{"full month elapsed fires", &applied, date(2024, time.February, 15), RuleMonthly, true},
		{"next month but day short of a full month", &applied, date(2024, time.February, 14), RuleMonthly, false},
		{"quarterly below gate", &applied, date(2024, time.March, 20), RuleQuarterly, false},
		{"quarterly at gate", &applied, date(2024, time.April, 15), RuleQuarterly, true},
		{"biannual at gate", &applied, date(2024, time.July, 15), RuleBiannual, true},
		{"annual just under a year", &applied, date(2025, time.January, 14), RuleAnnual, false},
		{"annual at a year", &applied, date(2025, time.January, 15), RuleAnnual, true},
		{"unknown frequency never fires", nil, date(2024, time.June, 1), RuleFrequency("fortnightly"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := AutoSavingsRule{LastApplied: tt.lastApplied, Frequency: tt.freq}
			if got := rule.ShouldFire(tt.today); got != tt.want {
				t.Errorf("ShouldFire() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParsePriority(t *testing.T) {
	for _, label := range []string{"High", "high"} {
		p, ok := ParsePriority(label)
		if !ok || p != PriorityHigh {
			t.Errorf("ParsePriority(%q) = %v, %v", label, p, ok)
		}
	}
	if _, ok := ParsePriority("urgent"); ok {
		t.Error("ParsePriority accepted an unknown label")
	}
	if got := Tiers(); len(got) != 3 || got[0] != PriorityHigh || got[2] != PriorityLow {
		t.Errorf("Tiers() = %v", got)
	}
}
