package model

import (
	"testing"
	"time"
)

func TestTrackerAppliedIn(t *testing.T) {
	tracker := SurplusTracker{LastAppliedYear: 2025, LastAppliedMonth: int(time.March)}

	if !tracker.AppliedIn(date(2025, time.March, 20)) {
		t.Error("same UTC month should report applied")
	}
	if tracker.AppliedIn(date(2025, time.April, 1)) {
		t.Error("next month should not report applied")
	}

	// A zoned timestamp whose local month differs from its UTC month must
	// compare by the UTC month, matching how the stamp is recorded.
	auckland := time.FixedZone("NZST", 13*60*60)
	localApril := time.Date(2025, time.April, 1, 10, 0, 0, 0, auckland) // March 31 21:00 UTC
	if !tracker.AppliedIn(localApril) {
		t.Error("month-boundary local time should still match the stamped UTC month")
	}
}
