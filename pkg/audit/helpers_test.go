package audit

import "time"

// stepClock returns a clock that advances one second per call.
func stepClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

var testStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func checkEntry(entity string, result Result, reason string) *Entry {
	return &Entry{
		EventType: EventCheck,
		Category:  "Supplier",
		Entity:    entity,
		Result:    result,
		Reason:    reason,
	}
}
