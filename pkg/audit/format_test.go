package audit

import (
	"strings"
	"testing"
)

func TestFormatLine_HumanReadablePrefix(t *testing.T) {
	e := checkEntry("Acme Corp", ResultBlocked, "on denylist")
	e.Timestamp = testStart
	e.Seq = 1
	e.PrevHash = GenesisHash
	e.Hash = HashEntry(e)

	line := FormatLine(e)
	want := "2026-03-01T09:00:00.000000000Z | Check | Supplier | Acme Corp | Blocked | on denylist | seq=1"
	if !strings.HasPrefix(line, want) {
		t.Errorf("unexpected line prefix:\n got %s\nwant %s", line, want)
	}
}

func TestParseLine_RoundTripWithEscapes(t *testing.T) {
	e := &Entry{
		Timestamp: testStart,
		Seq:       7,
		EventType: EventBypass,
		Category:  "Manufacturer",
		Entity:    `Pipe | Fitting \ Co`,
		Result:    ResultAllowed,
		Reason:    "line one\nline two\r",
		BidID:     "bid-42",
		Actor:     "jdoe",
		PrevHash:  GenesisHash,
	}
	e.Hash = HashEntry(e)

	line := FormatLine(e)
	if strings.Contains(line, "\n") {
		t.Fatal("formatted line must not contain a raw newline")
	}

	got, err := ParseLine(line)
	if err != nil {
		t.Fatalf("ParseLine failed: %v", err)
	}
	if got != *e {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, *e)
	}
}

func TestParseLine_Malformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"too few fields", "2026-03-01T09:00:00.000000000Z | Check | Supplier"},
		{"bad timestamp", "yesterday | Check | S | E | Allowed | r | seq=1 | bid= | actor= | prev=x | hash=y"},
		{"bad seq", "2026-03-01T09:00:00.000000000Z | Check | S | E | Allowed | r | seq=one | bid= | actor= | prev=x | hash=y"},
		{"missing prefix", "2026-03-01T09:00:00.000000000Z | Check | S | E | Allowed | r | 1 | bid= | actor= | prev=x | hash=y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseLine(tt.line); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestHashEntry_CoversEveryField(t *testing.T) {
	base := checkEntry("Acme", ResultAllowed, "ok")
	base.Timestamp = testStart
	base.Seq = 1
	base.PrevHash = GenesisHash
	h := HashEntry(base)

	mutations := map[string]func(*Entry){
		"reason": func(e *Entry) { e.Reason = "changed" },
		"result": func(e *Entry) { e.Result = ResultBlocked },
		"seq":    func(e *Entry) { e.Seq = 2 },
		"prev":   func(e *Entry) { e.PrevHash = "sha256:abc" },
		"actor":  func(e *Entry) { e.Actor = "someone" },
	}
	for name, mutate := range mutations {
		e := *base
		mutate(&e)
		if HashEntry(&e) == h {
			t.Errorf("changing %s did not change the hash", name)
		}
	}
}
