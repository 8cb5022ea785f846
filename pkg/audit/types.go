package audit

import (
	"context"
	"strings"
	"time"
)

// EventType classifies an audit entry.
type EventType string

const (
	// EventCheck is a normal policy check.
	EventCheck EventType = "Check"

	// EventBypass is an allowance granted by a manual bypass or by
	// emergency mode.
	EventBypass EventType = "Bypass"

	// EventFinal closes a bid: completed or halted.
	EventFinal EventType = "Final"

	// EventLearn is an explicit change to the denylist or allowlist.
	EventLearn EventType = "Learn"

	// EventTrust is an explicit trust term change (violation or restore).
	EventTrust EventType = "Trust"
)

// Result is the outcome recorded by an entry.
type Result string

const (
	ResultAllowed  Result = "Allowed"
	ResultBlocked  Result = "Blocked"
	ResultRejected Result = "Rejected"
)

// Valid reports whether the event type is known.
func (e EventType) Valid() bool {
	switch e {
	case EventCheck, EventBypass, EventFinal, EventLearn, EventTrust:
		return true
	}
	return false
}

// Valid reports whether the result is known.
func (r Result) Valid() bool {
	switch r {
	case ResultAllowed, ResultBlocked, ResultRejected:
		return true
	}
	return false
}

// Entry is one immutable audit record.
//
// Timestamp, Seq, PrevHash, and Hash are assigned by the sink when the
// entry is recorded. Timestamps are strictly increasing within a sink.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Seq       uint64    `json:"seq"`
	EventType EventType `json:"event_type"`
	Category  string    `json:"category"`
	Entity    string    `json:"entity"`
	Result    Result    `json:"result"`
	Reason    string    `json:"reason"`
	BidID     string    `json:"bid_id,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
}

// Filter selects entries for Query. Zero-valued fields match everything.
type Filter struct {
	EventTypes []EventType
	Results    []Result
	Entity     string
	Category   string
	BidID      string
	Since      time.Time
	Until      time.Time

	// Limit caps the number of entries returned, oldest first. Zero means
	// no limit.
	Limit int
}

// Match reports whether e satisfies every condition in f.
func (f Filter) Match(e Entry) bool {
	if len(f.EventTypes) > 0 && !containsEvent(f.EventTypes, e.EventType) {
		return false
	}
	if len(f.Results) > 0 && !containsResult(f.Results, e.Result) {
		return false
	}
	if f.Entity != "" && !strings.EqualFold(f.Entity, e.Entity) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(f.Category, e.Category) {
		return false
	}
	if f.BidID != "" && f.BidID != e.BidID {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	return true
}

func containsEvent(list []EventType, e EventType) bool {
	for _, v := range list {
		if v == e {
			return true
		}
	}
	return false
}

func containsResult(list []Result, r Result) bool {
	for _, v := range list {
		if v == r {
			return true
		}
	}
	return false
}

// Sink is an append-only audit store.
//
// Record must be durable before it returns and assigns Timestamp, Seq,
// PrevHash, and Hash on the entry it is given. Query returns entries in
// timestamp order. There is no update or delete.
type Sink interface {
	Record(ctx context.Context, entry *Entry) error
	Query(ctx context.Context, filter Filter) ([]Entry, error)
	Close() error
}
