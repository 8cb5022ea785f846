package ledger

import (
	"strings"
	"time"
)

// StateVersion is the current plaintext schema version.
const StateVersion = 1

// State is the decrypted ledger contents.
type State struct {
	Version  int                `json:"version"`
	Entities map[string]*Entity `json:"entities"`

	// Learn is the journal of explicit policy list changes, replayed over
	// the configured list files at startup.
	Learn []LearnEvent `json:"learn_journal"`
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		Version:  StateVersion,
		Entities: make(map[string]*Entity),
	}
}

// Entity is the running history of one manufacturer, supplier, or
// subcontractor. Entities are created on first reference and never
// deleted.
type Entity struct {
	Name                     string              `json:"name"`
	Category                 string              `json:"category"`
	LifetimeTransactionCount int                 `json:"lifetime_transaction_count"`
	CurrentScore             float64             `json:"current_score"`
	TrustTerm                float64             `json:"trust_term"`
	AvgLatency               float64             `json:"avg_latency_hours"`
	AvgVariance              float64             `json:"avg_variance"`
	History                  []TransactionRecord `json:"history"`
	TrustEvents              []TrustEvent        `json:"trust_events,omitempty"`
	FirstSeen                time.Time           `json:"first_seen"`
	LastUpdated              time.Time           `json:"last_updated"`
}

// Clone returns a deep copy of e.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	c := *e
	c.History = append([]TransactionRecord(nil), e.History...)
	c.TrustEvents = append([]TrustEvent(nil), e.TrustEvents...)
	return &c
}

// TransactionRecord is one rated interaction. Records are immutable once
// appended.
type TransactionRecord struct {
	Timestamp      time.Time     `json:"timestamp"`
	ReplyLatency   time.Duration `json:"reply_latency"`
	QuotedPrice    float64       `json:"quoted_price"`
	BaselinePrice  float64       `json:"baseline_price"`
	ResultingScore float64       `json:"resulting_score"`
	Breakdown      Breakdown     `json:"breakdown"`
	BidID          string        `json:"bid_id,omitempty"`
}

// Breakdown holds the three subscores behind a score.
type Breakdown struct {
	Timeliness float64 `json:"timeliness"`
	Fairness   float64 `json:"fairness"`
	Trust      float64 `json:"trust"`
}

// TrustEventKind distinguishes trust decreases from restorations.
type TrustEventKind string

const (
	TrustViolation   TrustEventKind = "violation"
	TrustRestoration TrustEventKind = "restoration"
)

// TrustEvent records a persisted change of the trust term.
type TrustEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Kind      TrustEventKind `json:"kind"`
	Delta     float64        `json:"delta"`
	Before    float64        `json:"before"`
	After     float64        `json:"after"`
	Reason    string         `json:"reason"`
	Actor     string         `json:"actor,omitempty"`
	BidID     string         `json:"bid_id,omitempty"`
}

// LearnAction is the direction of a list change.
type LearnAction string

const (
	LearnAdd    LearnAction = "add"
	LearnRemove LearnAction = "remove"
)

// LearnEvent is one explicit change to the denylist or allowlist.
type LearnEvent struct {
	Timestamp time.Time   `json:"timestamp"`
	Entity    string      `json:"entity"`
	Category  string      `json:"category"`
	List      string      `json:"list"`
	Action    LearnAction `json:"action"`
	Reason    string      `json:"reason"`
	Actor     string      `json:"actor,omitempty"`
}

// Key returns the map key for an entity name: trimmed, lower-cased, with
// inner whitespace collapsed.
func Key(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
