package override

import (
	"context"
	"strings"
	"time"
)

// Kind distinguishes manual bypasses from emergency allowances.
type Kind string

const (
	KindBypass    Kind = "bypass"
	KindEmergency Kind = "emergency"
)

// Record documents one applied override. Records are never updated or
// deleted.
type Record struct {
	ID           string    `json:"id"`
	Entity       string    `json:"entity"`
	Category     string    `json:"category"`
	Reason       string    `json:"reason"`
	AuthorizedBy string    `json:"authorized_by"`
	Timestamp    time.Time `json:"timestamp"`
	BidID        string    `json:"bid_id,omitempty"`
	Kind         Kind      `json:"kind"`
}

// Filter selects records for List. Zero-valued fields match everything.
type Filter struct {
	Entity string
	BidID  string
	Kind   Kind
	Since  time.Time
	Limit  int
}

// Match reports whether r satisfies f.
func (f Filter) Match(r Record) bool {
	if f.Entity != "" && !strings.EqualFold(f.Entity, r.Entity) {
		return false
	}
	if f.BidID != "" && f.BidID != r.BidID {
		return false
	}
	if f.Kind != "" && f.Kind != r.Kind {
		return false
	}
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	return true
}

// Store persists override records.
//
// Record assigns ID and Timestamp when they are empty.
type Store interface {
	Record(ctx context.Context, rec *Record) error
	List(ctx context.Context, filter Filter) ([]Record, error)
	Close() error
}
