package audit

import (
	"context"
	"sync"
	"time"
)

// MemorySink keeps entries in memory. It is used by tests and by callers
// that do not need durability.
type MemorySink struct {
	mu      sync.RWMutex
	entries []Entry
	chain   chain
	closed  bool
}

// NewMemorySink creates an empty in-memory sink. A nil clock uses time.Now.
func NewMemorySink(now func() time.Time) *MemorySink {
	return &MemorySink{chain: newChain(now)}
}

// Record appends entry.
func (m *MemorySink) Record(ctx context.Context, entry *Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateEntry(entry); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.chain.stamp(entry)
	m.entries = append(m.entries, *entry)
	return nil
}

// Query returns the matching entries.
func (m *MemorySink) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	for _, e := range m.entries {
		if !filter.Match(e) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// Len returns the number of recorded entries.
func (m *MemorySink) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close marks the sink closed.
func (m *MemorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
