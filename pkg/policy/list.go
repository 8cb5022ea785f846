package policy

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"mercator-hq/bidguard/pkg/ledger"
)

// Mode selects list semantics.
type Mode string

const (
	// ModeDenylist allows everyone except listed entities.
	ModeDenylist Mode = "denylist"

	// ModeAllowlist allows only listed entities.
	ModeAllowlist Mode = "allowlist"
)

// ListKind names one of the two lists.
type ListKind string

const (
	Denylist  ListKind = "denylist"
	Allowlist ListKind = "allowlist"
)

// ParseListKind accepts "deny", "denylist", "allow", or "allowlist".
func ParseListKind(s string) (ListKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deny", "denylist":
		return Denylist, nil
	case "allow", "allowlist":
		return Allowlist, nil
	}
	return "", fmt.Errorf("%w: unknown list %q", ErrInvalidRequest, s)
}

// List holds the denylist and allowlist. The two sets are kept disjoint.
// It is safe for concurrent use.
type List struct {
	mode   Mode
	strict bool

	mu    sync.RWMutex
	deny  *nameSet
	allow *nameSet
}

// NewList creates an empty list.
func NewList(mode Mode, strict bool) *List {
	return &List{
		mode:   mode,
		strict: strict,
		deny:   newNameSet(),
		allow:  newNameSet(),
	}
}

// Mode returns the list mode.
func (l *List) Mode() Mode {
	return l.mode
}

// Strict reports whether negative decisions are hard-stops.
func (l *List) Strict() bool {
	return l.strict
}

// Contains reports whether name is on the given list, using the
// category's name normalization.
func (l *List) Contains(kind ListKind, name string, category Category) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.set(kind).contains(name, category)
}

// Add puts name on the given list and removes it from the other one.
func (l *List) Add(kind ListKind, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.set(kind).add(name)
	l.set(other(kind)).remove(name)
}

// Remove takes name off the given list.
func (l *List) Remove(kind ListKind, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.set(kind).remove(name)
}

// Replay applies a learn journal in order.
func (l *List) Replay(events []ledger.LearnEvent) error {
	for i, ev := range events {
		kind, err := ParseListKind(ev.List)
		if err != nil {
			return fmt.Errorf("learn event %d: %w", i, err)
		}
		switch ev.Action {
		case ledger.LearnAdd:
			l.Add(kind, ev.Entity)
		case ledger.LearnRemove:
			l.Remove(kind, ev.Entity)
		default:
			return fmt.Errorf("learn event %d: unknown action %q", i, ev.Action)
		}
	}
	return nil
}

// Snapshot is a point-in-time copy of a List.
type Snapshot struct {
	Mode      Mode     `json:"mode"`
	Strict    bool     `json:"strict"`
	Denylist  []string `json:"denylist"`
	Allowlist []string `json:"allowlist"`
}

// Snapshot returns sorted copies of both lists.
func (l *List) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{
		Mode:      l.mode,
		Strict:    l.strict,
		Denylist:  l.deny.names(),
		Allowlist: l.allow.names(),
	}
}

func (l *List) set(kind ListKind) *nameSet {
	if kind == Allowlist {
		return l.allow
	}
	return l.deny
}

func other(kind ListKind) ListKind {
	if kind == Allowlist {
		return Denylist
	}
	return Allowlist
}

// nameSet indexes names by their full normalized form.
type nameSet struct {
	full map[string]string // key -> display name
}

func newNameSet() *nameSet {
	return &nameSet{full: make(map[string]string)}
}

func (s *nameSet) add(name string) {
	key := ledger.Key(name)
	if key == "" {
		return
	}
	if _, ok := s.full[key]; ok {
		return
	}
	s.full[key] = strings.TrimSpace(name)
}

func (s *nameSet) remove(name string) {
	delete(s.full, ledger.Key(name))
}

// contains looks name up by its category key. For a manufacturer that is
// the first word of name, compared against whole list entries.
func (s *nameSet) contains(name string, category Category) bool {
	if category == Manufacturer {
		_, ok := s.full[Manufacturer.Normalize(name)]
		return ok
	}
	_, ok := s.full[ledger.Key(name)]
	return ok
}

func (s *nameSet) names() []string {
	out := make([]string, 0, len(s.full))
	for _, n := range s.full {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return ledger.Key(out[i]) < ledger.Key(out[j]) })
	return out
}
