package ledger

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
)

// Session is an open ledger. It is safe for concurrent use.
//
// Updates to one entity are serialized by a per-entity lock; the entity
// map itself is guarded by a read-write lock. Entities are copied on
// write, so readers never observe a half-applied update.
type Session struct {
	store *Store
	locks *keyedMutex

	mu     sync.RWMutex
	state  *State
	closed bool
}

func newSession(store *Store, state *State) *Session {
	return &Session{
		store: store,
		locks: newKeyedMutex(),
		state: state,
	}
}

// Update applies fn to the named entity, creating it on first reference.
// fn works on a copy; the copy replaces the stored entity only when fn
// returns nil, so a failed update leaves the ledger unchanged. The updated
// entity is returned as a copy.
func (s *Session) Update(name, category string, fn func(*Entity) error) (*Entity, error) {
	key := Key(name)
	unlock := s.locks.Lock(key)
	defer unlock()

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrSessionClosed
	}
	current := s.state.Entities[key]
	s.mu.RUnlock()

	var working *Entity
	if current != nil {
		working = current.Clone()
	} else {
		now := s.store.now().UTC()
		working = &Entity{
			Name:      strings.TrimSpace(name),
			Category:  category,
			TrustTerm: s.store.initialTrust,
			FirstSeen: now,
		}
	}

	if err := fn(working); err != nil {
		return nil, err
	}
	working.LastUpdated = s.store.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	s.state.Entities[key] = working
	return working.Clone(), nil
}

// Entity returns a copy of the named entity.
func (s *Session) Entity(name string) (*Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.state.Entities[Key(name)]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Entities returns copies of every entity, sorted by name.
func (s *Session) Entities() []*Entity {
	s.mu.RLock()
	out := make([]*Entity, 0, len(s.state.Entities))
	for _, e := range s.state.Entities {
		out = append(out, e.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return Key(out[i].Name) < Key(out[j].Name) })
	return out
}

// AppendLearn adds an event to the list journal.
func (s *Session) AppendLearn(ev LearnEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.state.Learn = append(s.state.Learn, ev)
	return nil
}

// LearnEvents returns a copy of the list journal.
func (s *Session) LearnEvents() []LearnEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]LearnEvent(nil), s.state.Learn...)
}

// Flush re-encrypts the current state to disk.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrSessionClosed
	}
	plaintext, err := json.Marshal(s.state)
	s.mu.RUnlock()
	if err != nil {
		return &StorageError{Operation: "flush", Path: s.store.path, Cause: err}
	}
	return s.store.savePlaintext(ctx, plaintext)
}

// Close re-encrypts the state and closes the session. Later calls are
// no-ops. The session is closed even if the final save fails.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	plaintext, err := json.Marshal(s.state)
	s.mu.Unlock()
	if err != nil {
		return &StorageError{Operation: "close", Path: s.store.path, Cause: err}
	}
	return s.store.savePlaintext(ctx, plaintext)
}
