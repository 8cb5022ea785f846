package policy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/bidguard/pkg/audit"
	"mercator-hq/bidguard/pkg/config"
	"mercator-hq/bidguard/pkg/ledger"
	"mercator-hq/bidguard/pkg/override"
)

var testNow = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type fixture struct {
	eval      *Evaluator
	sink      *audit.MemorySink
	overrides *override.MemoryStore
}

func newFixture(t *testing.T, cfg config.EthicsConfig, list *List) *fixture {
	t.Helper()
	if cfg.Mode == "" {
		cfg.Mode = string(ModeDenylist)
	}
	f := &fixture{
		sink:      audit.NewMemorySink(fixedClock),
		overrides: override.NewMemoryStore(),
	}
	eval, err := NewEvaluator(Options{
		Config:    cfg,
		List:      list,
		Audit:     f.sink,
		Overrides: f.overrides,
		Now:       fixedClock,
	})
	if err != nil {
		t.Fatalf("NewEvaluator() error = %v", err)
	}
	f.eval = eval
	return f
}

func (f *fixture) entries(t *testing.T) []audit.Entry {
	t.Helper()
	got, err := f.sink.Query(context.Background(), audit.Filter{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	return got
}

func listWith(mode Mode, strict bool, deny, allow []string) *List {
	l := NewList(mode, strict)
	for _, n := range deny {
		l.Add(Denylist, n)
	}
	for _, n := range allow {
		l.Add(Allowlist, n)
	}
	return l
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// failingSink rejects every write.
type failingSink struct{ audit.MemorySink }

func (*failingSink) Record(context.Context, *audit.Entry) error {
	return errors.New("disk full")
}

// failingStore rejects every override.
type failingStore struct{ override.MemoryStore }

func (*failingStore) Record(context.Context, *override.Record) error {
	return errors.New("database locked")
}

// memJournal collects learn events.
type memJournal struct {
	events []ledger.LearnEvent
	err    error
}

func (j *memJournal) AppendLearn(ev ledger.LearnEvent) error {
	if j.err != nil {
		return j.err
	}
	j.events = append(j.events, ev)
	return nil
}
