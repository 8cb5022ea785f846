package rating

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/bidguard/pkg/audit"
	"mercator-hq/bidguard/pkg/config"
	"mercator-hq/bidguard/pkg/ledger"
)

var testNow = time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func defaultRating() config.RatingConfig {
	return config.Defaults().Rating
}

// openSession opens a session over a fresh encrypted ledger.
func openSession(t *testing.T) *ledger.Session {
	t.Helper()
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "ledger.key")
	if _, err := ledger.GenerateKey(keyPath); err != nil {
		t.Fatal(err)
	}
	keys, err := ledger.NewFileKeyProvider(keyPath, false)
	if err != nil {
		t.Fatal(err)
	}
	store, err := ledger.NewStore(ledger.StoreConfig{
		Path: filepath.Join(dir, "ledger.bgl"),
		Keys: keys,
		Now:  fixedClock,
	})
	if err != nil {
		t.Fatal(err)
	}
	sess, err := store.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sess.Close(context.Background()) })
	return sess
}

func newTestEngine(t *testing.T, cfg config.RatingConfig, observers ...ThresholdObserver) (*Engine, *ledger.Session, *audit.MemorySink) {
	t.Helper()
	sess := openSession(t)
	sink := audit.NewMemorySink(fixedClock)
	eng, err := NewEngine(Options{
		Config:    cfg,
		Ledger:    sess,
		Audit:     sink,
		Observers: observers,
		Now:       fixedClock,
	})
	if err != nil {
		t.Fatal(err)
	}
	return eng, sess, sink
}

func acme(latencyHours, quoted float64) Input {
	return Input{
		Entity:        "Acme",
		Category:      "Supplier",
		ReplyLatency:  time.Duration(latencyHours * float64(time.Hour)),
		QuotedPrice:   quoted,
		BaselinePrice: 100,
	}
}
