package ledger

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// newTestStore returns a store with a fresh key file in a temp directory.
func newTestStore(t *testing.T) (*Store, []byte) {
	t.Helper()
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "ledger.key")
	key, err := GenerateKey(keyPath)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	keys, err := NewFileKeyProvider(keyPath, false)
	if err != nil {
		t.Fatal(err)
	}
	store, err := NewStore(StoreConfig{
		Path: filepath.Join(dir, "ledger.bgl"),
		Keys: keys,
		Now:  fixedClock,
	})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store, key
}

func decryptFile(t *testing.T, path string, key []byte) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read ledger: %v", err)
	}
	plaintext, err := open(key, data)
	if err != nil {
		t.Fatalf("failed to decrypt ledger: %v", err)
	}
	return plaintext
}

func writeKeyFile(t *testing.T, path string, key []byte, perm os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, []byte(hex.EncodeToString(key)), perm); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, perm); err != nil {
		t.Fatal(err)
	}
}

func seedState() *State {
	s := NewState()
	s.Entities[Key("Acme Corp")] = &Entity{
		Name:                     "Acme Corp",
		Category:                 "Subcontractor",
		LifetimeTransactionCount: 2,
		CurrentScore:             43.75,
		TrustTerm:                100,
		AvgLatency:               50,
		AvgVariance:              0.05,
		History: []TransactionRecord{
			{Timestamp: testNow, ReplyLatency: 20 * time.Hour, QuotedPrice: 95, BaselinePrice: 100, ResultingScore: 100,
				Breakdown: Breakdown{Timeliness: 100, Fairness: 100, Trust: 100}, BidID: "b1"},
			{Timestamp: testNow.Add(time.Hour), ReplyLatency: 80 * time.Hour, QuotedPrice: 115, BaselinePrice: 100, ResultingScore: 43.75,
				Breakdown: Breakdown{Timeliness: 10, Fairness: 55, Trust: 100}, BidID: "b2"},
		},
		FirstSeen:   testNow,
		LastUpdated: testNow.Add(time.Hour),
	}
	s.Learn = []LearnEvent{{
		Timestamp: testNow, Entity: "Globex", Category: "Supplier", List: "denylist",
		Action: LearnAdd, Reason: "debarred", Actor: "compliance",
	}}
	return s
}

func background() context.Context { return context.Background() }
