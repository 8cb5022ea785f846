package ledger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStore_LoadSaveReloadIsByteIdentical(t *testing.T) {
	store, key := newTestStore(t)
	ctx := background()

	if err := store.Save(ctx, seedState()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	first := decryptFile(t, store.Path(), key)

	state, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := store.Save(ctx, state); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	second := decryptFile(t, store.Path(), key)

	if !bytes.Equal(first, second) {
		t.Errorf("plaintext changed across load/save:\n%s\n%s", first, second)
	}

	reloaded, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	e := reloaded.Entities[Key("acme  corp")]
	if e == nil || e.CurrentScore != 43.75 || len(e.History) != 2 {
		t.Errorf("unexpected reloaded entity: %+v", e)
	}
	if len(reloaded.Learn) != 1 || reloaded.Learn[0].Entity != "Globex" {
		t.Errorf("learn journal not preserved: %+v", reloaded.Learn)
	}
}

func TestStore_NoPlaintextOnDisk(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.Save(background(), seedState()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("BGL1")) {
		t.Error("ledger file lacks the BGL1 header")
	}
	for _, needle := range []string{"Acme", "Globex", "trust_term", "debarred"} {
		if bytes.Contains(data, []byte(needle)) {
			t.Errorf("ledger file contains plaintext %q", needle)
		}
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(store.Path()), ".*tmp*"))
	if len(matches) != 0 {
		t.Errorf("temporary files left behind: %v", matches)
	}
}

func TestStore_MissingLedgerLoadsEmptyState(t *testing.T) {
	store, _ := newTestStore(t)

	state, err := store.Load(background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(state.Entities) != 0 || len(state.Learn) != 0 {
		t.Errorf("expected empty state, got %+v", state)
	}
}

func TestStore_MissingKeyWithExistingLedger(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.Save(background(), seedState()); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	keys, err := NewFileKeyProvider(filepath.Join(dir, "absent.key"), false)
	if err != nil {
		t.Fatal(err)
	}
	// Auto-generation must not paper over a missing key for an existing ledger.
	other, err := NewStore(StoreConfig{
		Path:            store.Path(),
		Keys:            keys,
		KeyFile:         filepath.Join(dir, "new.key"),
		AutoGenerateKey: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = other.Load(background())
	if !errors.Is(err, ErrKeyMissing) {
		t.Fatalf("expected ErrKeyMissing, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "new.key")); !os.IsNotExist(statErr) {
		t.Error("a key must not be generated when a ledger already exists")
	}
}

func TestStore_MissingKeyAndLedger(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "ledger.key")
	keys, err := NewFileKeyProvider(keyPath, false)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("without auto generation", func(t *testing.T) {
		store, err := NewStore(StoreConfig{Path: filepath.Join(dir, "ledger.bgl"), Keys: keys})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := store.Load(background()); !errors.Is(err, ErrKeyMissing) {
			t.Errorf("expected ErrKeyMissing, got %v", err)
		}
	})

	t.Run("with auto generation", func(t *testing.T) {
		store, err := NewStore(StoreConfig{
			Path:            filepath.Join(dir, "ledger.bgl"),
			Keys:            keys,
			KeyFile:         keyPath,
			AutoGenerateKey: true,
		})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := store.Load(background()); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		info, err := os.Stat(keyPath)
		if err != nil {
			t.Fatalf("expected generated key file: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected 0600 key file, got %o", perm)
		}
		if err := store.Save(background(), seedState()); err != nil {
			t.Fatalf("Save with generated key failed: %v", err)
		}
	})
}

func TestStore_CorruptLedger(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"flipped ciphertext byte", func(b []byte) []byte { b[len(b)-1] ^= 0xff; return b }},
		{"truncated", func(b []byte) []byte { return b[:10] }},
		{"bad header", func(b []byte) []byte { copy(b, "XXXX"); return b }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t)
			if err := store.Save(background(), seedState()); err != nil {
				t.Fatal(err)
			}
			data, err := os.ReadFile(store.Path())
			if err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(store.Path(), tt.mutate(data), 0600); err != nil {
				t.Fatal(err)
			}

			state, err := store.Load(background())
			if !errors.Is(err, ErrLedgerCorrupt) {
				t.Fatalf("expected ErrLedgerCorrupt, got %v", err)
			}
			if state != nil {
				t.Error("corrupt ledger must not yield a state")
			}
			var cerr *CorruptionError
			if !errors.As(err, &cerr) || cerr.Path != store.Path() {
				t.Errorf("expected CorruptionError for %s, got %v", store.Path(), err)
			}
		})
	}
}

func TestStore_WrongKey(t *testing.T) {
	store, _ := newTestStore(t)
	if err := store.Save(background(), seedState()); err != nil {
		t.Fatal(err)
	}

	keyPath := filepath.Join(t.TempDir(), "other.key")
	if _, err := GenerateKey(keyPath); err != nil {
		t.Fatal(err)
	}
	keys, _ := NewFileKeyProvider(keyPath, false)
	other, _ := NewStore(StoreConfig{Path: store.Path(), Keys: keys})

	if _, err := other.Load(background()); !errors.Is(err, ErrLedgerCorrupt) {
		t.Errorf("expected ErrLedgerCorrupt with the wrong key, got %v", err)
	}
}
