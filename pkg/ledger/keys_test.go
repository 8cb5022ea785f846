package ledger

import (
	"bytes"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseKey(t *testing.T) {
	good := strings.Repeat("ab", KeySize)
	if _, err := ParseKey("  " + good + "\n"); err != nil {
		t.Errorf("valid key rejected: %v", err)
	}
	for _, bad := range []string{"", "zz", strings.Repeat("ab", KeySize-1)} {
		if _, err := ParseKey(bad); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ParseKey(%q): expected ErrInvalidKey, got %v", bad, err)
		}
	}
}

func TestGenerateKey_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.key")
	if _, err := GenerateKey(path); err != nil {
		t.Fatal(err)
	}
	if _, err := GenerateKey(path); err == nil {
		t.Error("expected GenerateKey to refuse an existing file")
	}
}

func TestFileKeyProvider_RejectsInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.key")
	writeKeyFile(t, path, bytes.Repeat([]byte{1}, KeySize), 0644)

	p, err := NewFileKeyProvider(path, false)
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Key(background())
	if err == nil || !strings.Contains(err.Error(), "insecure permissions") {
		t.Errorf("expected insecure permissions error, got %v", err)
	}
}

func TestFileKeyProvider_ReadOnlyKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.key")
	want := bytes.Repeat([]byte{7}, KeySize)
	writeKeyFile(t, path, want, 0400)

	p, _ := NewFileKeyProvider(path, false)
	got, err := p.Key(background())
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("unexpected key bytes")
	}
}

func TestFileKeyProvider_WatchDropsCachedKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.key")
	writeKeyFile(t, path, bytes.Repeat([]byte{1}, KeySize), 0600)

	p, err := NewFileKeyProvider(path, true)
	if err != nil {
		t.Fatalf("NewFileKeyProvider failed: %v", err)
	}
	defer p.Close()

	if _, err := p.Key(background()); err != nil {
		t.Fatal(err)
	}

	rotated := bytes.Repeat([]byte{2}, KeySize)
	if err := os.WriteFile(path, []byte(hex.EncodeToString(rotated)), 0600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got, err := p.Key(background())
		if err == nil && bytes.Equal(got, rotated) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("rotated key was not picked up")
}

func TestEnvKeyProvider(t *testing.T) {
	p := NewEnvKeyProvider("BIDGUARD_TEST_LEDGER_KEY")

	if _, err := p.Key(background()); !errors.Is(err, ErrKeyMissing) {
		t.Errorf("expected ErrKeyMissing for unset variable, got %v", err)
	}

	t.Setenv("BIDGUARD_TEST_LEDGER_KEY", strings.Repeat("0f", KeySize))
	key, err := p.Key(background())
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}
	if len(key) != KeySize || key[0] != 0x0f {
		t.Errorf("unexpected key %x", key)
	}
}

func TestChainProvider(t *testing.T) {
	dir := t.TempDir()
	file, _ := NewFileKeyProvider(filepath.Join(dir, "absent.key"), false)
	env := NewEnvKeyProvider("BIDGUARD_TEST_CHAIN_KEY")

	chain := NewChainProvider(file, nil, env)
	if _, err := chain.Key(background()); !errors.Is(err, ErrKeyMissing) {
		t.Errorf("expected ErrKeyMissing from empty chain, got %v", err)
	}

	t.Setenv("BIDGUARD_TEST_CHAIN_KEY", strings.Repeat("aa", KeySize))
	if _, err := chain.Key(background()); err != nil {
		t.Errorf("expected env fallback to succeed, got %v", err)
	}

	// A malformed key is an error, not a reason to try the next provider.
	t.Setenv("BIDGUARD_TEST_CHAIN_KEY", "not-hex")
	broken := NewChainProvider(env, file)
	if _, err := broken.Key(background()); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}
