package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// KeyProvider resolves the ledger key. Implementations return an error
// matching ErrKeyMissing when they hold no key.
type KeyProvider interface {
	Key(ctx context.Context) ([]byte, error)

	// Provider returns the provider name (file, env).
	Provider() string
}

// ParseKey decodes a hex-encoded 32-byte key. Surrounding whitespace is
// ignored.
func ParseKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	return key, nil
}

// GenerateKey creates a new random key and writes it, hex encoded, to
// path with 0600 permissions. It refuses to overwrite an existing file.
func GenerateKey(path string) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, &StorageError{Operation: "generate_key", Path: path, Cause: err}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, &StorageError{Operation: "generate_key", Path: path, Cause: err}
	}

	// #nosec G304 - path comes from configuration
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, &StorageError{Operation: "generate_key", Path: path, Cause: err}
	}
	defer f.Close()

	if _, err := f.WriteString(hex.EncodeToString(key) + "\n"); err != nil {
		return nil, &StorageError{Operation: "generate_key", Path: path, Cause: err}
	}
	if err := f.Sync(); err != nil {
		return nil, &StorageError{Operation: "generate_key", Path: path, Cause: err}
	}
	return key, nil
}

// FileKeyProvider reads the key from a file.
//
// File permissions are validated (0600 or 0400 only). The key is cached
// after the first read. With watching enabled, the cache is cleared when
// the file is written, created, or replaced.
type FileKeyProvider struct {
	Path  string
	Watch bool

	mu      sync.RWMutex
	cached  []byte
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	logger  *slog.Logger
}

// NewFileKeyProvider creates a file-based key provider. The key file need
// not exist yet; its directory must exist when watch is enabled.
func NewFileKeyProvider(path string, watch bool) (*FileKeyProvider, error) {
	p := &FileKeyProvider{
		Path:   path,
		Watch:  watch,
		stopCh: make(chan struct{}),
		logger: slog.Default().With("component", "ledger.keys"),
	}

	if watch {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		// Watch the directory so atomic replacements are seen too.
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to watch key directory: %w", err)
		}
		p.watcher = watcher
		go p.watchLoop()
	}

	return p, nil
}

// Key returns the key from the file.
func (p *FileKeyProvider) Key(ctx context.Context) ([]byte, error) {
	p.mu.RLock()
	if p.cached != nil {
		key := append([]byte(nil), p.cached...)
		p.mu.RUnlock()
		return key, nil
	}
	p.mu.RUnlock()

	info, err := os.Stat(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: key file %s does not exist", ErrKeyMissing, p.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat key file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("key path is not a regular file: %s", p.Path)
	}
	if mode := info.Mode().Perm(); mode != 0600 && mode != 0400 {
		return nil, fmt.Errorf("insecure permissions on %s: %o (expected 0600 or 0400)", p.Path, mode)
	}

	// #nosec G304 - path comes from configuration
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	key, err := ParseKey(string(data))
	if err != nil {
		return nil, fmt.Errorf("key file %s: %w", p.Path, err)
	}

	p.mu.Lock()
	p.cached = key
	p.mu.Unlock()

	return append([]byte(nil), key...), nil
}

// Provider returns "file".
func (p *FileKeyProvider) Provider() string {
	return "file"
}

// Refresh drops the cached key.
func (p *FileKeyProvider) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
}

// Close stops the file watcher.
func (p *FileKeyProvider) Close() error {
	if p.watcher != nil {
		close(p.stopCh)
		return p.watcher.Close()
	}
	return nil
}

func (p *FileKeyProvider) watchLoop() {
	name := filepath.Clean(p.Path)
	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				p.logger.Info("ledger key file changed, dropping cached key", "op", event.Op.String())
				p.Refresh()
			}

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("key file watcher error", "error", err)

		case <-p.stopCh:
			return
		}
	}
}

// EnvKeyProvider reads the key from an environment variable.
type EnvKeyProvider struct {
	Var string
}

// NewEnvKeyProvider creates an environment key provider.
func NewEnvKeyProvider(name string) *EnvKeyProvider {
	return &EnvKeyProvider{Var: name}
}

// Key returns the key from the environment.
func (p *EnvKeyProvider) Key(ctx context.Context) ([]byte, error) {
	val := os.Getenv(p.Var)
	if val == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrKeyMissing, p.Var)
	}
	key, err := ParseKey(val)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Var, err)
	}
	return key, nil
}

// Provider returns "env".
func (p *EnvKeyProvider) Provider() string {
	return "env"
}

// ChainProvider tries providers in order and returns the first key found.
// A provider error other than ErrKeyMissing stops the search.
type ChainProvider struct {
	providers []KeyProvider
}

// NewChainProvider creates a provider chain. Nil providers are skipped.
func NewChainProvider(providers ...KeyProvider) *ChainProvider {
	c := &ChainProvider{}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

// Key returns the first available key.
func (c *ChainProvider) Key(ctx context.Context) ([]byte, error) {
	var missing []string
	for _, p := range c.providers {
		key, err := p.Key(ctx)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, ErrKeyMissing) {
			return nil, err
		}
		missing = append(missing, p.Provider())
	}
	return nil, fmt.Errorf("%w: tried %s", ErrKeyMissing, strings.Join(missing, ", "))
}

// Provider returns "chain".
func (c *ChainProvider) Provider() string {
	return "chain"
}
