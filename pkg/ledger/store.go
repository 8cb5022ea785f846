package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mercator-hq/bidguard/pkg/telemetry/metrics"
)

// StoreConfig configures a Store.
type StoreConfig struct {
	// Path is the encrypted ledger file.
	Path string

	// Keys resolves the encryption key.
	Keys KeyProvider

	// KeyFile is where a key is generated when AutoGenerateKey is set and
	// neither a key nor a ledger exists yet.
	KeyFile         string
	AutoGenerateKey bool

	// IOTimeout bounds every Load and Save.
	// Default: 10 seconds
	IOTimeout time.Duration

	// InitialTrust is the trust term of newly created entities. Nil means
	// 100; zero starts new entities untrusted.
	InitialTrust *float64

	Logger  *slog.Logger
	Metrics *metrics.Collector
	Now     func() time.Time
}

// Store reads and writes the encrypted ledger file.
type Store struct {
	path            string
	keys            KeyProvider
	keyFile         string
	autoGenerateKey bool
	ioTimeout       time.Duration
	initialTrust    float64
	logger          *slog.Logger
	metrics         *metrics.Collector
	now             func() time.Time

	mu  sync.Mutex // serializes saves
	key []byte
}

// NewStore creates a Store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("ledger path is required")
	}
	if cfg.Keys == nil {
		return nil, errors.New("ledger key provider is required")
	}
	if cfg.IOTimeout <= 0 {
		cfg.IOTimeout = 10 * time.Second
	}
	initialTrust := 100.0
	if cfg.InitialTrust != nil {
		initialTrust = *cfg.InitialTrust
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Store{
		path:            cfg.Path,
		keys:            cfg.Keys,
		keyFile:         cfg.KeyFile,
		autoGenerateKey: cfg.AutoGenerateKey,
		ioTimeout:       cfg.IOTimeout,
		initialTrust:    initialTrust,
		logger:          cfg.Logger.With("component", "ledger.store", "path", cfg.Path),
		metrics:         cfg.Metrics,
		now:             cfg.Now,
	}, nil
}

// Path returns the ledger file path.
func (s *Store) Path() string {
	return s.path
}

// Load decrypts and decodes the ledger.
//
// A missing ledger yields an empty state, provided a key is available or
// can be generated. An existing ledger without a key fails with
// ErrKeyMissing. A ledger that fails to decrypt or decode fails with a
// CorruptionError; Load never substitutes an empty state for it.
func (s *Store) Load(ctx context.Context) (*State, error) {
	start := time.Now()
	state, err := bounded(ctx, s.ioTimeout, s.load)
	s.metrics.RecordLedgerOp("load", status(err), time.Since(start))
	if err != nil {
		s.logger.ErrorContext(ctx, "ledger load failed", "error", err)
		return nil, err
	}
	s.logger.DebugContext(ctx, "ledger loaded", "entities", len(state.Entities), "learn_events", len(state.Learn))
	return state, nil
}

func (s *Store) load(ctx context.Context) (*State, error) {
	data, readErr := os.ReadFile(s.path)
	exists := readErr == nil
	if readErr != nil && !errors.Is(readErr, os.ErrNotExist) {
		return nil, &StorageError{Operation: "load", Path: s.path, Cause: readErr}
	}

	key, err := s.resolveKey(ctx, exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return NewState(), nil
	}

	plaintext, err := open(key, data)
	if err != nil {
		return nil, &CorruptionError{Path: s.path, Reason: "decrypt", Cause: err}
	}
	return decodeState(s.path, plaintext)
}

func (s *Store) resolveKey(ctx context.Context, ledgerExists bool) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := s.keys.Key(ctx)
	switch {
	case err == nil:
		s.key = key
		return key, nil
	case !errors.Is(err, ErrKeyMissing):
		return nil, err
	case ledgerExists:
		return nil, fmt.Errorf("%w: ledger %s exists but no key is available", ErrKeyMissing, s.path)
	case s.autoGenerateKey && s.keyFile != "":
		key, err := GenerateKey(s.keyFile)
		if err != nil {
			return nil, err
		}
		s.logger.Warn("generated new ledger key", "key_file", s.keyFile)
		s.key = key
		return key, nil
	default:
		return nil, err
	}
}

func decodeState(path string, plaintext []byte) (*State, error) {
	state := NewState()
	if err := json.Unmarshal(plaintext, state); err != nil {
		return nil, &CorruptionError{Path: path, Reason: "decode", Cause: err}
	}
	if state.Version != StateVersion {
		return nil, &CorruptionError{Path: path, Reason: fmt.Sprintf("unsupported state version %d", state.Version)}
	}
	if state.Entities == nil {
		state.Entities = make(map[string]*Entity)
	}
	return state, nil
}

// Save encrypts state and atomically replaces the ledger file. Only
// ciphertext is written: to a temporary file in the ledger's directory,
// which is synced and then renamed into place.
func (s *Store) Save(ctx context.Context, state *State) error {
	plaintext, err := json.Marshal(state)
	if err != nil {
		return &StorageError{Operation: "save", Path: s.path, Cause: err}
	}
	return s.savePlaintext(ctx, plaintext)
}

func (s *Store) savePlaintext(ctx context.Context, plaintext []byte) error {
	start := time.Now()
	_, err := bounded(ctx, s.ioTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.save(ctx, plaintext)
	})
	s.metrics.RecordLedgerOp("save", status(err), time.Since(start))
	if err != nil {
		s.logger.ErrorContext(ctx, "ledger save failed", "error", err)
	}
	return err
}

func (s *Store) save(ctx context.Context, plaintext []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key
	if key == nil {
		var err error
		key, err = s.keys.Key(ctx)
		if err != nil {
			return err
		}
		s.key = key
	}

	ciphertext, err := seal(key, plaintext)
	if err != nil {
		return &StorageError{Operation: "save", Path: s.path, Cause: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return &StorageError{Operation: "save", Path: s.path, Cause: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return &StorageError{Operation: "save", Path: s.path, Cause: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(ciphertext); err != nil {
		tmp.Close()
		return &StorageError{Operation: "save", Path: s.path, Cause: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &StorageError{Operation: "save", Path: s.path, Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &StorageError{Operation: "save", Path: s.path, Cause: err}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return &StorageError{Operation: "save", Path: s.path, Cause: err}
	}
	committed = true

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

// Open loads the ledger and returns a session over it.
func (s *Store) Open(ctx context.Context) (*Session, error) {
	state, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return newSession(s, state), nil
}

// bounded runs op with a deadline. Filesystem calls cannot be interrupted,
// so on timeout the caller gets ctx.Err() while op finishes in the
// background; save checks the context again before its rename.
func bounded[T any](ctx context.Context, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := op(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("ledger io timed out after %s: %w", timeout, ctx.Err())
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
