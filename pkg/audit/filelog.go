package audit

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mercator-hq/bidguard/pkg/telemetry/metrics"
)

// FileLogConfig configures a FileLog.
type FileLogConfig struct {
	// Path is the audit log file. Parent directories are created with 0700.
	Path string

	// Logger receives operational messages. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics records write outcomes. Optional.
	Metrics *metrics.Collector

	// Now is the clock used to stamp entries. Defaults to time.Now.
	Now func() time.Time
}

// FileLog is the plaintext append-only audit log. Each Record appends one
// line and fsyncs the file before returning.
type FileLog struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	chain   chain
	logger  *slog.Logger
	metrics *metrics.Collector
	closed  bool
}

// NewFileLog opens (or creates) the audit log at cfg.Path. When the file
// already holds entries, the sequence, timestamp, and hash chain resume
// from its last line.
func NewFileLog(cfg FileLogConfig) (*FileLog, error) {
	if cfg.Path == "" {
		return nil, NewStorageError("file", "open", errors.New("path is required"))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
		return nil, NewStorageError("file", "open", fmt.Errorf("failed to create audit directory: %w", err))
	}

	c := newChain(cfg.Now)
	last, ok, err := lastEntry(cfg.Path)
	if err != nil {
		return nil, err
	}
	if ok {
		c.resume(last)
	}

	f, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, NewStorageError("file", "open", err)
	}

	l := &FileLog{
		path:    cfg.Path,
		file:    f,
		chain:   c,
		logger:  logger.With("component", "audit.file", "path", cfg.Path),
		metrics: cfg.Metrics,
	}
	l.logger.Debug("audit log opened", "seq", c.seq)
	return l, nil
}

// lastEntry returns the final entry of an existing log.
func lastEntry(path string) (Entry, bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, NewStorageError("file", "open", err)
	}
	defer f.Close()

	var lastLine string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lastLine = line
		}
	}
	if err := scanner.Err(); err != nil {
		return Entry{}, false, NewStorageError("file", "open", err)
	}
	if lastLine == "" {
		return Entry{}, false, nil
	}

	e, err := ParseLine(lastLine)
	if err != nil {
		return Entry{}, false, fmt.Errorf("%w: last line: %v", ErrCorruptLog, err)
	}
	return e, true, nil
}

// Record appends entry to the log. The entry's Timestamp, Seq, PrevHash,
// and Hash are filled in. The write is synced to disk before Record
// returns; on failure the chain is left where it was.
func (l *FileLog) Record(ctx context.Context, entry *Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateEntry(entry); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	saved := l.chain.stamp(entry)
	line := FormatLine(entry) + "\n"

	if _, err := l.file.WriteString(line); err != nil {
		l.chain = saved
		l.metrics.RecordAuditWrite("file", "error")
		return NewStorageError("file", "record", err)
	}
	if err := l.file.Sync(); err != nil {
		l.chain = saved
		l.metrics.RecordAuditWrite("file", "error")
		return NewStorageError("file", "record", fmt.Errorf("sync: %w", err))
	}

	l.metrics.RecordAuditWrite("file", "success")
	return nil
}

// Query reads the log and returns matching entries in file order.
func (l *FileLog) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return readEntries(ctx, l.path, filter)
}

// Path returns the log file path.
func (l *FileLog) Path() string {
	return l.path
}

// Close closes the underlying file. It is safe to call more than once.
func (l *FileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if err := l.file.Close(); err != nil {
		return NewStorageError("file", "close", err)
	}
	return nil
}

// ReadFile returns the entries of the log at path that match filter.
// It does not take the writer lock and may be used on a log that another
// process is appending to.
func ReadFile(ctx context.Context, path string, filter Filter) ([]Entry, error) {
	return readEntries(ctx, path, filter)
}

func readEntries(ctx context.Context, path string, filter Filter) ([]Entry, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, NewStorageError("file", "query", err)
	}
	defer f.Close()

	var out []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		e, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorruptLog, lineNo, err)
		}
		if !filter.Match(e) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, NewStorageError("file", "query", err)
	}
	return out, nil
}
