package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/bidguard/pkg/telemetry/metrics"
)

// SQLiteConfig contains configuration for the SQLite audit index.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// Metrics records write outcomes. Optional.
	Metrics *metrics.Collector

	// Now stamps entries that arrive without a sequence number.
	Now func() time.Time
}

// SQLiteIndex is a queryable, insert-only mirror of the audit log.
//
// Entries that already carry a sequence number (because the file log
// stamped them first) are stored as-is. Entries with Seq zero are stamped
// by the index's own chain, which lets it serve as a standalone sink.
type SQLiteIndex struct {
	db      *sql.DB
	mu      sync.Mutex
	chain   chain
	logger  *slog.Logger
	metrics *metrics.Collector
	closed  bool
}

// NewSQLiteIndex opens the index database, creating the schema if needed.
func NewSQLiteIndex(cfg SQLiteConfig) (*SQLiteIndex, error) {
	if cfg.Path == "" {
		return nil, NewStorageError("sqlite", "open", errors.New("path is required"))
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, NewStorageError("sqlite", "open", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteIndex{
		db:      db,
		chain:   newChain(cfg.Now),
		logger:  slog.Default().With("component", "audit.sqlite"),
		metrics: cfg.Metrics,
	}

	if err := s.initialize(cfg.BusyTimeout); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("audit index initialized", "path", cfg.Path, "seq", s.chain.seq)
	return s, nil
}

func (s *SQLiteIndex) initialize(busyTimeout time.Duration) error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return NewStorageError("sqlite", "enable_wal", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeout.Milliseconds())); err != nil {
		return NewStorageError("sqlite", "set_busy_timeout", err)
	}
	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil && err != sql.ErrNoRows {
		return NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	// Resume the chain from the newest row.
	row := s.db.QueryRow("SELECT " + selectColumns + " FROM audit_entries ORDER BY seq DESC LIMIT 1")
	last, err := scanEntry(row)
	if err == nil {
		s.chain.resume(last)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return NewStorageError("sqlite", "resume", err)
	}
	return nil
}

// Record inserts entry, stamping it first when Seq is zero.
func (s *SQLiteIndex) Record(ctx context.Context, entry *Entry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	var saved *chain
	if entry.Seq == 0 {
		prior := s.chain.stamp(entry)
		saved = &prior
	}

	_, err := s.db.ExecContext(ctx, insertEntry,
		entry.Seq, entry.Timestamp.UnixNano(),
		string(entry.EventType), entry.Category, entry.Entity, string(entry.Result), entry.Reason,
		entry.BidID, entry.Actor, entry.PrevHash, entry.Hash,
	)
	if err != nil {
		if saved != nil {
			s.chain = *saved
		}
		s.metrics.RecordAuditWrite("sqlite", "error")
		return NewStorageError("sqlite", "record", err)
	}

	if saved == nil {
		s.chain.resume(*entry)
	}
	s.metrics.RecordAuditWrite("sqlite", "success")
	return nil
}

// Query retrieves entries matching filter in timestamp order.
func (s *SQLiteIndex) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	where, args := buildWhereClause(filter)

	q := "SELECT " + selectColumns + " FROM audit_entries"
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY ts_unix_nano ASC, seq ASC"
	if filter.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, NewStorageError("sqlite", "scan", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	return out, nil
}

// Count returns the number of entries matching filter. Limit is ignored.
func (s *SQLiteIndex) Count(ctx context.Context, filter Filter) (int64, error) {
	where, args := buildWhereClause(filter)
	q := "SELECT COUNT(*) FROM audit_entries"
	if where != "" {
		q += " WHERE " + where
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, NewStorageError("sqlite", "count", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return NewStorageError("sqlite", "close", err)
	}
	return nil
}

func buildWhereClause(f Filter) (string, []any) {
	var conds []string
	var args []any

	if len(f.EventTypes) > 0 {
		ph := make([]string, len(f.EventTypes))
		for i, et := range f.EventTypes {
			ph[i] = "?"
			args = append(args, string(et))
		}
		conds = append(conds, "event_type IN ("+strings.Join(ph, ", ")+")")
	}
	if len(f.Results) > 0 {
		ph := make([]string, len(f.Results))
		for i, r := range f.Results {
			ph[i] = "?"
			args = append(args, string(r))
		}
		conds = append(conds, "result IN ("+strings.Join(ph, ", ")+")")
	}
	if f.Entity != "" {
		conds = append(conds, "entity = ? COLLATE NOCASE")
		args = append(args, f.Entity)
	}
	if f.Category != "" {
		conds = append(conds, "category = ? COLLATE NOCASE")
		args = append(args, f.Category)
	}
	if f.BidID != "" {
		conds = append(conds, "bid_id = ?")
		args = append(args, f.BidID)
	}
	if !f.Since.IsZero() {
		conds = append(conds, "ts_unix_nano >= ?")
		args = append(args, f.Since.UnixNano())
	}
	if !f.Until.IsZero() {
		conds = append(conds, "ts_unix_nano <= ?")
		args = append(args, f.Until.UnixNano())
	}

	return strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e      Entry
		tsNano int64
		event  string
		result string
	)
	err := row.Scan(&e.Seq, &tsNano, &event, &e.Category, &e.Entity, &result, &e.Reason,
		&e.BidID, &e.Actor, &e.PrevHash, &e.Hash)
	if err != nil {
		return Entry{}, err
	}
	e.Timestamp = time.Unix(0, tsNano).UTC()
	e.EventType = EventType(event)
	e.Result = Result(result)
	return e, nil
}
