package override

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore persists override records in SQLite. Rows are insert-only:
// triggers abort any UPDATE or DELETE.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	mu        sync.Mutex
	closeOnce sync.Once
	now       func() time.Time

	insertStmt *sql.Stmt
}

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Path is the database file.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore opens (or creates) the override database.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, &StorageError{Backend: "sqlite", Operation: "open", Cause: errors.New("db path cannot be empty")}
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, &StorageError{Backend: "sqlite", Operation: "open", Cause: err}
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(FULL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Operation: "open", Cause: err}
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db, path: cfg.Path, now: time.Now}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &StorageError{Backend: "sqlite", Operation: "create_schema", Cause: err}
	}

	s.insertStmt, err = db.Prepare(`
		INSERT INTO override_records (id, entity, category, reason, authorized_by, ts_unix_nano, bid_id, kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, &StorageError{Backend: "sqlite", Operation: "prepare", Cause: err}
	}

	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS override_records (
	id TEXT PRIMARY KEY,
	entity TEXT NOT NULL,
	category TEXT NOT NULL,
	reason TEXT NOT NULL,
	authorized_by TEXT NOT NULL,
	ts_unix_nano INTEGER NOT NULL,
	bid_id TEXT NOT NULL DEFAULT '',
	kind TEXT NOT NULL CHECK (kind IN ('bypass', 'emergency'))
);

CREATE TRIGGER IF NOT EXISTS override_records_no_update
BEFORE UPDATE ON override_records
BEGIN
	SELECT RAISE(ABORT, 'override records are append-only');
END;

CREATE TRIGGER IF NOT EXISTS override_records_no_delete
BEFORE DELETE ON override_records
BEGIN
	SELECT RAISE(ABORT, 'override records are append-only');
END;

CREATE INDEX IF NOT EXISTS idx_override_ts ON override_records(ts_unix_nano);
CREATE INDEX IF NOT EXISTS idx_override_entity ON override_records(entity COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_override_bid ON override_records(bid_id);
`

// Record inserts rec.
func (s *SQLiteStore) Record(ctx context.Context, rec *Record) error {
	if err := prepare(rec, s.now); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.insertStmt.ExecContext(ctx,
		rec.ID, rec.Entity, rec.Category, rec.Reason, rec.AuthorizedBy,
		rec.Timestamp.UnixNano(), rec.BidID, string(rec.Kind),
	)
	if err != nil {
		return &StorageError{Backend: "sqlite", Operation: "record", Cause: err}
	}
	return nil
}

// List returns matching records, oldest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Record, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Entity != "" {
		conds = append(conds, "entity = ? COLLATE NOCASE")
		args = append(args, filter.Entity)
	}
	if filter.BidID != "" {
		conds = append(conds, "bid_id = ?")
		args = append(args, filter.BidID)
	}
	if filter.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "ts_unix_nano >= ?")
		args = append(args, filter.Since.UnixNano())
	}

	q := "SELECT id, entity, category, reason, authorized_by, ts_unix_nano, bid_id, kind FROM override_records"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY ts_unix_nano ASC, id ASC"
	if filter.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Operation: "list", Cause: err}
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r    Record
			ts   int64
			kind string
		)
		if err := rows.Scan(&r.ID, &r.Entity, &r.Category, &r.Reason, &r.AuthorizedBy, &ts, &r.BidID, &kind); err != nil {
			return nil, &StorageError{Backend: "sqlite", Operation: "scan", Cause: err}
		}
		r.Timestamp = time.Unix(0, ts).UTC()
		r.Kind = Kind(kind)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Backend: "sqlite", Operation: "list", Cause: err}
	}
	return out, nil
}

// Close checkpoints the WAL and closes the database. It is safe to call
// more than once.
func (s *SQLiteStore) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			closeErr = &StorageError{Backend: "sqlite", Operation: "checkpoint", Cause: err}
		}
		if s.insertStmt != nil {
			s.insertStmt.Close()
		}
		if err := s.db.Close(); err != nil && closeErr == nil {
			closeErr = &StorageError{Backend: "sqlite", Operation: "close", Cause: err}
		}
	})
	return closeErr
}
